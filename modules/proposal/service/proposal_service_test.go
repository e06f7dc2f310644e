package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	coreentity "meetsync/core/entity"
	"meetsync/core/errors"
	"meetsync/modules/proposal/dto"
	"meetsync/modules/proposal/entity"
	spacedto "meetsync/modules/space/dto"
	"meetsync/modules/video"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ===================== fakes =====================

type fakeRepo struct {
	mu          sync.Mutex
	proposal    *entity.Proposal
	slots       []entity.ProposalSlot
	respondents []entity.Respondent
	responses   []entity.SlotResponse

	confirmRows int64
	cancelRows  int64
	extendRows  int64

	createdProposal    *entity.Proposal
	createdSlots       []entity.ProposalSlot
	createdRespondents []entity.Respondent
	upserted           []entity.SlotResponse
	meetingURL         string
	externalMeetingID  string
	icsURL             string
	reminderLogUsers   []uuid.UUID
}

func (f *fakeRepo) CreateProposal(_ context.Context, proposal *entity.Proposal, slots []entity.ProposalSlot, respondents []entity.Respondent) (*entity.Proposal, error) {
	proposal.ID = uuid.New()
	proposal.CreatedAt = time.Now()
	proposal.UpdatedAt = proposal.CreatedAt
	f.createdProposal = proposal
	f.createdSlots = slots
	f.createdRespondents = respondents
	return proposal, nil
}

func (f *fakeRepo) GetProposalBySpace(_ context.Context, spaceID, proposalID uuid.UUID) (*entity.Proposal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.proposal == nil || f.proposal.ID != proposalID || f.proposal.SpaceID != spaceID {
		return nil, nil
	}
	copied := *f.proposal
	return &copied, nil
}

func (f *fakeRepo) ListBySpace(_ context.Context, _ uuid.UUID, _ *entity.ProposalStatus, _ int) ([]entity.Proposal, error) {
	if f.proposal == nil {
		return nil, nil
	}
	return []entity.Proposal{*f.proposal}, nil
}

func (f *fakeRepo) GetSlots(_ context.Context, _ uuid.UUID) ([]entity.ProposalSlot, error) {
	return f.slots, nil
}

func (f *fakeRepo) GetSlot(_ context.Context, proposalID, slotID uuid.UUID) (*entity.ProposalSlot, error) {
	for i := range f.slots {
		if f.slots[i].ID == slotID && f.slots[i].ProposalID == proposalID {
			return &f.slots[i], nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) GetRespondents(_ context.Context, _ uuid.UUID) ([]entity.Respondent, error) {
	return f.respondents, nil
}

func (f *fakeRepo) GetRespondentByUser(_ context.Context, _, userID uuid.UUID) (*entity.Respondent, error) {
	for i := range f.respondents {
		if f.respondents[i].UserID == userID {
			return &f.respondents[i], nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) GetResponses(_ context.Context, _ uuid.UUID) ([]entity.SlotResponse, error) {
	return f.responses, nil
}

func (f *fakeRepo) UpsertResponses(_ context.Context, responses []entity.SlotResponse) (int, error) {
	f.upserted = append(f.upserted, responses...)
	return len(responses), nil
}

// ConfirmProposal mimics the WHERE status = 'open' guard under a lock so
// concurrent callers see exactly one winner.
func (f *fakeRepo) ConfirmProposal(_ context.Context, _, slotID, _ uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.confirmRows == 0 || f.proposal.Status != entity.ProposalStatusOpen {
		return 0, nil
	}
	f.proposal.Status = entity.ProposalStatusConfirmed
	f.proposal.ConfirmedSlotID = &slotID
	return f.confirmRows, nil
}

func (f *fakeRepo) CancelProposal(_ context.Context, _ uuid.UUID) (int64, error) {
	if f.cancelRows > 0 {
		f.proposal.Status = entity.ProposalStatusCancelled
	}
	return f.cancelRows, nil
}

func (f *fakeRepo) ExtendProposal(_ context.Context, _ uuid.UUID, newExpiresAt time.Time) (int64, error) {
	if f.extendRows > 0 {
		f.proposal.ExpiresAt = &newExpiresAt
	}
	return f.extendRows, nil
}

func (f *fakeRepo) ExpireDue(_ context.Context) (int64, error) { return 0, nil }

func (f *fakeRepo) SetMeetingDetails(_ context.Context, _ uuid.UUID, meetingURL, externalMeetingID string) error {
	f.meetingURL = meetingURL
	f.externalMeetingID = externalMeetingID
	return nil
}

func (f *fakeRepo) SetICSURL(_ context.Context, _ uuid.UUID, icsURL string) error {
	f.icsURL = icsURL
	return nil
}

func (f *fakeRepo) InsertReminderLog(_ context.Context, _ uuid.UUID, _ string, targetUserID uuid.UUID) error {
	f.reminderLogUsers = append(f.reminderLogUsers, targetUserID)
	return nil
}

type fakeGate struct {
	denyActions map[string]bool
	orgID       uuid.UUID
	emails      map[uuid.UUID]string
}

func (g *fakeGate) CheckAuthorization(_ context.Context, _, _ uuid.UUID, action string) (*spacedto.AuthDecision, *errors.AppError) {
	if g.denyActions[action] {
		return &spacedto.AuthDecision{Allowed: false, Reason: "Insufficient role"}, nil
	}
	return &spacedto.AuthDecision{Allowed: true, Role: "admin"}, nil
}

func (g *fakeGate) ResolveOrg(_ context.Context, _ uuid.UUID) (uuid.UUID, *errors.AppError) {
	return g.orgID, nil
}

func (g *fakeGate) GetUserEmails(_ context.Context, _ []uuid.UUID) (map[uuid.UUID]string, *errors.AppError) {
	return g.emails, nil
}

type sentNotification struct {
	userID    uuid.UUID
	notifType string
	dedupeKey string
}

type fakeNotifier struct {
	sent      []sentNotification
	delivered map[string]bool // dedupe keys already used
	failFor   map[uuid.UUID]bool
}

func (n *fakeNotifier) Notify(_ context.Context, userID uuid.UUID, _, _, notifType string, _ map[string]any) error {
	if n.failFor[userID] {
		return fmt.Errorf("delivery failed")
	}
	n.sent = append(n.sent, sentNotification{userID: userID, notifType: notifType})
	return nil
}

func (n *fakeNotifier) NotifyDeduped(_ context.Context, userID uuid.UUID, _, _, notifType string, _ map[string]any, dedupeKey string) (bool, error) {
	if n.failFor[userID] {
		return false, fmt.Errorf("delivery failed")
	}
	if n.delivered == nil {
		n.delivered = map[string]bool{}
	}
	if n.delivered[dedupeKey] {
		return false, nil
	}
	n.delivered[dedupeKey] = true
	n.sent = append(n.sent, sentNotification{userID: userID, notifType: notifType, dedupeKey: dedupeKey})
	return true, nil
}

type fakeProvider struct {
	name      string
	createErr error
	meeting   *video.Meeting
	lastKey   string
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) CreateMeeting(_ context.Context, params video.CreateMeetingParams) (*video.Meeting, error) {
	p.lastKey = params.IdempotencyKey
	if p.createErr != nil {
		return nil, p.createErr
	}
	return p.meeting, nil
}

func (p *fakeProvider) CancelMeeting(_ context.Context, _ string) error { return nil }

type fakeStorage struct {
	lastKey         string
	lastContentType string
	lastBody        []byte
}

func (s *fakeStorage) Upload(_ context.Context, key, contentType string, body []byte) (string, error) {
	s.lastKey = key
	s.lastContentType = contentType
	s.lastBody = body
	return "https://files.example.com/" + key, nil
}

// ===================== fixtures =====================

var testNow = time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc      *proposalService
	repo     *fakeRepo
	gate     *fakeGate
	notifier *fakeNotifier
	provider *fakeProvider
	storage  *fakeStorage

	spaceID uuid.UUID
	actorID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := &fakeRepo{}
	gate := &fakeGate{orgID: uuid.New(), emails: map[uuid.UUID]string{}}
	notifier := &fakeNotifier{}
	provider := &fakeProvider{
		name:    "zoom",
		meeting: &video.Meeting{MeetingURL: "https://zoom.example.com/j/123", ExternalMeetingID: "zoom-123"},
	}
	storage := &fakeStorage{}

	svc := NewProposalService(repo, gate, notifier, video.NewRegistry(provider), storage).(*proposalService)
	svc.now = func() time.Time { return testNow }

	return &fixture{
		svc:      svc,
		repo:     repo,
		gate:     gate,
		notifier: notifier,
		provider: provider,
		storage:  storage,
		spaceID:  uuid.New(),
		actorID:  uuid.New(),
	}
}

// seedOpenProposal loads the fake repo with an open proposal, two slots and
// three respondents: a required client, a required internal, an optional
// internal. Returns the proposal ID.
func (f *fixture) seedOpenProposal() uuid.UUID {
	proposalID := uuid.New()
	provider := "zoom"
	f.repo.proposal = &entity.Proposal{
		BaseEntity:      coreentity.BaseEntity{ID: proposalID, CreatedAt: testNow.Add(-time.Hour), UpdatedAt: testNow.Add(-time.Hour)},
		OrgID:           f.gate.orgID,
		SpaceID:         f.spaceID,
		Title:           "Quarterly review",
		DurationMinutes: 60,
		Status:          entity.ProposalStatusOpen,
		VideoProvider:   &provider,
		CreatedBy:       f.actorID,
	}
	f.repo.slots = []entity.ProposalSlot{
		{ID: uuid.New(), ProposalID: proposalID, StartAt: testNow.Add(24 * time.Hour), EndAt: testNow.Add(25 * time.Hour), SlotOrder: 0},
		{ID: uuid.New(), ProposalID: proposalID, StartAt: testNow.Add(48 * time.Hour), EndAt: testNow.Add(49 * time.Hour), SlotOrder: 1},
	}
	f.repo.respondents = []entity.Respondent{
		{ID: uuid.New(), ProposalID: proposalID, UserID: uuid.New(), Side: entity.SideClient, IsRequired: true},
		{ID: uuid.New(), ProposalID: proposalID, UserID: uuid.New(), Side: entity.SideInternal, IsRequired: true},
		{ID: uuid.New(), ProposalID: proposalID, UserID: uuid.New(), Side: entity.SideInternal, IsRequired: false},
	}
	f.repo.confirmRows = 1
	f.repo.cancelRows = 1
	f.repo.extendRows = 1
	return proposalID
}

// clearSlot records a clearing answer on the slot for every required respondent
func (f *fixture) clearSlot(slotID uuid.UUID) {
	for _, r := range f.repo.respondents {
		if !r.IsRequired {
			continue
		}
		f.repo.responses = append(f.repo.responses, entity.SlotResponse{
			SlotID: slotID, RespondentID: r.ID, Response: entity.ResponseAvailable, RespondedAt: testNow,
		})
	}
}

func validCreateRequest() *dto.CreateProposalRequest {
	return &dto.CreateProposalRequest{
		Title:           "Kickoff",
		DurationMinutes: 60,
		Slots: []dto.SlotInput{
			{StartAt: testNow.Add(24 * time.Hour), EndAt: testNow.Add(25 * time.Hour)},
			{StartAt: testNow.Add(48 * time.Hour), EndAt: testNow.Add(49 * time.Hour)},
		},
		Respondents: []dto.RespondentInput{
			{UserID: uuid.New().String(), Side: "client", IsRequired: true},
			{UserID: uuid.New().String(), Side: "internal", IsRequired: true},
		},
	}
}

// ===================== create =====================

func TestCreateProposal_Success(t *testing.T) {
	f := newFixture(t)
	req := validCreateRequest()

	resp, appErr := f.svc.CreateProposal(context.Background(), f.actorID, f.spaceID, req)

	require.Nil(t, appErr)
	require.NotNil(t, resp)
	assert.Equal(t, "Kickoff", resp.Title)
	assert.Equal(t, "open", resp.Status)

	require.NotNil(t, f.repo.createdProposal)
	assert.Equal(t, f.gate.orgID, f.repo.createdProposal.OrgID)
	require.Len(t, f.repo.createdSlots, 2)
	assert.Equal(t, 0, f.repo.createdSlots[0].SlotOrder)
	assert.Equal(t, 1, f.repo.createdSlots[1].SlotOrder)
	assert.Equal(t, time.UTC, f.repo.createdSlots[0].StartAt.Location())
	require.Len(t, f.repo.createdRespondents, 2)
}

func TestCreateProposal_Validation(t *testing.T) {
	pastExpiry := testNow.Add(-time.Hour)
	futureExpiry := testNow.Add(72 * time.Hour)
	unknownProvider := "webex"
	dupID := uuid.New().String()

	cases := map[string]func(*dto.CreateProposalRequest){
		"blank title":    func(r *dto.CreateProposalRequest) { r.Title = "   " },
		"duration short": func(r *dto.CreateProposalRequest) { r.DurationMinutes = 10 },
		"duration long":  func(r *dto.CreateProposalRequest) { r.DurationMinutes = 500 },
		"one slot":       func(r *dto.CreateProposalRequest) { r.Slots = r.Slots[:1] },
		"six slots": func(r *dto.CreateProposalRequest) {
			for len(r.Slots) < 6 {
				r.Slots = append(r.Slots, dto.SlotInput{StartAt: testNow.Add(time.Hour), EndAt: testNow.Add(2 * time.Hour)})
			}
		},
		"slot ends before start": func(r *dto.CreateProposalRequest) {
			r.Slots[0] = dto.SlotInput{StartAt: testNow.Add(2 * time.Hour), EndAt: testNow.Add(time.Hour)}
		},
		"expiry in the past": func(r *dto.CreateProposalRequest) { r.ExpiresAt = &pastExpiry },
		"no respondents":     func(r *dto.CreateProposalRequest) { r.Respondents = nil },
		"no client side": func(r *dto.CreateProposalRequest) {
			for i := range r.Respondents {
				r.Respondents[i].Side = "internal"
			}
		},
		"unknown side": func(r *dto.CreateProposalRequest) { r.Respondents[0].Side = "vendor" },
		"duplicate respondent": func(r *dto.CreateProposalRequest) {
			r.Respondents[0].UserID = dupID
			r.Respondents[1].UserID = dupID
		},
		"unconfigured video provider": func(r *dto.CreateProposalRequest) {
			r.ExpiresAt = &futureExpiry
			r.VideoProvider = &unknownProvider
		},
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			req := validCreateRequest()
			mutate(req)

			resp, appErr := f.svc.CreateProposal(context.Background(), f.actorID, f.spaceID, req)

			assert.Nil(t, resp)
			require.NotNil(t, appErr)
			assert.Equal(t, errors.ErrInvalidInput, appErr.Code)
			assert.Nil(t, f.repo.createdProposal, "nothing may be written on validation failure")
		})
	}
}

func TestCreateProposal_Forbidden(t *testing.T) {
	f := newFixture(t)
	f.gate.denyActions = map[string]bool{spacedto.ActionProposalCreate: true}

	resp, appErr := f.svc.CreateProposal(context.Background(), f.actorID, f.spaceID, validCreateRequest())

	assert.Nil(t, resp)
	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrForbidden, appErr.Code)
}

// ===================== responses =====================

func TestSubmitResponses_Success(t *testing.T) {
	f := newFixture(t)
	proposalID := f.seedOpenProposal()
	respondent := f.repo.respondents[0]

	req := &dto.SubmitResponsesRequest{Responses: []dto.SlotResponseInput{
		{SlotID: f.repo.slots[0].ID.String(), Response: "available"},
		{SlotID: f.repo.slots[1].ID.String(), Response: "unavailable_but_proceed"},
	}}

	resp, appErr := f.svc.SubmitResponses(context.Background(), respondent.UserID, f.spaceID, proposalID, req)

	require.Nil(t, appErr)
	assert.Equal(t, 2, resp.UpdatedCount)
	require.Len(t, f.repo.upserted, 2)
	assert.Equal(t, respondent.ID, f.repo.upserted[0].RespondentID)
	assert.Equal(t, entity.ResponseUnavailableButOK, f.repo.upserted[1].Response)
}

func TestSubmitResponses_NotARespondent(t *testing.T) {
	f := newFixture(t)
	proposalID := f.seedOpenProposal()

	req := &dto.SubmitResponsesRequest{Responses: []dto.SlotResponseInput{
		{SlotID: f.repo.slots[0].ID.String(), Response: "available"},
	}}

	_, appErr := f.svc.SubmitResponses(context.Background(), uuid.New(), f.spaceID, proposalID, req)

	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrForbidden, appErr.Code)
}

func TestSubmitResponses_ForeignSlotRejected(t *testing.T) {
	f := newFixture(t)
	proposalID := f.seedOpenProposal()

	req := &dto.SubmitResponsesRequest{Responses: []dto.SlotResponseInput{
		{SlotID: uuid.New().String(), Response: "available"},
	}}

	_, appErr := f.svc.SubmitResponses(context.Background(), f.repo.respondents[0].UserID, f.spaceID, proposalID, req)

	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrInvalidInput, appErr.Code)
	assert.Empty(t, f.repo.upserted)
}

func TestSubmitResponses_UnknownValueRejected(t *testing.T) {
	f := newFixture(t)
	proposalID := f.seedOpenProposal()

	req := &dto.SubmitResponsesRequest{Responses: []dto.SlotResponseInput{
		{SlotID: f.repo.slots[0].ID.String(), Response: "maybe"},
	}}

	_, appErr := f.svc.SubmitResponses(context.Background(), f.repo.respondents[0].UserID, f.spaceID, proposalID, req)

	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrInvalidInput, appErr.Code)
}

func TestSubmitResponses_ClosedProposal(t *testing.T) {
	f := newFixture(t)
	proposalID := f.seedOpenProposal()
	f.repo.proposal.Status = entity.ProposalStatusCancelled

	req := &dto.SubmitResponsesRequest{Responses: []dto.SlotResponseInput{
		{SlotID: f.repo.slots[0].ID.String(), Response: "available"},
	}}

	_, appErr := f.svc.SubmitResponses(context.Background(), f.repo.respondents[0].UserID, f.spaceID, proposalID, req)

	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrStateConflict, appErr.Code)
	details, ok := appErr.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "cancelled", details["status"])
}

func TestSubmitResponses_PassiveExpiry(t *testing.T) {
	f := newFixture(t)
	proposalID := f.seedOpenProposal()
	expired := testNow.Add(-time.Minute)
	f.repo.proposal.ExpiresAt = &expired

	req := &dto.SubmitResponsesRequest{Responses: []dto.SlotResponseInput{
		{SlotID: f.repo.slots[0].ID.String(), Response: "available"},
	}}

	// The sweep has not run yet so the row still says open; the deadline
	// alone must close the proposal to responses.
	_, appErr := f.svc.SubmitResponses(context.Background(), f.repo.respondents[0].UserID, f.spaceID, proposalID, req)

	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrStateConflict, appErr.Code)
	details, ok := appErr.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "expired", details["status"])
}

// ===================== read model =====================

func TestGetResponses_AggregatesAndConfirmability(t *testing.T) {
	f := newFixture(t)
	proposalID := f.seedOpenProposal()
	required1, required2, optional := f.repo.respondents[0], f.repo.respondents[1], f.repo.respondents[2]
	slotA, slotB := f.repo.slots[0], f.repo.slots[1]

	f.repo.responses = []entity.SlotResponse{
		{SlotID: slotA.ID, RespondentID: required1.ID, Response: entity.ResponseAvailable},
		{SlotID: slotA.ID, RespondentID: required2.ID, Response: entity.ResponseUnavailableButOK},
		{SlotID: slotA.ID, RespondentID: optional.ID, Response: entity.ResponseUnavailable},
		{SlotID: slotB.ID, RespondentID: required1.ID, Response: entity.ResponseAvailable},
	}

	detail, appErr := f.svc.GetResponses(context.Background(), f.actorID, f.spaceID, proposalID)

	require.Nil(t, appErr)
	require.Len(t, detail.Slots, 2)

	// Slot A: both required respondents cleared it; the optional
	// unavailable answer does not block.
	aggA := detail.Slots[0].Aggregate
	assert.Equal(t, 1, aggA.Available)
	assert.Equal(t, 1, aggA.Proceed)
	assert.Equal(t, 1, aggA.Unavailable)
	assert.Equal(t, 0, aggA.Pending)
	assert.True(t, aggA.IsConfirmable)

	// Slot B: one required respondent has not answered.
	aggB := detail.Slots[1].Aggregate
	assert.Equal(t, 1, aggB.Available)
	assert.Equal(t, 2, aggB.Pending)
	assert.False(t, aggB.IsConfirmable)

	require.Len(t, detail.Respondents, 3)
	assert.Equal(t, "available", detail.Respondents[0].Responses[slotA.ID.String()])
}

// ===================== confirm =====================

func TestConfirmSlot_Success(t *testing.T) {
	f := newFixture(t)
	proposalID := f.seedOpenProposal()
	slot := f.repo.slots[0]
	f.clearSlot(slot.ID)
	for _, r := range f.repo.respondents {
		f.gate.emails[r.UserID] = r.UserID.String() + "@example.com"
	}

	resp, appErr := f.svc.ConfirmSlot(context.Background(), f.actorID, f.spaceID, proposalID, &dto.ConfirmSlotRequest{SlotID: slot.ID.String()})

	require.Nil(t, appErr)
	require.NotNil(t, resp)
	assert.Equal(t, "zoom-123", resp.MeetingID, "provisioned meetings report the provider's identifier")
	assert.True(t, resp.SlotStart.Equal(slot.StartAt))
	assert.Nil(t, resp.Warning)

	require.NotNil(t, resp.MeetingURL)
	assert.Equal(t, "https://zoom.example.com/j/123", *resp.MeetingURL)
	assert.Equal(t, "zoom-123", f.repo.externalMeetingID)
	assert.NotEmpty(t, f.provider.lastKey)

	require.NotNil(t, resp.ICSURL)
	assert.Equal(t, "proposals/"+proposalID.String()+"/invite.ics", f.storage.lastKey)
	assert.Equal(t, "text/calendar", f.storage.lastContentType)
	assert.Contains(t, string(f.storage.lastBody), "BEGIN:VCALENDAR")

	// Every respondent is told, required or not.
	assert.Len(t, f.notifier.sent, 3)
}

func TestConfirmSlot_IdempotencyKeyStable(t *testing.T) {
	f := newFixture(t)
	proposalID := f.seedOpenProposal()
	slot := f.repo.slots[0]
	f.clearSlot(slot.ID)

	_, appErr := f.svc.ConfirmSlot(context.Background(), f.actorID, f.spaceID, proposalID, &dto.ConfirmSlotRequest{SlotID: slot.ID.String()})
	require.Nil(t, appErr)
	firstKey := f.provider.lastKey

	// A retry of the same pair must present the same key to the vendor.
	f.repo.proposal.Status = entity.ProposalStatusOpen
	_, appErr = f.svc.ConfirmSlot(context.Background(), f.actorID, f.spaceID, proposalID, &dto.ConfirmSlotRequest{SlotID: slot.ID.String()})
	require.Nil(t, appErr)
	assert.Equal(t, firstKey, f.provider.lastKey)
}

func TestConfirmSlot_NotConfirmable(t *testing.T) {
	f := newFixture(t)
	proposalID := f.seedOpenProposal()
	slot := f.repo.slots[0]
	required1, required2 := f.repo.respondents[0], f.repo.respondents[1]

	// One required respondent says unavailable, the other is available.
	f.repo.responses = []entity.SlotResponse{
		{SlotID: slot.ID, RespondentID: required1.ID, Response: entity.ResponseAvailable},
		{SlotID: slot.ID, RespondentID: required2.ID, Response: entity.ResponseUnavailable},
	}

	_, appErr := f.svc.ConfirmSlot(context.Background(), f.actorID, f.spaceID, proposalID, &dto.ConfirmSlotRequest{SlotID: slot.ID.String()})

	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrStateConflict, appErr.Code)

	// With the blocker flipped to proceed the same slot confirms.
	f.repo.responses[1].Response = entity.ResponseUnavailableButOK
	resp, appErr := f.svc.ConfirmSlot(context.Background(), f.actorID, f.spaceID, proposalID, &dto.ConfirmSlotRequest{SlotID: slot.ID.String()})
	require.Nil(t, appErr)
	assert.NotNil(t, resp)
}

func TestConfirmSlot_PendingRequiredBlocks(t *testing.T) {
	f := newFixture(t)
	proposalID := f.seedOpenProposal()
	slot := f.repo.slots[0]

	// Only one of the two required respondents has answered.
	f.repo.responses = []entity.SlotResponse{
		{SlotID: slot.ID, RespondentID: f.repo.respondents[0].ID, Response: entity.ResponseAvailable},
	}

	_, appErr := f.svc.ConfirmSlot(context.Background(), f.actorID, f.spaceID, proposalID, &dto.ConfirmSlotRequest{SlotID: slot.ID.String()})

	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrStateConflict, appErr.Code)
}

func TestConfirmSlot_ForeignSlot(t *testing.T) {
	f := newFixture(t)
	proposalID := f.seedOpenProposal()

	_, appErr := f.svc.ConfirmSlot(context.Background(), f.actorID, f.spaceID, proposalID, &dto.ConfirmSlotRequest{SlotID: uuid.New().String()})

	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrInvalidInput, appErr.Code)
}

func TestConfirmSlot_RaceLost(t *testing.T) {
	f := newFixture(t)
	proposalID := f.seedOpenProposal()
	slot := f.repo.slots[0]
	f.clearSlot(slot.ID)
	f.repo.confirmRows = 0
	f.repo.proposal.Status = entity.ProposalStatusOpen

	resp, appErr := f.svc.ConfirmSlot(context.Background(), f.actorID, f.spaceID, proposalID, &dto.ConfirmSlotRequest{SlotID: slot.ID.String()})

	assert.Nil(t, resp)
	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrStateConflict, appErr.Code)
	assert.Contains(t, appErr.Message, "already decided")
	assert.Empty(t, f.notifier.sent, "a lost race must not fan out")
}

func TestConfirmSlot_ProviderFailureIsWarning(t *testing.T) {
	f := newFixture(t)
	proposalID := f.seedOpenProposal()
	slot := f.repo.slots[0]
	f.clearSlot(slot.ID)
	f.provider.createErr = fmt.Errorf("vendor 500")

	resp, appErr := f.svc.ConfirmSlot(context.Background(), f.actorID, f.spaceID, proposalID, &dto.ConfirmSlotRequest{SlotID: slot.ID.String()})

	// The status transition is the commit point: the confirmation stands.
	require.Nil(t, appErr)
	require.NotNil(t, resp)
	assert.Equal(t, proposalID.String(), resp.MeetingID, "no provider meeting, so the proposal ID stands in")
	assert.Nil(t, resp.MeetingURL)
	require.NotNil(t, resp.Warning)
	assert.Equal(t, entity.ProposalStatusConfirmed, f.repo.proposal.Status)
	assert.Len(t, f.notifier.sent, 3)
}

func TestConfirmSlot_NoProviderRequested(t *testing.T) {
	f := newFixture(t)
	proposalID := f.seedOpenProposal()
	f.repo.proposal.VideoProvider = nil
	slot := f.repo.slots[0]
	f.clearSlot(slot.ID)

	resp, appErr := f.svc.ConfirmSlot(context.Background(), f.actorID, f.spaceID, proposalID, &dto.ConfirmSlotRequest{SlotID: slot.ID.String()})

	require.Nil(t, appErr)
	assert.Equal(t, proposalID.String(), resp.MeetingID)
	assert.Nil(t, resp.MeetingURL)
	assert.Nil(t, resp.Warning)
	assert.Empty(t, f.provider.lastKey)
}

func TestConfirmSlot_OnlyOneConcurrentCallerWins(t *testing.T) {
	f := newFixture(t)
	proposalID := f.seedOpenProposal()
	slot := f.repo.slots[0]
	f.clearSlot(slot.ID)

	const callers = 8
	results := make([]*errors.AppError, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, appErr := f.svc.ConfirmSlot(context.Background(), f.actorID, f.spaceID, proposalID, &dto.ConfirmSlotRequest{SlotID: slot.ID.String()})
			results[i] = appErr
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, appErr := range results {
		if appErr == nil {
			wins++
			continue
		}
		assert.Equal(t, errors.ErrStateConflict, appErr.Code)
	}
	assert.Equal(t, 1, wins, "the status guard admits exactly one confirmation")
	assert.Equal(t, entity.ProposalStatusConfirmed, f.repo.proposal.Status)

	// Only the winner fans out.
	assert.Len(t, f.notifier.sent, 3)
}

// ===================== cancel / extend =====================

func TestCancelProposal_Success(t *testing.T) {
	f := newFixture(t)
	proposalID := f.seedOpenProposal()

	resp, appErr := f.svc.CancelProposal(context.Background(), f.actorID, f.spaceID, proposalID)

	require.Nil(t, appErr)
	assert.Equal(t, "cancelled", resp.Status)
	assert.Len(t, f.notifier.sent, 3)
}

func TestCancelProposal_AlreadyDecided(t *testing.T) {
	f := newFixture(t)
	proposalID := f.seedOpenProposal()
	f.repo.proposal.Status = entity.ProposalStatusConfirmed
	f.repo.cancelRows = 0

	resp, appErr := f.svc.CancelProposal(context.Background(), f.actorID, f.spaceID, proposalID)

	assert.Nil(t, resp)
	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrStateConflict, appErr.Code)
	details, ok := appErr.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "confirmed", details["status"])
}

func TestExtendProposal_Success(t *testing.T) {
	f := newFixture(t)
	proposalID := f.seedOpenProposal()
	newExpiry := testNow.Add(96 * time.Hour)

	resp, appErr := f.svc.ExtendProposal(context.Background(), f.actorID, f.spaceID, proposalID, &dto.ExtendProposalRequest{ExpiresAt: newExpiry})

	require.Nil(t, appErr)
	require.NotNil(t, resp.ExpiresAt)
	assert.True(t, resp.ExpiresAt.Equal(newExpiry))
}

func TestExtendProposal_PastExpiryRejected(t *testing.T) {
	f := newFixture(t)
	proposalID := f.seedOpenProposal()

	_, appErr := f.svc.ExtendProposal(context.Background(), f.actorID, f.spaceID, proposalID, &dto.ExtendProposalRequest{ExpiresAt: testNow.Add(-time.Hour)})

	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrInvalidInput, appErr.Code)
}

func TestExtendProposal_ClosedProposal(t *testing.T) {
	f := newFixture(t)
	proposalID := f.seedOpenProposal()
	f.repo.proposal.Status = entity.ProposalStatusExpired
	f.repo.extendRows = 0

	_, appErr := f.svc.ExtendProposal(context.Background(), f.actorID, f.spaceID, proposalID, &dto.ExtendProposalRequest{ExpiresAt: testNow.Add(time.Hour)})

	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrStateConflict, appErr.Code)
}

// ===================== reminders =====================

func TestSendReminders_TargetsUnresponded(t *testing.T) {
	f := newFixture(t)
	proposalID := f.seedOpenProposal()
	answered := f.repo.respondents[0]
	silent1 := f.repo.respondents[1]
	silent2 := f.repo.respondents[2]

	f.repo.responses = []entity.SlotResponse{
		{SlotID: f.repo.slots[0].ID, RespondentID: answered.ID, Response: entity.ResponseAvailable},
	}

	resp, appErr := f.svc.SendReminders(context.Background(), f.actorID, f.spaceID, proposalID)

	require.Nil(t, appErr)
	assert.Equal(t, 2, resp.SentCount)
	assert.ElementsMatch(t, []string{silent1.UserID.String(), silent2.UserID.String()}, resp.UnrespondedUserIDs)
	assert.Len(t, f.notifier.sent, 2)
	assert.ElementsMatch(t, []uuid.UUID{silent1.UserID, silent2.UserID}, f.repo.reminderLogUsers)
}

func TestSendReminders_RepeatDispatchDedupes(t *testing.T) {
	f := newFixture(t)
	proposalID := f.seedOpenProposal()

	first, appErr := f.svc.SendReminders(context.Background(), f.actorID, f.spaceID, proposalID)
	require.Nil(t, appErr)
	assert.Equal(t, 3, first.SentCount)
	assert.Len(t, f.notifier.sent, 3)

	// Second call: nobody gets a duplicate notification but the count
	// still reports the unresponded set as it stands.
	second, appErr := f.svc.SendReminders(context.Background(), f.actorID, f.spaceID, proposalID)
	require.Nil(t, appErr)
	assert.Equal(t, 3, second.SentCount)
	assert.Len(t, f.notifier.sent, 3)
}

// The notification upsert is the primary effect of reminder dispatch: when
// it fails the whole operation fails, unlike the best-effort audit row.
func TestSendReminders_DeliveryFailureFailsOperation(t *testing.T) {
	f := newFixture(t)
	proposalID := f.seedOpenProposal()
	failing := f.repo.respondents[1]
	f.notifier.failFor = map[uuid.UUID]bool{failing.UserID: true}

	resp, appErr := f.svc.SendReminders(context.Background(), f.actorID, f.spaceID, proposalID)

	assert.Nil(t, resp)
	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrInternalServer, appErr.Code)
	assert.NotContains(t, f.repo.reminderLogUsers, failing.UserID)
}

func TestSendReminders_ClosedProposal(t *testing.T) {
	f := newFixture(t)
	proposalID := f.seedOpenProposal()
	f.repo.proposal.Status = entity.ProposalStatusConfirmed

	_, appErr := f.svc.SendReminders(context.Background(), f.actorID, f.spaceID, proposalID)

	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrStateConflict, appErr.Code)
	assert.Empty(t, f.notifier.sent)
}

// ===================== list =====================

func TestListProposals_UnknownStatusRejected(t *testing.T) {
	f := newFixture(t)
	bad := "archived"

	_, appErr := f.svc.ListProposals(context.Background(), f.actorID, f.spaceID, &bad, 20)

	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrInvalidInput, appErr.Code)
}

func TestGetResponses_NotFound(t *testing.T) {
	f := newFixture(t)

	_, appErr := f.svc.GetResponses(context.Background(), f.actorID, f.spaceID, uuid.New())

	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrNotFound, appErr.Code)
}
