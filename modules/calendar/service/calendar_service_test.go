package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	coreentity "meetsync/core/entity"
	"meetsync/core/errors"
	"meetsync/modules/calendar/dto"
	"meetsync/modules/calendar/entity"
	spacedto "meetsync/modules/space/dto"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCalendarRepo struct {
	connections []entity.CalendarConnection
	updated     []entity.CalendarConnection
	deactivated []string
}

func (f *fakeCalendarRepo) CreateConnection(_ context.Context, conn *entity.CalendarConnection) (*entity.CalendarConnection, error) {
	conn.ID = uuid.New()
	f.connections = append(f.connections, *conn)
	return conn, nil
}

func (f *fakeCalendarRepo) GetConnectionByUserAndProvider(_ context.Context, userID uuid.UUID, provider string) (*entity.CalendarConnection, error) {
	for i := range f.connections {
		if f.connections[i].UserID == userID && f.connections[i].Provider == provider {
			return &f.connections[i], nil
		}
	}
	return nil, nil
}

func (f *fakeCalendarRepo) GetConnectionsByUserID(_ context.Context, userID uuid.UUID) ([]entity.CalendarConnection, error) {
	var out []entity.CalendarConnection
	for _, c := range f.connections {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCalendarRepo) GetConnectionsByUserIDs(_ context.Context, userIDs []uuid.UUID) ([]entity.CalendarConnection, error) {
	wanted := make(map[uuid.UUID]bool, len(userIDs))
	for _, id := range userIDs {
		wanted[id] = true
	}
	var out []entity.CalendarConnection
	for _, c := range f.connections {
		if wanted[c.UserID] && c.IsActive {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCalendarRepo) UpdateConnection(_ context.Context, conn *entity.CalendarConnection) error {
	f.updated = append(f.updated, *conn)
	return nil
}

func (f *fakeCalendarRepo) DeactivateConnection(_ context.Context, _ uuid.UUID, provider string) error {
	f.deactivated = append(f.deactivated, provider)
	return nil
}

type fakeCalendarGate struct {
	deny    bool
	members map[uuid.UUID]bool
}

func (g *fakeCalendarGate) CheckAuthorization(_ context.Context, _, _ uuid.UUID, _ string) (*spacedto.AuthDecision, *errors.AppError) {
	if g.deny {
		return &spacedto.AuthDecision{Allowed: false, Reason: "Insufficient role"}, nil
	}
	return &spacedto.AuthDecision{Allowed: true, Role: "member"}, nil
}

func (g *fakeCalendarGate) FilterMembers(_ context.Context, _ uuid.UUID, userIDs []uuid.UUID) ([]uuid.UUID, []uuid.UUID, *errors.AppError) {
	var members, rejected []uuid.UUID
	for _, id := range userIDs {
		if g.members[id] {
			members = append(members, id)
		} else {
			rejected = append(rejected, id)
		}
	}
	return members, rejected, nil
}

type fakeFreeBusy struct {
	busyByEmail map[string][]dto.BusyPeriod
	failEmails  map[string]bool
	queried     []string
}

func (f *fakeFreeBusy) QueryFreeBusy(_ context.Context, _, email string, _, _ time.Time) ([]dto.BusyPeriod, error) {
	f.queried = append(f.queried, email)
	if f.failEmails[email] {
		return nil, fmt.Errorf("freebusy query failed")
	}
	return f.busyByEmail[email], nil
}

type suggestFixture struct {
	svc     CalendarService
	repo    *fakeCalendarRepo
	gate    *fakeCalendarGate
	source  *fakeFreeBusy
	spaceID uuid.UUID
	actorID uuid.UUID
}

func newSuggestFixture() *suggestFixture {
	repo := &fakeCalendarRepo{}
	gate := &fakeCalendarGate{members: map[uuid.UUID]bool{}}
	source := &fakeFreeBusy{busyByEmail: map[string][]dto.BusyPeriod{}, failEmails: map[string]bool{}}
	return &suggestFixture{
		svc:     NewCalendarService(repo, gate, source),
		repo:    repo,
		gate:    gate,
		source:  source,
		spaceID: uuid.New(),
		actorID: uuid.New(),
	}
}

// addMember registers a space member, optionally with an active calendar
// connection whose token is nowhere near expiry.
func (f *suggestFixture) addMember(email string, connected bool) uuid.UUID {
	id := uuid.New()
	f.gate.members[id] = true
	if connected {
		f.repo.connections = append(f.repo.connections, entity.CalendarConnection{
			BaseEntity:     coreentity.BaseEntity{ID: uuid.New()},
			UserID:         id,
			Provider:       entity.ProviderGoogle,
			AccessToken:    "token-" + email,
			TokenExpiresAt: time.Now().Add(time.Hour),
			CalendarEmail:  email,
			IsActive:       true,
		})
	}
	return id
}

func suggestRequest(userIDs ...uuid.UUID) *dto.SuggestSlotsRequest {
	ids := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		ids = append(ids, id.String())
	}
	return &dto.SuggestSlotsRequest{
		UserIDs:   ids,
		StartDate: "2024-06-03",
		EndDate:   "2024-06-03",
	}
}

func TestSuggestSlots_MergesBusyAcrossUsers(t *testing.T) {
	f := newSuggestFixture()
	alice := f.addMember("alice@example.com", true)
	bob := f.addMember("bob@example.com", true)

	f.source.busyByEmail["alice@example.com"] = []dto.BusyPeriod{{
		Start: localRFC3339("2024-06-03", 9, 0),
		End:   localRFC3339("2024-06-03", 12, 0),
	}}
	f.source.busyByEmail["bob@example.com"] = []dto.BusyPeriod{{
		Start: localRFC3339("2024-06-03", 14, 0),
		End:   localRFC3339("2024-06-03", 18, 0),
	}}

	resp, appErr := f.svc.SuggestSlots(context.Background(), f.actorID, f.spaceID, suggestRequest(alice, bob))

	require.Nil(t, appErr)
	assert.Len(t, resp.ConnectedUserIDs, 2)
	assert.Empty(t, resp.FailedUserIDs)
	assert.ElementsMatch(t, []string{"alice@example.com", "bob@example.com"}, f.source.queried)

	// Only 12:00-14:00 is free for everyone with a 60 minute default
	// duration: starts at 12:00, 12:30 and 13:00.
	starts := slotStarts(resp.Slots)
	assert.Equal(t, []string{"12:00", "12:30", "13:00"}, starts)
}

func TestSuggestSlots_DefaultsApplied(t *testing.T) {
	f := newSuggestFixture()
	alice := f.addMember("alice@example.com", true)

	resp, appErr := f.svc.SuggestSlots(context.Background(), f.actorID, f.spaceID, suggestRequest(alice))

	require.Nil(t, appErr)
	// Duration 60 and business hours 9-18 when the request leaves them zero.
	require.NotEmpty(t, resp.Slots)
	assert.Equal(t, "2024-06-03T09:00:00", resp.Slots[0].StartAt)
	assert.Equal(t, "2024-06-03T10:00:00", resp.Slots[0].EndAt)
	assert.Len(t, resp.Slots, 17)
}

func TestSuggestSlots_NonMembersRejected(t *testing.T) {
	f := newSuggestFixture()
	member := f.addMember("alice@example.com", true)
	outsider := uuid.New()

	resp, appErr := f.svc.SuggestSlots(context.Background(), f.actorID, f.spaceID, suggestRequest(member, outsider))

	require.Nil(t, appErr)
	assert.Equal(t, []string{outsider.String()}, resp.RejectedUserIDs)
	assert.Equal(t, []string{member.String()}, resp.ConnectedUserIDs)
	assert.Len(t, f.source.queried, 1, "rejected users must not be queried")
}

func TestSuggestSlots_DisconnectedUserStillListed(t *testing.T) {
	f := newSuggestFixture()
	connected := f.addMember("alice@example.com", true)
	disconnected := f.addMember("", false)

	resp, appErr := f.svc.SuggestSlots(context.Background(), f.actorID, f.spaceID, suggestRequest(connected, disconnected))

	require.Nil(t, appErr)
	assert.Equal(t, []string{connected.String()}, resp.ConnectedUserIDs)
	assert.Equal(t, []string{disconnected.String()}, resp.DisconnectedUserIDs)
	assert.NotEmpty(t, resp.Slots)
}

func TestSuggestSlots_NoConnectionsYieldsOpenGrid(t *testing.T) {
	f := newSuggestFixture()
	a := f.addMember("", false)
	b := f.addMember("", false)

	resp, appErr := f.svc.SuggestSlots(context.Background(), f.actorID, f.spaceID, suggestRequest(a, b))

	require.Nil(t, appErr)
	assert.Len(t, resp.DisconnectedUserIDs, 2)
	assert.Len(t, resp.Slots, 17)
	assert.Empty(t, f.source.queried)
}

func TestSuggestSlots_PartialFailureIsolated(t *testing.T) {
	f := newSuggestFixture()
	healthy := f.addMember("alice@example.com", true)
	broken := f.addMember("bob@example.com", true)
	f.source.failEmails["bob@example.com"] = true
	f.source.busyByEmail["alice@example.com"] = []dto.BusyPeriod{{
		Start: localRFC3339("2024-06-03", 9, 0),
		End:   localRFC3339("2024-06-03", 17, 0),
	}}

	resp, appErr := f.svc.SuggestSlots(context.Background(), f.actorID, f.spaceID, suggestRequest(healthy, broken))

	require.Nil(t, appErr)
	assert.Equal(t, []string{broken.String()}, resp.FailedUserIDs)
	// The healthy calendar still constrains the result.
	assert.Equal(t, []string{"17:00"}, slotStarts(resp.Slots))
}

func TestSuggestSlots_AllFailuresFailClosed(t *testing.T) {
	f := newSuggestFixture()
	a := f.addMember("alice@example.com", true)
	b := f.addMember("bob@example.com", true)
	f.source.failEmails["alice@example.com"] = true
	f.source.failEmails["bob@example.com"] = true

	resp, appErr := f.svc.SuggestSlots(context.Background(), f.actorID, f.spaceID, suggestRequest(a, b))

	// No calendar could be read; pretending everyone is free would be
	// worse than returning nothing.
	require.Nil(t, appErr)
	assert.Empty(t, resp.Slots)
	assert.Len(t, resp.FailedUserIDs, 2)
	assert.Len(t, resp.ConnectedUserIDs, 2)
}

func TestSuggestSlots_Validation(t *testing.T) {
	f := newSuggestFixture()
	member := f.addMember("alice@example.com", true)

	t.Run("no user ids", func(t *testing.T) {
		req := suggestRequest()
		_, appErr := f.svc.SuggestSlots(context.Background(), f.actorID, f.spaceID, req)
		require.NotNil(t, appErr)
		assert.Equal(t, errors.ErrInvalidInput, appErr.Code)
	})

	t.Run("too many user ids", func(t *testing.T) {
		ids := make([]uuid.UUID, 11)
		for i := range ids {
			ids[i] = uuid.New()
		}
		req := suggestRequest(ids...)
		_, appErr := f.svc.SuggestSlots(context.Background(), f.actorID, f.spaceID, req)
		require.NotNil(t, appErr)
		assert.Equal(t, errors.ErrInvalidInput, appErr.Code)
	})

	t.Run("malformed user id", func(t *testing.T) {
		req := suggestRequest(member)
		req.UserIDs = append(req.UserIDs, "not-a-uuid")
		_, appErr := f.svc.SuggestSlots(context.Background(), f.actorID, f.spaceID, req)
		require.NotNil(t, appErr)
		assert.Equal(t, errors.ErrInvalidInput, appErr.Code)
	})

	t.Run("bad dates", func(t *testing.T) {
		req := suggestRequest(member)
		req.StartDate = "03/06/2024"
		_, appErr := f.svc.SuggestSlots(context.Background(), f.actorID, f.spaceID, req)
		require.NotNil(t, appErr)
		assert.Equal(t, errors.ErrInvalidInput, appErr.Code)
	})

	t.Run("inverted range", func(t *testing.T) {
		req := suggestRequest(member)
		req.StartDate, req.EndDate = "2024-06-04", "2024-06-03"
		_, appErr := f.svc.SuggestSlots(context.Background(), f.actorID, f.spaceID, req)
		require.NotNil(t, appErr)
		assert.Equal(t, errors.ErrInvalidInput, appErr.Code)
	})

	t.Run("denied by gate", func(t *testing.T) {
		denied := newSuggestFixture()
		denied.gate.deny = true
		m := denied.addMember("alice@example.com", true)
		_, appErr := denied.svc.SuggestSlots(context.Background(), denied.actorID, denied.spaceID, suggestRequest(m))
		require.NotNil(t, appErr)
		assert.Equal(t, errors.ErrForbidden, appErr.Code)
	})
}

func TestSaveConnection_UnsupportedProvider(t *testing.T) {
	f := newSuggestFixture()

	_, appErr := f.svc.SaveConnection(context.Background(), uuid.New(), &dto.SaveConnectionRequest{Provider: "outlook"})

	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrInvalidInput, appErr.Code)
}

func TestDisconnect(t *testing.T) {
	f := newSuggestFixture()

	appErr := f.svc.Disconnect(context.Background(), uuid.New(), entity.ProviderGoogle)

	require.Nil(t, appErr)
	assert.Equal(t, []string{entity.ProviderGoogle}, f.repo.deactivated)
}
