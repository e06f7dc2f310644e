package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"meetsync/core/constants"
	"meetsync/core/errors"
	"meetsync/core/logger"
	"meetsync/core/storage"
	"meetsync/modules/proposal/dto"
	"meetsync/modules/proposal/entity"
	"meetsync/modules/proposal/repository"
	spacedto "meetsync/modules/space/dto"
	"meetsync/modules/video"

	"github.com/google/uuid"
)

// SpaceGate is the slice of the space service the proposal flow depends on
type SpaceGate interface {
	CheckAuthorization(ctx context.Context, userID, spaceID uuid.UUID, action string) (*spacedto.AuthDecision, *errors.AppError)
	ResolveOrg(ctx context.Context, spaceID uuid.UUID) (uuid.UUID, *errors.AppError)
	GetUserEmails(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]string, *errors.AppError)
}

// Notifier is the slice of the notification service the proposal flow
// depends on. NotifyDeduped reports whether a notification was actually
// written; a duplicate dedupe key writes nothing.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, title, message, notifType string, data map[string]any) error
	NotifyDeduped(ctx context.Context, userID uuid.UUID, title, message, notifType string, data map[string]any, dedupeKey string) (bool, error)
}

type ProposalService interface {
	ListProposals(ctx context.Context, userID, spaceID uuid.UUID, status *string, limit int) ([]dto.ProposalResponse, *errors.AppError)
	CreateProposal(ctx context.Context, userID, spaceID uuid.UUID, req *dto.CreateProposalRequest) (*dto.ProposalResponse, *errors.AppError)
	GetResponses(ctx context.Context, userID, spaceID, proposalID uuid.UUID) (*dto.ProposalDetailResponse, *errors.AppError)
	SubmitResponses(ctx context.Context, userID, spaceID, proposalID uuid.UUID, req *dto.SubmitResponsesRequest) (*dto.SubmitResponsesResponse, *errors.AppError)
	ConfirmSlot(ctx context.Context, userID, spaceID, proposalID uuid.UUID, req *dto.ConfirmSlotRequest) (*dto.ConfirmSlotResponse, *errors.AppError)
	CancelProposal(ctx context.Context, userID, spaceID, proposalID uuid.UUID) (*dto.ProposalResponse, *errors.AppError)
	ExtendProposal(ctx context.Context, userID, spaceID, proposalID uuid.UUID, req *dto.ExtendProposalRequest) (*dto.ProposalResponse, *errors.AppError)
	SendReminders(ctx context.Context, userID, spaceID, proposalID uuid.UUID) (*dto.SendRemindersResponse, *errors.AppError)
}

type proposalService struct {
	repo     repository.ProposalRepositoryInterface
	spaces   SpaceGate
	notifier Notifier
	videos   *video.Registry
	storage  storage.ObjectStorage
	now      func() time.Time
}

func NewProposalService(repo repository.ProposalRepositoryInterface, spaces SpaceGate, notifier Notifier, videos *video.Registry, store storage.ObjectStorage) ProposalService {
	return &proposalService{
		repo:     repo,
		spaces:   spaces,
		notifier: notifier,
		videos:   videos,
		storage:  store,
		now:      time.Now,
	}
}

// authorize runs the space gate and converts a denial into a forbidden error
func (s *proposalService) authorize(ctx context.Context, userID, spaceID uuid.UUID, action string) *errors.AppError {
	decision, appErr := s.spaces.CheckAuthorization(ctx, userID, spaceID, action)
	if appErr != nil {
		return appErr
	}
	if !decision.Allowed {
		return errors.NewAppError(errors.ErrForbidden, decision.Reason, nil)
	}
	return nil
}

func (s *proposalService) ListProposals(ctx context.Context, userID, spaceID uuid.UUID, status *string, limit int) ([]dto.ProposalResponse, *errors.AppError) {
	if appErr := s.authorize(ctx, userID, spaceID, spacedto.ActionProposalRead); appErr != nil {
		return nil, appErr
	}

	var statusFilter *entity.ProposalStatus
	if status != nil && *status != "" {
		st := entity.ProposalStatus(*status)
		switch st {
		case entity.ProposalStatusOpen, entity.ProposalStatusConfirmed, entity.ProposalStatusCancelled, entity.ProposalStatusExpired:
			statusFilter = &st
		default:
			return nil, errors.NewAppError(errors.ErrInvalidInput, fmt.Sprintf("Unknown status filter: %s", *status), nil)
		}
	}

	if limit <= 0 || limit > constants.ProposalListLimitMax {
		limit = constants.ProposalListLimitMax
	}

	proposals, err := s.repo.ListBySpace(ctx, spaceID, statusFilter, limit)
	if err != nil {
		logger.Error("ProposalService:ListProposals:Repository:Error:", err)
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to list proposals", err)
	}

	responses := make([]dto.ProposalResponse, 0, len(proposals))
	for i := range proposals {
		responses = append(responses, *dto.ToProposalResponse(&proposals[i]))
	}
	return responses, nil
}

// CreateProposal validates the whole aggregate before writing anything, then
// inserts proposal, slots and respondents in one transaction.
func (s *proposalService) CreateProposal(ctx context.Context, userID, spaceID uuid.UUID, req *dto.CreateProposalRequest) (*dto.ProposalResponse, *errors.AppError) {
	logger.Info("ProposalService:CreateProposal:Start", "user_id", userID, "space_id", spaceID)

	if appErr := s.authorize(ctx, userID, spaceID, spacedto.ActionProposalCreate); appErr != nil {
		return nil, appErr
	}

	now := s.now()

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "Title is required", nil)
	}
	if req.DurationMinutes < constants.ProposalMinDuration || req.DurationMinutes > constants.ProposalMaxDuration {
		return nil, errors.NewAppError(errors.ErrInvalidInput,
			fmt.Sprintf("Duration must be between %d and %d minutes", constants.ProposalMinDuration, constants.ProposalMaxDuration), nil)
	}
	if len(req.Slots) < constants.ProposalMinSlots || len(req.Slots) > constants.ProposalMaxSlots {
		return nil, errors.NewAppError(errors.ErrInvalidInput,
			fmt.Sprintf("A proposal needs between %d and %d candidate slots", constants.ProposalMinSlots, constants.ProposalMaxSlots), nil)
	}
	for i, slot := range req.Slots {
		if !slot.EndAt.After(slot.StartAt) {
			return nil, errors.NewAppError(errors.ErrInvalidInput,
				fmt.Sprintf("Slot %d must end after it starts", i), nil)
		}
	}
	if req.ExpiresAt != nil && !req.ExpiresAt.After(now) {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "Expiry must be in the future", nil)
	}
	if req.VideoProvider != nil && *req.VideoProvider != "" && !s.videos.Has(*req.VideoProvider) {
		return nil, errors.NewAppError(errors.ErrInvalidInput,
			fmt.Sprintf("Video provider %q is not configured", *req.VideoProvider), nil)
	}

	if len(req.Respondents) == 0 {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "At least one respondent is required", nil)
	}
	respondents := make([]entity.Respondent, 0, len(req.Respondents))
	seen := make(map[uuid.UUID]bool, len(req.Respondents))
	hasClient := false
	for i, r := range req.Respondents {
		respondentID, err := uuid.Parse(r.UserID)
		if err != nil {
			return nil, errors.NewAppError(errors.ErrInvalidInput,
				fmt.Sprintf("Respondent %d has an invalid user ID", i), err)
		}
		side := entity.RespondentSide(r.Side)
		if side != entity.SideClient && side != entity.SideInternal {
			return nil, errors.NewAppError(errors.ErrInvalidInput,
				fmt.Sprintf("Respondent %d has an unknown side: %s", i, r.Side), nil)
		}
		if seen[respondentID] {
			return nil, errors.NewAppError(errors.ErrInvalidInput,
				fmt.Sprintf("Duplicate respondent: %s", r.UserID), nil)
		}
		seen[respondentID] = true
		if side == entity.SideClient {
			hasClient = true
		}
		respondents = append(respondents, entity.Respondent{
			UserID:     respondentID,
			Side:       side,
			IsRequired: r.IsRequired,
		})
	}
	if !hasClient {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "At least one client-side respondent is required", nil)
	}

	orgID, appErr := s.spaces.ResolveOrg(ctx, spaceID)
	if appErr != nil {
		return nil, appErr
	}

	proposal := &entity.Proposal{
		OrgID:           orgID,
		SpaceID:         spaceID,
		Title:           title,
		Description:     req.Description,
		DurationMinutes: req.DurationMinutes,
		Status:          entity.ProposalStatusOpen,
		ExpiresAt:       req.ExpiresAt,
		CreatedBy:       userID,
	}
	if req.VideoProvider != nil && *req.VideoProvider != "" {
		proposal.VideoProvider = req.VideoProvider
	}

	slots := make([]entity.ProposalSlot, 0, len(req.Slots))
	for i, slot := range req.Slots {
		slots = append(slots, entity.ProposalSlot{
			StartAt:   slot.StartAt.UTC(),
			EndAt:     slot.EndAt.UTC(),
			SlotOrder: i,
		})
	}

	created, err := s.repo.CreateProposal(ctx, proposal, slots, respondents)
	if err != nil {
		logger.Error("ProposalService:CreateProposal:Repository:Error:", err)
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to create proposal", err)
	}

	logger.Info("ProposalService:CreateProposal:Success", "proposal_id", created.ID)
	return dto.ToProposalResponse(created), nil
}

// loadProposal fetches a proposal scoped to the space, mapping absence to a
// not-found error.
func (s *proposalService) loadProposal(ctx context.Context, spaceID, proposalID uuid.UUID) (*entity.Proposal, *errors.AppError) {
	proposal, err := s.repo.GetProposalBySpace(ctx, spaceID, proposalID)
	if err != nil {
		logger.Error("ProposalService:LoadProposal:Repository:Error:", err)
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to load proposal", err)
	}
	if proposal == nil {
		return nil, errors.NewAppError(errors.ErrNotFound, "Proposal not found", nil)
	}
	return proposal, nil
}

// respondableOrConflict rejects a proposal that can no longer accept
// responses, surfacing the effective status so clients can reload. A
// proposal past its expiry reads as expired even before the sweep runs.
func respondableOrConflict(proposal *entity.Proposal, now time.Time) *errors.AppError {
	if proposal.Status != entity.ProposalStatusOpen {
		return errors.NewAppErrorWithDetails(errors.ErrStateConflict,
			fmt.Sprintf("Proposal is %s", proposal.Status),
			map[string]any{"status": string(proposal.Status)}, nil)
	}
	if proposal.ExpiresAt != nil && proposal.ExpiresAt.Before(now) {
		return errors.NewAppErrorWithDetails(errors.ErrStateConflict,
			"Proposal is expired",
			map[string]any{"status": string(entity.ProposalStatusExpired)}, nil)
	}
	return nil
}

// SubmitResponses records a batch of availability answers for the acting
// respondent. Re-answering a slot overwrites the earlier answer.
func (s *proposalService) SubmitResponses(ctx context.Context, userID, spaceID, proposalID uuid.UUID, req *dto.SubmitResponsesRequest) (*dto.SubmitResponsesResponse, *errors.AppError) {
	logger.Info("ProposalService:SubmitResponses:Start", "user_id", userID, "proposal_id", proposalID)

	if appErr := s.authorize(ctx, userID, spaceID, spacedto.ActionProposalRespond); appErr != nil {
		return nil, appErr
	}

	proposal, appErr := s.loadProposal(ctx, spaceID, proposalID)
	if appErr != nil {
		return nil, appErr
	}
	if appErr := respondableOrConflict(proposal, s.now()); appErr != nil {
		return nil, appErr
	}

	respondent, err := s.repo.GetRespondentByUser(ctx, proposalID, userID)
	if err != nil {
		logger.Error("ProposalService:SubmitResponses:GetRespondentByUser:Error:", err)
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to load respondent", err)
	}
	if respondent == nil {
		return nil, errors.NewAppError(errors.ErrForbidden, "User is not a respondent of this proposal", nil)
	}

	if len(req.Responses) == 0 {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "At least one response is required", nil)
	}

	slots, err := s.repo.GetSlots(ctx, proposalID)
	if err != nil {
		logger.Error("ProposalService:SubmitResponses:GetSlots:Error:", err)
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to load slots", err)
	}
	validSlots := make(map[uuid.UUID]bool, len(slots))
	for _, slot := range slots {
		validSlots[slot.ID] = true
	}

	now := s.now()
	rows := make([]entity.SlotResponse, 0, len(req.Responses))
	for i, r := range req.Responses {
		slotID, err := uuid.Parse(r.SlotID)
		if err != nil {
			return nil, errors.NewAppError(errors.ErrInvalidInput,
				fmt.Sprintf("Response %d has an invalid slot ID", i), err)
		}
		if !validSlots[slotID] {
			return nil, errors.NewAppError(errors.ErrInvalidInput,
				fmt.Sprintf("Slot %s does not belong to this proposal", r.SlotID), nil)
		}
		response := entity.ResponseType(r.Response)
		if !response.IsValid() {
			return nil, errors.NewAppError(errors.ErrInvalidInput,
				fmt.Sprintf("Unknown response value: %s", r.Response), nil)
		}
		rows = append(rows, entity.SlotResponse{
			SlotID:       slotID,
			RespondentID: respondent.ID,
			Response:     response,
			RespondedAt:  now,
		})
	}

	count, err := s.repo.UpsertResponses(ctx, rows)
	if err != nil {
		logger.Error("ProposalService:SubmitResponses:Upsert:Error:", err)
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to record responses", err)
	}

	logger.Info("ProposalService:SubmitResponses:Success", "proposal_id", proposalID, "updated", count)
	return &dto.SubmitResponsesResponse{UpdatedCount: count}, nil
}

// responseIndex keys answers by slot then respondent
type responseIndex map[uuid.UUID]map[uuid.UUID]entity.ResponseType

func indexResponses(responses []entity.SlotResponse) responseIndex {
	idx := make(responseIndex)
	for _, r := range responses {
		bySlot, ok := idx[r.SlotID]
		if !ok {
			bySlot = make(map[uuid.UUID]entity.ResponseType)
			idx[r.SlotID] = bySlot
		}
		bySlot[r.RespondentID] = r.Response
	}
	return idx
}

// isSlotConfirmable applies the consensus rule: every required respondent
// must have answered the slot with a value that lets it proceed. A missing
// answer is pending and blocks. Non-required respondents never block.
func isSlotConfirmable(slotID uuid.UUID, respondents []entity.Respondent, idx responseIndex) bool {
	for _, r := range respondents {
		if !r.IsRequired {
			continue
		}
		response, ok := idx[slotID][r.ID]
		if !ok || !response.ClearsSlot() {
			return false
		}
	}
	return true
}

func (s *proposalService) GetResponses(ctx context.Context, userID, spaceID, proposalID uuid.UUID) (*dto.ProposalDetailResponse, *errors.AppError) {
	if appErr := s.authorize(ctx, userID, spaceID, spacedto.ActionProposalRead); appErr != nil {
		return nil, appErr
	}

	proposal, appErr := s.loadProposal(ctx, spaceID, proposalID)
	if appErr != nil {
		return nil, appErr
	}

	slots, err := s.repo.GetSlots(ctx, proposalID)
	if err != nil {
		logger.Error("ProposalService:GetResponses:GetSlots:Error:", err)
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to load slots", err)
	}
	respondents, err := s.repo.GetRespondents(ctx, proposalID)
	if err != nil {
		logger.Error("ProposalService:GetResponses:GetRespondents:Error:", err)
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to load respondents", err)
	}
	responses, err := s.repo.GetResponses(ctx, proposalID)
	if err != nil {
		logger.Error("ProposalService:GetResponses:GetResponses:Error:", err)
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to load responses", err)
	}

	idx := indexResponses(responses)

	slotViews := make([]dto.SlotView, 0, len(slots))
	for _, slot := range slots {
		agg := dto.SlotAggregate{}
		for _, r := range respondents {
			response, ok := idx[slot.ID][r.ID]
			if !ok {
				agg.Pending++
				continue
			}
			switch response {
			case entity.ResponseAvailable:
				agg.Available++
			case entity.ResponseUnavailableButOK:
				agg.Proceed++
			case entity.ResponseUnavailable:
				agg.Unavailable++
			}
		}
		agg.IsConfirmable = isSlotConfirmable(slot.ID, respondents, idx)
		slotViews = append(slotViews, dto.SlotView{
			ID:        slot.ID.String(),
			StartAt:   slot.StartAt,
			EndAt:     slot.EndAt,
			SlotOrder: slot.SlotOrder,
			Aggregate: agg,
		})
	}

	respondentViews := make([]dto.RespondentView, 0, len(respondents))
	for _, r := range respondents {
		answers := make(map[string]string)
		for slotID, bySlot := range idx {
			if response, ok := bySlot[r.ID]; ok {
				answers[slotID.String()] = string(response)
			}
		}
		respondentViews = append(respondentViews, dto.RespondentView{
			UserID:     r.UserID.String(),
			Side:       string(r.Side),
			IsRequired: r.IsRequired,
			Responses:  answers,
		})
	}

	return &dto.ProposalDetailResponse{
		Proposal:    *dto.ToProposalResponse(proposal),
		Slots:       slotViews,
		Respondents: respondentViews,
	}, nil
}

// ConfirmSlot atomically moves an open proposal to confirmed on the chosen
// slot, then provisions the meeting. The status transition is the commit
// point: provider or artifact failures afterwards are reported as warnings
// and never undo the confirmation.
func (s *proposalService) ConfirmSlot(ctx context.Context, userID, spaceID, proposalID uuid.UUID, req *dto.ConfirmSlotRequest) (*dto.ConfirmSlotResponse, *errors.AppError) {
	logger.Info("ProposalService:ConfirmSlot:Start", "user_id", userID, "proposal_id", proposalID)

	if appErr := s.authorize(ctx, userID, spaceID, spacedto.ActionProposalConfirm); appErr != nil {
		return nil, appErr
	}

	proposal, appErr := s.loadProposal(ctx, spaceID, proposalID)
	if appErr != nil {
		return nil, appErr
	}
	if proposal.Status != entity.ProposalStatusOpen {
		return nil, errors.NewAppErrorWithDetails(errors.ErrStateConflict,
			fmt.Sprintf("Proposal is %s", proposal.Status),
			map[string]any{"status": string(proposal.Status)}, nil)
	}

	slotID, err := uuid.Parse(req.SlotID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "Invalid slot ID", err)
	}
	slot, err := s.repo.GetSlot(ctx, proposalID, slotID)
	if err != nil {
		logger.Error("ProposalService:ConfirmSlot:GetSlot:Error:", err)
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to load slot", err)
	}
	if slot == nil {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "Slot does not belong to this proposal", nil)
	}

	respondents, err := s.repo.GetRespondents(ctx, proposalID)
	if err != nil {
		logger.Error("ProposalService:ConfirmSlot:GetRespondents:Error:", err)
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to load respondents", err)
	}
	responses, err := s.repo.GetResponses(ctx, proposalID)
	if err != nil {
		logger.Error("ProposalService:ConfirmSlot:GetResponses:Error:", err)
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to load responses", err)
	}
	if !isSlotConfirmable(slotID, respondents, indexResponses(responses)) {
		return nil, errors.NewAppError(errors.ErrStateConflict,
			"Slot is not confirmable: required respondents have not all cleared it", nil)
	}

	rows, err := s.repo.ConfirmProposal(ctx, proposalID, slotID, userID)
	if err != nil {
		logger.Error("ProposalService:ConfirmSlot:Confirm:Error:", err)
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to confirm proposal", err)
	}
	if rows == 0 {
		// Lost the race: someone else decided this proposal first.
		current, _ := s.repo.GetProposalBySpace(ctx, spaceID, proposalID)
		details := map[string]any{}
		if current != nil {
			details["status"] = string(current.Status)
		}
		return nil, errors.NewAppErrorWithDetails(errors.ErrStateConflict,
			"Proposal was already decided", details, nil)
	}

	logger.Info("ProposalService:ConfirmSlot:Confirmed", "proposal_id", proposalID, "slot_id", slotID)

	// MeetingID falls back to the proposal ID; successful provisioning
	// replaces it with the provider's meeting identifier.
	result := &dto.ConfirmSlotResponse{
		MeetingID: proposalID.String(),
		SlotStart: slot.StartAt,
		SlotEnd:   slot.EndAt,
	}

	userIDs := make([]uuid.UUID, 0, len(respondents))
	for _, r := range respondents {
		userIDs = append(userIDs, r.UserID)
	}
	emails := map[uuid.UUID]string{}
	if resolved, appErr := s.spaces.GetUserEmails(ctx, userIDs); appErr == nil {
		emails = resolved
	} else {
		logger.Warn("ProposalService:ConfirmSlot:GetUserEmails:Failed", "proposal_id", proposalID, "error", appErr)
	}

	if proposal.VideoProvider != nil {
		s.provisionMeeting(ctx, proposal, slot, emails, result)
	}
	s.attachInvite(ctx, proposal, slot, result)
	s.notifyConfirmed(ctx, proposal, slot, respondents, result.MeetingURL)

	return result, nil
}

// provisionMeeting calls the configured video provider with a bounded
// timeout. The idempotency key is stable across retries of the same
// (proposal, slot) pair so the vendor can collapse duplicates.
func (s *proposalService) provisionMeeting(ctx context.Context, proposal *entity.Proposal, slot *entity.ProposalSlot, emails map[uuid.UUID]string, result *dto.ConfirmSlotResponse) {
	provider, err := s.videos.Resolve(*proposal.VideoProvider)
	if err != nil {
		logger.Warn("ProposalService:ProvisionMeeting:Resolve:Failed", "proposal_id", proposal.ID, "provider", *proposal.VideoProvider)
		warning := fmt.Sprintf("Meeting link could not be created: %v", err)
		result.Warning = &warning
		return
	}

	participants := make([]string, 0, len(emails))
	for _, email := range emails {
		participants = append(participants, email)
	}

	digest := sha256.Sum256([]byte(proposal.ID.String() + ":" + slot.ID.String()))

	callCtx, cancel := context.WithTimeout(ctx, constants.VideoProviderTimeout)
	defer cancel()

	meeting, err := provider.CreateMeeting(callCtx, video.CreateMeetingParams{
		Title:          proposal.Title,
		StartAt:        slot.StartAt,
		EndAt:          slot.EndAt,
		Participants:   participants,
		IdempotencyKey: hex.EncodeToString(digest[:]),
	})
	if err != nil {
		logger.Warn("ProposalService:ProvisionMeeting:CreateMeeting:Failed",
			"proposal_id", proposal.ID, "provider", provider.Name(), "error", err)
		warning := "Proposal confirmed but the meeting link could not be created"
		result.Warning = &warning
		return
	}

	if err := s.repo.SetMeetingDetails(ctx, proposal.ID, meeting.MeetingURL, meeting.ExternalMeetingID); err != nil {
		logger.Error("ProposalService:ProvisionMeeting:SetMeetingDetails:Error:", err)
	}
	result.MeetingURL = &meeting.MeetingURL
	if meeting.ExternalMeetingID != "" {
		result.MeetingID = meeting.ExternalMeetingID
	}
}

// attachInvite builds the .ics artifact and uploads it. Best effort; a
// failure is logged and the confirmation stands without an invite file.
func (s *proposalService) attachInvite(ctx context.Context, proposal *entity.Proposal, slot *entity.ProposalSlot, result *dto.ConfirmSlotResponse) {
	if s.storage == nil {
		return
	}

	meetingURL := ""
	if result.MeetingURL != nil {
		meetingURL = *result.MeetingURL
	}
	data, err := buildInviteICS(proposal, slot, meetingURL)
	if err != nil {
		logger.Warn("ProposalService:AttachInvite:Build:Failed", "proposal_id", proposal.ID, "error", err)
		return
	}

	key := fmt.Sprintf("proposals/%s/invite.ics", proposal.ID)
	url, err := s.storage.Upload(ctx, key, "text/calendar", data)
	if err != nil {
		logger.Warn("ProposalService:AttachInvite:Upload:Failed", "proposal_id", proposal.ID, "error", err)
		return
	}
	if err := s.repo.SetICSURL(ctx, proposal.ID, url); err != nil {
		logger.Error("ProposalService:AttachInvite:SetICSURL:Error:", err)
		return
	}
	result.ICSURL = &url
}

func (s *proposalService) notifyConfirmed(ctx context.Context, proposal *entity.Proposal, slot *entity.ProposalSlot, respondents []entity.Respondent, meetingURL *string) {
	data := map[string]any{
		"proposal_id": proposal.ID.String(),
		"slot_start":  slot.StartAt,
		"slot_end":    slot.EndAt,
	}
	if meetingURL != nil {
		data["meeting_url"] = *meetingURL
	}
	message := fmt.Sprintf("%q has been confirmed for %s", proposal.Title, slot.StartAt.Format(time.RFC3339))
	for _, r := range respondents {
		if err := s.notifier.Notify(ctx, r.UserID, "Meeting confirmed", message, constants.NotificationTypeConfirmed, data); err != nil {
			logger.Warn("ProposalService:NotifyConfirmed:Failed", "proposal_id", proposal.ID, "user_id", r.UserID, "error", err)
		}
	}
}

// CancelProposal moves an open proposal to cancelled. Confirmed proposals
// are terminal and cannot be cancelled through this path.
func (s *proposalService) CancelProposal(ctx context.Context, userID, spaceID, proposalID uuid.UUID) (*dto.ProposalResponse, *errors.AppError) {
	logger.Info("ProposalService:CancelProposal:Start", "user_id", userID, "proposal_id", proposalID)

	if appErr := s.authorize(ctx, userID, spaceID, spacedto.ActionProposalCancel); appErr != nil {
		return nil, appErr
	}

	proposal, appErr := s.loadProposal(ctx, spaceID, proposalID)
	if appErr != nil {
		return nil, appErr
	}

	rows, err := s.repo.CancelProposal(ctx, proposalID)
	if err != nil {
		logger.Error("ProposalService:CancelProposal:Repository:Error:", err)
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to cancel proposal", err)
	}
	if rows == 0 {
		current, _ := s.repo.GetProposalBySpace(ctx, spaceID, proposalID)
		details := map[string]any{}
		if current != nil {
			details["status"] = string(current.Status)
		}
		return nil, errors.NewAppErrorWithDetails(errors.ErrStateConflict,
			"Proposal is no longer open", details, nil)
	}

	if respondents, err := s.repo.GetRespondents(ctx, proposalID); err == nil {
		message := fmt.Sprintf("%q has been cancelled", proposal.Title)
		data := map[string]any{"proposal_id": proposal.ID.String()}
		for _, r := range respondents {
			if err := s.notifier.Notify(ctx, r.UserID, "Meeting proposal cancelled", message, constants.NotificationTypeCancelled, data); err != nil {
				logger.Warn("ProposalService:CancelProposal:Notify:Failed", "proposal_id", proposalID, "user_id", r.UserID, "error", err)
			}
		}
	}

	updated, appErr := s.loadProposal(ctx, spaceID, proposalID)
	if appErr != nil {
		return nil, appErr
	}
	return dto.ToProposalResponse(updated), nil
}

// ExtendProposal moves the expiry deadline of an open proposal
func (s *proposalService) ExtendProposal(ctx context.Context, userID, spaceID, proposalID uuid.UUID, req *dto.ExtendProposalRequest) (*dto.ProposalResponse, *errors.AppError) {
	logger.Info("ProposalService:ExtendProposal:Start", "user_id", userID, "proposal_id", proposalID)

	if appErr := s.authorize(ctx, userID, spaceID, spacedto.ActionProposalExtend); appErr != nil {
		return nil, appErr
	}

	if !req.ExpiresAt.After(s.now()) {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "New expiry must be in the future", nil)
	}

	if _, appErr := s.loadProposal(ctx, spaceID, proposalID); appErr != nil {
		return nil, appErr
	}

	rows, err := s.repo.ExtendProposal(ctx, proposalID, req.ExpiresAt.UTC())
	if err != nil {
		logger.Error("ProposalService:ExtendProposal:Repository:Error:", err)
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to extend proposal", err)
	}
	if rows == 0 {
		current, _ := s.repo.GetProposalBySpace(ctx, spaceID, proposalID)
		details := map[string]any{}
		if current != nil {
			details["status"] = string(current.Status)
		}
		return nil, errors.NewAppErrorWithDetails(errors.ErrStateConflict,
			"Proposal is no longer open", details, nil)
	}

	updated, appErr := s.loadProposal(ctx, spaceID, proposalID)
	if appErr != nil {
		return nil, appErr
	}
	return dto.ToProposalResponse(updated), nil
}

// SendReminders nudges every respondent who has not answered any slot yet.
// The notification write is the primary effect and is deduped per
// (proposal, reminder type, user); the audit log row is best effort.
func (s *proposalService) SendReminders(ctx context.Context, userID, spaceID, proposalID uuid.UUID) (*dto.SendRemindersResponse, *errors.AppError) {
	logger.Info("ProposalService:SendReminders:Start", "user_id", userID, "proposal_id", proposalID)

	if appErr := s.authorize(ctx, userID, spaceID, spacedto.ActionProposalRemind); appErr != nil {
		return nil, appErr
	}

	proposal, appErr := s.loadProposal(ctx, spaceID, proposalID)
	if appErr != nil {
		return nil, appErr
	}
	if appErr := respondableOrConflict(proposal, s.now()); appErr != nil {
		return nil, appErr
	}

	respondents, err := s.repo.GetRespondents(ctx, proposalID)
	if err != nil {
		logger.Error("ProposalService:SendReminders:GetRespondents:Error:", err)
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to load respondents", err)
	}
	responses, err := s.repo.GetResponses(ctx, proposalID)
	if err != nil {
		logger.Error("ProposalService:SendReminders:GetResponses:Error:", err)
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to load responses", err)
	}

	answered := make(map[uuid.UUID]bool)
	for _, r := range responses {
		answered[r.RespondentID] = true
	}

	result := &dto.SendRemindersResponse{UnrespondedUserIDs: []string{}}
	message := fmt.Sprintf("Please respond to the meeting proposal %q", proposal.Title)
	data := map[string]any{"proposal_id": proposal.ID.String()}

	for _, r := range respondents {
		if answered[r.ID] {
			continue
		}
		result.UnrespondedUserIDs = append(result.UnrespondedUserIDs, r.UserID.String())

		// The dedupe key makes repeat dispatch a delivery no-op; the count
		// still reflects the current unresponded set on every call. The
		// notification write is the primary effect: its failure fails the
		// operation, unlike the audit row below.
		dedupeKey := fmt.Sprintf("%s:%s:%s", proposal.ID, constants.ReminderTypeManual, r.UserID)
		if _, err := s.notifier.NotifyDeduped(ctx, r.UserID, "Availability reminder", message, constants.NotificationTypeReminder, data, dedupeKey); err != nil {
			logger.Error("ProposalService:SendReminders:Notify:Error:", err)
			return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to send reminder notification", err)
		}
		result.SentCount++

		if err := s.repo.InsertReminderLog(ctx, proposalID, constants.ReminderTypeManual, r.UserID); err != nil {
			logger.Warn("ProposalService:SendReminders:AuditLog:Failed", "proposal_id", proposalID, "user_id", r.UserID, "error", err)
		}
	}

	logger.Info("ProposalService:SendReminders:Success", "proposal_id", proposalID, "sent", result.SentCount)
	return result, nil
}
