package dto

import (
	"time"

	"meetsync/modules/proposal/entity"
)

// SlotInput is one candidate time range for a new proposal
type SlotInput struct {
	StartAt time.Time `json:"start_at" validate:"required"`
	EndAt   time.Time `json:"end_at" validate:"required"`
}

// RespondentInput registers one user as a respondent
type RespondentInput struct {
	UserID     string `json:"user_id" validate:"required"`
	Side       string `json:"side" validate:"required,oneof=client internal"`
	IsRequired bool   `json:"is_required"`
}

// CreateProposalRequest creates a proposal with its slots and respondents
type CreateProposalRequest struct {
	Title           string            `json:"title" validate:"required"`
	Description     *string           `json:"description,omitempty"`
	DurationMinutes int               `json:"duration_minutes" validate:"required"`
	ExpiresAt       *time.Time        `json:"expires_at,omitempty"`
	VideoProvider   *string           `json:"video_provider,omitempty"`
	Slots           []SlotInput       `json:"slots" validate:"required"`
	Respondents     []RespondentInput `json:"respondents" validate:"required"`
}

// SlotResponseInput is one answer for one slot
type SlotResponseInput struct {
	SlotID   string `json:"slot_id" validate:"required"`
	Response string `json:"response" validate:"required"`
}

// SubmitResponsesRequest submits a batch of availability answers
type SubmitResponsesRequest struct {
	Responses []SlotResponseInput `json:"responses" validate:"required"`
}

// SubmitResponsesResponse reports how many answers were written
type SubmitResponsesResponse struct {
	UpdatedCount int `json:"updated_count"`
}

// ConfirmSlotRequest selects the slot to confirm
type ConfirmSlotRequest struct {
	SlotID string `json:"slot_id" validate:"required"`
}

// ConfirmSlotResponse reports the outcome of a confirmation. Warning is set
// when the proposal was confirmed but meeting provisioning failed.
type ConfirmSlotResponse struct {
	MeetingID  string    `json:"meeting_id"`
	SlotStart  time.Time `json:"slot_start"`
	SlotEnd    time.Time `json:"slot_end"`
	MeetingURL *string   `json:"meeting_url,omitempty"`
	ICSURL     *string   `json:"ics_url,omitempty"`
	Warning    *string   `json:"warning,omitempty"`
}

// ExtendProposalRequest moves the expiry deadline forward
type ExtendProposalRequest struct {
	ExpiresAt time.Time `json:"expires_at" validate:"required"`
}

// SendRemindersResponse reports who was nudged
type SendRemindersResponse struct {
	SentCount          int      `json:"sent_count"`
	UnrespondedUserIDs []string `json:"unresponded_user_ids"`
}

// SlotAggregate summarizes the answers collected for one slot
type SlotAggregate struct {
	Available     int  `json:"available"`
	Proceed       int  `json:"proceed"`
	Unavailable   int  `json:"unavailable"`
	Pending       int  `json:"pending"`
	IsConfirmable bool `json:"is_confirmable"`
}

// SlotView is one slot with its aggregate in the read model
type SlotView struct {
	ID        string        `json:"id"`
	StartAt   time.Time     `json:"start_at"`
	EndAt     time.Time     `json:"end_at"`
	SlotOrder int           `json:"slot_order"`
	Aggregate SlotAggregate `json:"aggregate"`
}

// RespondentView is one respondent with their per-slot answers keyed by
// slot ID. Slots without an answer are absent from the map.
type RespondentView struct {
	UserID     string            `json:"user_id"`
	Side       string            `json:"side"`
	IsRequired bool              `json:"is_required"`
	Responses  map[string]string `json:"responses"`
}

// ProposalResponse is the proposal header returned by writes and listings
type ProposalResponse struct {
	ID              string     `json:"id"`
	SpaceID         string     `json:"space_id"`
	Title           string     `json:"title"`
	Description     *string    `json:"description,omitempty"`
	DurationMinutes int        `json:"duration_minutes"`
	Status          string     `json:"status"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	VideoProvider   *string    `json:"video_provider,omitempty"`
	ConfirmedSlotID *string    `json:"confirmed_slot_id,omitempty"`
	MeetingURL      *string    `json:"meeting_url,omitempty"`
	ICSURL          *string    `json:"ics_url,omitempty"`
	CreatedBy       string     `json:"created_by"`
	CreatedAt       time.Time  `json:"created_at"`
}

// ProposalDetailResponse is the full read model for one proposal
type ProposalDetailResponse struct {
	Proposal    ProposalResponse `json:"proposal"`
	Slots       []SlotView       `json:"slots"`
	Respondents []RespondentView `json:"respondents"`
}

func ToProposalResponse(p *entity.Proposal) *ProposalResponse {
	resp := &ProposalResponse{
		ID:              p.ID.String(),
		SpaceID:         p.SpaceID.String(),
		Title:           p.Title,
		Description:     p.Description,
		DurationMinutes: p.DurationMinutes,
		Status:          string(p.Status),
		ExpiresAt:       p.ExpiresAt,
		VideoProvider:   p.VideoProvider,
		MeetingURL:      p.MeetingURL,
		ICSURL:          p.ICSURL,
		CreatedBy:       p.CreatedBy.String(),
		CreatedAt:       p.CreatedAt,
	}
	if p.ConfirmedSlotID != nil {
		id := p.ConfirmedSlotID.String()
		resp.ConfirmedSlotID = &id
	}
	return resp
}
