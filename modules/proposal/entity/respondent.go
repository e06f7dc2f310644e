package entity

import (
	"time"

	"github.com/google/uuid"
)

// RespondentSide marks which side of the table a respondent sits on
type RespondentSide string

const (
	SideClient   RespondentSide = "client"
	SideInternal RespondentSide = "internal"
)

// ResponseType is a respondent's answer for a single slot. Absence of a
// response row means "pending", which is distinct from all three values.
type ResponseType string

const (
	ResponseAvailable         ResponseType = "available"
	ResponseUnavailableButOK  ResponseType = "unavailable_but_proceed"
	ResponseUnavailable       ResponseType = "unavailable"
)

// IsValid reports whether the value is one of the three known answers
func (r ResponseType) IsValid() bool {
	switch r {
	case ResponseAvailable, ResponseUnavailableButOK, ResponseUnavailable:
		return true
	}
	return false
}

// ClearsSlot reports whether this answer lets a slot proceed for a required
// respondent.
func (r ResponseType) ClearsSlot() bool {
	return r == ResponseAvailable || r == ResponseUnavailableButOK
}

// Respondent is a user invited to answer availability for a proposal's
// slots. Unique per (proposal_id, user_id).
type Respondent struct {
	ID         uuid.UUID      `db:"id" json:"id"`
	ProposalID uuid.UUID      `db:"proposal_id" json:"proposal_id"`
	UserID     uuid.UUID      `db:"user_id" json:"user_id"`
	Side       RespondentSide `db:"side" json:"side"`
	IsRequired bool           `db:"is_required" json:"is_required"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
}

// SlotResponse is one respondent's answer for one slot, keyed uniquely by
// (slot_id, respondent_id); re-responding overwrites.
type SlotResponse struct {
	SlotID       uuid.UUID    `db:"slot_id" json:"slot_id"`
	RespondentID uuid.UUID    `db:"respondent_id" json:"respondent_id"`
	Response     ResponseType `db:"response" json:"response"`
	RespondedAt  time.Time    `db:"responded_at" json:"responded_at"`
}
