package entity

import (
	"time"

	"meetsync/core/entity"

	"github.com/google/uuid"
)

// ProposalStatus is the lifecycle state of a meeting proposal.
// A proposal is born open and ends in exactly one terminal state.
type ProposalStatus string

const (
	ProposalStatusOpen      ProposalStatus = "open"
	ProposalStatusConfirmed ProposalStatus = "confirmed"
	ProposalStatusCancelled ProposalStatus = "cancelled"
	ProposalStatusExpired   ProposalStatus = "expired"
)

// IsTerminal reports whether the status admits no further transition
func (s ProposalStatus) IsTerminal() bool {
	return s == ProposalStatusConfirmed || s == ProposalStatusCancelled || s == ProposalStatusExpired
}

// Proposal is a schedulable meeting request carrying candidate slots
// awaiting consensus from its respondents.
type Proposal struct {
	entity.BaseEntity
	OrgID              uuid.UUID      `db:"org_id" json:"org_id"`
	SpaceID            uuid.UUID      `db:"space_id" json:"space_id"`
	Title              string         `db:"title" json:"title"`
	Description        *string        `db:"description" json:"description,omitempty"`
	DurationMinutes    int            `db:"duration_minutes" json:"duration_minutes"`
	Status             ProposalStatus `db:"status" json:"status"`
	ExpiresAt          *time.Time     `db:"expires_at" json:"expires_at,omitempty"`
	VideoProvider      *string        `db:"video_provider" json:"video_provider,omitempty"`
	ConfirmedSlotID    *uuid.UUID     `db:"confirmed_slot_id" json:"confirmed_slot_id,omitempty"`
	ConfirmedMeetingID *string        `db:"confirmed_meeting_id" json:"confirmed_meeting_id,omitempty"`
	MeetingURL         *string        `db:"meeting_url" json:"meeting_url,omitempty"`
	ICSURL             *string        `db:"ics_url" json:"ics_url,omitempty"`
	ConfirmedAt        *time.Time     `db:"confirmed_at" json:"confirmed_at,omitempty"`
	ConfirmedBy        *uuid.UUID     `db:"confirmed_by" json:"confirmed_by,omitempty"`
	CreatedBy          uuid.UUID      `db:"created_by" json:"created_by"`
}

// IsRespondable reports whether responses may still be submitted. Passive
// expiry counts: a proposal past its expires_at is not respondable even
// before the sweep flips its status row.
func (p *Proposal) IsRespondable(now time.Time) bool {
	if p.Status != ProposalStatusOpen {
		return false
	}
	if p.ExpiresAt != nil && p.ExpiresAt.Before(now) {
		return false
	}
	return true
}
