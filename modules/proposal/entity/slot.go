package entity

import (
	"time"

	"github.com/google/uuid"
)

// ProposalSlot is one candidate time range within a proposal. Slots are
// created once at proposal creation and never edited afterwards; slot_order
// preserves the coordinator's input ordering for display.
type ProposalSlot struct {
	ID         uuid.UUID `db:"id" json:"id"`
	ProposalID uuid.UUID `db:"proposal_id" json:"proposal_id"`
	StartAt    time.Time `db:"start_at" json:"start_at"`
	EndAt      time.Time `db:"end_at" json:"end_at"`
	SlotOrder  int       `db:"slot_order" json:"slot_order"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
