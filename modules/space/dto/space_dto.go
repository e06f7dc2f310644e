package dto

import "time"

// Actions gated by the authorization check
const (
	ActionProposalRead    = "proposal:read"
	ActionProposalCreate  = "proposal:create"
	ActionProposalRespond = "proposal:respond"
	ActionProposalConfirm = "proposal:confirm"
	ActionProposalCancel  = "proposal:cancel"
	ActionProposalExtend  = "proposal:extend"
	ActionProposalRemind  = "proposal:remind"
	ActionCalendarSuggest = "calendar:suggest"
)

// AuthDecision is the result of the authorization gate. A false Allowed
// aborts the operation before any domain state is touched.
type AuthDecision struct {
	Allowed bool   `json:"allowed"`
	Role    string `json:"role,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// SpaceResponse for space listings
type SpaceResponse struct {
	ID        string    `json:"id"`
	OrgID     string    `json:"org_id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}

// MemberResponse for member listings
type MemberResponse struct {
	UserID   string `json:"user_id"`
	Role     string `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

// CreateSpaceRequest for creating a space
type CreateSpaceRequest struct {
	OrgID string `json:"org_id" validate:"required"`
	Name  string `json:"name" validate:"required"`
}
