package entity

import (
	"time"

	"meetsync/core/entity"

	"github.com/google/uuid"
)

// MemberRole is a member's role within a space
type MemberRole string

const (
	RoleOwner  MemberRole = "owner"
	RoleAdmin  MemberRole = "admin"
	RoleMember MemberRole = "member"
)

// CanManageProposals reports whether the role may create, confirm, cancel,
// extend or remind on proposals.
func (r MemberRole) CanManageProposals() bool {
	return r == RoleOwner || r == RoleAdmin
}

// Space is a shared scheduling workspace belonging to an organization
type Space struct {
	entity.BaseEntity
	OrgID     uuid.UUID `db:"org_id" json:"org_id"`
	Name      string    `db:"name" json:"name"`
	Slug      string    `db:"slug" json:"slug"`
	CreatedBy uuid.UUID `db:"created_by" json:"created_by"`
}

// SpaceMember links a user to a space with a role
type SpaceMember struct {
	SpaceID   uuid.UUID  `db:"space_id" json:"space_id"`
	UserID    uuid.UUID  `db:"user_id" json:"user_id"`
	Role      MemberRole `db:"role" json:"role"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}
