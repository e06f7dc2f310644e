package repository

import (
	"context"
	"database/sql"

	"meetsync/core/database"
	"meetsync/core/logger"
	"meetsync/modules/space/entity"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// SpaceRepository handles space and membership database operations
type SpaceRepository struct {
	DB database.Database
}

func NewSpaceRepository(db database.Database) *SpaceRepository {
	return &SpaceRepository{DB: db}
}

// SpaceRepositoryInterface defines the repository contract
type SpaceRepositoryInterface interface {
	CreateSpace(ctx context.Context, space *entity.Space) (*entity.Space, error)
	GetSpaceByID(ctx context.Context, id uuid.UUID) (*entity.Space, error)
	ListSpacesForUser(ctx context.Context, userID uuid.UUID) ([]entity.Space, error)
	GetMember(ctx context.Context, spaceID, userID uuid.UUID) (*entity.SpaceMember, error)
	ListMembers(ctx context.Context, spaceID uuid.UUID) ([]entity.SpaceMember, error)
	FilterMembers(ctx context.Context, spaceID uuid.UUID, userIDs []uuid.UUID) ([]uuid.UUID, error)
	GetUserEmails(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]string, error)
}

func (r *SpaceRepository) CreateSpace(ctx context.Context, space *entity.Space) (*entity.Space, error) {
	query := `
		INSERT INTO spaces (org_id, name, slug, created_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`

	err := r.DB.QueryRowContext(ctx, query,
		space.OrgID, space.Name, space.Slug, space.CreatedBy,
	).Scan(&space.ID, &space.CreatedAt, &space.UpdatedAt)
	if err != nil {
		logger.Error("SpaceRepository:CreateSpace", err)
		return nil, err
	}

	// The creator joins as owner.
	memberQuery := `
		INSERT INTO space_members (space_id, user_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (space_id, user_id) DO NOTHING
	`
	if err := r.DB.ExecContext(ctx, memberQuery, space.ID, space.CreatedBy, entity.RoleOwner); err != nil {
		logger.Error("SpaceRepository:CreateSpace:OwnerMember", err)
		return nil, err
	}

	return space, nil
}

func (r *SpaceRepository) GetSpaceByID(ctx context.Context, id uuid.UUID) (*entity.Space, error) {
	query := `
		SELECT id, org_id, name, slug, created_by, created_at, updated_at
		FROM spaces WHERE id = $1
	`

	var space entity.Space
	err := r.DB.GetContext(ctx, &space, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("SpaceRepository:GetSpaceByID", err)
		return nil, err
	}

	return &space, nil
}

func (r *SpaceRepository) ListSpacesForUser(ctx context.Context, userID uuid.UUID) ([]entity.Space, error) {
	query := `
		SELECT s.id, s.org_id, s.name, s.slug, s.created_by, s.created_at, s.updated_at
		FROM spaces s
		JOIN space_members sm ON sm.space_id = s.id
		WHERE sm.user_id = $1
		ORDER BY s.created_at DESC
	`

	var spaces []entity.Space
	err := r.DB.SelectContext(ctx, &spaces, query, userID)
	if err != nil {
		logger.Error("SpaceRepository:ListSpacesForUser", err)
		return nil, err
	}

	return spaces, nil
}

func (r *SpaceRepository) GetMember(ctx context.Context, spaceID, userID uuid.UUID) (*entity.SpaceMember, error) {
	query := `
		SELECT space_id, user_id, role, created_at
		FROM space_members
		WHERE space_id = $1 AND user_id = $2
	`

	var member entity.SpaceMember
	err := r.DB.GetContext(ctx, &member, query, spaceID, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("SpaceRepository:GetMember", err)
		return nil, err
	}

	return &member, nil
}

func (r *SpaceRepository) ListMembers(ctx context.Context, spaceID uuid.UUID) ([]entity.SpaceMember, error) {
	query := `
		SELECT space_id, user_id, role, created_at
		FROM space_members
		WHERE space_id = $1
		ORDER BY created_at
	`

	var members []entity.SpaceMember
	err := r.DB.SelectContext(ctx, &members, query, spaceID)
	if err != nil {
		logger.Error("SpaceRepository:ListMembers", err)
		return nil, err
	}

	return members, nil
}

// FilterMembers returns the subset of userIDs that are members of the space
func (r *SpaceRepository) FilterMembers(ctx context.Context, spaceID uuid.UUID, userIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(userIDs) == 0 {
		return []uuid.UUID{}, nil
	}

	query := `
		SELECT user_id FROM space_members
		WHERE space_id = $1 AND user_id = ANY($2)
	`

	rows, err := r.DB.QueryContext(ctx, query, spaceID, pq.Array(userIDs))
	if err != nil {
		logger.Error("SpaceRepository:FilterMembers", err)
		return nil, err
	}
	defer rows.Close()

	var members []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		members = append(members, id)
	}

	return members, rows.Err()
}

// GetUserEmails resolves contact identities for a set of users
func (r *SpaceRepository) GetUserEmails(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]string, error) {
	if len(userIDs) == 0 {
		return map[uuid.UUID]string{}, nil
	}

	query := `SELECT id, email FROM users WHERE id = ANY($1) AND email IS NOT NULL`

	rows, err := r.DB.QueryContext(ctx, query, pq.Array(userIDs))
	if err != nil {
		logger.Error("SpaceRepository:GetUserEmails", err)
		return nil, err
	}
	defer rows.Close()

	emails := make(map[uuid.UUID]string)
	for rows.Next() {
		var id uuid.UUID
		var email string
		if err := rows.Scan(&id, &email); err != nil {
			return nil, err
		}
		emails[id] = email
	}

	return emails, rows.Err()
}
