package repository

import (
	"context"
	"database/sql"

	"meetsync/core/database"
	"meetsync/core/logger"
	"meetsync/modules/calendar/entity"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type CalendarRepository interface {
	CreateConnection(ctx context.Context, conn *entity.CalendarConnection) (*entity.CalendarConnection, error)
	GetConnectionByUserAndProvider(ctx context.Context, userID uuid.UUID, provider string) (*entity.CalendarConnection, error)
	GetConnectionsByUserID(ctx context.Context, userID uuid.UUID) ([]entity.CalendarConnection, error)
	GetConnectionsByUserIDs(ctx context.Context, userIDs []uuid.UUID) ([]entity.CalendarConnection, error)
	UpdateConnection(ctx context.Context, conn *entity.CalendarConnection) error
	DeactivateConnection(ctx context.Context, userID uuid.UUID, provider string) error
}

type calendarRepository struct {
	db database.Database
}

func NewCalendarRepository(db database.Database) CalendarRepository {
	return &calendarRepository{db: db}
}

const connectionColumns = `
	id, user_id, provider, access_token, refresh_token, token_expires_at,
	calendar_email, is_active, created_at, updated_at
`

func (r *calendarRepository) CreateConnection(ctx context.Context, conn *entity.CalendarConnection) (*entity.CalendarConnection, error) {
	query := `
		INSERT INTO calendar_connections (user_id, provider, access_token, refresh_token, token_expires_at, calendar_email, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, provider) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_expires_at = EXCLUDED.token_expires_at,
			calendar_email = EXCLUDED.calendar_email,
			is_active = true,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		conn.UserID, conn.Provider, conn.AccessToken, conn.RefreshToken,
		conn.TokenExpiresAt, conn.CalendarEmail, conn.IsActive,
	).Scan(&conn.ID, &conn.CreatedAt, &conn.UpdatedAt)
	if err != nil {
		logger.Error("CalendarRepository:CreateConnection:Error:", err)
		return nil, err
	}
	return conn, nil
}

func (r *calendarRepository) GetConnectionByUserAndProvider(ctx context.Context, userID uuid.UUID, provider string) (*entity.CalendarConnection, error) {
	query := `
		SELECT ` + connectionColumns + `
		FROM calendar_connections
		WHERE user_id = $1 AND provider = $2 AND is_active = true
	`
	var conn entity.CalendarConnection
	err := r.db.GetContext(ctx, &conn, query, userID, provider)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("CalendarRepository:GetConnectionByUserAndProvider:Error:", err)
		return nil, err
	}
	return &conn, nil
}

func (r *calendarRepository) GetConnectionsByUserID(ctx context.Context, userID uuid.UUID) ([]entity.CalendarConnection, error) {
	query := `
		SELECT ` + connectionColumns + `
		FROM calendar_connections
		WHERE user_id = $1 AND is_active = true
		ORDER BY created_at DESC
	`
	var connections []entity.CalendarConnection
	if err := r.db.SelectContext(ctx, &connections, query, userID); err != nil {
		logger.Error("CalendarRepository:GetConnectionsByUserID:Error:", err)
		return nil, err
	}
	return connections, nil
}

// GetConnectionsByUserIDs returns the active connections for a set of users
// in one query; used by the free/busy fan-out.
func (r *calendarRepository) GetConnectionsByUserIDs(ctx context.Context, userIDs []uuid.UUID) ([]entity.CalendarConnection, error) {
	if len(userIDs) == 0 {
		return []entity.CalendarConnection{}, nil
	}

	query := `
		SELECT ` + connectionColumns + `
		FROM calendar_connections
		WHERE user_id = ANY($1) AND is_active = true
	`
	var connections []entity.CalendarConnection
	if err := r.db.SelectContext(ctx, &connections, query, pq.Array(userIDs)); err != nil {
		logger.Error("CalendarRepository:GetConnectionsByUserIDs:Error:", err)
		return nil, err
	}
	return connections, nil
}

func (r *calendarRepository) UpdateConnection(ctx context.Context, conn *entity.CalendarConnection) error {
	query := `
		UPDATE calendar_connections
		SET access_token = $1, refresh_token = $2, token_expires_at = $3, is_active = $4, updated_at = NOW()
		WHERE id = $5
	`
	err := r.db.ExecContext(ctx, query,
		conn.AccessToken, conn.RefreshToken, conn.TokenExpiresAt, conn.IsActive, conn.ID,
	)
	if err != nil {
		logger.Error("CalendarRepository:UpdateConnection:Error:", err)
	}
	return err
}

// DeactivateConnection soft-disconnects a provider for a user
func (r *calendarRepository) DeactivateConnection(ctx context.Context, userID uuid.UUID, provider string) error {
	query := `
		UPDATE calendar_connections
		SET is_active = false, updated_at = NOW()
		WHERE user_id = $1 AND provider = $2
	`
	err := r.db.ExecContext(ctx, query, userID, provider)
	if err != nil {
		logger.Error("CalendarRepository:DeactivateConnection:Error:", err)
	}
	return err
}
