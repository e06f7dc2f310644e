package repository

import (
	"context"
	"database/sql"
	"time"

	"meetsync/core/database"
	"meetsync/core/logger"
	"meetsync/modules/proposal/entity"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ProposalRepository handles proposal database operations
type ProposalRepository struct {
	DB database.Database
}

func NewProposalRepository(db database.Database) *ProposalRepository {
	return &ProposalRepository{DB: db}
}

// ProposalRepositoryInterface defines the repository contract
type ProposalRepositoryInterface interface {
	// Aggregate creation (single transaction)
	CreateProposal(ctx context.Context, proposal *entity.Proposal, slots []entity.ProposalSlot, respondents []entity.Respondent) (*entity.Proposal, error)

	// Reads
	GetProposalBySpace(ctx context.Context, spaceID, proposalID uuid.UUID) (*entity.Proposal, error)
	ListBySpace(ctx context.Context, spaceID uuid.UUID, status *entity.ProposalStatus, limit int) ([]entity.Proposal, error)
	GetSlots(ctx context.Context, proposalID uuid.UUID) ([]entity.ProposalSlot, error)
	GetSlot(ctx context.Context, proposalID, slotID uuid.UUID) (*entity.ProposalSlot, error)
	GetRespondents(ctx context.Context, proposalID uuid.UUID) ([]entity.Respondent, error)
	GetRespondentByUser(ctx context.Context, proposalID, userID uuid.UUID) (*entity.Respondent, error)
	GetResponses(ctx context.Context, proposalID uuid.UUID) ([]entity.SlotResponse, error)

	// Response collector
	UpsertResponses(ctx context.Context, responses []entity.SlotResponse) (int, error)

	// Conditional transitions (rows-affected = 0 means the race was lost)
	ConfirmProposal(ctx context.Context, proposalID, slotID, actorID uuid.UUID) (int64, error)
	CancelProposal(ctx context.Context, proposalID uuid.UUID) (int64, error)
	ExtendProposal(ctx context.Context, proposalID uuid.UUID, newExpiresAt time.Time) (int64, error)
	ExpireDue(ctx context.Context) (int64, error)

	// Post-confirmation details
	SetMeetingDetails(ctx context.Context, proposalID uuid.UUID, meetingURL, externalMeetingID string) error
	SetICSURL(ctx context.Context, proposalID uuid.UUID, icsURL string) error

	// Best-effort reminder audit log
	InsertReminderLog(ctx context.Context, proposalID uuid.UUID, reminderType string, targetUserID uuid.UUID) error
}

const proposalColumns = `
	id, org_id, space_id, title, description, duration_minutes, status,
	expires_at, video_provider, confirmed_slot_id, confirmed_meeting_id,
	meeting_url, ics_url, confirmed_at, confirmed_by, created_by,
	created_at, updated_at
`

// ===================== Aggregate creation =====================

// CreateProposal inserts the proposal, its slots and its respondents in one
// transaction so a partial failure leaves nothing behind.
func (r *ProposalRepository) CreateProposal(ctx context.Context, proposal *entity.Proposal, slots []entity.ProposalSlot, respondents []entity.Respondent) (*entity.Proposal, error) {
	err := r.DB.Transact(ctx, func(tx *sqlx.Tx) error {
		insertProposal := `
			INSERT INTO meeting_proposals (org_id, space_id, title, description, duration_minutes, status, expires_at, video_provider, created_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id, created_at, updated_at
		`
		if err := tx.QueryRowxContext(ctx, insertProposal,
			proposal.OrgID, proposal.SpaceID, proposal.Title, proposal.Description,
			proposal.DurationMinutes, proposal.Status, proposal.ExpiresAt,
			proposal.VideoProvider, proposal.CreatedBy,
		).Scan(&proposal.ID, &proposal.CreatedAt, &proposal.UpdatedAt); err != nil {
			return err
		}

		insertSlot := `
			INSERT INTO proposal_slots (proposal_id, start_at, end_at, slot_order)
			VALUES ($1, $2, $3, $4)
			RETURNING id, created_at
		`
		for i := range slots {
			slots[i].ProposalID = proposal.ID
			if err := tx.QueryRowxContext(ctx, insertSlot,
				slots[i].ProposalID, slots[i].StartAt, slots[i].EndAt, slots[i].SlotOrder,
			).Scan(&slots[i].ID, &slots[i].CreatedAt); err != nil {
				return err
			}
		}

		insertRespondent := `
			INSERT INTO proposal_respondents (proposal_id, user_id, side, is_required)
			VALUES ($1, $2, $3, $4)
			RETURNING id, created_at
		`
		for i := range respondents {
			respondents[i].ProposalID = proposal.ID
			if err := tx.QueryRowxContext(ctx, insertRespondent,
				respondents[i].ProposalID, respondents[i].UserID,
				respondents[i].Side, respondents[i].IsRequired,
			).Scan(&respondents[i].ID, &respondents[i].CreatedAt); err != nil {
				return err
			}
		}

		return nil
	})

	if err != nil {
		logger.Error("ProposalRepository:CreateProposal", err)
		return nil, err
	}

	return proposal, nil
}

// ===================== Reads =====================

func (r *ProposalRepository) GetProposalBySpace(ctx context.Context, spaceID, proposalID uuid.UUID) (*entity.Proposal, error) {
	query := `SELECT ` + proposalColumns + ` FROM meeting_proposals WHERE id = $1 AND space_id = $2`

	var proposal entity.Proposal
	err := r.DB.GetContext(ctx, &proposal, query, proposalID, spaceID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("ProposalRepository:GetProposalBySpace", err)
		return nil, err
	}

	return &proposal, nil
}

func (r *ProposalRepository) ListBySpace(ctx context.Context, spaceID uuid.UUID, status *entity.ProposalStatus, limit int) ([]entity.Proposal, error) {
	args := []any{spaceID, limit}
	query := `SELECT ` + proposalColumns + ` FROM meeting_proposals WHERE space_id = $1`
	if status != nil {
		query += ` AND status = $3`
		args = append(args, *status)
	}
	query += ` ORDER BY created_at DESC LIMIT $2`

	var proposals []entity.Proposal
	err := r.DB.SelectContext(ctx, &proposals, query, args...)
	if err != nil {
		logger.Error("ProposalRepository:ListBySpace", err)
		return nil, err
	}

	return proposals, nil
}

func (r *ProposalRepository) GetSlots(ctx context.Context, proposalID uuid.UUID) ([]entity.ProposalSlot, error) {
	query := `
		SELECT id, proposal_id, start_at, end_at, slot_order, created_at
		FROM proposal_slots
		WHERE proposal_id = $1
		ORDER BY slot_order
	`

	var slots []entity.ProposalSlot
	err := r.DB.SelectContext(ctx, &slots, query, proposalID)
	if err != nil {
		logger.Error("ProposalRepository:GetSlots", err)
		return nil, err
	}

	return slots, nil
}

func (r *ProposalRepository) GetSlot(ctx context.Context, proposalID, slotID uuid.UUID) (*entity.ProposalSlot, error) {
	query := `
		SELECT id, proposal_id, start_at, end_at, slot_order, created_at
		FROM proposal_slots
		WHERE id = $1 AND proposal_id = $2
	`

	var slot entity.ProposalSlot
	err := r.DB.GetContext(ctx, &slot, query, slotID, proposalID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("ProposalRepository:GetSlot", err)
		return nil, err
	}

	return &slot, nil
}

func (r *ProposalRepository) GetRespondents(ctx context.Context, proposalID uuid.UUID) ([]entity.Respondent, error) {
	query := `
		SELECT id, proposal_id, user_id, side, is_required, created_at
		FROM proposal_respondents
		WHERE proposal_id = $1
		ORDER BY created_at
	`

	var respondents []entity.Respondent
	err := r.DB.SelectContext(ctx, &respondents, query, proposalID)
	if err != nil {
		logger.Error("ProposalRepository:GetRespondents", err)
		return nil, err
	}

	return respondents, nil
}

func (r *ProposalRepository) GetRespondentByUser(ctx context.Context, proposalID, userID uuid.UUID) (*entity.Respondent, error) {
	query := `
		SELECT id, proposal_id, user_id, side, is_required, created_at
		FROM proposal_respondents
		WHERE proposal_id = $1 AND user_id = $2
	`

	var respondent entity.Respondent
	err := r.DB.GetContext(ctx, &respondent, query, proposalID, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("ProposalRepository:GetRespondentByUser", err)
		return nil, err
	}

	return &respondent, nil
}

func (r *ProposalRepository) GetResponses(ctx context.Context, proposalID uuid.UUID) ([]entity.SlotResponse, error) {
	query := `
		SELECT sr.slot_id, sr.respondent_id, sr.response, sr.responded_at
		FROM slot_responses sr
		JOIN proposal_slots ps ON ps.id = sr.slot_id
		WHERE ps.proposal_id = $1
	`

	var responses []entity.SlotResponse
	err := r.DB.SelectContext(ctx, &responses, query, proposalID)
	if err != nil {
		logger.Error("ProposalRepository:GetResponses", err)
		return nil, err
	}

	return responses, nil
}

// ===================== Response collector =====================

// UpsertResponses writes a batch of answers; (slot_id, respondent_id) is the
// upsert key so re-responding overwrites without history.
func (r *ProposalRepository) UpsertResponses(ctx context.Context, responses []entity.SlotResponse) (int, error) {
	query := `
		INSERT INTO slot_responses (slot_id, respondent_id, response, responded_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (slot_id, respondent_id)
		DO UPDATE SET response = $3, responded_at = $4
	`

	count := 0
	err := r.DB.Transact(ctx, func(tx *sqlx.Tx) error {
		for _, resp := range responses {
			if _, err := tx.ExecContext(ctx, query,
				resp.SlotID, resp.RespondentID, resp.Response, resp.RespondedAt,
			); err != nil {
				return err
			}
			count++
		}
		return nil
	})

	if err != nil {
		logger.Error("ProposalRepository:UpsertResponses", err)
		return 0, err
	}

	return count, nil
}

// ===================== Conditional transitions =====================

// ConfirmProposal performs the open->confirmed compare-and-swap. The WHERE
// status = 'open' guard plus the rows-affected check is what makes
// concurrent confirmations safe; callers must treat 0 as a lost race.
func (r *ProposalRepository) ConfirmProposal(ctx context.Context, proposalID, slotID, actorID uuid.UUID) (int64, error) {
	query := `
		UPDATE meeting_proposals
		SET status = 'confirmed', confirmed_slot_id = $2, confirmed_at = NOW(), confirmed_by = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'open'
	`

	affected, err := r.DB.ExecReturningCount(ctx, query, proposalID, slotID, actorID)
	if err != nil {
		logger.Error("ProposalRepository:ConfirmProposal", err)
		return 0, err
	}

	return affected, nil
}

func (r *ProposalRepository) CancelProposal(ctx context.Context, proposalID uuid.UUID) (int64, error) {
	query := `
		UPDATE meeting_proposals
		SET status = 'cancelled', updated_at = NOW()
		WHERE id = $1 AND status = 'open'
	`

	affected, err := r.DB.ExecReturningCount(ctx, query, proposalID)
	if err != nil {
		logger.Error("ProposalRepository:CancelProposal", err)
		return 0, err
	}

	return affected, nil
}

func (r *ProposalRepository) ExtendProposal(ctx context.Context, proposalID uuid.UUID, newExpiresAt time.Time) (int64, error) {
	query := `
		UPDATE meeting_proposals
		SET expires_at = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'open'
	`

	affected, err := r.DB.ExecReturningCount(ctx, query, proposalID, newExpiresAt)
	if err != nil {
		logger.Error("ProposalRepository:ExtendProposal", err)
		return 0, err
	}

	return affected, nil
}

// ExpireDue flips open proposals whose expiry has passed. Run by the
// background sweep.
func (r *ProposalRepository) ExpireDue(ctx context.Context) (int64, error) {
	query := `
		UPDATE meeting_proposals
		SET status = 'expired', updated_at = NOW()
		WHERE status = 'open' AND expires_at IS NOT NULL AND expires_at < NOW()
	`

	affected, err := r.DB.ExecReturningCount(ctx, query)
	if err != nil {
		logger.Error("ProposalRepository:ExpireDue", err)
		return 0, err
	}

	return affected, nil
}

// ===================== Post-confirmation details =====================

func (r *ProposalRepository) SetMeetingDetails(ctx context.Context, proposalID uuid.UUID, meetingURL, externalMeetingID string) error {
	query := `
		UPDATE meeting_proposals
		SET meeting_url = $2, confirmed_meeting_id = $3, updated_at = NOW()
		WHERE id = $1
	`

	err := r.DB.ExecContext(ctx, query, proposalID, meetingURL, externalMeetingID)
	if err != nil {
		logger.Error("ProposalRepository:SetMeetingDetails", err)
		return err
	}

	return nil
}

func (r *ProposalRepository) SetICSURL(ctx context.Context, proposalID uuid.UUID, icsURL string) error {
	query := `UPDATE meeting_proposals SET ics_url = $2, updated_at = NOW() WHERE id = $1`

	err := r.DB.ExecContext(ctx, query, proposalID, icsURL)
	if err != nil {
		logger.Error("ProposalRepository:SetICSURL", err)
		return err
	}

	return nil
}

// ===================== Reminder audit log =====================

// InsertReminderLog records that a reminder was dispatched. The unique key
// (proposal_id, reminder_type, target_user_id) makes repeats a no-op.
func (r *ProposalRepository) InsertReminderLog(ctx context.Context, proposalID uuid.UUID, reminderType string, targetUserID uuid.UUID) error {
	query := `
		INSERT INTO reminder_log (proposal_id, reminder_type, target_user_id, sent_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (proposal_id, reminder_type, target_user_id) DO NOTHING
	`

	err := r.DB.ExecContext(ctx, query, proposalID, reminderType, targetUserID)
	if err != nil {
		logger.Error("ProposalRepository:InsertReminderLog", err)
		return err
	}

	return nil
}
