package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"messenger-service/internal/models"
)

// ParticipantRepository abstracts participant persistence.
type ParticipantRepository interface {
	GetParticipant(ctx context.Context, threadID string, owner models.ProviderRef) (models.Participant, error)
	GetParticipantByID(ctx context.Context, threadID string, participantID string) (models.Participant, error)
	ListParticipants(ctx context.Context, threadID string, limit int) ([]models.Participant, error)
	ExistingOwners(ctx context.Context, threadID string, refs []models.ProviderRef) ([]models.ProviderRef, error)
	AddParticipants(ctx context.Context, threadID string, participants []models.Participant, system *models.Message) ([]models.Participant, error)
	UpdateParticipant(ctx context.Context, participant models.Participant, system *models.Message) (models.Participant, error)
	RemoveParticipant(ctx context.Context, participant models.Participant, system *models.Message) error
	MarkRead(ctx context.Context, participantID string, at time.Time) error
}

// ParticipantRepo is a sqlx implementation of ParticipantRepository.
type ParticipantRepo struct {
	db *sqlx.DB
}

// NewParticipantRepo constructs a ParticipantRepo.
func NewParticipantRepo(db *sqlx.DB) *ParticipantRepo {
	return &ParticipantRepo{db: db}
}

const participantColumns = `id, thread_id, owner_alias, owner_id, admin, add_participants, manage_invites, start_calls, send_knocks, send_messages, last_read, created_at, updated_at, deleted_at`

func insertParticipant(ctx context.Context, q sqlx.QueryerContext, p models.Participant) (models.Participant, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	err := q.QueryRowxContext(ctx, `INSERT INTO participants (id, thread_id, owner_alias, owner_id, admin, add_participants, manage_invites, start_calls, send_knocks, send_messages)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING `+participantColumns,
		p.ID, p.ThreadID, p.OwnerAlias, p.OwnerID, p.Admin, p.AddParticipants, p.ManageInvites, p.StartCalls, p.SendKnocks, p.SendMessages).
		StructScan(&p)
	if isUniqueViolation(err) {
		return models.Participant{}, ErrParticipantExists
	}
	return p, err
}

// GetParticipant fetches the live membership of owner in the thread.
func (r *ParticipantRepo) GetParticipant(ctx context.Context, threadID string, owner models.ProviderRef) (models.Participant, error) {
	var p models.Participant
	err := r.db.GetContext(ctx, &p, `SELECT `+participantColumns+` FROM participants
        WHERE thread_id=$1 AND owner_alias=$2 AND owner_id=$3 AND deleted_at IS NULL`, threadID, owner.Alias, owner.ID)
	return p, notFound(err, ErrParticipantNotFound)
}

// GetParticipantByID fetches a live participant of the thread by id.
func (r *ParticipantRepo) GetParticipantByID(ctx context.Context, threadID string, participantID string) (models.Participant, error) {
	if _, err := uuid.Parse(participantID); err != nil {
		return models.Participant{}, ErrParticipantNotFound
	}
	var p models.Participant
	err := r.db.GetContext(ctx, &p, `SELECT `+participantColumns+` FROM participants
        WHERE thread_id=$1 AND id=$2 AND deleted_at IS NULL`, threadID, participantID)
	return p, notFound(err, ErrParticipantNotFound)
}

// ListParticipants returns live participants ordered by join time. A
// limit of 0 returns all of them.
func (r *ParticipantRepo) ListParticipants(ctx context.Context, threadID string, limit int) ([]models.Participant, error) {
	var lim interface{}
	if limit > 0 {
		lim = limit
	}
	var ps []models.Participant
	err := r.db.SelectContext(ctx, &ps, `SELECT `+participantColumns+` FROM participants
        WHERE thread_id=$1 AND deleted_at IS NULL ORDER BY created_at ASC LIMIT $2`, threadID, lim)
	return ps, err
}

// ExistingOwners returns which of refs already hold a live membership.
func (r *ParticipantRepo) ExistingOwners(ctx context.Context, threadID string, refs []models.ProviderRef) ([]models.ProviderRef, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	aliases, ids := refArrays(refs)
	var out []models.ProviderRef
	err := r.db.SelectContext(ctx, &out, `SELECT owner_alias AS alias, owner_id AS id FROM participants
        WHERE thread_id=$1 AND deleted_at IS NULL
        AND (owner_alias, owner_id) IN (SELECT * FROM unnest($2::text[], $3::text[]))`, threadID, aliases, ids)
	return out, err
}

// AddParticipants inserts the batch in one transaction. Any duplicate
// membership rolls back the whole batch with ErrParticipantExists.
func (r *ParticipantRepo) AddParticipants(ctx context.Context, threadID string, participants []models.Participant, system *models.Message) ([]models.Participant, error) {
	if len(participants) == 0 {
		return nil, nil
	}
	created := make([]models.Participant, 0, len(participants))
	err := withTx(ctx, r.db, nil, func(tx *sqlx.Tx) error {
		for _, p := range participants {
			p.ThreadID = threadID
			inserted, err := insertParticipant(ctx, tx, p)
			if err != nil {
				return err
			}
			created = append(created, inserted)
		}
		if system != nil {
			system.ThreadID = threadID
			if _, err := insertMessage(ctx, tx, *system); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx, `UPDATE threads SET updated_at=NOW() WHERE id=$1`, threadID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateParticipant persists role and permission flags.
func (r *ParticipantRepo) UpdateParticipant(ctx context.Context, p models.Participant, system *models.Message) (models.Participant, error) {
	err := withTx(ctx, r.db, nil, func(tx *sqlx.Tx) error {
		if err := tx.QueryRowxContext(ctx, `UPDATE participants SET admin=$3, add_participants=$4, manage_invites=$5, start_calls=$6, send_knocks=$7, send_messages=$8, updated_at=NOW()
            WHERE id=$1 AND thread_id=$2 AND deleted_at IS NULL RETURNING `+participantColumns,
			p.ID, p.ThreadID, p.Admin, p.AddParticipants, p.ManageInvites, p.StartCalls, p.SendKnocks, p.SendMessages).
			StructScan(&p); err != nil {
			return notFound(err, ErrParticipantNotFound)
		}
		if system != nil {
			system.ThreadID = p.ThreadID
			if _, err := insertMessage(ctx, tx, *system); err != nil {
				return err
			}
		}
		return nil
	})
	return p, err
}

// RemoveParticipant soft deletes the membership.
func (r *ParticipantRepo) RemoveParticipant(ctx context.Context, p models.Participant, system *models.Message) error {
	return withTx(ctx, r.db, nil, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE participants SET deleted_at=NOW() WHERE id=$1 AND thread_id=$2 AND deleted_at IS NULL`, p.ID, p.ThreadID)
		if err != nil {
			return err
		}
		count, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if count == 0 {
			return ErrParticipantNotFound
		}
		if system != nil {
			system.ThreadID = p.ThreadID
			if _, err := insertMessage(ctx, tx, *system); err != nil {
				return err
			}
		}
		return nil
	})
}

// MarkRead records the participant's last read time.
func (r *ParticipantRepo) MarkRead(ctx context.Context, participantID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE participants SET last_read=$2 WHERE id=$1`, participantID, at)
	return err
}
