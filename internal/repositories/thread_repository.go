package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"messenger-service/internal/models"
)

// ThreadRepository abstracts thread persistence.
type ThreadRepository interface {
	CreateThread(ctx context.Context, thread models.Thread, participants []models.Participant, system *models.Message) (models.Thread, []models.Participant, error)
	GetThread(ctx context.Context, threadID string) (models.Thread, error)
	OpenPrivateThread(ctx context.Context, thread models.Thread, a, b models.Participant) (models.Thread, bool, error)
	ListThreadsForProvider(ctx context.Context, provider models.ProviderRef, before *time.Time, limit int) ([]models.Thread, error)
	UpdateThread(ctx context.Context, thread models.Thread, system *models.Message) (models.Thread, error)
	ArchiveThread(ctx context.Context, threadID string) error
}

// ThreadRepo is a sqlx implementation of ThreadRepository.
type ThreadRepo struct {
	db *sqlx.DB
}

// NewThreadRepo constructs a ThreadRepo.
func NewThreadRepo(db *sqlx.DB) *ThreadRepo {
	return &ThreadRepo{db: db}
}

const threadColumns = `id, kind, subject, locked, add_participants, invitations, calling, messaging, created_at, updated_at, deleted_at`

// CreateThread inserts the thread, its initial participants and an
// optional system message atomically.
func (r *ThreadRepo) CreateThread(ctx context.Context, thread models.Thread, participants []models.Participant, system *models.Message) (models.Thread, []models.Participant, error) {
	var created []models.Participant
	err := withTx(ctx, r.db, nil, func(tx *sqlx.Tx) error {
		var err error
		thread, created, err = insertThread(ctx, tx, thread, participants, system)
		return err
	})
	if err != nil {
		return models.Thread{}, nil, err
	}
	return thread, created, nil
}

// OpenPrivateThread returns the live private thread between a and b, or
// creates it with both as participants. Callers for the same pair are
// serialized on a transaction-scoped advisory lock, so concurrent opens
// never produce two threads. The bool reports whether a thread was created.
func (r *ThreadRepo) OpenPrivateThread(ctx context.Context, thread models.Thread, a, b models.Participant) (models.Thread, bool, error) {
	var created bool
	err := withTx(ctx, r.db, nil, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, privatePairKey(a.Owner(), b.Owner())); err != nil {
			return err
		}
		existing, err := findPrivateThread(ctx, tx, a.Owner(), b.Owner())
		if err == nil {
			thread = existing
			return nil
		}
		if !errors.Is(err, ErrThreadNotFound) {
			return err
		}
		if thread, _, err = insertThread(ctx, tx, thread, []models.Participant{a, b}, nil); err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return models.Thread{}, false, err
	}
	return thread, created, nil
}

// privatePairKey is the same for (a, b) and (b, a).
func privatePairKey(a, b models.ProviderRef) string {
	x, y := a.String(), b.String()
	if y < x {
		x, y = y, x
	}
	return "private:" + x + "|" + y
}

func insertThread(ctx context.Context, tx *sqlx.Tx, thread models.Thread, participants []models.Participant, system *models.Message) (models.Thread, []models.Participant, error) {
	if thread.ID == "" {
		thread.ID = uuid.NewString()
	}
	if err := tx.QueryRowxContext(ctx, `INSERT INTO threads (id, kind, subject, locked, add_participants, invitations, calling, messaging)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING `+threadColumns,
		thread.ID, thread.Kind, thread.Subject, thread.Locked, thread.AddParticipants, thread.Invitations, thread.Calling, thread.Messaging).
		StructScan(&thread); err != nil {
		return models.Thread{}, nil, err
	}
	created := make([]models.Participant, 0, len(participants))
	for _, p := range participants {
		p.ThreadID = thread.ID
		inserted, err := insertParticipant(ctx, tx, p)
		if err != nil {
			return models.Thread{}, nil, err
		}
		created = append(created, inserted)
	}
	if system != nil {
		system.ThreadID = thread.ID
		if _, err := insertMessage(ctx, tx, *system); err != nil {
			return models.Thread{}, nil, err
		}
	}
	return thread, created, nil
}

// GetThread fetches a non-archived thread.
func (r *ThreadRepo) GetThread(ctx context.Context, threadID string) (models.Thread, error) {
	if _, err := uuid.Parse(threadID); err != nil {
		return models.Thread{}, ErrThreadNotFound
	}
	var t models.Thread
	err := r.db.GetContext(ctx, &t, `SELECT `+threadColumns+` FROM threads WHERE id=$1 AND deleted_at IS NULL`, threadID)
	return t, notFound(err, ErrThreadNotFound)
}

func findPrivateThread(ctx context.Context, q sqlx.QueryerContext, a, b models.ProviderRef) (models.Thread, error) {
	var t models.Thread
	err := sqlx.GetContext(ctx, q, &t, `SELECT t.id, t.kind, t.subject, t.locked, t.add_participants, t.invitations, t.calling, t.messaging, t.created_at, t.updated_at, t.deleted_at
        FROM threads t
        INNER JOIN participants pa ON pa.thread_id = t.id AND pa.deleted_at IS NULL AND pa.owner_alias=$2 AND pa.owner_id=$3
        INNER JOIN participants pb ON pb.thread_id = t.id AND pb.deleted_at IS NULL AND pb.owner_alias=$4 AND pb.owner_id=$5
        WHERE t.kind=$1 AND t.deleted_at IS NULL
        LIMIT 1`, models.ThreadPrivate, a.Alias, a.ID, b.Alias, b.ID)
	return t, notFound(err, ErrThreadNotFound)
}

// ListThreadsForProvider returns threads the provider participates in,
// most recently active first.
func (r *ThreadRepo) ListThreadsForProvider(ctx context.Context, provider models.ProviderRef, before *time.Time, limit int) ([]models.Thread, error) {
	query := `SELECT t.id, t.kind, t.subject, t.locked, t.add_participants, t.invitations, t.calling, t.messaging, t.created_at, t.updated_at, t.deleted_at
        FROM threads t
        INNER JOIN participants p ON p.thread_id = t.id AND p.deleted_at IS NULL
        WHERE p.owner_alias=$1 AND p.owner_id=$2 AND t.deleted_at IS NULL
        AND ($3::timestamptz IS NULL OR t.updated_at < $3)
        ORDER BY t.updated_at DESC
        LIMIT $4`
	var threads []models.Thread
	err := r.db.SelectContext(ctx, &threads, query, provider.Alias, provider.ID, before, limit)
	return threads, err
}

// UpdateThread persists settings and lock state, optionally recording a
// system message in the same transaction.
func (r *ThreadRepo) UpdateThread(ctx context.Context, thread models.Thread, system *models.Message) (models.Thread, error) {
	err := withTx(ctx, r.db, nil, func(tx *sqlx.Tx) error {
		if err := tx.QueryRowxContext(ctx, `UPDATE threads SET subject=$2, locked=$3, add_participants=$4, invitations=$5, calling=$6, messaging=$7, updated_at=NOW()
            WHERE id=$1 AND deleted_at IS NULL RETURNING `+threadColumns,
			thread.ID, thread.Subject, thread.Locked, thread.AddParticipants, thread.Invitations, thread.Calling, thread.Messaging).
			StructScan(&thread); err != nil {
			return notFound(err, ErrThreadNotFound)
		}
		if system != nil {
			system.ThreadID = thread.ID
			if _, err := insertMessage(ctx, tx, *system); err != nil {
				return err
			}
		}
		return nil
	})
	return thread, err
}

// ArchiveThread soft deletes the thread.
func (r *ThreadRepo) ArchiveThread(ctx context.Context, threadID string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE threads SET deleted_at=NOW() WHERE id=$1 AND deleted_at IS NULL`, threadID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrThreadNotFound
	}
	return nil
}
