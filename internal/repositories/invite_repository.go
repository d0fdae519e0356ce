package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"messenger-service/internal/models"
)

// InviteRepository abstracts invitation persistence.
type InviteRepository interface {
	CreateInvite(ctx context.Context, invite models.Invite, maxPerThread int) (models.Invite, error)
	ListInvites(ctx context.Context, threadID string) ([]models.Invite, error)
	GetInvite(ctx context.Context, threadID string, inviteID string) (models.Invite, error)
	GetInviteByCode(ctx context.Context, code string) (models.Invite, error)
	ArchiveInvite(ctx context.Context, inviteID string) error
	RedeemInvite(ctx context.Context, inviteID string, participant models.Participant, system *models.Message) (models.Participant, error)
	ArchiveExpiredInvites(ctx context.Context, now time.Time) (int64, error)
}

// InviteRepo is a sqlx implementation of InviteRepository.
type InviteRepo struct {
	db *sqlx.DB
}

// NewInviteRepo constructs an InviteRepo.
func NewInviteRepo(db *sqlx.DB) *InviteRepo {
	return &InviteRepo{db: db}
}

const inviteColumns = `id, thread_id, owner_alias, owner_id, code, max_use, uses, expires_at, created_at, deleted_at`

const activeInvite = `deleted_at IS NULL AND (expires_at IS NULL OR expires_at > NOW()) AND (max_use = 0 OR uses < max_use)`

// CreateInvite counts the thread's active invites and inserts the new one
// under SERIALIZABLE isolation, so concurrent creators cannot both slip
// under maxPerThread. maxPerThread 0 means unlimited.
func (r *InviteRepo) CreateInvite(ctx context.Context, invite models.Invite, maxPerThread int) (models.Invite, error) {
	if invite.ID == "" {
		invite.ID = uuid.NewString()
	}
	opts := &sql.TxOptions{Isolation: sql.LevelSerializable}
	err := withTx(ctx, r.db, opts, func(tx *sqlx.Tx) error {
		if maxPerThread > 0 {
			var count int
			if err := tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM invites WHERE thread_id=$1 AND `+activeInvite, invite.ThreadID); err != nil {
				return err
			}
			if count >= maxPerThread {
				return ErrInviteLimit
			}
		}
		return tx.QueryRowxContext(ctx, `INSERT INTO invites (id, thread_id, owner_alias, owner_id, code, max_use, expires_at)
            VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING `+inviteColumns,
			invite.ID, invite.ThreadID, invite.OwnerAlias, invite.OwnerID, invite.Code, invite.MaxUse, invite.ExpiresAt).
			StructScan(&invite)
	})
	if err != nil {
		return models.Invite{}, err
	}
	return invite, nil
}

// ListInvites returns the thread's active invites.
func (r *InviteRepo) ListInvites(ctx context.Context, threadID string) ([]models.Invite, error) {
	var invites []models.Invite
	err := r.db.SelectContext(ctx, &invites, `SELECT `+inviteColumns+` FROM invites
        WHERE thread_id=$1 AND `+activeInvite+` ORDER BY created_at DESC`, threadID)
	return invites, err
}

// GetInvite fetches a non-archived invite of the thread.
func (r *InviteRepo) GetInvite(ctx context.Context, threadID string, inviteID string) (models.Invite, error) {
	if _, err := uuid.Parse(inviteID); err != nil {
		return models.Invite{}, ErrInviteNotFound
	}
	var inv models.Invite
	err := r.db.GetContext(ctx, &inv, `SELECT `+inviteColumns+` FROM invites
        WHERE thread_id=$1 AND id=$2 AND deleted_at IS NULL`, threadID, inviteID)
	return inv, notFound(err, ErrInviteNotFound)
}

// GetInviteByCode fetches an invite regardless of its state.
func (r *InviteRepo) GetInviteByCode(ctx context.Context, code string) (models.Invite, error) {
	var inv models.Invite
	err := r.db.GetContext(ctx, &inv, `SELECT `+inviteColumns+` FROM invites WHERE code=$1`, code)
	return inv, notFound(err, ErrInviteNotFound)
}

// ArchiveInvite soft deletes an invite.
func (r *InviteRepo) ArchiveInvite(ctx context.Context, inviteID string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE invites SET deleted_at=NOW() WHERE id=$1 AND deleted_at IS NULL`, inviteID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrInviteNotFound
	}
	return nil
}

// RedeemInvite locks the invite row, re-checks it is active, adds the
// participant and increments uses in one transaction.
func (r *InviteRepo) RedeemInvite(ctx context.Context, inviteID string, p models.Participant, system *models.Message) (models.Participant, error) {
	var created models.Participant
	err := withTx(ctx, r.db, nil, func(tx *sqlx.Tx) error {
		var inv models.Invite
		if err := tx.GetContext(ctx, &inv, `SELECT `+inviteColumns+` FROM invites WHERE id=$1 FOR UPDATE`, inviteID); err != nil {
			return notFound(err, ErrInviteNotFound)
		}
		if !inv.Active(time.Now()) {
			return ErrInviteInactive
		}
		p.ThreadID = inv.ThreadID
		var err error
		if created, err = insertParticipant(ctx, tx, p); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE invites SET uses = uses + 1 WHERE id=$1`, inviteID); err != nil {
			return err
		}
		if system != nil {
			system.ThreadID = inv.ThreadID
			if _, err := insertMessage(ctx, tx, *system); err != nil {
				return err
			}
		}
		_, err = tx.ExecContext(ctx, `UPDATE threads SET updated_at=NOW() WHERE id=$1`, inv.ThreadID)
		return err
	})
	if err != nil {
		return models.Participant{}, err
	}
	return created, nil
}

// ArchiveExpiredInvites soft deletes invites that expired or ran out of
// uses before now.
func (r *InviteRepo) ArchiveExpiredInvites(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE invites SET deleted_at=$1
        WHERE deleted_at IS NULL AND ((expires_at IS NOT NULL AND expires_at <= $1) OR (max_use > 0 AND uses >= max_use))`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
