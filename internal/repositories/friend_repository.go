package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"messenger-service/internal/models"
)

// FriendRepository abstracts the friendship graph.
type FriendRepository interface {
	GetFriend(ctx context.Context, friendID string) (models.Friend, error)
	ListFriends(ctx context.Context, owner models.ProviderRef, limit int) ([]models.Friend, error)
	AreFriends(ctx context.Context, a, b models.ProviderRef) (bool, error)
	MutualFriends(ctx context.Context, owner models.ProviderRef, parties []models.ProviderRef) ([]models.ProviderRef, error)
	RemoveFriendship(ctx context.Context, friend models.Friend) error
	AcceptRequest(ctx context.Context, pending models.PendingFriend) (models.Friend, error)

	CreatePending(ctx context.Context, sender, recipient models.ProviderRef) (models.PendingFriend, error)
	GetPending(ctx context.Context, pendingID string) (models.PendingFriend, error)
	ListPending(ctx context.Context, recipient models.ProviderRef) ([]models.PendingFriend, error)
	ListSent(ctx context.Context, sender models.ProviderRef) ([]models.PendingFriend, error)
	DeletePending(ctx context.Context, pendingID string) error
	RelationExists(ctx context.Context, a, b models.ProviderRef) (bool, error)
}

// FriendRepo is a sqlx implementation of FriendRepository.
type FriendRepo struct {
	db *sqlx.DB
}

// NewFriendRepo constructs a FriendRepo.
func NewFriendRepo(db *sqlx.DB) *FriendRepo {
	return &FriendRepo{db: db}
}

const (
	friendColumns  = `id, owner_alias, owner_id, party_alias, party_id, created_at`
	pendingColumns = `id, sender_alias, sender_id, recipient_alias, recipient_id, created_at`
)

// GetFriend fetches a single directed edge.
func (r *FriendRepo) GetFriend(ctx context.Context, friendID string) (models.Friend, error) {
	if _, err := uuid.Parse(friendID); err != nil {
		return models.Friend{}, ErrFriendNotFound
	}
	var f models.Friend
	err := r.db.GetContext(ctx, &f, `SELECT `+friendColumns+` FROM friends WHERE id=$1`, friendID)
	return f, notFound(err, ErrFriendNotFound)
}

// ListFriends returns the owner's outgoing edges, newest first. A limit
// of 0 returns all of them.
func (r *FriendRepo) ListFriends(ctx context.Context, owner models.ProviderRef, limit int) ([]models.Friend, error) {
	var lim interface{}
	if limit > 0 {
		lim = limit
	}
	var fs []models.Friend
	err := r.db.SelectContext(ctx, &fs, `SELECT `+friendColumns+` FROM friends
        WHERE owner_alias=$1 AND owner_id=$2 ORDER BY created_at DESC LIMIT $3`, owner.Alias, owner.ID, lim)
	return fs, err
}

// AreFriends requires both directed edges.
func (r *FriendRepo) AreFriends(ctx context.Context, a, b models.ProviderRef) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM friends
        WHERE (owner_alias=$1 AND owner_id=$2 AND party_alias=$3 AND party_id=$4)
        OR (owner_alias=$3 AND owner_id=$4 AND party_alias=$1 AND party_id=$2)`, a.Alias, a.ID, b.Alias, b.ID)
	return count == 2, err
}

// MutualFriends returns the subset of parties that are mutual friends of
// owner.
func (r *FriendRepo) MutualFriends(ctx context.Context, owner models.ProviderRef, parties []models.ProviderRef) ([]models.ProviderRef, error) {
	if len(parties) == 0 {
		return nil, nil
	}
	aliases, ids := refArrays(parties)
	var out []models.ProviderRef
	err := r.db.SelectContext(ctx, &out, `SELECT f.party_alias AS alias, f.party_id AS id FROM friends f
        INNER JOIN friends inv ON inv.owner_alias = f.party_alias AND inv.owner_id = f.party_id
            AND inv.party_alias = f.owner_alias AND inv.party_id = f.owner_id
        WHERE f.owner_alias=$1 AND f.owner_id=$2
        AND (f.party_alias, f.party_id) IN (SELECT * FROM unnest($3::text[], $4::text[]))`,
		owner.Alias, owner.ID, aliases, ids)
	return out, err
}

// RemoveFriendship deletes the edge and its inverse.
func (r *FriendRepo) RemoveFriendship(ctx context.Context, f models.Friend) error {
	return withTx(ctx, r.db, nil, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM friends WHERE id=$1`, f.ID)
		if err != nil {
			return err
		}
		count, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if count == 0 {
			return ErrFriendNotFound
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM friends WHERE owner_alias=$1 AND owner_id=$2 AND party_alias=$3 AND party_id=$4`,
			f.PartyAlias, f.PartyID, f.OwnerAlias, f.OwnerID)
		return err
	})
}

// AcceptRequest consumes the pending request and creates both edges. The
// returned edge is owned by the recipient.
func (r *FriendRepo) AcceptRequest(ctx context.Context, pending models.PendingFriend) (models.Friend, error) {
	var edge models.Friend
	err := withTx(ctx, r.db, nil, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM pending_friends WHERE id=$1`, pending.ID)
		if err != nil {
			return err
		}
		count, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if count == 0 {
			return ErrPendingFriendNotFound
		}
		if _, err := insertFriend(ctx, tx, pending.Sender(), pending.Recipient()); err != nil {
			return err
		}
		edge, err = insertFriend(ctx, tx, pending.Recipient(), pending.Sender())
		return err
	})
	return edge, err
}

func insertFriend(ctx context.Context, q sqlx.QueryerContext, owner, party models.ProviderRef) (models.Friend, error) {
	var f models.Friend
	err := q.QueryRowxContext(ctx, `INSERT INTO friends (id, owner_alias, owner_id, party_alias, party_id)
        VALUES ($1, $2, $3, $4, $5) RETURNING `+friendColumns,
		uuid.NewString(), owner.Alias, owner.ID, party.Alias, party.ID).StructScan(&f)
	if isUniqueViolation(err) {
		return models.Friend{}, ErrFriendExists
	}
	return f, err
}

// CreatePending stores a friend request.
func (r *FriendRepo) CreatePending(ctx context.Context, sender, recipient models.ProviderRef) (models.PendingFriend, error) {
	var p models.PendingFriend
	err := r.db.QueryRowxContext(ctx, `INSERT INTO pending_friends (id, sender_alias, sender_id, recipient_alias, recipient_id)
        VALUES ($1, $2, $3, $4, $5) RETURNING `+pendingColumns,
		uuid.NewString(), sender.Alias, sender.ID, recipient.Alias, recipient.ID).StructScan(&p)
	if isUniqueViolation(err) {
		return models.PendingFriend{}, ErrFriendExists
	}
	return p, err
}

// GetPending fetches a friend request.
func (r *FriendRepo) GetPending(ctx context.Context, pendingID string) (models.PendingFriend, error) {
	if _, err := uuid.Parse(pendingID); err != nil {
		return models.PendingFriend{}, ErrPendingFriendNotFound
	}
	var p models.PendingFriend
	err := r.db.GetContext(ctx, &p, `SELECT `+pendingColumns+` FROM pending_friends WHERE id=$1`, pendingID)
	return p, notFound(err, ErrPendingFriendNotFound)
}

// ListPending returns requests awaiting the recipient's answer.
func (r *FriendRepo) ListPending(ctx context.Context, recipient models.ProviderRef) ([]models.PendingFriend, error) {
	var ps []models.PendingFriend
	err := r.db.SelectContext(ctx, &ps, `SELECT `+pendingColumns+` FROM pending_friends
        WHERE recipient_alias=$1 AND recipient_id=$2 ORDER BY created_at DESC`, recipient.Alias, recipient.ID)
	return ps, err
}

// ListSent returns requests the sender is waiting on.
func (r *FriendRepo) ListSent(ctx context.Context, sender models.ProviderRef) ([]models.PendingFriend, error) {
	var ps []models.PendingFriend
	err := r.db.SelectContext(ctx, &ps, `SELECT `+pendingColumns+` FROM pending_friends
        WHERE sender_alias=$1 AND sender_id=$2 ORDER BY created_at DESC`, sender.Alias, sender.ID)
	return ps, err
}

// DeletePending removes a friend request.
func (r *FriendRepo) DeletePending(ctx context.Context, pendingID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM pending_friends WHERE id=$1`, pendingID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrPendingFriendNotFound
	}
	return nil
}

// RelationExists reports any edge or pending request between a and b in
// either direction.
func (r *FriendRepo) RelationExists(ctx context.Context, a, b models.ProviderRef) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(
            SELECT 1 FROM friends WHERE (owner_alias=$1 AND owner_id=$2 AND party_alias=$3 AND party_id=$4)
                OR (owner_alias=$3 AND owner_id=$4 AND party_alias=$1 AND party_id=$2)
        ) OR EXISTS(
            SELECT 1 FROM pending_friends WHERE (sender_alias=$1 AND sender_id=$2 AND recipient_alias=$3 AND recipient_id=$4)
                OR (sender_alias=$3 AND sender_id=$4 AND recipient_alias=$1 AND recipient_id=$2)
        )`, a.Alias, a.ID, b.Alias, b.ID)
	return exists, err
}
