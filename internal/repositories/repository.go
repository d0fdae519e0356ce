package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"messenger-service/internal/models"
)

var (
	ErrProviderNotFound      = errors.New("provider not found")
	ErrThreadNotFound        = errors.New("thread not found")
	ErrParticipantNotFound   = errors.New("participant not found")
	ErrMessageNotFound       = errors.New("message not found")
	ErrFriendNotFound        = errors.New("friend not found")
	ErrPendingFriendNotFound = errors.New("friend request not found")
	ErrInviteNotFound        = errors.New("invite not found")

	// ErrParticipantExists means a provider already holds a membership in
	// the thread. Batch inserts hitting it are rolled back entirely.
	ErrParticipantExists = errors.New("participant already exists")
	ErrInviteLimit       = errors.New("invite limit reached")
	ErrInviteInactive    = errors.New("invite is no longer active")
	ErrFriendExists      = errors.New("friendship or request already exists")
	// ErrConflict reports a serialization failure; the caller may retry.
	ErrConflict = errors.New("concurrent update conflict")
)

const (
	pqUniqueViolation      = "23505"
	pqSerializationFailure = "40001"
)

func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pqCode(err) == pqUniqueViolation
}

func isSerializationFailure(err error) bool {
	return pqCode(err) == pqSerializationFailure
}

// withTx runs fn inside a transaction, rolling back on error.
func withTx(ctx context.Context, db *sqlx.DB, opts *sql.TxOptions, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := db.BeginTxx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		if isSerializationFailure(err) {
			return fmt.Errorf("%w: %v", ErrConflict, err)
		}
		return err
	}
	if err = tx.Commit(); err != nil {
		if isSerializationFailure(err) {
			return fmt.Errorf("%w: %v", ErrConflict, err)
		}
		return err
	}
	return nil
}

func refArrays(refs []models.ProviderRef) (interface{}, interface{}) {
	aliases := make([]string, 0, len(refs))
	ids := make([]string, 0, len(refs))
	for _, r := range refs {
		aliases = append(aliases, r.Alias)
		ids = append(ids, r.ID)
	}
	return pq.Array(aliases), pq.Array(ids)
}

func notFound(err error, sentinel error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel
	}
	return err
}
