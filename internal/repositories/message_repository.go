package repositories

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"messenger-service/internal/models"
)

// MessageRepository defines interactions for thread messages.
type MessageRepository interface {
	CreateMessage(ctx context.Context, msg models.Message) (models.Message, error)
	GetMessage(ctx context.Context, threadID string, messageID string) (models.Message, error)
	ListMessages(ctx context.Context, threadID string, beforeID string, limit int) ([]models.Message, error)
	ArchiveMessage(ctx context.Context, threadID string, messageID string) error
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

const messageColumns = `id, thread_id, owner_alias, owner_id, type, body, reply_to_id, created_at, updated_at, deleted_at`

// replySelect joins the reply target when it exists in the same thread.
// reply_to_id is free text, so the join compares against id::text and a
// dangling value simply yields NULL columns.
const replySelect = `SELECT m.id, m.thread_id, m.owner_alias, m.owner_id, m.type, m.body, m.reply_to_id, m.created_at, m.updated_at, m.deleted_at,
        r.id AS r_id, r.owner_alias AS r_owner_alias, r.owner_id AS r_owner_id, r.type AS r_type, r.body AS r_body,
        r.reply_to_id AS r_reply_to_id, r.created_at AS r_created_at, r.updated_at AS r_updated_at
    FROM messages m
    LEFT JOIN messages r ON r.id::text = m.reply_to_id AND r.thread_id = m.thread_id AND r.deleted_at IS NULL`

type messageRow struct {
	models.Message
	RID         sql.NullString `db:"r_id"`
	ROwnerAlias sql.NullString `db:"r_owner_alias"`
	ROwnerID    sql.NullString `db:"r_owner_id"`
	RType       sql.NullInt64  `db:"r_type"`
	RBody       sql.NullString `db:"r_body"`
	RReplyToID  sql.NullString `db:"r_reply_to_id"`
	RCreatedAt  sql.NullTime   `db:"r_created_at"`
	RUpdatedAt  sql.NullTime   `db:"r_updated_at"`
}

func (row messageRow) toModel() models.Message {
	msg := row.Message
	if row.RID.Valid {
		reply := models.Message{
			ID:         row.RID.String,
			ThreadID:   msg.ThreadID,
			OwnerAlias: row.ROwnerAlias.String,
			OwnerID:    row.ROwnerID.String,
			Type:       models.MessageType(row.RType.Int64),
			Body:       row.RBody.String,
			CreatedAt:  row.RCreatedAt.Time,
			UpdatedAt:  row.RUpdatedAt.Time,
		}
		if row.RReplyToID.Valid {
			id := row.RReplyToID.String
			reply.ReplyToID = &id
		}
		msg.ReplyTo = &reply
	}
	return msg
}

func insertMessage(ctx context.Context, q sqlx.QueryerContext, msg models.Message) (models.Message, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	err := q.QueryRowxContext(ctx, `INSERT INTO messages (id, thread_id, owner_alias, owner_id, type, body, reply_to_id)
        VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING `+messageColumns,
		msg.ID, msg.ThreadID, msg.OwnerAlias, msg.OwnerID, msg.Type, msg.Body, msg.ReplyToID).
		StructScan(&msg)
	return msg, err
}

// CreateMessage stores the message and bumps the thread's last activity
// in one transaction.
func (r *MessageRepo) CreateMessage(ctx context.Context, msg models.Message) (models.Message, error) {
	var created models.Message
	err := withTx(ctx, r.db, nil, func(tx *sqlx.Tx) error {
		var err error
		if created, err = insertMessage(ctx, tx, msg); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE threads SET updated_at=$2 WHERE id=$1`, created.ThreadID, created.CreatedAt)
		return err
	})
	if err != nil {
		return models.Message{}, err
	}
	created.TemporaryID = msg.TemporaryID
	return created, nil
}

// GetMessage fetches one message of the thread with its reply resolved.
func (r *MessageRepo) GetMessage(ctx context.Context, threadID string, messageID string) (models.Message, error) {
	if _, err := uuid.Parse(messageID); err != nil {
		return models.Message{}, ErrMessageNotFound
	}
	var row messageRow
	err := r.db.GetContext(ctx, &row, replySelect+` WHERE m.thread_id=$1 AND m.id=$2 AND m.deleted_at IS NULL`, threadID, messageID)
	if err != nil {
		return models.Message{}, notFound(err, ErrMessageNotFound)
	}
	return row.toModel(), nil
}

// ListMessages returns up to limit messages, newest first. beforeID pages
// backwards from an existing message.
func (r *MessageRepo) ListMessages(ctx context.Context, threadID string, beforeID string, limit int) ([]models.Message, error) {
	query := replySelect + ` WHERE m.thread_id=$1 AND m.deleted_at IS NULL`
	args := []interface{}{threadID, limit}
	if beforeID != "" {
		if _, err := uuid.Parse(beforeID); err != nil {
			return nil, ErrMessageNotFound
		}
		query += ` AND (m.created_at, m.id) < (SELECT created_at, id FROM messages WHERE id=$3 AND thread_id=$1)`
		args = append(args, beforeID)
	}
	query += ` ORDER BY m.created_at DESC, m.id DESC LIMIT $2`

	var rows []messageRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	msgs := make([]models.Message, 0, len(rows))
	for _, row := range rows {
		msgs = append(msgs, row.toModel())
	}
	return msgs, nil
}

// ArchiveMessage soft deletes a message.
func (r *MessageRepo) ArchiveMessage(ctx context.Context, threadID string, messageID string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE messages SET deleted_at=NOW() WHERE thread_id=$1 AND id=$2 AND deleted_at IS NULL`, threadID, messageID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMessageNotFound
	}
	return nil
}
