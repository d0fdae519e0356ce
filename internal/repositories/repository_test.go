package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messenger-service/internal/models"
)

func TestMessageRowDanglingReply(t *testing.T) {
	dangling := "00000000-0000-0000-0000-000000000000"
	row := messageRow{Message: models.Message{ID: "m1", ThreadID: "t1", ReplyToID: &dangling}}

	msg := row.toModel()
	require.NotNil(t, msg.ReplyToID)
	assert.Equal(t, dangling, *msg.ReplyToID)
	assert.Nil(t, msg.ReplyTo)
}

func TestMessageRowResolvedReply(t *testing.T) {
	target := "m0"
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	row := messageRow{
		Message:     models.Message{ID: "m1", ThreadID: "t1", ReplyToID: &target},
		RID:         sql.NullString{String: "m0", Valid: true},
		ROwnerAlias: sql.NullString{String: "user", Valid: true},
		ROwnerID:    sql.NullString{String: "7", Valid: true},
		RType:       sql.NullInt64{Int64: int64(models.MessageText), Valid: true},
		RBody:       sql.NullString{String: "hello", Valid: true},
		RCreatedAt:  sql.NullTime{Time: created, Valid: true},
	}

	msg := row.toModel()
	require.NotNil(t, msg.ReplyTo)
	assert.Equal(t, "m0", msg.ReplyTo.ID)
	assert.Equal(t, "t1", msg.ReplyTo.ThreadID)
	assert.Equal(t, "hello", msg.ReplyTo.Body)
	assert.Equal(t, models.ProviderRef{Alias: "user", ID: "7"}, msg.ReplyTo.Owner())
	assert.Nil(t, msg.ReplyTo.ReplyToID)
	assert.Equal(t, created, msg.ReplyTo.CreatedAt)
}

func TestPrivatePairKeyIsOrderIndependent(t *testing.T) {
	alice := models.ProviderRef{Alias: "user", ID: "1"}
	bob := models.ProviderRef{Alias: "user", ID: "2"}
	acme := models.ProviderRef{Alias: "company", ID: "1"}

	assert.Equal(t, privatePairKey(alice, bob), privatePairKey(bob, alice))
	assert.NotEqual(t, privatePairKey(alice, bob), privatePairKey(alice, acme))
	assert.NotEqual(t, privatePairKey(acme, bob), privatePairKey(alice, bob))
}

func TestPqErrorClassification(t *testing.T) {
	unique := fmt.Errorf("insert: %w", &pq.Error{Code: pqUniqueViolation})
	assert.True(t, isUniqueViolation(unique))
	assert.False(t, isSerializationFailure(unique))

	serial := &pq.Error{Code: pqSerializationFailure}
	assert.True(t, isSerializationFailure(serial))
	assert.Equal(t, "", pqCode(errors.New("plain")))
}

func TestNotFoundMapsNoRows(t *testing.T) {
	assert.ErrorIs(t, notFound(sql.ErrNoRows, ErrThreadNotFound), ErrThreadNotFound)
	assert.NoError(t, notFound(nil, ErrThreadNotFound))

	other := errors.New("connection reset")
	assert.Equal(t, other, notFound(other, ErrThreadNotFound))
}

func TestRefArrays(t *testing.T) {
	aliases, ids := refArrays([]models.ProviderRef{{Alias: "user", ID: "1"}, {Alias: "company", ID: "2"}})
	assert.Equal(t, pq.Array([]string{"user", "company"}), aliases)
	assert.Equal(t, pq.Array([]string{"1", "2"}), ids)
}
