package repositories

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"messenger-service/internal/models"
)

// searchableColumns whitelists columns a search may reference.
var searchableColumns = map[string]bool{"name": true, "email": true}

// ProviderRepository reads the host application's provider table.
type ProviderRepository interface {
	FindProvider(ctx context.Context, ref models.ProviderRef) (models.ProviderRecord, error)
	FindProviders(ctx context.Context, refs []models.ProviderRef) ([]models.ProviderRecord, error)
	FindByToken(ctx context.Context, token string) (models.ProviderRecord, error)
	Search(ctx context.Context, columns map[string][]string, query string, limit int) ([]models.ProviderRecord, error)
}

// ProviderRepo is a sqlx implementation of ProviderRepository.
type ProviderRepo struct {
	db *sqlx.DB
}

// NewProviderRepo constructs a ProviderRepo.
func NewProviderRepo(db *sqlx.DB) *ProviderRepo {
	return &ProviderRepo{db: db}
}

const providerColumns = `alias, id, name, email, avatar, created_at`

// FindProvider fetches a single provider.
func (r *ProviderRepo) FindProvider(ctx context.Context, ref models.ProviderRef) (models.ProviderRecord, error) {
	var p models.ProviderRecord
	err := r.db.GetContext(ctx, &p, `SELECT `+providerColumns+` FROM providers WHERE alias=$1 AND id=$2`, ref.Alias, ref.ID)
	return p, notFound(err, ErrProviderNotFound)
}

// FindProviders returns the subset of refs that exist. Order is not
// preserved.
func (r *ProviderRepo) FindProviders(ctx context.Context, refs []models.ProviderRef) ([]models.ProviderRecord, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	aliases, ids := refArrays(refs)
	var out []models.ProviderRecord
	err := r.db.SelectContext(ctx, &out, `SELECT `+providerColumns+` FROM providers
        WHERE (alias, id) IN (SELECT * FROM unnest($1::text[], $2::text[]))`, aliases, ids)
	return out, err
}

// FindByToken resolves an API token to its provider.
func (r *ProviderRepo) FindByToken(ctx context.Context, token string) (models.ProviderRecord, error) {
	sum := sha256.Sum256([]byte(token))
	var p models.ProviderRecord
	err := r.db.GetContext(ctx, &p, `SELECT p.alias, p.id, p.name, p.email, p.avatar, p.created_at FROM providers p
        INNER JOIN provider_tokens t ON t.alias = p.alias AND t.provider_id = p.id
        WHERE t.token_hash=$1`, hex.EncodeToString(sum[:]))
	return p, notFound(err, ErrProviderNotFound)
}

// Search matches query against the given columns of each alias. columns
// maps alias -> searchable columns; unknown columns are ignored.
func (r *ProviderRepo) Search(ctx context.Context, columns map[string][]string, query string, limit int) ([]models.ProviderRecord, error) {
	args := []interface{}{"%" + query + "%"}
	var clauses []string
	for alias, cols := range columns {
		var matches []string
		for _, col := range cols {
			if searchableColumns[col] {
				matches = append(matches, fmt.Sprintf("%s ILIKE $1", col))
			}
		}
		if len(matches) == 0 {
			continue
		}
		args = append(args, alias)
		clauses = append(clauses, fmt.Sprintf("(alias = $%d AND (%s))", len(args), strings.Join(matches, " OR ")))
	}
	if len(clauses) == 0 {
		return nil, nil
	}
	args = append(args, limit)
	q := fmt.Sprintf(`SELECT %s FROM providers WHERE %s ORDER BY name ASC LIMIT $%d`, providerColumns, strings.Join(clauses, " OR "), len(args))

	var out []models.ProviderRecord
	err := r.db.SelectContext(ctx, &out, q, args...)
	return out, err
}
