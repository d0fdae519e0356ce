package services

import (
	"context"
	"strings"

	"messenger-service/internal/models"
	"messenger-service/internal/provider"
	"messenger-service/internal/repositories"
)

const minSearchLength = 2

// SearchService finds providers the requester may see.
type SearchService struct {
	providers repositories.ProviderRepository
	registry  *provider.Registry
	pageSize  int
}

// NewSearchService constructs a SearchService.
func NewSearchService(providers repositories.ProviderRepository, registry *provider.Registry, pageSize int) *SearchService {
	return &SearchService{providers: providers, registry: registry, pageSize: pageSize}
}

// Search matches query against every alias the requester can search. The
// requester never appears in its own results.
func (s *SearchService) Search(ctx context.Context, requester models.ProviderRef, query string) ([]models.ProviderRecord, error) {
	query = strings.TrimSpace(query)
	if len(query) < minSearchLength {
		return nil, invalid("query", "min")
	}
	columns := map[string][]string{}
	for _, alias := range s.registry.SearchableAliases(requester.Alias) {
		columns[alias] = s.registry.SearchColumns(alias)
	}
	if len(columns) == 0 {
		return []models.ProviderRecord{}, nil
	}

	records, err := s.providers.Search(ctx, columns, query, s.pageSize+1)
	if err != nil {
		return nil, err
	}
	out := make([]models.ProviderRecord, 0, len(records))
	for _, rec := range records {
		if rec.Ref() == requester {
			continue
		}
		out = append(out, rec)
		if len(out) == s.pageSize {
			break
		}
	}
	return out, nil
}
