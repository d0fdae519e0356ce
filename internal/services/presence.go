package services

import (
	"time"

	"github.com/patrickmn/go-cache"

	"messenger-service/internal/config"
	"messenger-service/internal/models"
)

// PresenceService tracks online status in memory. Entries expire after
// the configured lifetime unless touched again.
type PresenceService struct {
	cfg      config.OnlineStatusConfig
	statuses *cache.Cache
}

// NewPresenceService constructs a PresenceService.
func NewPresenceService(cfg config.OnlineStatusConfig) *PresenceService {
	return &PresenceService{
		cfg:      cfg,
		statuses: cache.New(cfg.Lifetime, time.Minute),
	}
}

func presenceKey(provider models.ProviderRef) string {
	return "online:" + provider.String()
}

// Touch marks the provider online, or away.
func (s *PresenceService) Touch(provider models.ProviderRef, away bool) {
	if !s.cfg.Enabled {
		return
	}
	status := models.StatusOnline
	if away {
		status = models.StatusAway
	}
	s.statuses.Set(presenceKey(provider), status, s.cfg.Lifetime)
}

// Status is offline when presence is disabled or the entry expired.
func (s *PresenceService) Status(provider models.ProviderRef) models.OnlineStatus {
	if !s.cfg.Enabled {
		return models.StatusOffline
	}
	if v, ok := s.statuses.Get(presenceKey(provider)); ok {
		return v.(models.OnlineStatus)
	}
	return models.StatusOffline
}

// Statuses resolves several providers at once.
func (s *PresenceService) Statuses(providers []models.ProviderRef) map[string]models.OnlineStatus {
	out := make(map[string]models.OnlineStatus, len(providers))
	for _, p := range providers {
		out[p.String()] = s.Status(p)
	}
	return out
}

// Forget marks the provider offline immediately.
func (s *PresenceService) Forget(provider models.ProviderRef) {
	s.statuses.Delete(presenceKey(provider))
}
