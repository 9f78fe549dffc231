// Package catalog serves the list of offerable webinars, read-only, backed by
// the upstream backend with a short-lived Redis cache in front.
package catalog

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/aura-webinar/client/internal/models"
)

// ListLimit caps the catalog at the most recent webinars. Policy constant,
// not user-controlled.
const ListLimit = 5

// ErrUnavailable means neither the backend nor the cache could serve the
// catalog. Retry is a UI concern; the service never retries on its own.
var ErrUnavailable = errors.New("webinar catalog unavailable")

// Source fetches the full catalog from the system of record.
type Source interface {
	ListWebinars(ctx context.Context) ([]models.Webinar, error)
}

// Cache stores a catalog snapshot between backend fetches.
type Cache interface {
	Get(ctx context.Context) ([]models.Webinar, bool)
	Set(ctx context.Context, webinars []models.Webinar, ttl time.Duration)
}

// Service is the webinar catalog.
type Service struct {
	source Source
	cache  Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewService creates a catalog service. cache may be nil to disable caching.
func NewService(source Source, cache Cache, ttl time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{source: source, cache: cache, ttl: ttl, logger: logger}
}

// List returns the most recent webinars, newest first, truncated to ListLimit.
func (s *Service) List(ctx context.Context) ([]models.Webinar, error) {
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx); ok {
			return cached, nil
		}
	}

	all, err := s.source.ListWebinars(ctx)
	if err != nil {
		s.logger.Error("catalog fetch failed", zap.Error(err))
		return nil, ErrUnavailable
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Date.After(all[j].Date)
	})
	if len(all) > ListLimit {
		all = all[:ListLimit]
	}

	if s.cache != nil {
		s.cache.Set(ctx, all, s.ttl)
	}
	return all, nil
}
