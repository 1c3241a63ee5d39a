package api

import (
	"context"

	"github.com/wonny/solarcapture/internal/contracts"
	"github.com/wonny/solarcapture/pkg/logger"
	"github.com/wonny/solarcapture/pkg/redis"
)

// CacheInvalidator drops every cached summary response after a run
func CacheInvalidator(cache *redis.Cache, log *logger.Logger) func(ctx context.Context, s *contracts.RunSummary) {
	return func(ctx context.Context, s *contracts.RunSummary) {
		n, err := cache.Flush(ctx)
		if err != nil {
			log.WithError(err).WithField("run_id", s.RunID).Warn("Failed to invalidate summary cache")
			return
		}
		log.WithFields(map[string]interface{}{
			"run_id": s.RunID,
			"keys":   n,
		}).Debug("Summary cache invalidated")
	}
}
