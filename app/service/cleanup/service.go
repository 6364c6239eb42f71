// Package cleanup purges stale sessions from the store, on a timer and on
// demand. Already-persisted summary files are never touched.
package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/DandyChux/raecer-bot/app/config"
	"github.com/DandyChux/raecer-bot/app/service/store"
	"github.com/samber/do"
)

type Service struct {
	cfg   *config.Config
	store *store.Service
}

func New(di *do.Injector) (*Service, error) {
	return NewService(
		do.MustInvoke[*config.Config](di),
		do.MustInvoke[*store.Service](di),
	), nil
}

func NewService(cfg *config.Config, sessions *store.Service) *Service {
	return &Service{
		cfg:   cfg,
		store: sessions,
	}
}

// Purge removes sessions idle longer than maxAge, regardless of status, and
// returns the count removed.
func (s *Service) Purge(maxAge time.Duration) int {
	removed := s.store.PurgeOlderThan(maxAge)

	if removed > 0 {
		slog.Info("Purged stale sessions",
			"removed", removed,
			"max_age", maxAge,
		)
	}

	return removed
}

// Run purges on the configured interval until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.CleanupInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Purge(s.cfg.SessionTTL())
		}
	}
}
