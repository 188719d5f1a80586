// Package heartbeat runs periodic maintenance: provider health checks
// and conversation retention pruning, on a cron schedule.
package heartbeat

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"github.com/dotsetgreg/dotchat/pkg/config"
	"github.com/dotsetgreg/dotchat/pkg/convo"
	"github.com/dotsetgreg/dotchat/pkg/logger"
	"github.com/dotsetgreg/dotchat/pkg/providers"
)

// Service evaluates its cron schedule once a minute and runs a
// maintenance pass whenever the schedule is due.
type Service struct {
	cfg      config.HeartbeatConfig
	store    *convo.Store
	registry *providers.Registry
	cron     *gronx.Gronx

	// clock is swapped in tests.
	clock func() time.Time
}

func NewService(cfg config.HeartbeatConfig, store *convo.Store, registry *providers.Registry) (*Service, error) {
	cron := gronx.New()
	if cfg.Enabled && !cron.IsValid(cfg.Schedule) {
		return nil, fmt.Errorf("invalid heartbeat schedule %q", cfg.Schedule)
	}
	return &Service{
		cfg:      cfg,
		store:    store,
		registry: registry,
		cron:     cron,
		clock:    time.Now,
	}, nil
}

// Run blocks until ctx is cancelled. When the service is disabled it
// returns immediately.
func (s *Service) Run(ctx context.Context) error {
	if !s.cfg.Enabled {
		logger.InfoCF("heartbeat", "Heartbeat disabled", nil)
		return nil
	}

	logger.InfoCF("heartbeat", "Heartbeat started", map[string]interface{}{
		"schedule":       s.cfg.Schedule,
		"retention_days": s.cfg.RetentionDays,
	})

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.InfoCF("heartbeat", "Heartbeat stopped", nil)
			return ctx.Err()
		case <-ticker.C:
			now := s.clock()
			due, err := s.cron.IsDue(s.cfg.Schedule, now)
			if err != nil {
				logger.WarnCF("heartbeat", "Schedule evaluation failed",
					map[string]interface{}{"error": err.Error()})
				continue
			}
			if due {
				s.runOnce(ctx)
			}
		}
	}
}

// runOnce executes a single maintenance pass.
func (s *Service) runOnce(ctx context.Context) {
	start := s.clock()

	names := s.registry.Names()
	logger.DebugCF("heartbeat", "Provider check", map[string]interface{}{
		"configured": len(names),
		"providers":  names,
	})
	if len(names) == 0 {
		logger.WarnCF("heartbeat", "No providers configured", nil)
	}

	pruned := 0
	if s.cfg.RetentionDays > 0 {
		cutoff := start.AddDate(0, 0, -s.cfg.RetentionDays)
		n, err := s.store.PruneOlderThan(ctx, cutoff)
		if err != nil {
			logger.WarnCF("heartbeat", "Retention prune failed",
				map[string]interface{}{"error": err.Error()})
		} else {
			pruned = n
		}
	}

	logger.InfoCF("heartbeat", "Heartbeat tick", map[string]interface{}{
		"providers":   len(names),
		"pruned":      pruned,
		"duration_ms": time.Since(start).Milliseconds(),
	})
}
