package gateway

import (
	"context"
	"fmt"
	"time"

	cron "github.com/netresearch/go-cron"
)

// JobsConfig schedules the gateway's housekeeping.
type JobsConfig struct {
	PruneSchedule string        // cron spec or descriptor, e.g. "@daily"
	Retention     time.Duration // detections older than this are pruned
	IdleSchedule  string        // defaults to "@every 1m"
	IdleTimeout   time.Duration // capture sessions untouched this long are closed
}

// Jobs runs the periodic history pruning and idle session reaping.
type Jobs struct {
	cron *cron.Cron
}

// StartJobs schedules the housekeeping jobs of s and starts the scheduler.
func (s *Server) StartJobs(cfg JobsConfig) (*Jobs, error) {
	c := cron.New()

	if s.history != nil && cfg.PruneSchedule != "" && cfg.Retention > 0 {
		if _, err := c.AddFunc(cfg.PruneSchedule, func() { s.prune(cfg.Retention) }); err != nil {
			return nil, fmt.Errorf("schedule history prune %q: %w", cfg.PruneSchedule, err)
		}
	}

	if cfg.IdleTimeout > 0 {
		spec := cfg.IdleSchedule
		if spec == "" {
			spec = "@every 1m"
		}
		if _, err := c.AddFunc(spec, func() {
			if n := s.sessions.CloseIdle(cfg.IdleTimeout); n > 0 {
				s.logger.Info("closed idle capture sessions", "count", n)
			}
		}); err != nil {
			return nil, fmt.Errorf("schedule idle sessions %q: %w", spec, err)
		}
	}

	c.Start()
	return &Jobs{cron: c}, nil
}

// Stop stops the scheduler and waits for running jobs.
func (j *Jobs) Stop() {
	<-j.cron.Stop().Done()
}

func (s *Server) prune(retention time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	n, err := s.history.Prune(ctx, time.Now().Add(-retention))
	if err != nil {
		s.logger.Error("history prune failed", "error", err)
		return
	}
	s.logger.Debug("history prune done", "removed", n)
}
