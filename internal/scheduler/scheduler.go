// Package scheduler runs the daily pipeline on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"nba_forecasting/pipeline/internal/config"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// PipelineFunc runs one full pipeline pass for the given game date.
type PipelineFunc func(ctx context.Context, date time.Time) error

// Scheduler triggers the daily pipeline run. Each run targets the
// previous calendar day, when the provider has final boxscores.
type Scheduler struct {
	cfg      *config.Config
	run      PipelineFunc
	cron     *cron.Cron
	stopChan chan struct{}
}

// NewScheduler creates a scheduler around a pipeline run function.
func NewScheduler(cfg *config.Config, run PipelineFunc) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		run:      run,
		cron:     cron.New(),
		stopChan: make(chan struct{}),
	}
}

// Start registers the daily cron job and starts the cron loop.
func (s *Scheduler) Start(ctx context.Context) error {
	log.Info().Msg("Scheduler starting...")

	if _, err := s.cron.AddFunc(s.cfg.DailyPipelineCron, func() {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		default:
		}

		date := time.Now().UTC().AddDate(0, 0, -1)
		log.Info().
			Str("date", date.Format("2006-01-02")).
			Msg("Running scheduled pipeline...")

		if err := s.run(ctx, date); err != nil {
			log.Error().Err(err).
				Str("date", date.Format("2006-01-02")).
				Msg("Scheduled pipeline run failed")
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule daily pipeline: %w", err)
	}

	s.cron.Start()
	log.Info().
		Str("schedule", s.cfg.DailyPipelineCron).
		Bool("skip_ingest", s.cfg.SkipIngest).
		Msg("Daily pipeline scheduled")

	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	log.Info().Msg("Stopping scheduler...")

	close(s.stopChan)
	if s.cron != nil {
		stopCtx := s.cron.Stop()
		<-stopCtx.Done()
	}

	log.Info().Msg("Scheduler stopped")
}
