package server

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler runs periodic syncs of a Server.
type Scheduler struct {
	cron    *cron.Cron
	log     zerolog.Logger
	timeout time.Duration
}

// NewScheduler creates a scheduler whose syncs are cancelled after timeout.
func NewScheduler(log zerolog.Logger, timeout time.Duration) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		log:     log.With().Str("component", "scheduler").Logger(),
		timeout: timeout,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("Scheduler started")
}

// Stop stops the scheduler and waits for a running sync to return.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}

// AddSync registers a sync of srv on schedule, for instance "@every 15m" or
// "30 16 * * MON-FRI". A tick is skipped while a sync is already running.
func (s *Scheduler) AddSync(schedule string, srv *Server) error {
	_, err := s.cron.AddFunc(schedule, func() { s.run(srv) })
	if err != nil {
		return err
	}
	s.log.Info().Str("schedule", schedule).Msg("Sync registered")
	return nil
}

func (s *Scheduler) run(srv *Server) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	s.log.Debug().Msg("Running sync")
	res, err := srv.Sync(ctx)
	switch {
	case errors.Is(err, ErrBusy):
		s.log.Info().Msg("Sync skipped, another one is running")
	case err != nil:
		s.log.Error().Err(err).Msg("Sync failed")
	default:
		s.log.Debug().Int("fetched", res.Fetched).Int("unmatched", len(res.Unmatched)).Msg("Sync completed")
	}
}
