package monitoring

import (
	"context"
	"fmt"
	"time"

	"github.com/isdelr/diary-be/internal/apperr"
	"github.com/isdelr/diary-be/internal/metrics"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Maintainer runs one round of storage housekeeping.
type Maintainer interface {
	Maintain(ctx context.Context) error
	Name() string
}

// maintenanceTimeout bounds a single maintenance run.
const maintenanceTimeout = 5 * time.Minute

// Scheduler runs storage maintenance on a cron schedule.
type Scheduler struct {
	target  Maintainer
	cron    *cron.Cron
	spec    string
	metrics *metrics.Metrics
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}

// NewScheduler creates a scheduler running target.Maintain at spec, a
// standard five-field cron expression or a descriptor such as @daily.
// m may be nil.
func NewScheduler(target Maintainer, spec string, m *metrics.Metrics) (*Scheduler, error) {
	logger := cronLogger{}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	s := &Scheduler{target: target, cron: c, spec: spec, metrics: m}
	if _, err := c.AddFunc(spec, func() { _ = s.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid maintenance schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	log.Info().Str("schedule", s.spec).Str("backend", s.target.Name()).Msg("Starting maintenance scheduler")
	s.cron.Start()
}

// Stop halts the scheduler and waits for a running job to finish or ctx
// to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		log.Info().Msg("Stopping maintenance scheduler.")
	case <-ctx.Done():
		log.Warn().Msg("Maintenance still running at shutdown")
	}
}

// Next reports when the job fires next. It is zero until Start.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// RunOnce performs one maintenance run immediately.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, maintenanceTimeout)
	defer cancel()

	start := time.Now()
	if err := s.target.Maintain(ctx); err != nil {
		s.metrics.RecordMaintenance(metrics.ResultError)
		apperr.Log(log.Error(), err).Str("backend", s.target.Name()).Msg("Scheduled maintenance failed")
		return err
	}
	s.metrics.RecordMaintenance(metrics.ResultSuccess)
	log.Info().Str("backend", s.target.Name()).Dur("took", time.Since(start)).Msg("Scheduled maintenance finished")
	return nil
}
