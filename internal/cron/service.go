package cron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const defaultInterval = time.Minute

// ServiceParams configure the cron service.
type ServiceParams struct {
	Logger   *slog.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *JobMetrics
	Interval time.Duration
}

// Service executes registered jobs once at start and then on a fixed cadence.
type Service struct {
	logger   *slog.Logger
	registry *Registry
	lock     Lock
	metrics  *JobMetrics
	interval time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	lock := params.Lock
	if lock == nil {
		lock = NewLocalLock()
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Service{
		logger:   params.Logger,
		registry: registry,
		lock:     lock,
		metrics:  params.Metrics,
		interval: interval,
	}, nil
}

// Run blocks until ctx is canceled and returns ctx.Err().
func (s *Service) Run(ctx context.Context) error {
	if err := s.RunCycle(ctx); err != nil {
		s.logger.ErrorContext(ctx, "scheduled run failed", "error", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "cron service stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := s.RunCycle(ctx); err != nil {
				s.logger.ErrorContext(ctx, "scheduled run failed", "error", err)
			}
		}
	}
}

// RunCycle runs every registered job once. Job failures are logged and
// recorded but do not stop the remaining jobs.
func (s *Service) RunCycle(ctx context.Context) error {
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		s.logger.InfoContext(ctx, "previous cycle still running, skipping")
		return nil
	}
	defer func() {
		if err := s.lock.Release(ctx); err != nil {
			s.logger.ErrorContext(ctx, "failed to release cron lock", "error", err)
		}
	}()

	for _, job := range s.registry.Jobs() {
		s.runJob(ctx, job)
	}
	return nil
}

func (s *Service) runJob(ctx context.Context, job Job) {
	logger := s.logger.With("job", job.Name())
	logger.DebugContext(ctx, "job start")

	start := time.Now()
	err := job.Run(ctx)
	duration := time.Since(start)
	s.metrics.ObserveDuration(job.Name(), duration)

	if err != nil {
		logger.ErrorContext(ctx, "job failed", "error", err, "duration_ms", duration.Milliseconds())
		s.metrics.IncFailure(job.Name())
		return
	}
	logger.DebugContext(ctx, "job completed", "duration_ms", duration.Milliseconds())
	s.metrics.IncSuccess(job.Name())
}
