package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/one-system/case-service/internal/config"
	"github.com/one-system/case-service/internal/service"
)

// Scheduler runs the periodic maintenance jobs: overdue-tier recomputation
// and the daily summary refresh. Both jobs are idempotent, so a tick that
// overlaps a manual run is harmless.
type Scheduler struct {
	cfg     config.SchedulerConfig
	sla     *service.SLAService
	summary *service.SummaryService
	logger  *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler constructs the scheduler.
func NewScheduler(cfg config.SchedulerConfig, sla *service.SLAService, summary *service.SummaryService, logger *zap.Logger) *Scheduler {
	return &Scheduler{cfg: cfg, sla: sla, summary: summary, logger: logger}
}

// Start launches the job loops. Each job runs once at startup so a freshly
// deployed instance converges without waiting a full interval.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.launch(ctx, "sla_recompute", time.Duration(s.cfg.SLARecomputeMinutes)*time.Minute, func(ctx context.Context) error {
		_, err := s.sla.BulkRecompute(ctx)
		return err
	})
	s.launch(ctx, "summary_refresh", time.Duration(s.cfg.SummaryRefreshMinutes)*time.Minute, func(ctx context.Context) error {
		_, err := s.summary.RefreshRecent(ctx)
		return err
	})
}

// Stop cancels the loops and waits for in-flight runs to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) launch(ctx context.Context, name string, interval time.Duration, job func(context.Context) error) {
	if interval <= 0 {
		s.logger.Info("scheduled job disabled", zap.String("job", name))
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx, name, job)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.run(ctx, name, job)
			}
		}
	}()
}

func (s *Scheduler) run(ctx context.Context, name string, job func(context.Context) error) {
	start := time.Now()
	if err := job(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Error("scheduled job failed", zap.String("job", name), zap.Error(err))
		return
	}
	s.logger.Debug("scheduled job completed",
		zap.String("job", name), zap.Duration("took", time.Since(start)))
}
