package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"currency-tracker/internal/domain/model"
	"currency-tracker/pkg/logger"
)

// Ingester runs one ingestion cycle. It must not fail as a whole; failures are
// reported per currency.
type Ingester interface {
	RunIngestion(ctx context.Context) model.CycleReport
}

// Scheduler fires ingestion cycles on a cron schedule. Cycles never overlap: a tick
// that arrives while a cycle is running is skipped, and the currencies that failed
// are retried on the next tick.
type Scheduler struct {
	ingester Ingester
	cron     *cron.Cron
	log      *logger.Logger

	mutex   sync.Mutex
	running sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	last    *model.CycleReport
}

func New(ingester Ingester, schedule string, location *time.Location, log *logger.Logger) (*Scheduler, error) {
	if location == nil {
		location = time.UTC
	}

	s := &Scheduler{
		ingester: ingester,
		log:      log,
		cron: cron.New(
			cron.WithLocation(location),
			cron.WithChain(cron.Recover(cron.DiscardLogger), cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
	}

	if _, err := s.cron.AddFunc(schedule, s.tick); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins firing cycles. With runNow the first cycle runs immediately in the
// background.
func (s *Scheduler) Start(ctx context.Context, runNow bool) {
	s.mutex.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mutex.Unlock()

	s.cron.Start()
	s.log.Info("Scheduler started", "next_run", s.Next())

	if runNow {
		go s.tick()
	}
}

// Stop cancels a running cycle and waits for it to return.
func (s *Scheduler) Stop() {
	s.mutex.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mutex.Unlock()

	<-s.cron.Stop().Done()
	s.running.Lock()
	s.running.Unlock()
	s.log.Info("Scheduler stopped")
}

// Trigger runs a cycle now on the caller's goroutine. It waits for a cycle already
// in flight to finish first. Stop cancels a triggered cycle like a scheduled one.
// A scheduled tick that fires while a triggered cycle runs is skipped; the triggered
// cycle has just ingested the same currencies.
func (s *Scheduler) Trigger(ctx context.Context) model.CycleReport {
	s.running.Lock()
	defer s.running.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mutex.Lock()
	base := s.ctx
	s.mutex.Unlock()
	if base != nil {
		stop := context.AfterFunc(base, cancel)
		defer stop()
	}

	return s.run(ctx)
}

func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// LastReport returns the most recently completed cycle, if any.
func (s *Scheduler) LastReport() (model.CycleReport, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.last == nil {
		return model.CycleReport{}, false
	}
	return *s.last, true
}

func (s *Scheduler) tick() {
	if !s.running.TryLock() {
		s.log.Warn("Previous ingestion cycle still running, skipping tick")
		return
	}
	defer s.running.Unlock()

	s.mutex.Lock()
	ctx := s.ctx
	s.mutex.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Err() != nil {
		return
	}

	s.run(ctx)
}

func (s *Scheduler) run(ctx context.Context) model.CycleReport {
	report := s.ingester.RunIngestion(ctx)

	s.mutex.Lock()
	s.last = &report
	s.mutex.Unlock()

	if report.Failed() > 0 {
		s.log.Warn("Ingestion cycle finished with failures, retrying at next run",
			"cycle_id", report.ID, "failed", report.Failed(), "next_run", s.Next())
	}
	return report
}
