package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
)

// DefaultSchedule runs a pass every six hours. DailySchedule is the once a
// day alternative, meant to be evaluated in UTC.
const (
	DefaultSchedule = "0 */6 * * *"
	DailySchedule   = "0 8 * * *"
)

// Runner runs one ingestion pass.
type Runner interface {
	RunPass(ctx context.Context) PassSummary
}

type SchedulerConfig struct {
	Cron       string
	Location   *time.Location
	RunOnStart bool
}

// Scheduler triggers ingestion passes on a cron schedule. At most one pass
// runs at a time; a trigger that fires while a pass is running is dropped.
type Scheduler struct {
	runner Runner
	cfg    SchedulerConfig

	sched *gocron.Scheduler

	mu      sync.Mutex
	running bool
	stopped bool
	wg      sync.WaitGroup

	passCtx context.Context
	cancel  context.CancelFunc
}

func NewScheduler(runner Runner, cfg SchedulerConfig) *Scheduler {
	if cfg.Cron == "" {
		cfg.Cron = DefaultSchedule
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	return &Scheduler{
		runner: runner,
		cfg:    cfg,
	}
}

// Start registers the schedule and, if configured, kicks off a pass right
// away without waiting for it. Passes run under a context that keeps ctx's
// values but is only cancelled by Stop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.passCtx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))

	s.sched = gocron.NewScheduler(s.cfg.Location)
	s.sched.SingletonModeAll()
	if _, err := s.sched.Cron(s.cfg.Cron).Do(s.trigger); err != nil {
		s.cancel()
		return fmt.Errorf("error scheduling ingestion %q: %w", s.cfg.Cron, err)
	}
	s.sched.StartAsync()
	slog.InfoContext(ctx, "ingestion scheduled", slog.String("cron", s.cfg.Cron))

	if s.cfg.RunOnStart {
		go s.trigger()
	}

	return nil
}

func (s *Scheduler) trigger() {
	s.mu.Lock()
	if s.stopped || s.running {
		s.mu.Unlock()
		slog.WarnContext(s.passCtx, "skipping ingestion trigger, a pass is running or the scheduler stopped")
		return
	}
	s.running = true
	s.wg.Add(1)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		s.wg.Done()
	}()

	s.runner.RunPass(s.passCtx)
}

// Stop drops future triggers and waits for the running pass, if any. When
// ctx expires first the pass is cancelled and ctx's error returned once it
// has wound down.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	if s.cancel == nil {
		return nil
	}
	defer s.cancel()

	done := make(chan struct{})
	go func() {
		s.sched.Stop()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "cancelling in-flight ingestion pass")
		s.cancel()
		<-done
		return ctx.Err()
	}
}
