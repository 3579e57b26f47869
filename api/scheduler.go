/*
scheduler.go - Automated payroll closing scheduler

PURPOSE:
  Periodically checks whether the previous month is due for closing and
  approves its DRAFT pay statements, making them immutable.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - The previous month is due once today's day-of-month reaches CloseDay
  - A month closed by this scheduler is not closed again
  - Statements calculated later for a closed month stay DRAFT until the
    next manual or scheduled closing

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - CloseDay: Day of the month the previous month closes (default: 5)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewClosingScheduler(handler.Orchestrator, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: ApprovePeriod endpoint (manual closing)
  - payroll/orchestrator.go: ApprovePeriod
*/
package api

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/warp/payroll-engine/generic"
)

// PeriodCloser approves every DRAFT statement of a month.
type PeriodCloser interface {
	ApprovePeriod(ctx context.Context, month generic.Month) (int, error)
}

// ClosingScheduler handles automated payroll closing.
type ClosingScheduler struct {
	Closer        PeriodCloser
	CheckInterval time.Duration
	CloseDay      int
	Enabled       bool

	logger     *slog.Logger
	now        func() time.Time
	lastClosed generic.Month
	runMu      sync.Mutex

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewClosingScheduler creates a new scheduler.
func NewClosingScheduler(closer PeriodCloser, logger *slog.Logger) *ClosingScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ClosingScheduler{
		Closer:        closer,
		CheckInterval: 1 * time.Hour,
		CloseDay:      5,
		Enabled:       true,
		logger:        logger,
		now:           time.Now,
		stop:          make(chan struct{}),
	}
}

// Start begins the scheduler.
func (cs *ClosingScheduler) Start() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if !cs.Enabled {
		cs.logger.Info("closing scheduler disabled, not starting")
		return
	}

	cs.ticker = time.NewTicker(cs.CheckInterval)
	cs.wg.Add(1)

	go cs.run()

	cs.logger.Info("closing scheduler started",
		"interval", cs.CheckInterval.String(), "close_day", cs.CloseDay)
}

// Stop stops the scheduler.
func (cs *ClosingScheduler) Stop() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.ticker != nil {
		cs.ticker.Stop()
		close(cs.stop)
		cs.wg.Wait()
		cs.ticker = nil
		cs.logger.Info("closing scheduler stopped")
	}
}

func (cs *ClosingScheduler) run() {
	defer cs.wg.Done()

	// Run immediately on start
	cs.RunNow(context.Background())

	for {
		select {
		case <-cs.ticker.C:
			cs.RunNow(context.Background())
		case <-cs.stop:
			return
		}
	}
}

// RunNow closes the previous month if it is due. It returns the month it
// closed and how many statements were approved; ok is false when nothing
// was due.
func (cs *ClosingScheduler) RunNow(ctx context.Context) (month generic.Month, approved int, ok bool) {
	cs.runMu.Lock()
	defer cs.runMu.Unlock()

	today := generic.DateOf(cs.now())
	due := generic.MonthOf(today).Previous()

	if today.Day() < cs.CloseDay {
		return generic.Month{}, 0, false
	}
	if cs.lastClosed == due {
		return generic.Month{}, 0, false
	}

	n, err := cs.Closer.ApprovePeriod(ctx, due)
	if err != nil {
		cs.logger.ErrorContext(ctx, "payroll closing failed", "month", due.String(), "error", err)
		return generic.Month{}, 0, false
	}

	cs.lastClosed = due
	cs.logger.InfoContext(ctx, "payroll closed", "month", due.String(), "approved", n)
	return due, n, true
}

// GetNextRunTime returns when the next scheduled check will occur.
func (cs *ClosingScheduler) GetNextRunTime() time.Time {
	return cs.now().Add(cs.CheckInterval)
}
