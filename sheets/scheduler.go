/*
scheduler.go - Background flush of the sheet journal

PURPOSE:
  Commands flush the journal right after they change the session. When the
  spreadsheet is unreachable the rows stay buffered; this scheduler keeps
  retrying on an interval so they drain without waiting for the next
  command.

USAGE:
  scheduler := NewFlushScheduler(journal, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop(ctx)
*/
package sheets

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// FlushScheduler flushes a Journal periodically.
type FlushScheduler struct {
	Journal       *Journal
	CheckInterval time.Duration
	Enabled       bool

	logger *slog.Logger
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

func NewFlushScheduler(journal *Journal, logger *slog.Logger) *FlushScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &FlushScheduler{
		Journal:       journal,
		CheckInterval: time.Minute,
		Enabled:       true,
		logger:        logger.With("component", "flush-scheduler"),
	}
}

// Start begins the scheduler. Calling it twice is a no-op.
func (fs *FlushScheduler) Start() {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if !fs.Enabled {
		fs.logger.Info("disabled, not starting")
		return
	}
	if fs.ticker != nil {
		return
	}

	fs.ticker = time.NewTicker(fs.CheckInterval)
	fs.stop = make(chan struct{})
	fs.wg.Add(1)

	go fs.run(fs.ticker, fs.stop)

	fs.logger.Info("started", "interval", fs.CheckInterval)
}

// Stop stops the scheduler and runs one last flush.
func (fs *FlushScheduler) Stop(ctx context.Context) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.ticker == nil {
		return
	}
	fs.ticker.Stop()
	close(fs.stop)
	fs.wg.Wait()
	fs.ticker = nil

	if err := fs.Journal.Flush(ctx); err != nil {
		fs.logger.Error("final flush failed", "error", err, "pending", fs.Journal.Pending())
	}
	fs.logger.Info("stopped")
}

func (fs *FlushScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer fs.wg.Done()

	for {
		select {
		case <-ticker.C:
			fs.RunNow(context.Background())
		case <-stop:
			return
		}
	}
}

// RunNow flushes immediately when anything is pending.
func (fs *FlushScheduler) RunNow(ctx context.Context) {
	pending := fs.Journal.Pending()
	if pending == 0 {
		return
	}

	if err := fs.Journal.Flush(ctx); err != nil {
		fs.logger.Warn("flush failed, rows kept for the next run", "error", err, "pending", fs.Journal.Pending())
		return
	}
	fs.logger.Info("flushed buffered rows", "count", pending)
}
