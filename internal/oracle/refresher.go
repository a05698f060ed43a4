package oracle

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrBusy is returned by Trigger while a refresh is queued or running.
var ErrBusy = errors.New("price refresh already queued or running")

// Status is the lifecycle state of the refresher.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// Updater refreshes the stored market data of one ticker.
type Updater interface {
	RefreshTicker(ctx context.Context, ticker string) error
}

// RunResult contains the outcome of a refresh run.
type RunResult struct {
	Tickers   int
	Refreshed int
	Errors    []FetchError
	Duration  time.Duration
}

// Progress is a snapshot of the refresher state.
type Progress struct {
	Status     Status     `json:"status"`
	Total      int        `json:"total"`
	Done       int        `json:"done"`
	Failed     int        `json:"failed"`
	Errors     []string   `json:"errors,omitempty"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Refresher runs price refreshes on a single background worker fed by a
// one-slot queue. State is only mutated under mu.
type Refresher struct {
	updater     Updater
	concurrency int
	logger      *zap.SugaredLogger
	queue       chan []string

	mu       sync.Mutex
	progress Progress
}

// NewRefresher creates a refresher that updates at most concurrency tickers at once.
func NewRefresher(updater Updater, concurrency int, logger *zap.SugaredLogger) *Refresher {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Refresher{
		updater:     updater,
		concurrency: concurrency,
		logger:      logger,
		queue:       make(chan []string, 1),
		progress:    Progress{Status: StatusIdle},
	}
}

// Start runs the worker until ctx is cancelled.
func (r *Refresher) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case tickers := <-r.queue:
				r.Run(ctx, tickers)
			}
		}
	}()
}

// Trigger queues a refresh of tickers for the worker.
func (r *Refresher) Trigger(tickers []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.progress.Status == StatusQueued || r.progress.Status == StatusRunning {
		return ErrBusy
	}
	select {
	case r.queue <- tickers:
	default:
		return ErrBusy
	}
	r.progress = Progress{Status: StatusQueued, Total: len(tickers)}
	return nil
}

// Status returns a copy of the current progress.
func (r *Refresher) Status() Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.progress
	p.Errors = append([]string(nil), r.progress.Errors...)
	return p
}

// Run refreshes tickers synchronously. A failing ticker never stops the others.
func (r *Refresher) Run(ctx context.Context, tickers []string) *RunResult {
	start := time.Now()
	r.mu.Lock()
	r.progress = Progress{Status: StatusRunning, Total: len(tickers), StartedAt: &start}
	r.mu.Unlock()

	result := &RunResult{Tickers: len(tickers)}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for _, ticker := range tickers {
		g.Go(func() error {
			err := r.updater.RefreshTicker(gctx, ticker)

			r.mu.Lock()
			defer r.mu.Unlock()
			if err != nil {
				r.logger.Warnw("price refresh failed", "ticker", ticker, "error", err)
				result.Errors = append(result.Errors, FetchError{Ticker: ticker, Err: err})
				r.progress.Failed++
				r.progress.Errors = append(r.progress.Errors, ticker+": "+err.Error())
				return nil
			}
			result.Refreshed++
			r.progress.Done++
			return nil
		})
	}
	_ = g.Wait()

	result.Duration = time.Since(start)
	finished := time.Now()

	r.mu.Lock()
	r.progress.FinishedAt = &finished
	if len(tickers) > 0 && result.Refreshed == 0 || ctx.Err() != nil {
		r.progress.Status = StatusError
	} else {
		r.progress.Status = StatusCompleted
	}
	r.mu.Unlock()

	r.logger.Infow("price refresh finished",
		"tickers", result.Tickers,
		"refreshed", result.Refreshed,
		"errors", len(result.Errors),
		"duration", result.Duration.String(),
	)
	return result
}
