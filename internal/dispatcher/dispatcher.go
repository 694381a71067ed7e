// Package dispatcher fans a product list out over a bounded worker pool and
// reassembles results in input order.
package dispatcher

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"pricescout/internal/extractor"
	"pricescout/internal/metrics"
	"pricescout/internal/pricing"
	"pricescout/internal/task"
)

// Worker pool bounds. A single worker still makes forward progress; the
// ceiling keeps the crawl polite toward the target storefronts.
const (
	MinWorkers = 1
	MaxWorkers = 7
)

// ClampWorkers brings a requested worker count into the allowed range.
func ClampWorkers(n int) int {
	if n < MinWorkers {
		return MinWorkers
	}
	if n > MaxWorkers {
		return MaxWorkers
	}
	return n
}

// Config wires a Dispatcher.
type Config struct {
	Registry *extractor.Registry
	Fetcher  pricing.Fetcher
	Store    pricing.ResultStore
	Progress *pricing.RunProgress
	Signal   *pricing.CancelSignal
	Clock    pricing.Clock
	MinPause time.Duration
	MaxPause time.Duration
	Logger   *zap.Logger
}

// Dispatcher runs one crawl: it builds the site strategy, spreads products
// over workers, and appends finished results to the store in input order no
// matter which worker finishes first.
type Dispatcher struct {
	cfg Config
}

// New creates a Dispatcher.
func New(cfg Config) *Dispatcher {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Dispatcher{cfg: cfg}
}

type indexedResult struct {
	idx    int
	result pricing.ProductResult
}

// Run crawls products against the strategy registered for site. An unknown
// site fails before any task is submitted. The returned outcome reports
// Completed when every product produced a result and Cancelled when the
// cancel signal cut the run short; a signal raised after the last task
// finished still counts as a completed run.
func (d *Dispatcher) Run(ctx context.Context, site string, products []pricing.Product, workerCount int) (pricing.RunOutcome, error) {
	strat, err := d.cfg.Registry.New(site, extractor.Deps{
		Fetcher: d.cfg.Fetcher,
		Clock:   d.cfg.Clock,
		Logger:  d.cfg.Logger,
	})
	if err != nil {
		return pricing.RunOutcome{}, err
	}

	total := len(products)
	d.cfg.Progress.Reset(total)
	if total == 0 {
		d.cfg.Progress.ForceComplete()
		return pricing.RunOutcome{Completed: true}, nil
	}

	workers := ClampWorkers(workerCount)
	if workers > total {
		workers = total
	}

	runner := task.NewRunner(task.Config{
		Extractor: strat,
		Signal:    d.cfg.Signal,
		Clock:     d.cfg.Clock,
		MinPause:  d.cfg.MinPause,
		MaxPause:  d.cfg.MaxPause,
		Logger:    d.cfg.Logger,
	})

	jobs := make(chan int, total)
	for i := range products {
		jobs <- i
	}
	close(jobs)

	// Buffered to capacity so a worker can always hand off its last result
	// even after the collector has moved on.
	results := make(chan indexedResult, total)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.work(ctx, runner, products, jobs, results)
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	flushed, err := d.collect(total, results)
	if err != nil {
		return pricing.RunOutcome{}, err
	}

	if flushed == total {
		d.cfg.Progress.ForceComplete()
		return pricing.RunOutcome{Completed: true}, nil
	}
	return pricing.RunOutcome{Cancelled: true}, nil
}

// work pulls product indexes until the queue drains or the run is cancelled.
// A cancelled task produces nothing: its partial result is discarded and it
// does not advance progress.
func (d *Dispatcher) work(ctx context.Context, runner *task.Runner, products []pricing.Product, jobs <-chan int, results chan<- indexedResult) {
	for idx := range jobs {
		metrics.IncActiveWorkers()
		out := runner.Run(ctx, products[idx])
		metrics.DecActiveWorkers()

		if out.Cancelled {
			metrics.ObserveProduct("cancelled")
			return
		}

		results <- indexedResult{idx: idx, result: out.Result}
		d.cfg.Progress.MarkCompleted()
		metrics.ObserveProduct(productOutcome(out.Result))
	}
}

func productOutcome(r pricing.ProductResult) string {
	switch {
	case r.TaskError != "":
		return "task_error"
	case r.AllFailed():
		return "all_error"
	default:
		return "ok"
	}
}

// collect drains the result stream into a reorder buffer and flushes
// contiguous results to the store in input order. Returns how many results
// were flushed, which is less than total only when the run was cancelled.
func (d *Dispatcher) collect(total int, results <-chan indexedResult) (int, error) {
	buffer := make([]*pricing.ProductResult, total)
	next := 0
	flushed := 0

	for r := range results {
		res := r.result
		buffer[r.idx] = &res
		for next < total && buffer[next] != nil {
			if err := d.cfg.Store.Append(*buffer[next]); err != nil {
				return flushed, err
			}
			buffer[next] = nil
			next++
			flushed++
		}
	}

	// A cancelled run can leave a gap in the buffer; results stranded past
	// the gap still flush in order.
	for i := next; i < total; i++ {
		if buffer[i] == nil {
			continue
		}
		if err := d.cfg.Store.Append(*buffer[i]); err != nil {
			return flushed, err
		}
		flushed++
	}
	return flushed, nil
}
