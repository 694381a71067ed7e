// Package task runs the per-product crawl: reference channel first, then
// each competitor in input order, with politeness pauses in between.
package task

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"pricescout/internal/pricing"
)

// Outcome is the result of running one product task. When Cancelled is set
// the partial Result must be discarded; it never reaches the result stream.
type Outcome struct {
	Result    pricing.ProductResult
	Cancelled bool
}

// Runner executes one product's fetches against a single extractor strategy.
// Safe for concurrent use by multiple workers.
type Runner struct {
	extractor pricing.Extractor
	signal    *pricing.CancelSignal
	clock     pricing.Clock
	minPause  time.Duration
	maxPause  time.Duration
	logger    *zap.Logger
}

// Config configures a Runner.
type Config struct {
	Extractor pricing.Extractor
	Signal    *pricing.CancelSignal
	Clock     pricing.Clock
	// MinPause and MaxPause bound the random politeness pause inserted
	// between consecutive seller requests. Zero disables pausing.
	MinPause time.Duration
	MaxPause time.Duration
	Logger   *zap.Logger
}

// NewRunner builds a Runner.
func NewRunner(cfg Config) *Runner {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.MaxPause < cfg.MinPause {
		cfg.MaxPause = cfg.MinPause
	}
	return &Runner{
		extractor: cfg.Extractor,
		signal:    cfg.Signal,
		clock:     cfg.Clock,
		minPause:  cfg.MinPause,
		maxPause:  cfg.MaxPause,
		logger:    cfg.Logger,
	}
}

// Run crawls every configured channel of the product. Per-seller failures
// land inside the individual records; only a panic in the extraction path
// surfaces as the product-level TaskError, so one poisoned page cannot take
// a worker down. A cancellation observed before any request, or between
// requests, abandons the product without producing a result.
func (r *Runner) Run(ctx context.Context, product pricing.Product) (out Outcome) {
	if r.signal.Cancelled() {
		return Outcome{Cancelled: true}
	}

	result := pricing.ProductResult{
		ProductID:   product.ID,
		ProductName: product.Name,
		Timestamp:   r.clock.Now(),
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("product task panicked",
				zap.String("product_id", product.ID),
				zap.Any("panic", rec))
			result.TaskError = fmt.Sprintf("task panic: %v", rec)
			out = Outcome{Result: result}
		}
	}()

	first := true
	visit := func(seller, url string) bool {
		if r.signal.Cancelled() {
			return false
		}
		if !first && !r.pause(ctx) {
			return false
		}
		first = false
		rec := r.extractor.Extract(ctx, url)
		rec.Seller = seller
		result.Prices = append(result.Prices, rec)
		return true
	}

	if ref := product.Reference; ref != nil {
		if !visit(pricing.ReferenceSeller, ref.URL) {
			return Outcome{Cancelled: true}
		}
	}
	for _, comp := range product.Competitors {
		if !visit(comp.Name, comp.URL) {
			return Outcome{Cancelled: true}
		}
	}

	return Outcome{Result: result}
}

// pause sleeps for a uniformly random duration between the configured
// bounds. Returns false when the run was cancelled while sleeping.
func (r *Runner) pause(ctx context.Context) bool {
	d := r.minPause
	if span := r.maxPause - r.minPause; span > 0 {
		d += time.Duration(rand.Int64N(int64(span) + 1))
	}
	if d <= 0 {
		return !r.signal.Cancelled()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return !r.signal.Cancelled()
	}
}
