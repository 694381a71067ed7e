// Package fetcher performs single-page HTTP GETs with retry and backoff.
package fetcher

import (
	"context"
	"time"

	"go.uber.org/zap"
	"resty.dev/v3"

	"pricescout/internal/metrics"
	"pricescout/internal/pricing"
	"pricescout/internal/ratelimit"
)

const (
	defaultMaxAttempts = 3
	defaultBackoffBase = time.Second
	defaultTimeout     = 10 * time.Second
)

// Config controls PageFetcher behavior.
type Config struct {
	UserAgent   string
	Timeout     time.Duration
	MaxAttempts int
	BackoffBase time.Duration
}

// PageFetcher issues GETs with a browser-like header set and retries
// transient failures. The delay before retry attempt k is BackoffBase*2^(k-1)
// (1s, 2s with defaults); the run's cancel signal is checked before every
// attempt and is never retried past.
type PageFetcher struct {
	client  *resty.Client
	cfg     Config
	limiter *ratelimit.Limiter
	signal  *pricing.CancelSignal
	logger  *zap.Logger
}

// New constructs a PageFetcher bound to one run's cancel signal. Both the
// limiter and the signal may be nil.
func New(cfg Config, limiter *ratelimit.Limiter, signal *pricing.CancelSignal, logger *zap.Logger) *PageFetcher {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = defaultBackoffBase
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeaders(map[string]string{
			"User-Agent":      cfg.UserAgent,
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
			"Accept-Language": "ko-KR,ko;q=0.9,en-US;q=0.8,en;q=0.7",
		})

	return &PageFetcher{
		client:  client,
		cfg:     cfg,
		limiter: limiter,
		signal:  signal,
		logger:  logger,
	}
}

// Close releases the underlying HTTP client.
func (f *PageFetcher) Close() error {
	return f.client.Close()
}

// Fetch retrieves the page body. It returns a classified *Error after the
// final failed attempt.
func (f *PageFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	var lastErr *Error
	for attempt := 0; attempt < f.cfg.MaxAttempts; attempt++ {
		if err := f.checkCancelled(ctx, url, attempt); err != nil {
			return nil, err
		}
		if attempt > 0 {
			delay := f.cfg.BackoffBase << (attempt - 1)
			if err := sleep(ctx, delay); err != nil {
				return nil, &Error{Kind: KindCancelled, URL: url, Attempts: attempt, Cause: ErrCancelled}
			}
			if err := f.checkCancelled(ctx, url, attempt); err != nil {
				return nil, err
			}
		}
		if f.limiter != nil {
			if err := f.limiter.Wait(ctx, url); err != nil {
				return nil, &Error{Kind: KindCancelled, URL: url, Attempts: attempt, Cause: err}
			}
		}

		start := time.Now()
		resp, err := f.client.R().SetContext(ctx).Get(url)
		elapsed := time.Since(start)
		if err != nil {
			lastErr = &Error{Kind: classifyKind(err), URL: url, Attempts: attempt + 1, Cause: err}
			metrics.ObserveFetchAttempt("retryable", elapsed)
			f.logger.Debug("fetch attempt failed",
				zap.String("url", url),
				zap.Int("attempt", attempt+1),
				zap.String("kind", string(lastErr.Kind)),
				zap.Error(err),
			)
			continue
		}
		if resp.IsSuccess() {
			metrics.ObserveFetchAttempt("ok", elapsed)
			return resp.Bytes(), nil
		}
		lastErr = &Error{Kind: KindStatus, URL: url, StatusCode: resp.StatusCode(), Attempts: attempt + 1}
		metrics.ObserveFetchAttempt("retryable", elapsed)
		f.logger.Debug("fetch attempt returned non-2xx",
			zap.String("url", url),
			zap.Int("attempt", attempt+1),
			zap.Int("status", resp.StatusCode()),
		)
	}

	metrics.ObserveFetchAttempt("fatal", 0)
	return nil, lastErr
}

func (f *PageFetcher) checkCancelled(ctx context.Context, url string, attempt int) error {
	if f.signal.Cancelled() {
		return &Error{Kind: KindCancelled, URL: url, Attempts: attempt, Cause: ErrCancelled}
	}
	if err := ctx.Err(); err != nil {
		return &Error{Kind: KindCancelled, URL: url, Attempts: attempt, Cause: err}
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
