// Package jobs owns the run lifecycle: starting a crawl against a site,
// tracking its progress, cancelling it, and producing the report artifact.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"pricescout/internal/analyzer"
	"pricescout/internal/config"
	"pricescout/internal/dispatcher"
	"pricescout/internal/extractor"
	"pricescout/internal/fetcher"
	"pricescout/internal/metrics"
	"pricescout/internal/pricing"
	"pricescout/internal/products"
	"pricescout/internal/ratelimit"
	"pricescout/internal/report"
	"pricescout/internal/store"
)

// Status is a run's lifecycle state.
type Status string

// Run lifecycle states. Cancelling is the window between the cancel request
// and the last in-flight task winding down.
const (
	StatusPending    Status = "pending"
	StatusRunning    Status = "running"
	StatusCancelling Status = "cancelling"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusFailed     Status = "failed"
)

func (s Status) terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusFailed
}

var (
	// ErrRunInProgress rejects a start request while another run is active.
	ErrRunInProgress = errors.New("another run is already in progress")
	// ErrNotFound signals an unknown run handle.
	ErrNotFound = errors.New("run not found")
	// ErrNoReport signals that the run has not produced a report artifact.
	ErrNoReport = errors.New("run has no report")
	// ErrNoPrices signals that no finished run has observed the product.
	ErrNoPrices = errors.New("no prices recorded for product")
)

// View is the externally visible state of one run.
type View struct {
	RunID          string                   `json:"run_id"`
	Site           string                   `json:"site"`
	Status         Status                   `json:"status"`
	StartedAt      time.Time                `json:"started_at"`
	FinishedAt     *time.Time               `json:"finished_at,omitempty"`
	ElapsedSeconds float64                  `json:"elapsed_seconds"`
	Progress       pricing.ProgressSnapshot `json:"progress"`
	Summary        *RunSummary              `json:"summary,omitempty"`
	InversionCount int                      `json:"inversion_count"`
	ReportPath     string                   `json:"report_path,omitempty"`
	Error          string                   `json:"error,omitempty"`
}

// RunSummary reports how healthy a finished run's results were.
type RunSummary struct {
	Products        int `json:"products"`
	WithTaskError   int `json:"with_task_error"`
	AllSellerErrors int `json:"all_seller_errors"`
	SuccessRatio    int `json:"success_ratio"`
}

// IDGenerator mints run handles.
type IDGenerator interface {
	NewID() (string, error)
}

type runState struct {
	id         string
	site       string
	status     Status
	startedAt  time.Time
	finishedAt *time.Time
	inversions int
	summary    *RunSummary
	results    []pricing.ProductResult
	reportPath string
	errMsg     string

	progress *pricing.RunProgress
	signal   *pricing.CancelSignal
	done     chan struct{}
}

// Manager registers runs and executes them in the background. At most one
// run is active at a time; finished runs stay queryable for the life of the
// process.
type Manager struct {
	cfg      config.Config
	registry *extractor.Registry
	idGen    IDGenerator
	clock    pricing.Clock
	logger   *zap.Logger

	mu   sync.Mutex
	runs map[string]*runState
}

// NewManager builds a Manager.
func NewManager(cfg config.Config, registry *extractor.Registry, idGen IDGenerator, clock pricing.Clock, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		cfg:      cfg,
		registry: registry,
		idGen:    idGen,
		clock:    clock,
		logger:   logger,
		runs:     make(map[string]*runState),
	}
}

// StartRun validates the request, loads the site's product list, and kicks
// off the crawl in the background. Validation failures (unknown site, broken
// input list, a run already active) surface synchronously; everything after
// that is reported through the run's status.
func (m *Manager) StartRun(ctx context.Context, site string, workerCount int) (View, error) {
	if !m.siteKnown(site) {
		return View{}, fmt.Errorf("%w: %q", extractor.ErrUnknownSite, site)
	}

	list, err := products.Load(products.Resolve(m.cfg.Crawler.DataDir, site))
	if err != nil {
		return View{}, err
	}

	if workerCount <= 0 {
		workerCount = m.cfg.Crawler.WorkerCount
	}
	workerCount = dispatcher.ClampWorkers(workerCount)

	id, err := m.idGen.NewID()
	if err != nil {
		return View{}, fmt.Errorf("generate run id: %w", err)
	}

	run := &runState{
		id:        id,
		site:      site,
		status:    StatusPending,
		startedAt: m.clock.Now(),
		progress:  pricing.NewRunProgress(),
		signal:    &pricing.CancelSignal{},
		done:      make(chan struct{}),
	}

	m.mu.Lock()
	for _, r := range m.runs {
		if !r.status.terminal() {
			m.mu.Unlock()
			return View{}, ErrRunInProgress
		}
	}
	m.runs[id] = run
	m.mu.Unlock()

	m.logger.Info("run accepted",
		zap.String("run_id", id),
		zap.String("site", site),
		zap.Int("workers", workerCount),
		zap.Int("products", len(list)),
	)

	go m.execute(context.WithoutCancel(ctx), run, list, workerCount)

	return m.view(run), nil
}

// execute drives one run to a terminal state.
func (m *Manager) execute(ctx context.Context, run *runState, list []pricing.Product, workerCount int) {
	defer close(run.done)

	m.setStatus(run, StatusRunning)

	resultStore, err := store.NewJSONL(filepath.Join(m.cfg.Crawler.DataDir, "results_"+run.id+".jsonl"))
	if err != nil {
		m.fail(run, err)
		return
	}

	limiter := ratelimit.New(ratelimit.Config{DefaultRPS: m.cfg.Crawler.PerHostRateLimit})
	pages := fetcher.New(fetcher.Config{
		UserAgent:   m.cfg.Crawler.UserAgent,
		Timeout:     m.cfg.FetchTimeout(),
		MaxAttempts: m.cfg.HTTP.MaxAttempts,
		BackoffBase: m.cfg.BackoffBase(),
	}, limiter, run.signal, m.logger)
	defer pages.Close()

	minPause, maxPause := m.cfg.PolitenessBounds()
	d := dispatcher.New(dispatcher.Config{
		Registry: m.registry,
		Fetcher:  pages,
		Store:    resultStore,
		Progress: run.progress,
		Signal:   run.signal,
		Clock:    m.clock,
		MinPause: minPause,
		MaxPause: maxPause,
		Logger:   m.logger,
	})

	outcome, err := d.Run(ctx, run.site, list, workerCount)
	if err != nil {
		m.fail(run, err)
		return
	}

	results, err := resultStore.ReadAll()
	if err != nil {
		m.fail(run, err)
		return
	}

	analysis := analyzer.Analyze(results)
	data := report.Build(results, analysis, m.clock.Now())

	reportPath := filepath.Join(m.cfg.Report.OutputDir, fmt.Sprintf("price_report_%s_%s.xlsx", run.site, run.id))
	if err := report.WriteExcel(data, reportPath); err != nil {
		m.fail(run, err)
		return
	}

	// The JSONL log is an intermediate artifact; losing the cleanup is not
	// worth failing a finished run over.
	if err := resultStore.Remove(); err != nil {
		m.logger.Warn("result log cleanup failed", zap.String("run_id", run.id), zap.Error(err))
	}

	status := StatusCompleted
	if outcome.Cancelled && !outcome.Completed {
		status = StatusCancelled
	}

	m.mu.Lock()
	run.status = status
	run.inversions = len(analysis.Groups)
	run.summary = &RunSummary{
		Products:        data.Summary.Total,
		WithTaskError:   data.Summary.WithTaskError,
		AllSellerErrors: data.Summary.AllError,
		SuccessRatio:    data.Summary.SuccessRatio(),
	}
	// Retained so latest-prices lookups outlive the deleted result log.
	run.results = results
	run.reportPath = reportPath
	now := m.clock.Now()
	run.finishedAt = &now
	m.mu.Unlock()

	metrics.ObserveRun(string(status))
	m.logger.Info("run finished",
		zap.String("run_id", run.id),
		zap.String("status", string(status)),
		zap.Int("products", len(results)),
		zap.Int("inversion_groups", len(analysis.Groups)),
		zap.String("report", reportPath),
	)
}

// Cancel requests cooperative cancellation. Cancelling an already-terminal
// run is a no-op that reports the current state.
func (m *Manager) Cancel(runID string) (View, error) {
	m.mu.Lock()
	run, ok := m.runs[runID]
	if !ok {
		m.mu.Unlock()
		return View{}, ErrNotFound
	}
	if !run.status.terminal() {
		run.status = StatusCancelling
		run.signal.Cancel()
	}
	m.mu.Unlock()

	m.logger.Info("cancel requested", zap.String("run_id", runID))
	return m.view(run), nil
}

// Get returns the current view of a run.
func (m *Manager) Get(runID string) (View, error) {
	m.mu.Lock()
	run, ok := m.runs[runID]
	m.mu.Unlock()
	if !ok {
		return View{}, ErrNotFound
	}
	return m.view(run), nil
}

// List returns every known run, most recent first.
func (m *Manager) List() []View {
	m.mu.Lock()
	states := make([]*runState, 0, len(m.runs))
	for _, r := range m.runs {
		states = append(states, r)
	}
	m.mu.Unlock()

	sort.Slice(states, func(i, j int) bool {
		return states[i].startedAt.After(states[j].startedAt)
	})
	views := make([]View, len(states))
	for i, r := range states {
		views[i] = m.view(r)
	}
	return views
}

// ReportFile returns the report artifact path for a completed or cancelled
// run.
func (m *Manager) ReportFile(runID string) (string, error) {
	m.mu.Lock()
	run, ok := m.runs[runID]
	var path string
	if ok {
		path = run.reportPath
	}
	m.mu.Unlock()
	if !ok {
		return "", ErrNotFound
	}
	if path == "" {
		return "", ErrNoReport
	}
	return path, nil
}

// LatestPrices returns the most recent observation of a product across all
// finished runs, newest run first.
func (m *Manager) LatestPrices(productID string) (pricing.ProductResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	states := make([]*runState, 0, len(m.runs))
	for _, r := range m.runs {
		states = append(states, r)
	}
	sort.Slice(states, func(i, j int) bool {
		return states[i].startedAt.After(states[j].startedAt)
	})

	for _, run := range states {
		for i := len(run.results) - 1; i >= 0; i-- {
			if run.results[i].ProductID == productID {
				return run.results[i], nil
			}
		}
	}
	return pricing.ProductResult{}, fmt.Errorf("%w: %q", ErrNoPrices, productID)
}

// Wait blocks until the run reaches a terminal state. Used by the one-shot
// CLI path and by tests.
func (m *Manager) Wait(runID string) error {
	m.mu.Lock()
	run, ok := m.runs[runID]
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	<-run.done
	return nil
}

func (m *Manager) siteKnown(site string) bool {
	for _, s := range m.registry.Sites() {
		if s == site {
			return true
		}
	}
	return false
}

func (m *Manager) setStatus(run *runState, status Status) {
	m.mu.Lock()
	// A cancel that lands before the first task keeps the run cancelling.
	if run.status != StatusCancelling {
		run.status = status
	}
	m.mu.Unlock()
}

func (m *Manager) fail(run *runState, err error) {
	m.mu.Lock()
	run.status = StatusFailed
	run.errMsg = err.Error()
	now := m.clock.Now()
	run.finishedAt = &now
	m.mu.Unlock()

	metrics.ObserveRun(string(StatusFailed))
	m.logger.Error("run failed", zap.String("run_id", run.id), zap.Error(err))
}

func (m *Manager) view(run *runState) View {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := View{
		RunID:          run.id,
		Site:           run.site,
		Status:         run.status,
		StartedAt:      run.startedAt,
		FinishedAt:     run.finishedAt,
		Progress:       run.progress.Snapshot(),
		Summary:        run.summary,
		InversionCount: run.inversions,
		ReportPath:     run.reportPath,
		Error:          run.errMsg,
	}
	end := m.clock.Now()
	if run.finishedAt != nil {
		end = *run.finishedAt
	}
	v.ElapsedSeconds = end.Sub(run.startedAt).Seconds()
	return v
}
