package pricing

import "sync"

// ProgressSnapshot is a point-in-time view of a run's progress.
type ProgressSnapshot struct {
	Current    int `json:"current"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}

// RunProgress tracks completion counts for one run. Completing tasks mutate
// it under the mutex; progress queries read a consistent snapshot. Percentage
// is floor(completed/total*100) and only reaches 100 when the dispatcher
// forces it on normal completion.
type RunProgress struct {
	mu         sync.Mutex
	total      int
	completed  int
	percentage int
}

// NewRunProgress returns a zeroed tracker.
func NewRunProgress() *RunProgress {
	return &RunProgress{}
}

// Reset zeroes the counters for a new run of total products.
func (p *RunProgress) Reset(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.total = total
	p.completed = 0
	p.percentage = 0
}

// MarkCompleted records one finished task and returns the new completed
// count.
func (p *RunProgress) MarkCompleted() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completed++
	if p.total > 0 {
		p.percentage = p.completed * 100 / p.total
	}
	return p.completed
}

// ForceComplete pins the percentage at 100. Called by the dispatcher when a
// run finishes normally; cancelled runs keep their last observed value.
func (p *RunProgress) ForceComplete() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completed = p.total
	p.percentage = 100
}

// Snapshot returns the current counters.
func (p *RunProgress) Snapshot() ProgressSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return ProgressSnapshot{
		Current:    p.completed,
		Total:      p.total,
		Percentage: p.percentage,
	}
}
