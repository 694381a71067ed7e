package pricing

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunProgress_PercentageIsFloor(t *testing.T) {
	t.Parallel()

	p := NewRunProgress()
	p.Reset(3)

	p.MarkCompleted()
	require.Equal(t, 33, p.Snapshot().Percentage)

	p.MarkCompleted()
	require.Equal(t, 66, p.Snapshot().Percentage)

	p.MarkCompleted()
	require.Equal(t, 100, p.Snapshot().Percentage)
}

func TestRunProgress_ConcurrentIncrements(t *testing.T) {
	t.Parallel()

	const total = 500
	p := NewRunProgress()
	p.Reset(total)

	var wg sync.WaitGroup
	for i := 0; i < total; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.MarkCompleted()
		}()
	}
	wg.Wait()

	snap := p.Snapshot()
	require.Equal(t, total, snap.Current)
	require.Equal(t, 100, snap.Percentage)
}

func TestRunProgress_NonDecreasing(t *testing.T) {
	t.Parallel()

	p := NewRunProgress()
	p.Reset(10)

	last := 0
	for i := 0; i < 10; i++ {
		p.MarkCompleted()
		snap := p.Snapshot()
		require.GreaterOrEqual(t, snap.Percentage, last)
		require.Equal(t, snap.Current*100/10, snap.Percentage)
		last = snap.Percentage
	}
}

func TestRunProgress_ResetClearsPreviousRun(t *testing.T) {
	t.Parallel()

	p := NewRunProgress()
	p.Reset(2)
	p.MarkCompleted()
	p.ForceComplete()

	p.Reset(4)
	snap := p.Snapshot()
	require.Equal(t, 0, snap.Current)
	require.Equal(t, 4, snap.Total)
	require.Equal(t, 0, snap.Percentage)
}

func TestRunProgress_EmptyRunHasNoDivisionByZero(t *testing.T) {
	t.Parallel()

	p := NewRunProgress()
	p.Reset(0)
	require.Equal(t, 0, p.Snapshot().Percentage)
	p.ForceComplete()
	require.Equal(t, 100, p.Snapshot().Percentage)
}

func TestCancelSignal_SingleWriterManyReaders(t *testing.T) {
	t.Parallel()

	s := NewCancelSignal()
	require.False(t, s.Cancelled())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Cancelled()
		}()
	}
	s.Cancel()
	s.Cancel() // idempotent
	wg.Wait()

	require.True(t, s.Cancelled())
}
