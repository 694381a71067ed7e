package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pricescout/internal/pricing"
)

func newTestFetcher(signal *pricing.CancelSignal) *PageFetcher {
	return New(Config{
		UserAgent:   "scout-test",
		Timeout:     2 * time.Second,
		MaxAttempts: 3,
		BackoffBase: 5 * time.Millisecond,
	}, nil, signal, zap.NewNop())
}

func TestFetch_Success(t *testing.T) {
	t.Parallel()

	var gotUA atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA.Store(r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	f := newTestFetcher(nil)
	defer f.Close()

	body, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, "<html>ok</html>", string(body))
	require.Equal(t, "scout-test", gotUA.Load())
}

func TestFetch_RetriesNon2xxThenSucceeds(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("recovered"))
	}))
	defer srv.Close()

	f := newTestFetcher(nil)
	defer f.Close()

	body, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, "recovered", string(body))
	require.Equal(t, int32(3), calls.Load())
}

func TestFetch_FailsAfterThreeAttempts(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := newTestFetcher(nil)
	defer f.Close()

	_, err := f.Fetch(context.Background(), srv.URL)
	require.Error(t, err)

	var fe *Error
	require.ErrorAs(t, err, &fe)
	require.Equal(t, KindStatus, fe.Kind)
	require.Equal(t, http.StatusInternalServerError, fe.StatusCode)
	require.Equal(t, 3, fe.Attempts)
	require.Equal(t, int32(3), calls.Load())
}

func TestFetch_ConnectionErrorIsClassified(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // guaranteed-refused address

	f := newTestFetcher(nil)
	defer f.Close()

	_, err := f.Fetch(context.Background(), srv.URL)
	var fe *Error
	require.ErrorAs(t, err, &fe)
	require.Equal(t, KindConnection, fe.Kind)
}

func TestFetch_CancelledBeforeFirstAttempt(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte("never"))
	}))
	defer srv.Close()

	signal := pricing.NewCancelSignal()
	signal.Cancel()

	f := newTestFetcher(signal)
	defer f.Close()

	_, err := f.Fetch(context.Background(), srv.URL)
	require.True(t, IsCancelled(err))
	require.Zero(t, calls.Load())
}

func TestFetch_CancellationStopsRetries(t *testing.T) {
	t.Parallel()

	signal := pricing.NewCancelSignal()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		signal.Cancel() // first failure triggers cancellation
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f := newTestFetcher(signal)
	defer f.Close()

	_, err := f.Fetch(context.Background(), srv.URL)
	require.True(t, IsCancelled(err))
	require.Equal(t, int32(1), calls.Load())
}

func TestIsCancelled(t *testing.T) {
	t.Parallel()

	require.True(t, IsCancelled(&Error{Kind: KindCancelled, Cause: ErrCancelled}))
	require.False(t, IsCancelled(&Error{Kind: KindTimeout}))
	require.False(t, IsCancelled(errors.New("other")))
}
