package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricescout/internal/config"
	"pricescout/internal/extractor"
	"pricescout/internal/jobs"
	"pricescout/internal/pricing"
)

type seqIDGen struct{ n int }

func (g *seqIDGen) NewID() (string, error) {
	g.n++
	return fmt.Sprintf("run-%04d", g.n), nil
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type fixedExtractor struct{}

func (fixedExtractor) Extract(ctx context.Context, url string) pricing.PriceRecord {
	v := int64(10000)
	return pricing.PriceRecord{URL: url, ProductPrice: &v, TotalPrice: &v}
}

func newTestServer(t *testing.T, cfgMut func(*config.Config)) (*httptest.Server, *jobs.Manager) {
	t.Helper()
	dataDir := t.TempDir()

	cfg := config.Config{}
	cfg.Crawler.DataDir = dataDir
	cfg.Crawler.WorkerCount = 2
	cfg.Report.OutputDir = filepath.Join(dataDir, "reports")
	if cfgMut != nil {
		cfgMut(&cfg)
	}

	line := `{"product_id":"P-001","product_name":"grinder","reference":{"name":"own","url":"https://ref.example/1"},"competitors":[{"name":"storeA","url":"https://a.example/1"}]}` + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "teststore_input_list.jsonl"), []byte(line), 0o600))

	registry := extractor.NewRegistry()
	registry.Register("teststore", func(extractor.Deps) pricing.Extractor { return fixedExtractor{} })

	manager := jobs.NewManager(cfg, registry, &seqIDGen{}, realClock{}, nil)
	srv := httptest.NewServer(NewServer(manager, cfg, nil).Handler())
	t.Cleanup(srv.Close)
	return srv, manager
}

func decodeView(t *testing.T, resp *http.Response) jobs.View {
	t.Helper()
	defer resp.Body.Close()
	var v jobs.View
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestStartRun_AcceptedAndProgress(t *testing.T) {
	srv, manager := newTestServer(t, nil)

	resp, err := http.Post(srv.URL+"/v1/runs/teststore", "application/json", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	view := decodeView(t, resp)
	assert.Equal(t, "teststore", view.Site)
	require.NotEmpty(t, view.RunID)

	require.NoError(t, manager.Wait(view.RunID))

	resp, err = http.Get(srv.URL + "/v1/runs/" + view.RunID + "/progress")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	final := decodeView(t, resp)
	assert.Equal(t, jobs.StatusCompleted, final.Status)
	assert.Equal(t, 100, final.Progress.Percentage)
}

func TestStartRun_UnknownSite404(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	resp, err := http.Post(srv.URL+"/v1/runs/nosuchsite", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStartRun_BadWorkersParam(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	resp, err := http.Post(srv.URL+"/v1/runs/teststore?workers=lots", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCancelUnknownRun404(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	resp, err := http.Post(srv.URL+"/v1/runs/run-9999/cancel", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestReport_NotReadyThenServed(t *testing.T) {
	srv, manager := newTestServer(t, nil)

	resp, err := http.Post(srv.URL+"/v1/runs/teststore", "application/json", nil)
	require.NoError(t, err)
	view := decodeView(t, resp)
	require.NoError(t, manager.Wait(view.RunID))

	resp, err = http.Get(srv.URL + "/v1/runs/" + view.RunID + "/report")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/v1/runs/run-9999/report")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListRuns(t *testing.T) {
	srv, manager := newTestServer(t, nil)

	resp, err := http.Post(srv.URL+"/v1/runs/teststore", "application/json", nil)
	require.NoError(t, err)
	view := decodeView(t, resp)
	require.NoError(t, manager.Wait(view.RunID))

	resp, err = http.Get(srv.URL + "/v1/runs/")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		Runs []jobs.View `json:"runs"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.Len(t, payload.Runs, 1)
	assert.Equal(t, view.RunID, payload.Runs[0].RunID)
}

func TestLatestPrices(t *testing.T) {
	srv, manager := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/v1/products/P-001/latest")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/v1/runs/teststore", "application/json", nil)
	require.NoError(t, err)
	view := decodeView(t, resp)
	require.NoError(t, manager.Wait(view.RunID))

	resp, err = http.Get(srv.URL + "/v1/products/P-001/latest")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result pricing.ProductResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "P-001", result.ProductID)
	require.NotEmpty(t, result.Prices)
}

func TestAPIKeyMiddleware(t *testing.T) {
	srv, _ := newTestServer(t, func(cfg *config.Config) {
		cfg.Auth.Enabled = true
		cfg.Auth.APIKey = "sekret"
	})

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set("X-API-Key", "sekret")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
