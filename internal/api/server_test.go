// internal/api/server_test.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/newthinker/finsight/internal/api/session"
	"github.com/newthinker/finsight/internal/core"
	"github.com/newthinker/finsight/internal/insight"
	"github.com/newthinker/finsight/internal/metrics"
	"github.com/newthinker/finsight/internal/portfolio"
	"github.com/newthinker/finsight/internal/report"
	"github.com/newthinker/finsight/internal/storage/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSnapshots map[string]core.Snapshot

func (s staticSnapshots) Snapshot(_ context.Context, ticker string) core.Snapshot {
	if snap, ok := s[ticker]; ok {
		return snap
	}
	return core.ErrorSnapshot(ticker)
}

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()

	store, err := sqlite.Open(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	reg := metrics.NewRegistry()
	snaps := staticSnapshots{
		"AAPL": {Ticker: "AAPL", CompanyName: "Apple Inc.", Sector: "Technology", Price: 150, PercentChange: 1.1},
	}
	prices := func(ctx context.Context, ticker string) float64 { return snaps.Snapshot(ctx, ticker).Price }

	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}
	srv, err := NewServer(cfg, Dependencies{
		Store:          store,
		Portfolio:      portfolio.NewService(store, nil, reg),
		Snapshots:      snaps,
		Prices:         prices,
		Generator:      insight.NewGenerator(nil, reg, time.Second),
		Insights:       insight.NewStore(10, time.Hour),
		Signer:         session.NewSigner("secret", time.Hour, false),
		Reports:        report.NewRenderer(),
		Metrics:        reg,
		DefaultTickers: []string{"AAPL"},
	}, nil)
	require.NoError(t, err)
	return srv
}

func serve(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	return w
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestServer_Health(t *testing.T) {
	srv := newTestServer(t, Config{Host: "localhost", Port: 0, Version: "test"})

	w := serve(srv, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestServer_APIAuth_Required(t *testing.T) {
	srv := newTestServer(t, Config{APIKey: "test-key"})

	w := serve(srv, httptest.NewRequest(http.MethodGet, "/api/portfolio", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// health stays open for probes
	w = serve(srv, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServer_APIAuth_ValidKey(t *testing.T) {
	srv := newTestServer(t, Config{APIKey: "test-key"})

	req := httptest.NewRequest(http.MethodGet, "/api/portfolio", nil)
	req.Header.Set("X-API-Key", "test-key")
	w := serve(srv, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServer_APIAuth_Disabled(t *testing.T) {
	srv := newTestServer(t, Config{})

	w := serve(srv, httptest.NewRequest(http.MethodGet, "/api/portfolio", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServer_AnalyzeThenSummary(t *testing.T) {
	srv := newTestServer(t, Config{})

	w := serve(srv, jsonRequest(http.MethodPost, "/api/analyze", `{"ticker":"aapl"}`))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Status    string `json:"status"`
		InsightID string `json:"insight_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)

	req := httptest.NewRequest(http.MethodGet, "/insight_summary", nil)
	req.AddCookie(cookies[0])
	w = serve(srv, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Apple Inc.")

	w = serve(srv, httptest.NewRequest(http.MethodGet, "/history", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Unable to generate AI analysis for AAPL")
}

func TestServer_AnalyzeUnknownTicker(t *testing.T) {
	srv := newTestServer(t, Config{})

	w := serve(srv, jsonRequest(http.MethodPost, "/api/analyze", `{"ticker":"INVALID_TICKER_123"}`))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"error"`)
}

func TestServer_PortfolioFlow(t *testing.T) {
	srv := newTestServer(t, Config{})

	w := serve(srv, jsonRequest(http.MethodPost, "/api/portfolio", `{"ticker":"AAPL","quantity":50}`))
	require.Equal(t, http.StatusOK, w.Code)
	w = serve(srv, jsonRequest(http.MethodPost, "/api/portfolio", `{"ticker":"AAPL","quantity":25}`))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true,"ticker":"AAPL","quantity":75}`, w.Body.String())

	w = serve(srv, httptest.NewRequest(http.MethodGet, "/portfolio", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "$11,250.00")

	w = serve(srv, httptest.NewRequest(http.MethodGet, "/report/portfolio.pdf", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))

	w = serve(srv, jsonRequest(http.MethodPost, "/api/portfolio/delete", `{"ticker":"AAPL"}`))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())

	w = serve(srv, jsonRequest(http.MethodPost, "/api/portfolio/delete", `{"ticker":"AAPL"}`))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_Pages(t *testing.T) {
	srv := newTestServer(t, Config{})

	for _, path := range []string{"/", "/portfolio", "/history"} {
		w := serve(srv, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Contains(t, w.Header().Get("Content-Type"), "text/html", path)
	}

	w := serve(srv, httptest.NewRequest(http.MethodGet, "/insight_summary", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Insight Not Available")

	w = serve(srv, httptest.NewRequest(http.MethodGet, "/no/such/page", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_Metrics(t *testing.T) {
	srv := newTestServer(t, Config{})

	serve(srv, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	w := serve(srv, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `path="/api/health"`)
}
