package web

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/fairprice/internal/config"
	"github.com/JonMunkholm/fairprice/internal/core"
	"github.com/JonMunkholm/fairprice/internal/summary"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{RequestTimeout: 30 * time.Second},
		Limits: config.LimitsConfig{MaxFileSize: 1 << 20, MaxConcurrent: 2, MaxWaitTime: 50 * time.Millisecond},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) (*Server, *core.Limiter) {
	t.Helper()
	limiter := core.NewLimiter(cfg.Limits.MaxConcurrent, cfg.Limits.MaxWaitTime)
	srv := NewServer(cfg, core.NewExplorer(core.Options{}), summary.NewStore(10), limiter)
	t.Cleanup(func() { srv.Shutdown(t.Context()) })
	return srv, limiter
}

func uploadRequest(t *testing.T, target, field, filename, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = io.WriteString(fw, content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

const compras = "Município;Valor;CNPJ\nRecife;R$ 10,00;11.222.333/0001-81\nNatal;R$ 1.234,56;11.222.333/0001-81\n"

// ---- Health Tests ----

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	h := decode[healthResponse](t, rec)
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, 2, h.Explorations.MaxConcurrent)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

// ---- Explore Tests ----

func TestExploreAndFetch(t *testing.T) {
	srv, limiter := newTestServer(t, testConfig())

	rec := serve(srv, uploadRequest(t, "/api/explore", "file", "compras.csv", compras))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	created := decode[summary.FileSummary](t, rec)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "compras.csv", created.Filename)
	assert.Equal(t, 2, created.Rows)
	assert.Equal(t, "/api/summaries/"+created.ID, rec.Header().Get("Location"))
	assert.Equal(t, 2, created.Analysis.Brazilian.CNPJ["cnpj"].Formatted)
	assert.Zero(t, limiter.ActiveCount())

	rec = serve(srv, httptest.NewRequest(http.MethodGet, "/api/summaries/"+created.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.ID, decode[summary.FileSummary](t, rec).ID)

	rec = serve(srv, httptest.NewRequest(http.MethodGet, "/api/summaries/"+created.ID+"?section=schema", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"column_count":3`)

	rec = serve(srv, httptest.NewRequest(http.MethodGet, "/api/summaries/"+created.ID+"?section=bogus", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(srv, httptest.NewRequest(http.MethodGet, "/api/summaries", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[summaryList](t, rec)
	assert.Equal(t, 1, list.Total)
	require.Len(t, list.Summaries, 1)
	assert.Equal(t, created.ID, list.Summaries[0].ID)
}

func TestExploreErrors(t *testing.T) {
	cfg := testConfig()
	cfg.Limits.MaxFileSize = 512
	srv, _ := newTestServer(t, cfg)

	tests := []struct {
		name   string
		req    *http.Request
		status int
		code   string
	}{
		{"wrong field", uploadRequest(t, "/api/explore", "upload", "a.csv", "a\n1\n"), http.StatusBadRequest, "FILE004"},
		{"not multipart", httptest.NewRequest(http.MethodPost, "/api/explore", strings.NewReader("a,b")), http.StatusBadRequest, "FILE004"},
		{"too large", uploadRequest(t, "/api/explore", "file", "big.csv", strings.Repeat("x", 2048)), http.StatusRequestEntityTooLarge, "FILE002"},
		{"empty file", uploadRequest(t, "/api/explore", "file", "empty.csv", ""), http.StatusUnprocessableEntity, "FILE003"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(srv, tt.req)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			resp := decode[ErrorResponse](t, rec)
			assert.Equal(t, tt.code, resp.Code)
			assert.NotEmpty(t, resp.Action)
		})
	}
}

func TestExploreBusy(t *testing.T) {
	srv, limiter := newTestServer(t, testConfig())
	require.True(t, limiter.TryAcquire())
	require.True(t, limiter.TryAcquire())
	defer limiter.Release()
	defer limiter.Release()

	rec := serve(srv, uploadRequest(t, "/api/explore", "file", "a.csv", "a\n1\n"))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "EXP001", decode[ErrorResponse](t, rec).Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestExploreShuttingDown(t *testing.T) {
	srv, limiter := newTestServer(t, testConfig())
	limiter.Close()

	rec := serve(srv, uploadRequest(t, "/api/explore", "file", "a.csv", "a\n1\n"))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "EXP004", decode[ErrorResponse](t, rec).Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Zero(t, srv.store.Len())

	rec = serve(srv, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	h := decode[healthResponse](t, rec)
	assert.Equal(t, "draining", h.Status)
	assert.True(t, h.Explorations.Draining)
}

func TestDiagnose(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	rec := serve(srv, uploadRequest(t, "/api/diagnose", "file", "compras.csv", compras))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[diagnoseResponse](t, rec)
	assert.Equal(t, "compras.csv", resp.Filename)
	assert.Equal(t, 3, resp.Diagnosis.ColumnCount)
	assert.Zero(t, srv.store.Len())
}

// ---- Summary Tests ----

func TestGetSummaryNotFound(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/api/summaries/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "EXP002", decode[ErrorResponse](t, rec).Code)

	req := httptest.NewRequest(http.MethodGet, "/api/summaries/missing", nil)
	req.Header.Set("Accept", "text/plain")
	rec = serve(srv, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "(EXP002)")
}

func TestListSummariesLimit(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	for _, name := range []string{"a.csv", "b.csv", "c.csv"} {
		rec := serve(srv, uploadRequest(t, "/api/explore", "file", name, "x,y\n1,2\n"))
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/api/summaries?limit=2", nil))
	list := decode[summaryList](t, rec)
	assert.Equal(t, 3, list.Total)
	require.Len(t, list.Summaries, 2)
	assert.Equal(t, "c.csv", list.Summaries[0].Filename)
}

func TestSummaryYAML(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	rec := serve(srv, uploadRequest(t, "/api/explore?format=yaml", "file", "a.csv", "x,y\n1,2\n"))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/yaml", rec.Header().Get("Content-Type"))

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "a.csv", doc["filename"])
}

// ---- Compare Tests ----

func TestCompare(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	a := decode[summary.FileSummary](t, serve(srv, uploadRequest(t, "/api/explore", "file", "2020.csv", "cnpj,valor\n1,10\n")))
	b := decode[summary.FileSummary](t, serve(srv, uploadRequest(t, "/api/explore", "file", "2021.csv", "cnpj;uf\n1;SP\n")))

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/api/compare?ids="+a.ID+","+b.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	cmp := decode[summary.Comparison](t, rec)
	assert.Equal(t, 2, cmp.Files)
	assert.Equal(t, []string{"cnpj"}, cmp.CommonColumns)

	rec = serve(srv, httptest.NewRequest(http.MethodGet, "/api/compare", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[summary.Comparison](t, rec).Files)

	rec = serve(srv, httptest.NewRequest(http.MethodGet, "/api/compare?ids="+a.ID+",nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ---- Security Tests ----

func TestAPIKeyRequired(t *testing.T) {
	cfg := testConfig()
	cfg.Security = config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"k"}}
	srv, _ := newTestServer(t, cfg)

	assert.Equal(t, http.StatusOK, serve(srv, httptest.NewRequest(http.MethodGet, "/health", nil)).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(srv, httptest.NewRequest(http.MethodGet, "/api/summaries", nil)).Code)

	req := httptest.NewRequest(http.MethodGet, "/api/summaries", nil)
	req.Header.Set("X-API-Key", "k")
	assert.Equal(t, http.StatusOK, serve(srv, req).Code)
}

func TestCORS(t *testing.T) {
	cfg := testConfig()
	cfg.Security.AllowedOrigins = []string{"https://painel.example.org"}
	srv, _ := newTestServer(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/summaries", nil)
	req.Header.Set("Origin", "https://painel.example.org")
	rec := serve(srv, req)
	assert.Equal(t, "https://painel.example.org", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/summaries", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = serve(srv, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1}
	srv, _ := newTestServer(t, cfg)

	assert.Equal(t, http.StatusOK, serve(srv, httptest.NewRequest(http.MethodGet, "/health", nil)).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(srv, httptest.NewRequest(http.MethodGet, "/health", nil)).Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusFor(summary.ErrNotFound))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(core.ErrTooManyExplorations))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(core.ErrShuttingDown))
	assert.Equal(t, http.StatusInternalServerError, statusFor(io.ErrUnexpectedEOF))
}
