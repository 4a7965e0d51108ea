package app

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fomet/fomet/internal/auth"
	dashboardhttp "github.com/fomet/fomet/internal/dashboard/http"
	"github.com/fomet/fomet/internal/entry"
	"github.com/fomet/fomet/internal/observability"
	"github.com/fomet/fomet/internal/recordstore"
	"github.com/fomet/fomet/internal/shared"
	"github.com/fomet/fomet/internal/view"
	"github.com/fomet/fomet/jobs"
)

func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	replies := map[string]string{
		recordstore.ActionLogin:         `{"success":true,"data":{"role":"ADMINISTRATOR","unit":"PUSAT","nama":"Admin"}}`,
		recordstore.ActionGetPOData:     `{"success":true,"data":[]}`,
		recordstore.ActionTariffOptions: `{"units":["ULP A"],"tarifs":["R1"],"dayas":["900"]}`,
		recordstore.ActionTariffData:    `[["ULP A","R1","900"]]`,
		recordstore.ActionMeterModels:   `[{"merk":"Itron","type":"X1"}]`,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		reply := `{"success":true}`
		for action, body := range replies {
			if strings.Contains(string(raw), `"action":"`+action+`"`) {
				reply = body
			}
		}
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestRouter(t *testing.T, cfg *Config) http.Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetrics()
	client := recordstore.NewClient(cfg.AppscriptURL, nil, logger, recordstore.NewMetrics(metrics.Registerer()))
	reference := recordstore.NewReference(client, recordstore.NewCache(rdb, time.Minute))

	templates, err := view.NewEngine()
	require.NoError(t, err)
	sessions := shared.NewSessionManager(rdb, "fomet_session", "secret", time.Hour, false)
	csrf := shared.NewCSRFManager("csrf")

	return NewRouter(RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessions,
		CSRFManager:    csrf,
		AuthHandler:    auth.NewHandler(logger, auth.NewService(client), templates, sessions, csrf),
		DashboardHandler: dashboardhttp.NewHandler(logger, client, reference, entry.NewService(client, logger), templates, csrf,
			shared.NewIdempotencyStore(rdb, time.Hour), nil, recordstore.NewProxy(client, logger)),
		JobHandler: jobs.NewHandler(nil, logger),
		Metrics:    metrics,
	})
}

func testConfig(backend string) *Config {
	return &Config{AppEnv: "test", AppscriptURL: backend, UploadMaxBytes: 1 << 20, AppRequestTimeout: 5 * time.Second}
}

func TestRouterHealthAndMetrics(t *testing.T) {
	router := newTestRouter(t, testConfig(""))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "fomet_http_requests_total")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouterServesStaticAssets(t *testing.T) {
	router := newTestRouter(t, testConfig(""))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/css/app.css", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public, max-age=3600", rec.Header().Get("Cache-Control"))
}

func TestRouterRejectsPostWithoutCSRF(t *testing.T) {
	router := newTestRouter(t, testConfig(""))
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader("username=a&password=b"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRouterProxySkipsCSRF(t *testing.T) {
	router := newTestRouter(t, testConfig(""))
	req := httptest.NewRequest(http.MethodPost, ProxyPath, strings.NewReader(`{"action":"getPOData"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	// Reaches the proxy, which reports the missing endpoint.
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRouterLoginFlowReachesDashboard(t *testing.T) {
	backend := newBackend(t)
	router := newTestRouter(t, testConfig(backend.URL))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	token := extractToken(t, rec.Body.String())

	form := url.Values{"username": {"PUSAT"}, "password": {"rahasia"}, shared.CSRFFormField: {token}}
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))

	req = httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Admin")
}

func TestRouterDashboardRequiresLogin(t *testing.T) {
	router := newTestRouter(t, testConfig(""))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestRequestSizeLimit(t *testing.T) {
	cfg := testConfig("")
	cfg.UploadMaxBytes = 64
	router := newTestRouter(t, cfg)

	body := "--b\r\nContent-Disposition: form-data; name=\"x\"\r\n\r\n" + strings.Repeat("a", 512) + "\r\n--b--\r\n"
	req := httptest.NewRequest(http.MethodPost, "/dashboard/records", strings.NewReader(body))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=b")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Contains(t, []int{http.StatusRequestEntityTooLarge, http.StatusBadRequest}, rec.Code)
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{SessionSecret: "s", CSRFSecret: "c", UploadMaxBytes: 1}
	assert.NoError(t, cfg.validate())
	assert.False(t, cfg.BackendConfigured())

	cfg.AppscriptURL = "not a url"
	assert.Error(t, cfg.validate())

	cfg.AppscriptURL = "https://script.google.com/macros/s/x/exec"
	assert.NoError(t, cfg.validate())
	assert.True(t, cfg.BackendConfigured())

	cfg.CSRFSecret = ""
	assert.Error(t, cfg.validate())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s")
	t.Setenv("CSRF_SECRET", "c")
	t.Setenv("REFERENCE_CACHE_TTL", "15m")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, cfg.ReferenceCacheTTL)
	assert.Equal(t, int64(26214400), cfg.UploadMaxBytes)
}

func extractToken(t *testing.T, body string) string {
	t.Helper()
	const marker = `name="csrf_token" value="`
	idx := strings.Index(body, marker)
	require.GreaterOrEqual(t, idx, 0, "csrf token not rendered")
	rest := body[idx+len(marker):]
	return rest[:strings.Index(rest, `"`)]
}
