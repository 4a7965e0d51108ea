package auth_test

import (
	"context"
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
	"github.com/fomet/fomet/internal/recordstore"
	"github.com/fomet/fomet/internal/shared"
	"github.com/fomet/fomet/internal/view"
	_ "github.com/fomet/fomet/testing"
)

type stubBackend struct {
	data     map[string]any
	err      error
	username string
}

func (s *stubBackend) Login(_ context.Context, username, _ string) (map[string]any, error) {
	s.username = username
	if s.err != nil {
		return nil, s.err
	}
	return s.data, nil
}

func newAuthHandler(t *testing.T, backend auth.Backend) (*auth.Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	templates, err := view.NewEngine()
	require.NoError(t, err)
	handler := auth.NewHandler(nil, auth.NewService(backend), templates, sessionManager, shared.NewCSRFManager("csrfsecret"))
	return handler, sessionManager
}

func withSession(t *testing.T, sm *shared.SessionManager, req *http.Request) (*http.Request, *shared.Session) {
	t.Helper()
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	return req.WithContext(shared.ContextWithSession(req.Context(), sess)), sess
}

func loginRequest(username, password string) *http.Request {
	form := url.Values{"username": {username}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestLoginPage(t *testing.T) {
	handler, sm := newAuthHandler(t, &stubBackend{})
	req, _ := withSession(t, sm, httptest.NewRequest(http.MethodGet, "/", nil))

	res := httptest.NewRecorder()
	handler.ShowLoginForTest(res, req)

	assert.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "<form")
}

func TestLoginPageRedirectsWhenLoggedIn(t *testing.T) {
	handler, sm := newAuthHandler(t, &stubBackend{})
	req, sess := withSession(t, sm, httptest.NewRequest(http.MethodGet, "/", nil))
	sess.SetPrincipal(&shared.Principal{Username: "ULP A", Role: "user", Unit: "ULP A"})

	res := httptest.NewRecorder()
	handler.ShowLoginForTest(res, req)

	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/dashboard", res.Header().Get("Location"))
}

func TestLoginInvalidCredentials(t *testing.T) {
	backend := &stubBackend{err: &recordstore.BusinessRejection{Action: recordstore.ActionLogin, Message: "Unit atau password salah"}}
	handler, sm := newAuthHandler(t, backend)
	req, sess := withSession(t, sm, loginRequest("ULP A", "salah"))

	res := httptest.NewRecorder()
	handler.HandleLoginForTest(res, req)

	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "Unit atau password salah")
	assert.Nil(t, sess.Principal())
}

func TestLoginMissingFields(t *testing.T) {
	backend := &stubBackend{}
	handler, sm := newAuthHandler(t, backend)
	req, _ := withSession(t, sm, loginRequest("", ""))

	res := httptest.NewRecorder()
	handler.HandleLoginForTest(res, req)

	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Empty(t, backend.username, "backend must not be called")
}

func TestLoginBackendUnavailable(t *testing.T) {
	backend := &stubBackend{err: &recordstore.TransportError{Action: recordstore.ActionLogin, Err: context.DeadlineExceeded}}
	handler, sm := newAuthHandler(t, backend)
	req, _ := withSession(t, sm, loginRequest("ULP A", "x"))

	res := httptest.NewRecorder()
	handler.HandleLoginForTest(res, req)

	assert.Equal(t, http.StatusBadGateway, res.Code)
	assert.Contains(t, res.Body.String(), "Tidak dapat terhubung ke server")
}

func TestLoginSuccessStoresPrincipalAndRotates(t *testing.T) {
	backend := &stubBackend{data: map[string]any{"success": true, "role": "user", "unit": "ULP A", "nama": "Budi"}}
	handler, sm := newAuthHandler(t, backend)
	req, sess := withSession(t, sm, loginRequest(" ULP A ", "rahasia"))
	before := sess.ID

	res := httptest.NewRecorder()
	handler.HandleLoginForTest(res, req)

	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/dashboard", res.Header().Get("Location"))
	assert.Equal(t, "ULP A", backend.username)
	assert.NotEqual(t, before, sess.ID)

	p := sess.Principal()
	require.NotNil(t, p)
	assert.Equal(t, "ULP A", p.Unit)
	assert.Equal(t, "Budi", p.DisplayName())
	assert.False(t, p.IsAdmin())
}

func TestLogoutDestroysSession(t *testing.T) {
	handler, sm := newAuthHandler(t, &stubBackend{})
	req, sess := withSession(t, sm, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))
	sess.SetPrincipal(&shared.Principal{Username: "PUSAT", Role: "ADMINISTRATOR"})

	res := httptest.NewRecorder()
	handler.HandleLogoutForTest(res, req)
	require.NoError(t, sm.Commit(req.Context(), res, req, sess))

	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/", res.Header().Get("Location"))
	var cleared bool
	for _, c := range res.Result().Cookies() {
		if c.Name == "test_session" && c.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared)
}

func TestRequireLogin(t *testing.T) {
	_, sm := newAuthHandler(t, &stubBackend{})
	protected := auth.RequireLogin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := auth.PrincipalFromRequest(r)
		require.True(t, ok)
		_, _ = w.Write([]byte(p.Unit))
	}))

	req, _ := withSession(t, sm, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	res := httptest.NewRecorder()
	protected.ServeHTTP(res, req)
	assert.Equal(t, http.StatusSeeOther, res.Code)

	req, _ = withSession(t, sm, httptest.NewRequest(http.MethodGet, "/api/records", nil))
	req.Header.Set("Accept", "application/json")
	res = httptest.NewRecorder()
	protected.ServeHTTP(res, req)
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	req, sess := withSession(t, sm, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	sess.SetPrincipal(&shared.Principal{Username: "ULP B", Role: "user", Unit: "ULP B"})
	res = httptest.NewRecorder()
	protected.ServeHTTP(res, req)
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "ULP B", res.Body.String())
}
