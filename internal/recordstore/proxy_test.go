package recordstore

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProxyRejectsNonPost(t *testing.T) {
	proxy := NewProxy(newTestClient("http://unused"), nil)
	rr := httptest.NewRecorder()
	proxy.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/proxy", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestProxyMissingEndpoint(t *testing.T) {
	proxy := NewProxy(newTestClient(""), nil)
	rr := httptest.NewRecorder()
	proxy.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/proxy", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), `"success":false`)
}

func TestProxyRelaysJSONVerbatim(t *testing.T) {
	var forwarded string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		forwarded = string(raw)
		_, _ = io.WriteString(w, `{"success":true,"data":[1,2]}`)
	}))
	defer srv.Close()

	proxy := NewProxy(newTestClient(srv.URL), nil)
	rr := httptest.NewRecorder()
	proxy.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/proxy", strings.NewReader(`{"action":"getPOData"}`)))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, `{"action":"getPOData"}`, forwarded)
	assert.JSONEq(t, `{"success":true,"data":[1,2]}`, rr.Body.String())
}

func TestProxyNonJSONBackend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "<html>login</html>")
	}))
	defer srv.Close()

	proxy := NewProxy(newTestClient(srv.URL), nil)
	rr := httptest.NewRecorder()
	proxy.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/proxy", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "<html>login</html>")
	assert.Contains(t, rr.Body.String(), "Response bukan JSON")
}
