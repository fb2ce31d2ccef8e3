package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	appagent "github.com/complykit/privacy-comply/internal/application/agent"
	appfindings "github.com/complykit/privacy-comply/internal/application/findings"
	apprisks "github.com/complykit/privacy-comply/internal/application/risks"
	appscans "github.com/complykit/privacy-comply/internal/application/scans"
	appusers "github.com/complykit/privacy-comply/internal/application/users"
	"github.com/complykit/privacy-comply/internal/domain/connectors"
)

func newTestRouter(t *testing.T, opts Options) http.Handler {
	t.Helper()
	return NewRouter(
		&appscans.Service{Registry: connectors.NewRegistry()},
		&appusers.Service{},
		&apprisks.Service{},
		&appfindings.Service{},
		&appagent.Service{},
		opts,
	)
}

func doGet(h http.Handler, path, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestTenantKeyCannotCrossTenants(t *testing.T) {
	h := newTestRouter(t, Options{APIKeys: map[string]string{
		"tenant-a": "key-a",
		"tenant-b": "key-b",
	}})

	assert.Equal(t, http.StatusOK, doGet(h, "/v1/tenant-a/connectors", "key-a").Code)
	assert.Equal(t, http.StatusOK, doGet(h, "/v1/tenant-b/connectors", "key-b").Code)

	assert.Equal(t, http.StatusForbidden, doGet(h, "/v1/tenant-b/connectors", "key-a").Code,
		"a key bound to one tenant must not reach another tenant's routes")
	assert.Equal(t, http.StatusForbidden, doGet(h, "/v1/tenant-a/users", "key-b").Code)
	assert.Equal(t, http.StatusForbidden, doGet(h, "/v1/tenant-a/audit", "key-b").Code)
}

func TestAuthRequiredOnTenantRoutes(t *testing.T) {
	h := newTestRouter(t, Options{APIKeys: map[string]string{"tenant-a": "key-a"}})

	assert.Equal(t, http.StatusUnauthorized, doGet(h, "/v1/tenant-a/connectors", "").Code)
	assert.Equal(t, http.StatusUnauthorized, doGet(h, "/v1/tenant-a/connectors", "bogus").Code)

	// probe endpoints stay open
	assert.Equal(t, http.StatusOK, doGet(h, "/ready", "").Code)
	assert.Equal(t, http.StatusOK, doGet(h, "/live", "").Code)
}
