package middleware_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vistav/site-api/internal/accesslog"
	"github.com/vistav/site-api/internal/middleware"
	"github.com/vistav/site-api/internal/models"
	"github.com/vistav/site-api/internal/repositories"
	"github.com/vistav/site-api/internal/storage"
	pkghttp "github.com/vistav/site-api/pkg/http"
)

type stubPolicy struct {
	cfg models.SecurityConfig
}

func (p *stubPolicy) Get() (models.SecurityConfig, error) { return p.cfg, nil }

func whitelistHandler(t *testing.T, cfg models.SecurityConfig) (http.Handler, *accesslog.AccessLog) {
	t.Helper()
	audit, err := accesslog.New(filepath.Join(t.TempDir(), "access_log.txt"))
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := middleware.IPWhitelist(&stubPolicy{cfg: cfg}, audit, &pkghttp.IPConfig{}, logger)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
	return handler, audit
}

func doRequest(handler http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/admin/security/config", nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestIPWhitelist_DisabledPassesEveryone(t *testing.T) {
	cfg := models.DefaultSecurityConfig()
	handler, _ := whitelistHandler(t, cfg)

	rec := doRequest(handler, "203.0.113.5:1234")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIPWhitelist_BlocksUnknownAddress(t *testing.T) {
	cfg := models.DefaultSecurityConfig()
	cfg.EnableIPWhitelist = true
	cfg.AllowedIPs = []string{"198.51.100.1"}
	handler, audit := whitelistHandler(t, cfg)

	rec := doRequest(handler, "203.0.113.5:1234")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	entries, err := audit.ReadRecent(1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, accesslog.ActionIPBlocked, entries[0].Action)
}

func TestIPWhitelist_AllowsListedAddressAndCIDR(t *testing.T) {
	cfg := models.DefaultSecurityConfig()
	cfg.EnableIPWhitelist = true
	cfg.AllowedIPs = []string{"198.51.100.1", "10.1.0.0/16"}
	handler, _ := whitelistHandler(t, cfg)

	assert.Equal(t, http.StatusOK, doRequest(handler, "198.51.100.1:9999").Code)
	assert.Equal(t, http.StatusOK, doRequest(handler, "10.1.42.7:9999").Code)
	assert.Equal(t, http.StatusForbidden, doRequest(handler, "10.2.0.1:9999").Code)
}

func TestIPWhitelist_LoopbackAlwaysPasses(t *testing.T) {
	cfg := models.DefaultSecurityConfig()
	cfg.EnableIPWhitelist = true
	cfg.AllowedIPs = []string{"198.51.100.1"}
	handler, _ := whitelistHandler(t, cfg)

	assert.Equal(t, http.StatusOK, doRequest(handler, "127.0.0.1:1234").Code)
}

func TestIPWhitelist_ReadsPersistedPolicy(t *testing.T) {
	store, err := storage.NewDocumentStore(filepath.Join(t.TempDir(), "security_config.json"))
	require.NoError(t, err)
	repo := repositories.NewSecurityConfigRepository(store)
	_, err = repo.Update(func(cfg *models.SecurityConfig) error {
		cfg.EnableIPWhitelist = true
		cfg.AllowedIPs = []string{"198.51.100.1"}
		return nil
	})
	require.NoError(t, err)

	audit, err := accesslog.New(filepath.Join(t.TempDir(), "access_log.txt"))
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := middleware.IPWhitelist(repo, audit, &pkghttp.IPConfig{}, logger)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	assert.Equal(t, http.StatusOK, doRequest(handler, "198.51.100.1:1").Code)
	assert.Equal(t, http.StatusForbidden, doRequest(handler, "203.0.113.5:1").Code)
}
