package http_test

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	pkghttp "github.com/vistav/site-api/pkg/http"
)

func TestExtractClientIP_RemoteAddrOnly(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "203.0.113.5:41234"

	ip := pkghttp.ExtractClientIP(r, nil)
	assert.Equal(t, "203.0.113.5", ip)
}

func TestExtractClientIP_IgnoresForwardedFromUntrustedPeer(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "203.0.113.5:41234"
	r.Header.Set("X-Forwarded-For", "198.51.100.99")

	ip := pkghttp.ExtractClientIP(r, &pkghttp.IPConfig{TrustedProxies: []string{"10.0.0.0/8"}})
	assert.Equal(t, "203.0.113.5", ip)
}

func TestExtractClientIP_HonoursForwardedFromTrustedProxy(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.2:9999"
	r.Header.Set("X-Forwarded-For", "198.51.100.99, 10.0.0.2")

	ip := pkghttp.ExtractClientIP(r, &pkghttp.IPConfig{TrustedProxies: []string{"10.0.0.0/8"}})
	assert.Equal(t, "198.51.100.99", ip)
}

func TestExtractClientIP_RealIPFallback(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.2:9999"
	r.Header.Set("X-Real-IP", "198.51.100.7")

	ip := pkghttp.ExtractClientIP(r, &pkghttp.IPConfig{TrustedProxies: []string{"10.0.0.0/8"}})
	assert.Equal(t, "198.51.100.7", ip)
}

func TestIsLoopback(t *testing.T) {
	assert.True(t, pkghttp.IsLoopback("127.0.0.1"))
	assert.True(t, pkghttp.IsLoopback("::1"))
	assert.False(t, pkghttp.IsLoopback("203.0.113.5"))
	assert.False(t, pkghttp.IsLoopback("not-an-ip"))
}
