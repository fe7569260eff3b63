package http

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractClientIP_DirectConnection(t *testing.T) {
	req := httptest.NewRequest("POST", "/", nil)
	req.RemoteAddr = "203.0.113.10:4711"

	ip := ExtractClientIP(req, &IPConfig{})

	assert.Equal(t, "203.0.113.10", ip)
}

func TestExtractClientIP_ForwardedHeaderIgnoredFromUntrustedPeer(t *testing.T) {
	req := httptest.NewRequest("POST", "/", nil)
	req.RemoteAddr = "203.0.113.10:4711"
	req.Header.Set("X-Forwarded-For", "198.51.100.7")

	ip := ExtractClientIP(req, &IPConfig{})

	// A reader must not be able to dodge the IP check by forging the header
	assert.Equal(t, "203.0.113.10", ip)
}

func TestExtractClientIP_ForwardedHeaderHonoredFromTrustedProxy(t *testing.T) {
	config := &IPConfig{TrustedProxies: []string{"10.0.0.0/8"}}

	req := httptest.NewRequest("POST", "/", nil)
	req.RemoteAddr = "10.1.2.3:4711"
	req.Header.Set("X-Forwarded-For", "198.51.100.7, 10.1.2.3")

	ip := ExtractClientIP(req, config)

	assert.Equal(t, "198.51.100.7", ip)
}

func TestExtractClientIP_RealIPFallback(t *testing.T) {
	config := &IPConfig{TrustedProxies: []string{"10.0.0.0/8"}}

	req := httptest.NewRequest("POST", "/", nil)
	req.RemoteAddr = "10.1.2.3:4711"
	req.Header.Set("X-Real-IP", "198.51.100.7")

	ip := ExtractClientIP(req, config)

	assert.Equal(t, "198.51.100.7", ip)
}

func TestExtractClientIP_GarbageForwardedValue(t *testing.T) {
	config := &IPConfig{TrustedProxies: []string{"10.0.0.0/8"}}

	req := httptest.NewRequest("POST", "/", nil)
	req.RemoteAddr = "10.1.2.3:4711"
	req.Header.Set("X-Forwarded-For", "not-an-ip")

	ip := ExtractClientIP(req, config)

	assert.Equal(t, "10.1.2.3", ip)
}
