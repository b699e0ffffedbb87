package httpapi

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFillTemplate(t *testing.T) {
	out := fillTemplate("A {{subject}} in {{style}} style, {{subject}} again", map[string]string{
		"subject": "fox",
		"style":   "watercolor",
	})
	assert.Equal(t, "A fox in watercolor style, fox again", out)

	// Unknown placeholders are left in place.
	assert.Equal(t, "hello {{name}}", fillTemplate("hello {{name}}", nil))
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "203.0.113.9:51234"

	ip := clientIP(r)
	require.NotNil(t, ip)
	assert.Equal(t, "203.0.113.9", *ip)

	r.Header.Set("X-Real-IP", "198.51.100.4")
	ip = clientIP(r)
	require.NotNil(t, ip)
	assert.Equal(t, "198.51.100.4", *ip)

	r.Header.Set("X-Forwarded-For", "192.0.2.1, 10.0.0.1")
	ip = clientIP(r)
	require.NotNil(t, ip)
	assert.Equal(t, "192.0.2.1", *ip)
}

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest("GET", "/ws?token=query-token", nil)
	assert.Equal(t, "query-token", bearerToken(r))

	r.Header.Set("Authorization", "Bearer header-token")
	assert.Equal(t, "header-token", bearerToken(r))

	r = httptest.NewRequest("GET", "/", nil)
	assert.Equal(t, "", bearerToken(r))
}
