package mockhttp

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCookieFromHTTPAppliesDomainOverride(t *testing.T) {
	live := &http.Cookie{Name: "session", Value: "abc", Domain: "localhost", Path: "/"}

	c := cookieFromHTTP(live, "api.example.com")

	assert.Equal(t, "session", c.Name)
	assert.Equal(t, "api.example.com", c.Domain)
	assert.Nil(t, c.Expires)
}

func TestCookieFromHTTPMarksExpired(t *testing.T) {
	live := &http.Cookie{Name: "s", Value: "v", Expires: time.Now().Add(-time.Hour)}

	c := cookieFromHTTP(live, "")

	assert.True(t, c.Expired)
	assert.NotNil(t, c.Expires)
}

func TestCookieEqual(t *testing.T) {
	now := time.Now()
	a := Cookie{Name: "s", Value: "v", Domain: "d", Expires: &now}
	b := Cookie{Name: "s", Value: "v", Domain: "d", Expires: &now}
	assert.True(t, a.Equal(b))

	c := b
	c.Value = "other"
	assert.False(t, a.Equal(c))
}

func TestCookieRoundTripToHTTPCookie(t *testing.T) {
	c := Cookie{Name: "s", Value: "v", Domain: "d", Path: "/p", Secure: true}
	hc := c.toHTTPCookie()
	assert.Equal(t, "s", hc.Name)
	assert.Equal(t, "/p", hc.Path)
	assert.True(t, hc.Secure)
}
