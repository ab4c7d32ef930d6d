package mockhttp

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testUpstream(t *testing.T) Upstream {
	t.Helper()
	u, err := NewUpstream("https://api.example.com")
	require.NoError(t, err)
	return u
}

func TestFromHTTPRequestBuildsUpstreamURI(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/users/u1?verbose=true", nil)

	req, err := FromHTTPRequest(r, testUpstream(t))
	require.NoError(t, err)

	assert.Equal(t, "GET", req.Method)
	assert.Equal(t, "https://api.example.com/users/u1?verbose=true", req.URI)
	assert.Nil(t, req.Content)
}

func TestFromHTTPRequestCapturesBodyAndRewritesHost(t *testing.T) {
	body := `{"name":"alice"}`
	r := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")

	req, err := FromHTTPRequest(r, testUpstream(t))
	require.NoError(t, err)

	require.NotNil(t, req.Content)
	assert.Equal(t, body, *req.Content)
	assert.Equal(t, "api.example.com", req.Headers["Host"])

	// the live request's body must still be readable by the caller
	replayed, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	assert.Equal(t, body, string(replayed))
}

func TestToHTTPRequestAppliesRestrictedHeaders(t *testing.T) {
	content := "hello"
	req := &Request{
		Method:  "POST",
		URI:     "https://api.example.com/echo",
		Content: &content,
		Headers: map[string]string{
			"Connection":   "Keep-Alive",
			"Content-Type": "text/plain",
			"X-Custom":     "v1",
			"Expect":       "100-continue",
		},
	}

	httpReq, err := req.ToHTTPRequest()
	require.NoError(t, err)

	assert.False(t, httpReq.Close)
	assert.Equal(t, "text/plain", httpReq.Header.Get("Content-Type"))
	assert.Equal(t, "v1", httpReq.Header.Get("X-Custom"))
	assert.Empty(t, httpReq.Header.Get("Expect"))
}

func TestToHTTPRequestConnectionClose(t *testing.T) {
	req := &Request{
		Method:  "GET",
		URI:     "https://api.example.com/",
		Headers: map[string]string{"Connection": "close"},
	}

	httpReq, err := req.ToHTTPRequest()
	require.NoError(t, err)
	assert.True(t, httpReq.Close)
}

func TestRequestEqualExact(t *testing.T) {
	a := &Request{Method: "GET", URI: "https://x/a", Headers: map[string]string{"X": "1"}}
	b := &Request{Method: "GET", URI: "https://x/a", Headers: map[string]string{"X": "1"}}
	assert.True(t, a.Equal(b))

	c := &Request{Method: "GET", URI: "https://x/b", Headers: map[string]string{"X": "1"}}
	assert.False(t, a.Equal(c))
}

func TestRequestEqualKeepAliveTolerance(t *testing.T) {
	recorded := &Request{
		Method:  "GET",
		URI:     "https://x/a",
		Headers: map[string]string{"Connection": "Keep-Alive"},
	}
	live := &Request{
		Method:  "GET",
		URI:     "https://x/a",
		Headers: nil,
	}

	assert.True(t, recorded.Equal(live))
}

func TestRequestEqualHeaderCountMismatch(t *testing.T) {
	recorded := &Request{Method: "GET", URI: "https://x/a", Headers: map[string]string{"A": "1", "B": "2"}}
	live := &Request{Method: "GET", URI: "https://x/a", Headers: map[string]string{"A": "1"}}
	assert.False(t, recorded.Equal(live))
}

func TestRequestEqualCookies(t *testing.T) {
	recorded := &Request{
		Method:  "GET",
		URI:     "https://x/a",
		Cookies: []Cookie{{Name: "s", Value: "v"}},
	}
	live := &Request{
		Method:  "GET",
		URI:     "https://x/a",
		Cookies: []Cookie{{Name: "s", Value: "v"}},
	}
	assert.True(t, recorded.Equal(live))

	live.Cookies[0].Value = "other"
	assert.False(t, recorded.Equal(live))
}
