package mockhttp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUpstreamPreservesRawString(t *testing.T) {
	u, err := NewUpstream("https://api.example.com:8443/base")
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com:8443/base", u.Raw)
	assert.Equal(t, "api.example.com:8443", u.Host())
	assert.Equal(t, "api.example.com", u.Hostname())
}

func TestNewUpstreamRejectsInvalidURL(t *testing.T) {
	_, err := NewUpstream("://bad")
	assert.Error(t, err)
}
