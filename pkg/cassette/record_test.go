package cassette

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jointrine/http-mock-player/pkg/mockhttp"
)

func exchange(method string) mockhttp.Exchange {
	return mockhttp.Exchange{Request: mockhttp.Request{Method: method}}
}

func TestRecordWriteThenRewindThenReadAll(t *testing.T) {
	r := NewRecord("r1")
	r.Write(exchange("GET"))
	r.Write(exchange("POST"))
	assert.Equal(t, 2, r.Length())

	r.Rewind()
	for i := 0; i < r.Length(); i++ {
		_, err := r.Read()
		require.NoError(t, err)
	}

	_, err := r.Read()
	assert.True(t, errors.Is(err, ErrEndOfRecord))
}

func TestRecordReadPreservesOrder(t *testing.T) {
	r := NewRecord("r1")
	r.Write(exchange("GET"))
	r.Write(exchange("POST"))

	first, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, "GET", first.Request.Method)

	second, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, "POST", second.Request.Method)
}

func TestNewRecordFromExchangesCopiesBackingSlice(t *testing.T) {
	exchanges := []mockhttp.Exchange{exchange("GET")}
	r1 := newRecordFromExchanges("r1", exchanges)
	r2 := newRecordFromExchanges("r1", exchanges)
	// Changing the caller's slice must not reach either Record.
	exchanges[0] = exchange("POST")

	first, err := r1.Read()
	require.NoError(t, err)
	assert.Equal(t, "GET", first.Request.Method)
	// r2's cursor must be independent of r1's.
	_, err = r2.Read()
	require.NoError(t, err)
	_, err = r2.Read()
	assert.True(t, errors.Is(err, ErrEndOfRecord))
}
