package cassette

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOnMissingFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cassette.json")

	c, err := New(path)
	require.NoError(t, err)

	assert.False(t, c.Contains("r1"))
	assert.Empty(t, c.Names())
}

func TestSaveThenFindRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cassette.json")
	c, err := New(path)
	require.NoError(t, err)

	r := NewRecord("r1")
	r.Write(exchange("GET"))
	require.NoError(t, c.Save(r))

	assert.True(t, c.Contains("r1"))
	found := c.Find("r1")
	require.NotNil(t, found)
	assert.Equal(t, 1, found.Length())

	reloaded, err := New(path)
	require.NoError(t, err)
	assert.True(t, reloaded.Contains("r1"))
}

func TestFindReturnsIndependentRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cassette.json")
	c, err := New(path)
	require.NoError(t, err)

	r := NewRecord("r1")
	r.Write(exchange("GET"))
	require.NoError(t, c.Save(r))

	a := c.Find("r1")
	b := c.Find("r1")

	_, err = a.Read()
	require.NoError(t, err)
	_, err = b.Read()
	require.NoError(t, err, "independent Find calls must not share a cursor")
}

func TestFindMissingReturnsNil(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cassette.json")
	c, err := New(path)
	require.NoError(t, err)

	assert.Nil(t, c.Find("none"))
}

func TestSaveLeavesNoTemporaryFileBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cassette.json")
	c, err := New(path)
	require.NoError(t, err)

	require.NoError(t, c.Save(NewRecord("r1")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "cassette.json", entries[0].Name())
}

func TestNamesPreservesFirstSeenOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cassette.json")
	c, err := New(path)
	require.NoError(t, err)

	require.NoError(t, c.Save(NewRecord("b")))
	require.NoError(t, c.Save(NewRecord("a")))

	assert.Equal(t, []string{"b", "a"}, c.Names())
}
