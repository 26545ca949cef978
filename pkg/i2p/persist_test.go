package i2p

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOrGenerateDestinationMissingFileReturnsNil(t *testing.T) {
	priv, err := LoadOrGenerateDestination(filepath.Join(t.TempDir(), "dest.key"), false)
	require.NoError(t, err)
	assert.Nil(t, priv)
}

func TestLoadOrGenerateDestinationTransientSkipsDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dest.key")
	require.NoError(t, SaveDestination(path, []byte("some-private-destination-blob")))

	priv, err := LoadOrGenerateDestination(path, true)
	require.NoError(t, err)
	assert.Nil(t, priv)
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dest.key")
	raw := []byte("some-private-destination-blob")
	require.NoError(t, SaveDestination(path, raw))

	got, err := LoadOrGenerateDestination(path, false)
	require.NoError(t, err)
	assert.Equal(t, raw, got)
}
