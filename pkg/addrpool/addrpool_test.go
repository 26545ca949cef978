package addrpool

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddUncheckedThenPromote(t *testing.T) {
	ps := New()
	a := Addr{Network: IP, Host: "203.0.113.9", Port: 8444, Services: 1}

	ps.AddUnchecked(a)
	assert.Len(t, ps.UncheckedIP(), 1)
	assert.Len(t, ps.KnownIP(), 0)

	ps.PromoteKnown(a)
	assert.Len(t, ps.UncheckedIP(), 0)
	assert.Len(t, ps.KnownIP(), 1)
}

func TestAddUncheckedSkipsAlreadyKnown(t *testing.T) {
	ps := New()
	a := Addr{Network: IP, Host: "203.0.113.9", Port: 8444}
	ps.PromoteKnown(a)
	ps.AddUnchecked(a)
	assert.Len(t, ps.UncheckedIP(), 0)
}

func TestCapEnforcesLimit(t *testing.T) {
	ps := New()
	for i := 0; i < CapIPUnchecked+50; i++ {
		ps.AddUnchecked(Addr{Network: IP, Host: "10.0.0.1", Port: uint16(i)})
	}
	ps.Cap()
	assert.LessOrEqual(t, len(ps.UncheckedIP()), CapIPUnchecked)
}

func TestSnapshotRoundTrip(t *testing.T) {
	ps := New()
	ps.PromoteKnown(Addr{Network: IP, Host: "203.0.113.9", Port: 8444, Services: 3})
	ps.AddUnchecked(Addr{Network: I2P, Host: "abc123.b32.i2p"})

	dir := t.TempDir()
	require.NoError(t, ps.SaveSnapshot(dir))

	loaded := New()
	require.NoError(t, loaded.LoadSnapshot(filepath.Clean(dir)))
	assert.Len(t, loaded.KnownIP(), 1)
	assert.Len(t, loaded.UncheckedI2P(), 1)
}
