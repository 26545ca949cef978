package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bmrelay/relaynode/pkg/addrpool"
)

func TestParseTrustedPeerI2P(t *testing.T) {
	a, err := parseTrustedPeer("abc123.b32.i2p", 8444)
	require.NoError(t, err)
	assert.Equal(t, addrpool.I2P, a.Network)
	assert.Equal(t, "abc123.b32.i2p", a.Host)
}

func TestParseTrustedPeerIPWithPort(t *testing.T) {
	a, err := parseTrustedPeer("203.0.113.1:9999", 8444)
	require.NoError(t, err)
	assert.Equal(t, addrpool.IP, a.Network)
	assert.Equal(t, "203.0.113.1", a.Host)
	assert.EqualValues(t, 9999, a.Port)
}

func TestParseTrustedPeerIPDefaultsPort(t *testing.T) {
	a, err := parseTrustedPeer("203.0.113.1", 8444)
	require.NoError(t, err)
	assert.Equal(t, addrpool.IP, a.Network)
	assert.EqualValues(t, 8444, a.Port)
}

func TestParseTrustedPeerRejectsBadPort(t *testing.T) {
	_, err := parseTrustedPeer("203.0.113.1:notaport", 8444)
	assert.Error(t, err)
}
