package wire

import (
	"bytes"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVarUintRoundTrip(t *testing.T) {
	cases := []uint64{0, 0xfc, 0xfd, 0xffff, 0x10000, 1<<32 - 1, 1 << 32, 1<<64 - 1}
	for _, n := range cases {
		var buf bytes.Buffer
		w := NewBinWriter(&buf)
		w.VarUint(n)
		require.NoError(t, w.Err)

		r := NewBinReader(&buf)
		got := r.VarUint()
		require.NoError(t, r.Err)
		assert.Equal(t, n, got, "round trip for %d", n)
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	payload := []byte("hello object relay")
	var buf bytes.Buffer
	require.NoError(t, WriteMessage(&buf, CmdObject, payload))

	h, got, err := ReadMessage(&buf)
	require.NoError(t, err)
	assert.Equal(t, CmdObject, h.Command)
	assert.Equal(t, payload, got)
}

func TestDecodeHeaderBadMagic(t *testing.T) {
	var buf bytes.Buffer
	w := NewBinWriter(&buf)
	w.Write(uint32(0x11111111))
	w.Write([12]byte{})
	w.Write(uint32(0))
	w.Write([4]byte{})
	require.NoError(t, w.Err)

	_, err := DecodeHeader(NewBinReader(&buf))
	assert.ErrorIs(t, err, ErrBadMagic)
}

func TestDecodeHeaderChecksumMismatch(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMessage(&buf, CmdPing, []byte("x")))
	raw := buf.Bytes()
	raw[len(raw)-1] ^= 0xff // corrupt the payload after the checksum was computed

	_, _, err := ReadMessage(bytes.NewReader(raw))
	assert.ErrorIs(t, err, ErrChecksum)
}

func TestNetAddrIPv4RoundTrip(t *testing.T) {
	n := NetAddr{Time: 1700000000, Stream: 1, Services: 3, Host: net.ParseIP("203.0.113.7"), Port: 8444}
	b, err := n.Bytes()
	require.NoError(t, err)

	got, err := NetAddrFromBytes(b[:])
	require.NoError(t, err)
	assert.Equal(t, n.Time, got.Time)
	assert.Equal(t, n.Stream, got.Stream)
	assert.Equal(t, n.Services, got.Services)
	assert.Equal(t, n.Port, got.Port)
	assert.True(t, n.Host.Equal(got.Host))
}

func TestNetAddrIPv6RoundTrip(t *testing.T) {
	n := NetAddr{Time: 1, Stream: 1, Services: 1, Host: net.ParseIP("2001:db8::1"), Port: 1}
	b, err := n.Bytes()
	require.NoError(t, err)

	got, err := NetAddrFromBytes(b[:])
	require.NoError(t, err)
	assert.True(t, n.Host.Equal(got.Host))
}
