package payload

import (
	"net"
	"testing"

	"github.com/bmrelay/relaynode/pkg/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddrRoundTrip(t *testing.T) {
	a := &Addr{Addrs: []wire.NetAddr{
		{Time: 1700000000, Stream: Stream, Services: ServiceNode, Host: net.ParseIP("203.0.113.1"), Port: 8444},
		{Time: 1700000001, Stream: Stream, Services: ServiceNode, Host: net.ParseIP("203.0.113.2"), Port: 8444},
	}}
	body, err := a.Encode()
	require.NoError(t, err)

	got, err := DecodeAddr(body)
	require.NoError(t, err)
	assert.Equal(t, a.Addrs, got.Addrs)
}

func TestDecodeAddrRejectsCountExceedingBody(t *testing.T) {
	// A 0xff marker selects the 8-byte-varint form; here it encodes a
	// count of 1, one more entry than this 9-byte body can carry.
	body := []byte{0xff, 0, 0, 0, 0, 0, 0, 0, 1}
	_, err := DecodeAddr(body)
	assert.ErrorIs(t, err, wire.ErrMalformed)
}

func TestDecodeAddrRejectsMaxUint64Count(t *testing.T) {
	// The 0xfd/0xfe/0xff marker forms can claim up to 2^64-1 entries;
	// without a bound this would panic makeslice rather than error.
	body := []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
	_, err := DecodeAddr(body)
	assert.ErrorIs(t, err, wire.ErrMalformed)
}
