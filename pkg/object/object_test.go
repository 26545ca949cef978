package object

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkObject(payloadLen int, expires time.Time) *Object {
	return &Object{
		ExpiresTime:  uint64(expires.Unix()),
		ObjectType:   1,
		Version:      1,
		StreamNumber: Stream,
		Payload:      make([]byte, payloadLen),
	}
}

func TestObjectRoundTrip(t *testing.T) {
	o := mkObject(10, time.Now().Add(time.Hour))
	o.Nonce = [8]byte{9, 9, 9, 9, 9, 9, 9, 9}
	b, err := o.ToBytes()
	require.NoError(t, err)

	got, err := FromBytes(b)
	require.NoError(t, err)
	assert.Equal(t, o.Nonce, got.Nonce)
	assert.Equal(t, o.ExpiresTime, got.ExpiresTime)
	assert.Equal(t, o.ObjectType, got.ObjectType)
	assert.Equal(t, o.Version, got.Version)
	assert.Equal(t, o.StreamNumber, got.StreamNumber)
	assert.Equal(t, o.Payload, got.Payload)

	v1, err := o.Vector()
	require.NoError(t, err)
	v2, err := got.Vector()
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
}

func TestPayloadLengthBoundary(t *testing.T) {
	now := time.Now()
	okObj := mkObject(MaxPayloadLength, now.Add(time.Hour))
	mineUntilValid(t, okObj, now)
	assert.NoError(t, okObj.IsValid(now))

	tooBig := mkObject(MaxPayloadLength+1, now.Add(time.Hour))
	mineUntilValid(t, tooBig, now)
	assert.ErrorIs(t, tooBig.IsValid(now), ErrPayloadTooBig)
}

func TestExpiryBoundary(t *testing.T) {
	now := time.Now()
	atBoundary := mkObject(1, now.Add(MaxFutureExpiry))
	mineUntilValid(t, atBoundary, now)
	assert.NoError(t, atBoundary.IsValid(now))

	overBoundary := mkObject(1, now.Add(MaxFutureExpiry+time.Second))
	mineUntilValid(t, overBoundary, now)
	assert.ErrorIs(t, overBoundary.IsValid(now), ErrTooFarFuture)
}

func TestExpiredObjectIsInvalid(t *testing.T) {
	now := time.Now()
	o := mkObject(1, now.Add(-4*time.Hour))
	assert.True(t, o.IsExpired(now))
	assert.ErrorIs(t, o.IsValid(now), ErrExpired)
}

func TestWrongStreamIsInvalid(t *testing.T) {
	now := time.Now()
	o := mkObject(1, now.Add(time.Hour))
	o.StreamNumber = 2
	mineUntilValid(t, o, now)
	assert.ErrorIs(t, o.IsValid(now), ErrBadStream)
}

func TestPowTrialMatchesTarget(t *testing.T) {
	now := time.Now()
	o := mkObject(50, now.Add(time.Hour))
	mineUntilValid(t, o, now)

	target, err := o.powTarget(now)
	require.NoError(t, err)
	trial, err := o.powTrial()
	require.NoError(t, err)
	assert.LessOrEqual(t, trial, target)
}

// mineUntilValid brute-forces a nonce the same way the PoW worker does,
// used only to produce objects that pass IsValid in tests that are not
// themselves testing PoW search.
func mineUntilValid(t *testing.T, o *Object, now time.Time) {
	t.Helper()
	target, err := o.powTarget(now)
	require.NoError(t, err)
	data, err := o.powData()
	require.NoError(t, err)
	for n := uint64(1); ; n++ {
		var nonce [8]byte
		for i := 0; i < 8; i++ {
			nonce[7-i] = byte(n >> (8 * i))
		}
		if PowTrial(nonce, data) <= target {
			o.Nonce = nonce
			return
		}
	}
}
