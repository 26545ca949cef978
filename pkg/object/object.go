// Package object implements the gossiped unit of this network: an
// opaque, proof-of-work-sealed, time-bounded byte blob identified by its
// vector. It owns serialization, validity, expiry and the PoW target
// formula; it never interprets payload contents except for the one
// reserved I2P-destination marker type.
package object

import (
	"bytes"
	"crypto/sha512"
	"errors"
	"time"

	"github.com/holiman/uint256"

	"github.com/bmrelay/relaynode/pkg/wire"
)

const (
	// NonceTrialsPerByte and PayloadLengthExtraBytes are the two PoW
	// tuning parameters; both are fixed constants of this deployment,
	// not configuration.
	NonceTrialsPerByte      = 1000
	PayloadLengthExtraBytes = 1000

	// MaxPayloadLength is the largest payload this implementation will
	// store or relay.
	MaxPayloadLength = 1 << 18

	// MaxFutureExpiry bounds how far into the future an object's expiry
	// may sit.
	MaxFutureExpiry = 28*24*time.Hour + 3*time.Hour

	// ExpiryGrace is how long after its nominal expiry an object is kept
	// before being considered expired, matching peers whose clocks run
	// slightly behind.
	ExpiryGrace = 3 * time.Hour

	// Stream is the only stream number this implementation accepts.
	Stream = 1

	// VectorSize is the width of an object's identifying digest.
	VectorSize = 32
)

var (
	ErrExpired       = errors.New("object: expired")
	ErrTooFarFuture  = errors.New("object: expiry too far in the future")
	ErrPayloadTooBig = errors.New("object: payload exceeds maximum length")
	ErrBadStream     = errors.New("object: stream is not 1")
	ErrInsufficientPoW = errors.New("object: insufficient proof of work")
)

// Vector is the 32-byte double-SHA-512 digest identifying an Object.
type Vector [VectorSize]byte

// Object is the atomic unit of gossip.
type Object struct {
	Nonce        [8]byte
	ExpiresTime  uint64 // unix seconds
	ObjectType   uint32
	Version      uint64
	StreamNumber uint64
	Payload      []byte
}

// ToBytes serializes the object in the canonical order: nonce, expires,
// type, varint version, varint stream, payload.
func (o *Object) ToBytes() ([]byte, error) {
	var buf bytes.Buffer
	w := wire.NewBinWriter(&buf)
	w.Write(o.Nonce)
	w.Write(o.ExpiresTime)
	w.Write(o.ObjectType)
	w.VarUint(o.Version)
	w.VarUint(o.StreamNumber)
	if w.Err != nil {
		return nil, w.Err
	}
	buf.Write(o.Payload)
	return buf.Bytes(), nil
}

// FromBytes parses the payload of an `object` message.
func FromBytes(body []byte) (*Object, error) {
	if len(body) < 20 {
		return nil, wire.ErrMalformed
	}
	r := wire.NewBinReader(bytes.NewReader(body))
	o := &Object{}
	r.Read(&o.Nonce)
	r.Read(&o.ExpiresTime)
	r.Read(&o.ObjectType)
	if r.Err != nil {
		return nil, wire.ErrMalformed
	}
	o.Version = r.VarUint()
	o.StreamNumber = r.VarUint()
	if r.Err != nil {
		return nil, wire.ErrMalformed
	}
	rest, err := readRemainder(r)
	if err != nil {
		return nil, err
	}
	o.Payload = rest
	return o, nil
}

func readRemainder(r *wire.BinReader) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r.R); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Vector returns the object's identifying digest: the first 32 bytes of
// SHA512(SHA512(bytes)).
func (o *Object) Vector() (Vector, error) {
	b, err := o.ToBytes()
	if err != nil {
		return Vector{}, err
	}
	first := sha512.Sum512(b)
	second := sha512.Sum512(first[:])
	var v Vector
	copy(v[:], second[:VectorSize])
	return v, nil
}

// IsExpired reports whether the object is past its expiry-plus-grace
// window, relative to now.
func (o *Object) IsExpired(now time.Time) bool {
	expiry := time.Unix(int64(o.ExpiresTime), 0).Add(ExpiryGrace)
	return !now.Before(expiry)
}

// IsValid runs every structural and PoW check described for a received
// Object. It does not mutate the object.
func (o *Object) IsValid(now time.Time) error {
	if o.IsExpired(now) {
		return ErrExpired
	}
	if time.Unix(int64(o.ExpiresTime), 0).After(now.Add(MaxFutureExpiry)) {
		return ErrTooFarFuture
	}
	if len(o.Payload) > MaxPayloadLength {
		return ErrPayloadTooBig
	}
	if o.StreamNumber != Stream {
		return ErrBadStream
	}

	target, err := o.powTarget(now)
	if err != nil {
		return err
	}
	trial, err := o.powTrial()
	if err != nil {
		return err
	}
	if trial > target {
		return ErrInsufficientPoW
	}
	return nil
}

// powData returns the bytes the PoW hash runs over: the serialized
// object with the 8-byte nonce stripped off the front.
func (o *Object) powData() ([]byte, error) {
	b, err := o.ToBytes()
	if err != nil {
		return nil, err
	}
	return b[8:], nil
}

// powTarget computes floor(2^64 / (1000*(length + dt*length/65536))) for
// this object's current expiry relative to now, using 256-bit
// intermediate arithmetic since length*dt can overflow 64 bits for a
// payload near the maximum size with an expiry far in the future.
func (o *Object) powTarget(now time.Time) (uint64, error) {
	data, err := o.powData()
	if err != nil {
		return 0, err
	}
	return PowTarget(len(data)+8, o.expiryDelta(now))
}

// PowTarget is the standalone form of the target formula, usable by the
// PoW worker before an Object's nonce (and therefore its full byte form)
// is known.
func PowTarget(dataPlusNonceLen int, dt time.Duration) (uint64, error) {
	length := uint256.NewInt(uint64(dataPlusNonceLen + PayloadLengthExtraBytes))
	dtSecs := uint256.NewInt(uint64(dt / time.Second))

	extra := new(uint256.Int).Mul(dtSecs, uint256.NewInt(uint64(dataPlusNonceLen+PayloadLengthExtraBytes)))
	extra.Div(extra, uint256.NewInt(65536))

	denom := new(uint256.Int).Add(length, extra)
	denom.Mul(denom, uint256.NewInt(NonceTrialsPerByte))
	if denom.IsZero() {
		return 0, errors.New("object: zero pow denominator")
	}

	numerator := new(uint256.Int).Lsh(uint256.NewInt(1), 64)
	target := new(uint256.Int).Div(numerator, denom)
	return target.Uint64(), nil
}

func (o *Object) expiryDelta(now time.Time) time.Duration {
	dt := time.Unix(int64(o.ExpiresTime), 0).Sub(now)
	if dt < 0 {
		dt = 0
	}
	return dt
}

// powTrial computes be_u64(SHA512(SHA512(nonce||SHA512(data)))[:8]).
func (o *Object) powTrial() (uint64, error) {
	data, err := o.powData()
	if err != nil {
		return 0, err
	}
	return PowTrial(o.Nonce, data), nil
}

// PowTrial is the standalone trial computation the PoW worker iterates.
func PowTrial(nonce [8]byte, data []byte) uint64 {
	dataHash := sha512.Sum512(data)
	inner := sha512.Sum512(append(append([]byte{}, nonce[:]...), dataHash[:]...))
	outer := sha512.Sum512(inner[:])
	return beUint64(outer[:8])
}

// InitialHash is SHA512(data) where data is the object's bytes minus the
// leading nonce; the PoW worker hashes this once and then only rehashes
// the (nonce || hash) prefix per trial.
func InitialHash(data []byte) [sha512.Size]byte {
	return sha512.Sum512(data)
}

func beUint64(b []byte) uint64 {
	var v uint64
	for _, x := range b {
		v = v<<8 | uint64(x)
	}
	return v
}
