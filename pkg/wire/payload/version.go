package payload

import (
	"bytes"

	"github.com/bmrelay/relaynode/pkg/wire"
)

// ProtocolVersion is the only protocol version this implementation
// speaks or accepts.
const ProtocolVersion uint32 = 3

// ServiceNode is the basic relay capability bit; every peer advertises
// it.
const ServiceNode uint64 = 1

// ServiceSSL (NODE_SSL) advertises that a peer will negotiate the
// anonymous-ECDH session layer over IP once the handshake completes.
const ServiceSSL uint64 = 2

// Stream is the only stream number objects are gossiped on.
const Stream uint32 = 1

// Version is the first message exchanged on every connection.
type Version struct {
	ProtocolVersion uint32
	Services        uint64
	Timestamp       uint64
	Remote          wire.NetAddrNoPrefix
	Local           wire.NetAddrNoPrefix
	Nonce           [8]byte
	UserAgent       string
	// Streams is always {Stream} in this implementation; it is kept as a
	// slice to mirror the wire trailer's varint-count-then-varints shape
	// rather than hardcoding the single-element case.
	Streams []uint32
}

func (v *Version) Command() string { return wire.CmdVersion }

func (v *Version) Encode() ([]byte, error) {
	var buf bytes.Buffer
	w := wire.NewBinWriter(&buf)
	w.Write(v.ProtocolVersion)
	w.Write(v.Services)
	w.Write(v.Timestamp)

	remote, err := v.Remote.Bytes()
	if err != nil {
		return nil, err
	}
	w.Write(remote)

	local, err := v.Local.Bytes()
	if err != nil {
		return nil, err
	}
	w.Write(local)

	w.Write(v.Nonce)
	w.VarString(v.UserAgent)

	w.VarUint(uint64(len(v.Streams)))
	for _, s := range v.Streams {
		w.VarUint(uint64(s))
	}
	if w.Err != nil {
		return nil, w.Err
	}
	return buf.Bytes(), nil
}

func DecodeVersion(body []byte) (*Version, error) {
	r := wire.NewBinReader(bytes.NewReader(body))
	v := &Version{}
	r.Read(&v.ProtocolVersion)
	r.Read(&v.Services)
	r.Read(&v.Timestamp)

	var remote, local [wire.NetAddrNoPrefixSize]byte
	r.Read(&remote)
	r.Read(&local)
	r.Read(&v.Nonce)
	if r.Err != nil {
		return nil, wire.ErrMalformed
	}

	var err error
	v.Remote, err = wire.NetAddrNoPrefixFromBytes(remote[:])
	if err != nil {
		return nil, err
	}
	v.Local, err = wire.NetAddrNoPrefixFromBytes(local[:])
	if err != nil {
		return nil, err
	}

	v.UserAgent = r.VarString()
	if r.Err != nil {
		return nil, wire.ErrMalformed
	}

	count := r.VarUint()
	if r.Err != nil || count > uint64(len(body)) {
		return nil, wire.ErrMalformed
	}
	streams := make([]uint32, 0, count)
	for i := uint64(0); i < count; i++ {
		streams = append(streams, uint32(r.VarUint()))
	}
	if r.Err != nil {
		return nil, wire.ErrMalformed
	}
	v.Streams = streams
	if len(v.Streams) != 1 || v.Streams[0] != Stream {
		return nil, wire.ErrBadStream
	}
	return v, nil
}
