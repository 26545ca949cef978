// Package payload implements the message bodies carried after a
// wire.Header: version, verack, addr, inv, getdata, and the opaque
// object/ping/pong/error variants.
package payload

import (
	"bytes"

	"github.com/bmrelay/relaynode/pkg/wire"
)

// Payload is anything that can serialize itself as a message body and
// report the command name it belongs under.
type Payload interface {
	Command() string
	Encode() ([]byte, error)
}

// Encode serializes p and wraps it in a full wire message.
func Encode(p Payload) ([]byte, error) {
	body, err := p.Encode()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := wire.WriteMessage(&buf, p.Command(), body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// VectorSize is the byte width of an inv/getdata vector.
const VectorSize = 32

// Vector identifies an Object by the first 32 bytes of its double
// SHA-512 digest.
type Vector [VectorSize]byte
