package payload

import "github.com/bmrelay/relaynode/pkg/wire"

// VerAck, Ping, Pong and Error all carry either no payload or an opaque
// one; none of them needs field-level structure.

type VerAck struct{}

func (VerAck) Command() string          { return wire.CmdVerAck }
func (VerAck) Encode() ([]byte, error)  { return nil, nil }

// Opaque carries an arbitrary byte payload for ping/pong/error, none of
// which this implementation interprets beyond logging.
type Opaque struct {
	Cmd     string
	Payload []byte
}

func (o Opaque) Command() string         { return o.Cmd }
func (o Opaque) Encode() ([]byte, error) { return o.Payload, nil }

func NewPing(nonce []byte) Opaque { return Opaque{Cmd: wire.CmdPing, Payload: nonce} }
func NewPong(nonce []byte) Opaque { return Opaque{Cmd: wire.CmdPong, Payload: nonce} }
func NewError(msg string) Opaque  { return Opaque{Cmd: wire.CmdError, Payload: []byte(msg)} }
