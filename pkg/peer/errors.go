package peer

import "errors"

// ErrProtocolViolation covers K2 conditions: wrong protocol version or a
// self-connection detected via matching nonce. The offending connection
// is terminated; the process continues.
var ErrProtocolViolation = errors.New("peer: protocol violation")

// ErrTimeout covers K4: liveness/idle/handshake timeouts.
var ErrTimeout = errors.New("peer: timeout")

// ErrClosed is returned by operations attempted after the connection has
// transitioned to disconnecting/disconnected.
var ErrClosed = errors.New("peer: connection closed")
