package peer

import (
	"net"

	"github.com/bmrelay/relaynode/pkg/transport"
)

// upgradeSession performs the anonymous-ECDH handshake and returns the
// resulting encrypted session as a Conn.
func upgradeSession(conn net.Conn, isClient bool) (Conn, error) {
	return transport.Handshake(conn, isClient)
}
