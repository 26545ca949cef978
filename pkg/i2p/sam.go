package i2p

import (
	"bufio"
	"crypto/rand"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrSAMFailure wraps any non-OK result line the SAM bridge returns.
var ErrSAMFailure = errors.New("i2p: SAM bridge returned an error")

// Client talks to a local I2P router's SAMv3 control port. One Client
// owns exactly one streaming session (one nickname, one destination);
// additional raw sockets are opened against that session for each
// inbound accept and outbound dial, matching SAMv3's STREAM semantics.
// Grounded on original_source/minode/i2p/{controller,dialer,listener,util}.py.
type Client struct {
	samHost      string
	samPort      uint16
	tunnelLength int
	nick         string
	log          *zap.SugaredLogger

	destPriv []byte
	destPub  []byte
}

// Options configures a new SAM Client.
type Options struct {
	SAMHost      string
	SAMPort      uint16
	TunnelLength int
	Logger       *zap.SugaredLogger
}

func NewClient(opts Options) *Client {
	nick := "relaynode_" + randomHex(4)
	return &Client{samHost: opts.SAMHost, samPort: opts.SAMPort, tunnelLength: opts.TunnelLength, nick: nick, log: opts.Logger}
}

func randomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	const hex = "0123456789abcdef"
	out := make([]byte, 2*n)
	for i, c := range b {
		out[2*i] = hex[c>>4]
		out[2*i+1] = hex[c&0xf]
	}
	return string(out)
}

func (c *Client) dialSAM() (net.Conn, error) {
	return net.DialTimeout("tcp", net.JoinHostPort(c.samHost, portString(c.samPort)), 10*time.Second)
}

func portString(p uint16) string {
	b := [5]byte{}
	i := len(b)
	if p == 0 {
		return "0"
	}
	for p > 0 {
		i--
		b[i] = byte('0' + p%10)
		p /= 10
	}
	return string(b[i:])
}

func sendLine(conn net.Conn, line string) error {
	_, err := conn.Write([]byte(line + "\n"))
	return err
}

func readLine(conn net.Conn) (string, error) {
	r := bufio.NewReader(conn)
	line, err := r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func hasToken(reply, token string) bool {
	for _, f := range strings.Fields(reply) {
		if f == token {
			return true
		}
	}
	return false
}

func fieldValue(reply, prefix string) (string, bool) {
	for _, f := range strings.Fields(reply) {
		if strings.HasPrefix(f, prefix) {
			return strings.TrimPrefix(f, prefix), true
		}
	}
	return "", false
}

func hello(conn net.Conn) error {
	if err := sendLine(conn, "HELLO VERSION MIN=3.0 MAX=3.3"); err != nil {
		return err
	}
	reply, err := readLine(conn)
	if err != nil {
		return err
	}
	if !hasToken(reply, "RESULT=OK") {
		return fmt.Errorf("%w: %s", ErrSAMFailure, reply)
	}
	return nil
}

// CreateSession opens the session socket this Client keeps open for its
// whole lifetime. If destPriv is empty, a fresh destination is
// generated (transient, per §14); otherwise the supplied private
// destination is reused across restarts. The returned conn must be kept
// alive (read in a keepalive loop) for the session to stay valid.
func (c *Client) CreateSession(destPriv []byte) (conn net.Conn, pub []byte, err error) {
	conn, err = c.dialSAM()
	if err != nil {
		return nil, nil, err
	}
	if err := hello(conn); err != nil {
		conn.Close()
		return nil, nil, err
	}

	if len(destPriv) == 0 {
		if err := sendLine(conn, "DEST GENERATE SIGNATURE_TYPE=EdDSA_SHA512_Ed25519"); err != nil {
			conn.Close()
			return nil, nil, err
		}
		reply, err := readLine(conn)
		if err != nil {
			conn.Close()
			return nil, nil, err
		}
		privB64, ok := fieldValue(reply, "PRIV=")
		if !ok {
			conn.Close()
			return nil, nil, fmt.Errorf("%w: %s", ErrSAMFailure, reply)
		}
		destPriv, err = DecodeDestination(privB64)
		if err != nil {
			conn.Close()
			return nil, nil, err
		}
	}

	pub, err = PublicFromPrivate(destPriv)
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	c.destPriv = destPriv
	c.destPub = pub

	sessionCmd := fmt.Sprintf("SESSION CREATE STYLE=STREAM ID=%s inbound.length=%d outbound.length=%d DESTINATION=%s",
		c.nick, c.tunnelLength, c.tunnelLength, EncodeDestination(destPriv))
	if err := sendLine(conn, sessionCmd); err != nil {
		conn.Close()
		return nil, nil, err
	}
	reply, err := readLine(conn)
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	if !hasToken(reply, "RESULT=OK") {
		conn.Close()
		return nil, nil, fmt.Errorf("%w: %s", ErrSAMFailure, reply)
	}

	return conn, pub, nil
}

// DestinationPriv returns the raw private destination blob, used to
// persist it across restarts.
func (c *Client) DestinationPriv() []byte { return c.destPriv }

// DestinationPub returns the raw public destination blob, the payload
// carried by a self-published I2P-destination object.
func (c *Client) DestinationPub() []byte { return c.destPub }

// B32Address returns this session's .b32.i2p address.
func (c *Client) B32Address() string { return B32Address(c.destPub) }

// KeepAlive services the session socket's PING/PONG liveness protocol
// until the socket closes; cmd/relaynode's main starts it in its own
// goroutine for the lifetime of the I2P session.
func KeepAlive(conn net.Conn, log *zap.SugaredLogger) {
	for {
		line, err := readLine(conn)
		if err != nil {
			return
		}
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[0] == "PING" {
			if err := sendLine(conn, "PONG "+fields[1]); err != nil {
				return
			}
		}
	}
}

// Dial opens a new STREAM CONNECT socket to a remote .b32.i2p (or full
// base64) destination, reusing this Client's session nickname.
func (c *Client) Dial(destination string) (net.Conn, error) {
	conn, err := c.dialSAM()
	if err != nil {
		return nil, err
	}
	if err := hello(conn); err != nil {
		conn.Close()
		return nil, err
	}
	cmd := fmt.Sprintf("STREAM CONNECT ID=%s DESTINATION=%s", c.nick, destination)
	if err := sendLine(conn, cmd); err != nil {
		conn.Close()
		return nil, err
	}
	reply, err := readLine(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if !hasToken(reply, "RESULT=OK") {
		conn.Close()
		return nil, fmt.Errorf("%w: %s", ErrSAMFailure, reply)
	}
	return conn, nil
}

// AcceptOnce opens one STREAM ACCEPT socket and blocks until a single
// inbound connection arrives on it, returning the destination that
// connected and the socket to read/write its stream. Callers loop,
// calling AcceptOnce again after each connection the way the reference
// listener recreates its accept socket after every accept.
func (c *Client) AcceptOnce() (net.Conn, string, error) {
	conn, err := c.dialSAM()
	if err != nil {
		return nil, "", err
	}
	if err := hello(conn); err != nil {
		conn.Close()
		return nil, "", err
	}
	if err := sendLine(conn, "STREAM ACCEPT ID="+c.nick); err != nil {
		conn.Close()
		return nil, "", err
	}
	reply, err := readLine(conn)
	if err != nil {
		conn.Close()
		return nil, "", err
	}
	if !hasToken(reply, "RESULT=OK") {
		conn.Close()
		return nil, "", fmt.Errorf("%w: %s", ErrSAMFailure, reply)
	}

	destLine, err := readLine(conn)
	if err != nil {
		conn.Close()
		return nil, "", err
	}
	destination := strings.Fields(destLine)
	if len(destination) == 0 {
		conn.Close()
		return nil, "", ErrSAMFailure
	}
	return conn, destination[0], nil
}
