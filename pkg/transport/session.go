// Package transport implements the post-handshake session upgrade used
// between two IP peers that both advertise NODE_SSL (services&2): an
// anonymous (certificate-less) ECDH key agreement on secp256k1 followed
// by an AEAD record layer. See DESIGN.md for why this isn't built on
// crypto/tls: Go's standard TLS stack has never implemented anonymous
// cipher suites, so the wire behavior this network expects
// (AECDH-AES256-SHA, no certificate, no hostname check) has no stdlib
// path at all. This package composes the teacher's own secp256k1
// dependency with golang.org/x/crypto primitives instead.
package transport

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"io"
	"net"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// PubKeySize is the size of a compressed secp256k1 public key as
// exchanged over the wire.
const PubKeySize = 33

var ErrHandshakeFailed = errors.New("transport: handshake failed")

// Ephemeral is a one-shot ECDH keypair generated fresh for a single
// connection; nothing about it is persisted or tied to node identity,
// matching the anonymous suite's guarantee that peers cannot be
// fingerprinted by TLS identity.
type Ephemeral struct {
	priv *secp256k1.PrivateKey
}

func NewEphemeral() (*Ephemeral, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	return &Ephemeral{priv: priv}, nil
}

// PublicKeyBytes returns the compressed public key to send to the peer.
func (e *Ephemeral) PublicKeyBytes() [PubKeySize]byte {
	var out [PubKeySize]byte
	copy(out[:], e.priv.PubKey().SerializeCompressed())
	return out
}

// sharedSecret computes the ECDH shared x-coordinate with the peer's
// compressed public key.
func (e *Ephemeral) sharedSecret(peerPub [PubKeySize]byte) ([]byte, error) {
	pub, err := secp256k1.ParsePubKey(peerPub[:])
	if err != nil {
		return nil, err
	}
	var x secp256k1.FieldVal
	x.Set(&pub.X)
	// Multiply the peer's point by our scalar: standard ECDH.
	var result secp256k1.JacobianPoint
	pub.AsJacobian(&result)
	secp256k1.ScalarMultNonConst(&e.priv.Key, &result, &result)
	result.ToAffine()
	return result.X.Bytes()[:], nil
}

// Session is an established, directional-keyed AEAD channel layered
// over a net.Conn after the ECDH handshake completes.
type Session struct {
	conn       net.Conn
	sendAEAD   [32]byte
	recvAEAD   [32]byte
	sendCipher aeadCipher
	recvCipher aeadCipher
	sendSeq    uint64
	recvSeq    uint64

	// pending holds plaintext decrypted from a record but not yet
	// delivered to a caller, since a record's plaintext can be larger
	// than the buffer passed to a given Read call.
	pending []byte
}

type aeadCipher interface {
	Seal(dst, nonce, plaintext, additionalData []byte) []byte
	Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
	NonceSize() int
	Overhead() int
}

// Handshake performs the anonymous ECDH exchange over conn and derives
// the two directional session keys via HKDF-SHA256. isClient decides key
// ordering only; the wire exchange itself is symmetric.
func Handshake(conn net.Conn, isClient bool) (*Session, error) {
	eph, err := NewEphemeral()
	if err != nil {
		return nil, err
	}
	ours := eph.PublicKeyBytes()
	if _, err := conn.Write(ours[:]); err != nil {
		return nil, err
	}

	var theirs [PubKeySize]byte
	if _, err := io.ReadFull(conn, theirs[:]); err != nil {
		return nil, err
	}

	secret, err := eph.sharedSecret(theirs)
	if err != nil {
		return nil, ErrHandshakeFailed
	}

	clientPub, serverPub := ours, theirs
	if !isClient {
		clientPub, serverPub = theirs, ours
	}
	clientToServer, serverToClient, err := deriveKeys(secret, clientPub, serverPub)
	if err != nil {
		return nil, err
	}

	s := &Session{conn: conn}
	if isClient {
		s.sendAEAD, s.recvAEAD = clientToServer, serverToClient
	} else {
		s.sendAEAD, s.recvAEAD = serverToClient, clientToServer
	}

	s.sendCipher, err = chacha20poly1305.New(s.sendAEAD[:])
	if err != nil {
		return nil, err
	}
	s.recvCipher, err = chacha20poly1305.New(s.recvAEAD[:])
	if err != nil {
		return nil, err
	}
	return s, nil
}

func deriveKeys(secret []byte, a, b [PubKeySize]byte) (clientToServer, serverToClient [32]byte, err error) {
	salt := append(append([]byte{}, a[:]...), b[:]...)
	h := hkdf.New(sha256.New, secret, salt, []byte("bmrelay-session-v1"))
	if _, err = io.ReadFull(h, clientToServer[:]); err != nil {
		return
	}
	_, err = io.ReadFull(h, serverToClient[:])
	return
}

// Write encrypts and frames one record: a big-endian uint32 ciphertext
// length, then the ciphertext (which includes the Poly1305 tag).
func (s *Session) Write(p []byte) (int, error) {
	nonce := make([]byte, s.sendCipher.NonceSize())
	binary.BigEndian.PutUint64(nonce[s.sendCipher.NonceSize()-8:], s.sendSeq)
	s.sendSeq++

	ciphertext := s.sendCipher.Seal(nil, nonce, p, nil)
	var lenPrefix [4]byte
	binary.BigEndian.PutUint32(lenPrefix[:], uint32(len(ciphertext)))
	if _, err := s.conn.Write(lenPrefix[:]); err != nil {
		return 0, err
	}
	if _, err := s.conn.Write(ciphertext); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Read fills p from any buffered plaintext left over from a previous
// record before decrypting the next one off the wire, so a caller asking
// for fewer bytes than a record holds (as wire.ReadMessage's header reads
// do) never loses the rest of that record's plaintext.
func (s *Session) Read(p []byte) (int, error) {
	if len(s.pending) == 0 {
		if err := s.readRecord(); err != nil {
			return 0, err
		}
	}
	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

// readRecord reads and decrypts one framed record into s.pending.
func (s *Session) readRecord() error {
	var lenPrefix [4]byte
	if _, err := io.ReadFull(s.conn, lenPrefix[:]); err != nil {
		return err
	}
	n := binary.BigEndian.Uint32(lenPrefix[:])
	ciphertext := make([]byte, n)
	if _, err := io.ReadFull(s.conn, ciphertext); err != nil {
		return err
	}

	nonce := make([]byte, s.recvCipher.NonceSize())
	binary.BigEndian.PutUint64(nonce[s.recvCipher.NonceSize()-8:], s.recvSeq)
	s.recvSeq++

	plaintext, err := s.recvCipher.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return err
	}
	s.pending = plaintext
	return nil
}

func (s *Session) Close() error { return s.conn.Close() }

var _ io.ReadWriteCloser = (*Session)(nil)
