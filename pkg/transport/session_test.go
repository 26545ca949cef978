package transport

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func handshakePair(t *testing.T) (*Session, *Session) {
	t.Helper()
	clientConn, serverConn := net.Pipe()

	type result struct {
		s   *Session
		err error
	}
	clientCh := make(chan result, 1)
	serverCh := make(chan result, 1)

	go func() {
		s, err := Handshake(clientConn, true)
		clientCh <- result{s, err}
	}()
	go func() {
		s, err := Handshake(serverConn, false)
		serverCh <- result{s, err}
	}()

	clientRes := <-clientCh
	serverRes := <-serverCh
	require.NoError(t, clientRes.err)
	require.NoError(t, serverRes.err)
	return clientRes.s, serverRes.s
}

func TestHandshakeDerivesMatchingDirectionalKeys(t *testing.T) {
	client, server := handshakePair(t)
	assert.Equal(t, client.sendAEAD, server.recvAEAD)
	assert.Equal(t, client.recvAEAD, server.sendAEAD)
	assert.NotEqual(t, client.sendAEAD, client.recvAEAD)
}

func TestWriteReadRoundTrips(t *testing.T) {
	client, server := handshakePair(t)

	msg := []byte("hello relay")
	done := make(chan error, 1)
	go func() {
		_, err := client.Write(msg)
		done <- err
	}()

	buf := make([]byte, len(msg))
	n, err := server.Read(buf)
	require.NoError(t, err)
	require.NoError(t, <-done)
	assert.Equal(t, msg, buf[:n])
}

func TestReadSmallerThanRecordBuffersRemainder(t *testing.T) {
	client, server := handshakePair(t)

	msg := []byte("a 24-byte header goes here!!")
	done := make(chan error, 1)
	go func() {
		_, err := client.Write(msg)
		done <- err
	}()

	var got []byte
	for len(got) < len(msg) {
		buf := make([]byte, 4)
		n, err := server.Read(buf)
		require.NoError(t, err)
		got = append(got, buf[:n]...)
	}
	require.NoError(t, <-done)
	assert.Equal(t, msg, got)
}

func TestOpenRejectsCiphertextFromAnUnrelatedSession(t *testing.T) {
	clientA, _ := handshakePair(t)
	_, serverB := handshakePair(t)

	nonce := make([]byte, clientA.sendCipher.NonceSize())
	ciphertext := clientA.sendCipher.Seal(nil, nonce, []byte("payload"), nil)

	_, err := serverB.recvCipher.Open(nil, nonce, ciphertext, nil)
	assert.Error(t, err)
}

func TestEphemeralPublicKeyIsCompressed(t *testing.T) {
	eph, err := NewEphemeral()
	require.NoError(t, err)
	pub := eph.PublicKeyBytes()
	assert.Len(t, pub, PubKeySize)
	assert.Contains(t, []byte{0x02, 0x03}, pub[0])
}
