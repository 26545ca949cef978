// Package i2p implements the pieces of I2P connectivity this node
// needs: a SAMv3 control client for accepting and dialing streaming
// connections over a local I2P router, and the destination-encoding
// helpers that let a raw I2P public destination travel inside this
// network's own object gossip. Grounded on
// `original_source/minode/i2p/{util,controller,dialer,listener}.py`.
package i2p

import (
	"crypto/sha256"
	"encoding/base32"
	"encoding/base64"
	"errors"
)

// altEncoding is I2P's base64 dialect: the usual alphabet with '+' and
// '/' swapped for '-' and '~' so destinations are filesystem- and
// URL-safe.
var altEncoding = base64.NewEncoding("ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-~").WithPadding(base64.StdPadding)

// ErrMalformedDestination is returned when a SAM private/public
// destination blob does not have the certificate-length header the
// format requires.
var ErrMalformedDestination = errors.New("i2p: malformed destination")

// EncodeDestination renders raw destination bytes in I2P's base64
// dialect, the form SAM and .b32.i2p addresses both build on.
func EncodeDestination(raw []byte) string {
	return altEncoding.EncodeToString(raw)
}

// DecodeDestination parses an I2P base64 destination string back to raw
// bytes.
func DecodeDestination(s string) ([]byte, error) {
	return altEncoding.DecodeString(s)
}

// PublicFromPrivate extracts the public destination from a SAM
// DEST GENERATE private key blob: 256 bytes of public key, 128 bytes
// of signing key, a 3-byte certificate header, and a certificate body
// whose length is encoded big-endian in the last two bytes of that
// header (the first is the certificate type).
func PublicFromPrivate(priv []byte) ([]byte, error) {
	if len(priv) < 387 {
		return nil, ErrMalformedDestination
	}
	certLen := int(priv[385])<<8 | int(priv[386])
	end := 387 + certLen
	if end > len(priv) {
		return nil, ErrMalformedDestination
	}
	return priv[:end], nil
}

// B32Address derives the .b32.i2p address for a raw public destination:
// lowercase, unpadded base32 of SHA256(destination).
func B32Address(pubRaw []byte) string {
	sum := sha256.Sum256(pubRaw)
	enc := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(sum[:])
	return lower(enc) + ".b32.i2p"
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
