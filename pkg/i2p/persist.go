package i2p

import (
	"fmt"
	"os"
)

// LoadOrGenerateDestination returns the private destination blob stored
// at path, or nil if the file does not exist (letting CreateSession
// generate a fresh one) or the I2P.Transient config flag is set (§14's
// "I2P destination key persistence" supplement). When CreateSession
// hands back a freshly generated destination, the caller should persist
// it with SaveDestination so restarts reuse the same .b32.i2p address.
func LoadOrGenerateDestination(path string, transient bool) ([]byte, error) {
	if transient || path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("i2p: read destination key: %w", err)
	}
	return DecodeDestination(string(data))
}

// SaveDestination persists a private destination blob to path so that
// LoadOrGenerateDestination can reuse it across restarts.
func SaveDestination(path string, priv []byte) error {
	if path == "" {
		return nil
	}
	return os.WriteFile(path, []byte(EncodeDestination(priv)), 0o600)
}
