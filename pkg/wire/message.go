package wire

import (
	"bytes"
	"fmt"
	"io"
)

// WriteMessage serializes header+payload for command and writes it to w.
func WriteMessage(w io.Writer, command string, payload []byte) error {
	var buf bytes.Buffer
	bw := NewBinWriter(&buf)
	EncodeHeader(bw, command, payload)
	if bw.Err != nil {
		return bw.Err
	}
	buf.Write(payload)
	_, err := w.Write(buf.Bytes())
	return err
}

// ReadMessage blocks until a full header+payload has been read from r.
// It is the framed counterpart to the Connection's precise-size receive
// described for the steady-state loop: callers that already have the
// exact number of header/payload bytes buffered should use DecodeHeader
// and a plain io.Reader over the buffer instead of this helper, which is
// intended for tests and for any transport that presents a blocking
// byte stream.
func ReadMessage(r io.Reader) (Header, []byte, error) {
	br := NewBinReader(r)
	h, err := DecodeHeader(br)
	if err != nil {
		return Header{}, nil, err
	}
	payload := make([]byte, h.PayloadLength)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Header{}, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if !h.VerifyChecksum(payload) {
		return Header{}, nil, ErrChecksum
	}
	return h, payload, nil
}
