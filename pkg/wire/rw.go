// Package wire implements the object-relay wire format: the 24-byte
// message header, the Bitcoin-style variable-length integer, and the
// network-address encodings shared by every payload in pkg/wire/payload.
package wire

import (
	"encoding/binary"
	"io"
)

// BinReader wraps an io.Reader and sticks the first error it encounters,
// so a struct with many fields can be decoded without checking err after
// every call. Every protocol field on this network is big-endian.
type BinReader struct {
	R   io.Reader
	Err error
}

func NewBinReader(r io.Reader) *BinReader {
	return &BinReader{R: r}
}

func (r *BinReader) Read(v interface{}) {
	if r.Err != nil {
		return
	}
	r.Err = binary.Read(r.R, binary.BigEndian, v)
}

// VarUint reads a Bitcoin-style variable length integer: values below
// 0xfd encode as a single byte, otherwise a marker byte selects a 2/4/8
// byte big-endian width.
func (r *BinReader) VarUint() uint64 {
	if r.Err != nil {
		return 0
	}
	var b uint8
	r.Read(&b)
	switch b {
	case 0xfd:
		var v uint16
		r.Read(&v)
		return uint64(v)
	case 0xfe:
		var v uint32
		r.Read(&v)
		return uint64(v)
	case 0xff:
		var v uint64
		r.Read(&v)
		return v
	default:
		return uint64(b)
	}
}

// VarBytes reads a VarUint length prefix followed by that many bytes.
func (r *BinReader) VarBytes() []byte {
	n := r.VarUint()
	if r.Err != nil {
		return nil
	}
	b := make([]byte, n)
	r.Read(b)
	return b
}

func (r *BinReader) VarString() string {
	return string(r.VarBytes())
}

// BinWriter is the write-side counterpart of BinReader.
type BinWriter struct {
	W   io.Writer
	Err error
}

func NewBinWriter(w io.Writer) *BinWriter {
	return &BinWriter{W: w}
}

func (w *BinWriter) Write(v interface{}) {
	if w.Err != nil {
		return
	}
	w.Err = binary.Write(w.W, binary.BigEndian, v)
}

func (w *BinWriter) VarUint(val uint64) {
	if w.Err != nil {
		return
	}
	switch {
	case val < 0xfd:
		w.Write(uint8(val))
	case val <= 0xffff:
		w.Write(uint8(0xfd))
		w.Write(uint16(val))
	case val <= 0xffffffff:
		w.Write(uint8(0xfe))
		w.Write(uint32(val))
	default:
		w.Write(uint8(0xff))
		w.Write(val)
	}
}

func (w *BinWriter) VarBytes(b []byte) {
	w.VarUint(uint64(len(b)))
	w.Write(b)
}

func (w *BinWriter) VarString(s string) {
	w.VarBytes([]byte(s))
}

// VarIntLen returns the encoded length in bytes of a VarUint for n
// without writing anything, used when a caller needs to size a buffer
// ahead of time.
func VarIntLen(n uint64) int {
	switch {
	case n < 0xfd:
		return 1
	case n <= 0xffff:
		return 3
	case n <= 0xffffffff:
		return 5
	default:
		return 9
	}
}
