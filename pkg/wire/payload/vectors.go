package payload

import (
	"bytes"

	"github.com/bmrelay/relaynode/pkg/wire"
)

// MaxVectorsPerMessage caps a single inv/getdata message. Very slow I2P
// links time out on larger frames, so a caller with more vectors than
// this must chunk across several messages.
const MaxVectorsPerMessage = 10000

// Inv advertises a set of vectors the sender has, without Objects.
type Inv struct {
	Vectors []Vector
}

func (i *Inv) Command() string         { return wire.CmdInv }
func (i *Inv) Encode() ([]byte, error) { return encodeVectors(i.Vectors) }

func DecodeInv(body []byte) (*Inv, error) {
	v, err := decodeVectors(body)
	if err != nil {
		return nil, err
	}
	return &Inv{Vectors: v}, nil
}

// GetData requests the Objects behind a set of vectors.
type GetData struct {
	Vectors []Vector
}

func (g *GetData) Command() string         { return wire.CmdGetData }
func (g *GetData) Encode() ([]byte, error) { return encodeVectors(g.Vectors) }

func DecodeGetData(body []byte) (*GetData, error) {
	v, err := decodeVectors(body)
	if err != nil {
		return nil, err
	}
	return &GetData{Vectors: v}, nil
}

func encodeVectors(vectors []Vector) ([]byte, error) {
	if len(vectors) > MaxVectorsPerMessage {
		return nil, wire.ErrPayloadTooLarge
	}
	var buf bytes.Buffer
	w := wire.NewBinWriter(&buf)
	w.VarUint(uint64(len(vectors)))
	for _, v := range vectors {
		w.Write(v)
	}
	if w.Err != nil {
		return nil, w.Err
	}
	return buf.Bytes(), nil
}

func decodeVectors(body []byte) ([]Vector, error) {
	r := wire.NewBinReader(bytes.NewReader(body))
	count := r.VarUint()
	if r.Err != nil || count > MaxVectorsPerMessage {
		return nil, wire.ErrMalformed
	}
	out := make([]Vector, 0, count)
	for i := uint64(0); i < count; i++ {
		var v Vector
		r.Read(&v)
		if r.Err != nil {
			return nil, wire.ErrMalformed
		}
		out = append(out, v)
	}
	return out, nil
}

// ChunkVectors partitions vectors into groups of at most
// MaxVectorsPerMessage, in the order given.
func ChunkVectors(vectors []Vector) [][]Vector {
	if len(vectors) == 0 {
		return nil
	}
	var chunks [][]Vector
	for len(vectors) > 0 {
		n := MaxVectorsPerMessage
		if n > len(vectors) {
			n = len(vectors)
		}
		chunks = append(chunks, vectors[:n])
		vectors = vectors[n:]
	}
	return chunks
}
