package payload

import (
	"bytes"

	"github.com/bmrelay/relaynode/pkg/wire"
)

// Addr carries a batch of peer addresses, at most the post-handshake
// burst size or whatever the advertiser chose to fan out.
type Addr struct {
	Addrs []wire.NetAddr
}

func (a *Addr) Command() string { return wire.CmdAddr }

func (a *Addr) Encode() ([]byte, error) {
	var buf bytes.Buffer
	w := wire.NewBinWriter(&buf)
	w.VarUint(uint64(len(a.Addrs)))
	for _, na := range a.Addrs {
		b, err := na.Bytes()
		if err != nil {
			return nil, err
		}
		w.Write(b)
	}
	if w.Err != nil {
		return nil, w.Err
	}
	return buf.Bytes(), nil
}

func DecodeAddr(body []byte) (*Addr, error) {
	r := wire.NewBinReader(bytes.NewReader(body))
	count := r.VarUint()
	if r.Err != nil || count > uint64(len(body)/wire.NetAddrSize) {
		return nil, wire.ErrMalformed
	}
	addrs := make([]wire.NetAddr, 0, count)
	for i := uint64(0); i < count; i++ {
		var b [wire.NetAddrSize]byte
		r.Read(&b)
		if r.Err != nil {
			return nil, wire.ErrMalformed
		}
		na, err := wire.NetAddrFromBytes(b[:])
		if err != nil {
			return nil, err
		}
		addrs = append(addrs, na)
	}
	return &Addr{Addrs: addrs}, nil
}
