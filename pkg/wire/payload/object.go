package payload

import "github.com/bmrelay/relaynode/pkg/wire"

// ObjectMsg carries one Object's serialized bytes verbatim; pkg/object
// owns parsing, validity, and PoW — this layer only moves bytes.
type ObjectMsg struct {
	Raw []byte
}

func (o *ObjectMsg) Command() string         { return wire.CmdObject }
func (o *ObjectMsg) Encode() ([]byte, error) { return o.Raw, nil }

func DecodeObjectMsg(body []byte) (*ObjectMsg, error) {
	return &ObjectMsg{Raw: body}, nil
}
