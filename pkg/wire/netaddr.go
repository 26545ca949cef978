package wire

import (
	"bytes"
	"fmt"
	"net"
)

// ipv4MappedPrefix is the ::ffff:0:0/96 prefix used to embed an IPv4
// address inside the 16-byte host field, mirroring the struct.pack
// layout of the reference NetAddrNoPrefix encoding.
var ipv4MappedPrefix = [12]byte{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0xff, 0xff}

// NetAddrNoPrefixSize is the wire size of NetAddrNoPrefix: 8 (services) +
// 16 (host) + 2 (port).
const NetAddrNoPrefixSize = 26

// NetAddrSize is the wire size of NetAddr: 8 (time) + 4 (stream) + 26
// (NetAddrNoPrefix).
const NetAddrSize = 38

// NetAddrNoPrefix is a network address without the time+stream prefix
// NetAddr carries; it appears twice inside a version payload (remote and
// local address) and nowhere else.
type NetAddrNoPrefix struct {
	Services uint64
	Host     net.IP
	Port     uint16
}

func (n NetAddrNoPrefix) Bytes() ([NetAddrNoPrefixSize]byte, error) {
	var out [NetAddrNoPrefixSize]byte
	var buf [8]byte
	putUint64(buf[:], n.Services)
	copy(out[0:8], buf[:])

	host, err := encodeHost(n.Host)
	if err != nil {
		return out, err
	}
	copy(out[8:24], host[:])

	var port [2]byte
	putUint16(port[:], n.Port)
	copy(out[24:26], port[:])
	return out, nil
}

func NetAddrNoPrefixFromBytes(b []byte) (NetAddrNoPrefix, error) {
	if len(b) != NetAddrNoPrefixSize {
		return NetAddrNoPrefix{}, ErrMalformed
	}
	var host [16]byte
	copy(host[:], b[8:24])
	return NetAddrNoPrefix{
		Services: getUint64(b[0:8]),
		Host:     decodeHost(host),
		Port:     getUint16(b[24:26]),
	}, nil
}

// NetAddr is a peer record as carried in an addr message: services, host
// and port plus the time it was last seen and the stream it belongs to.
type NetAddr struct {
	Time     uint64
	Stream   uint32
	Services uint64
	Host     net.IP
	Port     uint16
}

func (n NetAddr) Bytes() ([NetAddrSize]byte, error) {
	var out [NetAddrSize]byte
	var ts [8]byte
	putUint64(ts[:], n.Time)
	copy(out[0:8], ts[:])

	var stream [4]byte
	putUint32(stream[:], n.Stream)
	copy(out[8:12], stream[:])

	np := NetAddrNoPrefix{Services: n.Services, Host: n.Host, Port: n.Port}
	npb, err := np.Bytes()
	if err != nil {
		return out, err
	}
	copy(out[12:38], npb[:])
	return out, nil
}

func NetAddrFromBytes(b []byte) (NetAddr, error) {
	if len(b) != NetAddrSize {
		return NetAddr{}, ErrMalformed
	}
	np, err := NetAddrNoPrefixFromBytes(b[12:38])
	if err != nil {
		return NetAddr{}, err
	}
	return NetAddr{
		Time:     getUint64(b[0:8]),
		Stream:   getUint32(b[8:12]),
		Services: np.Services,
		Host:     np.Host,
		Port:     np.Port,
	}, nil
}

func encodeHost(ip net.IP) ([16]byte, error) {
	var out [16]byte
	if v4 := ip.To4(); v4 != nil {
		copy(out[0:12], ipv4MappedPrefix[:])
		copy(out[12:16], v4)
		return out, nil
	}
	v6 := ip.To16()
	if v6 == nil {
		return out, fmt.Errorf("%w: invalid host %v", ErrMalformed, ip)
	}
	copy(out[:], v6)
	return out, nil
}

func decodeHost(b [16]byte) net.IP {
	if bytes.Equal(b[0:12], ipv4MappedPrefix[:]) {
		return net.IP(append([]byte{}, b[12:16]...))
	}
	ip := make(net.IP, 16)
	copy(ip, b[:])
	return ip
}

func putUint16(b []byte, v uint16) { b[0] = byte(v >> 8); b[1] = byte(v) }
func putUint32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}
func putUint64(b []byte, v uint64) {
	putUint32(b[0:4], uint32(v>>32))
	putUint32(b[4:8], uint32(v))
}
func getUint16(b []byte) uint16 { return uint16(b[0])<<8 | uint16(b[1]) }
func getUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
func getUint64(b []byte) uint64 {
	return uint64(getUint32(b[0:4]))<<32 | uint64(getUint32(b[4:8]))
}
