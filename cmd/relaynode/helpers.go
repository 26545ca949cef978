package main

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/bmrelay/relaynode/pkg/addrpool"
)

func netLocalListen(addr string) (net.Listener, error) {
	return net.Listen("tcp", addr)
}

// parseTrustedPeer accepts either an IP host:port pair or a bare .i2p
// destination/address, defaulting the port to defaultPort when omitted
// for the IP case.
func parseTrustedPeer(s string, defaultPort uint16) (addrpool.Addr, error) {
	if strings.HasSuffix(s, ".i2p") {
		return addrpool.Addr{Network: addrpool.I2P, Host: s, Services: 1}, nil
	}
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return addrpool.Addr{Network: addrpool.IP, Host: s, Port: defaultPort, Services: 1}, nil
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return addrpool.Addr{}, fmt.Errorf("relaynode: bad trusted-peer port: %w", err)
	}
	return addrpool.Addr{Network: addrpool.IP, Host: host, Port: uint16(port), Services: 1}, nil
}
