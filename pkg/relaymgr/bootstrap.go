package relaymgr

import (
	"bufio"
	"context"
	"encoding/csv"
	"io"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/bmrelay/relaynode/pkg/addrpool"
	"github.com/bmrelay/relaynode/pkg/node"
)

// Bootstrap seeds the unchecked pools at startup, per §14's "DNS seed
// bootstrap" and "CSV core-node seed file" supplements to the
// distilled spec. Resolving DNS and reading the seed file are the
// external collaborators named in §1/§6; the core only consumes the
// resulting address list.
func Bootstrap(ctx context.Context, n *node.Node, dnsSeeds []string, ipSeedCSV, i2pSeedCSV string) {
	if n.Config.TrustedPeer != nil {
		return
	}
	if !n.Config.NoIP {
		bootstrapDNS(ctx, n, dnsSeeds)
		bootstrapIPSeedCSV(n, ipSeedCSV)
	}
	if n.Config.I2PEnabled {
		bootstrapI2PSeedCSV(n, i2pSeedCSV)
	}
}

func bootstrapDNS(ctx context.Context, n *node.Node, hosts []string) {
	var resolver net.Resolver
	for _, h := range hosts {
		ips, err := resolver.LookupIP(ctx, "ip", h)
		if err != nil {
			n.Logger.Debugw("relaymgr: dns seed lookup failed", "host", h, "error", err)
			continue
		}
		for _, ip := range ips {
			n.Pools.AddUnchecked(addrpool.Addr{Network: addrpool.IP, Host: ip.String(), Port: n.Config.ListenPort, Services: 1})
		}
	}
}

// bootstrapIPSeedCSV loads a bundled `host,port` seed list into the
// unchecked-IP pool, per §14's "CSV core-node seed file".
func bootstrapIPSeedCSV(n *node.Node, path string) {
	if path == "" {
		return
	}
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	r := csv.NewReader(bufio.NewReader(f))
	r.FieldsPerRecord = -1
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return
		}
		if err != nil {
			n.Logger.Warnw("relaymgr: malformed ip seed csv", "error", err)
			return
		}
		if len(rec) < 2 {
			continue
		}
		host := strings.TrimSpace(rec[0])
		port, err := strconv.ParseUint(strings.TrimSpace(rec[1]), 10, 16)
		if err != nil || host == "" {
			continue
		}
		n.Pools.AddUnchecked(addrpool.Addr{Network: addrpool.IP, Host: host, Port: uint16(port), Services: 1})
	}
}

// bootstrapI2PSeedCSV loads a bundled `destination` seed list into the
// unchecked-I2P pool.
func bootstrapI2PSeedCSV(n *node.Node, path string) {
	if path == "" {
		return
	}
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	r := csv.NewReader(bufio.NewReader(f))
	r.FieldsPerRecord = -1
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return
		}
		if err != nil {
			n.Logger.Warnw("relaymgr: malformed i2p seed csv", "error", err)
			return
		}
		if len(rec) < 1 {
			continue
		}
		dest := strings.TrimSpace(rec[0])
		if dest == "" {
			continue
		}
		n.Pools.AddUnchecked(addrpool.Addr{Network: addrpool.I2P, Host: dest, Services: 1})
	}
}
