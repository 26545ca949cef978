package config

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/bmrelay/relaynode/pkg/addrpool"
)

// LoadSeeds reads a bundled `host,port` CSV of long-lived core nodes
// directly into the known-IP pool, per §14's "CSV core-node seed
// file" supplement. This differs from pkg/relaymgr.Bootstrap, which
// seeds the *unchecked* pools at runtime from DNS and seed files: these
// entries are core nodes trusted enough to skip the unchecked stage
// entirely, the same distinction the reference implementation's
// hardcoded `CORE_NODES` list draws.
func LoadSeeds(pools *addrpool.Pools, path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	r := csv.NewReader(bufio.NewReader(f))
	r.FieldsPerRecord = -1
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if len(rec) < 2 {
			continue
		}
		host := strings.TrimSpace(rec[0])
		port, err := strconv.ParseUint(strings.TrimSpace(rec[1]), 10, 16)
		if err != nil || host == "" {
			continue
		}
		pools.PromoteKnown(addrpool.Addr{Network: addrpool.IP, Host: host, Port: uint16(port), Services: 1})
	}
}
