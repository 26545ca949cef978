package addrpool

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
)

// SaveSnapshot persists every pool to its own LevelDB database under
// dir, replacing the teacher's pickle-file equivalents with one
// embedded key-value store per pool.
func (ps *Pools) SaveSnapshot(dir string) error {
	pools := map[string]*pool{
		"ip_known.db":      ps.ipKnown,
		"ip_unchecked.db":  ps.ipUnchecked,
		"i2p_known.db":     ps.i2pKnown,
		"i2p_unchecked.db": ps.i2pUnchecked,
	}
	for name, p := range pools {
		if err := p.saveTo(dir + "/" + name); err != nil {
			return fmt.Errorf("addrpool: save %s: %w", name, err)
		}
	}
	return nil
}

// LoadSnapshot restores every pool from the databases SaveSnapshot
// wrote. A missing directory per pool is not an error: a fresh node
// starts with empty pools.
func (ps *Pools) LoadSnapshot(dir string) error {
	pools := map[string]*pool{
		"ip_known.db":      ps.ipKnown,
		"ip_unchecked.db":  ps.ipUnchecked,
		"i2p_known.db":     ps.i2pKnown,
		"i2p_unchecked.db": ps.i2pUnchecked,
	}
	for name, p := range pools {
		if err := p.loadFrom(dir + "/" + name); err != nil {
			return fmt.Errorf("addrpool: load %s: %w", name, err)
		}
	}
	return nil
}

func (p *pool) saveTo(path string) error {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return err
	}
	defer db.Close()

	all := p.all()
	batch := new(leveldb.Batch)
	iter := db.NewIterator(nil, nil)
	for iter.Next() {
		batch.Delete(append([]byte{}, iter.Key()...))
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return err
	}
	for _, a := range all {
		batch.Put([]byte(a.Key()), encodeAddr(a))
	}
	return db.Write(batch, nil)
}

func (p *pool) loadFrom(path string) error {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return err
	}
	defer db.Close()

	iter := db.NewIterator(nil, nil)
	defer iter.Release()
	for iter.Next() {
		a, err := decodeAddr(iter.Value())
		if err != nil {
			return err
		}
		p.add(a)
	}
	return iter.Error()
}

func encodeAddr(a Addr) []byte {
	host := []byte(a.Host)
	buf := make([]byte, 1+2+8+2+len(host))
	buf[0] = byte(a.Network)
	binary.BigEndian.PutUint16(buf[1:3], a.Port)
	binary.BigEndian.PutUint64(buf[3:11], a.Services)
	binary.BigEndian.PutUint16(buf[11:13], uint16(len(host)))
	copy(buf[13:], host)
	return buf
}

func decodeAddr(b []byte) (Addr, error) {
	if len(b) < 13 {
		return Addr{}, errors.New("addrpool: truncated record")
	}
	hostLen := int(binary.BigEndian.Uint16(b[11:13]))
	if len(b) != 13+hostLen {
		return Addr{}, errors.New("addrpool: truncated host")
	}
	return Addr{
		Network:  Network(b[0]),
		Port:     binary.BigEndian.Uint16(b[1:3]),
		Services: binary.BigEndian.Uint64(b[3:11]),
		Host:     string(b[13:]),
	}, nil
}
