package objstore

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pierrec/lz4"
	bolt "go.etcd.io/bbolt"

	"github.com/bmrelay/relaynode/pkg/object"
)

var objectsBucket = []byte("objects")

// SaveSnapshot writes every object in the store to a bbolt database at
// path, one record per vector, with the serialized value lz4-compressed:
// objects are large, compressible blobs next to their 28-day retention
// window, so the snapshot file is worth shrinking even though the
// in-memory copy isn't.
func (s *Store) SaveSnapshot(path string) error {
	snap := s.Snapshot()

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return fmt.Errorf("objstore: open snapshot: %w", err)
	}
	defer db.Close()

	return db.Update(func(tx *bolt.Tx) error {
		// Start from an empty bucket so deleted/expired objects don't
		// linger in the snapshot.
		if err := tx.DeleteBucket(objectsBucket); err != nil && err != bolt.ErrBucketNotFound {
			return err
		}
		b, err := tx.CreateBucket(objectsBucket)
		if err != nil {
			return err
		}
		for v, o := range snap {
			raw, err := o.ToBytes()
			if err != nil {
				return err
			}
			compressed, err := lz4Compress(raw)
			if err != nil {
				return err
			}
			if err := b.Put(v[:], compressed); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadSnapshot populates the store from a previously saved snapshot
// file. Missing files are not an error: a fresh node has no prior state.
func (s *Store) LoadSnapshot(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second, ReadOnly: true})
	if err != nil {
		return fmt.Errorf("objstore: open snapshot: %w", err)
	}
	defer db.Close()

	now := s.clock.Now()
	return db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(objectsBucket)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, compressed []byte) error {
			raw, err := lz4Decompress(compressed)
			if err != nil {
				return err
			}
			o, err := object.FromBytes(raw)
			if err != nil {
				return err
			}
			if o.IsExpired(now) {
				return nil
			}
			var v object.Vector
			copy(v[:], k)
			s.mu.Lock()
			s.objects[v] = o
			s.mu.Unlock()
			return nil
		})
	})
}

func lz4Compress(b []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(b); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func lz4Decompress(b []byte) ([]byte, error) {
	r := lz4.NewReader(bytes.NewReader(b))
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
