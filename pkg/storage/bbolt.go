package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/IamGodseye/1brc/pkg/stationstats"
)

// BboltBackend spills every bucket into one scratch bbolt database. Each
// bucket is a bolt bucket; each Append is stored as one value of encoded
// `key;value` lines under the key seq|n, where n is the bucket's next
// sequence number. Bolt iterates keys in byte order, which gives ForEach
// its sequence order for free.
type BboltBackend struct {
	lifecycle
	dir  string
	path string
	db   *bolt.DB
}

// NewBboltBackend creates the scratch database inside dir.
// The backend owns dir and removes it on Close.
func NewBboltBackend(dir string, partitions int) (*BboltBackend, error) {
	if err := validatePartitions(partitions); err != nil {
		os.RemoveAll(dir)
		return nil, err
	}

	dbPath := filepath.Join(dir, "spill.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{
		Timeout:        time.Second,
		NoSync:         true, // scratch data never outlives the run
		NoFreelistSync: true,
	})
	if err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to open bbolt database: %w", err)
	}

	b := &BboltBackend{
		lifecycle: lifecycle{partitions: partitions},
		dir:       dir,
		path:      dbPath,
		db:        db,
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for i := 0; i < partitions; i++ {
			if _, err := tx.CreateBucketIfNotExists(bucketName(i)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("create partition buckets: %w", err)
	}

	return b, nil
}

// Path returns the scratch database path
func (b *BboltBackend) Path() string {
	return b.path
}

// Append stores records as one batch value. Concurrent callers are
// coalesced into shared write transactions by bolt's Batch.
func (b *BboltBackend) Append(partition, seq int, records []stationstats.Record) error {
	if err := b.checkWrite(partition); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	value := encodeRecords(nil, records)
	name := bucketName(partition)

	return b.db.Batch(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(name)
		if bkt == nil {
			return fmt.Errorf("bucket not found: %s", name)
		}
		n, err := bkt.NextSequence()
		if err != nil {
			return err
		}
		return bkt.Put(batchKey(seq, n), value)
	})
}

// Seal ends partitioning; bolt commits are already durable for readers
func (b *BboltBackend) Seal() error {
	if b.closed.Load() {
		return ErrClosed
	}
	b.sealed.Store(true)
	return nil
}

// ForEach iterates over all batches of a bucket inside one read transaction
func (b *BboltBackend) ForEach(partition int, fn func(stationstats.Record) error) error {
	if err := b.checkRead(partition); err != nil {
		return err
	}

	name := bucketName(partition)

	return b.db.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(name)
		if bkt == nil {
			// Released or never written
			return nil
		}
		return bkt.ForEach(func(_, v []byte) error {
			return decodeRecords(v, fn)
		})
	})
}

// Release deletes the bucket
func (b *BboltBackend) Release(partition int) error {
	if err := b.checkPartition(partition); err != nil {
		return err
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		err := tx.DeleteBucket(bucketName(partition))
		if errors.Is(err, bolt.ErrBucketNotFound) {
			return nil // Idempotent
		}
		return err
	})
}

// Close closes the database and removes the scratch directory
func (b *BboltBackend) Close() error {
	if b.closed.Swap(true) {
		return nil
	}

	closeErr := b.db.Close()
	if err := os.RemoveAll(b.dir); err != nil {
		return fmt.Errorf("remove scratch dir: %w", err)
	}

	return closeErr
}

func bucketName(partition int) []byte {
	return []byte(fmt.Sprintf("partition_%d", partition))
}

func batchKey(seq int, n uint64) []byte {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf, uint64(seq))
	binary.BigEndian.PutUint64(buf[8:], n)
	return buf
}
