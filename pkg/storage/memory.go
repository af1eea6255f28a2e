package storage

import (
	"cmp"
	"slices"
	"sync"

	"github.com/IamGodseye/1brc/pkg/stationstats"
)

// MemoryBackend keeps every bucket as in-memory batches (not persistent)
type MemoryBackend struct {
	lifecycle
	buckets []memoryBucket
}

type memoryBucket struct {
	mu      sync.Mutex
	batches []memoryBatch
}

type memoryBatch struct {
	seq     int
	records []stationstats.Record
}

// NewMemoryBackend creates a new in-memory backend with the given number of buckets
func NewMemoryBackend(partitions int) (*MemoryBackend, error) {
	if err := validatePartitions(partitions); err != nil {
		return nil, err
	}

	return &MemoryBackend{
		lifecycle: lifecycle{partitions: partitions},
		buckets:   make([]memoryBucket, partitions),
	}, nil
}

// Append copies records into the bucket
func (m *MemoryBackend) Append(partition, seq int, records []stationstats.Record) error {
	if err := m.checkWrite(partition); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	batch := memoryBatch{seq: seq, records: slices.Clone(records)}

	b := &m.buckets[partition]
	b.mu.Lock()
	defer b.mu.Unlock()

	b.batches = append(b.batches, batch)

	return nil
}

// Seal ends partitioning and puts every bucket in sequence order
func (m *MemoryBackend) Seal() error {
	if m.closed.Load() {
		return ErrClosed
	}
	if m.sealed.Swap(true) {
		return nil
	}

	for i := range m.buckets {
		b := &m.buckets[i]
		b.mu.Lock()
		slices.SortStableFunc(b.batches, func(x, y memoryBatch) int {
			return cmp.Compare(x.seq, y.seq)
		})
		b.mu.Unlock()
	}

	return nil
}

// ForEach iterates over all records of a bucket
func (m *MemoryBackend) ForEach(partition int, fn func(stationstats.Record) error) error {
	if err := m.checkRead(partition); err != nil {
		return err
	}

	b := &m.buckets[partition]
	b.mu.Lock()
	batches := b.batches
	b.mu.Unlock()

	for _, batch := range batches {
		for _, r := range batch.records {
			if err := fn(r); err != nil {
				return err
			}
		}
	}

	return nil
}

// Release drops the bucket's records
func (m *MemoryBackend) Release(partition int) error {
	if err := m.checkPartition(partition); err != nil {
		return err
	}

	b := &m.buckets[partition]
	b.mu.Lock()
	b.batches = nil
	b.mu.Unlock()

	return nil
}

// Close releases every bucket
func (m *MemoryBackend) Close() error {
	if m.closed.Swap(true) {
		return nil
	}

	for i := range m.buckets {
		b := &m.buckets[i]
		b.mu.Lock()
		b.batches = nil
		b.mu.Unlock()
	}

	return nil
}
