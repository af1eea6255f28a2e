package storage

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/IamGodseye/1brc/pkg/stationstats"
)

// Backend holds the buckets of one run.
//
// Lifecycle: Append (concurrently, from any number of map tasks) until
// Seal; then ForEach and Release, at most one reader per partition; Close
// last, on every exit path. Close releases all backing storage and is
// safe to call more than once.
//
// Every batch carries a sequence number (the chunk index) and ForEach
// replays batches in ascending sequence order, so a bucket reads back in
// input order no matter which map task finished first. Floating point sums
// built from it are therefore reproducible across runs.
type Backend interface {
	// Partitions returns the number of buckets.
	Partitions() int

	// Append adds a batch of records to a bucket. Appends to one bucket are serialised.
	Append(partition, seq int, records []stationstats.Record) error

	// Seal ends partitioning. Pending writes are flushed and writers closed.
	Seal() error

	// ForEach streams every record of a bucket to fn in batch sequence
	// order, stopping at the first error.
	ForEach(partition int, fn func(stationstats.Record) error) error

	// Release discards a consumed bucket and its backing storage.
	Release(partition int) error

	Close() error
}

// New opens a spill backend of the given kind. The backend takes ownership
// of dir and removes it on Close, including when New itself fails.
func New(kind stationstats.SpillBackend, dir string, partitions int) (Backend, error) {
	switch kind {
	case stationstats.BackendFile:
		return NewFileBackend(dir, partitions)
	case stationstats.BackendBbolt:
		return NewBboltBackend(dir, partitions)
	default:
		os.RemoveAll(dir)
		return nil, fmt.Errorf("%w: %q", stationstats.ErrUnknownSpillBackend, kind)
	}
}

// NewScratchDir creates a uniquely named scratch directory for one run.
func NewScratchDir(parent, runID string) (string, error) {
	dir, err := os.MkdirTemp(parent, "brc-"+runID+"-")
	if err != nil {
		return "", fmt.Errorf("create scratch dir: %w", err)
	}
	return dir, nil
}

// lifecycle tracks the state shared by every backend implementation.
type lifecycle struct {
	partitions int
	sealed     atomic.Bool
	closed     atomic.Bool
}

func (l *lifecycle) Partitions() int {
	return l.partitions
}

func (l *lifecycle) checkPartition(partition int) error {
	if l.closed.Load() {
		return ErrClosed
	}
	if partition < 0 || partition >= l.partitions {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrPartitionOutOfRange, partition, l.partitions)
	}
	return nil
}

func (l *lifecycle) checkWrite(partition int) error {
	if err := l.checkPartition(partition); err != nil {
		return err
	}
	if l.sealed.Load() {
		return ErrSealed
	}
	return nil
}

func (l *lifecycle) checkRead(partition int) error {
	if err := l.checkPartition(partition); err != nil {
		return err
	}
	if !l.sealed.Load() {
		return ErrNotSealed
	}
	return nil
}

func validatePartitions(partitions int) error {
	if partitions <= 0 {
		return fmt.Errorf("%w: partition count must be positive, got %d", stationstats.ErrInvalidConfig, partitions)
	}
	return nil
}
