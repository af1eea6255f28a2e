package storage

import "errors"

var (
	ErrSealed              = errors.New("backend sealed: partitioning already finished")
	ErrNotSealed           = errors.New("backend not sealed: partitioning still running")
	ErrClosed              = errors.New("backend closed")
	ErrPartitionOutOfRange = errors.New("partition out of range")
	ErrCorruptSpill        = errors.New("corrupt spill record")
)
