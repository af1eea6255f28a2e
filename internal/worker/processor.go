package worker

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/IamGodseye/1brc/pkg/executor"
	"github.com/IamGodseye/1brc/pkg/stationstats"
	"github.com/IamGodseye/1brc/pkg/storage"
)

// Processor handles map and reduce task execution for one run
type Processor struct {
	input   io.ReaderAt
	size    int64
	backend storage.Backend
	logger  *log.Logger
	runID   string
}

// NewProcessor creates a new task processor reading size bytes of input
// and partitioning into backend
func NewProcessor(runID string, input io.ReaderAt, size int64, backend storage.Backend, logger *log.Logger) *Processor {
	if logger == nil {
		logger = log.Default()
	}

	return &Processor{
		input:   input,
		size:    size,
		backend: backend,
		logger:  logger,
		runID:   runID,
	}
}

// ProcessMapTask reads one chunk, parses it, and appends its records to
// their buckets. At most one chunk's records are held per call.
func (p *Processor) ProcessMapTask(ctx context.Context, chunk stationstats.Chunk) (executor.ParseStats, error) {
	if err := ctx.Err(); err != nil {
		return executor.ParseStats{}, fmt.Errorf("%w: %w", executor.ErrMap, err)
	}

	data, err := executor.ReadChunk(p.input, p.size, chunk)
	if err != nil {
		return executor.ParseStats{}, fmt.Errorf("%w: %w", executor.ErrMap, err)
	}

	var records []stationstats.Record
	stats := executor.ParseChunk(data, func(r stationstats.Record) {
		records = append(records, r)
	})

	// Partition the output
	partitioned := PartitionRecords(records, p.backend.Partitions())

	for partition, batch := range partitioned {
		if len(batch) == 0 {
			continue
		}
		if err := p.backend.Append(partition, chunk.Index, batch); err != nil {
			return stats, fmt.Errorf("%w: store chunk %d partition %d: %w", executor.ErrMap, chunk.Index, partition, err)
		}
	}

	return stats, nil
}

// ProcessReduceTask aggregates one bucket and releases its storage
func (p *Processor) ProcessReduceTask(ctx context.Context, partition int) ([]stationstats.AggregateRow, error) {
	rows, err := Aggregate(ctx, p.backend, partition)
	if err != nil {
		return nil, fmt.Errorf("%w: partition %d: %w", executor.ErrReduce, partition, err)
	}

	if err := p.backend.Release(partition); err != nil {
		return nil, fmt.Errorf("%w: release partition %d: %w", executor.ErrReduce, partition, err)
	}

	p.logger.Printf("[WORKER:%s] Reduce task for partition %d produced %d stations", p.runID, partition, len(rows))

	return rows, nil
}
