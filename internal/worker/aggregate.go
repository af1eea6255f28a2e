package worker

import (
	"context"

	"github.com/IamGodseye/1brc/pkg/stationstats"
	"github.com/IamGodseye/1brc/pkg/storage"
)

// ctxCheckInterval is how many records are folded between cancellation checks.
const ctxCheckInterval = 1 << 16

// Aggregate folds every record of one bucket into per-station accumulators
// in a single pass and finalizes them. Rows come back in no particular order.
func Aggregate(ctx context.Context, backend storage.Backend, partition int) ([]stationstats.AggregateRow, error) {
	accs := make(map[string]*stationstats.Accumulator)

	seen := 0
	err := backend.ForEach(partition, func(r stationstats.Record) error {
		seen++
		if seen%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		acc, ok := accs[r.Key]
		if !ok {
			acc = &stationstats.Accumulator{}
			accs[r.Key] = acc
		}
		acc.Add(r.Value)
		return nil
	})
	if err != nil {
		return nil, err
	}

	rows := make([]stationstats.AggregateRow, 0, len(accs))
	for key, acc := range accs {
		rows = append(rows, acc.Row(key))
	}

	return rows, nil
}
