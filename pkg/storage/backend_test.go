package storage

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/IamGodseye/1brc/pkg/stationstats"
)

const suitePartitions = 4

// backendTestSuite runs a comprehensive test suite against any Backend implementation
func backendTestSuite(t *testing.T, newBackend func(t *testing.T, partitions int) Backend) {
	t.Run("AppendAndForEach", func(t *testing.T) {
		backend := newBackend(t, suitePartitions)
		defer backend.Close()

		want := []stationstats.Record{
			{Key: "Hamburg", Value: 12.0},
			{Key: "St. John's", Value: -15.2},
			{Key: "Hamburg", Value: 0.1 + 0.2}, // must survive exactly
		}
		if err := backend.Append(1, 0, want[:2]); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
		if err := backend.Append(1, 1, want[2:]); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
		if err := backend.Seal(); err != nil {
			t.Fatalf("Seal failed: %v", err)
		}

		got := collect(t, backend, 1)
		if len(got) != len(want) {
			t.Fatalf("ForEach returned %d records, want %d", len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("record[%d] = %+v, want %+v", i, got[i], want[i])
			}
		}

		// Other buckets stay empty
		if got := collect(t, backend, 0); len(got) != 0 {
			t.Errorf("bucket 0 has %d records, want 0", len(got))
		}
	})

	t.Run("SequenceOrder", func(t *testing.T) {
		backend := newBackend(t, 1)
		defer backend.Close()

		// Batches arrive out of order, as they do from parallel map tasks
		for _, seq := range []int{2, 0, 3, 1} {
			recs := []stationstats.Record{
				{Key: fmt.Sprintf("s%d-a", seq), Value: float64(seq)},
				{Key: fmt.Sprintf("s%d-b", seq), Value: float64(seq)},
			}
			if err := backend.Append(0, seq, recs); err != nil {
				t.Fatalf("Append failed: %v", err)
			}
		}
		backend.Seal()

		var keys []string
		for _, r := range collect(t, backend, 0) {
			keys = append(keys, r.Key)
		}
		want := "s0-a s0-b s1-a s1-b s2-a s2-b s3-a s3-b"
		if got := strings.Join(keys, " "); got != want {
			t.Errorf("ForEach order = %s, want %s", got, want)
		}
	})

	t.Run("Lifecycle", func(t *testing.T) {
		backend := newBackend(t, suitePartitions)
		defer backend.Close()

		if backend.Partitions() != suitePartitions {
			t.Errorf("Partitions() = %d, want %d", backend.Partitions(), suitePartitions)
		}

		err := backend.ForEach(0, func(stationstats.Record) error { return nil })
		if !errors.Is(err, ErrNotSealed) {
			t.Errorf("ForEach before Seal error = %v, want ErrNotSealed", err)
		}

		if err := backend.Seal(); err != nil {
			t.Fatalf("Seal failed: %v", err)
		}
		// Idempotent
		if err := backend.Seal(); err != nil {
			t.Errorf("Seal should be idempotent: %v", err)
		}

		err = backend.Append(0, 0, []stationstats.Record{{Key: "A", Value: 1}})
		if !errors.Is(err, ErrSealed) {
			t.Errorf("Append after Seal error = %v, want ErrSealed", err)
		}

		if err := backend.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
		// Idempotent
		if err := backend.Close(); err != nil {
			t.Errorf("Close should be idempotent: %v", err)
		}

		err = backend.ForEach(0, func(stationstats.Record) error { return nil })
		if !errors.Is(err, ErrClosed) {
			t.Errorf("ForEach after Close error = %v, want ErrClosed", err)
		}
	})

	t.Run("PartitionOutOfRange", func(t *testing.T) {
		backend := newBackend(t, suitePartitions)
		defer backend.Close()

		for _, p := range []int{-1, suitePartitions} {
			err := backend.Append(p, 0, []stationstats.Record{{Key: "A", Value: 1}})
			if !errors.Is(err, ErrPartitionOutOfRange) {
				t.Errorf("Append(%d) error = %v, want ErrPartitionOutOfRange", p, err)
			}
		}
	})

	t.Run("Release", func(t *testing.T) {
		backend := newBackend(t, suitePartitions)
		defer backend.Close()

		backend.Append(2, 0, []stationstats.Record{{Key: "A", Value: 1}})
		backend.Seal()

		if err := backend.Release(2); err != nil {
			t.Fatalf("Release failed: %v", err)
		}
		// Idempotent
		if err := backend.Release(2); err != nil {
			t.Errorf("Release should be idempotent: %v", err)
		}
	})

	t.Run("ForEachStopsOnError", func(t *testing.T) {
		backend := newBackend(t, suitePartitions)
		defer backend.Close()

		backend.Append(0, 0, []stationstats.Record{{Key: "A", Value: 1}, {Key: "B", Value: 2}})
		backend.Seal()

		stop := errors.New("stop")
		calls := 0
		err := backend.ForEach(0, func(stationstats.Record) error {
			calls++
			return stop
		})
		if !errors.Is(err, stop) {
			t.Errorf("ForEach error = %v, want %v", err, stop)
		}
		if calls != 1 {
			t.Errorf("ForEach called fn %d times after error, want 1", calls)
		}
	})

	t.Run("ConcurrentAppend", func(t *testing.T) {
		backend := newBackend(t, suitePartitions)
		defer backend.Close()

		const writers, batches = 8, 25
		var wg sync.WaitGroup
		for w := 0; w < writers; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				for b := 0; b < batches; b++ {
					rec := stationstats.Record{Key: fmt.Sprintf("w%d-b%d", w, b), Value: float64(b)}
					if err := backend.Append(b%suitePartitions, w*batches+b, []stationstats.Record{rec}); err != nil {
						t.Errorf("Append failed: %v", err)
					}
				}
			}(w)
		}
		wg.Wait()

		if err := backend.Seal(); err != nil {
			t.Fatalf("Seal failed: %v", err)
		}

		var keys []string
		for p := 0; p < suitePartitions; p++ {
			for _, r := range collect(t, backend, p) {
				keys = append(keys, r.Key)
			}
		}
		if len(keys) != writers*batches {
			t.Fatalf("found %d records, want %d", len(keys), writers*batches)
		}
		sort.Strings(keys)
		for i := 1; i < len(keys); i++ {
			if keys[i] == keys[i-1] {
				t.Errorf("record %q stored twice", keys[i])
			}
		}
	})

	t.Run("LongKey", func(t *testing.T) {
		backend := newBackend(t, 1)
		defer backend.Close()

		key := strings.Repeat("k", 3*spillBufferSize)
		backend.Append(0, 0, []stationstats.Record{{Key: key, Value: -3.5}, {Key: "short", Value: 1}})
		backend.Seal()

		got := collect(t, backend, 0)
		if len(got) != 2 || got[0].Key != key || got[0].Value != -3.5 || got[1].Key != "short" {
			t.Errorf("long key did not round trip, got %d records", len(got))
		}
	})
}

func collect(t *testing.T, backend Backend, partition int) []stationstats.Record {
	t.Helper()

	var out []stationstats.Record
	err := backend.ForEach(partition, func(r stationstats.Record) error {
		out = append(out, r)
		return nil
	})
	if err != nil {
		t.Fatalf("ForEach(%d) failed: %v", partition, err)
	}
	return out
}
