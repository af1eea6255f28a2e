package worker

import (
	"hash/fnv"

	"github.com/IamGodseye/1brc/pkg/stationstats"
)

// PartitionKey computes the partition for a key using the 32-bit FNV-1a hash.
// The hash is fixed so every record of a station lands in the same bucket
// for the whole run, whichever map task produced it.
func PartitionKey(key string, numPartitions int) int {
	h := fnv.New32a()
	h.Write([]byte(key))

	return int(h.Sum32() % uint32(numPartitions))
}

// PartitionRecords splits one chunk's records into per-partition batches.
// The result always has numPartitions entries; unused ones are nil.
func PartitionRecords(records []stationstats.Record, numPartitions int) [][]stationstats.Record {
	partitioned := make([][]stationstats.Record, numPartitions)

	for _, r := range records {
		p := PartitionKey(r.Key, numPartitions)
		partitioned[p] = append(partitioned[p], r)
	}

	return partitioned
}
