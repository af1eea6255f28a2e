package executor

import "github.com/IamGodseye/1brc/pkg/stationstats"

// ParseStats counts what ParseChunk did with the lines of one chunk.
type ParseStats struct {
	Records int
	Dropped int // Malformed lines, including blank ones
}

// ParseChunk turns the raw lines of one chunk into Records. Malformed
// lines are dropped silently; they only show up in ParseStats.Dropped.
func ParseChunk(data []byte, emit func(stationstats.Record)) ParseStats {
	var stats ParseStats

	// fn never fails, so neither does ForEachLine.
	_ = stationstats.ForEachLine(data, func(line []byte) error {
		rec, ok := stationstats.ParseLine(line)
		if !ok {
			stats.Dropped++
			return nil
		}
		stats.Records++
		emit(rec)
		return nil
	})

	return stats
}
