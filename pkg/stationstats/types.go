package stationstats

import (
	"math"
	"strconv"
	"strings"
)

// Record is one parsed `station;temperature` line.
type Record struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
}

// Chunk is a nominal byte range of the input file. Line boundary
// correction happens when the chunk is read, not here.
type Chunk struct {
	Index  int   `json:"index"`
	Offset int64 `json:"offset"`
	Length int64 `json:"length"`
}

// End returns the nominal (uncorrected) end offset of the chunk.
func (c Chunk) End() int64 {
	return c.Offset + c.Length
}

// Accumulator holds running statistics for one station within one bucket.
type Accumulator struct {
	Count uint64
	Sum   float64
	Min   float64
	Max   float64
}

// Add folds a single measurement into the accumulator.
func (a *Accumulator) Add(v float64) {
	if a.Count == 0 {
		a.Min, a.Max = v, v
	} else {
		a.Min = min(a.Min, v)
		a.Max = max(a.Max, v)
	}
	a.Sum += v
	a.Count++
}

// Row finalizes the accumulator into an AggregateRow.
func (a *Accumulator) Row(key string) AggregateRow {
	return AggregateRow{
		Key: key,
		Min: a.Min,
		Max: a.Max,
		Avg: a.Sum / float64(a.Count),
	}
}

// AggregateRow is the finalized per-station result.
type AggregateRow struct {
	Key string  `json:"key"`
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
}

// String renders the row as `key;min;max;avg` with one fractional digit.
func (r AggregateRow) String() string {
	var sb strings.Builder
	sb.Grow(len(r.Key) + 24)
	sb.WriteString(r.Key)
	sb.WriteByte(';')
	sb.WriteString(FormatTemperature(r.Min))
	sb.WriteByte(';')
	sb.WriteString(FormatTemperature(r.Max))
	sb.WriteByte(';')
	sb.WriteString(FormatTemperature(r.Avg))
	return sb.String()
}

// ResultSet is every AggregateRow of a run, ordered by key.
type ResultSet []AggregateRow

// FormatTemperature renders v with exactly one fractional digit.
//
// Rounding is strconv's: the exact binary value is rounded to the nearest
// decimal, ties to even, which matches printf("%.1f"). A result that rounds
// to negative zero is printed as "0.0".
func FormatTemperature(v float64) string {
	s := strconv.FormatFloat(v, 'f', 1, 64)
	if s == "-0.0" {
		return "0.0"
	}
	return s
}

// IsFinite reports whether v is neither NaN nor an infinity.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
