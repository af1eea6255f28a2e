package generator

import (
	"bufio"
	"io"
	"math/rand/v2"
)

// Generator produces measurement files
type Generator interface {
	// Init initializes the generator with a per-instance random source
	Init(r *rand.Rand)

	// WriteLine writes a single line of test data to the writer
	WriteLine(w io.Writer) error

	// Description returns a human-readable description of the data format
	Description() string

	// DefaultCount returns the suggested default number of lines to generate
	DefaultCount() int64
}

// Generate writes count lines from g to w using a deterministic source
// seeded with seed.
func Generate(w io.Writer, g Generator, seed uint64, count int64) error {
	g.Init(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))

	bw := bufio.NewWriter(w)
	for i := int64(0); i < count; i++ {
		if err := g.WriteLine(bw); err != nil {
			return err
		}
	}
	return bw.Flush()
}
