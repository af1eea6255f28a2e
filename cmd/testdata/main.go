package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/IamGodseye/1brc/cmd/testdata/generator"
)

/*generates measurement files in the form of {station};{temperature}*/

var (
	Kind       = flag.String("kind", "measurements", "Generator: "+strings.Join(generator.List(), ", "))
	TotalCount = flag.Int64("total_count", 0, "Total number of lines to generate (0 = generator default)")
	Stations   = flag.Int("stations", 0, "Number of distinct stations (0 = all)")
	Seed       = flag.Uint64("seed", 1, "Random seed")
	OutputPath = flag.String("output", "var/measurements.txt", "Output file path")
)

func main() {
	flag.Parse()

	gen, err := generator.Get(*Kind)
	if err != nil {
		log.Fatal(err)
	}
	if m, ok := gen.(*generator.MeasurementGenerator); ok && *Stations > 0 {
		m.Stations = *Stations
	}

	count := *TotalCount
	if count == 0 {
		count = gen.DefaultCount()
	}

	if err := writeFile(*OutputPath, gen, *Seed, count); err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Wrote %d lines (%s) to %s\n", count, gen.Description(), *OutputPath)
}

// writeFile generates count lines into path, creating parent directories.
// The file is closed before returning so a failed final flush is reported.
func writeFile(path string, gen generator.Generator, seed uint64, count int64) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := generator.Generate(file, gen, seed, count); err != nil {
		file.Close()
		return fmt.Errorf("generate %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}

	return nil
}
