package main

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"

	"github.com/IamGodseye/1brc/internal/pipeline"
	"github.com/IamGodseye/1brc/pkg/stationstats"
)

func printResult(w io.Writer, cfg stationstats.Config, res *pipeline.Result) {
	storage := "memory"
	if res.Spilled {
		storage = fmt.Sprintf("spilled (%s) under %s", res.SpillBackend, cfg.TempDir)
	}

	fmt.Fprintf(w, "Run Details:\n")
	fmt.Fprintf(w, "  Run ID:      %s\n", res.RunID)
	fmt.Fprintf(w, "  Input:       %s (%s)\n", cfg.InputPath, humanize.IBytes(uint64(res.InputSize)))
	fmt.Fprintf(w, "  Output:      %s\n", res.OutputPath)
	fmt.Fprintf(w, "  Chunks:      %s of %s\n", plural(res.Chunks, "chunk"), humanize.IBytes(uint64(cfg.ChunkSize)))
	fmt.Fprintf(w, "  Buckets:     %d, %s\n", res.Partitions, storage)
	fmt.Fprintf(w, "  Workers:     %d\n", cfg.Parallelism)
	fmt.Fprintf(w, "  Stations:    %s\n", humanize.Comma(int64(res.Stations)))
	fmt.Fprintf(w, "  Records:     %s (%s malformed lines dropped)\n",
		humanize.Comma(res.Records), humanize.Comma(res.Dropped))

	fmt.Fprintf(w, "\nTimings:\n")
	for _, t := range res.Timings {
		fmt.Fprintf(w, "  %-12s %v\n", t.Name+":", t.Duration)
	}
	fmt.Fprintf(w, "  %-12s %v\n", "total:", res.Total)
}
