package main

import (
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/IamGodseye/1brc/internal/pipeline"
)

// phaseBars shows one progress bar per pipeline phase. TaskDone is called
// from worker goroutines, so the current bar is guarded.
type phaseBars struct {
	w   io.Writer
	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

func newPhaseBars(w io.Writer) *phaseBars {
	return &phaseBars{w: w}
}

func (b *phaseBars) Hooks() pipeline.Hooks {
	return pipeline.Hooks{
		PhaseStarted: b.start,
		TaskDone: func(pipeline.Phase) {
			b.mu.Lock()
			defer b.mu.Unlock()
			if b.bar != nil {
				b.bar.Add(1)
			}
		},
	}
}

func (b *phaseBars) start(phase pipeline.Phase, tasks int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.bar != nil {
		b.bar.Finish()
	}

	desc := "map    "
	unit := "chunks"
	if phase == pipeline.PhaseReduce {
		desc = "reduce "
		unit = "buckets"
	}

	b.bar = progressbar.NewOptions(tasks,
		progressbar.OptionSetWriter(b.w),
		progressbar.OptionSetDescription(desc),
		progressbar.OptionSetItsString(unit),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionOnCompletion(func() { io.WriteString(b.w, "\n") }),
	)
}

// Finish completes the last bar.
func (b *phaseBars) Finish() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.bar != nil {
		b.bar.Finish()
		b.bar = nil
	}
}
