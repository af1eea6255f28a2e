package main

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/IamGodseye/1brc/cmd/testdata/generator"
)

func TestWriteFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "var", "measurements.txt")
	if err := writeFile(path, &generator.MeasurementGenerator{}, 3, 250); err != nil {
		t.Fatalf("writeFile failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read generated file: %v", err)
	}
	if got := strings.Count(string(data), "\n"); got != 250 {
		t.Errorf("Generated %d lines, want 250", got)
	}
}

func TestWriteFile_ParentIsFile(t *testing.T) {
	t.Parallel()

	parent := filepath.Join(t.TempDir(), "plain")
	if err := os.WriteFile(parent, nil, 0644); err != nil {
		t.Fatal(err)
	}

	if err := writeFile(filepath.Join(parent, "out.txt"), &generator.MeasurementGenerator{}, 1, 10); err == nil {
		t.Error("writeFile under a regular file succeeded")
	}
}

func TestWriteFile_ReportsFailedWrite(t *testing.T) {
	t.Parallel()

	if runtime.GOOS != "linux" {
		t.Skip("needs /dev/full")
	}
	if _, err := os.Stat("/dev/full"); err != nil {
		t.Skip("no /dev/full")
	}

	// Every write to /dev/full fails with ENOSPC
	if err := writeFile("/dev/full", &generator.MeasurementGenerator{}, 1, 10); err == nil {
		t.Error("writeFile to a full device succeeded")
	}
}
