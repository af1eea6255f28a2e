package pipeline

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/IamGodseye/1brc/pkg/executor"
	"github.com/IamGodseye/1brc/pkg/stationstats"
)

// Merge combines the per-bucket row sets into one ResultSet sorted by key
// (byte-wise). Every station belongs to exactly one bucket, so a key seen
// twice means partitioning went wrong.
func Merge(parts [][]stationstats.AggregateRow) (stationstats.ResultSet, error) {
	total := 0
	for _, rows := range parts {
		total += len(rows)
	}

	rs := make(stationstats.ResultSet, 0, total)
	for _, rows := range parts {
		rs = append(rs, rows...)
	}

	slices.SortFunc(rs, func(a, b stationstats.AggregateRow) int {
		return strings.Compare(a.Key, b.Key)
	})

	for i := 1; i < len(rs); i++ {
		if rs[i].Key == rs[i-1].Key {
			return nil, fmt.Errorf("%w: %w: %q", executor.ErrMerge, stationstats.ErrDuplicateKey, rs[i].Key)
		}
	}

	return rs, nil
}

// lineTerminator follows the platform's text file convention.
func lineTerminator() string {
	if runtime.GOOS == "windows" {
		return "\r\n"
	}
	return "\n"
}

// WriteResults serializes rs as one `key;min;max;avg` line per row.
func WriteResults(w io.Writer, rs stationstats.ResultSet) error {
	bw := bufio.NewWriter(w)
	nl := lineTerminator()

	for _, row := range rs {
		if _, err := bw.WriteString(row.String()); err != nil {
			return err
		}
		if _, err := bw.WriteString(nl); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// newOutputMode is applied to a freshly created output. Chmod bypasses the
// umask, so this is a fixed mode rather than what os.Create would give.
const newOutputMode fs.FileMode = 0644

// outputMode keeps the permissions of an output being overwritten.
func outputMode(path string) fs.FileMode {
	if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
		return info.Mode().Perm()
	}
	return newOutputMode
}

// PublishResults writes rs to path atomically: the rows go to a temp file
// next to path which is renamed over path only once complete. On failure
// path is left untouched and the temp file removed.
func PublishResults(path string, rs stationstats.ResultSet) (err error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	tmp, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: create temp output: %w", executor.ErrMerge, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = WriteResults(tmp, rs); err != nil {
		return fmt.Errorf("%w: write output: %w", executor.ErrMerge, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("%w: sync output: %w", executor.ErrMerge, err)
	}
	if err = tmp.Chmod(outputMode(path)); err != nil {
		return fmt.Errorf("%w: chmod output: %w", executor.ErrMerge, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("%w: close output: %w", executor.ErrMerge, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: publish output: %w", executor.ErrMerge, err)
	}

	return nil
}
