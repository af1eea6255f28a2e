package storage

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/IamGodseye/1brc/pkg/stationstats"
)

// encodeRecords appends one `key;value` line per record to dst.
func encodeRecords(dst []byte, records []stationstats.Record) []byte {
	for _, r := range records {
		dst = stationstats.AppendLine(dst, r)
	}
	return dst
}

// decodeLine parses a spilled line. Spilled data was written by us, so a
// line that does not parse means the scratch storage is damaged.
func decodeLine(line []byte) (stationstats.Record, error) {
	r, ok := stationstats.ParseLine(line)
	if !ok {
		return stationstats.Record{}, fmt.Errorf("%w: %q", ErrCorruptSpill, line)
	}
	return r, nil
}

// decodeRecords streams every line of data to fn.
func decodeRecords(data []byte, fn func(stationstats.Record) error) error {
	return stationstats.ForEachLine(data, func(line []byte) error {
		r, err := decodeLine(line)
		if err != nil {
			return err
		}
		return fn(r)
	})
}

// readRecords streams every line of r to fn. Lines longer than the reader's
// buffer are reassembled.
func readRecords(r *bufio.Reader, fn func(stationstats.Record) error) error {
	var long []byte
	for {
		line, err := r.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			long = append(long, line...)
			continue
		}
		if long != nil {
			line = append(long, line...)
			long = nil
		}
		if len(line) > 0 {
			if line[len(line)-1] == '\n' {
				line = line[:len(line)-1]
			}
			rec, derr := decodeLine(line)
			if derr != nil {
				return derr
			}
			if ferr := fn(rec); ferr != nil {
				return ferr
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
