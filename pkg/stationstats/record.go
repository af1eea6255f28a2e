package stationstats

import (
	"bytes"
	"strconv"
	"strings"
)

// Separator splits the station name from the temperature.
const Separator = ';'

// ParseLine decodes a single line (without its '\n') into a Record.
// It reports false for lines that must be dropped: empty or
// whitespace-only lines, lines without a separator, and lines whose value
// is not a finite decimal number (hex floats included).
func ParseLine(line []byte) (Record, bool) {
	line = bytes.TrimSuffix(line, []byte{'\r'})

	sep := bytes.IndexByte(line, Separator)
	if sep < 0 {
		return Record{}, false
	}

	raw := strings.TrimSpace(string(line[sep+1:]))
	// ParseFloat also takes hex floats ("0x1p3"); only decimals are temperatures
	if strings.ContainsAny(raw, "xX") {
		return Record{}, false
	}

	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || !IsFinite(value) {
		return Record{}, false
	}

	return Record{Key: string(line[:sep]), Value: value}, true
}

// AppendLine encodes r as `key;value\n` onto dst. The value uses the
// shortest representation that parses back to the same float64.
func AppendLine(dst []byte, r Record) []byte {
	dst = append(dst, r.Key...)
	dst = append(dst, Separator)
	dst = strconv.AppendFloat(dst, r.Value, 'g', -1, 64)
	return append(dst, '\n')
}

// ForEachLine calls fn for every '\n'-terminated line of data; a final
// unterminated line is passed as well. The slice passed to fn is only valid
// for the duration of the call.
func ForEachLine(data []byte, fn func(line []byte) error) error {
	for len(data) > 0 {
		line := data
		if i := bytes.IndexByte(data, '\n'); i >= 0 {
			line, data = data[:i], data[i+1:]
		} else {
			data = nil
		}
		if err := fn(line); err != nil {
			return err
		}
	}
	return nil
}
