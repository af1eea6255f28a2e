package executor

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/IamGodseye/1brc/pkg/stationstats"
)

/*
Chunks are byte-offset hints. A line belongs to the chunk whose nominal
range contains its first byte:

  - a chunk with Offset > 0 skips through the first '\n' at or after
    Offset-1, so a chunk starting exactly on a line start keeps that line;
  - every chunk extends past its nominal end through the first '\n' at or
    after End-1, or to end of file.

Adjacent chunks agree on the cut because both sides search from the same
byte, so no line is read twice or lost.
*/

// extendStep is how many bytes are read at a time while looking for the
// terminator of a line that crosses a chunk's nominal end.
const extendStep = 4 << 10

// LocateChunks divides [0, size) into ceil(size/chunkSize) contiguous chunks.
func LocateChunks(size, chunkSize int64) ([]stationstats.Chunk, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: %d", stationstats.ErrInvalidChunkSize, chunkSize)
	}
	if size <= 0 {
		return nil, nil
	}

	n := (size + chunkSize - 1) / chunkSize
	chunks := make([]stationstats.Chunk, 0, n)
	for i := int64(0); i < n; i++ {
		offset := i * chunkSize
		chunks = append(chunks, stationstats.Chunk{
			Index:  int(i),
			Offset: offset,
			Length: min(chunkSize, size-offset),
		})
	}

	return chunks, nil
}

// ReadChunk reads the whole lines owned by c from r, where size is the
// total size of the input. The returned bytes end with '\n' unless they
// include the final unterminated line of the file. A chunk that owns no
// line start returns nil.
func ReadChunk(r io.ReaderAt, size int64, c stationstats.Chunk) ([]byte, error) {
	if c.Offset < 0 || c.Length <= 0 || c.End() > size {
		return nil, fmt.Errorf("%w: chunk %d [%d,%d) outside input of %d bytes",
			ErrChunking, c.Index, c.Offset, c.End(), size)
	}

	// Start one byte early so the previous byte tells us whether the
	// chunk begins on a line start.
	lo := c.Offset
	if lo > 0 {
		lo--
	}

	buf := make([]byte, c.End()-lo)
	if err := readFull(r, buf, lo); err != nil {
		return nil, fmt.Errorf("%w: read chunk %d: %w", ErrChunking, c.Index, err)
	}

	next := c.End()
	for next < size && buf[len(buf)-1] != '\n' {
		step := min(int64(extendStep), size-next)
		ext := make([]byte, step)
		if err := readFull(r, ext, next); err != nil {
			return nil, fmt.Errorf("%w: extend chunk %d: %w", ErrChunking, c.Index, err)
		}
		if i := bytes.IndexByte(ext, '\n'); i >= 0 {
			ext = ext[:i+1]
		}
		buf = append(buf, ext...)
		next += int64(len(ext))
	}

	if c.Offset > 0 {
		i := bytes.IndexByte(buf, '\n')
		if i < 0 {
			return nil, nil
		}
		buf = buf[i+1:]
	}

	if len(buf) == 0 {
		return nil, nil
	}
	return buf, nil
}

func readFull(r io.ReaderAt, buf []byte, off int64) error {
	n, err := r.ReadAt(buf, off)
	if n == len(buf) && (err == nil || errors.Is(err, io.EOF)) {
		return nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
