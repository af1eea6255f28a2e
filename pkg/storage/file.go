package storage

import (
	"bufio"
	"cmp"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"slices"
	"sync"

	"github.com/IamGodseye/1brc/pkg/stationstats"
)

const spillBufferSize = 64 << 10

// FileBackend spills every bucket to its own temp file as `key;value` lines.
// Batches are appended in arrival order; a small in-memory index of batch
// offsets lets ForEach replay them in sequence order.
type FileBackend struct {
	lifecycle
	dir   string
	parts []*filePartition
}

type filePartition struct {
	mu      sync.Mutex
	path    string
	file    *os.File
	w       *bufio.Writer
	buf     []byte
	written int64
	index   []fileBatch
}

type fileBatch struct {
	seq    int
	offset int64
	length int64
}

// NewFileBackend creates one uniquely named temp file per bucket inside dir.
// The backend owns dir and removes it on Close.
func NewFileBackend(dir string, partitions int) (*FileBackend, error) {
	if err := validatePartitions(partitions); err != nil {
		os.RemoveAll(dir)
		return nil, err
	}

	f := &FileBackend{
		lifecycle: lifecycle{partitions: partitions},
		dir:       dir,
		parts:     make([]*filePartition, 0, partitions),
	}

	for i := 0; i < partitions; i++ {
		file, err := os.CreateTemp(dir, fmt.Sprintf("bucket-%d-*.spill", i))
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("create spill file for partition %d: %w", i, err)
		}
		f.parts = append(f.parts, &filePartition{
			path: file.Name(),
			file: file,
			w:    bufio.NewWriterSize(file, spillBufferSize),
		})
	}

	return f, nil
}

// Dir returns the scratch directory holding the spill files
func (f *FileBackend) Dir() string {
	return f.dir
}

// Append writes records to the end of the bucket's spill file
func (f *FileBackend) Append(partition, seq int, records []stationstats.Record) error {
	if err := f.checkWrite(partition); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	p := f.parts[partition]
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.w == nil {
		return ErrSealed
	}

	p.buf = encodeRecords(p.buf[:0], records)
	if _, err := p.w.Write(p.buf); err != nil {
		return fmt.Errorf("write spill file %s: %w", p.path, err)
	}

	p.index = append(p.index, fileBatch{seq: seq, offset: p.written, length: int64(len(p.buf))})
	p.written += int64(len(p.buf))

	return nil
}

// Seal flushes and closes every spill file
func (f *FileBackend) Seal() error {
	if f.closed.Load() {
		return ErrClosed
	}
	if f.sealed.Swap(true) {
		return nil
	}

	var errs []error
	for _, p := range f.parts {
		if err := p.closeWriter(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// ForEach reads the bucket's spill file back record by record
func (f *FileBackend) ForEach(partition int, fn func(stationstats.Record) error) error {
	if err := f.checkRead(partition); err != nil {
		return err
	}

	p := f.parts[partition]
	p.mu.Lock()
	index := slices.Clone(p.index)
	p.mu.Unlock()

	if len(index) == 0 {
		return nil
	}
	slices.SortStableFunc(index, func(x, y fileBatch) int {
		return cmp.Compare(x.seq, y.seq)
	})

	file, err := os.Open(p.path)
	if err != nil {
		return fmt.Errorf("open spill file: %w", err)
	}
	defer file.Close()

	br := bufio.NewReaderSize(nil, spillBufferSize)
	for _, batch := range index {
		br.Reset(io.NewSectionReader(file, batch.offset, batch.length))
		if err := readRecords(br, fn); err != nil {
			return fmt.Errorf("read spill file %s: %w", p.path, err)
		}
	}

	return nil
}

// Release deletes the bucket's spill file
func (f *FileBackend) Release(partition int) error {
	if err := f.checkPartition(partition); err != nil {
		return err
	}

	p := f.parts[partition]
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := os.Remove(p.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove spill file: %w", err)
	}
	p.index = nil

	return nil
}

// Close closes any open spill file and removes the scratch directory
func (f *FileBackend) Close() error {
	if f.closed.Swap(true) {
		return nil
	}

	for _, p := range f.parts {
		p.mu.Lock()
		if p.file != nil {
			p.file.Close()
			p.file, p.w = nil, nil
		}
		p.mu.Unlock()
	}

	if err := os.RemoveAll(f.dir); err != nil {
		return fmt.Errorf("remove scratch dir: %w", err)
	}

	return nil
}

func (p *filePartition) closeWriter() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.w == nil {
		return nil
	}

	flushErr := p.w.Flush()
	closeErr := p.file.Close()
	p.file, p.w = nil, nil

	if flushErr != nil {
		return fmt.Errorf("flush spill file %s: %w", p.path, flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close spill file %s: %w", p.path, closeErr)
	}

	return nil
}
