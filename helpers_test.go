package avio

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

// newTestScope returns a scope with deterministic messages and a captured log.
func newTestScope(t *testing.T) (*Scope, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	scope := NewScope(ScopeConfig{LoggerFactory: newCaptureFactory(&out), Strerror: Strerror})
	return scope, &out
}

// memFile is an in-memory read/write/seek stream.
type memFile struct {
	data   []byte
	pos    int64
	seeks  int
	closed bool
}

func newMemFile(data []byte) *memFile {
	return &memFile{data: append([]byte(nil), data...)}
}

func (f *memFile) Read(p []byte) (int, error) {
	if f.pos >= int64(len(f.data)) {
		return 0, io.EOF
	}
	n := copy(p, f.data[f.pos:])
	f.pos += int64(n)
	return n, nil
}

func (f *memFile) Write(p []byte) (int, error) {
	end := f.pos + int64(len(p))
	if end > int64(len(f.data)) {
		f.data = append(f.data, make([]byte, end-int64(len(f.data)))...)
	}
	copy(f.data[f.pos:], p)
	f.pos = end
	return len(p), nil
}

func (f *memFile) Seek(offset int64, whence int) (int64, error) {
	f.seeks++
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = f.pos + offset
	case io.SeekEnd:
		abs = int64(len(f.data)) + offset
	default:
		return 0, errors.New("memFile: invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("memFile: negative position")
	}
	f.pos = abs
	return abs, nil
}

func (f *memFile) Close() error {
	f.closed = true
	return nil
}

// readOnly hides everything but Read.
type readOnly struct{ r io.Reader }

func (r readOnly) Read(p []byte) (int, error) { return r.r.Read(p) }

// writeOnly hides everything but Write.
type writeOnly struct{ w io.Writer }

func (w writeOnly) Write(p []byte) (int, error) { return w.w.Write(p) }

// probed reports fixed capability probes over a memFile.
type probed struct {
	*memFile
	readable, writable, seekable bool
}

func (p probed) Readable() bool { return p.readable }
func (p probed) Writable() bool { return p.writable }
func (p probed) Seekable() bool { return p.seekable }

// positionless seeks without reporting the new position.
type positionless struct {
	*memFile
	tells int
}

func (p *positionless) Seek(offset int64, whence int) (int64, error) {
	if _, err := p.memFile.Seek(offset, whence); err != nil {
		return 0, err
	}
	return -1, nil
}

func (p *positionless) Tell() (int64, error) {
	p.tells++
	return p.pos, nil
}

// failingReader fails every read with err.
type failingReader struct{ err error }

func (r failingReader) Read([]byte) (int, error) { return 0, r.err }

// failingWriter fails every write with err.
type failingWriter struct{ err error }

func (w failingWriter) Write([]byte) (int, error) { return 0, w.err }

func newMemAdapter(t *testing.T, stream any, mode Mode, bufferSize int) (*Adapter, *MemoryBackend, *Scope) {
	t.Helper()
	scope, _ := newTestScope(t)
	backend := NewMemoryBackend()
	a, err := NewAdapter(stream, AdapterConfig{
		BufferSize: bufferSize,
		Mode:       mode,
		Backend:    backend,
		Scope:      scope,
	})
	if err != nil {
		t.Fatalf("NewAdapter() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a, backend, scope
}
