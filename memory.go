package avio

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"syscall"
	"unsafe"
)

// MemoryStats counts MemoryBackend allocations.
type MemoryStats struct {
	Allocs   int // Buffers allocated
	Frees    int // Buffers freed, directly or through Release
	Contexts int // Contexts currently installed
}

// MemoryBackend is a pure-Go engine with the buffering behaviour of
// libavformat's AVIOContext. It drives adapters through the same
// trampolines a native engine would, which makes it usable without FFmpeg
// and in tests.
type MemoryBackend struct {
	mu       sync.Mutex
	buffers  map[uintptr][]byte
	contexts map[uintptr]*MemoryContext
	next     uintptr
	stats    MemoryStats
}

// NewMemoryBackend creates an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		buffers:  make(map[uintptr][]byte),
		contexts: make(map[uintptr]*MemoryContext),
	}
}

// Alloc implements Backend.
func (b *MemoryBackend) Alloc(size int) (Buffer, error) {
	if size <= 0 {
		return Buffer{}, fmt.Errorf("alloc %d bytes: %w", size, ErrArgument)
	}
	mem := make([]byte, size)
	ptr := uintptr(unsafe.Pointer(&mem[0]))

	b.mu.Lock()
	defer b.mu.Unlock()
	b.buffers[ptr] = mem
	b.stats.Allocs++
	return Buffer{Ptr: ptr, Size: size}, nil
}

// Free implements Backend.
func (b *MemoryBackend) Free(buf Buffer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.freeLocked(buf.Ptr)
}

func (b *MemoryBackend) freeLocked(ptr uintptr) {
	if _, ok := b.buffers[ptr]; !ok {
		return
	}
	delete(b.buffers, ptr)
	b.stats.Frees++
}

// Install implements Backend.
func (b *MemoryBackend) Install(buf Buffer, writable bool, cb Callbacks) (uintptr, error) {
	if cb.Read == nil || cb.Write == nil {
		return 0, errors.New("read and write callbacks are required")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	mem, ok := b.buffers[buf.Ptr]
	if !ok {
		return 0, fmt.Errorf("buffer %#x was not allocated by this backend: %w", buf.Ptr, ErrArgument)
	}
	b.next++
	c := &MemoryContext{
		handle:   b.next,
		buf:      mem[:buf.Size],
		writable: writable,
		cb:       cb,
	}
	b.contexts[c.handle] = c
	b.stats.Contexts++
	return c.handle, nil
}

// Flush implements Backend.
func (b *MemoryBackend) Flush(ctx uintptr) {
	if c := b.Context(ctx); c != nil {
		c.flushCode()
	}
}

// Release implements Backend. It frees the buffer the context holds now.
func (b *MemoryBackend) Release(ctx uintptr) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, ok := b.contexts[ctx]
	if !ok {
		return
	}
	delete(b.contexts, ctx)
	b.stats.Contexts--
	if len(c.buf) > 0 {
		b.freeLocked(uintptr(unsafe.Pointer(&c.buf[0])))
	}
	c.buf = nil
}

// Context returns the installed context for a handle, or nil.
func (b *MemoryBackend) Context(ctx uintptr) *MemoryContext {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.contexts[ctx]
}

// Stats returns allocation counters.
func (b *MemoryBackend) Stats() MemoryStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}

// MemoryContext is the engine side of one installed adapter. Its methods
// call the adapter's trampolines and pass every result code through the
// adapter's Scope, the way the container layer does with a native context.
type MemoryContext struct {
	handle   uintptr
	writable bool
	cb       Callbacks
	check    func(code int) (int, error)

	buf  []byte
	rpos int   // Next unread byte in buf
	rend int   // End of valid read data in buf
	wpos int   // End of pending write data in buf
	pos  int64 // Stream position of buf[0]
	eof  bool
}

// Bind returns the adapter's context with result codes checked through the
// adapter's scope. It returns nil if the adapter is not installed in b.
func (b *MemoryBackend) Bind(a *Adapter) *MemoryContext {
	c := b.Context(a.Context())
	if c != nil {
		c.check = a.Scope().Check
	}
	return c
}

func (c *MemoryContext) checked(code int) (int, error) {
	if c.check == nil {
		if code < 0 {
			return 0, fmt.Errorf("avio: native result %d", code)
		}
		return code, nil
	}
	return c.check(code)
}

func (c *MemoryContext) bufPtr() uintptr {
	return uintptr(unsafe.Pointer(&c.buf[0]))
}

// Read implements io.Reader. End of stream is reported as io.EOF.
func (c *MemoryContext) Read(p []byte) (int, error) {
	if c.writable {
		return 0, ErrNotReadable
	}
	if len(p) == 0 {
		return 0, nil
	}
	if c.rpos == c.rend {
		if c.eof {
			return 0, io.EOF
		}
		if err := c.fill(); err != nil {
			return 0, err
		}
	}
	n := copy(p, c.buf[c.rpos:c.rend])
	c.rpos += n
	return n, nil
}

func (c *MemoryContext) fill() error {
	c.pos += int64(c.rend)
	c.rpos, c.rend = 0, 0

	code := int(c.cb.Read(c.cb.Opaque, c.bufPtr(), int32(len(c.buf))))
	n, err := c.checked(code)
	if err != nil {
		if errors.Is(err, io.EOF) {
			c.eof = true
			return io.EOF
		}
		return err
	}
	c.rend = n
	return nil
}

// Write implements io.Writer, buffering up to the transfer buffer size.
func (c *MemoryContext) Write(p []byte) (int, error) {
	if !c.writable {
		return 0, ErrNotWritable
	}
	written := 0
	for len(p) > 0 {
		if c.wpos == len(c.buf) {
			if err := c.Flush(); err != nil {
				return written, err
			}
		}
		n := copy(c.buf[c.wpos:], p)
		c.wpos += n
		written += n
		p = p[n:]
	}
	return written, nil
}

// flushCode writes pending data and returns the last native result code.
func (c *MemoryContext) flushCode() int {
	if !c.writable || c.wpos == 0 {
		return 0
	}
	code := int(c.cb.Write(c.cb.Opaque, c.bufPtr(), int32(c.wpos)))
	if code >= 0 {
		c.pos += int64(c.wpos)
		c.wpos = 0
	}
	return code
}

// Flush writes buffered data through the write callback.
func (c *MemoryContext) Flush() error {
	_, err := c.checked(c.flushCode())
	return err
}

// Tell returns the logical stream position.
func (c *MemoryContext) Tell() int64 {
	if c.writable {
		return c.pos + int64(c.wpos)
	}
	return c.pos + int64(c.rpos)
}

// Seek implements io.Seeker. Relative seeks are resolved against the
// logical position and issued as absolute ones.
func (c *MemoryContext) Seek(offset int64, whence int) (int64, error) {
	if c.cb.Seek == nil {
		_, err := c.checked(averror(int(syscall.ESPIPE)))
		return 0, err
	}
	if err := c.Flush(); err != nil {
		return 0, err
	}
	if whence == io.SeekCurrent {
		offset += c.Tell()
		whence = io.SeekStart
	}

	code := c.cb.Seek(c.cb.Opaque, offset, int32(whence))
	n, err := c.checked(int(code))
	if err != nil {
		return 0, err
	}
	c.pos = int64(n)
	c.rpos, c.rend = 0, 0
	c.eof = false
	return int64(n), nil
}

// Size returns the stream size. The size query is tried first; when the
// stream declines it, the size is measured by seeking to the end and the
// position is restored afterwards.
func (c *MemoryContext) Size() (int64, error) {
	if c.cb.Seek == nil {
		_, err := c.checked(averror(int(syscall.ESPIPE)))
		return 0, err
	}
	if size := c.cb.Seek(c.cb.Opaque, 0, AVSEEK_SIZE); size >= 0 {
		return size, nil
	}
	if err := c.Flush(); err != nil {
		return 0, err
	}

	// Where the stream itself is, past any buffered read data.
	here := c.pos + int64(c.rend)
	end, err := c.checked(int(c.cb.Seek(c.cb.Opaque, -1, io.SeekEnd)))
	if err != nil {
		return 0, err
	}
	if _, err := c.checked(int(c.cb.Seek(c.cb.Opaque, here, io.SeekStart))); err != nil {
		return 0, err
	}
	return int64(end) + 1, nil
}
