package avio

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/pion/logging"
)

// Mode selects the direction of an adapter.
type Mode uint8

const (
	ModeAuto  Mode = iota // Write if the stream has Write, else read
	ModeRead              // Demuxer input
	ModeWrite             // Muxer output
)

func (m Mode) String() string {
	switch m {
	case ModeAuto:
		return "auto"
	case ModeRead:
		return "read"
	case ModeWrite:
		return "write"
	default:
		return "unknown"
	}
}

// Optional stream capabilities probed by NewAdapter.
type (
	// Teller reports the current position. Streams without it are asked
	// through Seek(0, io.SeekCurrent).
	Teller interface {
		Tell() (int64, error)
	}

	ReadableProber interface {
		Readable() bool
	}

	WritableProber interface {
		Writable() bool
	}

	SeekableProber interface {
		Seekable() bool
	}
)

// DefaultBufferSize is the transfer buffer size used when none is given.
const DefaultBufferSize = 32768

// AdapterConfig configures an Adapter.
type AdapterConfig struct {
	BufferSize int     // Transfer buffer size, 1 to math.MaxInt32; bounds a single read or write
	Mode       Mode    // Direction (ModeAuto = infer from the stream)
	Backend    Backend // Engine to install into (nil = FFmpeg)
	Scope      *Scope  // Error scope (nil = new scope with defaults)

	// CloseStream makes Close also close the wrapped stream if it is an
	// io.Closer. The stream is borrowed otherwise.
	CloseStream bool
}

// DefaultAdapterConfig returns a default adapter configuration.
func DefaultAdapterConfig() AdapterConfig {
	return AdapterConfig{
		BufferSize: DefaultBufferSize,
		Mode:       ModeAuto,
	}
}

// Adapter lets a Go stream serve as the custom I/O of a native engine.
//
// The engine calls back into the adapter through the installed trampolines;
// calls for one adapter must not overlap.
type Adapter struct {
	id      uuid.UUID
	stream  any
	scope   *Scope
	backend Backend
	log     logging.LeveledLogger

	r        io.Reader
	w        io.Writer
	s        io.Seeker
	teller   Teller
	closer   io.Closer
	writable bool
	seekable bool

	closeStream bool
	bufferSize  int

	// Held for the whole body of every callback except size queries.
	mu       sync.Mutex
	pos      int64
	posValid bool
	readErr  error

	buf    Buffer
	ctx    uintptr
	opaque uintptr
	closed atomic.Bool
}

// NewAdapter wraps stream and installs it into the configured backend.
//
// The stream must implement io.Reader in read mode and io.Writer in write
// mode, and the matching Readable/Writable probe, if present, must report
// true. It is seekable if it implements io.Seeker and, when it also has a
// Seekable probe, that probe reports true.
func NewAdapter(stream any, cfg AdapterConfig) (*Adapter, error) {
	if stream == nil {
		return nil, &ConfigError{Reason: "stream is nil"}
	}
	// Packet lengths cross the native boundary as int32.
	if cfg.BufferSize <= 0 || cfg.BufferSize > math.MaxInt32 {
		return nil, &ConfigError{Reason: fmt.Sprintf("invalid buffer size %d", cfg.BufferSize)}
	}

	a := &Adapter{
		id:          uuid.New(),
		stream:      stream,
		closeStream: cfg.CloseStream,
		bufferSize:  cfg.BufferSize,
		posValid:    true,
	}
	a.r, _ = stream.(io.Reader)
	a.w, _ = stream.(io.Writer)
	a.teller, _ = stream.(Teller)
	a.closer, _ = stream.(io.Closer)

	if s, ok := stream.(io.Seeker); ok {
		if p, ok := stream.(SeekableProber); !ok || p.Seekable() {
			a.s = s
			a.seekable = true
		}
	}

	switch cfg.Mode {
	case ModeAuto:
		a.writable = a.w != nil
	case ModeWrite:
		a.writable = true
	case ModeRead:
		a.writable = false
	default:
		return nil, &ConfigError{Reason: fmt.Sprintf("invalid mode %d", cfg.Mode)}
	}

	if a.writable {
		p, probed := stream.(WritableProber)
		if a.w == nil || (probed && !p.Writable()) {
			return nil, &ConfigError{Reason: "stream has no Write method, or Writable() returned false"}
		}
	} else {
		p, probed := stream.(ReadableProber)
		if a.r == nil || (probed && !p.Readable()) {
			return nil, &ConfigError{Reason: "stream has no Read method, or Readable() returned false"}
		}
	}

	a.scope = cfg.Scope
	if a.scope == nil {
		a.scope = NewScope(DefaultScopeConfig())
	}
	a.log = a.scope.factory.NewLogger("avio:adapter")

	a.backend = cfg.Backend
	if a.backend == nil {
		b, err := FFmpegBackend()
		if err != nil {
			return nil, fmt.Errorf("avio: native backend not available: %w", err)
		}
		a.backend = b
	}

	buf, err := a.backend.Alloc(cfg.BufferSize)
	if err != nil {
		return nil, fmt.Errorf("avio: allocate transfer buffer: %w", err)
	}
	a.buf = buf
	a.opaque = registerAdapter(a)

	cb := Callbacks{
		Opaque: a.opaque,
		Read:   ioReadPacket,
		Write:  ioWritePacket,
	}
	if a.seekable {
		cb.Seek = ioSeek
	}

	ctx, err := a.backend.Install(buf, a.writable, cb)
	if err != nil {
		a.release()
		return nil, fmt.Errorf("avio: install I/O context: %w", err)
	}
	a.ctx = ctx

	a.log.Debugf("adapter %s: mode=%s seekable=%t buffer=%d", a.id, a.Mode(), a.seekable, cfg.BufferSize)
	return a, nil
}

// ID returns the adapter's identifier, as used in log lines.
func (a *Adapter) ID() uuid.UUID { return a.id }

// Context returns the engine's I/O context handle (an AVIOContext* for the
// FFmpeg backend). It is zero after Close.
func (a *Adapter) Context() uintptr { return a.ctx }

// Scope returns the scope that receives callback errors.
func (a *Adapter) Scope() *Scope { return a.scope }

// Mode returns the resolved direction.
func (a *Adapter) Mode() Mode {
	if a.writable {
		return ModeWrite
	}
	return ModeRead
}

// Writable returns true for write-mode adapters.
func (a *Adapter) Writable() bool { return a.writable }

// Seekable returns true if the seek callback was installed.
func (a *Adapter) Seekable() bool { return a.seekable }

// BufferSize returns the transfer buffer size.
func (a *Adapter) BufferSize() int { return a.bufferSize }

// Position returns the tracked stream position and whether it is known
// without asking the stream.
func (a *Adapter) Position() (int64, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pos, a.posValid
}

func (a *Adapter) readPacket(p []byte) int32 {
	return guarded(a, func() (int32, error) {
		if err := a.readErr; err != nil {
			a.readErr = nil
			return 0, err
		}
		if a.r == nil {
			return 0, ErrNotReadable
		}

		n, err := a.r.Read(p)
		if n < 0 || n > len(p) {
			return 0, fmt.Errorf("avio: stream returned invalid count %d for %d byte read", n, len(p))
		}
		a.pos += int64(n)
		if n == 0 {
			if err == nil || errors.Is(err, io.EOF) {
				return AVERROR_EOF, nil
			}
			return 0, err
		}
		// Deliver the data now and the error on the next call.
		if err != nil && !errors.Is(err, io.EOF) {
			a.readErr = err
		}
		return int32(n), nil
	})
}

func (a *Adapter) writePacket(p []byte) int32 {
	return guarded(a, func() (int32, error) {
		if a.w == nil {
			return 0, ErrNotWritable
		}

		n, err := a.w.Write(p)
		if err != nil {
			return 0, err
		}
		if n < 0 || n > len(p) {
			n = len(p)
		}
		a.pos += int64(n)
		return int32(n), nil
	})
}

func (a *Adapter) seekPacket(offset int64, whence int32) int64 {
	return guarded(a, func() (int64, error) {
		if a.s == nil {
			return 0, ErrNotSeekable
		}
		whence &^= AVSEEK_FORCE

		pos, err := a.s.Seek(offset, int(whence))
		if err != nil {
			return 0, err
		}
		// A read error held back for the old position no longer applies.
		a.readErr = nil

		switch whence {
		case io.SeekStart:
			a.pos = offset
			a.posValid = true
		case io.SeekCurrent:
			a.pos += offset
		default:
			a.posValid = false
		}

		// A negative position with a nil error means the stream did not
		// report one.
		if pos < 0 {
			if a.posValid {
				return a.pos, nil
			}
			return a.tell()
		}
		a.pos = pos
		a.posValid = true
		return pos, nil
	})
}

// tell refreshes the tracked position from the stream. Callers hold a.mu.
func (a *Adapter) tell() (int64, error) {
	var (
		pos int64
		err error
	)
	if a.teller != nil {
		pos, err = a.teller.Tell()
	} else {
		pos, err = a.s.Seek(0, io.SeekCurrent)
	}
	if err != nil {
		return 0, err
	}
	a.pos = pos
	a.posValid = true
	return pos, nil
}

// Close flushes a write-mode context, optionally closes the wrapped stream
// and releases the transfer buffer and context. Errors stashed during the
// flush are returned. Close is idempotent.
func (a *Adapter) Close() error {
	if !a.closed.CompareAndSwap(false, true) {
		return nil
	}

	var result *multierror.Error
	if a.ctx != 0 && a.writable {
		a.backend.Flush(a.ctx)
		if _, err := a.scope.Check(0); err != nil {
			result = multierror.Append(result, fmt.Errorf("avio: flush: %w", err))
		}
	}
	if a.closeStream && a.closer != nil {
		if err := a.closer.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("avio: close stream: %w", err))
		}
	}
	a.release()

	pos, _ := a.Position()
	a.log.Debugf("adapter %s: closed at position %d", a.id, pos)
	return result.ErrorOrNil()
}

// release frees the context or, if none was installed, the buffer.
func (a *Adapter) release() {
	unregisterAdapter(a.opaque)
	a.opaque = 0

	if a.ctx != 0 {
		// The engine owns the buffer now and may have replaced ours.
		a.backend.Release(a.ctx)
		a.ctx = 0
	} else if a.buf.Ptr != 0 {
		a.backend.Free(a.buf)
	}
	a.buf = Buffer{}
}
