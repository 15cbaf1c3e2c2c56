// Package avio lets a Go stream serve as the custom I/O of a native
// demux/mux engine (libavformat), and turns the engine's integer result
// codes into Go errors.
//
// Key pieces include:
//   - Adapter: wraps an io.Reader / io.Writer / io.Seeker and installs
//     read, write and seek trampolines into a Backend
//   - Scope: the Check choke point plus the single-slot Stash that carries
//     callback errors across the native boundary
//   - Kind / Family / Error: the error code taxonomy
//   - LogCapture: native log lines for error context
//
// # Architecture
//
//	engine -> trampoline -> Adapter (locked) -> stream
//	                     \-> error: Stash, sentinel code back to engine
//	engine result code -> Scope.Check -> stashed error | *Error | n
//
// The engine only ever sees integer codes. An error or panic inside a
// callback is stashed and the sentinel -CallbackErrorCode returned; the
// next Check returns the stashed error before looking at the code.
//
// # Native Libraries
//
// The FFmpeg backend loads libavutil and libavformat with purego
// (CGO_ENABLED=0 works). Set AVIO_FFMPEG_LIB_PATH to the directory
// containing them to override the standard search locations.
// MemoryBackend is a pure-Go engine with the same buffering behaviour,
// useful without FFmpeg.
//
// # Errors
//
// Every failure from Check is an *Error whose Kind can be matched with
// errors.Is(err, avio.ErrInvalidData), and whose families with
// errors.Is(err, avio.FamilyLookup). End of stream also matches io.EOF and
// errno kinds match their syscall.Errno, so fs.ErrNotExist and friends work.
package avio
