//go:build darwin || linux

// FFmpeg custom I/O binding (libavutil + libavformat) using purego.

package avio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
)

var (
	ffmpegOnce     sync.Once
	ffmpegInitErr  error
	ffmpegLoaded   bool
	avutilHandle   uintptr
	avformatHandle uintptr
)

// libavutil / libavformat function pointers
var (
	avMalloc        func(size uintptr) uintptr
	avFree          func(ptr uintptr)
	avStrerror      func(errnum int32, buf uintptr, size uintptr) int32
	avLogSetLevel   func(level int32)
	avVersionInfo   func() uintptr
	avioAllocCtx    func(buffer uintptr, bufferSize, writeFlag int32, opaque, readPacket, writePacket, seek uintptr) uintptr
	avioFlush       func(ctx uintptr)
	avformatVersion func() uint32
)

// Native trampolines, created once. purego never frees callbacks, so every
// adapter shares these three and is told apart by its opaque handle.
var (
	callbackOnce  sync.Once
	readPacketCB  uintptr
	writePacketCB uintptr
	seekCB        uintptr
)

func initCallbacks() {
	callbackOnce.Do(func() {
		readPacketCB = purego.NewCallback(ioReadPacket)
		writePacketCB = purego.NewCallback(ioWritePacket)
		seekCB = purego.NewCallback(ioSeek)
	})
}

func loadFFmpeg() error {
	ffmpegOnce.Do(func() {
		ffmpegInitErr = loadFFmpegLibs()
		if ffmpegInitErr == nil {
			ffmpegLoaded = true
		}
	})
	return ffmpegInitErr
}

func loadFFmpegLibs() error {
	var err error
	if avutilHandle, err = dlopenFirst("avutil", []int{59, 58, 57, 56}); err != nil {
		return err
	}
	if avformatHandle, err = dlopenFirst("avformat", []int{61, 60, 59, 58}); err != nil {
		purego.Dlclose(avutilHandle)
		return err
	}

	purego.RegisterLibFunc(&avMalloc, avutilHandle, "av_malloc")
	purego.RegisterLibFunc(&avFree, avutilHandle, "av_free")
	purego.RegisterLibFunc(&avStrerror, avutilHandle, "av_strerror")
	purego.RegisterLibFunc(&avLogSetLevel, avutilHandle, "av_log_set_level")
	purego.RegisterLibFunc(&avVersionInfo, avutilHandle, "av_version_info")

	purego.RegisterLibFunc(&avioAllocCtx, avformatHandle, "avio_alloc_context")
	purego.RegisterLibFunc(&avioFlush, avformatHandle, "avio_flush")
	purego.RegisterLibFunc(&avformatVersion, avformatHandle, "avformat_version")

	return nil
}

func dlopenFirst(lib string, majors []int) (uintptr, error) {
	var lastErr error
	for _, path := range getFFmpegLibPaths(lib, majors) {
		handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err == nil {
			return handle, nil
		}
		lastErr = err
	}
	if lastErr != nil {
		return 0, fmt.Errorf("failed to load lib%s: %w", lib, lastErr)
	}
	return 0, fmt.Errorf("lib%s not found in any standard location", lib)
}

func ffmpegLibNames(lib string, majors []int) []string {
	if runtime.GOOS == "darwin" {
		names := []string{"lib" + lib + ".dylib"}
		for _, m := range majors {
			names = append(names, fmt.Sprintf("lib%s.%d.dylib", lib, m))
		}
		return names
	}
	names := []string{"lib" + lib + ".so"}
	for _, m := range majors {
		names = append(names, fmt.Sprintf("lib%s.so.%d", lib, m))
	}
	return names
}

func getFFmpegLibPaths(lib string, majors []int) []string {
	names := ffmpegLibNames(lib, majors)

	var dirs []string

	// Environment variable overrides (highest priority)
	if envPath := os.Getenv("AVIO_FFMPEG_LIB_PATH"); envPath != "" {
		dirs = append(dirs, envPath)
	}
	if envPath := os.Getenv("AVIO_SDK_LIB_PATH"); envPath != "" {
		dirs = append(dirs, envPath)
	}

	// Search relative to executable location
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		dirs = append(dirs, exeDir, filepath.Join(exeDir, "..", "lib"))
	}

	if dir := moduleBuildDir(); dir != "" {
		dirs = append(dirs, dir)
	}

	// System paths (lowest priority)
	switch runtime.GOOS {
	case "darwin":
		dirs = append(dirs, "/opt/homebrew/lib", "/usr/local/lib")
	case "linux":
		dirs = append(dirs, "/usr/local/lib", "/usr/lib", "/usr/lib/x86_64-linux-gnu", "/usr/lib/aarch64-linux-gnu")
	}

	var paths []string
	for _, dir := range dirs {
		for _, name := range names {
			paths = append(paths, filepath.Join(dir, name))
		}
	}
	// Bare names last, resolved by the dynamic loader.
	return append(paths, names...)
}

// IsFFmpegAvailable reports whether libavutil and libavformat could be loaded.
func IsFFmpegAvailable() bool {
	return loadFFmpeg() == nil && ffmpegLoaded
}

// FFmpegVersion returns the libavutil version string and the libavformat
// version triple, or an error if the libraries are not loaded.
func FFmpegVersion() (string, [3]int, error) {
	if err := loadFFmpeg(); err != nil {
		return "", [3]int{}, err
	}
	v := avformatVersion()
	return cStringAt(avVersionInfo()), [3]int{int(v >> 16), int(v>>8) & 0xff, int(v & 0xff)}, nil
}

// ffmpegBackend installs adapters into libavformat AVIOContexts.
type ffmpegBackend struct{}

// FFmpegBackend returns the libavformat backend.
func FFmpegBackend() (Backend, error) {
	if err := loadFFmpeg(); err != nil {
		return nil, err
	}
	initCallbacks()
	return ffmpegBackend{}, nil
}

func (ffmpegBackend) Alloc(size int) (Buffer, error) {
	ptr := avMalloc(uintptr(size))
	if ptr == 0 {
		return Buffer{}, fmt.Errorf("av_malloc(%d): %w", size, ErrMemory)
	}
	return Buffer{Ptr: ptr, Size: size}, nil
}

func (ffmpegBackend) Free(buf Buffer) {
	if buf.Ptr != 0 {
		avFree(buf.Ptr)
	}
}

func (ffmpegBackend) Install(buf Buffer, writable bool, cb Callbacks) (uintptr, error) {
	if cb.Read == nil || cb.Write == nil {
		return 0, errors.New("read and write callbacks are required")
	}
	var writeFlag int32
	if writable {
		writeFlag = 1
	}
	var seek uintptr
	if cb.Seek != nil {
		seek = seekCB
	}

	// avio_alloc_context marks the context AVIO_SEEKABLE_NORMAL whenever a
	// seek callback is given.
	ctx := avioAllocCtx(buf.Ptr, int32(buf.Size), writeFlag, cb.Opaque, readPacketCB, writePacketCB, seek)
	if ctx == 0 {
		return 0, fmt.Errorf("avio_alloc_context: %w", ErrMemory)
	}
	// Muxers emit packets of at most one buffer.
	contextHead(ctx).maxPacketSize = int32(buf.Size)
	return ctx, nil
}

func (ffmpegBackend) Flush(ctx uintptr) {
	if ctx != 0 {
		avioFlush(ctx)
	}
}

// avioContextHead mirrors the leading public fields of AVIOContext, which
// have kept this layout since FFmpeg 4.
type avioContextHead struct {
	avClass       uintptr
	buffer        uintptr
	bufferSize    int32
	bufPtr        uintptr
	bufEnd        uintptr
	opaque        uintptr
	readPacket    uintptr
	writePacket   uintptr
	seek          uintptr
	pos           int64
	eofReached    int32
	err           int32
	writeFlag     int32
	maxPacketSize int32
}

func contextHead(ctx uintptr) *avioContextHead {
	return (*avioContextHead)(unsafe.Pointer(ctx))
}

// Release frees the context's current buffer, then the context itself.
// avio_context_free(&ctx) is av_freep(&ctx).
func (ffmpegBackend) Release(ctx uintptr) {
	if ctx == 0 {
		return
	}
	if buf := contextHead(ctx).buffer; buf != 0 {
		avFree(buf)
	}
	avFree(ctx)
}

func nativeStrerror(code int) (string, bool) {
	if !IsFFmpegAvailable() {
		return "", false
	}
	buf := make([]byte, avErrorMaxStringSize)
	ret := avStrerror(int32(averror(code)), uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	runtime.KeepAlive(buf)
	if ret < 0 {
		// Unknown to FFmpeg; the static table has the fallback text.
		return "", false
	}
	msg := cString(buf)
	return msg, msg != ""
}

func setNativeLogLevel(level int) {
	if IsFFmpegAvailable() {
		avLogSetLevel(int32(level))
	}
}
