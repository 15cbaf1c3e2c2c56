package avio

import "unsafe"

// Buffer is a transfer buffer allocated by a Backend.
type Buffer struct {
	Ptr  uintptr
	Size int
}

// Bytes views the buffer as a byte slice.
func (b Buffer) Bytes() []byte {
	return bytesAt(b.Ptr, int32(b.Size))
}

// Callbacks are the trampolines an adapter installs into the engine.
// Seek is nil for streams that cannot seek.
type Callbacks struct {
	Opaque uintptr
	Read   func(opaque, buf uintptr, size int32) int32
	Write  func(opaque, buf uintptr, size int32) int32
	Seek   func(opaque uintptr, offset int64, whence int32) int64
}

// Backend is the native I/O engine an Adapter plugs into.
//
// Install takes ownership of the buffer on success; the engine may replace
// it later, so Release frees whatever buffer the context holds at that time.
// Free is only used for buffers that were never installed.
type Backend interface {
	Alloc(size int) (Buffer, error)
	Free(buf Buffer)
	Install(buf Buffer, writable bool, cb Callbacks) (uintptr, error)
	Flush(ctx uintptr)
	Release(ctx uintptr)
}

func bytesAt(ptr uintptr, size int32) []byte {
	if ptr == 0 || size <= 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(ptr)), int(size))
}
