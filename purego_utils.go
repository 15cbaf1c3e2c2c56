//go:build darwin || linux

package avio

import (
	"os"
	"path/filepath"
	"unsafe"
)

// maxCStringLen bounds strings read from native memory.
const maxCStringLen = 1024

// cString returns the NUL-terminated prefix of buf as a string.
func cString(buf []byte) string {
	for i, c := range buf {
		if c == 0 {
			return string(buf[:i])
		}
	}
	return string(buf)
}

// cStringAt reads a NUL-terminated string owned by the native side.
func cStringAt(ptr uintptr) string {
	if ptr == 0 {
		return ""
	}
	return cString(unsafe.Slice((*byte)(unsafe.Pointer(ptr)), maxCStringLen))
}

// moduleBuildDir returns the build directory next to the go.mod enclosing
// the working directory, where locally built FFmpeg libraries are placed.
func moduleBuildDir() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if fi, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil && !fi.IsDir() {
			return filepath.Join(dir, "build")
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
