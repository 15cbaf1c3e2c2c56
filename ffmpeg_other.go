//go:build !darwin && !linux

package avio

import "errors"

var errFFmpegUnsupported = errors.New("avio: FFmpeg backend is only available on darwin and linux")

// IsFFmpegAvailable reports whether libavutil and libavformat could be loaded.
func IsFFmpegAvailable() bool { return false }

// FFmpegVersion returns an error on this platform.
func FFmpegVersion() (string, [3]int, error) {
	return "", [3]int{}, errFFmpegUnsupported
}

// FFmpegBackend returns an error on this platform.
func FFmpegBackend() (Backend, error) {
	return nil, errFFmpegUnsupported
}

func nativeStrerror(int) (string, bool) { return "", false }

func setNativeLogLevel(int) {}
