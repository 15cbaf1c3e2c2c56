package avio

import (
	"errors"
	"fmt"
)

// Positive error codes of libavutil. A native call reports failure by
// returning the negated value (AVERROR_*).
const (
	CodeBSFNotFound      = 0xF8 | 'B'<<8 | 'S'<<16 | 'F'<<24
	CodeBug              = 'B' | 'U'<<8 | 'G'<<16 | '!'<<24
	CodeBufferTooSmall   = 'B' | 'U'<<8 | 'F'<<16 | 'S'<<24
	CodeDecoderNotFound  = 0xF8 | 'D'<<8 | 'E'<<16 | 'C'<<24
	CodeDemuxerNotFound  = 0xF8 | 'D'<<8 | 'E'<<16 | 'M'<<24
	CodeEncoderNotFound  = 0xF8 | 'E'<<8 | 'N'<<16 | 'C'<<24
	CodeEOF              = 'E' | 'O'<<8 | 'F'<<16 | ' '<<24
	CodeExit             = 'E' | 'X'<<8 | 'I'<<16 | 'T'<<24
	CodeExternal         = 'E' | 'X'<<8 | 'T'<<16 | ' '<<24
	CodeFilterNotFound   = 0xF8 | 'F'<<8 | 'I'<<16 | 'L'<<24
	CodeInvalidData      = 'I' | 'N'<<8 | 'D'<<16 | 'A'<<24
	CodeMuxerNotFound    = 0xF8 | 'M'<<8 | 'U'<<16 | 'X'<<24
	CodeOptionNotFound   = 0xF8 | 'O'<<8 | 'P'<<16 | 'T'<<24
	CodePatchWelcome     = 'P' | 'A'<<8 | 'W'<<16 | 'E'<<24
	CodeProtocolNotFound = 0xF8 | 'P'<<8 | 'R'<<16 | 'O'<<24
	CodeStreamNotFound   = 0xF8 | 'S'<<8 | 'T'<<16 | 'R'<<24
	CodeUnknown          = 'U' | 'N'<<8 | 'K'<<16 | 'N'<<24
	CodeExperimental     = 0x2bb2afa8
	CodeInputChanged     = 0x636e6701
	CodeOutputChanged    = 0x636e6702

	CodeHTTPBadRequest   = 0xF8 | '4'<<8 | '0'<<16 | '0'<<24
	CodeHTTPUnauthorized = 0xF8 | '4'<<8 | '0'<<16 | '1'<<24
	CodeHTTPForbidden    = 0xF8 | '4'<<8 | '0'<<16 | '3'<<24
	CodeHTTPNotFound     = 0xF8 | '4'<<8 | '0'<<16 | '4'<<24
	CodeHTTPOther4XX     = 0xF8 | '4'<<8 | 'X'<<16 | 'X'<<24
	CodeHTTPServerError  = 0xF8 | '5'<<8 | 'X'<<16 | 'X'<<24

	// CallbackErrorCode is reserved for errors raised inside a stream
	// callback. The callback returns -CallbackErrorCode and the error itself
	// waits in the scope's Stash until the next Check.
	CallbackErrorCode = 'G' | 'o'<<8 | 'A'<<16 | 'V'<<24
)

// Native I/O framework constants.
const (
	AVERROR_EOF = -CodeEOF

	// AVSEEK_SIZE is passed as whence when the engine asks for the total
	// stream size instead of a seek.
	AVSEEK_SIZE = 0x10000
	// AVSEEK_FORCE may be OR'ed into whence; it carries no meaning for a
	// custom stream.
	AVSEEK_FORCE = 0x20000

	avErrorMaxStringSize = 64
)

const callbackErrorMessage = "Error in Go avio callback"

// ErrInvalidTag is returned by TagToCode for tags that are not 4 bytes.
var ErrInvalidTag = errors.New("avio: error tags are 4 bytes")

// CodeToTag converts an error code into its 4-byte tag.
func CodeToTag(code int) string {
	return string([]byte{
		byte(code),
		byte(code >> 8),
		byte(code >> 16),
		byte(code >> 24),
	})
}

// TagToCode converts a 4-byte error tag into an error code.
func TagToCode(tag string) (int, error) {
	if len(tag) != 4 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTag, tag)
	}
	return int(tag[0]) | int(tag[1])<<8 | int(tag[2])<<16 | int(tag[3])<<24, nil
}

// averror converts a positive errno into a native result code.
func averror(errno int) int {
	return -errno
}
