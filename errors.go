package avio

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"syscall"
)

// Common errors
var (
	ErrConfiguration = errors.New("avio: invalid adapter configuration")
	ErrNotReadable   = errors.New("avio: stream is not readable")
	ErrNotWritable   = errors.New("avio: stream is not writable")
	ErrNotSeekable   = errors.New("avio: stream is not seekable")
	ErrUnknownHandle = errors.New("avio: unknown callback handle")
)

// Family groups error kinds so callers can match a whole class of failures
// with errors.Is. A kind may belong to several families.
type Family uint16

const (
	FamilyLibrary    Family = 1 << iota // Every error produced by Check
	FamilyOS                            // errno-derived errors
	FamilyHTTP                          // HTTP protocol errors
	FamilyHTTPClient                    // HTTP 4xx errors
	FamilyLookup                        // Missing codec, muxer, filter, ...
	FamilyValue                         // Bad argument or bad data
	FamilyRuntime                       // Internal failures
	FamilyEOF                           // End of stream
)

var familyNames = [...]string{"library", "os", "http", "http-client", "lookup", "value", "runtime", "eof"}

// Has returns true if all families in other are set.
func (f Family) Has(other Family) bool { return f&other == other }

func (f Family) String() string {
	var names []string
	for i, name := range familyNames {
		if f&(1<<i) != 0 {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// ParseFamily parses a "|"-separated list of family names as printed by
// String.
func ParseFamily(s string) (Family, error) {
	var f Family
	for _, part := range strings.Split(s, "|") {
		part = strings.TrimSpace(part)
		found := false
		for i, name := range familyNames {
			if strings.EqualFold(part, name) {
				f |= 1 << i
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("avio: unknown error family %q", part)
		}
	}
	return f, nil
}

// Error implements error so a Family can be an errors.Is target.
func (f Family) Error() string {
	return "avio: " + f.String() + " error"
}

// Kind identifies the concrete class of an *Error. Kinds are created once at
// package initialisation; compare them by identity or with errors.Is.
type Kind struct {
	name     string
	families Family
	errno    bool
}

func newKind(name string, families Family) *Kind {
	return &Kind{name: name, families: families | FamilyLibrary}
}

func newErrnoKind(name string, families Family) *Kind {
	k := newKind(name, families)
	k.errno = true
	return k
}

// Name returns the kind name, e.g. "InvalidDataError".
func (k *Kind) Name() string { return k.name }

// Families returns the families the kind belongs to.
func (k *Kind) Families() Family { return k.families }

func (k *Kind) Error() string { return "avio: " + k.name }

// Library error kinds.
var (
	ErrBSFNotFound      = newKind("BSFNotFoundError", FamilyLookup)
	ErrBug              = newKind("BugError", FamilyRuntime)
	ErrBufferTooSmall   = newKind("BufferTooSmallError", FamilyValue)
	ErrDecoderNotFound  = newKind("DecoderNotFoundError", FamilyLookup)
	ErrDemuxerNotFound  = newKind("DemuxerNotFoundError", FamilyLookup)
	ErrEncoderNotFound  = newKind("EncoderNotFoundError", FamilyLookup)
	ErrEOF              = newKind("EOFError", FamilyEOF)
	ErrExit             = newKind("ExitError", 0)
	ErrExternal         = newKind("ExternalError", 0)
	ErrFilterNotFound   = newKind("FilterNotFoundError", FamilyLookup)
	ErrInvalidData      = newKind("InvalidDataError", FamilyValue)
	ErrMuxerNotFound    = newKind("MuxerNotFoundError", FamilyLookup)
	ErrOptionNotFound   = newKind("OptionNotFoundError", FamilyLookup)
	ErrPatchWelcome     = newKind("PatchWelcomeError", 0)
	ErrProtocolNotFound = newKind("ProtocolNotFoundError", FamilyLookup)
	ErrStreamNotFound   = newKind("StreamNotFoundError", FamilyLookup)
	ErrUnknown          = newKind("UnknownError", 0)
	ErrExperimental     = newKind("ExperimentalError", 0)
	ErrInputChanged     = newKind("InputChangedError", 0)
	ErrOutputChanged    = newKind("OutputChangedError", 0)

	ErrHTTPBadRequest   = newKind("HTTPBadRequestError", FamilyHTTP|FamilyHTTPClient)
	ErrHTTPUnauthorized = newKind("HTTPUnauthorizedError", FamilyHTTP|FamilyHTTPClient)
	ErrHTTPForbidden    = newKind("HTTPForbiddenError", FamilyHTTP|FamilyHTTPClient)
	ErrHTTPNotFound     = newKind("HTTPNotFoundError", FamilyHTTP|FamilyHTTPClient)
	ErrHTTPOtherClient  = newKind("HTTPOtherClientError", FamilyHTTP|FamilyHTTPClient)
	ErrHTTPServer       = newKind("HTTPServerError", FamilyHTTP)

	// ErrCallback is the kind reported when a callback failed but its error
	// was no longer in the stash.
	ErrCallback = newKind("CallbackError", FamilyRuntime)

	// ErrUnrecognized is the fallback for codes missing from the table.
	ErrUnrecognized = newKind("UnrecognizedError", 0)
)

// errno error kinds.
var (
	ErrPermission        = newErrnoKind("PermissionError", FamilyOS)
	ErrBlockingIO        = newErrnoKind("BlockingIOError", FamilyOS)
	ErrChildProcess      = newErrnoKind("ChildProcessError", FamilyOS)
	ErrConnectionAborted = newErrnoKind("ConnectionAbortedError", FamilyOS)
	ErrConnectionRefused = newErrnoKind("ConnectionRefusedError", FamilyOS)
	ErrConnectionReset   = newErrnoKind("ConnectionResetError", FamilyOS)
	ErrFileExists        = newErrnoKind("FileExistsError", FamilyOS)
	ErrInterrupted       = newErrnoKind("InterruptedError", FamilyOS)
	ErrIsADirectory      = newErrnoKind("IsADirectoryError", FamilyOS)
	ErrFileNotFound      = newErrnoKind("FileNotFoundError", FamilyOS)
	ErrNotADirectory     = newErrnoKind("NotADirectoryError", FamilyOS)
	ErrBrokenPipe        = newErrnoKind("BrokenPipeError", FamilyOS)
	ErrProcessLookup     = newErrnoKind("ProcessLookupError", FamilyOS)
	ErrTimeout           = newErrnoKind("TimeoutError", FamilyOS)
	ErrMemory            = newErrnoKind("MemoryError", FamilyOS)
	ErrNotImplemented    = newErrnoKind("NotImplementedError", FamilyOS)
	ErrOverflow          = newErrnoKind("OverflowError", FamilyOS)
	ErrOS                = newErrnoKind("OSError", FamilyOS)

	// ErrArgument is EINVAL. Its message puts the code last.
	ErrArgument = newErrnoKind("ArgumentError", FamilyValue)
)

// record is one row of the code table.
type record struct {
	name    string
	code    int
	kind    *Kind
	message string
}

// Static table of library error codes, messages as rendered by av_strerror.
var libraryRecords = []record{
	{"BSF_NOT_FOUND", CodeBSFNotFound, ErrBSFNotFound, "Bitstream filter not found"},
	{"BUG", CodeBug, ErrBug, "Internal bug, should not have happened"},
	{"BUFFER_TOO_SMALL", CodeBufferTooSmall, ErrBufferTooSmall, "Buffer too small"},
	{"DECODER_NOT_FOUND", CodeDecoderNotFound, ErrDecoderNotFound, "Decoder not found"},
	{"DEMUXER_NOT_FOUND", CodeDemuxerNotFound, ErrDemuxerNotFound, "Demuxer not found"},
	{"ENCODER_NOT_FOUND", CodeEncoderNotFound, ErrEncoderNotFound, "Encoder not found"},
	{"EOF", CodeEOF, ErrEOF, "End of file"},
	{"EXIT", CodeExit, ErrExit, "Immediate exit requested"},
	{"EXTERNAL", CodeExternal, ErrExternal, "Generic error in an external library"},
	{"FILTER_NOT_FOUND", CodeFilterNotFound, ErrFilterNotFound, "Filter not found"},
	{"INVALIDDATA", CodeInvalidData, ErrInvalidData, "Invalid data found when processing input"},
	{"MUXER_NOT_FOUND", CodeMuxerNotFound, ErrMuxerNotFound, "Muxer not found"},
	{"OPTION_NOT_FOUND", CodeOptionNotFound, ErrOptionNotFound, "Option not found"},
	{"PATCHWELCOME", CodePatchWelcome, ErrPatchWelcome, "Not yet implemented in FFmpeg, patches welcome"},
	{"PROTOCOL_NOT_FOUND", CodeProtocolNotFound, ErrProtocolNotFound, "Protocol not found"},
	{"STREAM_NOT_FOUND", CodeStreamNotFound, ErrStreamNotFound, "Stream not found"},
	{"UNKNOWN", CodeUnknown, ErrUnknown, "Unknown error occurred"},
	{"EXPERIMENTAL", CodeExperimental, ErrExperimental, "Experimental feature"},
	{"INPUT_CHANGED", CodeInputChanged, ErrInputChanged, "Input changed"},
	{"OUTPUT_CHANGED", CodeOutputChanged, ErrOutputChanged, "Output changed"},
	{"HTTP_BAD_REQUEST", CodeHTTPBadRequest, ErrHTTPBadRequest, "Server returned 400 Bad Request"},
	{"HTTP_UNAUTHORIZED", CodeHTTPUnauthorized, ErrHTTPUnauthorized, "Server returned 401 Unauthorized (authorization failed)"},
	{"HTTP_FORBIDDEN", CodeHTTPForbidden, ErrHTTPForbidden, "Server returned 403 Forbidden (access denied)"},
	{"HTTP_NOT_FOUND", CodeHTTPNotFound, ErrHTTPNotFound, "Server returned 404 Not Found"},
	{"HTTP_OTHER_4XX", CodeHTTPOther4XX, ErrHTTPOtherClient, "Server returned 4XX Client Error, but not one of 40{0,1,3,4}"},
	{"HTTP_SERVER_ERROR", CodeHTTPServerError, ErrHTTPServer, "Server returned 5XX Server Error reply"},
	{"CALLBACK", CallbackErrorCode, ErrCallback, callbackErrorMessage},
}

// Built once from libraryRecords and the platform errno table.
var registry = buildRegistry()

type codeRegistry struct {
	byCode map[int]record
	kinds  []*Kind
}

func buildRegistry() *codeRegistry {
	r := &codeRegistry{byCode: make(map[int]record)}
	for _, rec := range libraryRecords {
		r.add(rec)
	}
	for _, rec := range errnoRecords() {
		r.add(rec)
	}
	// Every other errno the platform knows about.
	for _, rec := range remainingErrnoRecords(r.byCode) {
		r.add(rec)
	}
	r.kinds = append(r.kinds, ErrUnrecognized)
	return r
}

func (r *codeRegistry) add(rec record) {
	if prev, ok := r.byCode[rec.code]; ok {
		if prev.kind != rec.kind {
			panic(fmt.Sprintf("avio: code %d registered as both %s and %s", rec.code, prev.kind.name, rec.kind.name))
		}
		return
	}
	r.byCode[rec.code] = rec
	for _, k := range r.kinds {
		if k == rec.kind {
			return
		}
	}
	r.kinds = append(r.kinds, rec.kind)
}

// Lookup returns the kind for a positive error code. Unknown codes resolve to
// ErrUnrecognized.
func Lookup(code int) *Kind {
	if rec, ok := registry.byCode[code]; ok {
		return rec.kind
	}
	return ErrUnrecognized
}

// Kinds returns every registered kind, ErrUnrecognized last.
func Kinds() []*Kind {
	out := make([]*Kind, len(registry.kinds))
	copy(out, registry.kinds)
	return out
}

// CodeInfo describes one registered error code.
type CodeInfo struct {
	Name    string
	Code    int
	Kind    *Kind
	Message string
}

// Codes returns the registered codes sorted by value.
func Codes() []CodeInfo {
	out := make([]CodeInfo, 0, len(registry.byCode))
	for _, rec := range registry.byCode {
		out = append(out, CodeInfo{Name: rec.name, Code: rec.code, Kind: rec.kind, Message: rec.message})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Strerror renders a positive error code without the native library.
func Strerror(code int) string {
	if rec, ok := registry.byCode[code]; ok && rec.message != "" {
		return rec.message
	}
	if rec, ok := registry.byCode[code]; ok && rec.kind.errno {
		return syscall.Errno(code).Error()
	}
	return fmt.Sprintf("Error number %d occurred", -code)
}

// Error is a failure reported by the native engine, as produced by
// Scope.Check.
type Error struct {
	Code     int    // Positive error code
	Kind     *Kind  // Never nil
	Message  string // Human-readable message
	Filename string // File being operated on, if any
	Log      *LogEntry
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Kind == ErrArgument {
		b.WriteString(e.Message)
		if e.Filename != "" {
			fmt.Fprintf(&b, ": %q", e.Filename)
		}
		fmt.Fprintf(&b, " returned %d", e.Code)
	} else {
		fmt.Fprintf(&b, "[Errno %d] %s", e.Code, e.Message)
		if e.Filename != "" {
			fmt.Fprintf(&b, ": %q", e.Filename)
		}
	}
	if e.Log != nil {
		fmt.Fprintf(&b, "; last error log: [%s] %s",
			strings.TrimSpace(e.Log.Category), strings.TrimSpace(e.Log.Message))
	}
	return b.String()
}

// Is matches the error's Kind and any Family it belongs to.
func (e *Error) Is(target error) bool {
	switch t := target.(type) {
	case *Kind:
		return e.Kind == t
	case Family:
		return t != 0 && e.Kind.families.Has(t)
	}
	return false
}

// Unwrap exposes the general-purpose Go equivalent: io.EOF for end of
// stream, the syscall.Errno for errno kinds.
func (e *Error) Unwrap() error {
	switch {
	case e.Kind == ErrEOF:
		return io.EOF
	case e.Kind.errno:
		return syscall.Errno(e.Code)
	}
	return nil
}

// ConfigError reports an adapter that cannot be built over the given stream.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return "avio: " + e.Reason }

// Is reports ErrConfiguration.
func (e *ConfigError) Is(target error) bool { return target == ErrConfiguration }

// PanicError carries a panic recovered inside a stream callback.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("avio: panic in stream callback: %v", e.Value)
}

func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}
