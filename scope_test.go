package avio

import (
	"errors"
	"io"
	"strings"
	"syscall"
	"testing"
)

func TestScope_CheckSuccess(t *testing.T) {
	scope, _ := newTestScope(t)

	for _, code := range []int{0, 1, 4096} {
		n, err := scope.Check(code)
		if err != nil {
			t.Errorf("Check(%d) error = %v", code, err)
		}
		if n != code {
			t.Errorf("Check(%d) = %d", code, n)
		}
	}
}

func TestScope_CheckFailure(t *testing.T) {
	tests := []struct {
		name    string
		code    int
		kind    *Kind
		errCode int
		message string
	}{
		{"eof", AVERROR_EOF, ErrEOF, CodeEOF, "End of file"},
		{"invalid data", -CodeInvalidData, ErrInvalidData, CodeInvalidData, "Invalid data found when processing input"},
		{"http", -CodeHTTPNotFound, ErrHTTPNotFound, CodeHTTPNotFound, "Server returned 404 Not Found"},
		{"errno", -int(syscall.ENOENT), ErrFileNotFound, int(syscall.ENOENT), syscall.ENOENT.Error()},
		{"callback", -CallbackErrorCode, ErrCallback, CallbackErrorCode, callbackErrorMessage},
		{"unrecognized", -12345678, ErrUnrecognized, 12345678, "Error number -12345678 occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scope, _ := newTestScope(t)
			n, err := scope.Check(tt.code)
			if n != 0 {
				t.Errorf("Check() n = %d, want 0", n)
			}

			var avErr *Error
			if !errors.As(err, &avErr) {
				t.Fatalf("Check() error = %v, want *Error", err)
			}
			if avErr.Kind != tt.kind {
				t.Errorf("Kind = %s, want %s", avErr.Kind.Name(), tt.kind.Name())
			}
			if avErr.Code != tt.errCode {
				t.Errorf("Code = %d, want %d", avErr.Code, tt.errCode)
			}
			if avErr.Message != tt.message {
				t.Errorf("Message = %q, want %q", avErr.Message, tt.message)
			}
			if !errors.Is(err, FamilyLibrary) {
				t.Error("every checked error should match FamilyLibrary")
			}
		})
	}
}

func TestScope_CheckFile(t *testing.T) {
	scope, _ := newTestScope(t)

	_, err := scope.CheckFile(-int(syscall.EINVAL), "out.mkv")
	if !errors.Is(err, ErrArgument) {
		t.Fatalf("CheckFile() error = %v, want ErrArgument", err)
	}
	want := syscall.EINVAL.Error() + `: "out.mkv" returned 22`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestScope_StashWins(t *testing.T) {
	scope, _ := newTestScope(t)
	boom := errors.New("boom")

	// The stashed error wins over any code, even success.
	for _, code := range []int{-CallbackErrorCode, AVERROR_EOF, 0, 12} {
		scope.Stash().Stash(boom)
		n, err := scope.Check(code)
		if n != 0 || !errors.Is(err, boom) {
			t.Errorf("Check(%d) = %d, %v; want 0, boom", code, n, err)
		}
		if errors.Is(err, io.EOF) {
			t.Errorf("Check(%d) returned the code's error instead of the stashed one", code)
		}
	}

	// Slot is empty again.
	if _, err := scope.Check(-CallbackErrorCode); !errors.Is(err, ErrCallback) {
		t.Errorf("Check() with empty stash = %v, want ErrCallback", err)
	}
}

func TestScope_LogAttachedOnce(t *testing.T) {
	_, out := newTestScope(t)
	factory := newCaptureFactory(out)
	logs := NewLogCapture(factory)
	scope := NewScope(ScopeConfig{LoggerFactory: factory, LogBridge: logs, Strerror: Strerror})

	logs.Record(LogError, "mov,mp4,m4a", "moov atom not found\n")

	_, err := scope.CheckFile(-CodeInvalidData, "in.mp4")
	var avErr *Error
	if !errors.As(err, &avErr) {
		t.Fatalf("CheckFile() error = %v, want *Error", err)
	}
	if avErr.Log == nil || avErr.Log.Count != 1 {
		t.Fatalf("Log = %+v, want the recorded line", avErr.Log)
	}
	if !strings.HasSuffix(err.Error(), "; last error log: [mov,mp4,m4a] moov atom not found") {
		t.Errorf("Error() = %q", err.Error())
	}

	_, err = scope.Check(-CodeInvalidData)
	if !errors.As(err, &avErr) || avErr.Log != nil {
		t.Errorf("second error reused the log line: %v", err)
	}

	logs.Record(LogWarning, "mov,mp4,m4a", "not an error")
	_, err = scope.Check(-CodeInvalidData)
	if !errors.As(err, &avErr) || avErr.Log != nil {
		t.Errorf("warning lines must not be attached: %v", err)
	}

	logs.Record(LogFatal, "tcp", "connection lost")
	_, err = scope.Check(-int(syscall.ECONNRESET))
	if !errors.As(err, &avErr) || avErr.Log == nil || avErr.Log.Count != 2 {
		t.Errorf("new error line not attached: %v", err)
	}
}
