package avio

import (
	"sync"

	"github.com/pion/logging"
)

// ScopeConfig configures a Scope.
type ScopeConfig struct {
	// LoggerFactory creates the scope and adapter loggers.
	LoggerFactory logging.LoggerFactory

	// LogBridge supplies native log context for errors. Optional.
	LogBridge LogBridge

	// Strerror renders a positive error code. Defaults to av_strerror when
	// the native library is loaded, else the static table.
	Strerror func(code int) string
}

// DefaultScopeConfig returns a configuration logging through pion's default
// logger factory.
func DefaultScopeConfig() ScopeConfig {
	return ScopeConfig{
		LoggerFactory: logging.NewDefaultLoggerFactory(),
		Strerror:      defaultStrerror,
	}
}

// Scope owns the error stash and log cursor shared by the adapters serving
// one native caller thread, and the Check choke point that turns native
// result codes into errors.
//
// Use one Scope per thread of native calls. A Scope is safe for concurrent
// use, but two threads sharing one would overwrite each other's stashed
// errors.
type Scope struct {
	stash    *Stash
	logs     LogBridge
	strerror func(code int) string
	factory  logging.LoggerFactory
	log      logging.LeveledLogger

	mu        sync.Mutex
	logCursor uint64
}

// NewScope creates a Scope.
func NewScope(cfg ScopeConfig) *Scope {
	if cfg.LoggerFactory == nil {
		cfg.LoggerFactory = logging.NewDefaultLoggerFactory()
	}
	if cfg.Strerror == nil {
		cfg.Strerror = defaultStrerror
	}
	log := cfg.LoggerFactory.NewLogger("avio")
	return &Scope{
		stash:    newStash(log),
		logs:     cfg.LogBridge,
		strerror: cfg.Strerror,
		factory:  cfg.LoggerFactory,
		log:      log,
	}
}

// Stash returns the scope's error stash.
func (s *Scope) Stash() *Stash { return s.stash }

// Check converts a native result code into a Go result. See CheckFile.
func (s *Scope) Check(code int) (int, error) {
	return s.CheckFile(code, "")
}

// CheckFile converts a native result code into a Go result.
//
// A stashed callback error always wins and is returned as is. Otherwise a
// non-negative code is returned unchanged, and a negative one becomes an
// *Error carrying the positive code, its message, filename and the newest
// native error log line not yet attached to an earlier error.
func (s *Scope) CheckFile(code int, filename string) (int, error) {
	if err := s.stash.Consume(); err != nil {
		return 0, err
	}
	if code >= 0 {
		return code, nil
	}

	errno := -code
	var msg string
	if errno == CallbackErrorCode {
		msg = callbackErrorMessage
	} else {
		msg = s.strerror(errno)
	}
	return 0, &Error{
		Code:     errno,
		Kind:     Lookup(errno),
		Message:  msg,
		Filename: filename,
		Log:      s.unreadLog(),
	}
}

func (s *Scope) unreadLog() *LogEntry {
	if s.logs == nil {
		return nil
	}
	entry, ok := s.logs.LastError()
	if !ok {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.Count <= s.logCursor {
		return nil
	}
	s.logCursor = entry.Count
	return &entry
}

func defaultStrerror(code int) string {
	if msg, ok := nativeStrerror(code); ok {
		return msg
	}
	return Strerror(code)
}
