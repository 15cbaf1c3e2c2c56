package avio

import (
	"sync"

	"github.com/pion/logging"
	pkgerrors "github.com/pkg/errors"
)

var errNilStashed = pkgerrors.New("avio: callback failed without an error")

type stackTracer interface {
	StackTrace() pkgerrors.StackTrace
}

// Stash is a single-slot holder for an error raised inside a stream
// callback, waiting to be returned by the next Check.
//
// A second Stash before Consume drops the older error after logging it, so
// at most one error is ever outstanding. Consume returns the stashed value
// itself; the stack recorded at Stash time is only used for that log line.
type Stash struct {
	mu      sync.Mutex
	slot    error
	traced  error
	pending int
	log     logging.LeveledLogger
}

func newStash(log logging.LeveledLogger) *Stash {
	return &Stash{log: log}
}

// Stash stores err and returns the native sentinel result code.
func (s *Stash) Stash(err error) int {
	if err == nil {
		err = errNilStashed
	}
	traced := err
	if _, ok := err.(stackTracer); !ok {
		traced = pkgerrors.WithStack(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.slot != nil {
		s.log.Errorf("avio library error being dropped: %+v", s.traced)
		s.pending--
	}
	s.slot = err
	s.traced = traced
	s.pending++
	return -CallbackErrorCode
}

// Consume removes and returns the stashed error, or nil if there is none.
func (s *Stash) Consume() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == 0 {
		return nil
	}
	s.pending--
	err := s.slot
	s.slot, s.traced = nil, nil
	return err
}

// Pending returns the number of outstanding errors, zero or one.
func (s *Stash) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}
