//go:build darwin || linux

package avio

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// maxErrno bounds the scan for errnos not covered by errnoRecords.
const maxErrno = 255

func errnoRecords() []record {
	rows := []struct {
		kind  *Kind
		codes []syscall.Errno
	}{
		{ErrPermission, []syscall.Errno{unix.EACCES, unix.EPERM}},
		{ErrBlockingIO, []syscall.Errno{unix.EAGAIN, unix.EALREADY, unix.EINPROGRESS, unix.EWOULDBLOCK}},
		{ErrChildProcess, []syscall.Errno{unix.ECHILD}},
		{ErrConnectionAborted, []syscall.Errno{unix.ECONNABORTED}},
		{ErrConnectionRefused, []syscall.Errno{unix.ECONNREFUSED}},
		{ErrConnectionReset, []syscall.Errno{unix.ECONNRESET}},
		{ErrFileExists, []syscall.Errno{unix.EEXIST}},
		{ErrInterrupted, []syscall.Errno{unix.EINTR}},
		{ErrIsADirectory, []syscall.Errno{unix.EISDIR}},
		{ErrFileNotFound, []syscall.Errno{unix.ENOENT}},
		{ErrNotADirectory, []syscall.Errno{unix.ENOTDIR}},
		{ErrBrokenPipe, []syscall.Errno{unix.EPIPE, unix.ESHUTDOWN}},
		{ErrProcessLookup, []syscall.Errno{unix.ESRCH}},
		{ErrTimeout, []syscall.Errno{unix.ETIMEDOUT}},
		{ErrMemory, []syscall.Errno{unix.ENOMEM}},
		{ErrNotImplemented, []syscall.Errno{unix.ENOSYS}},
		{ErrOverflow, []syscall.Errno{unix.ERANGE}},
		{ErrArgument, []syscall.Errno{unix.EINVAL}},
	}

	var out []record
	for _, row := range rows {
		for _, code := range row.codes {
			out = append(out, record{name: unix.ErrnoName(code), code: int(code), kind: row.kind})
		}
	}
	return out
}

// remainingErrnoRecords buckets every other named errno into ErrOS.
func remainingErrnoRecords(known map[int]record) []record {
	var out []record
	for code := 1; code <= maxErrno; code++ {
		if _, ok := known[code]; ok {
			continue
		}
		name := unix.ErrnoName(syscall.Errno(code))
		if name == "" {
			continue
		}
		out = append(out, record{name: name, code: code, kind: ErrOS})
	}
	return out
}
