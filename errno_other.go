//go:build !darwin && !linux

package avio

import "syscall"

func errnoRecords() []record {
	return []record{
		{name: "EINVAL", code: int(syscall.EINVAL), kind: ErrArgument},
		{name: "ENOENT", code: int(syscall.ENOENT), kind: ErrFileNotFound},
		{name: "ENOMEM", code: int(syscall.ENOMEM), kind: ErrMemory},
	}
}

func remainingErrnoRecords(map[int]record) []record {
	return nil
}
