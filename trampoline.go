package avio

import (
	"sync"
	"syscall"

	"github.com/pion/logging"
)

// Global callback state. The engine hands back the opaque value given to
// Install; it is a registry key rather than a Go pointer.
var (
	adaptersMu     sync.RWMutex
	adapters       = make(map[uintptr]*Adapter)
	adapterCounter uintptr
)

func registerAdapter(a *Adapter) uintptr {
	adaptersMu.Lock()
	defer adaptersMu.Unlock()
	adapterCounter++
	adapters[adapterCounter] = a
	return adapterCounter
}

func unregisterAdapter(handle uintptr) {
	adaptersMu.Lock()
	delete(adapters, handle)
	adaptersMu.Unlock()
}

// trampolineLog reports callbacks that arrive without a live adapter.
var trampolineLog logging.LeveledLogger = logging.NewDefaultLoggerFactory().NewLogger("avio:trampoline")

// unknownHandle logs a callback for an unregistered opaque value and returns
// AVERROR(EINVAL).
func unknownHandle(callback string, opaque uintptr) int {
	trampolineLog.Errorf("%s: %v %d", callback, ErrUnknownHandle, opaque)
	return averror(int(syscall.EINVAL))
}

func lookupAdapter(handle uintptr) *Adapter {
	adaptersMu.RLock()
	a := adapters[handle]
	adaptersMu.RUnlock()
	return a
}

// ioReadPacket is the read_packet callback.
func ioReadPacket(opaque, buf uintptr, size int32) int32 {
	a := lookupAdapter(opaque)
	if a == nil {
		return int32(unknownHandle("read_packet", opaque))
	}
	return a.readPacket(bytesAt(buf, size))
}

// ioWritePacket is the write_packet callback.
func ioWritePacket(opaque, buf uintptr, size int32) int32 {
	a := lookupAdapter(opaque)
	if a == nil {
		return int32(unknownHandle("write_packet", opaque))
	}
	return a.writePacket(bytesAt(buf, size))
}

// ioSeek is the seek callback. Size queries are declined without touching
// the adapter.
func ioSeek(opaque uintptr, offset int64, whence int32) int64 {
	if whence&AVSEEK_SIZE != 0 {
		return -1
	}
	a := lookupAdapter(opaque)
	if a == nil {
		return int64(unknownHandle("seek", opaque))
	}
	return a.seekPacket(offset, whence)
}

// guarded runs a callback body with the adapter locked. Errors and panics
// go to the scope's stash; the sentinel code is returned in their place.
func guarded[T int32 | int64](a *Adapter, body func() (T, error)) (ret T) {
	a.mu.Lock()
	defer a.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			ret = T(a.scope.stash.Stash(&PanicError{Value: r}))
		}
	}()

	v, err := body()
	if err != nil {
		return T(a.scope.stash.Stash(err))
	}
	return v
}
