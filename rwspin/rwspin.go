// Package rwspin implements a spin-based read-write lock biased towards
// writers: once a writer starts waiting, every new reader waits behind it
// instead of letting a steady stream of readers starve it out. Unlike
// sync.RWMutex it never parks on the OS scheduler, so it's only worth
// using for sections held for a handful of instructions — exactly the
// per-step store access pattern a suspended, resumable call makes.
//
// Ported from the Rust RwSpinLock this engine's original implementation
// used, built on a single atomic uint32 state word:
//   - 0 means no readers, no writer
//   - math.MaxUint32 means one active writer
//   - state%2 == 0 means state/2 active readers, no waiting writer
//   - state%2 == 1 means (state-1)/2 active readers, plus a waiting writer
package rwspin

import (
	"math"
	"runtime"
	"sync/atomic"
)

// Lock is a spin-based read-write lock. The zero value is unlocked.
type Lock struct {
	state atomic.Uint32
}

// RLock blocks until a read slot is available, favoring any writer already
// announced as waiting.
func (l *Lock) RLock() {
	s := l.state.Load()
	for {
		if s%2 == 0 && s < math.MaxUint32-2 {
			if l.state.CompareAndSwap(s, s+2) {
				return
			}
			s = l.state.Load()
			continue
		}
		runtime.Gosched()
		s = l.state.Load()
	}
}

// RUnlock releases one previously acquired read slot.
func (l *Lock) RUnlock() {
	l.state.Add(^uint32(1)) // -2 via two's complement
}

// Lock blocks until exclusive access is available, announcing itself as a
// waiting writer so new readers stop acquiring the lock.
func (l *Lock) Lock() {
	s := l.state.Load()
	for {
		if s <= 1 {
			if l.state.CompareAndSwap(s, math.MaxUint32) {
				return
			}
			s = l.state.Load()
			continue
		}
		if s%2 == 0 {
			if !l.state.CompareAndSwap(s, s+1) {
				s = l.state.Load()
				continue
			}
		}
		runtime.Gosched()
		s = l.state.Load()
	}
}

// Unlock releases exclusive access.
func (l *Lock) Unlock() {
	l.state.Store(0)
}
