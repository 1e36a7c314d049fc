// Package RWLock implements a reader/writer try-lock whose trylock calls
// never fail spuriously: a caller that loses a trylock always learns that
// some other participant genuinely holds the lock, not that it merely raced.
// It's built for CX's Combined pool, where a writer must be able to tell
// "occupied" from "I should retry" without blocking.
package RWLock

import "sync/atomic"

// State is one of the four logical states a StrongTryLock can be in.
type State uint64

const (
	// NoLock: idle, shared or exclusive acquisition may proceed.
	NoLock State = iota
	// Helper: a writer has announced intent to acquire exclusively; a
	// reader may still preempt it and force the writer to restart.
	Helper
	// ReaderDrain: a writer finished mutating and downgraded; readers may
	// enter freely, no new writer may acquire until the state returns to NoLock.
	ReaderDrain
	// Writer: exclusive hold granted, no shared holds remain or will be admitted.
	Writer
)

const stateBits = 2
const stateMask = uint64(1)<<stateBits - 1

func pack(seq uint64, s State) uint64 {
	return seq<<stateBits | uint64(s)
}

func unpack(w uint64) (seq uint64, s State) {
	return w >> stateBits, State(w & stateMask)
}

const (
	notReading = uint64(0)
	reading    = uint64(1)
	// anything > reading means the reader's arrival was forcibly invalidated.
)

// readIndicator is a per-thread presence table: arrive()/depart() mark a
// thread as holding a shared slot, isEmpty() polls whether any thread does.
// Padded to avoid false sharing between threads hammering their own slot.
type readIndicator struct {
	slots []paddedState
}

const cacheLinePad = 15 // 16 uint64s (128 bytes) per slot, 1 used + 15 pad

type paddedState struct {
	v   atomic.Uint64
	_   [cacheLinePad]uint64
}

func newReadIndicator(maxThreads int) *readIndicator {
	return &readIndicator{slots: make([]paddedState, maxThreads)}
}

func (ri *readIndicator) arrive(tid int) {
	ri.slots[tid].v.Store(reading)
}

func (ri *readIndicator) depart(tid int) {
	// Not release: a release store here can, under the source algorithm's
	// own observation, cause an overflow in the companion writer-side check.
	ri.slots[tid].v.Store(notReading)
}

// rollbackArrive undoes arrive(), returning false if a writer already
// invalidated this thread's arrival (abortRollback ran first) — in that
// case the arrival is still valid and visible to the writer.
func (ri *readIndicator) rollbackArrive(tid int) bool {
	// Add(-1) returns the new value; the old value was `reading` iff the
	// new value is zero (the writer's abortRollback bumps a still-reading
	// slot to reading+1 first, so a rollback racing it lands on 1, not 0).
	return ri.slots[tid].v.Add(^uint64(0)) == 0
}

// abortRollback bumps every currently-reading slot so that a concurrent
// rollbackArrive() on that slot is guaranteed to fail, ensuring a lingering
// reader observes the writer's successful acquisition.
func (ri *readIndicator) abortRollback() {
	for i := range ri.slots {
		s := &ri.slots[i].v
		if s.Load() == reading {
			s.CompareAndSwap(reading, reading+1)
		}
	}
}

func (ri *readIndicator) isEmpty() bool {
	for i := range ri.slots {
		if ri.slots[i].v.Load() != notReading {
			return false
		}
	}
	return true
}

// StrongTryLock is the try-lock described above: NoLock/Helper/Writer/ReaderDrain,
// coordinated via a sequence-stamped state word plus a read indicator.
type StrongTryLock struct {
	word  atomic.Uint64
	ri    *readIndicator
}

// New builds a StrongTryLock for up to maxThreads participants, starting in NoLock.
func New(maxThreads int) *StrongTryLock {
	l := &StrongTryLock{ri: newReadIndicator(maxThreads)}
	l.word.Store(pack(0, NoLock))
	return l
}

// SharedTryLock attempts to take a shared (reader) hold for tid. Never fails
// spuriously: false means a writer genuinely holds the lock.
func (l *StrongTryLock) SharedTryLock(tid int) bool {
	if _, s := unpack(l.word.Load()); s == Writer {
		return false
	}
	l.ri.arrive(tid)
	seq, s := unpack(l.word.Load())
	if s == Helper {
		// Try to pull the lock out from under an aspiring writer.
		if l.word.CompareAndSwap(pack(seq, Helper), pack(seq, NoLock)) {
			return true
		}
		_, s = unpack(l.word.Load())
	}
	if s != Writer {
		return true
	}
	// A writer got there first; roll back our arrival unless it was already
	// forcibly kept valid by the writer's abortRollback.
	return !l.ri.rollbackArrive(tid)
}

// SharedUnlock releases a shared hold taken by SharedTryLock.
func (l *StrongTryLock) SharedUnlock(tid int) {
	l.ri.depart(tid)
}

// ExclusiveTryLock attempts to take the exclusive (writer) hold for tid.
// Never fails spuriously: false means some other participant genuinely
// holds or is draining the lock.
func (l *StrongTryLock) ExclusiveTryLock(tid int) bool {
	seq, s := unpack(l.word.Load())
	if s == Writer || s == ReaderDrain {
		return false
	}
	if !l.ri.isEmpty() {
		return false
	}
	if s == Helper {
		if cur := l.word.Load(); cur != pack(seq, Helper) {
			return false
		}
		return l.word.CompareAndSwap(pack(seq, Helper), pack(seq, Writer))
	}
	next := pack(seq+1, Helper)
	if !l.word.CompareAndSwap(pack(seq, NoLock), next) {
		return false
	}
	if !l.ri.isEmpty() {
		return false
	}
	if l.word.Load() != next {
		return false
	}
	return l.word.CompareAndSwap(next, pack(seq+1, Writer))
}

// ExclusiveUnlock fully releases an exclusive hold, admitting both readers
// and writers again.
func (l *StrongTryLock) ExclusiveUnlock() {
	seq, _ := unpack(l.word.Load())
	l.word.Store(pack(seq, ReaderDrain))
	l.ri.abortRollback()
	l.word.Store(pack(seq, NoLock))
}

// Downgrade moves an exclusive hold to ReaderDrain: readers may now enter
// freely, but no writer may acquire until SetReadUnlock/ExclusiveUnlock runs.
func (l *StrongTryLock) Downgrade() {
	seq, _ := unpack(l.word.Load())
	l.word.Store(pack(seq, ReaderDrain))
	l.ri.abortRollback()
}

// SetReadLock forces the lock directly into ReaderDrain, used only at
// construction time to seed a Combined that should be immediately readable.
func (l *StrongTryLock) SetReadLock() {
	seq, _ := unpack(l.word.Load())
	l.word.Store(pack(seq, ReaderDrain))
}

// SetReadUnlock moves a ReaderDrain hold back to NoLock without touching the
// read indicator — used when a writer has already handed the Combined off.
func (l *StrongTryLock) SetReadUnlock() {
	seq, _ := unpack(l.word.Load())
	l.word.Store(pack(seq, NoLock))
}

// Stat returns the current state, for tests and instrumentation only.
func (l *StrongTryLock) Stat() State {
	_, s := unpack(l.word.Load())
	return s
}
