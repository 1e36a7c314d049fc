// Package HP implements a hazard-pointer reclamation registry specialized
// for use alongside an object-reference count (ORC): a retired object is
// only actually freed once no thread's hazard slots reference it AND the
// caller-supplied predicate (typically "refcount is zero and the node is
// tombstoned") also holds. This is the memory-reclamation half of CX; the
// other half is the ring in UC that defers handoff into this registry.
package HP

import "sync/atomic"

const cacheLinePad = 15

type paddedPtr[T any] struct {
	v atomic.Pointer[T]
	_ [cacheLinePad]uint64
}

// Registry is a per-thread table of hazardSlots protected pointer slots plus
// a per-thread retired list, parameterized over the retired element type T.
// canReclaim decides, for a retired *T that currently has no hazard
// protection, whether it is additionally safe to free (e.g. ORC==0 and the
// tombstone marker is set).
type Registry[T any] struct {
	maxThreads, hazardSlots int
	slots                   [][]paddedPtr[T] // [tid][slot]
	retired                 [][]*T           // [tid] — owned solely by thread tid, no synchronization needed
	canReclaim              func(*T) bool
}

// New builds a Registry with hazardSlots protected slots per thread, for up
// to maxThreads participants.
func New[T any](hazardSlots, maxThreads int, canReclaim func(*T) bool) *Registry[T] {
	r := &Registry[T]{
		maxThreads: maxThreads,
		hazardSlots: hazardSlots,
		slots:      make([][]paddedPtr[T], maxThreads),
		retired:    make([][]*T, maxThreads),
		canReclaim: canReclaim,
	}
	for tid := range r.slots {
		r.slots[tid] = make([]paddedPtr[T], hazardSlots)
	}
	return r
}

// Protect republishes ptr as the current value of hazard slot index for tid
// and returns ptr unchanged — the caller must re-read the source pointer
// afterward and loop if it moved, per the hazard-pointer protocol.
func (r *Registry[T]) Protect(index int, ptr *T, tid int) *T {
	r.slots[tid][index].v.Store(ptr)
	return ptr
}

// Clear drops every hazard slot held by tid.
func (r *Registry[T]) Clear(tid int) {
	for i := range r.slots[tid] {
		r.slots[tid][i].v.Store(nil)
	}
}

// ClearOne drops a single hazard slot held by tid.
func (r *Registry[T]) ClearOne(index, tid int) {
	r.slots[tid][index].v.Store(nil)
}

// Retire enqueues ptr on tid's retired list and sweeps the list for objects
// that are both unprotected by any thread's hazard slots and accepted by
// canReclaim, discarding them. Progress is wait-free bounded by
// maxThreads*hazardSlots per sweep.
func (r *Registry[T]) Retire(ptr *T, tid int) {
	list := append(r.retired[tid], ptr)
	kept := list[:0]
	for _, obj := range list {
		if r.canReclaim(obj) && !r.isProtected(obj) {
			continue // eligible for reclamation; drop the reference
		}
		kept = append(kept, obj)
	}
	r.retired[tid] = kept
}

func (r *Registry[T]) isProtected(obj *T) bool {
	for t := 0; t < r.maxThreads; t++ {
		for i := 0; i < r.hazardSlots; i++ {
			if r.slots[t][i].v.Load() == obj {
				return true
			}
		}
	}
	return false
}

// Pending returns the number of objects tid is still holding back from
// reclamation, for tests and instrumentation that check what teardown
// leaves pending.
func (r *Registry[T]) Pending(tid int) int {
	return len(r.retired[tid])
}
