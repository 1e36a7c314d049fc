// Package UC implements CX, a wait-free universal construction: it takes
// any sequential type S with a copy operation and turns it into a
// linearizable concurrent object whose reads and updates complete within a
// bounded number of steps regardless of scheduling. See SPEC_FULL.md for
// the full design; this file is the non-timed core (§4.1, §4.2).
package UC

import (
	"log"
	"os"
	"sync/atomic"

	"github.com/cx-project/cx/HP"
	"github.com/cx-project/cx/RWLock"
)

const (
	hpTail = iota
	hpTailNext
	hpHead
	hpNext
	hpMyNode
	hpSlotCount
)

const maxReadTries = 10

// abort is indirected, like the teacher indirects its runtime-linked hash
// functions, so tests can substitute a non-fatal stub without touching any
// production call site.
var abort = func() { os.Exit(2) }

func safeRun[S, R any](fn func(*S) R, obj *S) (result R) {
	defer func() {
		if p := recover(); p != nil {
			log.Printf("UC: operation closure panicked, replica is no longer trustworthy: %v", p)
			abort()
		}
	}()
	return fn(obj)
}

// CX is the wait-free universal construction over sequential type S,
// producing results of type R for every applied operation.
//
// Consistency: linearizable.
// ApplyUpdate progress: wait-free, bounded by O(participantCount).
// ApplyRead progress: wait-free, bounded.
// Memory reclamation: hazard pointers + object-reference counts (§4.4).
type CX[S, R any] struct {
	participantCount int
	copy             func(*S) *S
	drop             func(*S)

	sentinel *node[S, R]
	tail     atomic.Pointer[node[S, R]]

	curComb atomic.Pointer[combined[S, R]]
	combs   []combined[S, R]

	enqueuers []atomic.Pointer[node[S, R]]

	hp    *HP.Registry[node[S, R]]
	rings []*retireRing[S, R]

	Participants *Participants
}

// New constructs a CX over initial, deriving additional pool replicas via
// copy. The pool holds 2*participantCount Combined slots — the size spec.md
// §7 proves sufficient for participantCount concurrent mutators.
func New[S, R any](initial *S, copy func(*S) *S, drop func(*S), participantCount int) *CX[S, R] {
	if participantCount < 1 {
		participantCount = 1
	}
	cx := &CX[S, R]{
		participantCount: participantCount,
		copy:             copy,
		drop:             drop,
	}

	var zero R
	cx.sentinel = newNode[S, R](func(*S) R { return zero }, 0)
	cx.tail.Store(cx.sentinel)

	poolSize := 2 * participantCount
	cx.combs = make([]combined[S, R], poolSize)
	for i := range cx.combs {
		cx.combs[i].lock = RWLock.New(participantCount)
	}
	cx.combs[0].head.Store(cx.sentinel)
	cx.combs[0].obj = initial
	cx.combs[1].head.Store(cx.sentinel)
	cx.combs[1].obj = copy(initial)
	if participantCount >= 2 {
		for i := 2; i < 4; i++ {
			cx.combs[i].head.Store(cx.sentinel)
			cx.combs[i].obj = copy(initial)
		}
		cx.sentinel.refcnt.Store(4)
	} else {
		cx.sentinel.refcnt.Store(2)
	}
	cx.combs[0].lock.SetReadLock()
	cx.curComb.Store(&cx.combs[0])

	cx.enqueuers = make([]atomic.Pointer[node[S, R]], participantCount)
	cx.hp = HP.New[node[S, R]](hpSlotCount, participantCount, canReclaim[S, R])
	cx.rings = make([]*retireRing[S, R], participantCount)
	for i := range cx.rings {
		cx.rings[i] = newRetireRing[S, R](cx.hp, i)
	}
	cx.Participants = newParticipants(participantCount)
	return cx
}

// enqueue is the Turn-queue-derived ticketed insertion of §4.1: lock-free
// under contention, wait-free bounded by participantCount via helping.
func (cx *CX[S, R]) enqueue(myNode *node[S, R], tid int) {
	cx.enqueuers[tid].Store(myNode)
	for i := 0; i < cx.participantCount; i++ {
		if cx.enqueuers[tid].Load() == nil {
			return // someone else finished all four steps on our behalf
		}
		ltail := cx.hp.Protect(hpTail, cx.tail.Load(), tid)
		if ltail != cx.tail.Load() {
			continue
		}
		if cand := cx.enqueuers[ltail.submitterID].Load(); cand == ltail {
			cx.enqueuers[ltail.submitterID].CompareAndSwap(ltail, nil)
		}
		for j := 1; j < cx.participantCount+1; j++ {
			idx := (j + ltail.submitterID) % cx.participantCount
			help := cx.enqueuers[idx].Load()
			if help == nil {
				continue
			}
			ltail.next.CompareAndSwap(nil, help)
			break
		}
		if lnext := ltail.next.Load(); lnext != nil {
			cx.hp.Protect(hpTailNext, lnext, tid)
			if ltail != cx.tail.Load() {
				continue
			}
			lnext.ticket.Store(ltail.ticket.Load() + 1)
			cx.tail.CompareAndSwap(ltail, lnext)
		}
	}
	cx.enqueuers[tid].Store(nil)
}

// findDonor scans the pool for a Combined whose head ticket trails
// myTicket, to copy a fresher-than-stale replica from. Returns nil if none
// is available right now — the caller gives up on helping itself further
// and returns whatever result is already visible.
func (cx *CX[S, R]) findDonor(myTicket uint64, tid int) *combined[S, R] {
	for i := 0; i < cx.participantCount; i++ {
		lc := cx.curComb.Load()
		if !lc.lock.SharedTryLock(tid) {
			continue
		}
		lhead := lc.head.Load()
		lticket := lhead.ticket.Load()
		if lticket < myTicket && !lhead.isTombstone() {
			return lc
		}
		lc.lock.SharedUnlock(tid)
		if lticket >= myTicket && lc == cx.curComb.Load() {
			return nil
		}
	}
	return nil
}

// acquireCombined scans the pool for a free exclusive slot. The non-timed
// core just does a single linear pass; TimedCX overrides this with a
// spin/yield policy (§4.6).
func (cx *CX[S, R]) acquireCombined(tid int, _ *node[S, R]) *combined[S, R] {
	for i := range cx.combs {
		if cx.combs[i].lock.ExclusiveTryLock(tid) {
			return &cx.combs[i]
		}
	}
	return nil
}

// ApplyUpdate enqueues op and applies every mutation up to and including it,
// returning op's result. Wait-free, bounded by O(participantCount) steps.
func (cx *CX[S, R]) ApplyUpdate(tid int, op func(*S) R) R {
	myNode := newNode[S, R](op, tid)
	cx.hp.Protect(hpMyNode, myNode, tid)
	cx.enqueue(myNode, tid)
	myTicket := myNode.ticket.Load()

	newComb := cx.acquireCombined(tid, myNode)
	if newComb == nil {
		if myNode.done.Load() {
			return myNode.loadResult()
		}
		log.Print((&PoolExhaustedError{}).Error())
		var zero R
		return zero
	}

	mn := newComb.head.Load()
	if mn != nil && mn.ticket.Load() >= myTicket {
		newComb.lock.ExclusiveUnlock()
		return myNode.loadResult()
	}

	var lcomb *combined[S, R]
	for mn != myNode {
		if mn == nil || mn.isTombstone() {
			if lcomb != nil {
				if mn != nil {
					newComb.updateHead(mn)
				}
				newComb.lock.ExclusiveUnlock()
				return myNode.loadResult()
			}
			lcomb = cx.findDonor(myTicket, tid)
			if lcomb == nil {
				if mn != nil {
					newComb.updateHead(mn)
				}
				newComb.lock.ExclusiveUnlock()
				return myNode.loadResult()
			}
			mn = lcomb.head.Load()
			newComb.updateHead(mn)
			if newComb.obj != nil {
				cx.drop(newComb.obj)
			}
			newComb.obj = cx.copy(lcomb.obj)
			lcomb.lock.SharedUnlock(tid)
			continue
		}
		lnext := cx.hp.Protect(hpHead, mn.next.Load(), tid)
		if mn.isTombstone() {
			continue
		}
		lnext.setResult(safeRun(lnext.op, newComb.obj))
		cx.hp.Protect(hpNext, lnext, tid)
		mn = lnext
	}
	newComb.updateHead(mn)
	newComb.lock.Downgrade()

	for i := 0; i < cx.participantCount; i++ {
		lc := cx.curComb.Load()
		if !lc.lock.SharedTryLock(tid) {
			continue
		}
		if lc.head.Load().ticket.Load() >= myTicket {
			lc.lock.SharedUnlock(tid)
			if lc != cx.curComb.Load() {
				continue
			}
			break
		}
		if cx.curComb.CompareAndSwap(lc, newComb) {
			lc.lock.SetReadUnlock()
			n := lc.head.Load()
			lc.lock.SharedUnlock(tid)
			// done is left false here; only TimedCX's spin-loop bailout (§4.6)
			// depends on it being set.
			for n != mn {
				lnext := n.next.Load()
				cx.rings[tid].add(n)
				n = lnext
			}
			return myNode.loadResult()
		}
		lc.lock.SharedUnlock(tid)
	}
	newComb.lock.SetReadUnlock()
	return myNode.loadResult()
}

// ApplyRead runs read against the currently published replica. Readers
// almost always complete on this fast shared path in O(1); only after
// maxReadTries failed shared-acquire attempts does a reader escalate to
// enqueuing itself as a mutation and riding a helper's progress.
func (cx *CX[S, R]) ApplyRead(tid int, read func(*S) R) R {
	var myNode *node[S, R]
	for i := 0; i < maxReadTries+cx.participantCount; i++ {
		lc := cx.curComb.Load()
		if i == maxReadTries {
			myNode = newNode[S, R](read, tid)
			cx.hp.Protect(hpMyNode, myNode, tid)
			cx.enqueue(myNode, tid)
		}
		if lc.lock.SharedTryLock(tid) {
			if lc == cx.curComb.Load() {
				ret := safeRun(read, lc.obj)
				lc.lock.SharedUnlock(tid)
				return ret
			}
			lc.lock.SharedUnlock(tid)
		}
	}
	return myNode.loadResult()
}

// Close frees every replica via drop. It must only be called once no
// thread can still invoke ApplyUpdate/ApplyRead.
func (cx *CX[S, R]) Close() {
	seen := make(map[*S]bool, len(cx.combs))
	for i := range cx.combs {
		obj := cx.combs[i].obj
		if obj == nil || seen[obj] {
			continue
		}
		seen[obj] = true
		cx.drop(obj)
	}
	for _, r := range cx.rings {
		r.drain()
	}
}

// ParticipantCount returns the fixed maximum number of participants this CX was built for.
func (cx *CX[S, R]) ParticipantCount() int {
	return cx.participantCount
}
