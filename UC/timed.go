package UC

import (
	"log"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/cx-project/cx/HP"
	"github.com/cx-project/cx/RWLock"
)

// maxSpinCombs bounds how many of the pool's Combined slots acquireCombined
// spins across in its first phase — spinning over the whole pool when it's
// much bigger than 4 slots wastes cycles on slots that are statistically
// unlikely to free up first.
const maxSpinCombs = 4

// TimedCX is CX with an adaptive acquisition heuristic: instead of a single
// linear scan for a free Combined, it spins briefly, then yields for up to
// twice the last observed full-copy duration, then falls back to scanning
// the whole pool. While no copy has been timed yet, the yielding phase has
// no time bound. This keeps a participant from busy-spinning for the
// entire length of a large copy when nothing will free up sooner. See
// SPEC_FULL.md §4.
type TimedCX[S, R any] struct {
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

	copyTimeNs atomic.Int64
	numCopies  atomic.Uint64
}

// NewTimed constructs a TimedCX identically to New, plus the copy-time
// estimator used by acquireCombined.
func NewTimed[S, R any](initial *S, copy func(*S) *S, drop func(*S), participantCount int) *TimedCX[S, R] {
	if participantCount < 1 {
		participantCount = 1
	}
	cx := &TimedCX[S, R]{
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

func (cx *TimedCX[S, R]) enqueue(myNode *node[S, R], tid int) {
	cx.enqueuers[tid].Store(myNode)
	for i := 0; i < cx.participantCount; i++ {
		if cx.enqueuers[tid].Load() == nil {
			return
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

func (cx *TimedCX[S, R]) findDonor(myTicket uint64, tid int) *combined[S, R] {
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

// acquireCombined is the three-phase heuristic: a short tight spin across
// the first maxSpinCombs slots past the currently-published one, then a
// yielding wait bounded by twice the last observed copy duration (unbounded
// while no copy has been timed yet), then a full linear scan of the pool. myNode.done lets it bail out early once
// some other participant has already completed myNode's work for it.
func (cx *TimedCX[S, R]) acquireCombined(tid int, myNode *node[S, R]) *combined[S, R] {
	start := 0
	firstComb := cx.curComb.Load()
	for ; start < len(cx.combs); start++ {
		if firstComb == &cx.combs[start] {
			break
		}
	}

	startTime := time.Now()
	maxCombs := maxSpinCombs
	if len(cx.combs) < maxCombs {
		maxCombs = len(cx.combs)
	}
	for ispin := 0; ispin < 10; ispin++ {
		for j := start + 1; j < start+1+maxCombs; j++ {
			if myNode.done.Load() {
				return nil
			}
			idx := j % maxCombs
			if cx.combs[idx].obj == nil {
				// not yet lazily seeded; not worth grabbing during the
				// tight warm spin, the later phases will pick it up.
				continue
			}
			if cx.combs[idx].lock.ExclusiveTryLock(tid) {
				return &cx.combs[idx]
			}
		}
	}

	lastCopy := time.Duration(cx.copyTimeNs.Load())
	for elapsed := time.Since(startTime); elapsed < 2*lastCopy || lastCopy == 0; elapsed = time.Since(startTime) {
		for i := 0; i < maxCombs; i++ {
			if myNode.done.Load() {
				return nil
			}
			if cx.combs[i].lock.ExclusiveTryLock(tid) {
				return &cx.combs[i]
			}
		}
		runtime.Gosched()
	}

	for i := range cx.combs {
		if myNode.done.Load() {
			return nil
		}
		if cx.combs[i].lock.ExclusiveTryLock(tid) {
			return &cx.combs[i]
		}
	}
	return nil
}

// copyDS copies from into a fresh replica, timing the copy so future
// acquireCombined calls can size their wait against it.
func (cx *TimedCX[S, R]) copyDS(from *S) *S {
	start := time.Now()
	to := cx.copy(from)
	cx.copyTimeNs.Store(int64(time.Since(start)))
	return to
}

// ApplyUpdate behaves like CX.ApplyUpdate, but acquires its Combined via
// the adaptive heuristic and marks every node it retires as done, so
// participants still spinning in acquireCombined on those nodes' behalf
// can stop immediately instead of waiting out their full budget.
func (cx *TimedCX[S, R]) ApplyUpdate(tid int, op func(*S) R) R {
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
			if lcomb != nil || myNode.done.Load() {
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
			cx.numCopies.Add(1)
			mn = lcomb.head.Load()
			newComb.updateHead(mn)
			if newComb.obj != nil {
				cx.drop(newComb.obj)
			}
			newComb.obj = cx.copyDS(lcomb.obj)
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
			for n != mn {
				n.done.Store(true)
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

// ApplyRead is identical to CX.ApplyRead.
func (cx *TimedCX[S, R]) ApplyRead(tid int, read func(*S) R) R {
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

// NumCopies reports how many donor copies ApplyUpdate has made so far (the
// replicas seeded by NewTimed are not counted), for
// benchmarking the adaptive heuristic's effectiveness.
func (cx *TimedCX[S, R]) NumCopies() uint64 {
	return cx.numCopies.Load()
}

func (cx *TimedCX[S, R]) ParticipantCount() int {
	return cx.participantCount
}

// Close frees every replica via drop.
func (cx *TimedCX[S, R]) Close() {
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
