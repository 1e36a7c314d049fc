package UC

import "github.com/cx-project/cx/HP"

// retireRing is a per-thread bounded circular buffer of nodes that have
// already been passed by current_combined but aren't tombstoned yet. It
// exists purely to bound the list-walk length any mutator can encounter:
// without it, a slow thread could let the log grow arbitrarily long before
// anyone tombstones the stale prefix. When full, add() tombstones every
// entry older than minSize tickets behind the arriving node and hands its
// (still-live) successor to the hazard-pointer registry, which is what
// actually frees memory once the tri-condition predicate is satisfied.
type retireRing[S, R any] struct {
	buf            []*node[S, R]
	begin, size    int
	maxSize        int
	minSize        uint64
	hp             *HP.Registry[node[S, R]]
	tid            int
}

const (
	retireRingMaxSize = 2000
	retireRingMinSize = 1000
)

func newRetireRing[S, R any](hp *HP.Registry[node[S, R]], tid int) *retireRing[S, R] {
	return &retireRing[S, R]{
		buf:     make([]*node[S, R], retireRingMaxSize),
		maxSize: retireRingMaxSize,
		minSize: retireRingMinSize,
		hp:      hp,
		tid:     tid,
	}
}

func (rr *retireRing[S, R]) add(n *node[S, R]) {
	if rr.size == rr.maxSize {
		rr.clean(n)
	}
	pos := (rr.begin + rr.size) % rr.maxSize
	rr.buf[pos] = n
	rr.size++
}

// clean walks from the oldest entry, tombstoning and handing off to hp
// every node whose ticket already trails arriving's ticket by at least
// minSize, stopping at the first entry that's not old enough yet — entries
// are ticket-ordered, so nothing after it qualifies either.
func (rr *retireRing[S, R]) clean(arriving *node[S, R]) {
	threshold := arriving.ticket.Load() - rr.minSize
	pos := rr.begin
	initialSize := rr.size
	for i := 0; i < initialSize; i++ {
		if pos == rr.maxSize {
			pos = 0
		}
		m := rr.buf[pos]
		if m.ticket.Load() > threshold {
			rr.begin = pos
			return
		}
		successor := m.next.Load()
		m.tombstone()
		rr.hp.Retire(successor, rr.tid)
		pos++
		rr.size--
	}
	rr.begin = pos
}

// drain tombstones and retires every remaining entry; called only at
// teardown, when no other thread can still be walking the log.
func (rr *retireRing[S, R]) drain() {
	pos := rr.begin
	for i := 0; i < rr.size; i++ {
		if pos == rr.maxSize {
			pos = 0
		}
		m := rr.buf[pos]
		successor := m.next.Load()
		m.tombstone()
		rr.hp.Retire(successor, rr.tid)
		pos++
	}
	rr.size = 0
}
