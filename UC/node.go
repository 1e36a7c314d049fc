package UC

import "sync/atomic"

// node is one entry in the mutation log: a submitted operation closure plus
// the bookkeeping the log, the Combined pool, and the reclamation registry
// all need to cooperate. Exactly one node is ever linked at a given log
// position; once linked its ticket is immutable.
type node[S, R any] struct {
	op     func(*S) R
	result atomic.Pointer[R]
	next   atomic.Pointer[node[S, R]]
	ticket atomic.Uint64
	refcnt atomic.Int32
	// done lets TimedCX's helpers bail out of a spin loop early once some
	// other participant has already finished this node. Only TimedCX sets
	// it; CX (non-timed) checks it once in ApplyUpdate, where it stays false.
	done        atomic.Bool
	submitterID int
}

func newNode[S, R any](op func(*S) R, submitterID int) *node[S, R] {
	return &node[S, R]{op: op, submitterID: submitterID}
}

// isTombstone reports whether the node has been excised from the log: its
// next pointer was set to itself after being passed by current_combined.
func (n *node[S, R]) isTombstone() bool {
	return n.next.Load() == n
}

// tombstone self-links next, marking the node as passed-by and eligible for
// reclamation once hazard pointers and refcnt both clear. Written exactly
// once per node.
func (n *node[S, R]) tombstone() {
	n.next.Store(n)
}

func (n *node[S, R]) setResult(r R) {
	n.result.Store(&r)
}

// loadResult returns the node's result, or R's zero value if no helper has
// applied the node yet — the original's std::atomic<R> starts default
// constructed to zero; a bare *n.result.Load() here would panic on the same
// not-yet-applied case that the original returns a benign zero for.
func (n *node[S, R]) loadResult() R {
	if p := n.result.Load(); p != nil {
		return *p
	}
	var zero R
	return zero
}

// canReclaim is the tri-condition predicate's non-hazard two-thirds: no
// Combined head points at the node (ORC==0), and the node has already been
// excised from the log (tombstoned). The hazard-protection third is checked
// by HP.Registry itself.
func canReclaim[S, R any](n *node[S, R]) bool {
	return n.isTombstone() && n.refcnt.Load() == 0
}
