package UC

import (
	"sync/atomic"

	"github.com/cx-project/cx/RWLock"
)

// combined is a pool slot: one exclusively-or-shared-owned replica of the
// sequential object plus a pointer into the mutation log marking how far
// that replica has been brought up to date. The pool must hold at least
// 2*participantCount of these to guarantee a free slot under worst-case
// concurrency (§7: undersizing is a programmer error, not a runtime one we
// retry our way out of).
type combined[S, R any] struct {
	head atomic.Pointer[node[S, R]]
	obj  *S
	lock *RWLock.StrongTryLock
}

// updateHead moves this Combined's head to mn, adjusting ORC: +1 on the new
// head, -1 on the prior one. mn is assumed already protected by a hazard
// slot in the caller.
func (c *combined[S, R]) updateHead(mn *node[S, R]) {
	mn.refcnt.Add(1)
	if old := c.head.Load(); old != nil {
		old.refcnt.Add(-1)
	}
	c.head.Store(mn)
}
