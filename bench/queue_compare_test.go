package bench

import (
	"testing"

	"github.com/cx-project/cx/Queues"
	"github.com/cx-project/cx/UC"
)

// BenchmarkUCQueuePushPop drives the teacher's sequential circular-array
// queue through CX from a single participant: no contention, so this
// isolates CX's own per-operation overhead (ticketing, Combined handoff)
// from the queue's own logic.
func BenchmarkUCQueuePushPop(b *testing.B) {
	q := Queues.MakeArrayQueue[int](64)
	cx := UC.New[Queues.ArrayQueue[int], int](&q, func(s *Queues.ArrayQueue[int]) *Queues.ArrayQueue[int] {
		c := (*s).Copy()
		return &c
	}, func(*Queues.ArrayQueue[int]) {}, 1)
	defer cx.Close()
	tid, err := cx.Participants.Register()
	if err != nil {
		b.Fatalf("Register: %v", err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cx.ApplyUpdate(tid, func(s *Queues.ArrayQueue[int]) int { (*s).Push(i); return i })
		cx.ApplyUpdate(tid, func(s *Queues.ArrayQueue[int]) int {
			v, err := (*s).Pop()
			if err != nil {
				return -1
			}
			return v
		})
	}
}

// BenchmarkSyncLinkedQueuePushPop is the comparison baseline: the teacher's
// own lock-free Michael-Scott-style queue, which needs no universal
// construction since it was already designed for concurrent access —
// exactly the "external, already-concurrent collaborator" role spec.md
// frames lock-free designs as playing relative to CX.
func BenchmarkSyncLinkedQueuePushPop(b *testing.B) {
	q := Queues.MakeConcurrentLinkedQueue[int]()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		q.Push(i)
		_, _ = q.Pop()
	}
}
