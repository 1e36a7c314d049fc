package bench

import (
	"runtime"
	"sync"
	"testing"

	"github.com/emirpasic/gods/sets/hashset"

	"github.com/cx-project/cx/Sets/HashSet"
	"github.com/cx-project/cx/UC"
)

const setBenchN = 1024

// mutexHashSet is the "single-threaded S guarded by a big lock" oracle
// spec.md §8 property 1 calls for, built on gods' hashset since it's a
// ready-made ordinary (non-concurrent) set implementation rather than one
// this module would otherwise have a reason to write itself.
type mutexHashSet struct {
	mu sync.Mutex
	s  *hashset.Set
}

func newMutexHashSet() *mutexHashSet {
	return &mutexHashSet{s: hashset.New()}
}

func (m *mutexHashSet) Add(v int) {
	m.mu.Lock()
	m.s.Add(v)
	m.mu.Unlock()
}

func (m *mutexHashSet) Has(v int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s.Contains(v)
}

func setupUCHashSet(b *testing.B, n int) (*UC.CX[HashSet.HashSet[int], bool], int) {
	b.Helper()
	s := HashSet.New[int](16, uint(n), 1)
	cx := UC.New[HashSet.HashSet[int], bool](s, func(s *HashSet.HashSet[int]) *HashSet.HashSet[int] { return s.Copy() }, func(*HashSet.HashSet[int]) {}, 1)
	tid, err := cx.Participants.Register()
	if err != nil {
		b.Fatalf("Register: %v", err)
	}
	return cx, tid
}

// BenchmarkUCHashSetPut measures insert throughput for the Hopscotch hash
// set driven through CX, the scenario the universal construction is meant
// to serve (a sequential container with no lock-free design of its own).
func BenchmarkUCHashSetPut(b *testing.B) {
	cx, tid := setupUCHashSet(b, setBenchN)
	defer cx.Close()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cx.ApplyUpdate(tid, func(s *HashSet.HashSet[int]) bool { return s.Put(i) })
	}
}

// BenchmarkMutexHashSetPut is the oracle baseline: the same workload against
// a big-lock-guarded ordinary set, to see what overhead CX adds relative to
// the simplest possible correct concurrent wrapper.
func BenchmarkMutexHashSetPut(b *testing.B) {
	m := newMutexHashSet()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.Add(i)
	}
}

// setupUCHashSetForRead sizes the CX for every goroutine RunParallel is
// going to spawn, since each one registers its own participant slot below;
// a pool sized for the single setup-time registration would make every
// worker past the first fail to register.
func setupUCHashSetForRead(b *testing.B, n int) *UC.CX[HashSet.HashSet[int], bool] {
	b.Helper()
	s := HashSet.New[int](16, uint(n), 1)
	cx := UC.New[HashSet.HashSet[int], bool](s, func(s *HashSet.HashSet[int]) *HashSet.HashSet[int] { return s.Copy() }, func(*HashSet.HashSet[int]) {}, runtime.GOMAXPROCS(0))
	tid, err := cx.Participants.Register()
	if err != nil {
		b.Fatalf("Register: %v", err)
	}
	for i := 0; i < n; i++ {
		cx.ApplyUpdate(tid, func(s *HashSet.HashSet[int]) bool { return s.Put(i) })
	}
	cx.Participants.Unregister(tid)
	return cx
}

// BenchmarkUCHashSetRead measures CX's read fast path against a set that is
// not concurrently mutated, which per spec.md §8 property 4 should never
// need to escalate past the shared-lock path.
func BenchmarkUCHashSetRead(b *testing.B) {
	cx := setupUCHashSetForRead(b, setBenchN)
	defer cx.Close()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		rtid, err := cx.Participants.Register()
		if err != nil {
			b.Fatal(err)
		}
		defer cx.Participants.Unregister(rtid)
		i := 0
		for pb.Next() {
			cx.ApplyRead(rtid, func(s *HashSet.HashSet[int]) bool { return s.Has(i % setBenchN) })
			i++
		}
	})
}

func BenchmarkMutexHashSetRead(b *testing.B) {
	m := newMutexHashSet()
	for i := 0; i < setBenchN; i++ {
		m.Add(i)
	}
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			m.Has(i % setBenchN)
			i++
		}
	})
}
