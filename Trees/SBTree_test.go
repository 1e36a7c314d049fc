package Trees

import (
	"math/rand"
	"testing"
)

func TestSBTreeInsertHasRemove(t *testing.T) {
	tr := MakeSBTree[int, uint]()
	want := map[int]bool{}
	for _, v := range rand.Perm(1000) {
		if !tr.Insert(v) {
			t.Fatalf("Insert(%d) reported failure on first insert", v)
		}
		want[v] = true
	}
	if got, exp := tr.Size(), uint(len(want)); got != exp {
		t.Fatalf("Size() = %d, want %d", got, exp)
	}
	for v := range want {
		if !tr.Has(v) {
			t.Fatalf("Has(%d) = false, want true", v)
		}
	}
	for i, v := range rand.Perm(1000) {
		if i&1 == 1 {
			continue
		}
		if !tr.Remove(v) {
			t.Fatalf("Remove(%d) reported failure", v)
		}
		delete(want, v)
	}
	if got, exp := tr.Size(), uint(len(want)); got != exp {
		t.Fatalf("Size() after removals = %d, want %d", got, exp)
	}
	for v := 0; v < 1000; v++ {
		if tr.Has(v) != want[v] {
			t.Fatalf("Has(%d) = %v, want %v", v, tr.Has(v), want[v])
		}
	}
}

func TestSBTreeDuplicateInsertFails(t *testing.T) {
	tr := MakeSBTree[int, uint]()
	if !tr.Insert(5) {
		t.Fatal("first Insert(5) should succeed")
	}
	if tr.Insert(5) {
		t.Fatal("second Insert(5) should fail")
	}
	if tr.Size() != 1 {
		t.Fatalf("Size() = %d, want 1", tr.Size())
	}
}

func TestSBTreeInOrderIsSorted(t *testing.T) {
	tr := MakeSBTree[int, uint]()
	for _, v := range rand.Perm(200) {
		tr.Insert(v)
	}
	next := tr.InOrder()
	prev, ok := next()
	if !ok {
		t.Fatal("InOrder() yielded nothing for a non-empty tree")
	}
	count := 1
	for v, ok := next(); ok; v, ok = next() {
		if v <= prev {
			t.Fatalf("InOrder() not strictly increasing: %d then %d", prev, v)
		}
		prev = v
		count++
	}
	if count != 200 {
		t.Fatalf("InOrder() yielded %d elements, want 200", count)
	}
}

func TestSBTreeMinMaxPredecessorSuccessor(t *testing.T) {
	tr := MakeSBTree[int, uint]()
	for _, v := range []int{5, 1, 9, 3, 7} {
		tr.Insert(v)
	}
	if v, ok := tr.Minimum(); !ok || v != 1 {
		t.Fatalf("Minimum() = (%d, %v), want (1, true)", v, ok)
	}
	if v, ok := tr.Maximum(); !ok || v != 9 {
		t.Fatalf("Maximum() = (%d, %v), want (9, true)", v, ok)
	}
	if v, ok := tr.Predecessor(5); !ok || v != 3 {
		t.Fatalf("Predecessor(5) = (%d, %v), want (3, true)", v, ok)
	}
	if v, ok := tr.Successor(5); !ok || v != 7 {
		t.Fatalf("Successor(5) = (%d, %v), want (7, true)", v, ok)
	}
	if _, ok := tr.Predecessor(1); ok {
		t.Fatal("Predecessor(1) should have no answer, it's the minimum")
	}
}

func TestSBTreeBuildSBTreeMatchesInsert(t *testing.T) {
	sorted := []int{1, 2, 3, 4, 5, 6, 7}
	built := BuildSBTree[int, uint](sorted, true)
	inserted := MakeSBTree[int, uint]()
	for _, v := range sorted {
		inserted.Insert(v)
	}
	if built.Size() != inserted.Size() {
		t.Fatalf("BuildSBTree size = %d, want %d", built.Size(), inserted.Size())
	}
	bNext, iNext := built.InOrder(), inserted.InOrder()
	for {
		bv, bOk := bNext()
		iv, iOk := iNext()
		if bOk != iOk {
			t.Fatalf("InOrder length mismatch between BuildSBTree and Insert")
		}
		if !bOk {
			break
		}
		if bv != iv {
			t.Fatalf("InOrder mismatch: BuildSBTree gave %d, Insert gave %d", bv, iv)
		}
	}
}

func TestSBTreeBuildSBTreeRejectsUnsortedWhenSafe(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("BuildSBTree(safe=true) with an unsorted slice should panic")
		}
	}()
	BuildSBTree[int, uint]([]int{3, 1, 2}, true)
}

func TestSBTreeCopyIsIndependent(t *testing.T) {
	tr := MakeSBTree[int, uint]()
	for _, v := range []int{1, 2, 3, 4, 5} {
		tr.Insert(v)
	}
	cp := tr.Copy()
	cp.Insert(6)
	tr.Remove(1)
	if !cp.Has(1) {
		t.Fatal("Copy() should be unaffected by a Remove on the original")
	}
	if tr.Has(6) {
		t.Fatal("original should be unaffected by an Insert on the Copy()")
	}
	if cp.Size() != 6 {
		t.Fatalf("Copy().Size() = %d, want 6", cp.Size())
	}
	if tr.Size() != 4 {
		t.Fatalf("original Size() = %d, want 4", tr.Size())
	}
}

func TestSBTreeRankOfAndKLargest(t *testing.T) {
	tr := MakeSBTree[int, uint]()
	for _, v := range []int{10, 20, 30, 40, 50} {
		tr.Insert(v)
	}
	if r := tr.RankOf(30); r != 3 {
		t.Fatalf("RankOf(30) = %d, want 3", r)
	}
	if v, ok := tr.KLargest(1); !ok || v != 10 {
		t.Fatalf("KLargest(1) = (%d, %v), want (10, true)", v, ok)
	}
	if v, ok := tr.KLargest(5); !ok || v != 50 {
		t.Fatalf("KLargest(5) = (%d, %v), want (50, true)", v, ok)
	}
	if _, ok := tr.KLargest(6); ok {
		t.Fatal("KLargest(6) should fail, tree only has 5 elements")
	}
}
