package Trees

import (
	"fmt"

	"golang.org/x/exp/constraints"
)

func Min[T constraints.Ordered](a, b T) T {
	if a < b {
		return a
	}
	return b
}

func Max[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}

// InvalidSliceError is panicked by BuildSBTree when safe==true and the given
// slice isn't sorted/deduplicated the way SBTree requires: left must be less
// than mid and mid less than right at every split.
type InvalidSliceError[T constraints.Ordered] struct {
	Left, Mid1, Mid2, Right T
}

func (e InvalidSliceError[T]) Error() string {
	return fmt.Sprintf("Trees: invalid slice for BuildSBTree: left subtree root %v, mid %v/%v, right subtree root %v violate ordering", e.Left, e.Mid1, e.Mid2, e.Right)
}
