package Go_Utils

import (
	"math/bits"
)

func New(size int) BitArray {
	return BitArray{bits: make([]uint, (size+bits.UintSize-1)/bits.UintSize)}
}

// NewBitArray is an alias for New, sized to hold at least size bits.
func NewBitArray(size uint) BitArray {
	return New(int(size))
}

type BitArray struct {
	bits []uint
}

func (u BitArray) Len() int {
	return len(u.bits) * bits.UintSize
}

func (u BitArray) Get(i int) bool {
	return (u.bits[i/bits.UintSize]>>(i%bits.UintSize))&1 == 1
}

func (u BitArray) Up(i int) {
	u.bits[i/bits.UintSize] |= 1 << (i % bits.UintSize)
}

func (u BitArray) Down(i int) {
	u.bits[i/bits.UintSize] &^= 1 << (i % bits.UintSize)
}

// Set and Clr are Up/Down under the names used by code that treats the
// array as a set of used/free slots rather than individual flag bits.
func (u BitArray) Set(i int) {
	u.Up(i)
}

func (u BitArray) Clr(i int) {
	u.Down(i)
}

// Clone returns an independent copy of u, sharing no backing storage.
func (u BitArray) Clone() BitArray {
	bits := make([]uint, len(u.bits))
	copy(bits, u.bits)
	return BitArray{bits: bits}
}

// First returns the index of the first set bit, or -1 if the array is all zero.
func (u BitArray) First() int {
	for w, word := range u.bits {
		if word == 0 {
			continue
		}
		return w*bits.UintSize + bits.TrailingZeros(word)
	}
	return -1
}
