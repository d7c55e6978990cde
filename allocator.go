package sfs

import bitmap "github.com/boljen/go-bitmap"

// bitAllocator is a find-first-free bitmap over a fixed number of bits. It
// backs both the inode bitmap and the data-block bitmap (spec.md §4.2); the
// caller is responsible for persisting the relevant on-disk region after any
// mutation.
type bitAllocator struct {
	bits bitmap.Bitmap
	size uint
}

// newBitAllocator creates an allocator with every bit clear.
func newBitAllocator(size uint) *bitAllocator {
	return &bitAllocator{bits: bitmap.New(int(size)), size: size}
}

// loadBitAllocator creates an allocator from a previously persisted bitmap
// image, as read back from disk on a non-fresh mount.
func loadBitAllocator(size uint, data []byte) *bitAllocator {
	a := newBitAllocator(size)
	copy(a.bits, data)
	return a
}

// findFree performs a lowest-index-first linear scan and returns the first
// clear bit, or -1 if every bit is set (spec.md §4.2: "deterministic and
// reproducible but produces fragmentation; that is accepted").
func (a *bitAllocator) findFree() int {
	for i := uint(0); i < a.size; i++ {
		if !a.bits.Get(int(i)) {
			return int(i)
		}
	}
	return -1
}

// set sets or clears the bit at index.
func (a *bitAllocator) set(index int, value bool) {
	a.bits.Set(index, value)
}

// get returns whether the bit at index is set.
func (a *bitAllocator) get(index int) bool {
	return a.bits.Get(index)
}

// bytes returns the raw on-disk representation of the bitmap, suitable for
// a direct block write. The backing buffer is returned without copying, so
// callers must not mutate it.
func (a *bitAllocator) bytes() []byte {
	return a.bits.Data(false)
}
