// Package dirty provides a growable bitmap of dirty slot indices.
package dirty

import "math/bits"

// Set tracks which slots need work using a bitmap packed into uint64 words
// (64 slots per word).
//
// Set is not safe for concurrent use.
type Set struct {
	words []uint64
}

// New creates a set sized for n slots. All slots start clean.
func New(n int) *Set {
	s := &Set{}
	s.Grow(n)
	return s
}

// Grow makes room for at least n slots. Existing marks are kept.
func (s *Set) Grow(n int) {
	need := (n + 63) / 64 // Ceiling division
	if need > len(s.words) {
		words := make([]uint64, need)
		copy(words, s.words)
		s.words = words
	}
}

// Len returns the number of slots the set can hold without growing.
func (s *Set) Len() int { return len(s.words) * 64 }

// Mark marks slot i dirty, growing the set when needed.
// Negative indices are ignored.
func (s *Set) Mark(i int) {
	if i < 0 {
		return
	}
	if i >= s.Len() {
		s.Grow(i + 1)
	}
	s.words[i/64] |= 1 << (i & 63)
}

// Unmark marks slot i clean.
func (s *Set) Unmark(i int) {
	if i < 0 || i >= s.Len() {
		return
	}
	s.words[i/64] &^= 1 << (i & 63)
}

// IsDirty returns true if slot i is marked dirty.
// Returns false for out-of-range indices.
func (s *Set) IsDirty(i int) bool {
	if i < 0 || i >= s.Len() {
		return false
	}
	return s.words[i/64]&(1<<(i&63)) != 0
}

// IsEmpty returns true if no slot is marked dirty.
func (s *Set) IsEmpty() bool {
	for _, w := range s.words {
		if w != 0 {
			return false
		}
	}
	return true
}

// Count returns the number of dirty slots.
func (s *Set) Count() int {
	n := 0
	for _, w := range s.words {
		n += bits.OnesCount64(w)
	}
	return n
}

// Clear marks all slots clean.
func (s *Set) Clear() {
	clear(s.words)
}

// ForEach calls fn for every dirty slot in ascending order.
// fn may mark or unmark slots; slots marked behind the cursor are not visited.
func (s *Set) ForEach(fn func(i int)) {
	for wi := 0; wi < len(s.words); wi++ {
		w := s.words[wi]
		for w != 0 {
			b := bits.TrailingZeros64(w)
			w &^= 1 << b
			fn(wi*64 + b)
		}
	}
}
