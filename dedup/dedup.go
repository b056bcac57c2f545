// Package dedup detects near-duplicate page content so the research
// pipeline does not archive the same article twice when several search
// results point at syndicated copies of it.
package dedup

import (
	"hash/fnv"
	"math/bits"
	"strings"
	"sync"
)

// Fingerprint computes a 64-bit SimHash of the given text.
// Uses FNV-64a hash on word-level tokens with bit vector accumulation.
func Fingerprint(text string) uint64 {
	words := strings.Fields(text)
	if len(words) == 0 {
		return 0
	}

	var vector [64]int

	for _, word := range words {
		h := fnv.New64a()
		h.Write([]byte(word))
		hash := h.Sum64()

		for i := 0; i < 64; i++ {
			if hash&(1<<uint(i)) != 0 {
				vector[i]++
			} else {
				vector[i]--
			}
		}
	}

	var fingerprint uint64
	for i := 0; i < 64; i++ {
		if vector[i] > 0 {
			fingerprint |= 1 << uint(i)
		}
	}

	return fingerprint
}

// Distance returns the Hamming distance between two SimHash fingerprints.
func Distance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// Similar returns true if the Hamming distance between two fingerprints
// is less than or equal to the threshold.
func Similar(a, b uint64, threshold int) bool {
	return Distance(a, b) <= threshold
}

// Set accumulates fingerprints of accepted documents and answers whether
// new content is a near-duplicate of anything seen so far.
// Safe for concurrent use.
type Set struct {
	mu           sync.Mutex
	fingerprints []uint64
	threshold    int
}

// NewSet creates a Set that treats fingerprints within the given Hamming
// distance as duplicates.
func NewSet(threshold int) *Set {
	return &Set{threshold: threshold}
}

// Seen fingerprints the text and reports whether a near-duplicate was
// already recorded. Novel content is recorded before returning.
// Empty text is never considered a duplicate and is not recorded.
func (s *Set) Seen(text string) bool {
	fp := Fingerprint(text)
	if fp == 0 {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.fingerprints {
		if Similar(fp, existing, s.threshold) {
			return true
		}
	}

	s.fingerprints = append(s.fingerprints, fp)
	return false
}

// Len returns the number of distinct documents recorded.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fingerprints)
}
