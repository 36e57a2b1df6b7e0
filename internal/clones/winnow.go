package clones

import (
	"github.com/cespare/xxhash/v2"
)

// hashBase is the multiplier of the polynomial rolling hash over per-token
// xxhash values. Any odd constant works; this one spreads well under uint64
// wraparound.
const hashBase uint64 = 0x100000001b3

// Fingerprint is one retained k-gram hash anchored at a token position.
type Fingerprint struct {
	Hash  uint64
	Index int // start token index of the k-gram
}

// kgramHashes computes the rolling hash of every window of k consecutive
// tokens. Token texts are hashed individually with xxhash, then combined with
// a polynomial rolling hash so each step is O(1).
func kgramHashes(tokens []Token, k int) []uint64 {
	if len(tokens) < k {
		return nil
	}

	values := make([]uint64, len(tokens))
	for i, t := range tokens {
		values[i] = xxhash.Sum64String(t.Text)
	}

	// basePow = hashBase^(k-1), the weight of the outgoing token
	basePow := uint64(1)
	for i := 0; i < k-1; i++ {
		basePow *= hashBase
	}

	hashes := make([]uint64, len(tokens)-k+1)
	var h uint64
	for i := 0; i < k; i++ {
		h = h*hashBase + values[i]
	}
	hashes[0] = h
	for i := 1; i < len(hashes); i++ {
		h = (h - values[i-1]*basePow) * hashBase
		h += values[i+k-1]
		hashes[i] = h
	}
	return hashes
}

// winnow selects the representative fingerprints: in every window of w
// consecutive k-gram hashes keep the minimum, breaking ties by the rightmost
// occurrence. Consecutive windows selecting the same position record it once.
func winnow(hashes []uint64, w int) []Fingerprint {
	if len(hashes) == 0 {
		return nil
	}
	if w < 1 {
		w = 1
	}
	if len(hashes) < w {
		w = len(hashes)
	}

	var selected []Fingerprint
	prev := -1
	for start := 0; start+w <= len(hashes); start++ {
		minIdx := start
		for i := start + 1; i < start+w; i++ {
			if hashes[i] <= hashes[minIdx] {
				minIdx = i
			}
		}
		if minIdx != prev {
			selected = append(selected, Fingerprint{Hash: hashes[minIdx], Index: minIdx})
			prev = minIdx
		}
	}
	return selected
}

// fingerprintTokens runs the full selection for one token stream.
func fingerprintTokens(tokens []Token, k, w int) []Fingerprint {
	return winnow(kgramHashes(tokens, k), w)
}
