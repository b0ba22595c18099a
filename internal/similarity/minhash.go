package similarity

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// Signature is a Unit's MinHash fingerprint: one minimum hash value
// per permutation.
type Signature []uint64

// permutationSeeds holds the fixed reproducible seeds §4.6 requires: a
// single 64-bit hash family (xxhash) applied to each permutation
// index's own encoding, rather than a seed table that would need to be
// persisted or a math/rand source that wouldn't reproduce across
// processes.
var permutationSeeds = buildPermutationSeeds(128)

func buildPermutationSeeds(count int) []uint64 {
	seeds := make([]uint64, count)
	var buf [8]byte
	for i := range seeds {
		binary.LittleEndian.PutUint64(buf[:], uint64(i))
		seeds[i] = xxhash.Sum64(buf[:])
	}
	return seeds
}

// Signatures returns the MinHash signature with k permutations for a
// shingle set. A nil/empty set yields a signature of all-max values,
// which sorts as maximally dissimilar from any non-empty set.
func Signatures(shingles map[string]bool, k int) Signature {
	sig := make(Signature, k)
	for i := range sig {
		sig[i] = ^uint64(0)
	}
	for shingle := range shingles {
		base := xxhash.Sum64String(shingle)
		for i := 0; i < k; i++ {
			h := hashWithSeed(base, permutationSeeds[i])
			if h < sig[i] {
				sig[i] = h
			}
		}
	}
	return sig
}

// hashWithSeed derives permutation i's hash of base by mixing in that
// permutation's seed, simulating k independent hash functions from the
// single xxhash family §4.6 calls for.
func hashWithSeed(base, seed uint64) uint64 {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:8], base)
	binary.LittleEndian.PutUint64(buf[8:], seed)
	return xxhash.Sum64(buf[:])
}

// EstimateJaccard returns the fraction of matching positions between
// two equal-length signatures, MinHash's unbiased Jaccard estimator.
func EstimateJaccard(a, b Signature) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	matches := 0
	for i := range a {
		if a[i] == b[i] {
			matches++
		}
	}
	return float64(matches) / float64(len(a))
}
