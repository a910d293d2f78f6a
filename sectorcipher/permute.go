package sectorcipher

// splitMix64 is a small, fast, deterministic PRG used to drive the
// Fisher-Yates shuffle that permutes each block's ciphertext bytes. Spec
// §9 explicitly invites a fresh implementation (one not required to read
// pre-existing Crypthon images) to substitute a documented PRG for the
// language-specific Mersenne Twister the original used; SplitMix64 is the
// example spec §9 names.
type splitMix64 struct {
	state uint64
}

func newSplitMix64(seed uint64) *splitMix64 {
	return &splitMix64{state: seed}
}

func (s *splitMix64) next() uint64 {
	s.state += 0x9E3779B97F4A7C15
	z := s.state
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

// intn returns a uniform value in [0, n).
func (s *splitMix64) intn(n int) int {
	return int(s.next() % uint64(n))
}

// permutation builds the Fisher-Yates permutation of [0, n) seeded from
// seed, reproducing spec §4.2's "for i from n-1 down to 1, draw j from
// [0, i], swap" loop bit-for-bit against this PRG.
func permutation(n int, seed uint64) []int {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	rng := newSplitMix64(seed)
	for i := n - 1; i >= 1; i-- {
		j := rng.intn(i + 1)
		perm[i], perm[j] = perm[j], perm[i]
	}
	return perm
}

// invertPermutation returns inv such that inv[perm[i]] == i for all i.
func invertPermutation(perm []int) []int {
	inv := make([]int, len(perm))
	for i, p := range perm {
		inv[p] = i
	}
	return inv
}

// applyPermutation returns out where out[i] = data[perm[i]], matching
// spec §4.2's P[i] = C[π[i]].
func applyPermutation(data []byte, perm []int) []byte {
	out := make([]byte, len(data))
	for i, p := range perm {
		out[i] = data[p]
	}
	return out
}
