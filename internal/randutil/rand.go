// Package randutil seeds math/rand/v2 generators from a single int64,
// keeping shuffles and bot delays reproducible for a given room seed.
package randutil

import rand "math/rand/v2"

const goldenRatio64 = 0x9e3779b97f4a7c15

// New returns a generator seeded deterministically from seed. The PCG
// source wants two 64-bit words; both are derived from the one seed so
// every call site gets the same sequence for the same input.
func New(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(mix(u), mix(u+goldenRatio64)))
}

// mix is splitmix64's finalizer; it spreads low-entropy seeds across
// the whole word
func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
