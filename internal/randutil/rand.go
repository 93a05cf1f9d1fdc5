package randutil

import (
	crand "crypto/rand"
	"fmt"
	rand "math/rand/v2"
)

const (
	goldenRatio64 = 0x9e3779b97f4a7c15
)

// New returns a *rand.Rand seeded deterministically from the provided int64.
// The helper centralises how we derive the two 64-bit seeds required by rand/v2
// so that all call sites get reproducible sequences.
func New(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(mix(u), mix(u+goldenRatio64)))
}

// SeedBytes reads 32 bytes from the operating system CSPRNG
func SeedBytes() ([32]byte, error) {
	var b [32]byte
	if _, err := crand.Read(b[:]); err != nil {
		return b, fmt.Errorf("read random seed: %w", err)
	}
	return b, nil
}

// SeedFrom expands an int64 into a 32-byte seed. Only for deterministic tests and
// replay tooling; production seeds come from SeedBytes.
func SeedFrom(seed int64) [32]byte {
	var b [32]byte
	x := uint64(seed)
	for i := 0; i < 4; i++ {
		x = mix(x + goldenRatio64)
		for j := 0; j < 8; j++ {
			b[i*8+j] = byte(x >> (8 * j))
		}
	}
	return b
}

func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
