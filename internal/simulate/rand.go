package simulate

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"time"
)

// Rand is the random source the simulator draws from.
// Implementations yield uniform floats in [0, 1).
type Rand interface {
	Float64() float64
}

// NewSource returns a PCG-backed Rand with a fixed seed.
// The same seed reproduces the same draw sequence.
func NewSource(seed uint64) Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// NewRandomSource returns a Rand seeded from the OS entropy pool.
// Each call produces an independent source, so concurrent Generate
// calls never share generator state.
func NewRandomSource() Rand {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return NewSource(uint64(time.Now().UnixNano()))
	}
	return NewSource(binary.LittleEndian.Uint64(b[:]))
}
