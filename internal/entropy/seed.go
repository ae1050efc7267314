// Package entropy derives reproducible RNG streams from a run seed.
// Falls back to crypto/rand when no seed is configured.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	"log/slog"
	mrand "math/rand"
	"time"
)

// Stream offsets. Each subsystem draws from its own stream so adding draws
// in one does not shift the others.
const (
	StreamSimulation int64 = 0
	StreamPlacement  int64 = 100
	StreamNoise      int64 = 300
)

// Seed returns configured unchanged when it is non-zero, otherwise a fresh
// random seed.
func Seed(configured int64) int64 {
	if configured != 0 {
		return configured
	}
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		slog.Warn("crypto seed unavailable, using clock", "error", err)
		return time.Now().UnixNano()
	}
	s := int64(binary.LittleEndian.Uint64(buf[:]) >> 1)
	if s == 0 {
		s = 1
	}
	return s
}

// Derive mixes a base seed with an index into a well-spread child seed.
func Derive(base, index int64) int64 {
	z := uint64(base) + uint64(index)*0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	z ^= z >> 31
	return int64(z >> 1)
}

// RunSeed is the seed of run runID in a batch started from base.
func RunSeed(base int64, runID int) int64 {
	return Derive(base, int64(runID))
}

// New returns a math/rand source for the given stream of seed.
func New(seed, stream int64) *mrand.Rand {
	return mrand.New(mrand.NewSource(seed + stream))
}
