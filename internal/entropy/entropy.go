// Package entropy provides deterministic pseudo-randomness keyed by
// (week, purpose). Every draw is a pure function of its key, so re-running
// a week's computation reproduces the exact same economy.
package entropy

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math/rand"
)

// seedFor derives a stable RNG seed from the week number and a purpose key.
func seedFor(week int64, key string) int64 {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d:%s", week, key)))
	return int64(binary.BigEndian.Uint32(sum[:4]))
}

// Uniform returns a draw in [lo, hi], stable for (week, key).
// If the bounds arrive swapped they are corrected rather than rejected.
func Uniform(week int64, key string, lo, hi float64) float64 {
	if hi < lo {
		lo, hi = hi, lo
	}
	rng := rand.New(rand.NewSource(seedFor(week, key)))
	return lo + rng.Float64()*(hi-lo)
}

// Fraction returns a draw in [0, 1), stable for (week, key).
func Fraction(week int64, key string) float64 {
	rng := rand.New(rand.NewSource(seedFor(week, key)))
	return rng.Float64()
}
