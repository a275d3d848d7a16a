// Package hll implements the dense HyperLogLog cardinality sketch used by
// PFADD/PFCOUNT/PFMERGE: 16384 six-bit registers, the standard
// harmonic-mean estimator with small/large-range corrections, and a
// max-merge across sketches (spec.md §4.C HyperLogLog operations).
package hll

import (
	"math"
	"math/bits"

	"github.com/cespare/xxhash/v2"
)

const (
	// Registers is the number of 6-bit registers (2^14).
	Registers = 16384
	// precisionBits is the number of low bits of the hash used to select a
	// register.
	precisionBits = 14
	// RegisterMax is the largest value a register can hold (6 bits).
	RegisterMax = 63
)

// New returns a fresh, empty register array.
func New() []byte {
	return make([]byte, Registers)
}

// Add hashes element and updates registers in place, reporting whether the
// sketch's state actually changed (PFADD's return value).
func Add(registers []byte, element []byte) bool {
	hash := xxhash.Sum64(element)
	index := hash & (Registers - 1)
	remaining := hash >> precisionBits

	var rank uint8
	if remaining == 0 {
		rank = 64 - precisionBits + 1
	} else {
		rank = uint8(bits.LeadingZeros64(remaining)-(64-50)) + 1
	}
	if rank > RegisterMax {
		rank = RegisterMax
	}

	if rank > registers[index] {
		registers[index] = rank
		return true
	}
	return false
}

// Count estimates the cardinality of the sketch using the harmonic-mean
// estimator, with Redis's small-range linear-counting correction and
// large-range 2^32 correction.
func Count(registers []byte) uint64 {
	var sum float64
	var zeros int
	for _, r := range registers {
		if r == 0 {
			zeros++
		}
		sum += 1.0 / float64(uint64(1)<<r)
	}

	m := float64(Registers)
	alpha := 0.7213 / (1.0 + 1.079/m)
	raw := alpha * m * m / sum

	if raw <= 2.5*m && zeros > 0 {
		linear := m * math.Log(m/float64(zeros))
		if linear <= 2.5*m {
			return uint64(linear)
		}
	}

	twoPow32 := math.Pow(2, 32)
	if raw <= twoPow32/30.0 {
		return uint64(raw)
	}
	corrected := -twoPow32 * math.Log(1.0-raw/twoPow32)
	return uint64(corrected)
}

// Merge folds src into dst, taking the max of each register pair
// (PFMERGE's semantics), reporting whether dst changed.
func Merge(dst, src []byte) bool {
	changed := false
	for i := range dst {
		if src[i] > dst[i] {
			dst[i] = src[i]
			changed = true
		}
	}
	return changed
}

// IsEmpty reports whether every register is still zero.
func IsEmpty(registers []byte) bool {
	for _, r := range registers {
		if r != 0 {
			return false
		}
	}
	return true
}

// Valid reports whether registers is a well-formed dense HLL (right length,
// every value within range) — used when PFMERGE/PFCOUNT encounters a string
// key that claims to hold an HLL payload.
func Valid(registers []byte) bool {
	if len(registers) != Registers {
		return false
	}
	for _, r := range registers {
		if r > RegisterMax {
			return false
		}
	}
	return true
}
