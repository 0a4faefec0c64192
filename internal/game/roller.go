package game

import "math/rand/v2"

// Roller draws a uniform integer in [0, bound].
type Roller interface {
	Roll(bound int64) int64
}

// UniformRoller uses the runtime-seeded global generator, which is safe for
// concurrent use.
type UniformRoller struct{}

func (UniformRoller) Roll(bound int64) int64 {
	if bound <= 0 {
		return 0
	}
	return rand.Int64N(bound + 1)
}
