package service

import (
	"math/rand"
	"time"
)

// Clock supplies the current time. Tests substitute a fixed clock.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// Rand supplies battle luck. Tests substitute a fixed roll.
type Rand interface {
	// Uniform returns a value in [lo, hi).
	Uniform(lo, hi float64) float64
}

// SystemRand draws from math/rand.
type SystemRand struct{}

func (SystemRand) Uniform(lo, hi float64) float64 {
	return lo + rand.Float64()*(hi-lo)
}
