// Package shuffler defines tools for shuffling and sampling items in
// pseudo-random, seed-based ways.
package shuffler

import (
	"errors"
	"fmt"
	"math/rand"
)

// ErrInsufficientItems is returned when more items are requested from a
// sample than the input collection holds.
var ErrInsufficientItems = errors.New("not enough items to sample")

// Source provides the randomness for shuffling. Float64 must return a value
// in [0, 1). *rand.Rand satisfies Source.
type Source interface {
	Float64() float64
}

var _ Source = &rand.Rand{}

// NewSource creates a seeded Source. Two sources created with the same seed
// produce the same sequence. The returned value is not safe for concurrent
// use; create one per generation.
func NewSource(rngSeed int64) *rand.Rand {
	return rand.New(rand.NewSource(rngSeed))
}

// Shuffle returns a copy of items in a random order, using a backward
// Fisher-Yates pass. items itself is never mutated.
func Shuffle[T any](items []T, src Source) []T {
	shuffled := make([]T, len(items))
	copy(shuffled, items)

	for i := len(shuffled) - 1; i >= 1; i-- {
		randomIndex := pick(src, i+1)
		elementToSwap := shuffled[i]
		shuffled[i] = shuffled[randomIndex]
		shuffled[randomIndex] = elementToSwap
	}
	return shuffled
}

// SampleUnique returns n items drawn from items without replacement, in a
// random order.
func SampleUnique[T any](items []T, n int, src Source) ([]T, error) {
	if n < 0 {
		return nil, fmt.Errorf("sample size %d must not be negative", n)
	}
	if n > len(items) {
		return nil, fmt.Errorf("%w: requested %d, have %d", ErrInsufficientItems, n, len(items))
	}
	return Shuffle(items, src)[0:n], nil
}

// pick maps a [0, 1) float onto [0, n). Sources that misbehave and return
// values outside of [0, 1) are clamped instead of causing a panic.
func pick(src Source, n int) int {
	i := int(src.Float64() * float64(n))
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
