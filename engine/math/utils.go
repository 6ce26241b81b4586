package math

import "golang.org/x/exp/constraints"

// Clamp returns the value `f` clamped to the range [low, high].
// It works for any numeric type (integers and floats).
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}

// AlignUp rounds value up to the next multiple of alignment. An alignment of
// zero or one leaves value unchanged.
func AlignUp[T constraints.Unsigned](value, alignment T) T {
	if alignment <= 1 {
		return value
	}
	if IsPowerOfTwo(alignment) {
		return (value + alignment - 1) &^ (alignment - 1)
	}
	return ((value + alignment - 1) / alignment) * alignment
}

func IsPowerOfTwo[T constraints.Unsigned](value T) bool {
	return value != 0 && value&(value-1) == 0
}
