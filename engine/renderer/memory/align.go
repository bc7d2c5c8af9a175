package memory

import "golang.org/x/exp/constraints"

// AlignUp rounds value up to the next multiple of alignment. An alignment
// of zero leaves value unchanged.
func AlignUp[T constraints.Unsigned](value, alignment T) T {
	if alignment == 0 {
		return value
	}
	rem := value % alignment
	if rem == 0 {
		return value
	}
	return value + alignment - rem
}

func IsAligned[T constraints.Unsigned](value, alignment T) bool {
	return alignment == 0 || value%alignment == 0
}
