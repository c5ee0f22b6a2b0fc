package internal

import (
	"iter"
	"slices"
)

// IterSeqConcat concatenates multiple iterators into a single iterator sequence.
func IterSeqConcat[T any](seqs ...iter.Seq[T]) iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, seq := range seqs {
			for val := range seq {
				if !yield(val) {
					return // Stop if the consumer stops
				}
			}
		}
	}
}

// Permutations yields every ordering of values. Each yielded slice is a
// fresh copy owned by the consumer. No orderings are yielded for an empty
// input.
func Permutations[T any](values []T) iter.Seq[[]T] {
	return func(yield func([]T) bool) {
		if len(values) == 0 {
			return
		}
		permute(slices.Clone(values), 0, yield)
	}
}

func permute[T any](values []T, k int, yield func([]T) bool) bool {
	if k == len(values) {
		return yield(slices.Clone(values))
	}

	for n := k; n < len(values); n++ {
		values[k], values[n] = values[n], values[k]
		if !permute(values, k+1, yield) {
			return false
		}
		values[k], values[n] = values[n], values[k]
	}

	return true
}
