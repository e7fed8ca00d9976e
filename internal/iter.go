package internal

import (
	"iter"
)

// IterSeqGroup groups consecutive values of seq that share the same key.
// Each yielded slice is non-empty and owned by the caller.
func IterSeqGroup[T any, K comparable](seq iter.Seq[T], key func(T) K) iter.Seq[[]T] {
	return func(yield func([]T) bool) {
		var group []T
		var group_key K
		for val := range seq {
			k := key(val)
			if len(group) > 0 && k != group_key {
				if !yield(group) {
					return // Stop if the consumer stops
				}
				group = nil
			}
			group_key = k
			group = append(group, val)
		}
		if len(group) > 0 {
			yield(group)
		}
	}
}

// IterSeqElide shortens every group longer than limit to its first and last
// element, with elided between them.
func IterSeqElide[T any](groups iter.Seq[[]T], limit int, elided T) iter.Seq[T] {
	return func(yield func(T) bool) {
		for group := range groups {
			if len(group) > limit {
				group = []T{group[0], elided, group[len(group)-1]}
			}
			for _, val := range group {
				if !yield(val) {
					return
				}
			}
		}
	}
}
