package set

import (
	"golang.org/x/exp/constraints"
	"golang.org/x/exp/slices"

	"github.com/maxpoletaev/butterfly/internal/generic"
)

type Set[T comparable] map[T]struct{}

func (s Set[T]) Add(val T) {
	s[val] = struct{}{}
}

// And returns the union of both sets.
func (s Set[T]) And(ss Set[T]) Set[T] {
	newset := make(Set[T], len(s)+len(ss))
	for k := range s {
		newset.Add(k)
	}

	for k := range ss {
		newset.Add(k)
	}

	return newset
}

// Or returns the intersection of both sets.
func (s Set[T]) Or(ss Set[T]) Set[T] {
	newset := make(Set[T], generic.Min(len(s), len(ss)))

	for val := range s {
		if ss.Has(val) {
			newset.Add(val)
		}
	}

	return newset
}

func (s Set[T]) Remove(val T) {
	delete(s, val)
}

func (s Set[T]) Values() []T {
	return generic.MapKeys(s)
}

func (s Set[T]) Has(val T) bool {
	_, ok := s[val]
	return ok
}

// Contains reports whether every given value is in the set.
func (s Set[T]) Contains(vals ...T) bool {
	for _, val := range vals {
		if !s.Has(val) {
			return false
		}
	}

	return true
}

func (s Set[T]) Equals(ss Set[T]) bool {
	if len(s) != len(ss) {
		return false
	}

	for k := range s {
		if !ss.Has(k) {
			return false
		}
	}

	return true
}

func New[T comparable](sl ...T) Set[T] {
	set := make(Set[T], len(sl))
	for _, val := range sl {
		set.Add(val)
	}

	return set
}

// Sorted returns the set values in ascending order.
func Sorted[T constraints.Ordered](s Set[T]) []T {
	vals := s.Values()
	slices.Sort(vals)

	return vals
}
