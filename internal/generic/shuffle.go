package generic

import "math/rand"

// Shuffle randomizes the order of elements in place.
func Shuffle[T any](s []T) {
	rand.Shuffle(len(s), func(i, j int) {
		s[i], s[j] = s[j], s[i]
	})
}
