package generic

// MapKeys returns the union of the keys of the maps, in no particular order.
func MapKeys[K comparable, V any](maps ...map[K]V) []K {
	seen := make(map[K]struct{})
	keys := make([]K, 0)

	for _, m := range maps {
		for k := range m {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				keys = append(keys, k)
			}
		}
	}

	return keys
}

// MapValues returns the values of all maps, in no particular order.
// Duplicates are kept.
func MapValues[K comparable, V any](maps ...map[K]V) []V {
	var n int
	for _, m := range maps {
		n += len(m)
	}

	values := make([]V, 0, n)

	for _, m := range maps {
		for _, v := range m {
			values = append(values, v)
		}
	}

	return values
}
