package generic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapKeys(t *testing.T) {
	mapA := map[string]bool{"key1": true, "key2": true}
	mapB := map[string]bool{"key2": true, "key3": true}
	keys := MapKeys(mapA, mapB)
	assert.ElementsMatch(t, keys, []string{"key1", "key2", "key3"})
}

func TestMapValues(t *testing.T) {
	mapA := map[string]int{"key1": 1}
	mapB := map[string]int{"key2": 2}
	assert.ElementsMatch(t, MapValues(mapA, mapB), []int{1, 2})
	assert.Empty(t, MapValues[string, int]())
}

func TestSortedKeys(t *testing.T) {
	keys := SortedKeys(map[string]int{"c": 1, "a": 2, "b": 3})
	assert.Equal(t, []string{"a", "b", "c"}, keys)
	assert.Empty(t, SortedKeys(map[string]int(nil)))
}

func TestShuffle(t *testing.T) {
	s := []int{1, 2, 3, 4, 5}
	Shuffle(s)
	assert.ElementsMatch(t, []int{1, 2, 3, 4, 5}, s)
}
