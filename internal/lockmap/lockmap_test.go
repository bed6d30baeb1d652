package lockmap

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMap_SameKeyIsExclusive(t *testing.T) {
	lm := New[string]()
	wg := sync.WaitGroup{}
	counter := 0

	for i := 0; i < 100; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()
			lm.Lock("a")
			counter++
			lm.Unlock("a")
		}()
	}

	wg.Wait()

	assert.Equal(t, 100, counter)
	assert.Equal(t, 0, lm.Len())
}

func TestMap_DifferentKeysDoNotBlock(t *testing.T) {
	lm := New[string]()
	lm.Lock("a")

	done := make(chan struct{})

	go func() {
		lm.Lock("b")
		lm.Unlock("b")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock of another key blocked")
	}

	lm.Unlock("a")
}

func TestMap_UnlockUnlocked(t *testing.T) {
	lm := New[string]()
	assert.Panics(t, func() { lm.Unlock("a") })
}
