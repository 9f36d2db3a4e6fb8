package services

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutex(t *testing.T) {
	t.Parallel()

	locks := newKeyedMutex()

	var (
		wg      sync.WaitGroup
		counter int
	)

	for range 50 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			unlock := locks.Lock("tpl-1")
			defer unlock()

			counter++
		}()
	}

	wg.Wait()

	assert.Equal(t, 50, counter)
	assert.Empty(t, locks.locks, "released keys are dropped")

	unlockA := locks.Lock("a")
	unlockB := locks.Lock("b")
	assert.Len(t, locks.locks, 2)

	unlockA()
	unlockB()
	assert.Empty(t, locks.locks)
}
