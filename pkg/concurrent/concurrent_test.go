package concurrent

import (
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForEachVisitsEverything(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	var sum atomic.Int64
	err := ForEach(items, func(n int) error {
		sum.Add(int64(n))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(15), sum.Load())
}

func TestForEachReturnsError(t *testing.T) {
	boom := errors.New("boom")
	err := ForEach([]int{1, 2, 3}, func(n int) error {
		if n == 2 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)

	assert.NoError(t, ForEach(nil, func(int) error { return nil }))
}

func TestForEachLimitBoundsConcurrency(t *testing.T) {
	const limit = 3

	var inFlight, peak atomic.Int64
	var mu sync.Mutex
	err := ForEachLimit(make([]int, 64), limit, func(int) error {
		cur := inFlight.Add(1)
		mu.Lock()
		if cur > peak.Load() {
			peak.Store(cur)
		}
		mu.Unlock()
		inFlight.Add(-1)
		return nil
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int64(limit))
}

func TestMapPreservesOrder(t *testing.T) {
	items := []int{5, 3, 9, 1}

	out, err := Map(items, func(n int) (string, error) {
		return strconv.Itoa(n * 10), nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"50", "30", "90", "10"}, out)
}

func TestMapDiscardsPartialResultsOnError(t *testing.T) {
	out, err := Map([]int{1, 2, 3}, func(n int) (int, error) {
		if n == 3 {
			return 0, errors.New("no")
		}
		return n, nil
	})
	require.Error(t, err)
	assert.Nil(t, out)
}

func TestForEachMuteIgnoresErrors(t *testing.T) {
	var ran atomic.Int64
	ForEachMute([]int{1, 2, 3}, func(n int) error {
		ran.Add(1)
		return errors.New("ignored")
	})
	assert.Equal(t, int64(3), ran.Load())
}
