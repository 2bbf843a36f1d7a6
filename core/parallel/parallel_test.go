package parallel

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParallelize_CoversEveryItemOnce(t *testing.T) {
	for _, items := range []int{1, 2, 7, 64, 1000} {
		seen := make([]int32, items)
		Parallelize(items, func(start, end int) {
			for i := start; i < end; i++ {
				atomic.AddInt32(&seen[i], 1)
			}
		})
		for i, n := range seen {
			assert.Equal(t, int32(1), n, "items=%d index=%d", items, i)
		}
	}
}

func TestParallelize_Empty(t *testing.T) {
	called := false
	Parallelize(0, func(start, end int) { called = true })
	assert.False(t, called)
}

func TestParallelizeWithThreshold_Sequential(t *testing.T) {
	var calls int32
	ParallelizeWithThreshold(5, 10, func(start, end int) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, 0, start)
		assert.Equal(t, 5, end)
	})
	assert.Equal(t, int32(1), calls)
}
