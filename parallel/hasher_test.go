package parallel

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHasherIgnoresArrivalOrder(t *testing.T) {
	items := []string{"ahoj", "svet", "", "čau", "x"}

	in := NewHasher(len(items))
	for i, s := range items {
		in.MustPutString(i, s)
	}

	rev := NewHasher(len(items))
	for i := len(items) - 1; i >= 0; i-- {
		rev.MustPutString(i, items[i])
	}

	conc := NewHasher(len(items))
	ForEach(len(items), 3, func(i int) {
		conc.MustPutString(i, items[i])
	})

	assert.Equal(t, in.Sum(), rev.Sum())
	assert.Equal(t, in.Sum(), conc.Sum())

	swapped := NewHasher(len(items))
	for i, s := range items {
		swapped.MustPutString(len(items)-1-i, s)
	}
	assert.NotEqual(t, in.Sum(), swapped.Sum())
}

func TestHasherPanics(t *testing.T) {
	h := NewHasher(2)
	h.MustPutString(0, "a")
	assert.Panics(t, func() { h.MustPutString(0, "b") })
	assert.Panics(t, func() { h.MustPutString(2, "b") })
}

func TestForEach(t *testing.T) {
	for _, limit := range []int{0, 1, 4} {
		var sum atomic.Int64
		ForEach(100, limit, func(i int) { sum.Add(int64(i)) })
		assert.Equal(t, int64(4950), sum.Load())
	}
	ForEach(0, 4, func(int) { t.Fatal("called") })
}

func TestForEachLimit(t *testing.T) {
	var running, peak atomic.Int64
	ForEach(50, 3, func(int) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		running.Add(-1)
	})
	assert.LessOrEqual(t, peak.Load(), int64(3))
	assert.Equal(t, int64(0), running.Load())
}
