package arbitrage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRollingWindowMeanStd(t *testing.T) {
	w := NewRollingWindow(5)
	for _, v := range []float64{2, 4, 4, 4, 6} {
		w.Push(v)
	}

	assert.Equal(t, 5, w.Count())
	assert.True(t, w.Full())
	assert.InDelta(t, 4.0, w.Mean(), 1e-12)
	// Population std of {2,4,4,4,6} is sqrt(8/5).
	assert.InDelta(t, 1.2649110640673518, w.Std(), 1e-12)
}

func TestRollingWindowEvictsOldest(t *testing.T) {
	w := NewRollingWindow(3)
	for _, v := range []float64{1, 2, 3, 10} {
		w.Push(v)
	}

	// {1} evicted, window holds {2,3,10}.
	assert.Equal(t, 3, w.Count())
	assert.InDelta(t, 5.0, w.Mean(), 1e-12)
}

func TestZScoreFlatHistoryIsNeutral(t *testing.T) {
	w := NewRollingWindow(10)
	for i := 0; i < 10; i++ {
		w.Push(42)
	}

	// Zero variance must never manufacture significance.
	assert.Zero(t, w.ZScore(42))
	assert.Zero(t, w.ZScore(1000))
}

func TestZScoreEmptyWindowIsNeutral(t *testing.T) {
	w := NewRollingWindow(10)
	assert.Zero(t, w.ZScore(5))

	w.Push(5)
	assert.Zero(t, w.ZScore(7), "a single observation has no variance")
}

func TestZScoreDirection(t *testing.T) {
	w := NewRollingWindow(10)
	for _, v := range []float64{10, 12, 8, 11, 9} {
		w.Push(v)
	}

	assert.Positive(t, w.ZScore(20))
	assert.Negative(t, w.ZScore(0))
}
