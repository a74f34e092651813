package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRollingMean(t *testing.T) {
	vals := []float64{10, 20, 30, 40}

	v, ok := rollingMean(vals, 2)
	assert.True(t, ok)
	assert.InDelta(t, 35, v, 1e-9)

	// Fewer values than the window averages what is available
	v, ok = rollingMean(vals[:1], 5)
	assert.True(t, ok)
	assert.InDelta(t, 10, v, 1e-9)

	_, ok = rollingMean(nil, 5)
	assert.False(t, ok, "no history means missing, not zero")
}

func TestRollingStd(t *testing.T) {
	v, ok := rollingStd([]float64{10, 10, 10}, 5)
	assert.True(t, ok)
	assert.Zero(t, v)

	// Population std of {2, 4} is 1
	v, ok = rollingStd([]float64{2, 4}, 5)
	assert.True(t, ok)
	assert.InDelta(t, 1, v, 1e-9)

	// A single observation has zero spread
	v, ok = rollingStd([]float64{7}, 5)
	assert.True(t, ok)
	assert.Zero(t, v)

	_, ok = rollingStd(nil, 5)
	assert.False(t, ok)
}

func TestRollingStdUsesWindowTail(t *testing.T) {
	// Old spread outside the window must not leak in
	vals := []float64{0, 100, 5, 5, 5}
	v, ok := rollingStd(vals, 3)
	assert.True(t, ok)
	assert.Zero(t, v)
}

func TestRollingSumRatio(t *testing.T) {
	fp := []float64{30, 40}
	min := []float64{30, 20}

	v, ok := rollingSumRatio(fp, min, 5)
	assert.True(t, ok)
	assert.InDelta(t, 1.4, v, 1e-9)

	_, ok = rollingSumRatio(nil, nil, 5)
	assert.False(t, ok)

	// Zero denominator reports missing rather than dividing
	_, ok = rollingSumRatio([]float64{10}, []float64{0}, 5)
	assert.False(t, ok)
}
