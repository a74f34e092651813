package features

import (
	"math"
)

// tail returns up to the last w values of vals.
func tail(vals []float64, w int) []float64 {
	if len(vals) > w {
		return vals[len(vals)-w:]
	}
	return vals
}

// rollingMean returns the mean of the last w values. With fewer than w
// values it averages whatever is available; with none it reports missing.
func rollingMean(vals []float64, w int) (float64, bool) {
	window := tail(vals, w)
	if len(window) == 0 {
		return 0, false
	}

	var sum float64
	for _, v := range window {
		sum += v
	}
	return sum / float64(len(window)), true
}

// rollingStd returns the population standard deviation of the last w
// values. A single value has zero spread; no values reports missing.
func rollingStd(vals []float64, w int) (float64, bool) {
	window := tail(vals, w)
	if len(window) == 0 {
		return 0, false
	}

	mean, _ := rollingMean(vals, w)
	var ss float64
	for _, v := range window {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(window))), true
}

// rollingSumRatio returns sum(num tail) / sum(den tail) over the last w
// values, missing when the denominator is zero or there is no history.
func rollingSumRatio(num, den []float64, w int) (float64, bool) {
	numWindow := tail(num, w)
	denWindow := tail(den, w)
	if len(numWindow) == 0 || len(denWindow) == 0 {
		return 0, false
	}

	var numSum, denSum float64
	for _, v := range numWindow {
		numSum += v
	}
	for _, v := range denWindow {
		denSum += v
	}
	if denSum == 0 {
		return 0, false
	}
	return numSum / denSum, true
}
