package metrics

import (
	"math"
	"sort"
)

// Mean calculates the arithmetic mean.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// SampleStddev calculates sample standard deviation (n-1 denominator).
func SampleStddev(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0 // Need at least 2 samples for sample stddev
	}
	mean := Mean(values)
	sumSq := 0.0
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// Percentile returns the p-th percentile (p in [0,1]) using linear
// interpolation. The input does not need to be pre-sorted.
func Percentile(values []float64, p float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return values[0]
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	// Index for percentile (0-based, continuous)
	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// WelchTTest runs Welch's two-sample t-test on a and b, returning the t
// statistic and the two-sided p-value. The p-value uses the normal
// approximation of the t distribution, adequate at the sample sizes a
// backtest produces. With fewer than 2 samples on either side the result
// degrades to (0, 1): no evidence of a difference.
func WelchTTest(a, b []float64) (t, p float64) {
	if len(a) < 2 || len(b) < 2 {
		return 0, 1
	}

	meanA, meanB := Mean(a), Mean(b)
	sdA, sdB := SampleStddev(a), SampleStddev(b)
	varA, varB := sdA*sdA, sdB*sdB

	se := math.Sqrt(varA/float64(len(a)) + varB/float64(len(b)))
	if se == 0 {
		return 0, 1
	}

	t = (meanA - meanB) / se
	p = 2 * (1 - normalCDF(math.Abs(t)))
	return t, p
}

// normalCDF is the standard normal cumulative distribution function.
func normalCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}
