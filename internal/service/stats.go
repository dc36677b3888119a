package service

import (
	"math"
	"sort"

	"github.com/quillhealth/quill/internal/models"
)

// mean returns the arithmetic mean of values, 0 for an empty slice.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stdDev returns the population standard deviation of values.
func stdDev(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	m := mean(values)
	var ss float64
	for _, v := range values {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(n))
}

// leastSquaresSlope fits severity against day-index by ordinary least
// squares and returns the slope in severity units per day. A window
// with no spread in x yields slope 0.
func leastSquaresSlope(xs, ys []float64) float64 {
	n := len(xs)
	if n < 2 || n != len(ys) {
		return 0
	}
	meanX := mean(xs)
	meanY := mean(ys)
	var num, den float64
	for i := 0; i < n; i++ {
		dx := xs[i] - meanX
		num += dx * (ys[i] - meanY)
		den += dx * dx
	}
	if den == 0 {
		return 0
	}
	return num / den
}

// pearson computes the Pearson correlation coefficient and a
// two-tailed p-value using a normal approximation of the t statistic.
// Zero variance in either series yields r=0, p=1.
func pearson(xs, ys []float64) (r, pValue float64) {
	n := len(xs)
	if n != len(ys) || n < 3 {
		return 0, 1
	}
	meanX := mean(xs)
	meanY := mean(ys)

	var num, denX, denY float64
	for i := 0; i < n; i++ {
		dx := xs[i] - meanX
		dy := ys[i] - meanY
		num += dx * dy
		denX += dx * dx
		denY += dy * dy
	}
	if denX == 0 || denY == 0 {
		return 0, 1
	}

	r = num / math.Sqrt(denX*denY)

	if math.Abs(r) >= 1.0 {
		return r, 0
	}
	t := r * math.Sqrt(float64(n-2)/(1-r*r))
	pValue = 2 * (1 - normalCDF(math.Abs(t)))
	return r, pValue
}

// normalCDF is the cumulative distribution function of the standard
// normal distribution.
func normalCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt(2)))
}

// clamp bounds v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// severities extracts the severity series in entry order.
func severities(entries []models.Entry) []float64 {
	out := make([]float64, len(entries))
	for i, e := range entries {
		out[i] = e.Severity
	}
	return out
}

// dayIndexes converts entry timestamps to fractional days since the
// first entry, for use as the regression x axis.
func dayIndexes(entries []models.Entry) []float64 {
	out := make([]float64, len(entries))
	if len(entries) == 0 {
		return out
	}
	first := entries[0].Timestamp
	for i, e := range entries {
		out[i] = e.Timestamp.Sub(first).Hours() / 24
	}
	return out
}

// sortedCopy returns a timestamp-ascending copy of entries. Analyses
// operate on the copy so a concurrent write cannot mutate the data
// under them.
func sortedCopy(entries []models.Entry) []models.Entry {
	out := make([]models.Entry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}
