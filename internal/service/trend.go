package service

import (
	"math"
	"time"

	"github.com/quillhealth/quill/internal/config"
	"github.com/quillhealth/quill/internal/models"
)

type trendAnalyzer struct {
	defaultLookback int
	minPoints       int
	anomalyFactor   float64
	scaleMax        float64
}

// NewTrendAnalyzer creates a trend analyzer with the configured
// lookback, minimum sample size, and anomaly threshold factor.
func NewTrendAnalyzer(cfg config.AnalyticsConfig) TrendAnalyzer {
	return &trendAnalyzer{
		defaultLookback: cfg.TrendLookbackDays,
		minPoints:       cfg.TrendMinPoints,
		anomalyFactor:   cfg.AnomalyStdDevFactor,
		scaleMax:        cfg.SeverityScaleMax,
	}
}

// Analyze computes rolling mean, standard deviation, and a
// least-squares slope over the lookback window, labels the trend, and
// flags anomalous entries. Below the minimum sample size it returns
// *InsufficientDataError rather than degenerate statistics.
func (a *trendAnalyzer) Analyze(entries []models.Entry, lookbackDays int) (*models.TrendResult, error) {
	if lookbackDays <= 0 {
		lookbackDays = a.defaultLookback
	}

	window := lookbackWindow(sortedCopy(entries), lookbackDays)
	if len(window) < a.minPoints {
		return nil, &InsufficientDataError{
			Insight:     "trend",
			MinRequired: a.minPoints,
			Have:        len(window),
		}
	}

	ys := severities(window)
	xs := dayIndexes(window)

	m := mean(ys)
	sd := stdDev(ys)
	slope := leastSquaresSlope(xs, ys)

	result := &models.TrendResult{
		Mean:         m,
		StdDev:       sd,
		Slope:        slope,
		Label:        a.label(slope, sd, xs[len(xs)-1]),
		Anomalies:    a.findAnomalies(window),
		LookbackDays: lookbackDays,
		SampleSize:   len(window),
		Confidence:   a.confidence(len(window), sd),
	}
	return result, nil
}

// label classifies the trend. A projected change over the window
// smaller than one standard deviation is "stable" regardless of sign,
// which avoids over-interpreting noise.
func (a *trendAnalyzer) label(slope, sd, spanDays float64) models.TrendLabel {
	projected := slope * spanDays
	if projected == 0 || math.Abs(projected) < sd {
		return models.TrendStable
	}
	if projected > 0 {
		return models.TrendWorsening
	}
	return models.TrendImproving
}

// findAnomalies flags entries whose severity exceeds
// mean + factor*stddev of the entries preceding them. The scan needs
// two preceding points: a single one has zero spread, so its threshold
// collapses to the point itself and any increase at all would flag.
func (a *trendAnalyzer) findAnomalies(window []models.Entry) []models.AnomalyPoint {
	var anomalies []models.AnomalyPoint
	for i := 2; i < len(window); i++ {
		preceding := severities(window[:i])
		threshold := mean(preceding) + a.anomalyFactor*stdDev(preceding)
		if window[i].Severity > threshold {
			anomalies = append(anomalies, models.AnomalyPoint{
				EntryID:   window[i].ID,
				Timestamp: window[i].Timestamp,
				Severity:  window[i].Severity,
				Threshold: threshold,
			})
		}
	}
	return anomalies
}

// confidence blends sample size and volatility into a [0,1] score.
func (a *trendAnalyzer) confidence(n int, sd float64) float64 {
	sampleWeight := math.Min(1, float64(n)/30)
	stability := 1 - sd/a.scaleMax
	return clamp(0.5*sampleWeight+0.5*stability, 0, 1)
}

// lookbackWindow keeps entries within lookbackDays of the most recent
// entry, anchored on the data rather than wall-clock time.
func lookbackWindow(entries []models.Entry, lookbackDays int) []models.Entry {
	if len(entries) == 0 {
		return entries
	}
	cutoff := entries[len(entries)-1].Timestamp.Add(-time.Duration(lookbackDays) * 24 * time.Hour)
	for i, e := range entries {
		if !e.Timestamp.Before(cutoff) {
			return entries[i:]
		}
	}
	return entries[len(entries)-1:]
}
