package service

import (
	"fmt"
	"math"
	"time"

	"github.com/quillhealth/quill/internal/config"
	"github.com/quillhealth/quill/internal/models"
)

type predictor struct {
	window            int
	weekdayMinSamples int
	scaleMax          float64
	// now is injectable for tests; recency weighting needs a clock.
	now func() time.Time
}

// NewPredictor creates a next-period forecaster over the configured
// window of most recent entries.
func NewPredictor(cfg config.AnalyticsConfig) Predictor {
	return &predictor{
		window:            cfg.PredictionWindow,
		weekdayMinSamples: cfg.WeekdayMinSamples,
		scaleMax:          cfg.SeverityScaleMax,
		now:               time.Now,
	}
}

// Predict forecasts the next-period severity as baseline + trend plus
// a day-of-week adjustment, clamped to the severity scale. Below the
// minimum window it returns *InsufficientDataError instead of a
// low-confidence guess.
func (p *predictor) Predict(entries []models.Entry) (*models.Prediction, error) {
	all := sortedCopy(entries)
	if len(all) < p.window {
		return nil, &InsufficientDataError{
			Insight:     "prediction",
			MinRequired: p.window,
			Have:        len(all),
		}
	}

	recent := all[len(all)-p.window:]
	ys := severities(recent)
	xs := dayIndexes(recent)

	baseline := mean(ys)
	trend := leastSquaresSlope(xs, ys)
	sd := stdDev(ys)
	latest := recent[len(recent)-1]

	adjustment, weekdaySamples := p.weekdayAdjustment(all, latest.Timestamp)
	predicted := clamp(baseline+trend+adjustment, 0, p.scaleMax)

	pred := &models.Prediction{
		PredictedSeverity: predicted,
		Baseline:          baseline,
		Trend:             trend,
		WeekdayAdjustment: adjustment,
		Confidence:        p.confidence(all, sd, latest.Timestamp),
		Factors:           p.factors(trend, sd, baseline, latest.Severity, adjustment, weekdaySamples),
		SampleSize:        len(recent),
	}
	return pred, nil
}

// weekdayAdjustment returns the historical mean severity deviation for
// the weekday of the next period. The adjustment only applies with at
// least weekdayMinSamples observations on that weekday; otherwise it
// is zero.
func (p *predictor) weekdayAdjustment(all []models.Entry, latest time.Time) (float64, int) {
	target := latest.AddDate(0, 0, 1).Weekday()
	overall := mean(severities(all))

	var sum float64
	var count int
	for _, e := range all {
		if e.Timestamp.Weekday() == target {
			sum += e.Severity - overall
			count++
		}
	}
	if count < p.weekdayMinSamples {
		return 0, count
	}
	return sum / float64(count), count
}

// confidence is a weighted sum of sample size, stability, and recency.
// Recency decays when the most recent entry is older than the typical
// logging interval.
func (p *predictor) confidence(all []models.Entry, sd float64, latest time.Time) float64 {
	sampleWeight := math.Min(1, float64(len(all))/30)
	stability := 1 - sd/p.scaleMax
	recency := p.recencyWeight(all, latest)
	return clamp(0.4*sampleWeight+0.4*stability+0.2*recency, 0, 1)
}

func (p *predictor) recencyWeight(all []models.Entry, latest time.Time) float64 {
	typical := typicalInterval(all)
	elapsed := p.now().Sub(latest)
	if elapsed <= typical {
		return 1
	}
	return clamp(float64(typical)/float64(elapsed), 0, 1)
}

// typicalInterval is the mean gap between consecutive entries,
// defaulting to one day for a single-entry history.
func typicalInterval(all []models.Entry) time.Duration {
	if len(all) < 2 {
		return 24 * time.Hour
	}
	span := all[len(all)-1].Timestamp.Sub(all[0].Timestamp)
	interval := span / time.Duration(len(all)-1)
	if interval <= 0 {
		return 24 * time.Hour
	}
	return interval
}

// factors lists the terms that dominated the forecast, for
// explainability. Every prediction carries at least one factor.
func (p *predictor) factors(trend, sd, baseline, latestSeverity, adjustment float64, weekdaySamples int) []string {
	var factors []string

	switch {
	case trend >= 0.1:
		factors = append(factors, "increasing trend")
	case trend <= -0.1:
		factors = append(factors, "decreasing trend")
	default:
		factors = append(factors, "flat trend")
	}

	if sd > 0.15*p.scaleMax {
		factors = append(factors, "elevated volatility")
	}
	if latestSeverity >= baseline+sd && sd > 0 {
		factors = append(factors, "recent high severity")
	}
	if adjustment != 0 {
		factors = append(factors, fmt.Sprintf("day-of-week adjustment from %d prior observations", weekdaySamples))
	}

	return factors
}
