package service

import (
	"fmt"
	"time"

	"github.com/quillhealth/quill/internal/config"
	"github.com/quillhealth/quill/internal/models"
)

// testAnalyticsConfig mirrors the shipped defaults.
func testAnalyticsConfig() config.AnalyticsConfig {
	return config.AnalyticsConfig{
		SeverityScaleMax:    10.0,
		CrisisWindowDays:    7,
		CrisisRatio:         1.2,
		CrisisMinDelta:      2.0,
		TrendLookbackDays:   30,
		TrendMinPoints:      3,
		AnomalyStdDevFactor: 2.0,
		PredictionWindow:    7,
		WeekdayMinSamples:   3,
		MinCellCount:        3,
		MinSupport:          3,
		MinPairCount:        3,
	}
}

// dailyEntries builds one entry per day ending at now, with the given
// severities in chronological order.
func dailyEntries(sevs ...float64) []models.Entry {
	now := time.Now().UTC().Truncate(time.Minute)
	entries := make([]models.Entry, len(sevs))
	for i, s := range sevs {
		ts := now.AddDate(0, 0, i-len(sevs)+1)
		entries[i] = models.Entry{
			ID:        fmt.Sprintf("entry-%d", i),
			Timestamp: ts,
			Severity:  s,
			CreatedAt: ts,
		}
	}
	return entries
}

func floatNear(got, want, tol float64) bool {
	diff := got - want
	if diff < 0 {
		diff = -diff
	}
	return diff <= tol
}
