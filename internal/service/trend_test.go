package service

import (
	"errors"
	"testing"

	"github.com/quillhealth/quill/internal/models"
)

func TestTrendAnalyzer_MonotonicIncreaseIsWorsening(t *testing.T) {
	analyzer := NewTrendAnalyzer(testAnalyticsConfig())

	result, err := analyzer.Analyze(dailyEntries(1, 2, 3, 4, 5), 0)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if result.Label != models.TrendWorsening {
		t.Errorf("Expected worsening, got %s", result.Label)
	}
	if result.Slope <= 0 {
		t.Errorf("Expected positive slope, got %f", result.Slope)
	}
	if !floatNear(result.Mean, 3, 0.001) {
		t.Errorf("Expected mean 3, got %f", result.Mean)
	}
}

func TestTrendAnalyzer_MonotonicDecreaseIsImproving(t *testing.T) {
	analyzer := NewTrendAnalyzer(testAnalyticsConfig())

	result, err := analyzer.Analyze(dailyEntries(8, 6, 4, 2), 0)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if result.Label != models.TrendImproving {
		t.Errorf("Expected improving, got %s", result.Label)
	}
}

func TestTrendAnalyzer_FlatSequenceIsStable(t *testing.T) {
	analyzer := NewTrendAnalyzer(testAnalyticsConfig())

	result, err := analyzer.Analyze(dailyEntries(4, 4, 4, 4), 0)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if result.Label != models.TrendStable {
		t.Errorf("Expected stable, got %s", result.Label)
	}
	if result.StdDev != 0 {
		t.Errorf("Expected zero stddev, got %f", result.StdDev)
	}
}

func TestTrendAnalyzer_NoisyButDirectionlessIsStable(t *testing.T) {
	analyzer := NewTrendAnalyzer(testAnalyticsConfig())

	// Alternating values have spread but no projected change beyond it.
	result, err := analyzer.Analyze(dailyEntries(3, 5, 3, 5, 3, 5), 0)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if result.Label != models.TrendStable {
		t.Errorf("Expected stable for noise without direction, got %s", result.Label)
	}
}

func TestTrendAnalyzer_InsufficientData(t *testing.T) {
	analyzer := NewTrendAnalyzer(testAnalyticsConfig())

	_, err := analyzer.Analyze(dailyEntries(4, 5), 0)
	var insufficient *InsufficientDataError
	if !errors.As(err, &insufficient) {
		t.Fatalf("Expected InsufficientDataError, got %v", err)
	}
	if insufficient.MinRequired != 3 || insufficient.Have != 2 {
		t.Errorf("Expected min 3 have 2, got %+v", insufficient)
	}
}

func TestTrendAnalyzer_FlagsAnomalousSpike(t *testing.T) {
	analyzer := NewTrendAnalyzer(testAnalyticsConfig())

	entries := dailyEntries(3, 4, 3, 4, 3, 4, 9)
	result, err := analyzer.Analyze(entries, 0)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if len(result.Anomalies) != 1 {
		t.Fatalf("Expected exactly one anomaly, got %d", len(result.Anomalies))
	}
	spike := entries[len(entries)-1]
	if result.Anomalies[0].EntryID != spike.ID {
		t.Errorf("Expected anomaly on %s, got %s", spike.ID, result.Anomalies[0].EntryID)
	}
	if result.Anomalies[0].Severity != 9 {
		t.Errorf("Expected anomaly severity 9, got %f", result.Anomalies[0].Severity)
	}
}

func TestTrendAnalyzer_NeverFlagsWithoutTwoPrecedingPoints(t *testing.T) {
	analyzer := NewTrendAnalyzer(testAnalyticsConfig())

	// The jump at index 1 has only one preceding point; its threshold
	// would collapse to that point's own value, so it stays unflagged.
	result, err := analyzer.Analyze(dailyEntries(3, 9, 4), 0)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if len(result.Anomalies) != 0 {
		t.Errorf("Expected no anomalies, got %+v", result.Anomalies)
	}
}

func TestTrendAnalyzer_LookbackExcludesOldEntries(t *testing.T) {
	analyzer := NewTrendAnalyzer(testAnalyticsConfig())

	// 40 daily entries, 30-day default lookback: sample size must not
	// include the oldest entries.
	sevs := make([]float64, 40)
	for i := range sevs {
		sevs[i] = 5
	}
	result, err := analyzer.Analyze(dailyEntries(sevs...), 0)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if result.SampleSize > 31 {
		t.Errorf("Expected lookback to trim old entries, sample size %d", result.SampleSize)
	}
	if result.LookbackDays != 30 {
		t.Errorf("Expected default lookback 30, got %d", result.LookbackDays)
	}
}

func TestTrendAnalyzer_ConfidenceBounded(t *testing.T) {
	analyzer := NewTrendAnalyzer(testAnalyticsConfig())

	result, err := analyzer.Analyze(dailyEntries(0, 10, 0, 10, 0), 0)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if result.Confidence < 0 || result.Confidence > 1 {
		t.Errorf("Confidence out of range: %f", result.Confidence)
	}
}
