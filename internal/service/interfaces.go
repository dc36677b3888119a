package service

import (
	"context"
	"fmt"
	"time"

	"github.com/quillhealth/quill/internal/models"
)

// InsufficientDataError signals that an insight lacks the minimum
// number of data points. It is a normal state for a new user, not a
// failure: callers should render progress toward unlocking the
// insight rather than an error.
type InsufficientDataError struct {
	Insight     string
	MinRequired int
	Have        int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s needs at least %d entries, have %d", e.Insight, e.MinRequired, e.Have)
}

// Note reports the insufficiency in the shape the API returns.
func (e *InsufficientDataError) Note() models.InsufficiencyNote {
	return models.InsufficiencyNote{
		Insight:     e.Insight,
		MinRequired: e.MinRequired,
		Have:        e.Have,
	}
}

// CrisisDetector flags a sudden severity escalation over a recent
// window of entries. It only signals; any response belongs to the
// caller.
type CrisisDetector interface {
	Detect(entries []models.Entry) *models.CrisisSignal
}

// TrendAnalyzer computes rolling statistics and anomaly flags over a
// lookback window. lookbackDays <= 0 selects the configured default.
type TrendAnalyzer interface {
	Analyze(entries []models.Entry, lookbackDays int) (*models.TrendResult, error)
}

// Predictor produces a next-period severity forecast. Below the
// minimum data requirement it returns *InsufficientDataError rather
// than a low-confidence guess.
type Predictor interface {
	Predict(entries []models.Entry) (*models.Prediction, error)
}

// MultiVariateAnalyzer runs the correlation, interaction, compound
// pattern, and causal-hint sub-analyses. Each degrades independently
// on sparse data.
type MultiVariateAnalyzer interface {
	Analyze(entries []models.Entry) *models.MultiVariateResult
}

// InsightsService snapshots the journal and fans it out to the
// analysis engines. All computations are pure over the snapshot, so
// abandoning a request discards the result with no side effects.
type InsightsService interface {
	GetInsights(ctx context.Context) (*models.InsightsResponse, error)
	GetCrisisSignal(ctx context.Context) (*models.CrisisSignal, error)
	GetTrend(ctx context.Context, lookbackDays int) (*models.TrendResult, error)
	GetPrediction(ctx context.Context) (*models.Prediction, error)
	GetMultiVariate(ctx context.Context) (*models.MultiVariateResult, error)
	Snapshot(ctx context.Context, since *time.Time) ([]models.Entry, error)
}
