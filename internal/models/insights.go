package models

import "time"

// TrendLabel is the categorical direction of a severity trend.
type TrendLabel string

const (
	TrendImproving TrendLabel = "improving"
	TrendStable    TrendLabel = "stable"
	TrendWorsening TrendLabel = "worsening"
)

// CorrelationStrength buckets the absolute value of a correlation
// coefficient: weak <0.3, moderate 0.3-0.6, strong >0.6.
type CorrelationStrength string

const (
	StrengthWeak     CorrelationStrength = "weak"
	StrengthModerate CorrelationStrength = "moderate"
	StrengthStrong   CorrelationStrength = "strong"
)

// BucketStrength maps an absolute coefficient to its strength bucket.
func BucketStrength(absR float64) CorrelationStrength {
	switch {
	case absR > 0.6:
		return StrengthStrong
	case absR >= 0.3:
		return StrengthModerate
	default:
		return StrengthWeak
	}
}

// InteractionKind describes how two covariates combine.
type InteractionKind string

const (
	InteractionSynergistic  InteractionKind = "synergistic"
	InteractionAntagonistic InteractionKind = "antagonistic"
)

// CrisisSignal is the output of the crisis detector. It only signals;
// any response (alerting, resource surfacing) belongs to the caller.
// The thresholds that produced the decision are echoed back so a
// caller can render "why" text.
type CrisisSignal struct {
	Detected     bool     `json:"detected"`
	Baseline     float64  `json:"baseline"`
	Latest       float64  `json:"latest"`
	Delta        float64  `json:"delta"`
	Ratio        float64  `json:"ratio"`
	RatioUsed    float64  `json:"ratio_threshold"`
	MinDeltaUsed float64  `json:"min_delta_threshold"`
	WindowDays   int      `json:"window_days"`
	SampleSize   int      `json:"sample_size"`
	Explanations []string `json:"explanations,omitempty"`
}

// AnomalyPoint marks one entry whose severity exceeded the anomaly
// threshold derived from the entries preceding it.
type AnomalyPoint struct {
	EntryID   string    `json:"entry_id"`
	Timestamp time.Time `json:"timestamp"`
	Severity  float64   `json:"severity"`
	Threshold float64   `json:"threshold"`
}

// TrendResult holds rolling statistics over a lookback window.
type TrendResult struct {
	Mean         float64        `json:"mean"`
	StdDev       float64        `json:"std_dev"`
	Slope        float64        `json:"slope"`
	Label        TrendLabel     `json:"label"`
	Anomalies    []AnomalyPoint `json:"anomalies,omitempty"`
	LookbackDays int            `json:"lookback_days"`
	SampleSize   int            `json:"sample_size"`
	Confidence   float64        `json:"confidence"`
}

// Prediction is a next-period severity forecast. Factors lists the
// terms that dominated the computation, for explainability.
type Prediction struct {
	PredictedSeverity float64  `json:"predicted_severity"`
	Baseline          float64  `json:"baseline"`
	Trend             float64  `json:"trend"`
	WeekdayAdjustment float64  `json:"weekday_adjustment"`
	Confidence        float64  `json:"confidence"`
	Factors           []string `json:"factors"`
	SampleSize        int      `json:"sample_size"`
}

// CorrelationFinding is one cell of the correlation matrix: severity
// against a single covariate.
type CorrelationFinding struct {
	Covariate    string              `json:"covariate"`
	Coefficient  float64             `json:"coefficient"`
	Strength     CorrelationStrength `json:"strength"`
	Significance float64             `json:"significance"`
	SampleSize   int                 `json:"sample_size"`
	Description  string              `json:"description"`
}

// InteractionEffect compares conditional mean severity when two
// covariates are both present against each alone.
type InteractionEffect struct {
	CovariateA   string          `json:"covariate_a"`
	CovariateB   string          `json:"covariate_b"`
	BothMean     float64         `json:"both_mean"`
	AloneAMean   float64         `json:"alone_a_mean"`
	AloneBMean   float64         `json:"alone_b_mean"`
	ExpectedMean float64         `json:"expected_mean"`
	Kind         InteractionKind `json:"kind"`
	CellCount    int             `json:"cell_count"`
	Confidence   float64         `json:"confidence"`
	Description  string          `json:"description"`
}

// CompoundPattern is a small conjunction of conditions whose
// conditional mean severity deviates from the unconditional mean.
type CompoundPattern struct {
	Conditions      []string `json:"conditions"`
	Support         int      `json:"support"`
	ConditionalMean float64  `json:"conditional_mean"`
	OverallMean     float64  `json:"overall_mean"`
	Deviation       float64  `json:"deviation"`
	Confidence      float64  `json:"confidence"`
	Recommendation  string   `json:"recommendation"`
}

// CausalHint is a weak directional hint, never a certainty: condition
// A preceding outcome B with repeatable, temporally consistent lift.
type CausalHint struct {
	Cause       string  `json:"cause"`
	Effect      string  `json:"effect"`
	Lift        float64 `json:"lift"`
	PairCount   int     `json:"pair_count"`
	Confidence  float64 `json:"confidence"`
	Description string  `json:"description"`
}

// MultiVariateResult bundles the four multivariate sub-analyses. Each
// degrades independently on sparse data; empty slices are normal.
type MultiVariateResult struct {
	Correlations []CorrelationFinding `json:"correlations"`
	Interactions []InteractionEffect  `json:"interactions"`
	Patterns     []CompoundPattern    `json:"patterns"`
	CausalHints  []CausalHint         `json:"causal_hints"`
	SampleSize   int                  `json:"sample_size"`
	ComputedAt   time.Time            `json:"computed_at"`
}

// InsufficiencyNote reports progress toward unlocking an insight that
// currently lacks data. It is a normal state for a new user, not an
// error.
type InsufficiencyNote struct {
	Insight     string `json:"insight"`
	MinRequired int    `json:"min_required"`
	Have        int    `json:"have"`
}

// InsightsResponse is the combined payload returned by the insights
// aggregator. Sections that lacked data are nil and listed under
// Insufficient.
type InsightsResponse struct {
	Crisis       *CrisisSignal       `json:"crisis,omitempty"`
	Trend        *TrendResult        `json:"trend,omitempty"`
	Prediction   *Prediction         `json:"prediction,omitempty"`
	MultiVariate *MultiVariateResult `json:"multivariate,omitempty"`
	Insufficient []InsufficiencyNote `json:"insufficient,omitempty"`
	ComputedAt   time.Time           `json:"computed_at"`
	SampleSize   int                 `json:"sample_size"`
}
