package service

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/quillhealth/quill/internal/config"
	"github.com/quillhealth/quill/internal/models"
)

// maxReportedFindings caps each sub-analysis output so a long journal
// does not produce an unreadable wall of findings.
const maxReportedFindings = 10

type multiVariateAnalyzer struct {
	minCellCount int
	minSupport   int
	minPairCount int
	scaleMax     float64
}

// NewMultiVariateAnalyzer creates the correlation / interaction /
// pattern / causal-hint analyzer with the configured minimum counts.
func NewMultiVariateAnalyzer(cfg config.AnalyticsConfig) MultiVariateAnalyzer {
	return &multiVariateAnalyzer{
		minCellCount: cfg.MinCellCount,
		minSupport:   cfg.MinSupport,
		minPairCount: cfg.MinPairCount,
		scaleMax:     cfg.SeverityScaleMax,
	}
}

// Analyze runs the four sub-analyses over a snapshot of entries. Each
// degrades independently on sparse data; empty result slices are
// normal, never an error.
func (a *multiVariateAnalyzer) Analyze(entries []models.Entry) *models.MultiVariateResult {
	window := sortedCopy(entries)
	matrix := buildCovariateMatrix(window)

	return &models.MultiVariateResult{
		Correlations: a.correlations(window, matrix),
		Interactions: a.interactions(window, matrix),
		Patterns:     a.compoundPatterns(window, matrix),
		CausalHints:  a.causalHints(window, matrix),
		SampleSize:   len(window),
		ComputedAt:   time.Now().UTC(),
	}
}

// covariateMatrix holds one 0/1 presence vector per covariate, aligned
// to the entry slice that produced it.
type covariateMatrix struct {
	names   []string
	vectors map[string][]float64
}

func (m *covariateMatrix) present(name string, i int) bool {
	return m.vectors[name][i] == 1
}

// buildCovariateMatrix derives the binary covariates of every entry:
// intervention presence, sleep and stress buckets, tags, time-of-day
// bucket, and weekend flag.
func buildCovariateMatrix(entries []models.Entry) *covariateMatrix {
	vectors := make(map[string][]float64)

	flag := func(name string, i int) {
		if _, ok := vectors[name]; !ok {
			vectors[name] = make([]float64, len(entries))
		}
		vectors[name][i] = 1
	}

	for i, e := range entries {
		if e.HasIntervention() {
			flag("intervention", i)
		}
		if e.Context != nil {
			if e.Context.Sleep != nil {
				flag("sleep:"+string(*e.Context.Sleep), i)
			}
			if e.Context.Stress != nil {
				flag("stress:"+string(*e.Context.Stress), i)
			}
		}
		for _, t := range e.Tags {
			flag(fmt.Sprintf("tag:%s:%s", t.Category, t.Value), i)
		}
		flag("time:"+timeOfDayBucket(e.Timestamp), i)
		if wd := e.Timestamp.Weekday(); wd == time.Saturday || wd == time.Sunday {
			flag("weekend", i)
		}
	}

	names := make([]string, 0, len(vectors))
	for name := range vectors {
		names = append(names, name)
	}
	sort.Strings(names)

	return &covariateMatrix{names: names, vectors: vectors}
}

func timeOfDayBucket(t time.Time) string {
	switch h := t.Hour(); {
	case h >= 5 && h < 12:
		return "morning"
	case h >= 12 && h < 18:
		return "afternoon"
	case h >= 18 && h < 23:
		return "evening"
	default:
		return "night"
	}
}

// correlations computes the Pearson correlation of severity against
// each covariate, with a sample-size-aware significance score.
func (a *multiVariateAnalyzer) correlations(entries []models.Entry, matrix *covariateMatrix) []models.CorrelationFinding {
	if len(entries) < 3 {
		return nil
	}
	ys := severities(entries)

	var findings []models.CorrelationFinding
	for _, name := range matrix.names {
		r, pValue := pearson(matrix.vectors[name], ys)
		if r == 0 {
			continue
		}
		findings = append(findings, models.CorrelationFinding{
			Covariate:    name,
			Coefficient:  r,
			Strength:     models.BucketStrength(math.Abs(r)),
			Significance: 1 - pValue,
			SampleSize:   len(entries),
			Description:  correlationDescription(name, r),
		})
	}

	sort.Slice(findings, func(i, j int) bool {
		return math.Abs(findings[i].Coefficient) > math.Abs(findings[j].Coefficient)
	})
	if len(findings) > maxReportedFindings {
		findings = findings[:maxReportedFindings]
	}
	return findings
}

func correlationDescription(name string, r float64) string {
	direction := "higher"
	if r < 0 {
		direction = "lower"
	}
	return fmt.Sprintf("Severity tends to be %s when %s is present (r=%.2f)", direction, name, r)
}

// interactions compares the conditional mean severity under
// both-present against an additive expectation built from the
// single-covariate cells. Every cell must reach the minimum count so
// single observations cannot produce spurious effects.
func (a *multiVariateAnalyzer) interactions(entries []models.Entry, matrix *covariateMatrix) []models.InteractionEffect {
	overall := mean(severities(entries))
	// Half a unit on a 10-point scale; scaled for other bounds.
	eps := 0.05 * a.scaleMax

	var effects []models.InteractionEffect
	for i := 0; i < len(matrix.names); i++ {
		for j := i + 1; j < len(matrix.names); j++ {
			nameA, nameB := matrix.names[i], matrix.names[j]

			var both, aloneA, aloneB []float64
			for k, e := range entries {
				hasA := matrix.present(nameA, k)
				hasB := matrix.present(nameB, k)
				switch {
				case hasA && hasB:
					both = append(both, e.Severity)
				case hasA:
					aloneA = append(aloneA, e.Severity)
				case hasB:
					aloneB = append(aloneB, e.Severity)
				}
			}

			if len(both) < a.minCellCount || len(aloneA) < a.minCellCount || len(aloneB) < a.minCellCount {
				continue
			}

			bothMean := mean(both)
			aloneAMean := mean(aloneA)
			aloneBMean := mean(aloneB)
			expected := aloneAMean + aloneBMean - overall

			var kind models.InteractionKind
			switch {
			case bothMean > expected+eps:
				kind = models.InteractionSynergistic
			case bothMean < expected-eps:
				kind = models.InteractionAntagonistic
			default:
				continue
			}

			effects = append(effects, models.InteractionEffect{
				CovariateA:   nameA,
				CovariateB:   nameB,
				BothMean:     bothMean,
				AloneAMean:   aloneAMean,
				AloneBMean:   aloneBMean,
				ExpectedMean: expected,
				Kind:         kind,
				CellCount:    len(both),
				Confidence:   clamp(float64(len(both))/10, 0, 1),
				Description:  interactionDescription(nameA, nameB, kind, bothMean, expected),
			})
		}
	}

	sort.Slice(effects, func(i, j int) bool {
		return math.Abs(effects[i].BothMean-effects[i].ExpectedMean) > math.Abs(effects[j].BothMean-effects[j].ExpectedMean)
	})
	if len(effects) > maxReportedFindings {
		effects = effects[:maxReportedFindings]
	}
	return effects
}

func interactionDescription(a, b string, kind models.InteractionKind, bothMean, expected float64) string {
	if kind == models.InteractionSynergistic {
		return fmt.Sprintf("%s together with %s is associated with severity %.1f, above the %.1f the two would suggest separately", a, b, bothMean, expected)
	}
	return fmt.Sprintf("%s together with %s is associated with severity %.1f, below the %.1f the two would suggest separately", a, b, bothMean, expected)
}

// compoundPatterns enumerates 2- and 3-term conjunctions of covariates
// and reports those with enough support whose conditional mean
// deviates from the overall mean by more than one standard deviation.
func (a *multiVariateAnalyzer) compoundPatterns(entries []models.Entry, matrix *covariateMatrix) []models.CompoundPattern {
	ys := severities(entries)
	overall := mean(ys)
	sd := stdDev(ys)
	if sd == 0 {
		return nil
	}

	// Covariates that cannot reach the support threshold on their own
	// cannot appear in any qualifying conjunction.
	var candidates []string
	for _, name := range matrix.names {
		count := 0
		for i := range entries {
			if matrix.present(name, i) {
				count++
			}
		}
		if count >= a.minSupport {
			candidates = append(candidates, name)
		}
	}

	var patterns []models.CompoundPattern
	evaluate := func(conditions []string) {
		var matched []float64
		for i, e := range entries {
			ok := true
			for _, c := range conditions {
				if !matrix.present(c, i) {
					ok = false
					break
				}
			}
			if ok {
				matched = append(matched, e.Severity)
			}
		}
		if len(matched) < a.minSupport {
			return
		}
		condMean := mean(matched)
		deviation := condMean - overall
		if math.Abs(deviation) <= sd {
			return
		}
		patterns = append(patterns, models.CompoundPattern{
			Conditions:      append([]string(nil), conditions...),
			Support:         len(matched),
			ConditionalMean: condMean,
			OverallMean:     overall,
			Deviation:       deviation,
			Confidence:      clamp(float64(len(matched))/10, 0, 1),
			Recommendation:  patternRecommendation(conditions, deviation),
		})
	}

	for i := 0; i < len(candidates); i++ {
		for j := i + 1; j < len(candidates); j++ {
			evaluate([]string{candidates[i], candidates[j]})
			for k := j + 1; k < len(candidates); k++ {
				evaluate([]string{candidates[i], candidates[j], candidates[k]})
			}
		}
	}

	sort.Slice(patterns, func(i, j int) bool {
		return math.Abs(patterns[i].Deviation) > math.Abs(patterns[j].Deviation)
	})
	if len(patterns) > maxReportedFindings {
		patterns = patterns[:maxReportedFindings]
	}
	return patterns
}

func patternRecommendation(conditions []string, deviation float64) string {
	joined := strings.Join(conditions, " and ")
	if deviation > 0 {
		return fmt.Sprintf("Entries with %s tend to run more severe than usual; it may be worth reviewing what these days have in common", joined)
	}
	return fmt.Sprintf("Entries with %s tend to run less severe than usual; this combination may be worth keeping up", joined)
}

// causalHints looks for covariates that precede elevated severity in
// consecutive entries. A hint is reported only when the lift is
// repeatable across enough independent pairs and the ordering never
// reverses in the observed data. It is a weak directional hint, never
// a certainty.
func (a *multiVariateAnalyzer) causalHints(entries []models.Entry, matrix *covariateMatrix) []models.CausalHint {
	if len(entries) < 2 {
		return nil
	}

	ys := severities(entries)
	overall := mean(ys)
	sd := stdDev(ys)
	if sd == 0 {
		return nil
	}
	elevated := func(i int) bool { return entries[i].Severity > overall+sd }

	// A pair counts only when the two entries fall within one logging
	// cycle of each other, taken as twice the typical interval.
	cycle := 2 * typicalInterval(entries)
	pairedWithin := func(i int) bool {
		return entries[i+1].Timestamp.Sub(entries[i].Timestamp) <= cycle
	}

	var marginalElevated int
	for i := range entries {
		if elevated(i) {
			marginalElevated++
		}
	}
	marginal := float64(marginalElevated) / float64(len(entries))
	if marginal == 0 {
		return nil
	}

	var hints []models.CausalHint
	for _, name := range matrix.names {
		var pairs, hits, reversed int
		for i := 0; i < len(entries)-1; i++ {
			if !pairedWithin(i) {
				continue
			}
			if matrix.present(name, i) {
				pairs++
				if elevated(i + 1) {
					hits++
				}
			}
			if elevated(i) && matrix.present(name, i+1) && !matrix.present(name, i) {
				reversed++
			}
		}

		if pairs < a.minPairCount || hits < a.minPairCount || reversed > 0 {
			continue
		}

		conditional := float64(hits) / float64(pairs)
		lift := conditional / marginal
		if lift <= 1 {
			continue
		}

		hints = append(hints, models.CausalHint{
			Cause:       name,
			Effect:      "elevated severity",
			Lift:        lift,
			PairCount:   pairs,
			Confidence:  clamp(float64(hits)/10, 0, 0.7),
			Description: fmt.Sprintf("%s preceded elevated severity in %d of %d pairs (%.1fx the base rate); association only, not a proven cause", name, hits, pairs, lift),
		})
	}

	sort.Slice(hints, func(i, j int) bool { return hints[i].Lift > hints[j].Lift })
	if len(hints) > maxReportedFindings {
		hints = hints[:maxReportedFindings]
	}
	return hints
}
