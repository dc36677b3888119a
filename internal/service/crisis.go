package service

import (
	"fmt"

	"github.com/quillhealth/quill/internal/config"
	"github.com/quillhealth/quill/internal/models"
)

type crisisDetector struct {
	windowDays int
	ratio      float64
	minDelta   float64
}

// NewCrisisDetector creates a crisis detector with the configured
// window and thresholds. The numeric thresholds are heuristic
// placeholders, not clinically validated constants.
func NewCrisisDetector(cfg config.AnalyticsConfig) CrisisDetector {
	return &crisisDetector{
		windowDays: cfg.CrisisWindowDays,
		ratio:      cfg.CrisisRatio,
		minDelta:   cfg.CrisisMinDelta,
	}
}

// Detect compares the most recent entry against the mean of the rest
// of the window. The signal fires when the latest severity exceeds the
// baseline by both the configured ratio and the configured absolute
// delta; with a zero baseline only the absolute delta against the
// earliest entry applies. Fewer than 2 entries in the window is
// deterministically not detected.
func (d *crisisDetector) Detect(entries []models.Entry) *models.CrisisSignal {
	signal := &models.CrisisSignal{
		RatioUsed:    d.ratio,
		MinDeltaUsed: d.minDelta,
		WindowDays:   d.windowDays,
	}

	if len(entries) == 0 {
		signal.Explanations = []string{"no entries in window"}
		return signal
	}

	window := lookbackWindow(sortedCopy(entries), d.windowDays)
	signal.SampleSize = len(window)

	if len(window) < 2 {
		signal.Explanations = []string{"fewer than 2 entries in window"}
		return signal
	}

	latest := window[len(window)-1].Severity
	earliest := window[0].Severity
	baseline := mean(severities(window[:len(window)-1]))

	signal.Latest = latest
	signal.Baseline = baseline
	signal.Delta = latest - baseline
	if baseline > 0 {
		signal.Ratio = latest / baseline
	}

	switch {
	case baseline > 0:
		if latest >= baseline*d.ratio && latest-baseline >= d.minDelta {
			signal.Detected = true
			signal.Explanations = []string{
				fmt.Sprintf("latest severity %.1f is %.1fx the baseline %.1f (threshold %.1fx)", latest, signal.Ratio, baseline, d.ratio),
				fmt.Sprintf("increase of %.1f meets the minimum of %.1f", signal.Delta, d.minDelta),
			}
		} else {
			signal.Explanations = []string{
				fmt.Sprintf("latest severity %.1f within %.1fx of baseline %.1f or increase below %.1f", latest, d.ratio, baseline, d.minDelta),
			}
		}
	default:
		// No usable baseline: fall back to the spread across the window.
		if latest-earliest >= d.minDelta {
			signal.Detected = true
			signal.Delta = latest - earliest
			signal.Explanations = []string{
				fmt.Sprintf("severity rose %.1f from the earliest entry with no prior baseline", signal.Delta),
			}
		} else {
			signal.Explanations = []string{"no prior baseline and spread below the minimum increase"}
		}
	}

	return signal
}
