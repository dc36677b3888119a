package models

import "time"

// SeverityScaleMax is the default upper bound of the severity scale.
// The effective bound is injected through config; this is the fallback.
const SeverityScaleMax = 10.0

// TagCategory classifies a tag. The set is closed but extensible:
// user-entered vocabulary that matches no known category lands in
// CategoryOther with the original string preserved.
type TagCategory string

const (
	CategorySymptom  TagCategory = "symptom"
	CategoryLocation TagCategory = "location"
	CategoryTrigger  TagCategory = "trigger"
	CategoryOther    TagCategory = "other"
)

// KnownCategories lists the categories a client may submit directly.
var KnownCategories = []TagCategory{
	CategorySymptom,
	CategoryLocation,
	CategoryTrigger,
}

// ParseTagCategory maps a raw category string to a TagCategory,
// falling back to CategoryOther for anything unrecognized.
func ParseTagCategory(raw string) TagCategory {
	for _, c := range KnownCategories {
		if string(c) == raw {
			return c
		}
	}
	return CategoryOther
}

// Tag is one categorical label on an entry. Value is open vocabulary;
// duplicates within an entry are allowed (multiplicity carries signal).
type Tag struct {
	Category TagCategory `json:"category"`
	Value    string      `json:"value"`
}

// SleepBucket buckets self-reported sleep quality.
type SleepBucket string

const (
	SleepPoor SleepBucket = "poor"
	SleepFair SleepBucket = "fair"
	SleepGood SleepBucket = "good"
)

// StressBucket buckets self-reported stress level.
type StressBucket string

const (
	StressLow    StressBucket = "low"
	StressMedium StressBucket = "medium"
	StressHigh   StressBucket = "high"
)

// ContextSignals holds optional context captured alongside an entry.
// Nil pointers mean the user did not report the signal, which is
// distinct from reporting an empty value.
type ContextSignals struct {
	Sleep  *SleepBucket  `json:"sleep,omitempty"`
	Stress *StressBucket `json:"stress,omitempty"`
}

// Intervention records something the user did in response to symptoms.
type Intervention struct {
	Name    string     `json:"name"`
	TakenAt *time.Time `json:"taken_at,omitempty"`
	Notes   *string    `json:"notes,omitempty"`
}

// Entry is one user-submitted health observation. History-preserving
// fields are never mutated in place: corrections create a new entry
// whose SupersedesID references the original.
type Entry struct {
	ID            string          `json:"id"`
	Timestamp     time.Time       `json:"timestamp"`
	Severity      float64         `json:"severity"`
	Tags          []Tag           `json:"tags,omitempty"`
	Note          *string         `json:"note,omitempty"`
	Interventions []Intervention  `json:"interventions,omitempty"`
	Context       *ContextSignals `json:"context,omitempty"`
	SupersedesID  *string         `json:"supersedes_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	// Legacy holds fields from older schema versions that have no
	// mapping in the current layout. Migrations park data here rather
	// than dropping it.
	Legacy map[string]any `json:"legacy,omitempty"`
}

// HasTag reports whether the entry carries at least one tag with the
// given category and value.
func (e *Entry) HasTag(category TagCategory, value string) bool {
	for _, t := range e.Tags {
		if t.Category == category && t.Value == value {
			return true
		}
	}
	return false
}

// HasIntervention reports whether any intervention was recorded.
func (e *Entry) HasIntervention() bool {
	return len(e.Interventions) > 0
}

// CreateEntryRequest is the draft submitted by the UI collaborator.
// Timestamp is optional; the repository assigns the current UTC time
// when it is absent.
type CreateEntryRequest struct {
	Severity      *float64        `json:"severity" binding:"required"`
	Timestamp     *time.Time      `json:"timestamp"`
	Tags          []Tag           `json:"tags"`
	Note          *string         `json:"note"`
	Interventions []Intervention  `json:"interventions"`
	Context       *ContextSignals `json:"context"`
}

// SupersedeEntryRequest is a partial correction draft. Fields absent
// from the JSON document keep the original entry's values; an explicit
// null note clears it. Severity and timestamp can be replaced but
// never cleared. A present slice replaces the original list entirely,
// so an empty one clears it.
type SupersedeEntryRequest struct {
	Severity      NullableFloat64 `json:"severity"`
	Timestamp     NullableTime    `json:"timestamp"`
	Note          NullableString  `json:"note"`
	Tags          *[]Tag          `json:"tags"`
	Interventions *[]Intervention `json:"interventions"`
	Context       *ContextSignals `json:"context"`
}

// ExportFieldSelection names the entry fields included in an export
// snapshot. Use FullExport for the everything-included default.
type ExportFieldSelection struct {
	IncludeNotes         bool `json:"include_notes"`
	IncludeTags          bool `json:"include_tags"`
	IncludeInterventions bool `json:"include_interventions"`
	IncludeContext       bool `json:"include_context"`
}

// FullExport selects every field for export.
func FullExport() ExportFieldSelection {
	return ExportFieldSelection{
		IncludeNotes:         true,
		IncludeTags:          true,
		IncludeInterventions: true,
		IncludeContext:       true,
	}
}
