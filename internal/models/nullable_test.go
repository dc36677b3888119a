package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNullableString_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name      string
		json      string
		wantSet   bool
		wantValid bool
		wantValue string
	}{
		{
			name:      "present with value",
			json:      `{"note": "throbbing"}`,
			wantSet:   true,
			wantValid: true,
			wantValue: "throbbing",
		},
		{
			name:      "present with null",
			json:      `{"note": null}`,
			wantSet:   true,
			wantValid: false,
			wantValue: "",
		},
		{
			name:      "absent",
			json:      `{}`,
			wantSet:   false,
			wantValid: false,
			wantValue: "",
		},
		{
			name:      "present with empty string",
			json:      `{"note": ""}`,
			wantSet:   true,
			wantValid: true,
			wantValue: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var result struct {
				Note NullableString `json:"note"`
			}
			if err := json.Unmarshal([]byte(tt.json), &result); err != nil {
				t.Fatalf("Unmarshal error: %v", err)
			}

			if result.Note.Set != tt.wantSet {
				t.Errorf("Set = %v, want %v", result.Note.Set, tt.wantSet)
			}
			if result.Note.Valid != tt.wantValid {
				t.Errorf("Valid = %v, want %v", result.Note.Valid, tt.wantValid)
			}
			if result.Note.Value != tt.wantValue {
				t.Errorf("Value = %q, want %q", result.Note.Value, tt.wantValue)
			}
		})
	}
}

func TestNullableFloat64_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name      string
		json      string
		wantSet   bool
		wantValid bool
		wantValue float64
	}{
		{
			name:      "present with value",
			json:      `{"severity": 6.5}`,
			wantSet:   true,
			wantValid: true,
			wantValue: 6.5,
		},
		{
			name:      "present with zero",
			json:      `{"severity": 0}`,
			wantSet:   true,
			wantValid: true,
			wantValue: 0,
		},
		{
			name:      "present with null",
			json:      `{"severity": null}`,
			wantSet:   true,
			wantValid: false,
		},
		{
			name:    "absent",
			json:    `{}`,
			wantSet: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var result struct {
				Severity NullableFloat64 `json:"severity"`
			}
			if err := json.Unmarshal([]byte(tt.json), &result); err != nil {
				t.Fatalf("Unmarshal error: %v", err)
			}

			if result.Severity.Set != tt.wantSet {
				t.Errorf("Set = %v, want %v", result.Severity.Set, tt.wantSet)
			}
			if result.Severity.Valid != tt.wantValid {
				t.Errorf("Valid = %v, want %v", result.Severity.Valid, tt.wantValid)
			}
			if result.Severity.Value != tt.wantValue {
				t.Errorf("Value = %v, want %v", result.Severity.Value, tt.wantValue)
			}
		})
	}
}

func TestNullableString_MarshalJSON(t *testing.T) {
	doc := struct {
		Note NullableString `json:"note"`
	}{
		Note: NullableString{Value: "after coffee", Valid: true, Set: true},
	}

	out, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if string(out) != `{"note":"after coffee"}` {
		t.Errorf("got %s", out)
	}

	doc.Note = NullableString{Set: true}
	out, err = json.Marshal(doc)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if string(out) != `{"note":null}` {
		t.Errorf("got %s", out)
	}
}

func TestNullableTime_RoundTrip(t *testing.T) {
	ts := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	doc := struct {
		TakenAt NullableTime `json:"taken_at"`
	}{
		TakenAt: NullableTime{Value: ts, Valid: true, Set: true},
	}

	out, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	var back struct {
		TakenAt NullableTime `json:"taken_at"`
	}
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}

	if !back.TakenAt.Set || !back.TakenAt.Valid {
		t.Fatalf("expected set and valid, got %+v", back.TakenAt)
	}
	if !back.TakenAt.Value.Equal(ts) {
		t.Errorf("Value = %v, want %v", back.TakenAt.Value, ts)
	}
}
