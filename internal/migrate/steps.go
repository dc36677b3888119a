package migrate

import (
	"encoding/json"
	"fmt"
	"strings"
)

func builtinSteps() []Step {
	return []Step{
		{
			From:        0,
			Description: "split flat symptom/location/med lists into typed tags and interventions",
			Apply:       migrateV0toV1,
		},
		{
			From:        1,
			Description: "lift sleep/stress out of the loose meta map into typed context buckets",
			Apply:       migrateV1toV2,
		},
	}
}

// v0 documents carried bare string lists. Field mapping:
//
//	symptoms[]  -> tags[{category: symptom, value}]
//	locations[] -> tags[{category: location, value}]
//	meds[]      -> interventions[{name}]
//	id, timestamp, severity, note, created_at, supersedes_id pass through
//	meta passes through untouched; the v1->v2 step owns it
//	anything else -> legacy bag
func migrateV0toV1(payload []byte) ([]byte, error) {
	var doc map[string]any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("decode v0 payload: %w", err)
	}

	out := make(map[string]any)
	legacy := make(map[string]any)

	passthrough := map[string]bool{
		"id": true, "timestamp": true, "severity": true,
		"note": true, "created_at": true, "supersedes_id": true,
		"meta": true,
	}

	var tags []map[string]any
	for _, v := range stringList(doc["symptoms"]) {
		tags = append(tags, map[string]any{"category": "symptom", "value": v})
	}
	for _, v := range stringList(doc["locations"]) {
		tags = append(tags, map[string]any{"category": "location", "value": v})
	}
	if len(tags) > 0 {
		out["tags"] = tags
	}

	var interventions []map[string]any
	for _, v := range stringList(doc["meds"]) {
		interventions = append(interventions, map[string]any{"name": v})
	}
	if len(interventions) > 0 {
		out["interventions"] = interventions
	}

	for k, v := range doc {
		switch {
		case passthrough[k]:
			out[k] = v
		case k == "symptoms" || k == "locations" || k == "meds":
			// mapped above
		case k == "legacy":
			mergeLegacy(legacy, v)
		default:
			legacy[k] = v
		}
	}

	if len(legacy) > 0 {
		out["legacy"] = legacy
	}
	return json.Marshal(out)
}

// v1 documents carried a loose "meta" map. Field mapping:
//
//	meta.sleep  -> context.sleep  (normalized to poor/fair/good)
//	meta.stress -> context.stress (normalized to low/medium/high)
//	unrecognized meta values or keys -> legacy bag, prefixed "meta."
//	every other field passes through
func migrateV1toV2(payload []byte) ([]byte, error) {
	var doc map[string]any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("decode v1 payload: %w", err)
	}

	out := make(map[string]any)
	legacy := make(map[string]any)

	for k, v := range doc {
		switch k {
		case "meta":
			// handled below
		case "legacy":
			mergeLegacy(legacy, v)
		default:
			out[k] = v
		}
	}

	if meta, ok := doc["meta"].(map[string]any); ok {
		ctx := make(map[string]any)
		for k, v := range meta {
			raw, isString := v.(string)
			switch {
			case k == "sleep" && isString:
				if bucket, ok := normalizeSleep(raw); ok {
					ctx["sleep"] = bucket
					continue
				}
				legacy["meta.sleep"] = v
			case k == "stress" && isString:
				if bucket, ok := normalizeStress(raw); ok {
					ctx["stress"] = bucket
					continue
				}
				legacy["meta.stress"] = v
			default:
				legacy["meta."+k] = v
			}
		}
		if len(ctx) > 0 {
			out["context"] = ctx
		}
	}

	if len(legacy) > 0 {
		out["legacy"] = legacy
	}
	return json.Marshal(out)
}

func normalizeSleep(raw string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "poor", "bad", "terrible":
		return "poor", true
	case "fair", "ok", "okay", "average":
		return "fair", true
	case "good", "great", "excellent":
		return "good", true
	}
	return "", false
}

func normalizeStress(raw string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "low", "calm", "none":
		return "low", true
	case "medium", "moderate":
		return "medium", true
	case "high", "severe":
		return "high", true
	}
	return "", false
}

func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

func mergeLegacy(dst map[string]any, v any) {
	if bag, ok := v.(map[string]any); ok {
		for k, val := range bag {
			dst[k] = val
		}
	}
}
