package repository

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillhealth/quill/internal/crypto"
	"github.com/quillhealth/quill/internal/migrate"
	"github.com/quillhealth/quill/internal/models"
	"github.com/quillhealth/quill/internal/store"
)

type fixture struct {
	repo    EntryRepository
	store   *store.Store
	gateway *crypto.Gateway
	dir     string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dir := t.TempDir()
	s, err := store.Open(filepath.Join(dir, "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	var key crypto.Key
	_, err = rand.Read(key[:])
	require.NoError(t, err)
	gw, err := crypto.NewGateway(key)
	require.NoError(t, err)

	return &fixture{
		repo:    NewEntryRepository(s, gw, migrate.New(), 10),
		store:   s,
		gateway: gw,
		dir:     dir,
	}
}

func severity(v float64) *float64 { return &v }

func draft(sev float64, ts time.Time) *models.CreateEntryRequest {
	return &models.CreateEntryRequest{Severity: severity(sev), Timestamp: &ts}
}

// correction builds a partial supersede body from raw JSON, so the
// tri-state absent/null/value handling is exercised the way a client
// would hit it.
func correction(t *testing.T, body string) *models.SupersedeEntryRequest {
	t.Helper()
	var req models.SupersedeEntryRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	return &req
}

// putRaw stores an arbitrary payload encrypted at the given schema
// version, bypassing the repository write path.
func (f *fixture) putRaw(t *testing.T, id string, version int, ts time.Time, payload map[string]any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	ciphertext, nonce, tag, err := f.gateway.Encrypt(raw)
	require.NoError(t, err)
	require.NoError(t, f.store.Put(context.Background(), &store.StoredRecord{
		ID:            id,
		SchemaVersion: version,
		Timestamp:     ts,
		Nonce:         nonce,
		Tag:           tag,
		Ciphertext:    ciphertext,
	}))
}

func TestEntryRepository_AppendReadRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	note := "slept badly, headache by noon"
	ts := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
	created, err := f.repo.Append(ctx, &models.CreateEntryRequest{
		Severity:  severity(6),
		Timestamp: &ts,
		Note:      &note,
		Tags: []models.Tag{
			{Category: models.CategorySymptom, Value: "headache"},
			{Category: "weather", Value: "humid"},
		},
		Interventions: []models.Intervention{{Name: "ibuprofen"}},
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	got, err := f.repo.Get(ctx, created.ID)
	require.NoError(t, err)

	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, 6.0, got.Severity)
	assert.True(t, got.Timestamp.Equal(ts))
	require.NotNil(t, got.Note)
	assert.Equal(t, note, *got.Note)
	require.Len(t, got.Tags, 2)
	assert.Equal(t, models.CategorySymptom, got.Tags[0].Category)
	// Unknown categories fold into "other" with the value preserved.
	assert.Equal(t, models.CategoryOther, got.Tags[1].Category)
	assert.Equal(t, "humid", got.Tags[1].Value)
	assert.True(t, got.HasIntervention())
}

func TestEntryRepository_RejectsMalformedDrafts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		req   *models.CreateEntryRequest
		field string
	}{
		{
			name:  "missing severity",
			req:   &models.CreateEntryRequest{},
			field: "severity",
		},
		{
			name:  "severity above scale",
			req:   &models.CreateEntryRequest{Severity: severity(11)},
			field: "severity",
		},
		{
			name:  "negative severity",
			req:   &models.CreateEntryRequest{Severity: severity(-1)},
			field: "severity",
		},
		{
			name: "far-future timestamp",
			req: func() *models.CreateEntryRequest {
				ts := time.Now().Add(48 * time.Hour)
				return &models.CreateEntryRequest{Severity: severity(5), Timestamp: &ts}
			}(),
			field: "timestamp",
		},
		{
			name: "blank tag value",
			req: &models.CreateEntryRequest{
				Severity: severity(5),
				Tags:     []models.Tag{{Category: models.CategorySymptom, Value: "  "}},
			},
			field: "tags[0].value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.repo.Append(ctx, tt.req)
			var validation *ValidationError
			require.ErrorAs(t, err, &validation)
			require.NotEmpty(t, validation.Fields)
			assert.Equal(t, tt.field, validation.Fields[0].Field)
		})
	}

	// Nothing persisted.
	entries, issues, err := f.repo.ListSince(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Empty(t, issues)
}

func TestEntryRepository_ListSinceOrdersAndBounds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		_, err := f.repo.Append(ctx, draft(float64(i+1), base.AddDate(0, 0, i)))
		require.NoError(t, err)
	}

	since := base.AddDate(0, 0, 2)
	entries, issues, err := f.repo.ListSince(ctx, &since)
	require.NoError(t, err)
	assert.Empty(t, issues)
	require.Len(t, entries, 3)
	for i := 1; i < len(entries); i++ {
		assert.True(t, entries[i-1].Timestamp.Before(entries[i].Timestamp))
	}
}

func TestEntryRepository_SupersedeKeepsOriginalForAudit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ts := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	original, err := f.repo.Append(ctx, draft(8, ts))
	require.NoError(t, err)

	corrected, err := f.repo.Supersede(ctx, original.ID, correction(t, `{"severity": 5}`))
	require.NoError(t, err)
	require.NotNil(t, corrected.SupersedesID)
	assert.Equal(t, original.ID, *corrected.SupersedesID)
	assert.NotEqual(t, original.ID, corrected.ID)
	assert.Equal(t, 5.0, corrected.Severity)
	assert.True(t, corrected.Timestamp.Equal(ts))

	// Both records remain readable.
	kept, err := f.repo.Get(ctx, original.ID)
	require.NoError(t, err)
	assert.Equal(t, 8.0, kept.Severity)

	entries, _, err := f.repo.ListSince(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestEntryRepository_SupersedeMissingOriginal(t *testing.T) {
	f := newFixture(t)

	_, err := f.repo.Supersede(context.Background(), "no-such-id", correction(t, `{"severity": 5}`))
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestEntryRepository_SupersedeDistinguishesClearFromKeep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ts := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	note := "took the stairs, regretted it"
	original, err := f.repo.Append(ctx, &models.CreateEntryRequest{
		Severity:  severity(8),
		Timestamp: &ts,
		Note:      &note,
		Tags:      []models.Tag{{Category: models.CategorySymptom, Value: "knee pain"}},
	})
	require.NoError(t, err)

	// Leaving the note out keeps it.
	kept, err := f.repo.Supersede(ctx, original.ID, correction(t, `{"severity": 5}`))
	require.NoError(t, err)
	assert.Equal(t, 5.0, kept.Severity)
	require.NotNil(t, kept.Note)
	assert.Equal(t, note, *kept.Note)
	assert.Len(t, kept.Tags, 1)

	// An explicit null clears it; everything else carries over.
	cleared, err := f.repo.Supersede(ctx, original.ID, correction(t, `{"note": null}`))
	require.NoError(t, err)
	assert.Nil(t, cleared.Note)
	assert.Equal(t, 8.0, cleared.Severity)
	assert.Len(t, cleared.Tags, 1)

	// A new value replaces it.
	replaced, err := f.repo.Supersede(ctx, original.ID, correction(t, `{"note": "actually the elevator"}`))
	require.NoError(t, err)
	require.NotNil(t, replaced.Note)
	assert.Equal(t, "actually the elevator", *replaced.Note)

	// An empty tag list clears the tags.
	untagged, err := f.repo.Supersede(ctx, original.ID, correction(t, `{"tags": []}`))
	require.NoError(t, err)
	assert.Empty(t, untagged.Tags)
}

func TestEntryRepository_SupersedeRejectsBadOverrides(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	original, err := f.repo.Append(ctx, draft(4, time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"null severity", `{"severity": null}`, "severity"},
		{"severity above scale", `{"severity": 11}`, "severity"},
		{"null timestamp", `{"timestamp": null}`, "timestamp"},
		{"blank tag value", `{"tags": [{"category": "symptom", "value": " "}]}`, "tags[0].value"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.repo.Supersede(ctx, original.ID, correction(t, tt.body))
			var validation *ValidationError
			require.ErrorAs(t, err, &validation)
			assert.Equal(t, tt.field, validation.Fields[0].Field)
		})
	}

	// Only the original remains.
	entries, _, err := f.repo.ListSince(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestEntryRepository_DeleteMissing(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.repo.Delete(context.Background(), "no-such-id"), store.ErrNotFound)
}

func TestEntryRepository_CorruptRecordExcludedNotFatal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	good, err := f.repo.Append(ctx, draft(4, base))
	require.NoError(t, err)

	// A record whose tag cannot authenticate.
	require.NoError(t, f.store.Put(ctx, &store.StoredRecord{
		ID:            "tampered",
		SchemaVersion: migrate.CurrentVersion,
		Timestamp:     base.Add(time.Hour),
		Nonce:         make([]byte, 24),
		Tag:           make([]byte, 16),
		Ciphertext:    []byte("garbage"),
	}))

	entries, issues, err := f.repo.ListSince(ctx, nil)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, good.ID, entries[0].ID)
	require.Len(t, issues, 1)
	assert.Equal(t, "tampered", issues[0].ID)

	var corrupt *store.CorruptRecordError
	assert.ErrorAs(t, issues[0].Err, &corrupt)

	_, err = f.repo.Get(ctx, "tampered")
	assert.ErrorAs(t, err, &corrupt)
}

func TestEntryRepository_LazyMigrationWithWriteBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ts := time.Date(2024, 11, 2, 21, 0, 0, 0, time.UTC)

	f.putRaw(t, "old-entry", 0, ts, map[string]any{
		"id":        "old-entry",
		"timestamp": ts.Format(time.RFC3339),
		"severity":  7,
		"symptoms":  []string{"nausea"},
		"meds":      []string{"ondansetron"},
		"meta":      map[string]any{"sleep": "Bad", "stress": "severe"},
		"weather":   "stormy",
	})

	got, err := f.repo.Get(ctx, "old-entry")
	require.NoError(t, err)
	assert.Equal(t, 7.0, got.Severity)
	assert.True(t, got.HasTag(models.CategorySymptom, "nausea"))
	assert.True(t, got.HasIntervention())
	require.NotNil(t, got.Context)
	require.NotNil(t, got.Context.Sleep)
	assert.Equal(t, models.SleepPoor, *got.Context.Sleep)
	require.NotNil(t, got.Context.Stress)
	assert.Equal(t, models.StressHigh, *got.Context.Stress)
	// Unmappable fields survive in the legacy bag.
	assert.Equal(t, "stormy", got.Legacy["weather"])

	// The write-back upgraded the stored version.
	rec, err := f.store.Get(ctx, "old-entry")
	require.NoError(t, err)
	assert.Equal(t, migrate.CurrentVersion, rec.SchemaVersion)
}

func TestEntryRepository_MigrateAllSnapshotsFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := time.Date(2024, 11, 2, 21, 0, 0, 0, time.UTC)

	f.putRaw(t, "v0-entry", 0, base, map[string]any{
		"id": "v0-entry", "timestamp": base.Format(time.RFC3339), "severity": 3,
	})
	f.putRaw(t, "v1-entry", 1, base.Add(time.Hour), map[string]any{
		"id": "v1-entry", "timestamp": base.Add(time.Hour).Format(time.RFC3339), "severity": 4,
		"meta": map[string]any{"stress": "low"},
	})
	_, err := f.repo.Append(ctx, draft(5, base.Add(2*time.Hour)))
	require.NoError(t, err)

	migrated, snapshotPath, err := f.repo.MigrateAll(ctx, f.dir)
	require.NoError(t, err)
	assert.Equal(t, 2, migrated)

	// Snapshot captures the pre-migration state of all three records.
	records, err := migrate.ReadSnapshot(snapshotPath)
	require.NoError(t, err)
	require.Len(t, records, 3)
	versions := map[string]int{}
	for _, rec := range records {
		versions[rec.ID] = rec.SchemaVersion
	}
	assert.Equal(t, 0, versions["v0-entry"])
	assert.Equal(t, 1, versions["v1-entry"])

	// Running again finds nothing left to migrate.
	migrated, _, err = f.repo.MigrateAll(ctx, f.dir)
	require.NoError(t, err)
	assert.Zero(t, migrated)
}

func TestEntryRepository_ExportSnapshotFieldSelection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ts := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	note := "private detail"
	sleep := models.SleepGood
	_, err := f.repo.Append(ctx, &models.CreateEntryRequest{
		Severity:      severity(5),
		Timestamp:     &ts,
		Note:          &note,
		Tags:          []models.Tag{{Category: models.CategorySymptom, Value: "fatigue"}},
		Interventions: []models.Intervention{{Name: "nap"}},
		Context:       &models.ContextSignals{Sleep: &sleep},
	})
	require.NoError(t, err)

	sel := models.FullExport()
	sel.IncludeNotes = false
	sel.IncludeInterventions = false

	entries, err := f.repo.ExportSnapshot(ctx, nil, nil, sel)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	assert.Nil(t, entries[0].Note)
	assert.Empty(t, entries[0].Interventions)
	assert.NotEmpty(t, entries[0].Tags)
	assert.NotNil(t, entries[0].Context)
	assert.Equal(t, 5.0, entries[0].Severity)
}

func TestEntryRepository_ExportSnapshotDateRange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		_, err := f.repo.Append(ctx, draft(3, base.AddDate(0, 0, i)))
		require.NoError(t, err)
	}

	from := base.AddDate(0, 0, 1)
	to := base.AddDate(0, 0, 2)
	entries, err := f.repo.ExportSnapshot(ctx, &from, &to, models.FullExport())
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestEntryRepository_MigrationFailureLeavesOriginal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ts := time.Date(2024, 11, 2, 21, 0, 0, 0, time.UTC)

	// A v0 payload that is not valid JSON fails its migration step.
	raw := []byte("{not json")
	ciphertext, nonce, tag, err := f.gateway.Encrypt(raw)
	require.NoError(t, err)
	require.NoError(t, f.store.Put(ctx, &store.StoredRecord{
		ID:            "broken",
		SchemaVersion: 0,
		Timestamp:     ts,
		Nonce:         nonce,
		Tag:           tag,
		Ciphertext:    ciphertext,
	}))

	_, err = f.repo.Get(ctx, "broken")
	var failed *migrate.FailedError
	require.True(t, errors.As(err, &failed))

	// The stored record is untouched at its original version.
	rec, err := f.store.Get(ctx, "broken")
	require.NoError(t, err)
	assert.Equal(t, 0, rec.SchemaVersion)

	// And a list read excludes it instead of aborting.
	entries, issues, err := f.repo.ListSince(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, entries)
	require.Len(t, issues, 1)
	assert.Equal(t, "broken", issues[0].ID)
}
