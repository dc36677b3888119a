package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quillhealth/quill/internal/crypto"
	"github.com/quillhealth/quill/internal/logger"
	"github.com/quillhealth/quill/internal/migrate"
	"github.com/quillhealth/quill/internal/models"
	"github.com/quillhealth/quill/internal/store"
)

// maxFutureSkew is how far ahead of the device clock an entry
// timestamp may be before it is rejected.
const maxFutureSkew = 5 * time.Minute

type entryRepository struct {
	store    *store.Store
	gateway  *crypto.Gateway
	migrator *migrate.Migrator
	scaleMax float64
}

// NewEntryRepository creates the domain-aware layer over the record
// store. severityScaleMax bounds the accepted severity values.
func NewEntryRepository(s *store.Store, gw *crypto.Gateway, m *migrate.Migrator, severityScaleMax float64) EntryRepository {
	return &entryRepository{
		store:    s,
		gateway:  gw,
		migrator: m,
		scaleMax: severityScaleMax,
	}
}

func (r *entryRepository) Append(ctx context.Context, req *models.CreateEntryRequest) (*models.Entry, error) {
	entry, err := r.buildEntry(req)
	if err != nil {
		return nil, err
	}
	if err := r.seal(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// buildEntry validates a draft and assigns identity and timestamps.
func (r *entryRepository) buildEntry(req *models.CreateEntryRequest) (*models.Entry, error) {
	if err := r.validateDraft(req); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	ts := now
	if req.Timestamp != nil {
		ts = req.Timestamp.UTC()
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate entry id: %w", err)
	}

	return &models.Entry{
		ID:            id.String(),
		Timestamp:     ts,
		Severity:      *req.Severity,
		Tags:          normalizeTags(req.Tags),
		Note:          req.Note,
		Interventions: req.Interventions,
		Context:       req.Context,
		CreatedAt:     now,
	}, nil
}

func (r *entryRepository) Get(ctx context.Context, id string) (*models.Entry, error) {
	rec, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.open(ctx, rec)
}

func (r *entryRepository) ListSince(ctx context.Context, since *time.Time) ([]models.Entry, []RecordIssue, error) {
	return r.collect(ctx, store.ScanOptions{Since: since})
}

func (r *entryRepository) Supersede(ctx context.Context, originalID string, req *models.SupersedeEntryRequest) (*models.Entry, error) {
	// The original must exist and stays in the store for audit.
	original, err := r.Get(ctx, originalID)
	if err != nil {
		return nil, err
	}

	entry, err := r.buildCorrection(original, req)
	if err != nil {
		return nil, err
	}

	if err := r.seal(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// buildCorrection merges a partial correction over the original entry.
// The tri-state fields distinguish "left out, keep the original" from
// "explicitly null, clear it".
func (r *entryRepository) buildCorrection(original *models.Entry, req *models.SupersedeEntryRequest) (*models.Entry, error) {
	if err := r.validateCorrection(req); err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate entry id: %w", err)
	}

	entry := &models.Entry{
		ID:            id.String(),
		Timestamp:     original.Timestamp,
		Severity:      original.Severity,
		Tags:          original.Tags,
		Note:          original.Note,
		Interventions: original.Interventions,
		Context:       original.Context,
		SupersedesID:  &original.ID,
		CreatedAt:     time.Now().UTC(),
	}

	if req.Severity.Set {
		entry.Severity = req.Severity.Value
	}
	if req.Timestamp.Set {
		entry.Timestamp = req.Timestamp.Value.UTC()
	}
	if req.Note.Set {
		entry.Note = req.Note.Ptr()
	}
	if req.Tags != nil {
		entry.Tags = normalizeTags(*req.Tags)
	}
	if req.Interventions != nil {
		entry.Interventions = *req.Interventions
	}
	if req.Context != nil {
		entry.Context = req.Context
	}
	return entry, nil
}

func (r *entryRepository) Delete(ctx context.Context, id string) error {
	return r.store.Delete(ctx, id)
}

func (r *entryRepository) ExportSnapshot(ctx context.Context, from, to *time.Time, sel models.ExportFieldSelection) ([]models.Entry, error) {
	entries, issues, err := r.collect(ctx, store.ScanOptions{Since: from, Until: to})
	if err != nil {
		return nil, err
	}
	if len(issues) > 0 {
		log := logger.FromContext(ctx)
		for _, issue := range issues {
			log.Warn("export skipped unreadable record",
				logger.String("record_id", issue.ID),
				logger.Err(issue.Err))
		}
	}

	for i := range entries {
		applySelection(&entries[i], sel)
	}
	return entries, nil
}

func (r *entryRepository) MigrateAll(ctx context.Context, snapshotDir string) (int, string, error) {
	it, err := r.store.Scan(ctx, store.ScanOptions{})
	if err != nil {
		return 0, "", err
	}
	snapshotPath := migrate.SnapshotPath(snapshotDir)
	_, err = migrate.WriteSnapshot(snapshotPath, it)
	_ = it.Close()
	if err != nil {
		return 0, "", fmt.Errorf("pre-migration snapshot: %w", err)
	}

	it, err = r.store.Scan(ctx, store.ScanOptions{})
	if err != nil {
		return 0, snapshotPath, err
	}
	defer it.Close()

	migrated := 0
	var failures []error
	for it.Next() {
		rec := it.Record()
		if !r.migrator.NeedsMigration(rec.SchemaVersion) {
			continue
		}
		if _, err := r.open(ctx, rec); err != nil {
			// Original record stays untouched; surface and continue.
			failures = append(failures, err)
			continue
		}
		migrated++
	}
	if err := it.Err(); err != nil {
		return migrated, snapshotPath, err
	}
	return migrated, snapshotPath, errors.Join(failures...)
}

// seal serializes and encrypts an entry, then writes it at the current
// schema version.
func (r *entryRepository) seal(ctx context.Context, entry *models.Entry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode entry %s: %w", entry.ID, err)
	}
	ciphertext, nonce, tag, err := r.gateway.Encrypt(payload)
	if err != nil {
		return fmt.Errorf("encrypt entry %s: %w", entry.ID, err)
	}
	return r.store.Put(ctx, &store.StoredRecord{
		ID:            entry.ID,
		SchemaVersion: migrate.CurrentVersion,
		Timestamp:     entry.Timestamp,
		Nonce:         nonce,
		Tag:           tag,
		Ciphertext:    ciphertext,
	})
}

// open decrypts a stored record, migrates the payload if it is behind,
// and decodes it. Migrated payloads are written back opportunistically
// so future reads skip the migration; a failed write-back is logged
// and ignored since lazy migration re-runs on the next read.
func (r *entryRepository) open(ctx context.Context, rec *store.StoredRecord) (*models.Entry, error) {
	payload, err := r.gateway.Decrypt(rec.Ciphertext, rec.Nonce, rec.Tag)
	if err != nil {
		return nil, &store.CorruptRecordError{ID: rec.ID, Err: err}
	}

	if r.migrator.NeedsMigration(rec.SchemaVersion) {
		migrated, version, err := r.migrator.Migrate(payload, rec.SchemaVersion)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", rec.ID, err)
		}
		payload = migrated

		ciphertext, nonce, tag, err := r.gateway.Encrypt(payload)
		if err == nil {
			err = r.store.Put(ctx, &store.StoredRecord{
				ID:            rec.ID,
				SchemaVersion: version,
				Timestamp:     rec.Timestamp,
				Nonce:         nonce,
				Tag:           tag,
				Ciphertext:    ciphertext,
			})
		}
		if err != nil {
			logger.FromContext(ctx).Warn("migration write-back failed",
				logger.String("record_id", rec.ID),
				logger.Err(err))
		}
	}

	var entry models.Entry
	if err := json.Unmarshal(payload, &entry); err != nil {
		return nil, fmt.Errorf("decode record %s: %w", rec.ID, err)
	}
	if entry.ID == "" {
		entry.ID = rec.ID
	}
	return &entry, nil
}

// collect drains a scan, decoding each record and excluding the ones
// that cannot be read. A single bad record never aborts the scan.
func (r *entryRepository) collect(ctx context.Context, opts store.ScanOptions) ([]models.Entry, []RecordIssue, error) {
	it, err := r.store.Scan(ctx, opts)
	if err != nil {
		return nil, nil, err
	}
	defer it.Close()

	var entries []models.Entry
	var issues []RecordIssue
	var corrupt *store.CorruptRecordError
	var failed *migrate.FailedError

	for it.Next() {
		rec := it.Record()
		entry, err := r.open(ctx, rec)
		if err != nil {
			if errors.As(err, &corrupt) || errors.As(err, &failed) {
				issues = append(issues, RecordIssue{ID: rec.ID, Err: err})
				continue
			}
			return nil, nil, err
		}
		entries = append(entries, *entry)
	}
	if err := it.Err(); err != nil {
		return nil, nil, err
	}
	return entries, issues, nil
}

func (r *entryRepository) validateDraft(req *models.CreateEntryRequest) error {
	var issues []FieldIssue

	if req.Severity == nil {
		issues = append(issues, FieldIssue{Field: "severity", Message: "is required"})
	} else if *req.Severity < 0 || *req.Severity > r.scaleMax {
		issues = append(issues, FieldIssue{
			Field:   "severity",
			Message: fmt.Sprintf("must be between 0 and %g", r.scaleMax),
		})
	}

	if req.Timestamp != nil && req.Timestamp.After(time.Now().Add(maxFutureSkew)) {
		issues = append(issues, FieldIssue{Field: "timestamp", Message: "must not be in the future"})
	}

	for i, tag := range req.Tags {
		if strings.TrimSpace(tag.Value) == "" {
			issues = append(issues, FieldIssue{
				Field:   fmt.Sprintf("tags[%d].value", i),
				Message: "must not be empty",
			})
		}
	}

	for i, iv := range req.Interventions {
		if strings.TrimSpace(iv.Name) == "" {
			issues = append(issues, FieldIssue{
				Field:   fmt.Sprintf("interventions[%d].name", i),
				Message: "must not be empty",
			})
		}
	}

	if len(issues) > 0 {
		return &ValidationError{Fields: issues}
	}
	return nil
}

func (r *entryRepository) validateCorrection(req *models.SupersedeEntryRequest) error {
	var issues []FieldIssue

	if req.Severity.Set {
		switch {
		case !req.Severity.Valid:
			issues = append(issues, FieldIssue{Field: "severity", Message: "must not be null"})
		case req.Severity.Value < 0 || req.Severity.Value > r.scaleMax:
			issues = append(issues, FieldIssue{
				Field:   "severity",
				Message: fmt.Sprintf("must be between 0 and %g", r.scaleMax),
			})
		}
	}

	if req.Timestamp.Set {
		switch {
		case !req.Timestamp.Valid:
			issues = append(issues, FieldIssue{Field: "timestamp", Message: "must not be null"})
		case req.Timestamp.Value.After(time.Now().Add(maxFutureSkew)):
			issues = append(issues, FieldIssue{Field: "timestamp", Message: "must not be in the future"})
		}
	}

	if req.Tags != nil {
		for i, tag := range *req.Tags {
			if strings.TrimSpace(tag.Value) == "" {
				issues = append(issues, FieldIssue{
					Field:   fmt.Sprintf("tags[%d].value", i),
					Message: "must not be empty",
				})
			}
		}
	}

	if req.Interventions != nil {
		for i, iv := range *req.Interventions {
			if strings.TrimSpace(iv.Name) == "" {
				issues = append(issues, FieldIssue{
					Field:   fmt.Sprintf("interventions[%d].name", i),
					Message: "must not be empty",
				})
			}
		}
	}

	if len(issues) > 0 {
		return &ValidationError{Fields: issues}
	}
	return nil
}

// normalizeTags folds unknown categories into CategoryOther while
// keeping the user's vocabulary intact in the value.
func normalizeTags(tags []models.Tag) []models.Tag {
	if len(tags) == 0 {
		return nil
	}
	out := make([]models.Tag, len(tags))
	for i, tag := range tags {
		out[i] = models.Tag{
			Category: models.ParseTagCategory(string(tag.Category)),
			Value:    strings.TrimSpace(tag.Value),
		}
	}
	return out
}

func applySelection(e *models.Entry, sel models.ExportFieldSelection) {
	if !sel.IncludeNotes {
		e.Note = nil
	}
	if !sel.IncludeTags {
		e.Tags = nil
	}
	if !sel.IncludeInterventions {
		e.Interventions = nil
	}
	if !sel.IncludeContext {
		e.Context = nil
	}
}
