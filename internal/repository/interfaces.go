package repository

import (
	"context"
	"time"

	"github.com/quillhealth/quill/internal/models"
)

// RecordIssue flags a stored record that was excluded from a read:
// either its payload failed authentication or a migration step
// errored. The record itself is left untouched in the store.
type RecordIssue struct {
	ID  string `json:"id"`
	Err error  `json:"-"`
}

// EntryRepository is the sole reader and writer of the record store.
// All reads pass through schema migration transparently; callers never
// see version tags or encrypted bytes.
type EntryRepository interface {
	// Append validates a draft, assigns identifier and timestamp, and
	// persists it. Malformed drafts are rejected with *ValidationError
	// and never persisted.
	Append(ctx context.Context, req *models.CreateEntryRequest) (*models.Entry, error)

	// Get returns one entry by id.
	Get(ctx context.Context, id string) (*models.Entry, error)

	// ListSince returns entries ordered by timestamp ascending,
	// optionally bounded below. Records that cannot be authenticated
	// or migrated are excluded and reported as issues rather than
	// aborting the read.
	ListSince(ctx context.Context, since *time.Time) ([]models.Entry, []RecordIssue, error)

	// Supersede creates a correction entry that logically replaces the
	// original for display purposes while retaining it for audit. The
	// correction is partial: absent fields keep the original's values,
	// and an explicit null note clears it.
	Supersede(ctx context.Context, originalID string, req *models.SupersedeEntryRequest) (*models.Entry, error)

	// Delete removes an entry by explicit user action.
	Delete(ctx context.Context, id string) error

	// ExportSnapshot returns a decrypted copy of entries in the date
	// range with the selected fields. This is the only path by which
	// decrypted data leaves the core; it must never be invoked
	// implicitly.
	ExportSnapshot(ctx context.Context, from, to *time.Time, sel models.ExportFieldSelection) ([]models.Entry, error)

	// MigrateAll eagerly upgrades every stored record to the current
	// schema version, writing a pre-migration snapshot first. It
	// returns the number migrated and the snapshot path.
	MigrateAll(ctx context.Context, snapshotDir string) (int, string, error)
}
