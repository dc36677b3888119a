package migrate

import (
	"bufio"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/quillhealth/quill/internal/store"
)

// snapshotRow is one still-encrypted record in a pre-migration
// snapshot file. Payloads stay sealed; a snapshot is a recovery
// artifact, not an export.
type snapshotRow struct {
	ID            string    `json:"id"`
	SchemaVersion int       `json:"schema_version"`
	Timestamp     time.Time `json:"timestamp"`
	Nonce         string    `json:"nonce"`
	Tag           string    `json:"tag"`
	Ciphertext    string    `json:"ciphertext"`
}

// SnapshotPath returns the file name for a snapshot taken now. The
// name carries nanosecond precision: each run must land on its own
// file, since WriteSnapshot refuses to overwrite an existing one.
func SnapshotPath(dir string) string {
	return filepath.Join(dir, fmt.Sprintf("pre-migration-%s.jsonl", time.Now().UTC().Format("20060102T150405.000000000Z")))
}

// WriteSnapshot streams every record from the iterator into a JSONL
// file at path, one envelope per line. It returns the record count.
// Eager migration must complete a snapshot before rewriting anything,
// so a failed step is always reversible.
func WriteSnapshot(path string, it *store.Iterator) (int, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return 0, fmt.Errorf("create snapshot: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	count := 0

	for it.Next() {
		rec := it.Record()
		row := snapshotRow{
			ID:            rec.ID,
			SchemaVersion: rec.SchemaVersion,
			Timestamp:     rec.Timestamp,
			Nonce:         base64.StdEncoding.EncodeToString(rec.Nonce),
			Tag:           base64.StdEncoding.EncodeToString(rec.Tag),
			Ciphertext:    base64.StdEncoding.EncodeToString(rec.Ciphertext),
		}
		if err := enc.Encode(row); err != nil {
			return count, fmt.Errorf("write snapshot row: %w", err)
		}
		count++
	}
	if err := it.Err(); err != nil {
		return count, fmt.Errorf("scan for snapshot: %w", err)
	}

	if err := w.Flush(); err != nil {
		return count, fmt.Errorf("flush snapshot: %w", err)
	}
	if err := f.Sync(); err != nil {
		return count, fmt.Errorf("sync snapshot: %w", err)
	}
	return count, nil
}

// ReadSnapshot loads the envelopes from a snapshot file, for restoring
// a store to its pre-migration state.
func ReadSnapshot(path string) ([]*store.StoredRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	var records []*store.StoredRecord
	dec := json.NewDecoder(bufio.NewReader(f))
	for dec.More() {
		var row snapshotRow
		if err := dec.Decode(&row); err != nil {
			return nil, fmt.Errorf("decode snapshot row: %w", err)
		}
		nonce, err := base64.StdEncoding.DecodeString(row.Nonce)
		if err != nil {
			return nil, fmt.Errorf("decode nonce for %s: %w", row.ID, err)
		}
		tag, err := base64.StdEncoding.DecodeString(row.Tag)
		if err != nil {
			return nil, fmt.Errorf("decode tag for %s: %w", row.ID, err)
		}
		ciphertext, err := base64.StdEncoding.DecodeString(row.Ciphertext)
		if err != nil {
			return nil, fmt.Errorf("decode ciphertext for %s: %w", row.ID, err)
		}
		records = append(records, &store.StoredRecord{
			ID:            row.ID,
			SchemaVersion: row.SchemaVersion,
			Timestamp:     row.Timestamp,
			Nonce:         nonce,
			Tag:           tag,
			Ciphertext:    ciphertext,
		})
	}
	return records, nil
}
