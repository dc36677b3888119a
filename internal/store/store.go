// Package store persists encrypted record envelopes in a local SQLite
// database. Only the id, schema version, and timestamp are kept in
// plaintext, and only because ordering and paging need them; payload
// bytes are opaque to this layer.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schema string

// StoredRecord is the persisted unit: an encrypted payload plus the
// minimal plaintext index needed to order and page without decrypting.
type StoredRecord struct {
	ID            string
	SchemaVersion int
	Timestamp     time.Time
	Nonce         []byte
	Tag           []byte
	Ciphertext    []byte
}

// Store is a versioned record store backed by a single SQLite file.
// There is exactly one local writer, so no cross-process coordination
// is attempted; WAL mode keeps concurrent reads cheap.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put writes a record atomically: either the new envelope fully lands
// or the prior value is retained. A full medium maps to
// ErrQuotaExceeded.
func (s *Store) Put(ctx context.Context, rec *StoredRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO records (id, schema_version, ts, nonce, tag, ciphertext)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			schema_version = excluded.schema_version,
			ts             = excluded.ts,
			nonce          = excluded.nonce,
			tag            = excluded.tag,
			ciphertext     = excluded.ciphertext`,
		rec.ID, rec.SchemaVersion, rec.Timestamp.UTC().UnixMilli(),
		rec.Nonce, rec.Tag, rec.Ciphertext,
	)
	if err != nil {
		return mapSQLiteErr("put record", err)
	}
	return nil
}

// Get returns the record for id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*StoredRecord, error) {
	rec := &StoredRecord{ID: id}
	var ts int64
	err := s.db.QueryRowContext(ctx, `
		SELECT schema_version, ts, nonce, tag, ciphertext
		FROM records WHERE id = ?`, id,
	).Scan(&rec.SchemaVersion, &ts, &rec.Nonce, &rec.Tag, &rec.Ciphertext)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	rec.Timestamp = time.UnixMilli(ts).UTC()
	return rec, nil
}

// Delete removes the record for id, or returns ErrNotFound.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ScanOptions narrows a scan by the plaintext index.
type ScanOptions struct {
	Since *time.Time // inclusive lower bound on timestamp
	Until *time.Time // inclusive upper bound on timestamp
}

// Scan returns a lazy iterator over records ordered by timestamp
// ascending. The iterator holds a live cursor; callers must Close it.
// Scans are restartable: each call opens a fresh cursor.
func (s *Store) Scan(ctx context.Context, opts ScanOptions) (*Iterator, error) {
	query := `SELECT id, schema_version, ts, nonce, tag, ciphertext FROM records`
	var args []any
	var where []string
	if opts.Since != nil {
		where = append(where, "ts >= ?")
		args = append(args, opts.Since.UTC().UnixMilli())
	}
	if opts.Until != nil {
		where = append(where, "ts <= ?")
		args = append(args, opts.Until.UTC().UnixMilli())
	}
	for i, w := range where {
		if i == 0 {
			query += " WHERE " + w
		} else {
			query += " AND " + w
		}
	}
	query += " ORDER BY ts ASC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("scan records: %w", err)
	}
	return &Iterator{rows: rows}, nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// Iterator walks scan results one record at a time.
type Iterator struct {
	rows *sql.Rows
	cur  *StoredRecord
	err  error
}

// Next advances to the next record. It returns false at the end of the
// sequence or on error; check Err afterwards.
func (it *Iterator) Next() bool {
	if it.err != nil || !it.rows.Next() {
		it.err = firstErr(it.err, it.rows.Err())
		return false
	}
	rec := &StoredRecord{}
	var ts int64
	if err := it.rows.Scan(&rec.ID, &rec.SchemaVersion, &ts, &rec.Nonce, &rec.Tag, &rec.Ciphertext); err != nil {
		it.err = fmt.Errorf("scan row: %w", err)
		return false
	}
	rec.Timestamp = time.UnixMilli(ts).UTC()
	it.cur = rec
	return true
}

// Record returns the current record.
func (it *Iterator) Record() *StoredRecord { return it.cur }

// Err returns the first error encountered during iteration.
func (it *Iterator) Err() error { return it.err }

// Close releases the underlying cursor.
func (it *Iterator) Close() error { return it.rows.Close() }

func firstErr(a, b error) error {
	if a != nil {
		return a
	}
	return b
}

// mapSQLiteErr translates driver-level failures into the store's error
// taxonomy. SQLITE_FULL means the medium (or its quota) is exhausted.
func mapSQLiteErr(op string, err error) error {
	var serr sqlite3.Error
	if errors.As(err, &serr) && serr.Code == sqlite3.ErrFull {
		return fmt.Errorf("%s: %w", op, ErrQuotaExceeded)
	}
	return fmt.Errorf("%s: %w", op, err)
}
