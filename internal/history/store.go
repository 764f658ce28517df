// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history keeps a rolling window of digest records in SQLite and
// reads and writes digest JSON files.
package history

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/paper-radar/pkg/types"
)

const dateLayout = "2006-01-02"

// Store is the history database.
type Store struct {
	db *sqlx.DB
}

// row is one (institution, paper) pair as stored.
type row struct {
	Institution string `db:"institution"`
	types.OutputRecord
	Seq int64 `db:"seq"`
}

// Open opens or creates the database at path and its schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}
	db, err := sqlx.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS records (
			institution TEXT NOT NULL,
			url TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			date TEXT NOT NULL DEFAULT '',
			authors_text TEXT NOT NULL DEFAULT '',
			is_highlight BOOLEAN NOT NULL DEFAULT 0,
			score REAL NOT NULL DEFAULT 0,
			summary TEXT NOT NULL DEFAULT '',
			seq INTEGER NOT NULL,
			PRIMARY KEY (institution, url)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_seq ON records(seq)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Merge adds every (institution, url) pair of daily not yet stored and
// returns how many were added. Within an institution the daily order is
// kept, and the batch sorts ahead of everything stored earlier.
func (s *Store) Merge(ctx context.Context, daily types.Digest) (int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning merge: %w", err)
	}
	defer tx.Rollback()

	var seq int64
	if err := tx.GetContext(ctx, &seq, `SELECT COALESCE(MAX(seq), 0) FROM records`); err != nil {
		return 0, fmt.Errorf("reading sequence: %w", err)
	}

	const insert = `INSERT OR IGNORE INTO records
		(institution, url, title, date, authors_text, is_highlight, score, summary, seq)
		VALUES (:institution, :url, :title, :date, :authors_text, :is_highlight, :score, :summary, :seq)`

	added := 0
	for _, name := range daily.Institutions() {
		recs := daily[name]
		// Oldest first so the head of the daily list gets the highest seq.
		for i := len(recs) - 1; i >= 0; i-- {
			seq++
			res, err := tx.NamedExecContext(ctx, insert, row{Institution: name, OutputRecord: recs[i], Seq: seq})
			if err != nil {
				return 0, fmt.Errorf("inserting %s under %s: %w", recs[i].URL, name, err)
			}
			if n, _ := res.RowsAffected(); n > 0 {
				added++
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing merge: %w", err)
	}
	return added, nil
}

// Prune deletes records dated before the day that is days before now and
// returns how many were removed. Records whose date does not parse are
// kept.
func (s *Store) Prune(ctx context.Context, now time.Time, days int) (int, error) {
	cutoff := now.UTC().Truncate(24*time.Hour).AddDate(0, 0, -days)

	var rows []row
	if err := s.db.SelectContext(ctx, &rows, `SELECT institution, url, date FROM records`); err != nil {
		return 0, fmt.Errorf("listing records: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning prune: %w", err)
	}
	defer tx.Rollback()

	removed := 0
	for _, r := range rows {
		if !Expired(r.Date, cutoff) {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM records WHERE institution = ? AND url = ?`, r.Institution, r.URL); err != nil {
			return 0, fmt.Errorf("deleting %s: %w", r.URL, err)
		}
		removed++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing prune: %w", err)
	}
	return removed, nil
}

// Expired reports whether date, read from its first ten characters as
// YYYY-MM-DD, falls before cutoff. An unparseable date never expires.
func Expired(date string, cutoff time.Time) bool {
	if len(date) > len(dateLayout) {
		date = date[:len(dateLayout)]
	}
	d, err := time.Parse(dateLayout, date)
	if err != nil {
		return false
	}
	return d.Before(cutoff)
}

// Digest returns the stored records grouped by institution, most recent
// first.
func (s *Store) Digest(ctx context.Context) (types.Digest, error) {
	var rows []row
	err := s.db.SelectContext(ctx, &rows, `SELECT institution, url, title, date, authors_text,
		is_highlight, score, summary, seq FROM records ORDER BY institution, seq DESC`)
	if err != nil {
		return nil, fmt.Errorf("reading records: %w", err)
	}
	digest := make(types.Digest)
	for _, r := range rows {
		digest[r.Institution] = append(digest[r.Institution], r.OutputRecord)
	}
	return digest, nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT count(*) FROM records`); err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return n, nil
}
