// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store writes search results into a SQLite database. It is an
// output sink selected with --db, parallel to the CSV exporter; the
// search path never reads it back.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/paperscout/pkg/types"
)

// Store manages the results SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and ensures the schema
// exists. Callers must Close the store when done.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
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
		`CREATE TABLE IF NOT EXISTS papers (
			pmid TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			publication_date TEXT NOT NULL,
			abstract TEXT,
			doi TEXT,
			journal_title TEXT,
			reference_count INTEGER NOT NULL DEFAULT 0,
			url TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS authors (
			paper_pmid TEXT NOT NULL REFERENCES papers(pmid) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			name TEXT NOT NULL,
			affiliation TEXT,
			email TEXT,
			affiliation_type TEXT NOT NULL,
			PRIMARY KEY (paper_pmid, position)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_authors_type ON authors(affiliation_type)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// SavePapers upserts papers and their authors in one transaction. A
// re-run with the same PMIDs replaces the previous rows.
func (s *Store) SavePapers(ctx context.Context, papers []types.Paper) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, p := range papers {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO papers
				(pmid, title, publication_date, abstract, doi, journal_title, reference_count, url)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			p.PMID, p.Title, p.PublicationDate.Format("2006-01-02"),
			p.Abstract, p.DOI, p.JournalTitle, p.ReferenceCount, p.URL(),
		); err != nil {
			return fmt.Errorf("upserting paper %s: %w", p.PMID, err)
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM authors WHERE paper_pmid = ?`, p.PMID); err != nil {
			return fmt.Errorf("clearing authors for %s: %w", p.PMID, err)
		}

		for i, a := range p.Authors {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO authors
					(paper_pmid, position, name, affiliation, email, affiliation_type)
				VALUES (?, ?, ?, ?, ?, ?)`,
				p.PMID, i, a.Name, a.Affiliation, a.Email, string(a.AffiliationType),
			); err != nil {
				return fmt.Errorf("inserting author %d of %s: %w", i, p.PMID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	return nil
}

// Count returns the number of stored papers.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM papers`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting papers: %w", err)
	}
	return n, nil
}
