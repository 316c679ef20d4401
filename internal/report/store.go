// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report persists per-run provenance and diagnostics into a
// SQLite index and writes the YAML provenance reports that accompany each
// emitted artifact. The index is what audit tooling queries; the YAML is
// what reviewers read next to the artifact.
// See docs/ARCHITECTURE § Reporting.
package report

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/oscal-engine/internal/xref"
	"github.com/pdiddy/oscal-engine/pkg/types"
)

const (
	indexDir = "index"
	dbFile   = "provenance.db"
)

// Store manages the provenance SQLite database under the run's output
// directory.
type Store struct {
	db        *sql.DB
	outputDir string
}

// NewStore opens or creates the provenance database at
// outputDir/index/provenance.db, creating the schema if needed.
func NewStore(outputDir string) (*Store, error) {
	dbDir := filepath.Join(outputDir, indexDir)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(dbDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, outputDir: outputDir}
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
		`CREATE TABLE IF NOT EXISTS artifacts (
			kind TEXT PRIMARY KEY,
			source_file TEXT NOT NULL,
			source_hash TEXT NOT NULL,
			generated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS entries (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			artifact_kind TEXT NOT NULL REFERENCES artifacts(kind),
			target_path TEXT NOT NULL,
			origin_kind TEXT NOT NULL,
			pointer TEXT,
			reason TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_kind ON entries(artifact_kind)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_origin ON entries(origin_kind)`,
		`CREATE TABLE IF NOT EXISTS diagnostics (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			artifact_kind TEXT NOT NULL,
			stage TEXT NOT NULL,
			severity TEXT NOT NULL,
			code TEXT NOT NULL,
			message TEXT NOT NULL,
			pointer TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS links (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			record_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			ref TEXT NOT NULL,
			target_kind TEXT NOT NULL,
			target_uuid TEXT NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record replaces the stored provenance for one artifact kind. Re-running
// a kind overwrites its previous rows so the index always reflects the
// latest run.
func (s *Store) Record(ctx context.Context, kind types.ArtifactKind, meta types.CIRMetadata, entries []types.ProvenanceEntry, diags types.Diagnostics) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE artifact_kind = ?`, string(kind)); err != nil {
		return fmt.Errorf("deleting old entries: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM diagnostics WHERE artifact_kind = ?`, string(kind)); err != nil {
		return fmt.Errorf("deleting old diagnostics: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO artifacts (kind, source_file, source_hash, generated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(kind) DO UPDATE SET
			source_file=excluded.source_file, source_hash=excluded.source_hash,
			generated_at=excluded.generated_at`,
		string(kind), meta.SourceFile, meta.SHA256,
		meta.ExtractionDate.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting artifact: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO entries (artifact_kind, target_path, origin_kind, pointer, reason)
		 VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing entry insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		pointer := ""
		if e.Origin.Pointer != nil {
			pointer = e.Origin.Pointer.String()
		}
		if _, err := stmt.ExecContext(ctx,
			string(kind), e.TargetPath, string(e.Origin.Kind), pointer, e.Origin.Reason,
		); err != nil {
			return fmt.Errorf("inserting entry %s: %w", e.TargetPath, err)
		}
	}

	for _, d := range diags {
		pointer := ""
		if d.Pointer != nil {
			pointer = d.Pointer.String()
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO diagnostics (artifact_kind, stage, severity, code, message, pointer)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			string(kind), d.Stage, string(d.Severity), string(d.Code), d.Message, pointer,
		); err != nil {
			return fmt.Errorf("inserting diagnostic: %w", err)
		}
	}

	return tx.Commit()
}

// RecordLinks replaces the stored cross-reference links for the run.
func (s *Store) RecordLinks(ctx context.Context, links []xref.Link) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM links`); err != nil {
		return fmt.Errorf("deleting old links: %w", err)
	}
	for _, l := range links {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO links (record_id, kind, ref, target_kind, target_uuid)
			 VALUES (?, ?, ?, ?, ?)`,
			l.RecordID, string(l.Kind), l.Ref, string(l.TargetKind), l.TargetUUID,
		); err != nil {
			return fmt.Errorf("inserting link for %s: %w", l.RecordID, err)
		}
	}
	return tx.Commit()
}

// OriginCounts summarizes one artifact kind's leaf origins.
type OriginCounts struct {
	Sourced     int `json:"sourced" yaml:"sourced"`
	Synthesized int `json:"synthesized" yaml:"synthesized"`
}

// Summary returns per-kind origin counts for the whole index.
func (s *Store) Summary(ctx context.Context) (map[types.ArtifactKind]OriginCounts, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT artifact_kind, origin_kind, count(*) FROM entries
		 GROUP BY artifact_kind, origin_kind`)
	if err != nil {
		return nil, fmt.Errorf("querying summary: %w", err)
	}
	defer rows.Close()

	out := make(map[types.ArtifactKind]OriginCounts)
	for rows.Next() {
		var kind, origin string
		var n int
		if err := rows.Scan(&kind, &origin, &n); err != nil {
			return nil, fmt.Errorf("scanning summary row: %w", err)
		}
		c := out[types.ArtifactKind(kind)]
		switch types.OriginKind(origin) {
		case types.OriginSourced:
			c.Sourced = n
		case types.OriginSynthesized:
			c.Synthesized = n
		}
		out[types.ArtifactKind(kind)] = c
	}
	return out, rows.Err()
}

// ArtifactReport is the YAML provenance report written next to each
// emitted artifact.
type ArtifactReport struct {
	Kind        types.ArtifactKind      `json:"kind" yaml:"kind"`
	SourceFile  string                  `json:"source_file" yaml:"source_file"`
	SourceHash  string                  `json:"source_hash" yaml:"source_hash"`
	GeneratedAt time.Time               `json:"generated_at" yaml:"generated_at"`
	Entries     []types.ProvenanceEntry `json:"entries" yaml:"entries"`
	Diagnostics types.Diagnostics       `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
	Links       []xref.Link             `json:"links,omitempty" yaml:"links,omitempty"`
}

// WriteYAML writes the report to outputDir/<kind>-provenance.yaml.
func WriteYAML(outputDir string, rep ArtifactReport) (string, error) {
	data, err := yaml.Marshal(rep)
	if err != nil {
		return "", fmt.Errorf("marshaling provenance report: %w", err)
	}
	path := filepath.Join(outputDir, string(rep.Kind)+"-provenance.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}
