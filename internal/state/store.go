// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package state persists per-document fingerprint records in a SQLite
// database so repeated sync runs can tell changed content from unchanged.
package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.yaml.in/yaml/v3"

	"github.com/taurbull/kbsync/pkg/types"
)

const (
	dbFile     = "kbsync.db"
	exportFile = "fingerprints.yaml"
)

// Store manages the fingerprint SQLite database.
type Store struct {
	db       *sql.DB
	stateDir string
}

// NewStore opens or creates the fingerprint database at
// stateDir/kbsync.db, creating the schema if it does not exist.
func NewStore(cfg types.SyncConfig) (*Store, error) {
	stateDir := cfg.StateDir
	if stateDir == "" {
		stateDir = "state"
	}
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	dbPath := filepath.Join(stateDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, stateDir: stateDir}
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

// StateDir returns the directory holding the database and exports.
func (s *Store) StateDir() string {
	return s.stateDir
}

func (s *Store) createSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS fingerprints (
		doc_id         TEXT PRIMARY KEY,
		content_hash   TEXT NOT NULL,
		remote_doc_id  TEXT NOT NULL DEFAULT '',
		last_synced_at TEXT NOT NULL,
		agent_ids      TEXT NOT NULL DEFAULT '[]',
		pending_retry  INTEGER NOT NULL DEFAULT 0
	)`)
	if err != nil {
		return fmt.Errorf("executing schema statement: %w", err)
	}
	return nil
}

// Get returns the record for docID, or nil when no record exists.
func (s *Store) Get(ctx context.Context, docID string) (*types.FingerprintRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT doc_id, content_hash, remote_doc_id, last_synced_at, agent_ids, pending_retry
		 FROM fingerprints WHERE doc_id = ?`, docID)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading fingerprint %s: %w", docID, err)
	}
	return rec, nil
}

// Put inserts or overwrites the record for rec.DocID.
func (s *Store) Put(ctx context.Context, rec *types.FingerprintRecord) error {
	agentsJSON, err := json.Marshal(rec.AgentIDs)
	if err != nil {
		return fmt.Errorf("encoding agent ids: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO fingerprints (doc_id, content_hash, remote_doc_id, last_synced_at, agent_ids, pending_retry)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(doc_id) DO UPDATE SET
			content_hash=excluded.content_hash,
			remote_doc_id=excluded.remote_doc_id,
			last_synced_at=excluded.last_synced_at,
			agent_ids=excluded.agent_ids,
			pending_retry=excluded.pending_retry`,
		rec.DocID, rec.ContentHash, rec.RemoteDocID,
		rec.LastSyncedAt.UTC().Format(time.RFC3339Nano),
		string(agentsJSON), boolToInt(rec.PendingRetry),
	)
	if err != nil {
		return fmt.Errorf("writing fingerprint %s: %w", rec.DocID, err)
	}
	return nil
}

// Delete removes the record for docID. Deleting a missing record is not
// an error.
func (s *Store) Delete(ctx context.Context, docID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM fingerprints WHERE doc_id = ?`, docID); err != nil {
		return fmt.Errorf("deleting fingerprint %s: %w", docID, err)
	}
	return nil
}

// All returns every stored record ordered by document id.
func (s *Store) All(ctx context.Context) ([]types.FingerprintRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc_id, content_hash, remote_doc_id, last_synced_at, agent_ids, pending_retry
		 FROM fingerprints ORDER BY doc_id`)
	if err != nil {
		return nil, fmt.Errorf("listing fingerprints: %w", err)
	}
	defer rows.Close()

	var records []types.FingerprintRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("listing fingerprints: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing fingerprints: %w", err)
	}
	return records, nil
}

// ExportYAML writes all records to stateDir/fingerprints.yaml for
// inspection.
func (s *Store) ExportYAML(ctx context.Context) error {
	records, err := s.All(ctx)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return os.WriteFile(filepath.Join(s.stateDir, exportFile), data, 0o644)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*types.FingerprintRecord, error) {
	var rec types.FingerprintRecord
	var syncedAt, agentsJSON string
	var pendingRetry int

	err := row.Scan(&rec.DocID, &rec.ContentHash, &rec.RemoteDocID, &syncedAt, &agentsJSON, &pendingRetry)
	if err != nil {
		return nil, err
	}

	if rec.LastSyncedAt, err = time.Parse(time.RFC3339Nano, syncedAt); err != nil {
		return nil, fmt.Errorf("parsing last_synced_at: %w", err)
	}
	if err := json.Unmarshal([]byte(agentsJSON), &rec.AgentIDs); err != nil {
		return nil, fmt.Errorf("parsing agent_ids: %w", err)
	}
	rec.PendingRetry = pendingRetry != 0
	return &rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
