// Package audit keeps a persistent log of completed analyses in SQLite.
// Only summaries are stored: detected drug names, counts and the highest
// risk. Extracted text and generated explanations are never written.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Aditya-Lingam-9000/pharma-safe-lens/interfaces"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/refdata/entities"
	_ "modernc.org/sqlite"
)

var _ interfaces.AuditRecorder = (*Store)(nil)

// timeLayout is fixed-width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store is the SQLite audit log.
type Store struct {
	db *sql.DB
}

// New opens (creating if needed) the audit database at dbPath.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS analyses (
			analysis_id TEXT PRIMARY KEY,
			mode TEXT NOT NULL,
			drugs TEXT NOT NULL,
			interaction_count INTEGER NOT NULL,
			highest_risk TEXT,
			safety_alerts INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_analyses_created ON analyses(created_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Record inserts entry. CreatedAt defaults to now.
func (s *Store) Record(ctx context.Context, entry entities.AuditEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	drugs, err := json.Marshal(entry.Drugs)
	if err != nil {
		return fmt.Errorf("marshal drugs: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO analyses (analysis_id, mode, drugs, interaction_count, highest_risk, safety_alerts, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.AnalysisID, entry.Mode, string(drugs), entry.InteractionCount, entry.HighestRisk,
		entry.SafetyAlerts, entry.Status, entry.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]entities.AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT analysis_id, mode, drugs, interaction_count, highest_risk, safety_alerts, status, created_at
		 FROM analyses ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := []entities.AuditEntry{}
	for rows.Next() {
		var (
			e         entities.AuditEntry
			drugs     string
			risk      sql.NullString
			createdAt string
		)
		if err := rows.Scan(&e.AnalysisID, &e.Mode, &drugs, &e.InteractionCount, &risk, &e.SafetyAlerts, &e.Status, &createdAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		if err := json.Unmarshal([]byte(drugs), &e.Drugs); err != nil {
			return nil, fmt.Errorf("decode drugs: %w", err)
		}
		e.HighestRisk = risk.String
		if e.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
