// Package sqlite provides a SQLite-backed implementation of the result repository port.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3" // Import the driver anonymously

	"github.com/ewilliams-labs/cadence/internal/core/domain"
	"github.com/ewilliams-labs/cadence/internal/core/ports"
)

const (
	// DefaultListLimit is used by ListRecent for non-positive limits.
	DefaultListLimit = 20
	MaxListLimit     = 500
)

// Adapter implements the result repository port for SQLite.
type Adapter struct {
	db *sql.DB
}

var _ ports.ResultRepository = (*Adapter)(nil)

// NewAdapter creates a connection and runs the schema migration.
func NewAdapter(storagePath string) (*Adapter, error) {
	db, err := sql.Open("sqlite3", storagePath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open db: %w", err)
	}
	// :memory: databases are per-connection.
	if storagePath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: failed to ping db: %w", err)
	}

	adapter := &Adapter{db: db}
	if err := adapter.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: migration failed: %w", err)
	}
	return adapter, nil
}

// Close closes the DB connection.
func (a *Adapter) Close() error {
	return a.db.Close()
}

// Save upserts a result keyed by its job id.
func (a *Adapter) Save(ctx context.Context, r domain.AnalysisResult) error {
	if r.Meta.JobID == "" {
		return fmt.Errorf("sqlite: %w: empty job id", domain.ErrInvalid)
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("sqlite: failed to encode result: %w", err)
	}

	query := `
		INSERT INTO analyses (job_id, preset, duration_sec, bpm, key_name, scale, genre, warnings, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(job_id) DO UPDATE SET
			preset=excluded.preset,
			duration_sec=excluded.duration_sec,
			bpm=excluded.bpm,
			key_name=excluded.key_name,
			scale=excluded.scale,
			genre=excluded.genre,
			warnings=excluded.warnings,
			payload=excluded.payload;
	`
	if _, err := a.db.ExecContext(
		ctx,
		query,
		r.Meta.JobID,
		string(r.Meta.Preset),
		r.Track.DurationSec,
		r.Tempo.BPM,
		r.Key.Key,
		string(r.Key.Scale),
		r.Genre.Top,
		len(r.Meta.Warnings),
		string(payload),
	); err != nil {
		return fmt.Errorf("sqlite: failed to save result %s: %w", r.Meta.JobID, err)
	}
	return nil
}

// GetByID loads one result. Missing ids yield domain.ErrNotFound.
func (a *Adapter) GetByID(ctx context.Context, jobID string) (domain.AnalysisResult, error) {
	row := a.db.QueryRowContext(ctx, "SELECT payload FROM analyses WHERE job_id = ?", jobID)
	var payload string
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.AnalysisResult{}, domain.ErrNotFound
		}
		return domain.AnalysisResult{}, fmt.Errorf("sqlite: failed to load result: %w", err)
	}
	return decodeResult(payload)
}

// ListRecent returns up to limit results, newest first.
func (a *Adapter) ListRecent(ctx context.Context, limit int) ([]domain.AnalysisResult, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	rows, err := a.db.QueryContext(ctx, `
		SELECT payload FROM analyses
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to list results: %w", err)
	}
	defer rows.Close()

	results := []domain.AnalysisResult{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan result: %w", err)
		}
		r, err := decodeResult(payload)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: failed to iterate results: %w", err)
	}
	return results, nil
}

func decodeResult(payload string) (domain.AnalysisResult, error) {
	var r domain.AnalysisResult
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("sqlite: failed to decode result: %w", err)
	}
	if r.Meta.Warnings == nil {
		r.Meta.Warnings = []string{}
	}
	return r, nil
}

func (a *Adapter) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS analyses (
		job_id TEXT PRIMARY KEY,
		preset TEXT NOT NULL,
		duration_sec REAL,
		bpm REAL,
		key_name TEXT,
		scale TEXT,
		payload TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses(created_at);
	`
	if _, err := a.db.Exec(query); err != nil {
		return err
	}

	// Columns added after the first schema.
	for _, stmt := range []string{
		"ALTER TABLE analyses ADD COLUMN genre TEXT",
		"ALTER TABLE analyses ADD COLUMN warnings INTEGER DEFAULT 0",
	} {
		if _, err := a.db.Exec(stmt); err != nil && !isDuplicateColumnError(err) {
			return err
		}
	}
	return nil
}

func isDuplicateColumnError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "duplicate column") || strings.Contains(err.Error(), "already exists"))
}
