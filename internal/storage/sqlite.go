//go:build sqlite

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"lineagekit/internal/model"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) SaveBatch(ctx context.Context, batch model.Batch, summaries []model.LineageSummary) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	if batch.ID == "" {
		return errors.New("batch id is required")
	}

	payload, err := EncodeSummaries(Stamp(summaries))
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO batches (id, glob, runs, created_at_utc, schema_version, codec_version, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			glob = excluded.glob,
			runs = excluded.runs,
			created_at_utc = excluded.created_at_utc,
			schema_version = excluded.schema_version,
			codec_version = excluded.codec_version,
			payload = excluded.payload
	`, batch.ID, batch.Glob, batch.Runs, batch.CreatedAtUTC, CurrentSchemaVersion, CurrentCodecVersion, payload)
	return err
}

func (s *SQLiteStore) GetBatch(ctx context.Context, id string) (model.Batch, []model.LineageSummary, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.Batch{}, nil, false, err
	}

	var (
		batch   model.Batch
		payload []byte
	)
	err = db.QueryRowContext(ctx, `
		SELECT id, glob, runs, created_at_utc, payload FROM batches WHERE id = ?
	`, id).Scan(&batch.ID, &batch.Glob, &batch.Runs, &batch.CreatedAtUTC, &payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Batch{}, nil, false, nil
		}
		return model.Batch{}, nil, false, err
	}

	summaries, err := DecodeSummaries(payload)
	if err != nil {
		return model.Batch{}, nil, false, fmt.Errorf("decode batch %s: %w", id, err)
	}
	return batch, summaries, true, nil
}

func (s *SQLiteStore) ListBatches(ctx context.Context) ([]model.Batch, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT id, glob, runs, created_at_utc FROM batches`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Batch
	for rows.Next() {
		var batch model.Batch
		if err := rows.Scan(&batch.ID, &batch.Glob, &batch.Runs, &batch.CreatedAtUTC); err != nil {
			return nil, err
		}
		out = append(out, batch)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortBatches(out)
	return out, nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS batches (
			id TEXT PRIMARY KEY,
			glob TEXT NOT NULL,
			runs INTEGER NOT NULL,
			created_at_utc TEXT NOT NULL,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
	`)
	return err
}
