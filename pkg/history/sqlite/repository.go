package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/charlie0129/camexpo/pkg/exposure"
	"github.com/charlie0129/camexpo/pkg/history"
)

var _ history.Repository = &Repository{}

// Repository implements history.Repository with SQLite
type Repository struct {
	db *sql.DB
}

// NewRepository opens (and creates if needed) the database at dbPath.
func NewRepository(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS captures (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		cycle TEXT NOT NULL DEFAULT '',
		camera TEXT NOT NULL,
		taken_at INTEGER NOT NULL,
		file TEXT NOT NULL DEFAULT '',
		brightness REAL,
		tier_before INTEGER NOT NULL,
		gain_before INTEGER NOT NULL,
		tier_after INTEGER NOT NULL,
		gain_after INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_captures_camera_taken_at ON captures(camera, taken_at);
	`

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Repository{db: db}, nil
}

// Save stores a record in SQLite
func (r *Repository) Save(ctx context.Context, rec *history.Record) error {
	query := `INSERT INTO captures
		(cycle, camera, taken_at, file, brightness, tier_before, gain_before, tier_after, gain_after, outcome, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var brightness sql.NullFloat64
	if rec.Brightness != nil {
		brightness = sql.NullFloat64{Float64: *rec.Brightness, Valid: true}
	}

	result, err := r.db.ExecContext(ctx, query,
		rec.Cycle,
		rec.Camera,
		rec.TakenAt.UnixNano(),
		rec.File,
		brightness,
		int(rec.Before.Tier), rec.Before.Gain,
		int(rec.After.Tier), rec.After.Gain,
		string(rec.Outcome),
		rec.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get insert id: %w", err)
	}

	rec.ID = id
	return nil
}

const selectColumns = `SELECT id, cycle, camera, taken_at, file, brightness,
	tier_before, gain_before, tier_after, gain_after, outcome, error FROM captures`

// Latest retrieves the most recent record of camera
func (r *Repository) Latest(ctx context.Context, camera string) (*history.Record, error) {
	query := selectColumns + ` WHERE camera = ? ORDER BY taken_at DESC, id DESC LIMIT 1`

	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, camera))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, history.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest record: %w", err)
	}
	return rec, nil
}

// List retrieves up to limit records of camera, newest first
func (r *Repository) List(ctx context.Context, camera string, limit int) ([]*history.Record, error) {
	if limit <= 0 {
		limit = -1 // no limit in SQLite
	}
	query := selectColumns + ` WHERE camera = ? ORDER BY taken_at DESC, id DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, camera, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []*history.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// DeleteOlderThan removes records taken before t
func (r *Repository) DeleteOlderThan(ctx context.Context, t time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM captures WHERE taken_at < ?`, t.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to delete old records: %w", err)
	}
	return result.RowsAffected()
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*history.Record, error) {
	var (
		rec                   history.Record
		takenAt               int64
		brightness            sql.NullFloat64
		tierBefore, tierAfter int
		outcome               string
	)

	err := s.Scan(
		&rec.ID,
		&rec.Cycle,
		&rec.Camera,
		&takenAt,
		&rec.File,
		&brightness,
		&tierBefore, &rec.Before.Gain,
		&tierAfter, &rec.After.Gain,
		&outcome,
		&rec.Error,
	)
	if err != nil {
		return nil, err
	}

	rec.TakenAt = time.Unix(0, takenAt)
	if brightness.Valid {
		v := brightness.Float64
		rec.Brightness = &v
	}
	rec.Before.Tier = exposure.Tier(tierBefore)
	rec.After.Tier = exposure.Tier(tierAfter)
	rec.Outcome = history.Outcome(outcome)

	return &rec, nil
}
