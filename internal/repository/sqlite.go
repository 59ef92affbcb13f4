package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/wzyjerry/stray-saver/internal/model"
)

// SQLiteStore keeps reports in a single sqlite table.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database at dbPath and creates tables
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure data directory exists
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set connection pool parameters
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &SQLiteStore{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return s, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close(context.Context) error {
	return s.db.Close()
}

// createTables creates all tables if they don't exist
func (s *SQLiteStore) createTables() error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS animal_reports (
			id TEXT PRIMARY KEY,
			location TEXT NOT NULL DEFAULT '',
			latitude TEXT NOT NULL DEFAULT '',
			longitude TEXT NOT NULL DEFAULT '',
			severity_level TEXT NOT NULL,
			severity_type TEXT NOT NULL,
			road_block TEXT NOT NULL,
			image_url TEXT NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT '',
			landmark TEXT NOT NULL DEFAULT '',
			timestamp INTEGER NOT NULL,
			reporter_uid TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_animal_reports_timestamp ON animal_reports(timestamp DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_animal_reports_reporter ON animal_reports(reporter_uid, timestamp DESC)`,
	}

	for _, table := range tables {
		if _, err := s.db.Exec(table); err != nil {
			return fmt.Errorf("failed to execute SQL: %s, error: %w", table, err)
		}
	}

	return nil
}

const reportColumns = `id, location, latitude, longitude, severity_level, severity_type,
	road_block, image_url, notes, landmark, timestamp, reporter_uid`

// Create inserts a report. The timestamp is stored as unix nanoseconds so
// ORDER BY compares numerically.
func (s *SQLiteStore) Create(ctx context.Context, report *model.Report) error {
	query := `INSERT INTO animal_reports (` + reportColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		report.ID, report.Location, report.Latitude, report.Longitude,
		report.SeverityLevel, report.SeverityType, report.RoadBlock,
		report.ImageURL, report.Notes, report.Landmark,
		report.Timestamp.UnixNano(), report.ReporterUID)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return ErrDuplicateID
		}
		return err
	}
	return nil
}

// List returns all reports, newest first
func (s *SQLiteStore) List(ctx context.Context) ([]model.Report, error) {
	return s.query(ctx, `SELECT `+reportColumns+` FROM animal_reports ORDER BY timestamp DESC, rowid DESC`)
}

// ListByReporter returns one reporter's reports, newest first
func (s *SQLiteStore) ListByReporter(ctx context.Context, uid string) ([]model.Report, error) {
	return s.query(ctx, `SELECT `+reportColumns+` FROM animal_reports
		WHERE reporter_uid = ? ORDER BY timestamp DESC, rowid DESC`, uid)
}

func (s *SQLiteStore) query(ctx context.Context, query string, args ...any) ([]model.Report, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reports := []model.Report{}
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *report)
	}

	return reports, rows.Err()
}

// Get returns a report by ID
func (s *SQLiteStore) Get(ctx context.Context, id string) (*model.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM animal_reports WHERE id = ?`

	report, err := scanReport(s.db.QueryRowContext(ctx, query, strings.TrimSpace(id)))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return report, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReport(row scanner) (*model.Report, error) {
	report := &model.Report{}
	var ts int64

	err := row.Scan(
		&report.ID, &report.Location, &report.Latitude, &report.Longitude,
		&report.SeverityLevel, &report.SeverityType, &report.RoadBlock,
		&report.ImageURL, &report.Notes, &report.Landmark,
		&ts, &report.ReporterUID,
	)
	if err != nil {
		return nil, err
	}

	report.Timestamp = time.Unix(0, ts).UTC()
	return report, nil
}
