package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ashureev/careline/internal/domain"
	_ "modernc.org/sqlite"
)

// DefaultSearchLimit caps row-mode results when the caller supplies none.
const DefaultSearchLimit = 5

// SQLiteDirectory implements Directory using SQLite.
type SQLiteDirectory struct {
	db *sql.DB
}

// NewSQLite creates a SQLite-backed directory and loads the dataset: rows
// from csvPath when readable, the fixed seed set otherwise. dbPath may be
// ":memory:" for a purely in-process directory.
func NewSQLite(dbPath, csvPath string) (*SQLiteDirectory, error) {
	var dsn string
	if dbPath == ":memory:" {
		dsn = "file::memory:?cache=shared"
	} else {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
		dsn = dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if dbPath == ":memory:" {
		// Shared-cache in-memory databases vanish when the last connection
		// closes; a single pooled connection keeps the dataset alive.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	dir := &SQLiteDirectory{db: db}
	if err := dir.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	if err := dir.loadDataset(csvPath); err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}

	return dir, nil
}

func (d *SQLiteDirectory) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS hospitals (
		name TEXT NOT NULL,
		city TEXT NOT NULL,
		address TEXT NOT NULL
	);`
	if _, err := d.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// loadDataset replaces the hospitals table contents. The dataset file is the
// source of truth; the table is rebuilt on every startup, matching the
// ephemeral reference behavior.
func (d *SQLiteDirectory) loadDataset(csvPath string) error {
	rows, err := loadCSV(csvPath)
	if err != nil {
		slog.Info("Dataset file unavailable, seeding sample rows", "path", csvPath, "reason", err)
		rows = domain.SeedHospitals()
	} else {
		slog.Info("Dataset loaded", "path", csvPath, "rows", len(rows))
	}

	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.Exec(`DELETE FROM hospitals`); err != nil {
		return fmt.Errorf("clear hospitals: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO hospitals (name, city, address) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() {
		if closeErr := stmt.Close(); closeErr != nil {
			slog.Warn("failed to close insert statement", "error", closeErr)
		}
	}()

	for _, h := range rows {
		if _, err := stmt.Exec(h.Name, h.City, h.Address); err != nil {
			return fmt.Errorf("insert hospital %q: %w", h.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	return nil
}

// filterClause compiles a Filter into a WHERE tail plus bound arguments.
// SQLite LIKE is case-insensitive for ASCII; wildcards in user input are
// escaped so they match literally.
func filterClause(f Filter) (string, []any) {
	var (
		clause string
		args   []any
	)
	if f.City != "" {
		clause += ` AND city LIKE ? ESCAPE '\'`
		args = append(args, "%"+escapeLike(f.City)+"%")
	}
	if f.Name != "" {
		clause += ` AND name LIKE ? ESCAPE '\'`
		args = append(args, "%"+escapeLike(f.Name)+"%")
	}
	return clause, args
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// Search returns up to limit matching rows.
func (d *SQLiteDirectory) Search(ctx context.Context, f Filter, limit int) ([]domain.Hospital, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	clause, args := filterClause(f)
	query := `SELECT name, city, address FROM hospitals WHERE 1=1` + clause + ` LIMIT ?`
	args = append(args, limit)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query hospitals: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close hospital rows", "error", closeErr)
		}
	}()

	var out []domain.Hospital
	for rows.Next() {
		var h domain.Hospital
		if err := rows.Scan(&h.Name, &h.City, &h.Address); err != nil {
			return nil, fmt.Errorf("scan hospital row: %w", err)
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate hospitals: %w", err)
	}
	return out, nil
}

// Count returns the number of matching rows.
func (d *SQLiteDirectory) Count(ctx context.Context, f Filter) (int, error) {
	clause, args := filterClause(f)
	query := `SELECT COUNT(*) FROM hospitals WHERE 1=1` + clause

	var n int
	if err := d.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count hospitals: %w", err)
	}
	return n, nil
}

// Ping verifies database connectivity.
func (d *SQLiteDirectory) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Close closes the database connection.
func (d *SQLiteDirectory) Close() error {
	if err := d.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
