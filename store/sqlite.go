package store

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	journal "github.com/etnz/tradejournal"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS ledger_snapshots (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	saved_at        TEXT NOT NULL,
	fetched_through TEXT,
	data            TEXT NOT NULL
)`

// SQLite stores every saved ledger as a snapshot row; Load returns the latest.
type SQLite struct {
	conn *sql.DB
	path string
}

// OpenSQLite opens (or creates) the database at dbPath.
func OpenSQLite(dbPath string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	// Use WAL mode for better concurrency
	conn, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	conn.SetMaxOpenConns(1)
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &SQLite{conn: conn, path: dbPath}, nil
}

// Close closes the database connection
func (s *SQLite) Close() error { return s.conn.Close() }

func (s *SQLite) Load(ctx context.Context) (*journal.Ledger, error) {
	var data string
	err := s.conn.QueryRowContext(ctx, `SELECT data FROM ledger_snapshots ORDER BY id DESC LIMIT 1`).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, journal.ErrNoLedger
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	l, err := journal.DecodeLedger(bytes.NewReader([]byte(data)))
	if err != nil {
		return nil, fmt.Errorf("cannot decode ledger from %q: %w", s.path, err)
	}
	return l, nil
}

func (s *SQLite) Save(ctx context.Context, l *journal.Ledger) error {
	var buf bytes.Buffer
	if err := journal.EncodeLedger(&buf, l); err != nil {
		return fmt.Errorf("cannot encode ledger: %w", err)
	}
	var through any
	if !l.FetchedThrough.IsZero() {
		through = l.FetchedThrough.UTC().Format(time.RFC3339Nano)
	}
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO ledger_snapshots (saved_at, fetched_through, data) VALUES (?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339Nano), through, buf.String())
	if err != nil {
		return fmt.Errorf("failed to save ledger: %w", err)
	}
	return nil
}

// Snapshot describes a saved ledger.
type Snapshot struct {
	ID             int64
	SavedAt        time.Time
	FetchedThrough time.Time
}

// History lists saved snapshots, most recent first.
func (s *SQLite) History(ctx context.Context, limit int) ([]Snapshot, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, saved_at, COALESCE(fetched_through, '') FROM ledger_snapshots ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var res []Snapshot
	for rows.Next() {
		var snap Snapshot
		var savedAt, through string
		if err := rows.Scan(&snap.ID, &savedAt, &through); err != nil {
			return nil, err
		}
		snap.SavedAt, _ = time.Parse(time.RFC3339Nano, savedAt)
		if through != "" {
			snap.FetchedThrough, _ = time.Parse(time.RFC3339Nano, through)
		}
		res = append(res, snap)
	}
	return res, rows.Err()
}

// Prune deletes all but the keep most recent snapshots.
func (s *SQLite) Prune(ctx context.Context, keep int) (int64, error) {
	res, err := s.conn.ExecContext(ctx,
		`DELETE FROM ledger_snapshots WHERE id NOT IN (SELECT id FROM ledger_snapshots ORDER BY id DESC LIMIT ?)`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune snapshots: %w", err)
	}
	return res.RowsAffected()
}
