package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hazz-dev/pacprobe/internal/probe"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS probes (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    endpoint    TEXT    NOT NULL,
    outcome     TEXT    NOT NULL CHECK(outcome IN ('success', 'unauthorized', 'unexpected_status', 'network_error')),
    status_code INTEGER NOT NULL DEFAULT 0,
    response_ms INTEGER NOT NULL,
    error       TEXT    NOT NULL DEFAULT '',
    checked_at  TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_probes_checked_at ON probes(checked_at DESC);
CREATE INDEX IF NOT EXISTS idx_probes_endpoint_checked ON probes(endpoint, checked_at DESC);
`

// timeLayout is fixed-width so checked_at sorts correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Probe is a stored probe result.
type Probe struct {
	ID         int64     `json:"id"`
	Endpoint   string    `json:"endpoint"`
	Outcome    string    `json:"outcome"`
	StatusCode int       `json:"status_code"`
	ResponseMs int64     `json:"response_ms"`
	Error      string    `json:"error"`
	CheckedAt  time.Time `json:"checked_at"`
}

// DB wraps a SQLite database.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at path and applies the schema.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite at %q: %w", path, err)
	}
	// Every connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying pragma %q: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// InsertProbe persists a probe result.
func (d *DB) InsertProbe(ctx context.Context, r probe.Result) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO probes (endpoint, outcome, status_code, response_ms, error, checked_at) VALUES (?, ?, ?, ?, ?, ?)`,
		r.Endpoint,
		string(r.Outcome),
		r.StatusCode,
		r.ResponseTime.Milliseconds(),
		r.Error,
		r.CheckedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting probe for %q: %w", r.Endpoint, err)
	}
	return nil
}

// LatestProbe returns the most recent probe of endpoint, or nil if none.
func (d *DB) LatestProbe(ctx context.Context, endpoint string) (*Probe, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT id, endpoint, outcome, status_code, response_ms, error, checked_at FROM probes WHERE endpoint = ? ORDER BY checked_at DESC, id DESC LIMIT 1`,
		endpoint,
	)
	p, err := scanProbe(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest probe for %q: %w", endpoint, err)
	}
	return p, nil
}

// History returns paginated probe history for endpoint plus the total count.
func (d *DB) History(ctx context.Context, endpoint string, limit, offset int) ([]Probe, int, error) {
	var total int
	err := d.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM probes WHERE endpoint = ?`, endpoint,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("counting probes for %q: %w", endpoint, err)
	}

	rows, err := d.db.QueryContext(ctx,
		`SELECT id, endpoint, outcome, status_code, response_ms, error, checked_at FROM probes WHERE endpoint = ? ORDER BY checked_at DESC, id DESC LIMIT ? OFFSET ?`,
		endpoint, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("querying history for %q: %w", endpoint, err)
	}
	defer rows.Close()

	probes, err := scanProbes(rows)
	if err != nil {
		return nil, 0, err
	}
	return probes, total, nil
}

// Recent returns the newest probes across all endpoints.
func (d *DB) Recent(ctx context.Context, limit int) ([]Probe, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, endpoint, outcome, status_code, response_ms, error, checked_at FROM probes ORDER BY checked_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying recent probes: %w", err)
	}
	defer rows.Close()
	return scanProbes(rows)
}

// SuccessRate returns the percentage of successful probes among the last N for endpoint.
func (d *DB) SuccessRate(ctx context.Context, endpoint string, last int) (float64, error) {
	var total int
	var okCount sql.NullInt64
	err := d.db.QueryRowContext(ctx, `
		SELECT COUNT(*), SUM(CASE WHEN outcome = 'success' THEN 1 ELSE 0 END)
		FROM (
			SELECT outcome FROM probes WHERE endpoint = ? ORDER BY checked_at DESC, id DESC LIMIT ?
		)
	`, endpoint, last).Scan(&total, &okCount)
	if err != nil {
		return 0, fmt.Errorf("calculating success rate for %q: %w", endpoint, err)
	}
	if total == 0 {
		return 0, nil
	}
	return float64(okCount.Int64) / float64(total) * 100, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProbe(row scanner) (*Probe, error) {
	var p Probe
	var checkedAt string
	err := row.Scan(&p.ID, &p.Endpoint, &p.Outcome, &p.StatusCode, &p.ResponseMs, &p.Error, &checkedAt)
	if err != nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339Nano, checkedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing checked_at %q: %w", checkedAt, err)
	}
	p.CheckedAt = t
	return &p, nil
}

func scanProbes(rows *sql.Rows) ([]Probe, error) {
	var probes []Probe
	for rows.Next() {
		p, err := scanProbe(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning probe row: %w", err)
		}
		probes = append(probes, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating probe rows: %w", err)
	}
	return probes, nil
}
