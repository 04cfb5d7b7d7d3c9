package reports

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/soltixdb/brutlag/internal/analytics/anomaly"
	"github.com/soltixdb/brutlag/internal/compression"
	"github.com/soltixdb/brutlag/internal/logging"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

var migrations = []struct {
	version int
	sql     string
}{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS reports (
    id          TEXT PRIMARY KEY,
    series      TEXT NOT NULL,
    method      TEXT NOT NULL DEFAULT '',
    created_at  INTEGER NOT NULL,
    summary     TEXT NOT NULL,
    compression INTEGER NOT NULL DEFAULT 0,
    body        BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_reports_series ON reports(series);

CREATE TABLE IF NOT EXISTS anomalies (
    report_id   TEXT NOT NULL REFERENCES reports(id) ON DELETE CASCADE,
    idx         INTEGER NOT NULL,
    series      TEXT NOT NULL,
    time        TEXT NOT NULL,
    value       REAL NOT NULL,
    predicted   REAL NOT NULL,
    lower       REAL,
    upper       REAL,
    score       REAL NOT NULL,
    type        TEXT NOT NULL,
    algorithm   TEXT NOT NULL,
    PRIMARY KEY (report_id, idx)
);
CREATE INDEX IF NOT EXISTS idx_anomalies_series ON anomalies(series, time);
`,
	},
}

// SQLiteStore keeps reports in a SQLite database. Report bodies are stored
// compressed; anomalies are also indexed per series.
type SQLiteStore struct {
	db         *sql.DB
	compressor compression.Compressor
	logger     *logging.Logger
}

// NewSQLiteStore opens or creates the database at path and applies pending
// migrations. ":memory:" gives a private in-memory database.
func NewSQLiteStore(path string, compressor compression.Compressor, logger *logging.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	// One connection keeps ":memory:" databases shared and avoids SQLITE_BUSY on writes
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys=ON`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if compressor == nil {
		compressor = &compression.NoneCompressor{}
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	s := &SQLiteStore{db: db, compressor: compressor, logger: logger}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_versions (
        version    INTEGER PRIMARY KEY,
        applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
    )`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		if err := s.db.QueryRow(`SELECT COUNT(*) FROM schema_versions WHERE version = ?`, m.version).Scan(&count); err != nil {
			return fmt.Errorf("check migration %d: %w", m.version, err)
		}
		if count > 0 {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("apply migration %d: %w", m.version, err)
		}
		if _, err := s.db.Exec(`INSERT INTO schema_versions(version) VALUES(?)`, m.version); err != nil {
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
	}
	return nil
}

// Save upserts r and replaces its anomaly rows
func (s *SQLiteStore) Save(ctx context.Context, r *Report) error {
	if err := ValidateID(r.ID); err != nil {
		return err
	}

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	body, err := s.compressor.Compress(data)
	if err != nil {
		return err
	}
	summary, err := json.Marshal(r.Summary)
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
        INSERT INTO reports(id, series, method, created_at, summary, compression, body)
        VALUES(?,?,?,?,?,?,?)
        ON CONFLICT(id) DO UPDATE SET
            series      = excluded.series,
            method      = excluded.method,
            created_at  = excluded.created_at,
            summary     = excluded.summary,
            compression = excluded.compression,
            body        = excluded.body
    `, r.ID, r.Series, r.Method, r.CreatedAt.UnixNano(), string(summary), int(s.compressor.Algorithm()), body)
	if err != nil {
		return fmt.Errorf("upsert report: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM anomalies WHERE report_id = ?`, r.ID); err != nil {
		return fmt.Errorf("delete anomalies: %w", err)
	}
	for _, a := range r.Anomalies {
		var lower, upper sql.NullFloat64
		if a.Expected != nil {
			lower = sql.NullFloat64{Float64: a.Expected.Min, Valid: true}
			upper = sql.NullFloat64{Float64: a.Expected.Max, Valid: true}
		}
		_, err := tx.ExecContext(ctx, `
            INSERT INTO anomalies(report_id, idx, series, time, value, predicted, lower, upper, score, type, algorithm)
            VALUES(?,?,?,?,?,?,?,?,?,?,?)
        `, r.ID, a.Index, a.Series, a.Time, a.Value, a.Predicted, lower, upper, a.Score, string(a.Type), a.Algorithm)
		if err != nil {
			return fmt.Errorf("insert anomaly: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit report: %w", err)
	}
	s.logger.Debug("Report saved", "id", r.ID, "bytes", len(body), "anomalies", len(r.Anomalies))
	return nil
}

// Get loads and decompresses a report body
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Report, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}

	var algo int
	var body []byte
	err := s.db.QueryRowContext(ctx, `SELECT compression, body FROM reports WHERE id = ?`, id).Scan(&algo, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query report: %w", err)
	}

	c, err := compression.GetCompressor(compression.Algorithm(algo))
	if err != nil {
		return nil, err
	}
	data, err := c.Decompress(body)
	if err != nil {
		return nil, err
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return &r, nil
}

// List returns summaries newest first
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]Summary, error) {
	query := `SELECT summary FROM reports ORDER BY created_at DESC, id ASC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer func() { _ = rows.Close() }()

	summaries := []Summary{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var sum Summary
		if err := json.Unmarshal([]byte(raw), &sum); err != nil {
			return nil, fmt.Errorf("decode summary: %w", err)
		}
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

// SeriesAnomalies returns the anomalies recorded for a series across all
// reports, most recent observation first
func (s *SQLiteStore) SeriesAnomalies(ctx context.Context, series string, limit int) ([]anomaly.Anomaly, error) {
	query := `SELECT idx, series, time, value, predicted, lower, upper, score, type, algorithm
        FROM anomalies WHERE series = ? ORDER BY time DESC, report_id ASC`
	args := []interface{}{series}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query anomalies: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []anomaly.Anomaly{}
	for rows.Next() {
		var a anomaly.Anomaly
		var typ string
		var lower, upper sql.NullFloat64
		if err := rows.Scan(&a.Index, &a.Series, &a.Time, &a.Value, &a.Predicted, &lower, &upper, &a.Score, &typ, &a.Algorithm); err != nil {
			return nil, err
		}
		a.Type = anomaly.AnomalyType(typ)
		if lower.Valid && upper.Valid {
			a.Expected = &anomaly.Range{Min: lower.Float64, Max: upper.Float64}
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Ping checks the database connection
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
