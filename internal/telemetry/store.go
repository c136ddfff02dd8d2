package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
)

// Store persists search outcomes in SQLite. Writes arrive in batches from
// the Recorder; reads serve the stats command.
type Store struct {
	db     *sql.DB
	ownsDB bool
}

// Open creates or opens the telemetry database at path. An empty path opens
// an in-memory database.
func Open(path string) (*Store, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create telemetry dir: %w", err)
		}
		dsn = path + "?_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open telemetry db: %w", err)
	}

	// Single writer prevents lock contention under SQLite's one-writer model.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// modernc.org/sqlite ignores journal params in the DSN; pragmas must be
	// executed explicitly.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	if err := InitSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, ownsDB: true}, nil
}

// NewStore wraps an existing database connection. The caller keeps
// ownership; Close will not close it.
func NewStore(db *sql.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if err := InitSchema(db); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// InitSchema creates the telemetry tables if they don't exist.
// recorded_at is unix milliseconds; integer comparisons behave the same
// under every driver.
func InitSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS search_outcomes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		request_id TEXT NOT NULL,
		tenant_id TEXT NOT NULL,
		tier TEXT NOT NULL,
		elapsed_ms INTEGER NOT NULL,
		degraded_reason TEXT NOT NULL DEFAULT '',
		result_count INTEGER NOT NULL,
		vector_status TEXT NOT NULL DEFAULT '',
		keyword_status TEXT NOT NULL DEFAULT '',
		recorded_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_outcomes_recorded_at ON search_outcomes(recorded_at);
	CREATE INDEX IF NOT EXISTS idx_outcomes_tenant ON search_outcomes(tenant_id);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create telemetry schema: %w", err)
	}
	return nil
}

// InsertBatch writes outcomes in one transaction.
func (s *Store) InsertBatch(ctx context.Context, outcomes []Outcome) error {
	if len(outcomes) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO search_outcomes
			(request_id, tenant_id, tier, elapsed_ms, degraded_reason,
			 result_count, vector_status, keyword_status, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, o := range outcomes {
		recorded := o.RecordedAt
		if recorded.IsZero() {
			recorded = time.Now()
		}
		if _, err := stmt.ExecContext(ctx,
			o.RequestID, o.TenantID, o.Tier, o.ElapsedMS, o.DegradedReason,
			o.ResultCount, o.VectorStatus, o.KeywordStatus,
			recorded.UnixMilli()); err != nil {
			return fmt.Errorf("insert outcome: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Insert writes a single outcome.
func (s *Store) Insert(ctx context.Context, o Outcome) error {
	return s.InsertBatch(ctx, []Outcome{o})
}

// LatencyPercentiles computes p50/p95/p99 over outcomes recorded within
// window. A non-positive window means all time.
func (s *Store) LatencyPercentiles(ctx context.Context, window time.Duration) (Percentiles, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT elapsed_ms
		FROM search_outcomes
		WHERE recorded_at >= ?
		ORDER BY elapsed_ms
	`, windowCutoff(window))
	if err != nil {
		return Percentiles{}, fmt.Errorf("query latencies: %w", err)
	}
	defer rows.Close()

	var latencies []int64
	for rows.Next() {
		var ms int64
		if err := rows.Scan(&ms); err != nil {
			return Percentiles{}, fmt.Errorf("scan row: %w", err)
		}
		latencies = append(latencies, ms)
	}
	if err := rows.Err(); err != nil {
		return Percentiles{}, err
	}

	return Percentiles{
		P50:   percentile(latencies, 50),
		P95:   percentile(latencies, 95),
		P99:   percentile(latencies, 99),
		Count: int64(len(latencies)),
	}, nil
}

// TierCounts returns how many searches landed in each tier within window.
func (s *Store) TierCounts(ctx context.Context, window time.Duration) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tier, COUNT(*)
		FROM search_outcomes
		WHERE recorded_at >= ?
		GROUP BY tier
	`, windowCutoff(window))
	if err != nil {
		return nil, fmt.Errorf("query tier counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var tier string
		var count int64
		if err := rows.Scan(&tier, &count); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		counts[tier] = count
	}
	return counts, rows.Err()
}

// RecentOutcomes returns the n most recent outcomes, newest first.
func (s *Store) RecentOutcomes(ctx context.Context, n int) ([]Outcome, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT request_id, tenant_id, tier, elapsed_ms, degraded_reason,
		       result_count, vector_status, keyword_status, recorded_at
		FROM search_outcomes
		ORDER BY id DESC
		LIMIT ?
	`, n)
	if err != nil {
		return nil, fmt.Errorf("query recent outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []Outcome
	for rows.Next() {
		var o Outcome
		var recordedMS int64
		if err := rows.Scan(&o.RequestID, &o.TenantID, &o.Tier, &o.ElapsedMS,
			&o.DegradedReason, &o.ResultCount, &o.VectorStatus,
			&o.KeywordStatus, &recordedMS); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		o.RecordedAt = time.UnixMilli(recordedMS).UTC()
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

// Close releases the database if this store opened it. Injected connections
// stay open; they're shared with the caller.
func (s *Store) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}

func windowCutoff(window time.Duration) int64 {
	if window <= 0 {
		return 0
	}
	return time.Now().Add(-window).UnixMilli()
}
