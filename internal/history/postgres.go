package history

import (
	"context"
	"fmt"
	"log"
	"slices"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"

	"tomatoService/internal/clock"
)

const (
	dbTimeout = time.Second * 3

	// DefaultTable is the table completed segments are written to
	DefaultTable = "segment_history"
)

// PostgresRecorder writes completed segments to a Postgres table
type PostgresRecorder struct {
	Conn  *pgxpool.Pool
	table string
}

// NewPostgresRecorder creates a recorder on table, creating it when missing
func NewPostgresRecorder(ctx context.Context, conn *pgxpool.Pool, table string) (*PostgresRecorder, error) {
	if table == "" {
		table = DefaultTable
	}

	pr := &PostgresRecorder{
		Conn:  conn,
		table: pq.QuoteIdentifier(table),
	}
	if err := pr.ensureTable(ctx); err != nil {
		return nil, err
	}

	log.Printf("✅ Segment history table %s ready", pr.table)
	return pr, nil
}

func (pr *PostgresRecorder) ensureTable(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id BIGSERIAL PRIMARY KEY,
		mode TEXT NOT NULL,
		duration_ms BIGINT NOT NULL,
		completed_at TIMESTAMPTZ NOT NULL
	)`, pr.table)

	if _, err := pr.Conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create history table: %w", err)
	}
	return nil
}

// Record inserts one completed segment
func (pr *PostgresRecorder) Record(ctx context.Context, record clock.SegmentRecord) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	query := fmt.Sprintf(`INSERT INTO %s (mode, duration_ms, completed_at) VALUES ($1, $2, $3)`, pr.table)
	if _, err := pr.Conn.Exec(ctx, query, string(record.Mode), record.DurationMs, record.CompletedAt.UTC()); err != nil {
		return fmt.Errorf("failed to save segment history: %w", err)
	}

	log.Printf("Saved segment history: mode=%s, duration=%s", record.Mode, clock.FormatDuration(record.DurationMs))
	return nil
}

// Summary aggregates the whole table
func (pr *PostgresRecorder) Summary(ctx context.Context) (Summary, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	query := fmt.Sprintf(`SELECT
		COUNT(*) FILTER (WHERE mode = 'work'),
		COUNT(*) FILTER (WHERE mode = 'break'),
		COALESCE(SUM(duration_ms) FILTER (WHERE mode = 'work'), 0)::BIGINT,
		COALESCE(SUM(duration_ms) FILTER (WHERE mode = 'break'), 0)::BIGINT,
		COUNT(*) FILTER (WHERE mode = 'work' AND completed_at >= $1)
	FROM %s`, pr.table)

	var summary Summary
	err := pr.Conn.QueryRow(ctx, query, startOfDay(time.Now())).Scan(
		&summary.WorkSegments,
		&summary.BreakSegments,
		&summary.WorkMs,
		&summary.BreakMs,
		&summary.TodayWorkSegments,
	)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to load segment summary: %w", err)
	}
	return summary, nil
}

// Recent loads the latest count segments, oldest first
func (pr *PostgresRecorder) Recent(ctx context.Context, count int) ([]clock.SegmentRecord, error) {
	if count <= 0 {
		return []clock.SegmentRecord{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	query := fmt.Sprintf(`SELECT mode, duration_ms, completed_at FROM %s
	ORDER BY completed_at DESC, id DESC LIMIT $1`, pr.table)

	rows, err := pr.Conn.Query(ctx, query, count)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent segments: %w", err)
	}
	defer rows.Close()

	recent := make([]clock.SegmentRecord, 0, count)
	for rows.Next() {
		var (
			record clock.SegmentRecord
			mode   string
		)
		if err := rows.Scan(&mode, &record.DurationMs, &record.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan segment: %w", err)
		}
		record.Mode = clock.TimerMode(mode)
		recent = append(recent, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load recent segments: %w", err)
	}

	slices.Reverse(recent)
	return recent, nil
}

// Close closes the connection pool
func (pr *PostgresRecorder) Close() error {
	pr.Conn.Close()
	return nil
}
