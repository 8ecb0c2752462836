package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/crestline/perf/internal/contracts"
)

// ErrNotFound is returned when no snapshot matches
var ErrNotFound = errors.New("snapshot not found")

// DefaultLimit and MaxLimit bound ListSnapshots
const (
	DefaultLimit = 30
	MaxLimit     = 365
)

// Snapshot is one persisted metrics record
type Snapshot struct {
	ID         int64                      `json:"id"`
	Date       time.Time                  `json:"date"`
	Period     contracts.Period           `json:"period"`
	Metrics    contracts.PortfolioMetrics `json:"metrics"`
	TradeCount int                        `json:"trade_count"`
	CreatedAt  time.Time                  `json:"created_at"`
}

// NewSnapshot captures metrics for period as of date
func NewSnapshot(date time.Time, period contracts.Period, m contracts.PortfolioMetrics) *Snapshot {
	return &Snapshot{
		Date:       contracts.DateOnly(date),
		Period:     period,
		Metrics:    m,
		TradeCount: m.TotalTrades,
	}
}

// DBTX is the subset of pgxpool.Pool the repository uses
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository handles snapshot persistence
// ⭐ SSOT: perf.metric_snapshots is only read and written here
type Repository struct {
	db DBTX
}

// NewRepository creates a new history repository
func NewRepository(db DBTX) *Repository {
	return &Repository{db: db}
}

// SaveSnapshot upserts the snapshot for (date, period)
func (r *Repository) SaveSnapshot(ctx context.Context, s *Snapshot) error {
	metricsJSON, err := json.Marshal(s.Metrics)
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	query := `
		INSERT INTO perf.metric_snapshots (
			snapshot_date, period, metrics, trade_count
		) VALUES ($1, $2, $3, $4)
		ON CONFLICT (snapshot_date, period) DO UPDATE SET
			metrics = EXCLUDED.metrics,
			trade_count = EXCLUDED.trade_count,
			created_at = now()
		RETURNING id, created_at
	`

	err = r.db.QueryRow(ctx, query,
		s.Date, string(s.Period), metricsJSON, s.TradeCount,
	).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	return nil
}

// ListSnapshots returns the newest snapshots for period, newest first
func (r *Repository) ListSnapshots(ctx context.Context, period contracts.Period, limit int) ([]Snapshot, error) {
	limit = ClampLimit(limit)

	query := `
		SELECT id, snapshot_date, period, metrics, trade_count, created_at
		FROM perf.metric_snapshots
		WHERE period = $1
		ORDER BY snapshot_date DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, string(period), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := make([]Snapshot, 0, limit)
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate snapshots: %w", err)
	}

	return snapshots, nil
}

// LatestSnapshot returns the most recent snapshot for period
func (r *Repository) LatestSnapshot(ctx context.Context, period contracts.Period) (*Snapshot, error) {
	query := `
		SELECT id, snapshot_date, period, metrics, trade_count, created_at
		FROM perf.metric_snapshots
		WHERE period = $1
		ORDER BY snapshot_date DESC
		LIMIT 1
	`

	s, err := scanSnapshot(r.db.QueryRow(ctx, query, string(period)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return s, err
}

// ClampLimit maps a requested page size into [1, MaxLimit]; 0 means default
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

func scanSnapshot(row pgx.Row) (*Snapshot, error) {
	var s Snapshot
	var period string
	var metricsJSON []byte

	err := row.Scan(&s.ID, &s.Date, &period, &metricsJSON, &s.TradeCount, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan snapshot: %w", err)
	}

	if err := json.Unmarshal(metricsJSON, &s.Metrics); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metrics: %w", err)
	}
	s.Period = contracts.Period(period)

	return &s, nil
}
