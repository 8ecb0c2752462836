//go:build integration

package history_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/crestline/perf/internal/contracts"
	"github.com/crestline/perf/internal/history"
	"github.com/crestline/perf/pkg/config"
	"github.com/crestline/perf/pkg/database"
)

// startPostgres runs a throwaway postgres and returns a migrated pool
func startPostgres(t *testing.T) *database.DB {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	ctr, err := testcontainers.Run(ctx, "postgres:16-alpine",
		testcontainers.WithExposedPorts("5432/tcp"),
		testcontainers.WithEnv(map[string]string{
			"POSTGRES_USER":     "perf",
			"POSTGRES_PASSWORD": "perf",
			"POSTGRES_DB":       "perf",
		}),
		testcontainers.WithWaitStrategy(
			wait.ForAll(
				wait.ForListeningPort("5432/tcp"),
				wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			).WithDeadline(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctr.Terminate(context.Background()) })

	endpoint, err := ctr.PortEndpoint(ctx, "5432/tcp", "")
	require.NoError(t, err)

	cfg := &config.Config{Database: config.DatabaseConfig{
		URL:             fmt.Sprintf("postgres://perf:perf@%s/perf?sslmode=disable", endpoint),
		MaxConns:        4,
		MinConns:        1,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: time.Minute,
	}}

	db, err := database.New(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, db.Migrate(ctx))
	require.NoError(t, db.Migrate(ctx), "migration is idempotent")

	return db
}

func TestRepository_Postgres(t *testing.T) {
	db := startPostgres(t)
	repo := history.NewRepository(db.Pool)
	ctx := context.Background()

	day := func(d int) time.Time { return time.Date(2025, 3, d, 21, 30, 0, 0, time.UTC) }

	for d := 1; d <= 3; d++ {
		snap := history.NewSnapshot(day(d), contracts.PeriodAll, contracts.PortfolioMetrics{
			TotalTrades: 10 + d,
			TotalReturn: float64(d),
		})
		require.NoError(t, repo.SaveSnapshot(ctx, snap))
		assert.NotZero(t, snap.ID)
	}

	// Same day again replaces the row
	again := history.NewSnapshot(day(3), contracts.PeriodAll, contracts.PortfolioMetrics{TotalTrades: 99})
	require.NoError(t, repo.SaveSnapshot(ctx, again))

	list, err := repo.ListSnapshots(ctx, contracts.PeriodAll, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 99, list[0].TradeCount)
	assert.Equal(t, 12, list[1].TradeCount)
	assert.InDelta(t, 2.0, list[1].Metrics.TotalReturn, 1e-9)

	latest, err := repo.LatestSnapshot(ctx, contracts.PeriodAll)
	require.NoError(t, err)
	assert.Equal(t, 99, latest.Metrics.TotalTrades)

	_, err = repo.LatestSnapshot(ctx, contracts.PeriodYTD)
	assert.ErrorIs(t, err, history.ErrNotFound)

	hs, err := db.HealthCheck(ctx)
	require.NoError(t, err)
	assert.True(t, hs.Healthy)
}
