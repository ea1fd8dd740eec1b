package server

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/finopslabs/focus-mcp/internal/catalog"
	"github.com/finopslabs/focus-mcp/internal/dataset"
	"github.com/finopslabs/focus-mcp/internal/duck"
	"github.com/finopslabs/focus-mcp/internal/executor"
	"github.com/finopslabs/focus-mcp/internal/spec"
	"github.com/finopslabs/focus-mcp/resources"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func testDB(t *testing.T) duck.DB {
	t.Helper()
	db, err := duck.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, db.Close()) })
	return db
}

// writeBillingPartition writes one month of synthetic billing rows as a
// hive-partitioned parquet file, alternating between two services.
func writeBillingPartition(t *testing.T, db duck.DB, root, period, periodEnd string, rowCount int, rowCost float64) {
	t.Helper()
	ctx := context.Background()

	partDir := filepath.Join(root, "billing_period="+period)
	require.NoError(t, os.MkdirAll(partDir, 0o755))

	conn, err := db.Conn(ctx)
	require.NoError(t, err)
	defer conn.Close()

	stmt := fmt.Sprintf(`COPY (
		SELECT
			DATE '%s-01' AS BillingPeriodStart,
			DATE '%s' AS BillingPeriodEnd,
			TIMESTAMP '%s-01 00:00:00' + INTERVAL (i) HOUR AS ChargePeriodStart,
			TIMESTAMP '%s-01 01:00:00' + INTERVAL (i) HOUR AS ChargePeriodEnd,
			'Google Cloud' AS ProviderName,
			CASE WHEN i %% 2 = 0 THEN 'Compute Engine' ELSE 'Cloud Storage' END AS ServiceName,
			CASE WHEN i %% 2 = 0 THEN 'Compute' ELSE 'Storage' END AS ServiceCategory,
			'sub-001' AS SubAccountId,
			CAST(%f AS DECIMAL(18, 4)) AS EffectiveCost,
			CAST(%f AS DECIMAL(18, 4)) AS BilledCost,
			CAST(i AS DOUBLE) AS ConsumedQuantity
		FROM range(%d) t(i)
	) TO '%s' (FORMAT PARQUET)`,
		period, periodEnd, period, period, rowCost, rowCost,
		rowCount, filepath.Join(partDir, "part-0.parquet"))

	_, err = conn.ExecContext(ctx, stmt)
	require.NoError(t, err)
}

// newTestServer wires a full server from the embedded resource bundle,
// the given duck handle, and the given data location.
func newTestServer(t *testing.T, db duck.DB, location string) *Server {
	t.Helper()
	ctx := context.Background()

	queriesFS, err := fs.Sub(resources.FS, "queries")
	require.NoError(t, err)
	queryCatalog, err := catalog.Load(testLogger(), queriesFS)
	require.NoError(t, err)

	specFS, err := fs.Sub(resources.FS, "specifications")
	require.NoError(t, err)
	registry, err := spec.Load(specFS)
	require.NoError(t, err)

	view, err := dataset.New(dataset.Config{
		Logger:   testLogger(),
		DB:       db,
		Location: location,
	})
	require.NoError(t, err)

	exec, err := executor.New(executor.Config{
		Logger: testLogger(),
		DB:     db,
		View:   view,
	})
	require.NoError(t, err)

	srv, err := New(ctx, Config{
		Logger:     testLogger(),
		Catalog:    queryCatalog,
		Registry:   registry,
		Dataset:    view,
		Executor:   exec,
		ListenAddr: "127.0.0.1:0",
	})
	require.NoError(t, err)
	return srv
}

// newTestServerWithData seeds two billing periods and returns a server
// pointed at them.
func newTestServerWithData(t *testing.T) *Server {
	t.Helper()
	db := testDB(t)
	root := t.TempDir()
	writeBillingPartition(t, db, root, "2025-05", "2025-06-01", 10, 1.25)
	writeBillingPartition(t, db, root, "2025-06", "2025-07-01", 15, 2.0)
	return newTestServer(t, db, root)
}
