// Package dataset materializes a single logical relation over the
// configured FOCUS billing data location (a local directory tree or an
// s3:// prefix, hive-partitioned by billing period) and reports its
// observed shape.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/finopslabs/focus-mcp/internal/duck"
)

// ViewName is the relation every query runs against.
const ViewName = "focus_data"

// ErrDataUnavailable reports that the configured location is
// unreachable or holds no partitioned parquet files. It is surfaced on
// first use and the caller may retry after fixing configuration.
var ErrDataUnavailable = errors.New("focus data unavailable")

type Config struct {
	Logger    *slog.Logger
	DB        duck.DB
	Location  string
	AWSRegion string
}

func (c *Config) Validate() error {
	if c.Logger == nil {
		return fmt.Errorf("logger is required")
	}
	if c.DB == nil {
		return fmt.Errorf("database is required")
	}
	if c.Location == "" {
		return fmt.Errorf("data location is required")
	}
	return nil
}

// View owns the lazily-built queryable relation. Materialization runs
// at most once on success; a failed attempt is not memoized so the
// next call retries.
type View struct {
	log *slog.Logger
	cfg Config

	mu    sync.Mutex
	ready bool
}

func New(cfg Config) (*View, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate dataset config: %w", err)
	}
	return &View{log: cfg.Logger, cfg: cfg}, nil
}

func (v *View) Location() string {
	return v.cfg.Location
}

// Ensure materializes the view if it does not exist yet. Concurrent
// first-use calls are serialized so partition discovery runs exactly
// once.
func (v *View) Ensure(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.ready {
		return nil
	}

	conn, err := v.cfg.DB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to get connection: %w", err)
	}
	defer conn.Close()

	location := strings.TrimRight(v.cfg.Location, "/")
	if isRemote(location) {
		if err := v.setupRemoteAccess(ctx, conn); err != nil {
			return err
		}
	} else if _, err := os.Stat(location); err != nil {
		return fmt.Errorf("%w: location %s: %v", ErrDataUnavailable, location, err)
	}

	glob := location + "/**/*.parquet"
	stmt := fmt.Sprintf(
		"CREATE OR REPLACE VIEW %s AS SELECT * FROM read_parquet(%s, hive_partitioning=true)",
		ViewName, quoteLiteral(glob),
	)
	if _, err := conn.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("%w: location %s: %v", ErrDataUnavailable, location, err)
	}

	v.ready = true
	v.log.Info("dataset: materialized view", "view", ViewName, "location", location)
	return nil
}

// Summary is the observed shape of the dataset.
type Summary struct {
	Location           string   `json:"location"`
	RowCount           int64    `json:"row_count"`
	StartDate          string   `json:"start_date,omitempty"`
	EndDate            string   `json:"end_date,omitempty"`
	ProviderCount      int64    `json:"provider_count"`
	Providers          []string `json:"providers,omitempty"`
	ServiceCount       int64    `json:"service_count"`
	TotalEffectiveCost float64  `json:"total_effective_cost"`
	ColumnCount        int      `json:"column_count"`
	ColumnSample       []string `json:"column_sample,omitempty"`
}

// Describe materializes the view if needed and computes the summary.
func (v *View) Describe(ctx context.Context) (Summary, error) {
	if err := v.Ensure(ctx); err != nil {
		return Summary{}, err
	}

	conn, err := v.cfg.DB.Conn(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to get connection: %w", err)
	}
	defer conn.Close()

	summary := Summary{Location: v.cfg.Location}

	var start, end any
	var totalCost any
	// EffectiveCost is DECIMAL-typed in FOCUS exports; cast before the
	// scan so the driver hands back a plain float64.
	row := conn.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			MIN(BillingPeriodStart),
			MAX(BillingPeriodEnd),
			COUNT(DISTINCT ProviderName),
			COUNT(DISTINCT ServiceName),
			ROUND(CAST(SUM(EffectiveCost) AS DOUBLE), 2)
		FROM `+ViewName)
	if err := row.Scan(&summary.RowCount, &start, &end, &summary.ProviderCount, &summary.ServiceCount, &totalCost); err != nil {
		return Summary{}, fmt.Errorf("failed to summarize dataset: %w", err)
	}
	summary.StartDate = formatDate(start)
	summary.EndDate = formatDate(end)
	switch cost := totalCost.(type) {
	case nil:
		// Empty dataset: SUM over zero rows.
	case float64:
		summary.TotalEffectiveCost = cost
	default:
		return Summary{}, fmt.Errorf("unexpected total cost type %T", totalCost)
	}

	providers, err := v.distinctProviders(ctx, conn)
	if err != nil {
		return Summary{}, err
	}
	summary.Providers = providers

	columns, err := v.columnNames(ctx, conn)
	if err != nil {
		return Summary{}, err
	}
	summary.ColumnCount = len(columns)
	if len(columns) > 10 {
		columns = columns[:10]
	}
	summary.ColumnSample = columns

	return summary, nil
}

func (v *View) distinctProviders(ctx context.Context, conn duck.Connection) ([]string, error) {
	rows, err := conn.QueryContext(ctx,
		`SELECT DISTINCT ProviderName FROM `+ViewName+` WHERE ProviderName IS NOT NULL ORDER BY ProviderName LIMIT 10`)
	if err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}
	defer rows.Close()

	var providers []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan provider: %w", err)
		}
		providers = append(providers, name)
	}
	return providers, rows.Err()
}

func (v *View) columnNames(ctx context.Context, conn duck.Connection) ([]string, error) {
	rows, err := conn.QueryContext(ctx,
		`SELECT column_name FROM information_schema.columns WHERE table_name = ? ORDER BY ordinal_position`, ViewName)
	if err != nil {
		return nil, fmt.Errorf("failed to list columns: %w", err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan column name: %w", err)
		}
		columns = append(columns, name)
	}
	return columns, rows.Err()
}

func isRemote(location string) bool {
	return strings.HasPrefix(location, "s3://")
}

// quoteLiteral quotes a config-owned string for inline use in a DDL
// statement, where bound parameters are not supported.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func formatDate(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case time.Time:
		return t.UTC().Format("2006-01-02")
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
