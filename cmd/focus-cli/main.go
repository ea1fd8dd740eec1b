// focus-cli runs a single read-only query against a FOCUS dataset and
// prints the result as a table. Intended for operators sanity-checking
// a data export before pointing the MCP server at it.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	flag "github.com/spf13/pflag"

	"github.com/finopslabs/focus-mcp/internal/bind"
	"github.com/finopslabs/focus-mcp/internal/dataset"
	"github.com/finopslabs/focus-mcp/internal/duck"
	"github.com/finopslabs/focus-mcp/internal/executor"
	"github.com/finopslabs/focus-mcp/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	verboseFlag := flag.Bool("verbose", false, "enable verbose (debug) logging")
	dataLocationFlag := flag.String("data-location", "", "FOCUS data location: local directory or s3:// URI (or set FOCUS_DATA_LOCATION env var)")
	awsRegionFlag := flag.String("aws-region", "", "AWS region for s3:// data locations")
	timeoutFlag := flag.Duration("timeout", 30*time.Second, "query execution ceiling")
	flag.Parse()

	log := logger.New(*verboseFlag)

	sqlText := fmt.Sprintf("SELECT COUNT(*) AS row_count FROM %s", dataset.ViewName)
	if len(flag.Args()) > 0 {
		sqlText = flag.Arg(0)
	}

	location := *dataLocationFlag
	if location == "" {
		location = os.Getenv("FOCUS_DATA_LOCATION")
	}
	if location == "" {
		return fmt.Errorf("data location is required (set --data-location or FOCUS_DATA_LOCATION)")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	db, err := duck.Open(":memory:")
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	view, err := dataset.New(dataset.Config{
		Logger:    log,
		DB:        db,
		Location:  location,
		AWSRegion: *awsRegionFlag,
	})
	if err != nil {
		return fmt.Errorf("failed to create dataset view: %w", err)
	}

	exec, err := executor.New(executor.Config{
		Logger:  log,
		DB:      db,
		View:    view,
		Timeout: *timeoutFlag,
	})
	if err != nil {
		return fmt.Errorf("failed to create executor: %w", err)
	}

	result, err := exec.Run(ctx, bind.Statement{SQL: sqlText})
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(result.Columns)
	for _, row := range result.Rows {
		cells := make([]string, len(result.Columns))
		for i, col := range result.Columns {
			if row[col] == nil {
				cells[i] = "NULL"
				continue
			}
			cells[i] = fmt.Sprint(row[col])
		}
		table.Append(cells)
	}
	table.Render()

	fmt.Printf("%d rows\n", result.Count)
	return nil
}
