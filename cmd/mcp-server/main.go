package main

import (
	"context"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "net/http/pprof"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"

	"github.com/finopslabs/focus-mcp/internal/catalog"
	"github.com/finopslabs/focus-mcp/internal/dataset"
	"github.com/finopslabs/focus-mcp/internal/duck"
	"github.com/finopslabs/focus-mcp/internal/executor"
	"github.com/finopslabs/focus-mcp/internal/logger"
	"github.com/finopslabs/focus-mcp/internal/server"
	"github.com/finopslabs/focus-mcp/internal/server/metrics"
	"github.com/finopslabs/focus-mcp/internal/spec"
	"github.com/finopslabs/focus-mcp/resources"
)

var (
	// Set by LDFLAGS
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const (
	defaultListenAddr   = "0.0.0.0:8010"
	defaultMetricsAddr  = "0.0.0.0:0"
	defaultDataLocation = "data/focus-export"
	defaultFocusVersion = "1.0"
	defaultQueryTimeout = 30 * time.Second

	dataLocationEnvVar = "FOCUS_DATA_LOCATION"
	focusVersionEnvVar = "FOCUS_VERSION"
	awsRegionEnvVar    = "AWS_REGION"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	verboseFlag := flag.Bool("verbose", false, "enable verbose (debug) logging")
	enablePprofFlag := flag.Bool("enable-pprof", false, "enable pprof server")
	listenAddrFlag := flag.String("listen-addr", defaultListenAddr, "HTTP server listen address")
	metricsAddrFlag := flag.String("metrics-addr", defaultMetricsAddr, "Address to listen on for prometheus metrics")

	dataLocationFlag := flag.String("data-location", defaultDataLocation, "FOCUS data location: local directory or s3:// URI (or set FOCUS_DATA_LOCATION env var)")
	focusVersionFlag := flag.String("focus-version", defaultFocusVersion, "default FOCUS specification version (or set FOCUS_VERSION env var)")
	awsRegionFlag := flag.String("aws-region", "", "AWS region for s3:// data locations (or set AWS_REGION env var)")
	queryTimeoutFlag := flag.Duration("query-timeout", defaultQueryTimeout, "per-query execution ceiling")

	flag.Parse()

	// Optional .env for local development; absence is fine.
	_ = godotenv.Load()

	// Override flags with environment variables if set
	if envLocation := os.Getenv(dataLocationEnvVar); envLocation != "" {
		*dataLocationFlag = envLocation
	}
	if envVersion := os.Getenv(focusVersionEnvVar); envVersion != "" {
		*focusVersionFlag = envVersion
	}
	if envRegion := os.Getenv(awsRegionEnvVar); envRegion != "" {
		*awsRegionFlag = envRegion
	}

	log := logger.New(*verboseFlag)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sig := <-sigCh
		log.Info("server: received signal", "signal", sig.String())
		cancel()
	}()

	if *enablePprofFlag {
		go func() {
			log.Info("starting pprof server", "address", "localhost:6060")
			err := http.ListenAndServe("localhost:6060", nil)
			if err != nil {
				log.Error("failed to start pprof server", "error", err)
			}
		}()
	}

	var metricsServerErrCh = make(chan error, 1)
	if *metricsAddrFlag != "" {
		metrics.BuildInfo.WithLabelValues(version, commit, date).Set(1)
		go func() {
			listener, err := net.Listen("tcp", *metricsAddrFlag)
			if err != nil {
				log.Error("failed to start prometheus metrics server listener", "error", err)
				metricsServerErrCh <- err
				return
			}
			log.Info("prometheus metrics server listening", "address", listener.Addr().String())
			http.Handle("/metrics", promhttp.Handler())
			if err := http.Serve(listener, nil); err != nil {
				log.Error("failed to start prometheus metrics server", "error", err)
				metricsServerErrCh <- err
				return
			}
		}()
	}

	// Parse allowed tokens from environment variable (comma-separated)
	// Auth can be explicitly disabled with MCP_AUTH_DISABLED=true
	var allowedTokens []string
	authDisabled := os.Getenv("MCP_AUTH_DISABLED") == "true"

	if authDisabled {
		log.Info("mcp server: authentication explicitly disabled")
	} else if tokensEnv := os.Getenv("MCP_ALLOWED_TOKENS"); tokensEnv != "" {
		for token := range strings.SplitSeq(tokensEnv, ",") {
			token = strings.TrimSpace(token)
			if token != "" {
				allowedTokens = append(allowedTokens, token)
			}
		}
		if len(allowedTokens) > 0 {
			log.Info("mcp server: token authentication enabled", "token_count", len(allowedTokens))
		}
	} else {
		log.Info("mcp server: authentication disabled (no tokens configured)")
	}

	// The resource bundle is the only fatal dependency: without the
	// catalog and registry no tool can answer correctly.
	queriesFS, err := fs.Sub(resources.FS, "queries")
	if err != nil {
		return fmt.Errorf("failed to open query resources: %w", err)
	}
	queryCatalog, err := catalog.Load(log, queriesFS)
	if err != nil {
		return fmt.Errorf("failed to load query catalog: %w", err)
	}
	for _, finding := range queryCatalog.Findings() {
		log.Warn("catalog: malformed template recorded", "error", finding)
	}

	specFS, err := fs.Sub(resources.FS, "specifications")
	if err != nil {
		return fmt.Errorf("failed to open specification resources: %w", err)
	}
	registry, err := spec.Load(specFS)
	if err != nil {
		return fmt.Errorf("failed to load specification registry: %w", err)
	}

	db, err := duck.Open(":memory:")
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("failed to close database", "error", err)
		}
	}()

	view, err := dataset.New(dataset.Config{
		Logger:    log,
		DB:        db,
		Location:  *dataLocationFlag,
		AWSRegion: *awsRegionFlag,
	})
	if err != nil {
		return fmt.Errorf("failed to create dataset view: %w", err)
	}

	exec, err := executor.New(executor.Config{
		Logger:  log,
		DB:      db,
		View:    view,
		Timeout: *queryTimeoutFlag,
	})
	if err != nil {
		return fmt.Errorf("failed to create executor: %w", err)
	}

	srv, err := server.New(ctx, server.Config{
		Logger:         log,
		Catalog:        queryCatalog,
		Registry:       registry,
		Dataset:        view,
		Executor:       exec,
		DefaultVersion: *focusVersionFlag,
		Version:        version,
		ListenAddr:     *listenAddrFlag,
		AllowedTokens:  allowedTokens,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.Run(ctx); err != nil {
			serverErrCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("server: shutting down", "reason", ctx.Err())
		return nil
	case err := <-serverErrCh:
		log.Error("server: server error causing shutdown", "error", err)
		return err
	case err := <-metricsServerErrCh:
		log.Error("server: metrics server error causing shutdown", "error", err)
		return err
	}
}
