package server

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/finopslabs/focus-mcp/internal/catalog"
	"github.com/finopslabs/focus-mcp/internal/dataset"
	"github.com/finopslabs/focus-mcp/internal/executor"
	"github.com/finopslabs/focus-mcp/internal/spec"
)

const (
	defaultReadHeaderTimeout = 5 * time.Second
	defaultShutdownTimeout   = 5 * time.Second
	defaultFocusVersion      = "1.0"
)

type Config struct {
	Logger *slog.Logger

	Catalog  *catalog.Catalog
	Registry *spec.Registry
	Dataset  *dataset.View
	Executor *executor.Executor

	// DefaultVersion is the specification version tools assume when the
	// caller does not name one.
	DefaultVersion string

	Version           string
	ListenAddr        string
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
	AllowedTokens     []string // Bearer tokens allowed for MCP endpoint authentication
}

func (c *Config) Validate() error {
	if c.Logger == nil {
		return fmt.Errorf("logger is required")
	}
	if c.Catalog == nil {
		return fmt.Errorf("catalog is required")
	}
	if c.Registry == nil {
		return fmt.Errorf("registry is required")
	}
	if c.Dataset == nil {
		return fmt.Errorf("dataset is required")
	}
	if c.Executor == nil {
		return fmt.Errorf("executor is required")
	}
	if c.DefaultVersion == "" {
		c.DefaultVersion = defaultFocusVersion
	}
	if c.ReadHeaderTimeout == 0 {
		c.ReadHeaderTimeout = defaultReadHeaderTimeout
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = defaultShutdownTimeout
	}
	return nil
}

// version resolves the effective specification version for a tool call.
func (c *Config) version(requested string) string {
	if requested != "" {
		return requested
	}
	return c.DefaultVersion
}
