package server

import (
	"context"
	"fmt"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/finopslabs/focus-mcp/internal/catalog"
	"github.com/finopslabs/focus-mcp/internal/server/metrics"
)

type ListUseCasesInput struct {
	Version string `json:"version,omitempty" jsonschema:"FOCUS specification version, defaults to the configured version"`
}

type UseCaseSummary struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Citation string `json:"citation,omitempty"`
}

type ListUseCasesOutput struct {
	Version  string           `json:"version"`
	Total    int              `json:"total"`
	UseCases []UseCaseSummary `json:"use_cases"`
}

func (s *Server) registerListUseCasesTool(server *mcp.Server) error {
	req, err := jsonschema.For[ListUseCasesInput](nil)
	if err != nil {
		return fmt.Errorf("failed to create list_use_cases input schema: %w", err)
	}

	res, err := jsonschema.For[ListUseCasesOutput](nil)
	if err != nil {
		return fmt.Errorf("failed to create list_use_cases output schema: %w", err)
	}

	tool := &mcp.Tool{
		Name:         "list_use_cases",
		Description:  `List the predefined FOCUS analytical queries for a specification version. Use get_use_case to see a query's SQL and parameter requirements before executing it.`,
		InputSchema:  req,
		OutputSchema: res,
	}

	handler := func(ctx context.Context, _ *mcp.CallToolRequest, req ListUseCasesInput) (*mcp.CallToolResult, ListUseCasesOutput, error) {
		startTime := time.Now()
		toolName := "list_use_cases"
		version := s.cfg.version(req.Version)

		s.log.Debug("mcp/tool: handling list_use_cases", "version", version)

		defs, err := s.cfg.Catalog.List(version)
		duration := time.Since(startTime).Seconds()
		if err != nil {
			metrics.ToolCallsTotal.WithLabelValues(toolName, "error").Inc()
			metrics.ToolCallDuration.WithLabelValues(toolName).Observe(duration)
			return nil, ListUseCasesOutput{}, fmt.Errorf("unknown FOCUS version %q, available: %v", version, s.cfg.Catalog.Versions())
		}

		useCases := make([]UseCaseSummary, len(defs))
		for i, def := range defs {
			useCases[i] = UseCaseSummary{
				ID:       def.ID,
				Title:    def.Title,
				Citation: def.Citation,
			}
		}

		metrics.ToolCallsTotal.WithLabelValues(toolName, "success").Inc()
		metrics.ToolCallDuration.WithLabelValues(toolName).Observe(duration)
		return nil, ListUseCasesOutput{
			Version:  version,
			Total:    len(useCases),
			UseCases: useCases,
		}, nil
	}

	mcp.AddTool(server, tool, handler)
	return nil
}

type GetUseCaseInput struct {
	Version string `json:"version,omitempty" jsonschema:"FOCUS specification version, defaults to the configured version"`
	ID      string `json:"id" jsonschema:"use case id from list_use_cases"`
}

type GetUseCaseOutput struct {
	UseCase catalog.Definition `json:"use_case"`
}

func (s *Server) registerGetUseCaseTool(server *mcp.Server) error {
	req, err := jsonschema.For[GetUseCaseInput](nil)
	if err != nil {
		return fmt.Errorf("failed to create get_use_case input schema: %w", err)
	}

	res, err := jsonschema.For[GetUseCaseOutput](nil)
	if err != nil {
		return fmt.Errorf("failed to create get_use_case output schema: %w", err)
	}

	tool := &mcp.Tool{
		Name:         "get_use_case",
		Description:  `Get a predefined FOCUS query's full details: SQL template, positional parameter count, and source citation. Call this before execute_query to see the parameters a query needs.`,
		InputSchema:  req,
		OutputSchema: res,
	}

	handler := func(ctx context.Context, _ *mcp.CallToolRequest, req GetUseCaseInput) (*mcp.CallToolResult, GetUseCaseOutput, error) {
		startTime := time.Now()
		toolName := "get_use_case"
		version := s.cfg.version(req.Version)

		s.log.Debug("mcp/tool: handling get_use_case", "version", version, "id", req.ID)

		def, err := s.cfg.Catalog.Get(version, req.ID)
		duration := time.Since(startTime).Seconds()
		if err != nil {
			metrics.ToolCallsTotal.WithLabelValues(toolName, "error").Inc()
			metrics.ToolCallDuration.WithLabelValues(toolName).Observe(duration)
			return nil, GetUseCaseOutput{}, fmt.Errorf("use case not found: %s (version %s), use list_use_cases to see available queries", req.ID, version)
		}

		metrics.ToolCallsTotal.WithLabelValues(toolName, "success").Inc()
		metrics.ToolCallDuration.WithLabelValues(toolName).Observe(duration)
		return nil, GetUseCaseOutput{UseCase: def}, nil
	}

	mcp.AddTool(server, tool, handler)
	return nil
}
