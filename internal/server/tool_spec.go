package server

import (
	"context"
	"fmt"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/finopslabs/focus-mcp/internal/server/metrics"
	"github.com/finopslabs/focus-mcp/internal/spec"
)

type ListColumnsInput struct {
	Version string `json:"version,omitempty" jsonschema:"FOCUS specification version, defaults to the configured version"`
}

type ListColumnsOutput struct {
	Version string                  `json:"version"`
	Total   int                     `json:"total"`
	Columns []spec.ColumnDefinition `json:"columns"`
}

func (s *Server) registerListColumnsTool(server *mcp.Server) error {
	req, err := jsonschema.For[ListColumnsInput](nil)
	if err != nil {
		return fmt.Errorf("failed to create list_columns input schema: %w", err)
	}

	res, err := jsonschema.For[ListColumnsOutput](nil)
	if err != nil {
		return fmt.Errorf("failed to create list_columns output schema: %w", err)
	}

	tool := &mcp.Tool{
		Name:         "list_columns",
		Description:  `List the FOCUS column definitions visible in a specification version: name, data type, and requirement level. Consult this before writing ad-hoc SQL; do not guess column names.`,
		InputSchema:  req,
		OutputSchema: res,
	}

	handler := func(ctx context.Context, _ *mcp.CallToolRequest, req ListColumnsInput) (*mcp.CallToolResult, ListColumnsOutput, error) {
		startTime := time.Now()
		toolName := "list_columns"
		version := s.cfg.version(req.Version)

		s.log.Debug("mcp/tool: handling list_columns", "version", version)

		columns := s.cfg.Registry.Columns(version)
		duration := time.Since(startTime).Seconds()

		metrics.ToolCallsTotal.WithLabelValues(toolName, "success").Inc()
		metrics.ToolCallDuration.WithLabelValues(toolName).Observe(duration)
		return nil, ListColumnsOutput{
			Version: version,
			Total:   len(columns),
			Columns: columns,
		}, nil
	}

	mcp.AddTool(server, tool, handler)
	return nil
}

type ColumnDetailsInput struct {
	Version string `json:"version,omitempty" jsonschema:"FOCUS specification version, defaults to the configured version"`
	Name    string `json:"name" jsonschema:"column id or display name, case-insensitive"`
}

type ColumnDetailsOutput struct {
	Column spec.ColumnDefinition `json:"column"`
}

func (s *Server) registerColumnDetailsTool(server *mcp.Server) error {
	req, err := jsonschema.For[ColumnDetailsInput](nil)
	if err != nil {
		return fmt.Errorf("failed to create get_column_details input schema: %w", err)
	}

	res, err := jsonschema.For[ColumnDetailsOutput](nil)
	if err != nil {
		return fmt.Errorf("failed to create get_column_details output schema: %w", err)
	}

	tool := &mcp.Tool{
		Name:         "get_column_details",
		Description:  `Get one FOCUS column definition by id or display name, including its data type, requirement level, and description.`,
		InputSchema:  req,
		OutputSchema: res,
	}

	handler := func(ctx context.Context, _ *mcp.CallToolRequest, req ColumnDetailsInput) (*mcp.CallToolResult, ColumnDetailsOutput, error) {
		startTime := time.Now()
		toolName := "get_column_details"
		version := s.cfg.version(req.Version)

		s.log.Debug("mcp/tool: handling get_column_details", "version", version, "name", req.Name)

		column, err := s.cfg.Registry.Column(version, req.Name)
		duration := time.Since(startTime).Seconds()
		if err != nil {
			metrics.ToolCallsTotal.WithLabelValues(toolName, "error").Inc()
			metrics.ToolCallDuration.WithLabelValues(toolName).Observe(duration)
			return nil, ColumnDetailsOutput{}, fmt.Errorf("column not found: %s (version %s), use list_columns to see available columns", req.Name, version)
		}

		metrics.ToolCallsTotal.WithLabelValues(toolName, "success").Inc()
		metrics.ToolCallDuration.WithLabelValues(toolName).Observe(duration)
		return nil, ColumnDetailsOutput{Column: column}, nil
	}

	mcp.AddTool(server, tool, handler)
	return nil
}

type ListAttributesInput struct {
	Version string `json:"version,omitempty" jsonschema:"FOCUS specification version, defaults to the configured version"`
}

type ListAttributesOutput struct {
	Version    string                     `json:"version"`
	Total      int                        `json:"total"`
	Attributes []spec.AttributeDefinition `json:"attributes"`
}

func (s *Server) registerListAttributesTool(server *mcp.Server) error {
	req, err := jsonschema.For[ListAttributesInput](nil)
	if err != nil {
		return fmt.Errorf("failed to create list_attributes input schema: %w", err)
	}

	res, err := jsonschema.For[ListAttributesOutput](nil)
	if err != nil {
		return fmt.Errorf("failed to create list_attributes output schema: %w", err)
	}

	tool := &mcp.Tool{
		Name:         "list_attributes",
		Description:  `List the FOCUS attribute definitions visible in a specification version: dataset-wide formatting and handling rules.`,
		InputSchema:  req,
		OutputSchema: res,
	}

	handler := func(ctx context.Context, _ *mcp.CallToolRequest, req ListAttributesInput) (*mcp.CallToolResult, ListAttributesOutput, error) {
		startTime := time.Now()
		toolName := "list_attributes"
		version := s.cfg.version(req.Version)

		s.log.Debug("mcp/tool: handling list_attributes", "version", version)

		attributes := s.cfg.Registry.Attributes(version)
		duration := time.Since(startTime).Seconds()

		metrics.ToolCallsTotal.WithLabelValues(toolName, "success").Inc()
		metrics.ToolCallDuration.WithLabelValues(toolName).Observe(duration)
		return nil, ListAttributesOutput{
			Version:    version,
			Total:      len(attributes),
			Attributes: attributes,
		}, nil
	}

	mcp.AddTool(server, tool, handler)
	return nil
}

type AttributeDetailsInput struct {
	Version string `json:"version,omitempty" jsonschema:"FOCUS specification version, defaults to the configured version"`
	Name    string `json:"name" jsonschema:"attribute id or name, case-insensitive"`
}

type AttributeDetailsOutput struct {
	Attribute spec.AttributeDefinition `json:"attribute"`
}

func (s *Server) registerAttributeDetailsTool(server *mcp.Server) error {
	req, err := jsonschema.For[AttributeDetailsInput](nil)
	if err != nil {
		return fmt.Errorf("failed to create get_attribute_details input schema: %w", err)
	}

	res, err := jsonschema.For[AttributeDetailsOutput](nil)
	if err != nil {
		return fmt.Errorf("failed to create get_attribute_details output schema: %w", err)
	}

	tool := &mcp.Tool{
		Name:         "get_attribute_details",
		Description:  `Get one FOCUS attribute definition by id or name, including its requirement level and description.`,
		InputSchema:  req,
		OutputSchema: res,
	}

	handler := func(ctx context.Context, _ *mcp.CallToolRequest, req AttributeDetailsInput) (*mcp.CallToolResult, AttributeDetailsOutput, error) {
		startTime := time.Now()
		toolName := "get_attribute_details"
		version := s.cfg.version(req.Version)

		s.log.Debug("mcp/tool: handling get_attribute_details", "version", version, "name", req.Name)

		attribute, err := s.cfg.Registry.Attribute(version, req.Name)
		duration := time.Since(startTime).Seconds()
		if err != nil {
			metrics.ToolCallsTotal.WithLabelValues(toolName, "error").Inc()
			metrics.ToolCallDuration.WithLabelValues(toolName).Observe(duration)
			return nil, AttributeDetailsOutput{}, fmt.Errorf("attribute not found: %s (version %s), use list_attributes to see available attributes", req.Name, version)
		}

		metrics.ToolCallsTotal.WithLabelValues(toolName, "success").Inc()
		metrics.ToolCallDuration.WithLabelValues(toolName).Observe(duration)
		return nil, AttributeDetailsOutput{Attribute: attribute}, nil
	}

	mcp.AddTool(server, tool, handler)
	return nil
}
