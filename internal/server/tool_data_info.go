package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/finopslabs/focus-mcp/internal/dataset"
	"github.com/finopslabs/focus-mcp/internal/server/metrics"
)

type DataInfoInput struct{}

type DataInfoOutput struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`

	Summary *dataset.Summary `json:"summary,omitempty"`
}

func (s *Server) registerDataInfoTool(server *mcp.Server) error {
	req, err := jsonschema.For[DataInfoInput](nil)
	if err != nil {
		return fmt.Errorf("failed to create get_data_info input schema: %w", err)
	}

	res, err := jsonschema.For[DataInfoOutput](nil)
	if err != nil {
		return fmt.Errorf("failed to create get_data_info output schema: %w", err)
	}

	tool := &mcp.Tool{
		Name:         "get_data_info",
		Description:  `Get information about the loaded FOCUS billing data: row count, billing period range, providers, services, and total cost. Start here to understand what data is available before querying.`,
		InputSchema:  req,
		OutputSchema: res,
	}

	handler := func(ctx context.Context, _ *mcp.CallToolRequest, req DataInfoInput) (*mcp.CallToolResult, DataInfoOutput, error) {
		startTime := time.Now()
		toolName := "get_data_info"

		res, err := s.handleDataInfo(ctx)
		duration := time.Since(startTime).Seconds()

		if err != nil {
			metrics.ToolCallsTotal.WithLabelValues(toolName, "error").Inc()
			metrics.ToolCallDuration.WithLabelValues(toolName).Observe(duration)
			return nil, DataInfoOutput{}, err
		}
		metrics.ToolCallsTotal.WithLabelValues(toolName, "success").Inc()
		metrics.ToolCallDuration.WithLabelValues(toolName).Observe(duration)
		return nil, res, nil
	}

	mcp.AddTool(server, tool, handler)
	return nil
}

func (s *Server) handleDataInfo(ctx context.Context) (DataInfoOutput, error) {
	s.log.Debug("mcp/tool: handling get_data_info")

	summary, err := s.cfg.Dataset.Describe(ctx)
	if err != nil {
		// A missing dataset is a structured outcome, not a tool failure:
		// the process may be running ahead of its data.
		if errors.Is(err, dataset.ErrDataUnavailable) {
			return DataInfoOutput{
				Status:  "no_data",
				Message: fmt.Sprintf("No FOCUS data loaded at %s. Set FOCUS_DATA_LOCATION to a local path or s3:// URI.", s.cfg.Dataset.Location()),
			}, nil
		}
		return DataInfoOutput{}, err
	}

	return DataInfoOutput{
		Status:  "ok",
		Summary: &summary,
	}, nil
}
