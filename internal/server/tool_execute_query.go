package server

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/finopslabs/focus-mcp/internal/bind"
	"github.com/finopslabs/focus-mcp/internal/executor"
	"github.com/finopslabs/focus-mcp/internal/server/metrics"
)

const defaultRowLimit = 100

type ExecuteQueryInput struct {
	ID      string `json:"id,omitempty" jsonschema:"predefined use case id to run (see list_use_cases); mutually exclusive with raw_sql"`
	Version string `json:"version,omitempty" jsonschema:"FOCUS specification version for the use case, defaults to the configured version"`
	Args    []any  `json:"args,omitempty" jsonschema:"positional parameters for the use case, in template order"`
	RawSQL  string `json:"raw_sql,omitempty" jsonschema:"ad-hoc read-only SQL against the focus_data view; mutually exclusive with id"`
	Limit   int    `json:"limit,omitempty" jsonschema:"maximum rows to return, default 100"`
}

type ExecuteQueryOutput struct {
	QueryTitle string         `json:"query_title,omitempty"`
	Columns    []string       `json:"columns"`
	Rows       []executor.Row `json:"rows"`
	Count      int            `json:"count"`
	Truncated  bool           `json:"truncated,omitempty"`
}

func (s *Server) registerExecuteQueryTool(server *mcp.Server) error {
	req, err := jsonschema.For[ExecuteQueryInput](nil)
	if err != nil {
		return fmt.Errorf("failed to create execute_query input schema: %w", err)
	}

	res, err := jsonschema.For[ExecuteQueryOutput](nil)
	if err != nil {
		return fmt.Errorf("failed to create execute_query output schema: %w", err)
	}

	tool := &mcp.Tool{
		Name: "execute_query",
		Description: `Execute a predefined FOCUS use case (id + args) or an ad-hoc read-only SQL query (raw_sql) against the focus_data view.
Ad-hoc SQL must be a single read statement; write and DDL statements are rejected.
For use cases, call get_use_case first to see the required positional parameters.`,
		InputSchema:  req,
		OutputSchema: res,
	}

	handler := func(ctx context.Context, _ *mcp.CallToolRequest, req ExecuteQueryInput) (*mcp.CallToolResult, ExecuteQueryOutput, error) {
		startTime := time.Now()
		toolName := "execute_query"

		res, err := s.handleExecuteQuery(ctx, req)
		duration := time.Since(startTime).Seconds()

		if err != nil {
			metrics.ToolCallsTotal.WithLabelValues(toolName, "error").Inc()
			metrics.ToolCallDuration.WithLabelValues(toolName).Observe(duration)
			return nil, ExecuteQueryOutput{}, err
		}
		metrics.ToolCallsTotal.WithLabelValues(toolName, "success").Inc()
		metrics.ToolCallDuration.WithLabelValues(toolName).Observe(duration)
		return nil, res, nil
	}

	mcp.AddTool(server, tool, handler)
	return nil
}

func (s *Server) handleExecuteQuery(ctx context.Context, req ExecuteQueryInput) (ExecuteQueryOutput, error) {
	if req.ID == "" && req.RawSQL == "" {
		return ExecuteQueryOutput{}, fmt.Errorf("must provide either id (predefined use case) or raw_sql")
	}
	if req.ID != "" && req.RawSQL != "" {
		return ExecuteQueryOutput{}, fmt.Errorf("provide either id or raw_sql, not both")
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultRowLimit
	}

	var stmt bind.Statement
	var title string
	source := "raw_sql"
	if req.ID != "" {
		source = "use_case"
		version := s.cfg.version(req.Version)
		def, err := s.cfg.Catalog.Get(version, req.ID)
		if err != nil {
			return ExecuteQueryOutput{}, fmt.Errorf("use case not found: %s (version %s), use list_use_cases to see available queries", req.ID, version)
		}
		stmt, err = bind.Bind(def, req.Args)
		if err != nil {
			return ExecuteQueryOutput{}, err
		}
		title = def.Title
	} else {
		stmt = bind.Statement{SQL: req.RawSQL}
	}

	stmt.SQL = applyLimit(stmt.SQL, limit)

	s.log.Debug("mcp/tool: handling execute_query", "sql", stmt.SQL, "args", len(stmt.Args))

	queryStart := time.Now()
	result, err := s.cfg.Executor.Run(ctx, stmt)
	metrics.QueryDuration.WithLabelValues(source).Observe(time.Since(queryStart).Seconds())
	if err != nil {
		return ExecuteQueryOutput{}, err
	}

	return ExecuteQueryOutput{
		QueryTitle: title,
		Columns:    result.Columns,
		Rows:       result.Rows,
		Count:      result.Count,
		Truncated:  result.Count == limit,
	}, nil
}

// applyLimit caps the result set unless the statement already carries
// its own LIMIT clause or is of a kind that rejects one (DESCRIBE,
// SHOW, SUMMARIZE, EXPLAIN).
func applyLimit(sqlText string, limit int) string {
	if !acceptsLimit(sqlText) || hasLimitToken(sqlText) {
		return sqlText
	}
	return strings.TrimRight(strings.TrimSpace(sqlText), ";") + fmt.Sprintf(" LIMIT %d", limit)
}

func acceptsLimit(sqlText string) bool {
	var word strings.Builder
	for _, r := range strings.TrimSpace(sqlText) {
		if !unicode.IsLetter(r) {
			break
		}
		word.WriteRune(unicode.ToLower(r))
	}
	switch word.String() {
	case "select", "with", "from":
		return true
	}
	return false
}

func hasLimitToken(sqlText string) bool {
	var word strings.Builder
	for _, r := range sqlText {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			word.WriteRune(unicode.ToLower(r))
			continue
		}
		if word.String() == "limit" {
			return true
		}
		word.Reset()
	}
	return word.String() == "limit"
}
