package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/deixis/shellrun/internal/report"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type commandParams struct {
	Command string   `json:"command"`
	Timeout *float64 `json:"timeout,omitempty"`
}

// CommandRequest is a validated tool call with its timeout resolved.
type CommandRequest struct {
	Command string
	Timeout time.Duration
}

// ValidationError reports a malformed tool call. It is returned to the
// client as a call error, never as command output.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// maxTimeoutSeconds is the largest timeout representable as a time.Duration.
var maxTimeoutSeconds = time.Duration(math.MaxInt64).Seconds()

// commandSchema describes the tool arguments. The SDK validates calls
// against it before they reach the handler.
func commandSchema(defaultTimeout float64) *jsonschema.Schema {
	minLength := 1
	exclusiveMin := 0.0
	def, _ := json.Marshal(defaultTimeout)
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"command": {
				Type:        "string",
				Description: "The command to execute in the system shell",
				MinLength:   &minLength,
			},
			"timeout": {
				Type:             "number",
				Description:      fmt.Sprintf("Optional timeout in seconds (default: %s)", formatNumber(defaultTimeout)),
				ExclusiveMinimum: &exclusiveMin,
				Default:          def,
			},
		},
		Required: []string{"command"},
	}
}

// resolveRequest validates params and resolves the timeout default.
func (h *handler) resolveRequest(params commandParams) (*CommandRequest, error) {
	if params.Command == "" {
		return nil, &ValidationError{Field: "command", Reason: "missing command argument"}
	}

	secs := h.defaultTimeout
	if params.Timeout != nil {
		secs = *params.Timeout
	}
	if math.IsNaN(secs) || secs <= 0 {
		return nil, &ValidationError{Field: "timeout", Reason: fmt.Sprintf("must be positive, got %s", formatNumber(secs))}
	}
	if secs >= maxTimeoutSeconds {
		return nil, &ValidationError{Field: "timeout", Reason: fmt.Sprintf("%s seconds is too large", formatNumber(secs))}
	}

	return &CommandRequest{
		Command: params.Command,
		Timeout: time.Duration(math.Round(secs * float64(time.Second))),
	}, nil
}

func (h *handler) executeHandler(ctx context.Context, req *mcp.CallToolRequest, params commandParams) (*mcp.CallToolResult, any, error) {
	creq, err := h.resolveRequest(params)
	if err != nil {
		h.logger.Debug().Err(err).Msg("rejected tool call")
		return nil, nil, err
	}

	res := h.runner.Run(ctx, creq.Command, creq.Timeout)
	return textResult(report.Format(res, creq.Timeout))
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
