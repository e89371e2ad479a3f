// Package mcp provides the shellrun MCP server, registering the command
// execution tool and publishing model instructions.
package mcp

import (
	_ "embed"

	"github.com/deixis/shellrun"
	"github.com/deixis/shellrun/internal/config"
	"github.com/deixis/shellrun/internal/runner"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
)

//go:embed instructions.md
var Instructions string

// ToolName is the name under which the command tool is registered.
const ToolName = "execute_terminal_command"

// handler holds shared dependencies for all tool handlers.
type handler struct {
	runner         *runner.Runner
	defaultTimeout float64 // seconds
	logger         zerolog.Logger
}

// NewServer creates an MCP server with the command execution tool registered.
func NewServer(cfg *config.Config, r *runner.Runner, logger zerolog.Logger) *mcp.Server {
	h := &handler{
		runner:         r,
		defaultTimeout: cfg.Timeout().Seconds(),
		logger:         logger,
	}

	s := mcp.NewServer(&mcp.Implementation{Name: "shellrun", Version: shellrun.Version}, &mcp.ServerOptions{
		Instructions: Instructions,
		Capabilities: &mcp.ServerCapabilities{
			Tools: &mcp.ToolCapabilities{ListChanged: false},
		},
	})

	mcp.AddTool(s, &mcp.Tool{
		Name: ToolName,
		Description: `Execute a command in the system shell. Returns the command output, exit code, and any errors.

The command runs through /bin/sh -c (cmd.exe /c on Windows) with empty standard input.
Output is returned once the command exits. Commands still running when the timeout
elapses are killed.`,
		InputSchema: commandSchema(h.defaultTimeout),
	}, h.executeHandler)

	return s
}

// textResult is a helper to build a text-only tool result.
func textResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}
