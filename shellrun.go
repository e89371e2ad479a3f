// Package shellrun exposes host shell command execution as an MCP tool.
package shellrun

// Version is the shellrun release, set at build time with
// -ldflags "-X github.com/deixis/shellrun.Version=...".
var Version = "dev"
