// Package cmd implements the command-line interface for calagent.
//
// This package provides the following commands:
//   - serve: Start the MCP server that exposes Google Calendar tools
//   - auth: Authorize a user from the terminal without a browser redirect
//   - version: Display version information
package cmd
