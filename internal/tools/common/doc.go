// Package common provides shared helpers for MCP tool handlers: argument
// extraction, root-cause error reporting, and the instrumented handler
// wrapper that records metrics and audit entries per invocation.
package common
