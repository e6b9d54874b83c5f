// Package server holds the composition root for the calagent MCP server and
// its supporting HTTP surfaces.
//
// ServerContext wires the credential store, OAuth flow, and calendar service
// together and carries the instrumentation handles used by the tool layer.
// CallbackServer serves the OAuth authorization endpoints plus health probes,
// and MetricsServer exposes Prometheus metrics on a dedicated port.
package server
