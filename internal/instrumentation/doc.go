// Package instrumentation provides OpenTelemetry instrumentation for the
// calagent MCP server.
//
// It exposes metrics and distributed tracing for the three layers of the
// service:
//
// HTTP Metrics:
//   - http_requests_total: Counter of HTTP requests by method, path, and status
//   - http_request_duration_seconds: Histogram of HTTP request durations
//
// Calendar API Metrics:
//   - calendar_api_operations_total: Counter of Calendar API operations by operation and status
//   - calendar_api_operation_duration_seconds: Histogram of Calendar API operation durations
//
// OAuth Metrics:
//   - oauth_auth_total: Counter of authorization code exchanges by result
//   - oauth_token_refresh_total: Counter of token refresh attempts by result
//
// MCP Tool Metrics:
//   - mcp_tool_invocations_total: Counter of tool invocations by tool name and status
//   - mcp_tool_duration_seconds: Histogram of tool execution durations
//
// Metrics are exported via Prometheus (default), OTLP, or stdout. Tracing is
// disabled by default and can be exported via OTLP or stdout. Configuration is
// read from the environment; see DefaultConfig for the variables involved.
//
// User identifiers are opaque strings chosen by the calling agent. To keep
// metric cardinality bounded they are never attached as metric labels unless
// METRICS_DETAILED_LABELS is set, and audit logs carry a salted hash of the
// identifier unless AUDIT_LOGGING_INCLUDE_PII is enabled.
package instrumentation
