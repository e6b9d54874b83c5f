package common

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajisegiri/calagent/internal/instrumentation"
	"github.com/ajisegiri/calagent/internal/server"
)

func callRequest(args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func TestInstrumentedToolHandler_PassthroughWithoutInstrumentation(t *testing.T) {
	sc := server.NewServerContext(context.Background(), nil, nil, nil)

	called := false
	handler := InstrumentedToolHandler("calendar_get_events", instrumentation.OperationList, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			called = true
			return mcp.NewToolResultText("ok"), nil
		})

	result, err := handler(context.Background(), callRequest(map[string]interface{}{"userId": "alice"}))
	require.NoError(t, err)
	assert.True(t, called)
	assert.False(t, result.IsError)
}

func TestInstrumentedToolHandler_AuditsSuccess(t *testing.T) {
	sc := server.NewServerContext(context.Background(), nil, nil, nil)

	var buf bytes.Buffer
	sc.SetAuditLogger(instrumentation.NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil))))

	handler := InstrumentedToolHandler("calendar_create_event", instrumentation.OperationCreate, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultText("created"), nil
		})

	_, err := handler(context.Background(), callRequest(map[string]interface{}{"userId": "alice"}))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "tool_executed")
	assert.Contains(t, out, "calendar_create_event")
	assert.NotContains(t, out, `"user":"alice"`, "audit log should anonymize the user")
}

func TestInstrumentedToolHandler_AuditsFailure(t *testing.T) {
	sc := server.NewServerContext(context.Background(), nil, nil, nil)

	var buf bytes.Buffer
	sc.SetAuditLogger(instrumentation.NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil))))

	handler := InstrumentedToolHandler("calendar_delete_event", instrumentation.OperationDelete, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return nil, errors.New("boom")
		})

	_, err := handler(context.Background(), callRequest(map[string]interface{}{
		"userId":  "alice",
		"eventId": "evt-1",
	}))
	require.Error(t, err)

	out := buf.String()
	assert.Contains(t, out, "tool_failed")
	assert.Contains(t, out, "evt-1")
	assert.Contains(t, out, "boom")
}

func TestInstrumentedToolHandler_ErrorResultCountsAsFailure(t *testing.T) {
	sc := server.NewServerContext(context.Background(), nil, nil, nil)

	var buf bytes.Buffer
	sc.SetAuditLogger(instrumentation.NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil))))

	handler := InstrumentedToolHandler("calendar_get_events", instrumentation.OperationList, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultError("userId is required"), nil
		})

	result, err := handler(context.Background(), callRequest(map[string]interface{}{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	if !strings.Contains(buf.String(), "tool_failed") {
		t.Errorf("expected tool_failed audit entry, got: %s", buf.String())
	}
}
