package calendar_tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ajisegiri/calagent/internal/instrumentation"
	"github.com/ajisegiri/calagent/internal/server"
	"github.com/ajisegiri/calagent/internal/tools/common"
)

// RegisterCalendarListTools registers the calendar listing tool with the MCP server.
func RegisterCalendarListTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	listCalendarsTool := mcp.NewTool("calendar_list_calendars",
		mcp.WithDescription("List the calendars the user has access to"),
		mcp.WithString("userId",
			mcp.Required(),
			mcp.Description("Identifier of the user whose calendars to list"),
		),
	)

	s.AddTool(listCalendarsTool, common.InstrumentedToolHandler(
		"calendar_list_calendars", instrumentation.OperationList, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListCalendars(ctx, request, sc)
		}))

	return nil
}

func handleListCalendars(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	userID, err := common.UserID(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	calendars, err := sc.Calendars().ListCalendars(ctx, userID)
	if err != nil {
		return mcp.NewToolResultText("Error details: " + common.RootCause(err)), nil
	}

	return jsonResult(calendars)
}

// jsonResult marshals v into a text tool result.
func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
