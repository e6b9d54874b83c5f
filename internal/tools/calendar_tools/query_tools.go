package calendar_tools

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ajisegiri/calagent/internal/calendar"
	"github.com/ajisegiri/calagent/internal/instrumentation"
	"github.com/ajisegiri/calagent/internal/server"
	"github.com/ajisegiri/calagent/internal/tools/common"
)

// RegisterQueryTools registers the event retrieval and search tools with the
// MCP server.
func RegisterQueryTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	getEventsTool := mcp.NewTool("calendar_get_events",
		mcp.WithDescription("Retrieve calendar events for a user within a time range. "+
			"If startDate and endDate are not provided, the current week is used."),
		mcp.WithString("userId",
			mcp.Required(),
			mcp.Description("Identifier of the user whose events to retrieve"),
		),
		mcp.WithString("startDate",
			mcp.Description("Start of the range as a local date-time without offset (e.g., '2025-03-24T00:00:00')"),
		),
		mcp.WithString("endDate",
			mcp.Description("End of the range as a local date-time without offset (e.g., '2025-03-30T23:59:59')"),
		),
		mcp.WithString("page",
			mcp.Description("Continuation token from a previous page, may be omitted"),
		),
		mcp.WithNumber("pageSize",
			mcp.Description("Maximum number of events to return (default 1000)"),
		),
	)

	s.AddTool(getEventsTool, common.InstrumentedToolHandler(
		"calendar_get_events", instrumentation.OperationList, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetEvents(ctx, request, sc)
		}))

	searchEventsTool := mcp.NewTool("calendar_search_events",
		mcp.WithDescription("Search calendar events matching a word or phrase. "+
			"Only use this when the user wants to look up a specific word or phrase. "+
			"If startDate and endDate are not provided, the current week is used."),
		mcp.WithString("userId",
			mcp.Required(),
			mcp.Description("Identifier of the user whose events to search"),
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Text matched against event summary, description, location, and attendees"),
		),
		mcp.WithString("startDate",
			mcp.Description("Start of the range as a local date-time without offset, may be omitted"),
		),
		mcp.WithString("endDate",
			mcp.Description("End of the range as a local date-time without offset, may be omitted"),
		),
		mcp.WithString("page",
			mcp.Description("Continuation token from a previous page, may be omitted"),
		),
		mcp.WithNumber("pageSize",
			mcp.Description("Maximum number of events to return (default 1000)"),
		),
	)

	s.AddTool(searchEventsTool, common.InstrumentedToolHandler(
		"calendar_search_events", instrumentation.OperationSearch, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleSearchEvents(ctx, request, sc)
		}))

	return nil
}

func handleGetEvents(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	userID, err := common.UserID(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	pageToken := common.StringArg(args, "page")
	pageSize := common.IntArg(args, "pageSize", calendar.DefaultPageSize)

	start, end, err := parseRange(common.StringArg(args, "startDate"), common.StringArg(args, "endDate"))
	if err != nil {
		return jsonResult(&calendar.EventsResponse{ErrorMessage: err.Error()})
	}

	resp := sc.Calendars().GetEvents(ctx, userID, start, end, pageToken, pageSize)
	return jsonResult(resp)
}

func handleSearchEvents(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	userID, err := common.UserID(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	query := common.StringArg(args, "query")
	if query == "" {
		return mcp.NewToolResultError("query is required"), nil
	}

	pageToken := common.StringArg(args, "page")
	pageSize := common.IntArg(args, "pageSize", calendar.DefaultPageSize)

	start, err := parseOptionalLocal(common.StringArg(args, "startDate"))
	if err != nil {
		return jsonResult(&calendar.EventsResponse{ErrorMessage: err.Error()})
	}
	end, err := parseOptionalLocal(common.StringArg(args, "endDate"))
	if err != nil {
		return jsonResult(&calendar.EventsResponse{ErrorMessage: err.Error()})
	}

	resp := sc.Calendars().SearchEvents(ctx, userID, query, start, end, pageToken, pageSize)
	return jsonResult(resp)
}

// parseRange parses the bounds for calendar_get_events. When both are absent
// the current local week is used; a single missing bound is an error.
func parseRange(startDate, endDate string) (time.Time, time.Time, error) {
	if startDate == "" && endDate == "" {
		start, end := calendar.WeekRange(time.Now())
		return start, end, nil
	}

	start, err := parseLocal(startDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseLocal(endDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

func parseLocal(value string) (time.Time, error) {
	t, err := time.ParseInLocation(calendar.LocalDateTimeLayout, value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date-time %q, expected format %s", value, calendar.LocalDateTimeLayout)
	}
	return t, nil
}

func parseOptionalLocal(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := parseLocal(value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
