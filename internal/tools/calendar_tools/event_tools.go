package calendar_tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ajisegiri/calagent/internal/calendar"
	"github.com/ajisegiri/calagent/internal/instrumentation"
	"github.com/ajisegiri/calagent/internal/server"
	"github.com/ajisegiri/calagent/internal/tools/common"
)

// RegisterEventTools registers the event mutation tools with the MCP server.
func RegisterEventTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	createEventTool := mcp.NewTool("calendar_create_event",
		mcp.WithDescription("Create or schedule a calendar event"),
		mcp.WithString("userId",
			mcp.Required(),
			mcp.Description("Identifier of the user creating the event"),
		),
		mcp.WithString("summary",
			mcp.Required(),
			mcp.Description("Summary or title of the meeting"),
		),
		mcp.WithString("description",
			mcp.Description("Detailed description of the event"),
		),
		mcp.WithString("location",
			mcp.Description("Location where the event will take place. Online as default"),
		),
		mcp.WithString("startDateTime",
			mcp.Required(),
			mcp.Description("Start date and time as a local date-time without offset (e.g., '2025-03-24T10:00:00')"),
		),
		mcp.WithString("endDateTime",
			mcp.Description("End date and time as a local date-time without offset (e.g., '2025-03-24T11:00:00')"),
		),
		mcp.WithString("timeZoneInIANA",
			mcp.Description("Must be a valid IANA time zone. If the input is a UTC/GMT offset or another "+
				"non-IANA format, supply the best-matching IANA identifier for the user's region, "+
				"accounting for daylight saving time."),
		),
		mcp.WithString("attendees",
			mcp.Description("Comma-separated list of attendee email addresses"),
		),
		mcp.WithBoolean("isOnlineMeeting",
			mcp.Required(),
			mcp.Description("Whether the event is an online meeting. If true, a Google Meet link is "+
				"generated and attendees must not be empty."),
		),
	)

	s.AddTool(createEventTool, common.InstrumentedToolHandler(
		"calendar_create_event", instrumentation.OperationCreate, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleCreateEvent(ctx, request, sc)
		}))

	updateEventTool := mcp.NewTool("calendar_update_event",
		mcp.WithDescription("Update an existing calendar event. Use the event's id field, not htmlLink or eid. "+
			"Only the provided fields are changed."),
		mcp.WithString("userId",
			mcp.Required(),
			mcp.Description("Identifier of the user updating the event"),
		),
		mcp.WithString("eventId",
			mcp.Required(),
			mcp.Description("ID of the event to update"),
		),
		mcp.WithString("summary",
			mcp.Description("New summary or title of the meeting"),
		),
		mcp.WithString("description",
			mcp.Description("New description of the event"),
		),
		mcp.WithString("location",
			mcp.Description("New location of the event"),
		),
		mcp.WithString("startDateTime",
			mcp.Description("New start date and time as a local date-time without offset"),
		),
		mcp.WithString("endDateTime",
			mcp.Description("New end date and time as a local date-time without offset"),
		),
		mcp.WithString("timeZoneInIANA",
			mcp.Description("IANA time zone in which the date-times are specified"),
		),
		mcp.WithString("attendees",
			mcp.Description("Comma-separated list of attendee email addresses. Replaces the existing list when provided."),
		),
		mcp.WithBoolean("isOnlineMeeting",
			mcp.Description("Whether the event should have a Google Meet link. The link is added or removed to match."),
		),
	)

	s.AddTool(updateEventTool, common.InstrumentedToolHandler(
		"calendar_update_event", instrumentation.OperationUpdate, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleUpdateEvent(ctx, request, sc)
		}))

	deleteEventTool := mcp.NewTool("calendar_delete_event",
		mcp.WithDescription("Delete a specific meeting/event. Use the value of the id field, not eid or any other field."),
		mcp.WithString("userId",
			mcp.Required(),
			mcp.Description("Identifier of the user deleting the event"),
		),
		mcp.WithString("eventId",
			mcp.Required(),
			mcp.Description("Meeting event ID, not the event name"),
		),
	)

	s.AddTool(deleteEventTool, common.InstrumentedToolHandler(
		"calendar_delete_event", instrumentation.OperationDelete, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleDeleteEvent(ctx, request, sc)
		}))

	return nil
}

// eventRequestFromArgs builds an EventRequest from tool arguments. The
// timeZoneInIANA argument is injected as the request's time zone.
func eventRequestFromArgs(args map[string]interface{}) calendar.EventRequest {
	return calendar.EventRequest{
		Summary:         common.StringArg(args, "summary"),
		Description:     common.StringArg(args, "description"),
		Location:        common.StringArg(args, "location"),
		StartDateTime:   common.StringArg(args, "startDateTime"),
		EndDateTime:     common.StringArg(args, "endDateTime"),
		TimeZone:        common.StringArg(args, "timeZoneInIANA"),
		Attendees:       common.EmailList(common.StringArg(args, "attendees")),
		IsOnlineMeeting: common.BoolArg(args, "isOnlineMeeting"),
	}
}

func handleCreateEvent(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	userID, err := common.UserID(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req := eventRequestFromArgs(args)
	if req.Summary == "" {
		return mcp.NewToolResultError("summary is required"), nil
	}
	if req.StartDateTime == "" {
		return mcp.NewToolResultError("startDateTime is required"), nil
	}

	event, err := sc.Calendars().CreateEvent(ctx, userID, req)
	if err != nil {
		return mcp.NewToolResultText("Error details: " + common.RootCause(err)), nil
	}

	return jsonResult(event)
}

func handleUpdateEvent(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	userID, err := common.UserID(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	eventID := common.StringArg(args, "eventId")
	if eventID == "" {
		return mcp.NewToolResultError("eventId is required"), nil
	}

	req := eventRequestFromArgs(args)

	event, err := sc.Calendars().UpdateEvent(ctx, userID, eventID, req)
	if err != nil {
		return mcp.NewToolResultText("Error details: " + common.RootCause(err)), nil
	}

	return jsonResult(event)
}

func handleDeleteEvent(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	userID, err := common.UserID(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	eventID := common.StringArg(args, "eventId")
	if eventID == "" {
		return mcp.NewToolResultError("eventId is required"), nil
	}

	if err := sc.Calendars().DeleteEvent(ctx, userID, eventID); err != nil {
		return mcp.NewToolResultText("Error details: " + common.RootCause(err)), nil
	}

	return mcp.NewToolResultText("Successfully deleted"), nil
}
