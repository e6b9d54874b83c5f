// Package calendar_tools registers the Google Calendar MCP tools.
//
// Six tools are exposed to the agent: calendar_list_calendars,
// calendar_get_events, calendar_search_events, calendar_create_event,
// calendar_update_event, and calendar_delete_event. Read tools answer with
// an EventsResponse JSON document whose errorMessage field carries provider
// failures; mutating tools answer with the resulting event JSON or an
// "Error details: <cause>" text. Tool handlers never raise MCP protocol
// errors for provider failures, so the agent can always reason about the
// outcome in-band.
package calendar_tools
