// Package calendar implements the Google Calendar operations exposed to the
// agent: listing, searching, creating, updating and deleting events on a
// single configured calendar.
//
// Read operations (GetEvents, SearchEvents) convert provider failures into an
// EventsResponse carrying an error message, so the agent can keep reasoning
// after a failed query. Mutating operations propagate errors to the caller.
package calendar
