package calendar

import (
	calendar "google.golang.org/api/calendar/v3"
)

// LocalDateTimeLayout is the offset-less timestamp format the agent supplies
// for event start and end times. The instant is resolved against the
// request's IANA time zone.
const LocalDateTimeLayout = "2006-01-02T15:04:05"

// DefaultPageSize is used when the agent does not ask for a specific page
// size, so "everything this week" style queries need no pagination.
const DefaultPageSize = 1000

// EventRequest is the request body for creating or updating an event.
//
// On update, only the fields that are present are applied; absent fields
// leave the existing value untouched. Attendees, when present, replace the
// existing list wholesale. The isOnlineMeeting/attendees coupling is part of
// the agent's prompt contract and is deliberately not validated here.
type EventRequest struct {
	Summary         string   `json:"summary"`
	Description     string   `json:"description,omitempty"`
	Location        string   `json:"location,omitempty"`
	StartDateTime   string   `json:"startDateTime"`
	EndDateTime     string   `json:"endDateTime,omitempty"`
	TimeZone        string   `json:"timeZone"`
	Attendees       []string `json:"attendees,omitempty"`
	IsOnlineMeeting bool     `json:"isOnlineMeeting"`
}

// EventsResponse is the structured result of a read query. Callers must
// check ErrorMessage first: when it is set, Events and NextPageToken carry
// no meaning.
type EventsResponse struct {
	Events        []*calendar.Event `json:"events,omitempty"`
	NextPageToken string            `json:"nextPageToken,omitempty"`
	ErrorMessage  string            `json:"errorMessage,omitempty"`
}

// errorResponse builds the soft-fail shape for a failed read query.
func errorResponse(err error) *EventsResponse {
	return &EventsResponse{ErrorMessage: err.Error()}
}
