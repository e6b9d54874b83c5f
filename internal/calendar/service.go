package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	calendar "google.golang.org/api/calendar/v3"

	"github.com/ajisegiri/calagent/internal/logging"
)

// meetSolutionType is the conference solution attached to online meetings.
const meetSolutionType = "hangoutsMeet"

// Service implements the calendar operations against a single configured
// calendar. All operations take the user ID first and obtain an
// authenticated client through the factory.
type Service struct {
	clients    *ClientFactory
	calendarID string
	logger     *slog.Logger
	now        func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the logger used by the service.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithClock sets the time source used for week defaulting and conference
// request IDs.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a Service operating on the given calendar ID
// ("primary" for the user's personal calendar).
func NewService(clients *ClientFactory, calendarID string, opts ...ServiceOption) *Service {
	s := &Service{
		clients:    clients,
		calendarID: calendarID,
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListCalendars returns the calendars visible to the user.
func (s *Service) ListCalendars(ctx context.Context, userID string) ([]*calendar.CalendarListEntry, error) {
	svc, err := s.clients.ClientFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	list, err := svc.CalendarList.List().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list calendars: %w", err)
	}
	return list.Items, nil
}

// GetEvents returns the events between start and end, ordered by start time,
// with recurring events expanded into individual instances. Failures are
// returned as an EventsResponse carrying an error message, never as an
// error: this is the boundary at which provider failures become data the
// agent can reason about.
func (s *Service) GetEvents(ctx context.Context, userID string, start, end time.Time, pageToken string, pageSize int64) *EventsResponse {
	svc, err := s.clients.ClientFor(ctx, userID)
	if err != nil {
		s.logger.Error("failed to get calendar client",
			logging.Operation("get_events"), logging.UserHash(userID), logging.Err(err))
		return errorResponse(err)
	}

	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	call := svc.Events.List(s.calendarID).
		TimeMin(start.Format(time.RFC3339)).
		TimeMax(end.Format(time.RFC3339)).
		OrderBy("startTime").
		SingleEvents(true).
		MaxResults(pageSize).
		Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	events, err := call.Do()
	if err != nil {
		s.logger.Error("failed to list events",
			logging.Operation("get_events"), logging.UserHash(userID), logging.Err(err))
		return errorResponse(err)
	}

	return &EventsResponse{Events: events.Items, NextPageToken: events.NextPageToken}
}

// SearchEvents full-text-matches query against event summaries, descriptions,
// locations and attendees. Missing time bounds default to the current week.
// Failures soft-fail like GetEvents.
func (s *Service) SearchEvents(ctx context.Context, userID, query string, start, end *time.Time, pageToken string, pageSize int64) *EventsResponse {
	weekStart, weekEnd := WeekRange(s.now())
	if start == nil {
		start = &weekStart
	}
	if end == nil {
		end = &weekEnd
	}

	svc, err := s.clients.ClientFor(ctx, userID)
	if err != nil {
		s.logger.Error("failed to get calendar client",
			logging.Operation("search_events"), logging.UserHash(userID), logging.Err(err))
		return errorResponse(err)
	}

	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	call := svc.Events.List(s.calendarID).
		Q(query).
		TimeMin(start.Format(time.RFC3339)).
		TimeMax(end.Format(time.RFC3339)).
		OrderBy("startTime").
		SingleEvents(true).
		MaxResults(pageSize).
		Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	events, err := call.Do()
	if err != nil {
		s.logger.Error("failed to search events",
			logging.Operation("search_events"), logging.UserHash(userID), logging.Err(err))
		return errorResponse(err)
	}

	return &EventsResponse{Events: events.Items, NextPageToken: events.NextPageToken}
}

// CreateEvent creates a new event from the request. Update notifications are
// sent to all attendees. When the request asks for an online meeting, a
// Google Meet conference is attached with a request ID unique per call so a
// retried insert does not collide with an earlier conferencing request.
func (s *Service) CreateEvent(ctx context.Context, userID string, req EventRequest) (*calendar.Event, error) {
	svc, err := s.clients.ClientFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	event := &calendar.Event{
		Summary:     req.Summary,
		Description: req.Description,
		Location:    req.Location,
	}

	event.Start, err = eventDateTime(req.StartDateTime, req.TimeZone)
	if err != nil {
		return nil, err
	}
	if req.EndDateTime != "" {
		event.End, err = eventDateTime(req.EndDateTime, req.TimeZone)
		if err != nil {
			return nil, err
		}
	}

	if len(req.Attendees) > 0 {
		event.Attendees = toAttendees(req.Attendees)
	}

	if req.IsOnlineMeeting {
		event.ConferenceData = s.newConferenceData()
	}

	created, err := svc.Events.Insert(s.calendarID, event).
		SendUpdates("all").
		ConferenceDataVersion(1).
		Context(ctx).
		Do()
	if err != nil {
		s.logger.Error("failed to create event",
			logging.Operation("create_event"), logging.UserHash(userID), logging.Err(err))
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	s.logger.Info("event created",
		logging.Operation("create_event"), logging.UserHash(userID), logging.EventID(created.Id))
	return created, nil
}

// UpdateEvent applies a partial update to an existing event: only the fields
// present in the request change. Attendees, when present, replace the
// existing list. Conference data is toggled: attached when requested and
// absent, removed when unrequested and present, untouched otherwise.
func (s *Service) UpdateEvent(ctx context.Context, userID, eventID string, req EventRequest) (*calendar.Event, error) {
	svc, err := s.clients.ClientFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	existing, err := svc.Events.Get(s.calendarID, eventID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get existing event: %w", err)
	}

	if req.Summary != "" {
		existing.Summary = req.Summary
	}
	if req.Description != "" {
		existing.Description = req.Description
	}
	if req.Location != "" {
		existing.Location = req.Location
	}

	if req.StartDateTime != "" {
		existing.Start, err = eventDateTime(req.StartDateTime, req.TimeZone)
		if err != nil {
			return nil, err
		}
	}
	if req.EndDateTime != "" {
		existing.End, err = eventDateTime(req.EndDateTime, req.TimeZone)
		if err != nil {
			return nil, err
		}
	}

	if req.Attendees != nil {
		existing.Attendees = toAttendees(req.Attendees)
	}

	hasConference := existing.ConferenceData != nil
	if req.IsOnlineMeeting && !hasConference {
		existing.ConferenceData = s.newConferenceData()
	} else if !req.IsOnlineMeeting && hasConference {
		existing.ConferenceData = nil
	}

	updated, err := svc.Events.Update(s.calendarID, eventID, existing).
		SendUpdates("all").
		ConferenceDataVersion(1).
		Context(ctx).
		Do()
	if err != nil {
		s.logger.Error("failed to update event",
			logging.Operation("update_event"), logging.UserHash(userID),
			logging.EventID(eventID), logging.Err(err))
		return nil, fmt.Errorf("failed to update event: %w", err)
	}

	s.logger.Info("event updated",
		logging.Operation("update_event"), logging.UserHash(userID), logging.EventID(eventID))
	return updated, nil
}

// DeleteEvent deletes an event by ID.
func (s *Service) DeleteEvent(ctx context.Context, userID, eventID string) error {
	svc, err := s.clients.ClientFor(ctx, userID)
	if err != nil {
		return err
	}

	if err := svc.Events.Delete(s.calendarID, eventID).Context(ctx).Do(); err != nil {
		s.logger.Error("failed to delete event",
			logging.Operation("delete_event"), logging.UserHash(userID),
			logging.EventID(eventID), logging.Err(err))
		return fmt.Errorf("failed to delete event: %w", err)
	}

	s.logger.Info("event deleted",
		logging.Operation("delete_event"), logging.UserHash(userID), logging.EventID(eventID))
	return nil
}

// newConferenceData builds a Google Meet conferencing request with a
// time-derived request ID.
func (s *Service) newConferenceData() *calendar.ConferenceData {
	return &calendar.ConferenceData{
		CreateRequest: &calendar.CreateConferenceRequest{
			RequestId: fmt.Sprintf("meet-%d", s.now().UnixNano()),
			ConferenceSolutionKey: &calendar.ConferenceSolutionKey{
				Type: meetSolutionType,
			},
		},
	}
}

// eventDateTime resolves an offset-less local timestamp against an IANA time
// zone. The declared zone is preserved on the event so the provider keeps
// showing the event in that zone.
func eventDateTime(local, timeZone string) (*calendar.EventDateTime, error) {
	if timeZone == "" {
		timeZone = "UTC"
	}
	loc, err := time.LoadLocation(timeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid time zone %q: %w", timeZone, err)
	}

	t, err := time.ParseInLocation(LocalDateTimeLayout, local, loc)
	if err != nil {
		return nil, fmt.Errorf("invalid datetime %q: %w", local, err)
	}

	return &calendar.EventDateTime{
		DateTime: t.Format(time.RFC3339),
		TimeZone: timeZone,
	}, nil
}

func toAttendees(emails []string) []*calendar.EventAttendee {
	attendees := make([]*calendar.EventAttendee, 0, len(emails))
	for _, email := range emails {
		attendees = append(attendees, &calendar.EventAttendee{Email: email})
	}
	return attendees
}
