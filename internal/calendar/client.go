package calendar

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/ajisegiri/calagent/internal/auth"
)

// applicationName identifies this application to the Google API.
const applicationName = "calagent"

// ClientFactory produces authenticated Calendar API clients for users.
//
// It adds no failure modes of its own: credential errors from the auth flow
// (NoCredentialError, RefreshError) propagate unchanged.
type ClientFactory struct {
	flow  *auth.Flow
	extra []option.ClientOption
}

// NewClientFactory creates a factory backed by the given auth flow. Extra
// client options are appended on every client build; tests use this to point
// the client at a fake API backend.
func NewClientFactory(flow *auth.Flow, extra ...option.ClientOption) *ClientFactory {
	return &ClientFactory{flow: flow, extra: extra}
}

// ClientFor returns a Calendar service authenticated as the given user.
// The access token is validated (and refreshed if needed) first, so the
// returned client is good for at least the refresh margin.
func (cf *ClientFactory) ClientFor(ctx context.Context, userID string) (*calendar.Service, error) {
	cred, err := cf.flow.ValidCredential(ctx, userID)
	if err != nil {
		return nil, err
	}

	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(cred.Token()))

	opts := append([]option.ClientOption{
		option.WithHTTPClient(httpClient),
		option.WithUserAgent(applicationName),
	}, cf.extra...)

	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}

	return svc, nil
}
