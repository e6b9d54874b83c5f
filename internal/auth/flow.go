package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/ajisegiri/calagent/internal/instrumentation"
	"github.com/ajisegiri/calagent/internal/logging"
)

// RefreshMargin is the safety margin before expiry at which an access token
// is refreshed. A request arriving with less than this margin left would risk
// the token expiring mid-flight.
const RefreshMargin = 60 * time.Second

// Flow implements the user-facing OAuth2 authorization-code flow against
// Google and keeps the resulting credentials in the Store.
type Flow struct {
	config     *oauth2.Config
	store      *Store
	logger     *slog.Logger
	metrics    *instrumentation.Metrics
	httpClient *http.Client
	now        func() time.Time
}

// FlowOption configures a Flow.
type FlowOption func(*Flow)

// WithLogger sets the logger used by the flow.
func WithLogger(logger *slog.Logger) FlowOption {
	return func(f *Flow) {
		f.logger = logger
	}
}

// WithMetrics sets the metrics recorder for token refresh attempts.
func WithMetrics(metrics *instrumentation.Metrics) FlowOption {
	return func(f *Flow) {
		f.metrics = metrics
	}
}

// WithHTTPClient sets the HTTP client used for token endpoint calls.
// Primarily used by tests to point the flow at a fake token endpoint.
func WithHTTPClient(client *http.Client) FlowOption {
	return func(f *Flow) {
		f.httpClient = client
	}
}

// WithClock sets the time source used for expiry checks.
func WithClock(now func() time.Time) FlowOption {
	return func(f *Flow) {
		f.now = now
	}
}

// NewFlow creates a Flow around the given OAuth2 config and credential store.
func NewFlow(config *oauth2.Config, store *Store, opts ...FlowOption) *Flow {
	f := &Flow{
		config: config,
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Store returns the credential store backing this flow.
func (f *Flow) Store() *Store {
	return f.store
}

// AuthURL returns the authorization URL for a user. The user ID is carried in
// the OAuth state parameter so the callback can recover the identity without
// a server-side session. Offline access with forced consent is requested so
// Google issues a refresh token; providers may still withhold one for a user
// who already approved.
func (f *Flow) AuthURL(userID string) string {
	return f.config.AuthCodeURL(userID, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange performs the code-for-token exchange and stores the resulting
// credential keyed by user ID. A failed exchange is not retried.
func (f *Flow) Exchange(ctx context.Context, userID, code string) error {
	tok, err := f.config.Exchange(f.withHTTPClient(ctx), code)
	if err != nil {
		f.logger.Error("authorization code exchange failed",
			logging.UserHash(userID), logging.Err(err))
		return &ExchangeError{UserID: userID, Err: err}
	}

	f.store.Set(userID, CredentialFromToken(userID, tok))
	f.logger.Info("authorization code exchanged",
		logging.UserHash(userID),
		slog.Time("expiry", tok.Expiry),
		slog.Bool("has_refresh_token", tok.RefreshToken != ""))
	return nil
}

// ValidCredential returns a credential for the user that is good for at
// least RefreshMargin. If the stored credential is closer to expiry, it is
// refreshed synchronously before returning; the refreshed credential
// replaces the stored one.
//
// Two concurrent calls for the same user may both trigger a refresh. That is
// an accepted race: a redundant refresh is harmless and last writer wins.
func (f *Flow) ValidCredential(ctx context.Context, userID string) (Credential, error) {
	cred, ok := f.store.Get(userID)
	if !ok {
		return Credential{}, &NoCredentialError{UserID: userID}
	}

	// Credentials without a reported expiry are used as-is.
	if cred.Expiry.IsZero() || cred.Expiry.Sub(f.now()) >= RefreshMargin {
		return cred, nil
	}

	if cred.RefreshToken == "" {
		f.logger.Warn("credential expiring and no refresh token available",
			logging.UserHash(userID), slog.Time("expiry", cred.Expiry))
		return Credential{}, &RefreshError{
			UserID: userID,
			Err:    errors.New("credential expired and no refresh token is available"),
		}
	}

	f.logger.Info("refreshing access token",
		logging.UserHash(userID), slog.Time("expiry", cred.Expiry))

	refreshed, err := f.refresh(ctx, cred)
	if err != nil {
		f.logger.Error("token refresh failed",
			logging.UserHash(userID), logging.Err(err))
		f.recordRefresh(ctx, instrumentation.OAuthResultFailure)
		return Credential{}, &RefreshError{UserID: userID, Err: err}
	}

	f.recordRefresh(ctx, instrumentation.OAuthResultSuccess)
	f.store.Set(userID, refreshed)
	return refreshed, nil
}

func (f *Flow) recordRefresh(ctx context.Context, result string) {
	if f.metrics != nil {
		f.metrics.RecordOAuthTokenRefresh(ctx, result)
	}
}

// refresh exchanges the refresh token for a new access token.
func (f *Flow) refresh(ctx context.Context, cred Credential) (Credential, error) {
	// Mark the token as already expired so the source performs a refresh
	// now instead of applying its own, shorter expiry margin.
	stale := cred.Token()
	stale.Expiry = time.Unix(1, 0)

	newTok, err := f.config.TokenSource(f.withHTTPClient(ctx), stale).Token()
	if err != nil {
		return Credential{}, err
	}

	// Google omits the refresh token from refresh responses; the oauth2
	// token source carries the previous one forward.
	return CredentialFromToken(cred.UserID, newTok), nil
}

// withHTTPClient injects the configured HTTP client into the context for the
// oauth2 package to use.
func (f *Flow) withHTTPClient(ctx context.Context) context.Context {
	if f.httpClient != nil {
		return context.WithValue(ctx, oauth2.HTTPClient, f.httpClient)
	}
	return ctx
}
