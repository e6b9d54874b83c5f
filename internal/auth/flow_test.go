package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"golang.org/x/oauth2"

	"github.com/ajisegiri/calagent/internal/instrumentation"
)

// fakeTokenEndpoint is a minimal OAuth2 token endpoint for tests. It counts
// hits and either returns a fixed token response or a failure.
type fakeTokenEndpoint struct {
	srv   *httptest.Server
	hits  atomic.Int64
	fail  bool
	token string
}

func newFakeTokenEndpoint(t *testing.T) *fakeTokenEndpoint {
	t.Helper()
	f := &fakeTokenEndpoint{token: "new-access-token"}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		if f.fail {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"` + f.token + `","token_type":"Bearer","refresh_token":"new-refresh-token","expires_in":3600}`))
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeTokenEndpoint) config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://localhost:8080/oauth2/callback",
		Endpoint: oauth2.Endpoint{
			AuthURL:  f.srv.URL + "/auth",
			TokenURL: f.srv.URL + "/token",
		},
		Scopes: []string{"https://www.googleapis.com/auth/calendar"},
	}
}

func newTestFlow(t *testing.T, endpoint *fakeTokenEndpoint, now time.Time) (*Flow, *Store) {
	t.Helper()
	store := NewStore()
	flow := NewFlow(endpoint.config(), store,
		WithClock(func() time.Time { return now }),
	)
	return flow, store
}

func TestFlow_AuthURL(t *testing.T) {
	endpoint := newFakeTokenEndpoint(t)
	flow, _ := newTestFlow(t, endpoint, time.Now())

	raw := flow.AuthURL("user-42")

	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "user-42", q.Get("state"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "consent", q.Get("prompt"))
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "http://localhost:8080/oauth2/callback", q.Get("redirect_uri"))
}

func TestFlow_Exchange_StoresCredential(t *testing.T) {
	endpoint := newFakeTokenEndpoint(t)
	flow, store := newTestFlow(t, endpoint, time.Now())

	err := flow.Exchange(context.Background(), "user-1", "auth-code")
	require.NoError(t, err)

	cred, ok := store.Get("user-1")
	require.True(t, ok)
	assert.Equal(t, "new-access-token", cred.AccessToken)
	assert.Equal(t, "new-refresh-token", cred.RefreshToken)
	assert.False(t, cred.Expiry.IsZero())
	assert.Equal(t, int64(1), endpoint.hits.Load())
}

func TestFlow_Exchange_Failure(t *testing.T) {
	endpoint := newFakeTokenEndpoint(t)
	endpoint.fail = true
	flow, store := newTestFlow(t, endpoint, time.Now())

	err := flow.Exchange(context.Background(), "user-1", "bad-code")

	var exchangeErr *ExchangeError
	require.ErrorAs(t, err, &exchangeErr)
	assert.Equal(t, "user-1", exchangeErr.UserID)

	_, ok := store.Get("user-1")
	assert.False(t, ok, "failed exchange must not store a credential")
}

func TestFlow_ValidCredential_NoCredential(t *testing.T) {
	endpoint := newFakeTokenEndpoint(t)
	flow, _ := newTestFlow(t, endpoint, time.Now())

	_, err := flow.ValidCredential(context.Background(), "stranger")

	var noCred *NoCredentialError
	require.ErrorAs(t, err, &noCred)
	assert.Equal(t, "stranger", noCred.UserID)
	assert.Equal(t, int64(0), endpoint.hits.Load())
}

func TestFlow_ValidCredential_FreshTokenUnchanged(t *testing.T) {
	now := time.Date(2025, 3, 24, 10, 0, 0, 0, time.UTC)
	endpoint := newFakeTokenEndpoint(t)
	flow, store := newTestFlow(t, endpoint, now)

	stored := Credential{
		UserID:       "user-1",
		AccessToken:  "fresh-access",
		RefreshToken: "refresh",
		Expiry:       now.Add(RefreshMargin), // exactly at the margin counts as fresh
	}
	store.Set("user-1", stored)

	cred, err := flow.ValidCredential(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, stored, cred)
	assert.Equal(t, int64(0), endpoint.hits.Load(), "fresh credential must not hit the token endpoint")
}

func TestFlow_ValidCredential_RefreshesExpiring(t *testing.T) {
	now := time.Date(2025, 3, 24, 10, 0, 0, 0, time.UTC)
	endpoint := newFakeTokenEndpoint(t)
	flow, store := newTestFlow(t, endpoint, now)

	store.Set("user-1", Credential{
		UserID:       "user-1",
		AccessToken:  "stale-access",
		RefreshToken: "refresh",
		Expiry:       now.Add(30 * time.Second), // inside the 60s margin
	})

	cred, err := flow.ValidCredential(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "new-access-token", cred.AccessToken)
	assert.True(t, cred.Expiry.After(now))
	assert.Equal(t, int64(1), endpoint.hits.Load(), "expiring credential must refresh exactly once")

	// The refreshed credential replaces the stored one
	stored, ok := store.Get("user-1")
	require.True(t, ok)
	assert.Equal(t, "new-access-token", stored.AccessToken)
}

func TestFlow_ValidCredential_NoRefreshToken(t *testing.T) {
	now := time.Date(2025, 3, 24, 10, 0, 0, 0, time.UTC)
	endpoint := newFakeTokenEndpoint(t)
	flow, store := newTestFlow(t, endpoint, now)

	store.Set("user-1", Credential{
		UserID:      "user-1",
		AccessToken: "stale-access",
		Expiry:      now.Add(-time.Minute),
	})

	_, err := flow.ValidCredential(context.Background(), "user-1")

	var refreshErr *RefreshError
	require.ErrorAs(t, err, &refreshErr)
	assert.Equal(t, int64(0), endpoint.hits.Load(), "refresh is impossible without a refresh token")
}

func TestFlow_ValidCredential_RefreshFailure(t *testing.T) {
	now := time.Date(2025, 3, 24, 10, 0, 0, 0, time.UTC)
	endpoint := newFakeTokenEndpoint(t)
	endpoint.fail = true
	flow, store := newTestFlow(t, endpoint, now)

	store.Set("user-1", Credential{
		UserID:       "user-1",
		AccessToken:  "stale-access",
		RefreshToken: "revoked-refresh",
		Expiry:       now.Add(-time.Minute),
	})

	_, err := flow.ValidCredential(context.Background(), "user-1")

	var refreshErr *RefreshError
	require.ErrorAs(t, err, &refreshErr)
	assert.Equal(t, "user-1", refreshErr.UserID)

	// The stale credential stays in the store until re-exchange
	stored, ok := store.Get("user-1")
	require.True(t, ok)
	assert.Equal(t, "stale-access", stored.AccessToken)
}

func TestFlow_ValidCredential_NoExpiryNeverRefreshes(t *testing.T) {
	endpoint := newFakeTokenEndpoint(t)
	flow, store := newTestFlow(t, endpoint, time.Now())

	store.Set("user-1", Credential{UserID: "user-1", AccessToken: "eternal"})

	cred, err := flow.ValidCredential(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "eternal", cred.AccessToken)
	assert.Equal(t, int64(0), endpoint.hits.Load())
}

// refreshCount sums the oauth_token_refresh_total datapoints carrying the
// given result label.
func refreshCount(t *testing.T, reader *sdkmetric.ManualReader, result string) int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total int64
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != "oauth_token_refresh_total" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "oauth_token_refresh_total should be an int64 sum")
			for _, dp := range sum.DataPoints {
				if v, ok := dp.Attributes.Value(attribute.Key("result")); ok && v.AsString() == result {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func TestFlow_ValidCredential_RecordsRefreshMetrics(t *testing.T) {
	now := time.Date(2025, 3, 24, 10, 0, 0, 0, time.UTC)
	endpoint := newFakeTokenEndpoint(t)

	reader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("flow-test")
	metrics, err := instrumentation.NewMetrics(meter, false)
	require.NoError(t, err)

	store := NewStore()
	flow := NewFlow(endpoint.config(), store,
		WithClock(func() time.Time { return now }),
		WithMetrics(metrics),
	)

	expiring := Credential{
		UserID:       "user-1",
		AccessToken:  "stale-access",
		RefreshToken: "refresh",
		Expiry:       now.Add(30 * time.Second),
	}

	store.Set("user-1", expiring)
	_, err = flow.ValidCredential(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), refreshCount(t, reader, instrumentation.OAuthResultSuccess))
	assert.Equal(t, int64(0), refreshCount(t, reader, instrumentation.OAuthResultFailure))

	endpoint.fail = true
	store.Set("user-1", expiring)
	_, err = flow.ValidCredential(context.Background(), "user-1")
	require.Error(t, err)
	assert.Equal(t, int64(1), refreshCount(t, reader, instrumentation.OAuthResultSuccess))
	assert.Equal(t, int64(1), refreshCount(t, reader, instrumentation.OAuthResultFailure))

	// A fresh credential is returned without a refresh attempt
	endpoint.fail = false
	store.Set("user-2", Credential{
		UserID:      "user-2",
		AccessToken: "fresh",
		Expiry:      now.Add(time.Hour),
	})
	_, err = flow.ValidCredential(context.Background(), "user-2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), refreshCount(t, reader, instrumentation.OAuthResultSuccess))
}

func TestIsAuthError(t *testing.T) {
	assert.True(t, IsAuthError(&NoCredentialError{UserID: "u"}))
	assert.True(t, IsAuthError(&ExchangeError{UserID: "u", Err: errors.New("boom")}))
	assert.True(t, IsAuthError(&RefreshError{UserID: "u", Err: errors.New("boom")}))
	assert.False(t, IsAuthError(errors.New("unrelated")))
	assert.False(t, IsAuthError(nil))
}
