package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/ajisegiri/calagent/internal/auth"
)

// newTestFlow builds a Flow whose token endpoint is a local httptest server.
// When fail is true the endpoint answers every exchange with an error.
func newTestFlow(t *testing.T, fail bool) (*auth.Flow, *auth.Store) {
	t.Helper()

	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":"invalid_grant"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"access-1","refresh_token":"refresh-1","token_type":"Bearer","expires_in":3600}`)
	}))
	t.Cleanup(tokenSrv.Close)

	config := &oauth2.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://localhost:8080/oauth2/callback",
		Scopes:       []string{"https://www.googleapis.com/auth/calendar"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  tokenSrv.URL + "/auth",
			TokenURL: tokenSrv.URL + "/token",
		},
	}

	store := auth.NewStore()
	return auth.NewFlow(config, store), store
}

func TestAuthURLHandler(t *testing.T) {
	flow, _ := newTestFlow(t, false)
	srv := NewCallbackServer(flow, "")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/oauth2/auth?userId=alice", nil)
	srv.AuthURLHandler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "state=alice")
	assert.Contains(t, string(body), "access_type=offline")
}

func TestAuthURLHandler_MissingUserID(t *testing.T) {
	flow, _ := newTestFlow(t, false)
	srv := NewCallbackServer(flow, "")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/oauth2/auth", nil)
	srv.AuthURLHandler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCallbackHandler(t *testing.T) {
	flow, store := newTestFlow(t, false)
	srv := NewCallbackServer(flow, "")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/oauth2/callback?code=auth-code&state=alice", nil)
	srv.CallbackHandler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Authorization successful!")

	cred, ok := store.Get("alice")
	require.True(t, ok, "credential should be stored after callback")
	assert.Equal(t, "access-1", cred.AccessToken)
	assert.Equal(t, "refresh-1", cred.RefreshToken)
}

func TestCallbackHandler_MissingParams(t *testing.T) {
	flow, _ := newTestFlow(t, false)
	srv := NewCallbackServer(flow, "")

	for _, target := range []string{
		"/oauth2/callback",
		"/oauth2/callback?code=auth-code",
		"/oauth2/callback?state=alice",
	} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, target, nil)
		srv.CallbackHandler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code, "target %s", target)
	}
}

func TestCallbackHandler_ExchangeFails(t *testing.T) {
	flow, store := newTestFlow(t, true)
	srv := NewCallbackServer(flow, "")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/oauth2/callback?code=bad-code&state=alice", nil)
	srv.CallbackHandler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)

	_, ok := store.Get("alice")
	assert.False(t, ok, "no credential should be stored on failed exchange")
}

func TestHealthEndpoints(t *testing.T) {
	flow, store := newTestFlow(t, false)
	sc := NewServerContext(context.Background(), store, flow, nil)
	health := NewHealthChecker(sc)

	srv := NewCallbackServer(flow, "", WithHealthChecker(health))

	mux := http.NewServeMux()
	srv.RegisterEndpoints(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, sc.Shutdown())

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
