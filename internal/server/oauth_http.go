package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ajisegiri/calagent/internal/auth"
	"github.com/ajisegiri/calagent/internal/instrumentation"
	"github.com/ajisegiri/calagent/internal/logging"
)

const (
	// DefaultCallbackAddr is the default address for the OAuth callback server.
	DefaultCallbackAddr = ":8080"

	callbackReadTimeout  = 10 * time.Second
	callbackWriteTimeout = 30 * time.Second
	callbackIdleTimeout  = 120 * time.Second
)

// CallbackServer serves the OAuth authorization surface: an endpoint that
// hands out the Google consent URL for a user and the redirect target that
// completes the code exchange. The state parameter carries the userId so the
// callback can recover identity without a session.
type CallbackServer struct {
	flow       *auth.Flow
	logger     *slog.Logger
	metrics    *instrumentation.Metrics
	health     *HealthChecker
	httpServer *http.Server
	addr       string
}

// CallbackServerOption configures a CallbackServer.
type CallbackServerOption func(*CallbackServer)

// WithCallbackLogger sets the logger for the callback server.
func WithCallbackLogger(logger *slog.Logger) CallbackServerOption {
	return func(s *CallbackServer) {
		s.logger = logger
	}
}

// WithCallbackMetrics sets the metrics recorder for the callback server.
func WithCallbackMetrics(metrics *instrumentation.Metrics) CallbackServerOption {
	return func(s *CallbackServer) {
		s.metrics = metrics
	}
}

// WithHealthChecker attaches health probe endpoints to the callback server.
func WithHealthChecker(health *HealthChecker) CallbackServerOption {
	return func(s *CallbackServer) {
		s.health = health
	}
}

// NewCallbackServer creates a new OAuth callback server.
func NewCallbackServer(flow *auth.Flow, addr string, opts ...CallbackServerOption) *CallbackServer {
	if addr == "" {
		addr = DefaultCallbackAddr
	}

	s := &CallbackServer{
		flow:   flow,
		logger: slog.Default(),
		addr:   addr,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AuthURLHandler handles GET /oauth2/auth?userId=<id>.
// Responds with the Google authorization URL for the user as plain text.
func (s *CallbackServer) AuthURLHandler() http.Handler {
	return s.instrumented("/oauth2/auth", func(w http.ResponseWriter, r *http.Request) int {
		userID := r.URL.Query().Get("userId")
		if userID == "" {
			http.Error(w, "userId query parameter is required", http.StatusBadRequest)
			return http.StatusBadRequest
		}

		authURL := s.flow.AuthURL(userID)
		s.logger.Info("issued authorization URL", logging.UserHash(userID))

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprint(w, authURL)
		return http.StatusOK
	})
}

// CallbackHandler handles GET /oauth2/callback?code=<code>&state=<userId>.
// Completes the code exchange and stores the resulting credential.
func (s *CallbackServer) CallbackHandler() http.Handler {
	return s.instrumented("/oauth2/callback", func(w http.ResponseWriter, r *http.Request) int {
		code := r.URL.Query().Get("code")
		state := r.URL.Query().Get("state")
		if code == "" || state == "" {
			http.Error(w, "code and state query parameters are required", http.StatusBadRequest)
			return http.StatusBadRequest
		}

		userID := state
		s.logger.Info("received authorization callback", logging.UserHash(userID))

		if err := s.flow.Exchange(r.Context(), userID, code); err != nil {
			s.recordAuth(r.Context(), instrumentation.OAuthResultFailure)
			s.logger.Error("authorization code exchange failed",
				logging.UserHash(userID),
				logging.Err(err),
			)

			status := http.StatusBadGateway
			var exchangeErr *auth.ExchangeError
			if !errors.As(err, &exchangeErr) {
				status = http.StatusInternalServerError
			}
			http.Error(w, "authorization failed", status)
			return status
		}

		s.recordAuth(r.Context(), instrumentation.OAuthResultSuccess)

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprint(w, "Authorization successful!")
		return http.StatusOK
	})
}

// RegisterEndpoints registers the OAuth endpoints, and health probes when a
// health checker is configured, on the given mux.
func (s *CallbackServer) RegisterEndpoints(mux *http.ServeMux) {
	mux.Handle("/oauth2/auth", s.AuthURLHandler())
	mux.Handle("/oauth2/callback", s.CallbackHandler())
	if s.health != nil {
		s.health.RegisterHealthEndpoints(mux)
	}
}

// Start starts the callback server in a blocking manner.
// Call this in a goroutine if you need non-blocking operation.
func (s *CallbackServer) Start() error {
	mux := http.NewServeMux()
	s.RegisterEndpoints(mux)

	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: callbackReadTimeout,
		WriteTimeout:      callbackWriteTimeout,
		IdleTimeout:       callbackIdleTimeout,
	}

	s.logger.Info("starting OAuth callback server", "addr", s.addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the callback server.
func (s *CallbackServer) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		s.logger.Info("shutting down OAuth callback server")
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// Addr returns the configured address for the callback server.
func (s *CallbackServer) Addr() string {
	return s.addr
}

func (s *CallbackServer) instrumented(path string, handler func(http.ResponseWriter, *http.Request) int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		status := handler(w, r)
		if s.metrics != nil {
			s.metrics.RecordHTTPRequest(r.Context(), r.Method, path, status, time.Since(start))
		}
	})
}

func (s *CallbackServer) recordAuth(ctx context.Context, result string) {
	if s.metrics != nil {
		s.metrics.RecordOAuthAuth(ctx, result)
	}
}
