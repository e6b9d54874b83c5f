package cmd

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	calendarapi "google.golang.org/api/calendar/v3"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ajisegiri/calagent/internal/auth"
	"github.com/ajisegiri/calagent/internal/calendar"
	"github.com/ajisegiri/calagent/internal/instrumentation"
	"github.com/ajisegiri/calagent/internal/server"
	"github.com/ajisegiri/calagent/internal/tools/calendar_tools"
)

// ServeConfig holds configuration for the serve command.
type ServeConfig struct {
	// Transport is the MCP transport type: stdio, sse or streamable-http.
	Transport string

	// HTTPAddr is the address for the MCP HTTP server (sse and
	// streamable-http transports).
	HTTPAddr string

	// CallbackAddr is the address for the OAuth callback HTTP server.
	CallbackAddr string

	// GoogleClientID and GoogleClientSecret identify the OAuth application.
	GoogleClientID     string
	GoogleClientSecret string

	// RedirectURL is the registered OAuth redirect URL. When empty it is
	// derived from CallbackAddr.
	RedirectURL string

	// CalendarID is the Google calendar operated on (default "primary").
	CalendarID string

	// MetricsEnabled determines whether to start the metrics server.
	MetricsEnabled bool

	// MetricsAddr is the address for the metrics server (e.g., ":9090").
	MetricsAddr string

	// Debug enables debug logging.
	Debug bool
}

func newServeCmd() *cobra.Command {
	var cfg ServeConfig

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server providing Google Calendar
tools for AI assistants.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - sse: HTTP with Server-Sent Events
  - streamable-http: Streamable HTTP transport

An OAuth callback HTTP server is always started alongside the MCP server.
It serves GET /oauth2/auth?userId=<id> to obtain an authorization URL for a
user and GET /oauth2/callback to complete the consent flow. Users without a
stored credential must complete this flow before calendar tools work.

OAuth Configuration:
  Client credentials (required):
    --google-client-id and --google-client-secret flags
    OR GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET env vars

  Redirect URL:
    --redirect-url OR CALAGENT_REDIRECT_URL env var
    Must match a redirect URI registered for the OAuth client. Defaults to
    http://localhost<callback-addr>/oauth2/callback for local development.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cfg)
		},
	}

	cmd.Flags().BoolVar(&cfg.Debug, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&cfg.Transport, "transport", "stdio", "Transport type: stdio, sse or streamable-http")
	cmd.Flags().StringVar(&cfg.HTTPAddr, "http-addr", ":8081", "MCP HTTP server address (for sse and streamable-http transports)")
	cmd.Flags().StringVar(&cfg.CallbackAddr, "callback-addr", server.DefaultCallbackAddr, "OAuth callback HTTP server address")
	cmd.Flags().StringVar(&cfg.GoogleClientID, "google-client-id", "", "Google OAuth Client ID. Can also use GOOGLE_CLIENT_ID env var.")
	cmd.Flags().StringVar(&cfg.GoogleClientSecret, "google-client-secret", "", "Google OAuth Client Secret. Can also use GOOGLE_CLIENT_SECRET env var.")
	cmd.Flags().StringVar(&cfg.RedirectURL, "redirect-url", "", "OAuth redirect URL registered for the client. Can also use CALAGENT_REDIRECT_URL env var.")
	cmd.Flags().StringVar(&cfg.CalendarID, "calendar-id", "", "Google calendar ID to operate on (default: primary). Can also use CALAGENT_CALENDAR_ID env var.")
	cmd.Flags().BoolVar(&cfg.MetricsEnabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&cfg.MetricsAddr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")

	return cmd
}

func runServe(cfg ServeConfig) error {
	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	setupLogging(cfg.Debug)

	if err := resolveServeConfig(&cfg); err != nil {
		return err
	}

	// Initialize instrumentation provider
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(shutdownCtx); err != nil {
			if cfg.Transport != "stdio" {
				log.Printf("Error during instrumentation shutdown: %v", err)
			}
		}
	}()

	// Start metrics server if enabled and not in stdio mode
	var metricsServer *server.MetricsServer
	if cfg.Transport != "stdio" && cfg.MetricsEnabled && provider.Enabled() {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    cfg.MetricsAddr,
			InstrumentationProvider: provider,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}

		go func() {
			if err := metricsServer.Start(); err != nil && err != http.ErrServerClosed {
				log.Printf("Metrics server stopped with error: %v", err)
			}
		}()
		log.Printf("Metrics server listening on %s", metricsServer.Addr())
	}

	// Wire the credential store, OAuth flow and calendar service
	store := auth.NewStore()
	var flowOpts []auth.FlowOption
	if provider.Enabled() {
		flowOpts = append(flowOpts, auth.WithMetrics(provider.Metrics()))
	}
	flow := auth.NewFlow(newOAuthConfig(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.RedirectURL), store, flowOpts...)
	clients := calendar.NewClientFactory(flow)
	calendars := calendar.NewService(clients, cfg.CalendarID)

	serverContext := server.NewServerContext(shutdownCtx, store, flow, calendars)

	// Set metrics and audit logger on server context for tool instrumentation
	if provider.Enabled() {
		serverContext.SetMetrics(provider.Metrics())
		serverContext.SetAuditLogger(instrumentation.NewAuditLoggerWithConfig(nil, instrConfig.AuditLogging))
	}
	defer func() {
		// Shutdown metrics server first
		if metricsServer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				log.Printf("Error during metrics server shutdown: %v", err)
			}
		}
		if err := serverContext.Shutdown(); err != nil {
			if cfg.Transport != "stdio" {
				log.Printf("Error during server context shutdown: %v", err)
			}
		}
	}()

	// Create MCP server
	mcpSrv := mcpserver.NewMCPServer("calagent", version,
		mcpserver.WithToolCapabilities(true),
	)

	if err := calendar_tools.RegisterCalendarTools(mcpSrv, serverContext); err != nil {
		return fmt.Errorf("failed to register calendar tools: %w", err)
	}

	// Start the OAuth callback server. Tools fail per-user until the
	// consent flow served here has been completed.
	health := server.NewHealthChecker(serverContext)
	callbackOpts := []server.CallbackServerOption{
		server.WithHealthChecker(health),
	}
	if provider.Enabled() {
		callbackOpts = append(callbackOpts, server.WithCallbackMetrics(provider.Metrics()))
	}
	callback := server.NewCallbackServer(flow, cfg.CallbackAddr, callbackOpts...)

	go func() {
		if err := callback.Start(); err != nil && err != http.ErrServerClosed {
			log.Printf("OAuth callback server stopped with error: %v", err)
			cancel()
		}
	}()
	health.SetReady(true)
	if cfg.Transport != "stdio" {
		log.Printf("OAuth callback server listening on %s", callback.Addr())
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := callback.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error during callback server shutdown: %v", err)
		}
	}()

	// Start the appropriate server based on transport type
	switch cfg.Transport {
	case "stdio":
		return runStdioServer(mcpSrv)
	case "sse":
		fmt.Printf("Starting calagent MCP server with sse transport on %s...\n", cfg.HTTPAddr)
		sseServer := mcpserver.NewSSEServer(mcpSrv,
			mcpserver.WithSSEEndpoint("/sse"),
			mcpserver.WithMessageEndpoint("/message"),
		)
		return runHTTPTransport(shutdownCtx, cfg.HTTPAddr, sseServer.Start, sseServer.Shutdown)
	case "streamable-http":
		fmt.Printf("Starting calagent MCP server with streamable-http transport on %s...\n", cfg.HTTPAddr)
		httpServer := mcpserver.NewStreamableHTTPServer(mcpSrv,
			mcpserver.WithEndpointPath("/mcp"),
		)
		return runHTTPTransport(shutdownCtx, cfg.HTTPAddr, httpServer.Start, httpServer.Shutdown)
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, sse, streamable-http)", cfg.Transport)
	}
}

// resolveServeConfig applies environment variable fallbacks and validates
// that required settings are present.
func resolveServeConfig(cfg *ServeConfig) error {
	if cfg.GoogleClientID == "" {
		cfg.GoogleClientID = os.Getenv("GOOGLE_CLIENT_ID")
	}
	if cfg.GoogleClientSecret == "" {
		cfg.GoogleClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	}
	if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
		return fmt.Errorf("google OAuth client credentials are required: set --google-client-id/--google-client-secret or GOOGLE_CLIENT_ID/GOOGLE_CLIENT_SECRET")
	}

	if cfg.CalendarID == "" {
		cfg.CalendarID = os.Getenv("CALAGENT_CALENDAR_ID")
	}
	if cfg.CalendarID == "" {
		cfg.CalendarID = "primary"
	}

	if cfg.RedirectURL == "" {
		cfg.RedirectURL = os.Getenv("CALAGENT_REDIRECT_URL")
	}
	if cfg.RedirectURL == "" {
		cfg.RedirectURL = defaultRedirectURL(cfg.CallbackAddr)
	}

	if !cfg.MetricsEnabled {
		if os.Getenv("METRICS_ENABLED") == "true" {
			cfg.MetricsEnabled = true
		}
	}
	if cfg.MetricsAddr == "" || cfg.MetricsAddr == server.DefaultMetricsAddr {
		if addr := os.Getenv("METRICS_ADDR"); addr != "" {
			cfg.MetricsAddr = addr
		}
	}

	return nil
}

// newOAuthConfig builds the OAuth configuration for the Google consent flow.
// Offline access is requested at authorization time so refresh tokens are
// issued; see auth.Flow.AuthURL.
func newOAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  redirectURL,
		Scopes:       []string{calendarapi.CalendarScope},
	}
}

// defaultRedirectURL derives a local redirect URL from the callback listen
// address, for development setups where no public URL is registered.
func defaultRedirectURL(callbackAddr string) string {
	if callbackAddr != "" && callbackAddr[0] == ':' {
		return fmt.Sprintf("http://localhost%s/oauth2/callback", callbackAddr)
	}
	return fmt.Sprintf("http://%s/oauth2/callback", callbackAddr)
}

// setupLogging configures the default slog logger. Logs always go to stderr
// so the stdio transport keeps stdout free for MCP framing.
func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

// runHTTPTransport runs an HTTP-based MCP transport until the context is
// cancelled or the server stops on its own.
func runHTTPTransport(ctx context.Context, addr string, start func(string) error, shutdown func(context.Context) error) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := start(addr); err != nil && err != http.ErrServerClosed {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		fmt.Println("Shutdown signal received, stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
		fmt.Println("HTTP server stopped normally")
	}

	fmt.Println("HTTP server gracefully stopped")
	return nil
}
