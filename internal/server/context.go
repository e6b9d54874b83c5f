package server

import (
	"context"
	"sync"

	"github.com/ajisegiri/calagent/internal/auth"
	"github.com/ajisegiri/calagent/internal/calendar"
	"github.com/ajisegiri/calagent/internal/instrumentation"
)

// ServerContext holds the shared state for the MCP server. All dependencies
// are passed in explicitly; there is no ambient lookup.
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc

	store     *auth.Store
	flow      *auth.Flow
	calendars *calendar.Service

	metrics     *instrumentation.Metrics
	auditLogger *instrumentation.AuditLogger

	mu       sync.RWMutex
	shutdown bool
}

// NewServerContext creates a new server context wrapping the given dependencies.
func NewServerContext(ctx context.Context, store *auth.Store, flow *auth.Flow, calendars *calendar.Service) *ServerContext {
	shutdownCtx, cancel := context.WithCancel(ctx)

	return &ServerContext{
		ctx:       shutdownCtx,
		cancel:    cancel,
		store:     store,
		flow:      flow,
		calendars: calendars,
	}
}

// Context returns the server context.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Store returns the credential store.
func (sc *ServerContext) Store() *auth.Store {
	return sc.store
}

// Flow returns the OAuth flow manager.
func (sc *ServerContext) Flow() *auth.Flow {
	return sc.flow
}

// Calendars returns the calendar service.
func (sc *ServerContext) Calendars() *calendar.Service {
	return sc.calendars
}

// SetMetrics sets the metrics recorder used by the tool layer.
func (sc *ServerContext) SetMetrics(metrics *instrumentation.Metrics) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.metrics = metrics
}

// Metrics returns the metrics recorder, or nil if instrumentation is not configured.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.metrics
}

// SetAuditLogger sets the audit logger used by the tool layer.
func (sc *ServerContext) SetAuditLogger(auditLogger *instrumentation.AuditLogger) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.auditLogger = auditLogger
}

// AuditLogger returns the audit logger, or nil if audit logging is not configured.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.auditLogger
}

// IsShutdown returns whether the server has been shut down.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
