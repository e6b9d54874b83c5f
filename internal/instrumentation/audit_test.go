package instrumentation

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestToolInvocation_Complete(t *testing.T) {
	ti := NewToolInvocation("calendar_get_events").
		WithUser("alice").
		WithOperation(OperationList)

	time.Sleep(time.Millisecond)
	ti.CompleteSuccess()

	if !ti.Success {
		t.Error("expected Success to be true")
	}
	if ti.Duration <= 0 {
		t.Errorf("expected positive duration, got %v", ti.Duration)
	}
	if ti.Status() != StatusSuccess {
		t.Errorf("expected status 'success', got %q", ti.Status())
	}
}

func TestToolInvocation_CompleteWithError(t *testing.T) {
	ti := NewToolInvocation("calendar_delete_event").
		WithUser("alice").
		WithOperation(OperationDelete).
		WithEventID("evt-123")

	ti.CompleteWithError(errors.New("event not found"))

	if ti.Success {
		t.Error("expected Success to be false")
	}
	if ti.Error != "event not found" {
		t.Errorf("expected error 'event not found', got %q", ti.Error)
	}
	if ti.Status() != StatusError {
		t.Errorf("expected status 'error', got %q", ti.Status())
	}
}

func TestToolInvocation_LogAttrsAnonymizesUser(t *testing.T) {
	ti := NewToolInvocation("calendar_get_events").WithUser("alice")
	ti.CompleteSuccess()

	for _, attr := range ti.LogAttrs() {
		if attr.Key == "user" && attr.Value.String() == "alice" {
			t.Error("LogAttrs leaked the raw user identifier")
		}
	}

	found := false
	for _, attr := range ti.LogAuditAttrs() {
		if attr.Key == "user" && attr.Value.String() == "alice" {
			found = true
		}
	}
	if !found {
		t.Error("LogAuditAttrs should carry the raw user identifier")
	}
}

func TestAuditLogger_LogToolInvocation(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	al := NewAuditLogger(logger)

	ti := NewToolInvocation("calendar_create_event").WithUser("alice")
	ti.CompleteSuccess()
	al.LogToolInvocation(ti)

	out := buf.String()
	if !strings.Contains(out, "tool_executed") {
		t.Errorf("expected 'tool_executed' log message, got: %s", out)
	}
	if strings.Contains(out, `"user":"alice"`) {
		t.Errorf("audit log leaked raw user identifier: %s", out)
	}
}

func TestAuditLogger_IncludePII(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	al := NewAuditLoggerWithConfig(logger, AuditLoggingConfig{Enabled: true, IncludePII: true})

	ti := NewToolInvocation("calendar_update_event").WithUser("alice")
	ti.CompleteWithError(errors.New("boom"))
	al.LogToolInvocation(ti)

	out := buf.String()
	if !strings.Contains(out, "tool_failed") {
		t.Errorf("expected 'tool_failed' log message, got: %s", out)
	}
	if !strings.Contains(out, `"user":"alice"`) {
		t.Errorf("expected raw user identifier in PII audit log, got: %s", out)
	}
}

func TestAuditLogger_Disabled(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	al := NewAuditLoggerWithConfig(logger, AuditLoggingConfig{Enabled: false})

	ti := NewToolInvocation("calendar_get_events").WithUser("alice")
	ti.CompleteSuccess()
	al.LogToolInvocation(ti)

	if buf.Len() != 0 {
		t.Errorf("expected no output from disabled audit logger, got: %s", buf.String())
	}
}
