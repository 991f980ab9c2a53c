package failures_test

import (
	"errors"
	"strings"
	"testing"

	"pulsebridge/internal/failures"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := failures.Wrap(failures.ErrInit, "transport", "open", "socket create", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, failures.ErrInit) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"transport", "open", "socket create", "boom"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarkerAndDetail(t *testing.T) {
	err := failures.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, failures.ErrTransport) {
		t.Fatalf("expected transport marker by default, got %v", err)
	}
	if !strings.Contains(err.Error(), "bridge failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestEventTypeMapping(t *testing.T) {
	tests := []struct {
		marker error
		want   string
	}{
		{failures.ErrInit, "bridge_init_failed"},
		{failures.ErrValidation, "playlist_event_invalid"},
		{failures.ErrPersistence, "playlist_log_write_failed"},
		{failures.ErrConfiguration, "config_invalid"},
		{failures.ErrTransport, "transport_send_failed"},
	}
	for _, tt := range tests {
		err := failures.Wrap(tt.marker, "bridge", "op", "msg", nil)
		if got := failures.EventType(err); got != tt.want {
			t.Fatalf("EventType(%v) = %q, want %q", tt.marker, got, tt.want)
		}
	}
	if got := failures.EventType(errors.New("plain")); got != "bridge_failed" {
		t.Fatalf("expected fallback event type for unmarked error, got %q", got)
	}
	if got := failures.EventType(nil); got != "" {
		t.Fatalf("expected empty event type for nil, got %q", got)
	}
}
