package failures

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInit          = errors.New("initialization error")
	ErrValidation    = errors.New("validation error")
	ErrTransport     = errors.New("transport error")
	ErrPersistence   = errors.New("persistence error")
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker. The marker should be one of the exported sentinel
// errors above; a nil marker defaults to ErrTransport.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransport
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// EventType maps a wrapped error to the event_type value used in log lines.
func EventType(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInit):
		return "bridge_init_failed"
	case errors.Is(err, ErrValidation):
		return "playlist_event_invalid"
	case errors.Is(err, ErrPersistence):
		return "playlist_log_write_failed"
	case errors.Is(err, ErrConfiguration):
		return "config_invalid"
	case errors.Is(err, ErrTransport):
		return "transport_send_failed"
	default:
		return "bridge_failed"
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "bridge failure"
	}
	return strings.Join(parts, ": ")
}
