package grocy

import (
	"errors"
	"fmt"
)

// ErrTransport marks failures where no HTTP response was received.
var ErrTransport = errors.New("grocy: server unreachable")

// APIError is a non-2xx response. Message is the server's error text,
// meant to be shown to the user as-is.
type APIError struct {
	StatusCode int
	Message    string
	Path       string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("grocy %s: status %d", e.Path, e.StatusCode)
	}
	return fmt.Sprintf("grocy %s: status %d: %s", e.Path, e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 404
}

// UserMessage returns text suitable for a transient user-visible message.
func UserMessage(err error) string {
	var apiErr *APIError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return apiErr.Message
	case errors.As(err, &apiErr):
		return fmt.Sprintf("Server returned status %d", apiErr.StatusCode)
	case errors.Is(err, ErrTransport):
		return "No connection to the server"
	default:
		return err.Error()
	}
}
