package common

import (
	"errors"

	"google.golang.org/api/googleapi"
)

// RootCause walks the unwrap chain of err and returns the message of the most
// specific cause. For Google API errors the provider's own message is
// preferred over the wrapped HTTP detail, since that is the text the agent
// can usefully relay to the user.
func RootCause(err error) string {
	if err == nil {
		return ""
	}

	cause := err
	for {
		var apiErr *googleapi.Error
		if errors.As(cause, &apiErr) && apiErr.Message != "" {
			return apiErr.Message
		}

		next := errors.Unwrap(cause)
		if next == nil {
			return cause.Error()
		}
		cause = next
	}
}
