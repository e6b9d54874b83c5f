package auth

import (
	"errors"
	"fmt"
)

// NoCredentialError indicates that a user never completed the authorization
// flow, or the credential was removed. The caller should direct the user to
// the authorization URL.
type NoCredentialError struct {
	UserID string
}

func (e *NoCredentialError) Error() string {
	return fmt.Sprintf("no stored credential for user %s", e.UserID)
}

// ExchangeError indicates that the authorization-code exchange with the
// token endpoint failed. It is never retried; the user has to restart the
// authorization flow with a fresh code.
type ExchangeError struct {
	UserID string
	Err    error
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("authorization code exchange failed for user %s: %v", e.UserID, e.Err)
}

func (e *ExchangeError) Unwrap() error {
	return e.Err
}

// RefreshError indicates that a token refresh failed or was impossible
// (no refresh token on an expired credential). It is terminal: the stored
// credential stays invalid until the user re-authorizes.
type RefreshError struct {
	UserID string
	Err    error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("token refresh failed for user %s: %v", e.UserID, e.Err)
}

func (e *RefreshError) Unwrap() error {
	return e.Err
}

// IsAuthError reports whether err belongs to the credential error taxonomy,
// meaning the user must (re-)authorize rather than retry.
func IsAuthError(err error) bool {
	var noCred *NoCredentialError
	var exchange *ExchangeError
	var refresh *RefreshError
	return errors.As(err, &noCred) || errors.As(err, &exchange) || errors.As(err, &refresh)
}
