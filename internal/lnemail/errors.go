package lnemail

import (
	"errors"
	"fmt"
)

// ErrTokenExpired is in the chain of an AuthorizationError raised for an
// account whose expiry has passed.
var ErrTokenExpired = errors.New("access token expired")

// HTTPError is returned for any non-2xx response.
type HTTPError struct {
	StatusCode int
	StatusText string
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.StatusText)
}

// AuthorizationError indicates the access token could not be validated,
// either because the account lookup failed or because the account has
// expired.
type AuthorizationError struct {
	Reason string
	Err    error
}

func (e *AuthorizationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authorization failed: %s: %v", e.Reason, e.Err)
	}
	return "authorization failed: " + e.Reason
}

func (e *AuthorizationError) Unwrap() error { return e.Err }

// SendError is returned when the service refuses or fails to accept an
// outgoing email.
type SendError struct {
	Err error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("failed to send email: %v", e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// IsAuthorizationError reports whether err (or any error in its chain) is
// an AuthorizationError.
func IsAuthorizationError(err error) bool {
	var authErr *AuthorizationError
	return errors.As(err, &authErr)
}

// IsUnauthorized reports whether err carries an HTTP 401 response.
func IsUnauthorized(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == 401
}
