package session

import (
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/lnemail-client/internal/lnemail"
	"github.com/nhle/lnemail-client/internal/model"
)

// ExpiredMessage is shown when the session ends because the token expired.
const ExpiredMessage = "Your access token has expired. Please get a new one."

var (
	// ErrNoStoredToken is returned by AutoConnect when nothing was saved.
	ErrNoStoredToken = errors.New("no stored access token")

	// ErrStaleRefresh is returned when a newer refresh superseded this one.
	ErrStaleRefresh = errors.New("inbox refresh superseded")

	// ErrSuperseded is returned by a connect attempt that finished after a
	// newer attempt or a disconnect. It leaves the session untouched.
	ErrSuperseded = errors.New("connect attempt superseded")

	// ErrEmailNotFound is returned when opening an id not in the inbox.
	ErrEmailNotFound = errors.New("email not found")

	// ErrNotConnected is returned by operations that need a session.
	ErrNotConnected = errors.New("not connected")
)

// ValidationError reports bad user input. No network call is made when
// one is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsValidationError reports whether err (or any error in its chain) is a
// ValidationError.
func IsValidationError(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}

// UserMessage renders err as it is shown to the user.
func UserMessage(err error) string {
	var vErr *ValidationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &vErr):
		return vErr.Message
	case errors.Is(err, lnemail.ErrTokenExpired):
		return ExpiredMessage
	case lnemail.IsAuthorizationError(err):
		return "Authorization failed. Please check your access token."
	case errors.Is(err, ErrEmailNotFound):
		return "Email not found"
	case errors.Is(err, ErrNotConnected):
		return "Please connect with your access token first"
	}
	return err.Error()
}

// DeleteError reports a batch delete the server did not accept.
type DeleteError struct {
	Reason string
}

func (e *DeleteError) Error() string {
	return fmt.Sprintf("failed to delete emails: %s", e.Reason)
}

// EventKind identifies what changed.
type EventKind int

const (
	EventNotice EventKind = iota
	EventConnected
	EventInboxRefreshed
	EventHealthUpdated
	EventPaymentUpdated
	EventSessionEnded
)

// Event is a tea.Msg delivered to the UI when background work changes the
// state or wants to tell the user something.
type Event struct {
	Kind   EventKind
	Notice *model.Notice
}

// WaitForEvent returns a tea.Cmd that waits for the next event. The UI
// calls it again after handling each event to keep listening.
func WaitForEvent(events <-chan Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return ev
	}
}
