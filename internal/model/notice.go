package model

import (
	"time"

	"github.com/google/uuid"
)

// NoticeLevel controls how a notice is styled.
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// NoticeTTL is how long a notice stays on screen.
const NoticeTTL = 5 * time.Second

// Notice is a transient status message shown to the user.
type Notice struct {
	ID        string
	Level     NoticeLevel
	Message   string
	CreatedAt time.Time
}

// NewNotice creates a notice with a fresh ID.
func NewNotice(level NoticeLevel, message string) Notice {
	return Notice{
		ID:        uuid.NewString(),
		Level:     level,
		Message:   message,
		CreatedAt: time.Now(),
	}
}

// Expired reports whether the notice should be dismissed at now.
func (n Notice) Expired(now time.Time) bool {
	return now.Sub(n.CreatedAt) >= NoticeTTL
}
