package inbox

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/nhle/lnemail-client/internal/model"
)

const (
	unknownSender = "Unknown Sender"
	noSubject     = "No Subject"
)

// FormatDate renders an email date relative to now: a clock time for
// today, month and day within the year, and the full date otherwise. A
// missing date is treated as now; an unparseable one is returned as is.
func FormatDate(raw string, now time.Time) string {
	var t time.Time
	if strings.TrimSpace(raw) == "" {
		t = now
	} else {
		parsed, ok := model.ParseTime(raw)
		if !ok {
			return raw
		}
		t = parsed.In(now.Location())
	}

	switch {
	case sameDay(t, now):
		return t.Format("3:04 PM")
	case t.Year() == now.Year():
		return t.Format("Jan 2")
	default:
		return t.Format("Jan 2, 2006")
	}
}

// FormatFullDate renders a date for the detail view.
func FormatFullDate(raw string, now time.Time) string {
	if strings.TrimSpace(raw) == "" {
		return now.Format("Mon, Jan 2, 2006 3:04 PM")
	}
	t, ok := model.ParseTime(raw)
	if !ok {
		return raw
	}
	return t.In(now.Location()).Format("Mon, Jan 2, 2006 3:04 PM")
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// SenderName strips an angle-bracketed address from a sender, leaving the
// display name.
func SenderName(from string) string {
	from = strings.TrimSpace(from)
	if from == "" {
		return unknownSender
	}
	if i := strings.Index(from, "<"); i >= 0 {
		name := strings.TrimSpace(from[:i])
		name = strings.Trim(name, `"`)
		if name != "" {
			return name
		}
		addr := strings.TrimSuffix(strings.TrimSpace(from[i+1:]), ">")
		if addr != "" {
			return addr
		}
		return unknownSender
	}
	return from
}

// SenderOrUnknown returns from, or the placeholder when it is empty.
func SenderOrUnknown(from string) string {
	if strings.TrimSpace(from) == "" {
		return unknownSender
	}
	return from
}

// Subject returns subject, or the placeholder when it is empty.
func Subject(subject string) string {
	if strings.TrimSpace(subject) == "" {
		return noSubject
	}
	return subject
}

// ExpiryText describes how long the account remains valid, followed by the
// exact expiry date. Days are rounded up, so anything under a day away
// reads as tomorrow.
func ExpiryText(expiresAt, now time.Time) string {
	date := expiresAt.In(now.Location()).Format("Jan 2, 2006 3:04 PM")

	days := int(math.Ceil(expiresAt.Sub(now).Hours() / 24))
	switch {
	case days > 1:
		return fmt.Sprintf("Expires in %d days (%s)", days, date)
	case days == 1:
		return fmt.Sprintf("Expires tomorrow (%s)", date)
	case days == 0:
		return fmt.Sprintf("Expires today (%s)", date)
	default:
		return fmt.Sprintf("Expired (%s)", date)
	}
}

// Preview returns the first line of body, truncated to width runes.
func Preview(body string, width int) string {
	line := strings.TrimSpace(body)
	if i := strings.IndexAny(line, "\r\n"); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	runes := []rune(line)
	if width > 1 && len(runes) > width {
		return string(runes[:width-1]) + "…"
	}
	return line
}
