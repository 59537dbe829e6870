package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Attachment is a file attached to an email. Content is either raw text or a
// Base64 payload; nothing on the wire says which.
type Attachment struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// HasContent reports whether the attachment carries any payload.
func (a Attachment) HasContent() bool {
	return a.Content != ""
}

// Email is a single message as returned by the LNemail API.
type Email struct {
	// ID is unique within one inbox load.
	ID string `json:"id"`

	// From is the raw sender, taken from "from" or "sender".
	From string `json:"from"`

	Subject string `json:"subject"`

	// Date is the raw date or timestamp, kept as text. Numeric timestamps
	// are formatted without a fractional part.
	Date string `json:"date"`

	// Body is the message text, taken from "body" or "content".
	Body string `json:"body"`

	// Read is nil unless the API sent a JSON boolean.
	Read *bool `json:"read,omitempty"`

	Attachments []Attachment `json:"attachments,omitempty"`
}

// wireEmail mirrors the loosely typed JSON shape used by the API. Text
// fields stay raw so a stray number or object blanks one field instead of
// failing the whole email.
type wireEmail struct {
	ID          json.RawMessage  `json:"id"`
	From        json.RawMessage  `json:"from"`
	Sender      json.RawMessage  `json:"sender"`
	Subject     json.RawMessage  `json:"subject"`
	Date        json.RawMessage  `json:"date"`
	Timestamp   json.RawMessage  `json:"timestamp"`
	Body        json.RawMessage  `json:"body"`
	Content     json.RawMessage  `json:"content"`
	Read        json.RawMessage  `json:"read"`
	Attachments []wireAttachment `json:"attachments"`
}

type wireAttachment struct {
	Filename json.RawMessage `json:"filename"`
	Content  json.RawMessage `json:"content"`
}

// UnmarshalJSON decodes an email, applying the field fallbacks the API
// relies on (from/sender, date/timestamp, body/content).
func (e *Email) UnmarshalJSON(data []byte) error {
	var w wireEmail
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	*e = Email{
		ID:      scalarString(w.ID),
		From:    firstNonEmpty(scalarString(w.From), scalarString(w.Sender)),
		Subject: scalarString(w.Subject),
		Date:    firstNonEmpty(scalarString(w.Date), scalarString(w.Timestamp)),
		Body:    firstNonEmpty(scalarString(w.Body), scalarString(w.Content)),
	}

	switch string(bytes.TrimSpace(w.Read)) {
	case "true":
		v := true
		e.Read = &v
	case "false":
		v := false
		e.Read = &v
	}

	for _, a := range w.Attachments {
		e.Attachments = append(e.Attachments, Attachment{
			Filename: scalarString(a.Filename),
			Content:  scalarString(a.Content),
		})
	}

	return nil
}

// IsUnread reports whether the email is explicitly marked unread.
func (e Email) IsUnread() bool {
	return e.Read != nil && !*e.Read
}

// Timestamp parses Date. The second return is false when Date is empty or
// in a format we do not recognize.
func (e Email) Timestamp() (time.Time, bool) {
	return ParseTime(e.Date)
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"2006-01-02",
}

// ParseTime accepts the date formats seen from the API, including Unix
// timestamps in seconds or milliseconds.
func ParseTime(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}

	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		// Anything past year 2286 in seconds is a millisecond value.
		if n > 1e10 {
			return time.UnixMilli(n), true
		}
		return time.Unix(n, 0), true
	}

	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// scalarString renders a JSON string or number as text. Other kinds
// (null, objects, arrays) yield "".
func scalarString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if f, err := n.Float64(); err == nil && f == float64(int64(f)) {
			return strconv.FormatInt(int64(f), 10)
		}
		return n.String()
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
