// Package export writes emails as RFC 5322 .eml files.
package export

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"regexp"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"

	"github.com/nhle/lnemail-client/internal/attachment"
	"github.com/nhle/lnemail-client/internal/inbox"
	"github.com/nhle/lnemail-client/internal/model"
)

// Skipped lists attachments left out of an export because their content
// could not be decoded.
type Skipped struct {
	Filename string
	Err      error
}

// WriteEML encodes e as a MIME message with a text part and one part per
// decodable attachment. recipient is the mailbox the email was delivered to.
func WriteEML(w io.Writer, e model.Email, recipient string, now time.Time) ([]Skipped, error) {
	var h mail.Header

	date := now
	if t, ok := e.Timestamp(); ok {
		date = t
	}
	h.SetDate(date)
	h.SetSubject(e.Subject)

	if addr, err := mail.ParseAddress(e.From); err == nil {
		h.SetAddressList("From", []*mail.Address{addr})
	} else if e.From != "" {
		h.SetText("From", e.From)
	}
	if recipient != "" {
		h.SetAddressList("To", []*mail.Address{{Address: recipient}})
	}
	if e.ID != "" {
		h.Set("X-LNemail-Id", e.ID)
	}

	mw, err := mail.CreateWriter(w, h)
	if err != nil {
		return nil, fmt.Errorf("creating message writer: %w", err)
	}

	tw, err := mw.CreateInline()
	if err != nil {
		return nil, fmt.Errorf("creating inline part: %w", err)
	}
	var th mail.InlineHeader
	th.Set("Content-Type", "text/plain; charset=utf-8")
	th.Set("Content-Transfer-Encoding", "quoted-printable")
	pw, err := tw.CreatePart(th)
	if err != nil {
		return nil, fmt.Errorf("creating text part: %w", err)
	}
	if _, err := io.WriteString(pw, e.Body); err != nil {
		return nil, fmt.Errorf("writing text part: %w", err)
	}
	if err := pw.Close(); err != nil {
		return nil, fmt.Errorf("closing text part: %w", err)
	}
	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("closing inline part: %w", err)
	}

	var skipped []Skipped
	for i, a := range e.Attachments {
		name := attachment.DisplayName(a, i)
		data, err := attachment.DecodeForDownload(a)
		if err != nil {
			skipped = append(skipped, Skipped{Filename: name, Err: err})
			continue
		}

		var ah mail.AttachmentHeader
		ah.Set("Content-Type", contentType(name))
		ah.Set("Content-Transfer-Encoding", "base64")
		ah.SetFilename(name)

		aw, err := mw.CreateAttachment(ah)
		if err != nil {
			return skipped, fmt.Errorf("creating attachment %s: %w", name, err)
		}
		if _, err := aw.Write(data); err != nil {
			return skipped, fmt.Errorf("writing attachment %s: %w", name, err)
		}
		if err := aw.Close(); err != nil {
			return skipped, fmt.Errorf("closing attachment %s: %w", name, err)
		}
	}

	if err := mw.Close(); err != nil {
		return skipped, fmt.Errorf("closing message: %w", err)
	}
	return skipped, nil
}

func contentType(filename string) string {
	ext := attachment.Extension(filename)
	if ext != "" {
		if t := mime.TypeByExtension("." + ext); t != "" {
			return t
		}
	}
	if attachment.IsTextFile(filename) {
		return "text/plain; charset=utf-8"
	}
	return "application/octet-stream"
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._ -]+`)

// FileName derives a filesystem-friendly .eml name from the subject.
func FileName(e model.Email) string {
	base := strings.TrimSpace(unsafeChars.ReplaceAllString(inbox.Subject(e.Subject), "_"))
	if len(base) > 60 {
		base = strings.TrimSpace(base[:60])
	}
	if base == "" {
		base = "email"
	}
	return base + ".eml"
}

// SaveEML writes e into dir without overwriting existing files and returns
// the path.
func SaveEML(dir string, e model.Email, recipient string, now time.Time) (string, []Skipped, error) {
	var buf bytes.Buffer
	skipped, err := WriteEML(&buf, e, recipient, now)
	if err != nil {
		return "", skipped, err
	}
	path, err := attachment.WriteUnique(dir, FileName(e), buf.Bytes())
	if err != nil {
		return "", skipped, err
	}
	return path, skipped, nil
}
