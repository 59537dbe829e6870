// Package attachment decides whether attachment content is plain text or
// Base64, and decodes it for download, preview and saving.
package attachment

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF for DecodeConfig
	_ "image/jpeg" // register JPEG for DecodeConfig
	_ "image/png"  // register PNG for DecodeConfig
	"path"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/nhle/lnemail-client/internal/model"
)

var (
	// ErrNoContent is returned for attachments without a payload.
	ErrNoContent = errors.New("no content available")

	// ErrPreviewUnavailable is returned for file types that cannot be
	// previewed.
	ErrPreviewUnavailable = errors.New("preview not available for this file type")
)

// DecodeError reports content that should have been Base64 but was not.
type DecodeError struct {
	Filename string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %s: %v", e.Filename, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

var (
	textExtensions = map[string]bool{
		"txt": true, "asc": true, "sig": true, "gpg": true, "pgp": true,
		"csv": true, "json": true, "xml": true, "log": true,
	}
	imageExtensions = map[string]bool{
		"jpg": true, "jpeg": true, "png": true, "gif": true,
	}
)

// Extension returns the lowercased text after the last dot, or "".
func Extension(filename string) string {
	i := strings.LastIndex(filename, ".")
	if i < 0 {
		return ""
	}
	return strings.ToLower(filename[i+1:])
}

// IsTextFile reports whether filename has a known text extension.
func IsTextFile(filename string) bool { return textExtensions[Extension(filename)] }

// IsImageFile reports whether filename has a previewable image extension.
func IsImageFile(filename string) bool { return imageExtensions[Extension(filename)] }

// IsValidBase64 reports whether s, after trimming, is canonical standard
// Base64: decoding and re-encoding must reproduce it exactly.
func IsValidBase64(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return false
	}
	return base64.StdEncoding.EncodeToString(decoded) == s
}

// Encoding is the result of classifying attachment content.
type Encoding int

const (
	// Text content is not valid Base64 and is used verbatim.
	Text Encoding = iota
	// Base64 content is valid Base64 that is unlikely to be prose.
	Base64
	// Ambiguous content is valid Base64 made only of alphanumerics whose
	// decoded bytes are not printable text, so it could be either.
	Ambiguous
)

func (e Encoding) String() string {
	switch e {
	case Base64:
		return "base64"
	case Ambiguous:
		return "ambiguous"
	default:
		return "text"
	}
}

// Classify decides how content is encoded.
func Classify(content string) Encoding {
	if !IsValidBase64(content) {
		return Text
	}
	trimmed := strings.TrimSpace(content)
	if !isAlphanumeric(trimmed) {
		return Base64
	}
	decoded, _ := base64.StdEncoding.DecodeString(trimmed)
	if isPrintableText(decoded) {
		return Base64
	}
	return Ambiguous
}

// treatAsBase64 applies the compatibility rule: ambiguous content is
// decoded.
func treatAsBase64(content string) bool {
	return Classify(content) != Text
}

func isAlphanumeric(s string) bool {
	for _, r := range s {
		if !(r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

func isPrintableText(b []byte) bool {
	if !utf8.Valid(b) {
		return false
	}
	for _, r := range string(b) {
		if !unicode.IsPrint(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

// hasContent treats whitespace-only content as empty.
func hasContent(a model.Attachment) bool {
	return strings.TrimSpace(a.Content) != ""
}

// DecodeForDownload returns the bytes to write for a. Text files whose
// content is not Base64 are written verbatim; everything else is decoded.
func DecodeForDownload(a model.Attachment) ([]byte, error) {
	if !hasContent(a) {
		return nil, ErrNoContent
	}
	if IsTextFile(a.Filename) && !treatAsBase64(a.Content) {
		return []byte(a.Content), nil
	}
	data, err := decodeLenient(a.Content)
	if err != nil {
		return nil, &DecodeError{Filename: a.Filename, Err: err}
	}
	return data, nil
}

// decodeLenient decodes Base64 ignoring whitespace and missing padding.
func decodeLenient(s string) ([]byte, error) {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	cleaned = strings.TrimRight(cleaned, "=")
	return base64.RawStdEncoding.DecodeString(cleaned)
}

// PreviewKind says how a preview should be shown.
type PreviewKind int

const (
	PreviewText PreviewKind = iota
	PreviewImage
)

// PreviewResult is the decoded content of a previewable attachment.
type PreviewResult struct {
	Kind     PreviewKind
	Filename string
	Text     string
	Data     []byte
	MIMEType string
	Width    int
	Height   int
}

// Preview decodes a for display. Images are always treated as Base64;
// text files are decoded only when their content is Base64.
func Preview(a model.Attachment) (*PreviewResult, error) {
	if !hasContent(a) {
		return nil, ErrNoContent
	}

	switch {
	case IsImageFile(a.Filename):
		data, err := decodeLenient(a.Content)
		if err != nil {
			return nil, &DecodeError{Filename: a.Filename, Err: err}
		}
		res := &PreviewResult{
			Kind:     PreviewImage,
			Filename: a.Filename,
			Data:     data,
			MIMEType: imageMIMEType(Extension(a.Filename)),
		}
		if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
			res.Width, res.Height = cfg.Width, cfg.Height
		}
		return res, nil

	case IsTextFile(a.Filename):
		text := a.Content
		if treatAsBase64(a.Content) {
			decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(a.Content))
			if err != nil {
				return nil, &DecodeError{Filename: a.Filename, Err: err}
			}
			text = string(decoded)
		}
		return &PreviewResult{Kind: PreviewText, Filename: a.Filename, Text: text}, nil
	}

	return nil, ErrPreviewUnavailable
}

func imageMIMEType(ext string) string {
	if ext == "jpg" {
		ext = "jpeg"
	}
	return "image/" + ext
}

// DisplayName returns the filename, or "Attachment N" (1-based) when the
// server sent none.
func DisplayName(a model.Attachment, index int) string {
	if a.Filename != "" {
		return path.Base(a.Filename)
	}
	return fmt.Sprintf("Attachment %d", index+1)
}

// SizeKB approximates the payload size from the content length, rounded to
// the nearest kilobyte.
func SizeKB(a model.Attachment) int {
	return (len(a.Content) + 512) / 1024
}
