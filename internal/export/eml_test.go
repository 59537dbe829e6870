package export

import (
	"bytes"
	"encoding/base64"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/lnemail-client/internal/attachment"
	"github.com/nhle/lnemail-client/internal/model"
)

func sampleEmail() model.Email {
	return model.Email{
		ID:      "42",
		From:    "Bob <bob@example.com>",
		Subject: "Quarterly report",
		Date:    "2026-02-03T10:00:00Z",
		Body:    "See attached.",
		Attachments: []model.Attachment{
			{Filename: "notes.txt", Content: "plain notes"},
			{Filename: "data.bin", Content: base64.StdEncoding.EncodeToString([]byte{1, 2, 3})},
			{Filename: "empty.pdf"},
		},
	}
}

func TestWriteEML(t *testing.T) {
	var buf bytes.Buffer
	skipped, err := WriteEML(&buf, sampleEmail(), "alice@lnemail.net", time.Now())
	require.NoError(t, err)
	require.Len(t, skipped, 1)
	assert.Equal(t, "empty.pdf", skipped[0].Filename)
	assert.ErrorIs(t, skipped[0].Err, attachment.ErrNoContent)

	mr, err := mail.CreateReader(&buf)
	require.NoError(t, err)

	subject, err := mr.Header.Subject()
	require.NoError(t, err)
	assert.Equal(t, "Quarterly report", subject)

	from, err := mr.Header.AddressList("From")
	require.NoError(t, err)
	require.Len(t, from, 1)
	assert.Equal(t, "bob@example.com", from[0].Address)

	date, err := mr.Header.Date()
	require.NoError(t, err)
	assert.Equal(t, 2026, date.Year())

	var body string
	attachments := map[string][]byte{}
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)

		data, err := io.ReadAll(p.Body)
		require.NoError(t, err)

		switch h := p.Header.(type) {
		case *mail.InlineHeader:
			body = string(data)
		case *mail.AttachmentHeader:
			name, err := h.Filename()
			require.NoError(t, err)
			attachments[name] = data
		}
	}

	assert.Equal(t, "See attached.", body)
	assert.Equal(t, []byte("plain notes"), attachments["notes.txt"])
	assert.Equal(t, []byte{1, 2, 3}, attachments["data.bin"])
	assert.NotContains(t, attachments, "empty.pdf")
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "Quarterly report.eml", FileName(sampleEmail()))
	assert.Equal(t, "No Subject.eml", FileName(model.Email{}))
	assert.Equal(t, "a_b.eml", FileName(model.Email{Subject: "a/b"}))
}

func TestSaveEML(t *testing.T) {
	dir := t.TempDir()

	path, _, err := SaveEML(dir, sampleEmail(), "", time.Now())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Quarterly report.eml"), path)

	again, _, err := SaveEML(dir, sampleEmail(), "", time.Now())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Quarterly report (1).eml"), again)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Subject: Quarterly report")
}
