package attachment

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/lnemail-client/internal/model"
)

func b64(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }

func TestFileTypes(t *testing.T) {
	assert.True(t, IsTextFile("notes.TXT"))
	assert.True(t, IsTextFile("key.asc"))
	assert.True(t, IsTextFile("archive.tar.log"))
	assert.False(t, IsTextFile("photo.png"))
	assert.False(t, IsTextFile("README"))

	assert.True(t, IsImageFile("a.JPEG"))
	assert.True(t, IsImageFile("a.gif"))
	assert.False(t, IsImageFile("a.bmp"))
}

func TestIsValidBase64(t *testing.T) {
	assert.True(t, IsValidBase64(b64("hello world")))
	assert.True(t, IsValidBase64("  "+b64("hello")+"\n"))
	assert.False(t, IsValidBase64(""))
	assert.False(t, IsValidBase64("   "))
	assert.False(t, IsValidBase64("hello world"))
	assert.False(t, IsValidBase64("aGVsbG8"), "missing padding is not canonical")
}

func TestClassify(t *testing.T) {
	assert.Equal(t, Text, Classify("Hello, world!"))
	assert.Equal(t, Base64, Classify(b64("plain text payload")))
	assert.Equal(t, Base64, Classify(b64("\x00\x01\x02\xff")), "padding makes it clearly Base64")
	assert.Equal(t, Ambiguous, Classify("test"))
	assert.Equal(t, "ambiguous", Ambiguous.String())
}

func TestDecodeForDownload(t *testing.T) {
	data, err := DecodeForDownload(model.Attachment{Filename: "a.txt", Content: "just words here"})
	require.NoError(t, err)
	assert.Equal(t, "just words here", string(data))

	data, err = DecodeForDownload(model.Attachment{Filename: "a.txt", Content: b64("encoded")})
	require.NoError(t, err)
	assert.Equal(t, "encoded", string(data))

	data, err = DecodeForDownload(model.Attachment{Filename: "a.bin", Content: "AAEC\n/w"})
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1, 2, 255}, data, "whitespace and missing padding are tolerated")

	_, err = DecodeForDownload(model.Attachment{Filename: "a.bin", Content: "not base64!"})
	var decErr *DecodeError
	require.True(t, errors.As(err, &decErr))
	assert.Equal(t, "a.bin", decErr.Filename)

	_, err = DecodeForDownload(model.Attachment{Filename: "a.bin", Content: "  "})
	assert.ErrorIs(t, err, ErrNoContent)
}

func pngBase64(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.White)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestPreview(t *testing.T) {
	res, err := Preview(model.Attachment{Filename: "pic.png", Content: pngBase64(t, 3, 2)})
	require.NoError(t, err)
	assert.Equal(t, PreviewImage, res.Kind)
	assert.Equal(t, "image/png", res.MIMEType)
	assert.Equal(t, 3, res.Width)
	assert.Equal(t, 2, res.Height)

	res, err = Preview(model.Attachment{Filename: "photo.jpg", Content: b64("not really a jpeg")})
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", res.MIMEType)
	assert.Zero(t, res.Width)

	res, err = Preview(model.Attachment{Filename: "sig.asc", Content: b64("-----BEGIN PGP-----")})
	require.NoError(t, err)
	assert.Equal(t, PreviewText, res.Kind)
	assert.Equal(t, "-----BEGIN PGP-----", res.Text)

	res, err = Preview(model.Attachment{Filename: "notes.txt", Content: "raw notes"})
	require.NoError(t, err)
	assert.Equal(t, "raw notes", res.Text)

	_, err = Preview(model.Attachment{Filename: "doc.pdf", Content: b64("%PDF")})
	assert.ErrorIs(t, err, ErrPreviewUnavailable)

	_, err = Preview(model.Attachment{Filename: "pic.png"})
	assert.ErrorIs(t, err, ErrNoContent)
}

func TestKindAndDisplay(t *testing.T) {
	assert.Equal(t, KindPDF, KindOf("x.PDF"))
	assert.Equal(t, KindFile, KindOf("x.unknown"))
	assert.NotEmpty(t, KindOf("x").Icon())

	assert.Equal(t, "Attachment 3", DisplayName(model.Attachment{}, 2))
	assert.Equal(t, 0, SizeKB(model.Attachment{Content: "abc"}))
	assert.Equal(t, 2, SizeKB(model.Attachment{Content: string(make([]byte, 1600))}))
}

func TestSaveResolvesConflicts(t *testing.T) {
	dir := t.TempDir()
	a := model.Attachment{Filename: "report.txt", Content: "v1"}

	first, err := Save(dir, a, 0)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "report.txt"), first)

	second, err := Save(dir, a, 0)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "report (1).txt"), second)

	third, err := Save(dir, a, 0)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "report (2).txt"), third)

	data, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, "v1", string(data))
}

func TestSaveStripsDirectories(t *testing.T) {
	dir := t.TempDir()
	path, err := Save(dir, model.Attachment{Filename: "../../etc/passwd.txt", Content: "x"}, 0)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "passwd.txt"), path)
}
