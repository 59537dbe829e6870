package attachment

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/nhle/lnemail-client/internal/model"
)

// maxConflicts bounds the "name (n).ext" search.
const maxConflicts = 1000

// Save decodes a and writes it into dir under its own filename, picking
// "name (1).ext", "name (2).ext", ... when the name is taken. It returns
// the written path.
func Save(dir string, a model.Attachment, index int) (string, error) {
	data, err := DecodeForDownload(a)
	if err != nil {
		return "", err
	}
	return WriteUnique(dir, DisplayName(a, index), data)
}

// WriteUnique writes data to dir/name without overwriting existing files.
func WriteUnique(dir, name string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating directory %s: %w", dir, err)
	}

	name = sanitizeName(name)
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	for n := 0; n < maxConflicts; n++ {
		candidate := name
		if n > 0 {
			candidate = fmt.Sprintf("%s (%d)%s", stem, n, ext)
		}
		path := filepath.Join(dir, candidate)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("creating %s: %w", path, err)
		}

		if _, err := f.Write(data); err != nil {
			f.Close()
			return "", fmt.Errorf("writing %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("closing %s: %w", path, err)
		}
		return path, nil
	}

	return "", fmt.Errorf("no free filename for %s in %s", name, dir)
}

// sanitizeName keeps only the final path element so a hostile filename
// cannot escape dir.
func sanitizeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == ".." || name == "" {
		return "attachment"
	}
	return name
}
