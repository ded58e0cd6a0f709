package media

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Stash writes incoming multipart files to a temporary directory until they are relayed.
type Stash struct {
	Dir string
}

// Save copies r into a new file named after a random id plus the extension of filename.
func (s Stash) Save(r io.Reader, filename string) (string, error) {
	dir := s.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create stash dir: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	path := filepath.Join(dir, uuid.NewString()+ext)

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create stash file: %w", err)
	}
	if _, err := io.Copy(file, r); err != nil {
		file.Close()
		os.Remove(path)
		return "", fmt.Errorf("write stash file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close stash file: %w", err)
	}
	return path, nil
}

// Cleanup removes stashed files, ignoring ones that are already gone.
func (s Stash) Cleanup(paths ...string) error {
	var errs []error
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
