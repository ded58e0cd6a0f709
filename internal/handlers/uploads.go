package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/vidtube/backend/internal/apierr"
	"github.com/vidtube/backend/internal/logging"
)

const multipartMemory = 8 << 20

// Uploads parses multipart requests and stashes their files on disk.
type Uploads struct {
	Stash    FileStash
	MaxBytes int64
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

func (u Uploads) parse(w http.ResponseWriter, r *http.Request) error {
	if u.MaxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, u.MaxBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apierr.Validation("upload exceeds the maximum allowed size")
		}
		return apierr.Validation("invalid multipart form")
	}
	return nil
}

// release drops the temporary files net/http created while parsing the form.
func (u Uploads) release(r *http.Request) {
	if r.MultipartForm != nil {
		_ = r.MultipartForm.RemoveAll()
	}
}

// stash saves the file in field and returns its local path, or "" when the field is absent.
func (u Uploads) stash(r *http.Request, field string) (string, error) {
	if u.Stash == nil {
		return "", apierr.Internal("upload storage unavailable", nil)
	}
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", apierr.Validation("invalid " + field + " file")
	}
	defer file.Close()

	path, err := u.Stash.Save(file, header.Filename)
	if err != nil {
		return "", apierr.Internal("failed to store upload", err)
	}
	return path, nil
}

func (u Uploads) cleanup(ctx context.Context, paths ...string) {
	if u.Stash == nil {
		return
	}
	if err := u.Stash.Cleanup(paths...); err != nil {
		logging.FromContext(ctx).Warn("cleanup stashed uploads", "error", err)
	}
}
