package service

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// UploadURLPrefix is where the router serves the upload directory.
const UploadURLPrefix = "/uploads/"

var (
	ErrFileTooLarge = errors.New("uploaded file is too large")
	ErrUnsafePath   = errors.New("upload path escapes the upload directory")
)

var windowsDeviceNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true,
	"LPT1": true, "LPT2": true, "LPT3": true,
}

// SanitizeFilename turns a client-supplied name into a flat, safe file
// name: separators become underscores, only ASCII letters, digits, '.',
// '_' and '-' survive, and leading/trailing dots and underscores are
// trimmed. "../../etc/passwd" becomes "etc_passwd". The result may be
// empty.
func SanitizeFilename(name string) string {
	name = strings.NewReplacer("/", " ", "\\", " ").Replace(name)
	name = strings.Join(strings.Fields(name), "_")

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
		}
	}

	out := strings.Trim(b.String(), "._")
	if out != "" && windowsDeviceNames[strings.ToUpper(strings.SplitN(out, ".", 2)[0])] {
		out = "_" + out
	}
	return out
}

// Uploads stores image files in one flat directory keyed by sanitized
// name. A second upload with the same name replaces the first.
type Uploads struct {
	dir      string
	maxBytes int64
}

func NewUploads(dir string, maxBytes int64) (*Uploads, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &Uploads{dir: abs, maxBytes: maxBytes}, nil
}

// Dir is the absolute upload directory.
func (u *Uploads) Dir() string { return u.dir }

// Key returns the storage name for a client file name.
func (u *Uploads) Key(original string) string {
	if name := SanitizeFilename(original); name != "" {
		return name
	}
	ext := SanitizeFilename(filepath.Ext(original))
	if ext != "" {
		ext = "." + ext
	}
	return uuid.NewString() + ext
}

// Check rejects files that are over the size limit without touching disk.
func (u *Uploads) Check(fh *multipart.FileHeader) error {
	if u.maxBytes > 0 && fh.Size > u.maxBytes {
		return ErrFileTooLarge
	}
	return nil
}

// Save writes fh under the upload directory and returns its public URL.
func (u *Uploads) Save(fh *multipart.FileHeader) (string, error) {
	if err := u.Check(fh); err != nil {
		return "", err
	}

	key := u.Key(fh.Filename)
	dst, err := u.resolve(key)
	if err != nil {
		return "", err
	}

	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	tmp, err := os.CreateTemp(u.dir, ".upload-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", err
	}

	return UploadURLPrefix + key, nil
}

func (u *Uploads) resolve(key string) (string, error) {
	dst := filepath.Join(u.dir, key)
	rel, err := filepath.Rel(u.dir, dst)
	if err != nil || rel != key || strings.HasPrefix(rel, "..") {
		return "", ErrUnsafePath
	}
	return dst, nil
}
