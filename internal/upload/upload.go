// Package upload validates and stores the photos attached to status submissions.
package upload

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/minhchien137/MachineStatusUpdate/config"
)

var (
	// ErrUnsupportedExtension is returned for files outside the allowed extensions.
	ErrUnsupportedExtension = errors.New("unsupported image extension")
	// ErrTooLarge is returned for files above the configured size limit.
	ErrTooLarge = errors.New("image exceeds size limit")
)

// ImageStore writes images below a web root and returns their public reference.
type ImageStore struct {
	rootDir  string
	subDir   string
	maxBytes int64
	allowed  []string
	now      func() time.Time
}

// NewImageStore creates an ImageStore from the uploads configuration.
func NewImageStore(cfg config.UploadsConfig) *ImageStore {
	allowed := make([]string, 0, len(cfg.AllowedExtensions))
	for _, ext := range cfg.AllowedExtensions {
		allowed = append(allowed, strings.ToLower(ext))
	}
	return &ImageStore{
		rootDir:  cfg.RootDir,
		subDir:   strings.Trim(filepath.ToSlash(cfg.SubDir), "/"),
		maxBytes: cfg.MaxBytes,
		allowed:  allowed,
		now:      time.Now,
	}
}

// RootDir returns the web root images are stored under.
func (s *ImageStore) RootDir() string {
	return s.rootDir
}

// AllowedExtensions returns the accepted extensions, lower-cased.
func (s *ImageStore) AllowedExtensions() []string {
	return s.allowed
}

// MaxBytes returns the size limit.
func (s *ImageStore) MaxBytes() int64 {
	return s.maxBytes
}

// Validate checks a file name and size against the configured limits.
func (s *ImageStore) Validate(filename string, size int64) error {
	ext := strings.ToLower(filepath.Ext(filename))
	ok := false
	for _, a := range s.allowed {
		if ext == a {
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedExtension, ext)
	}
	if size > s.maxBytes {
		return fmt.Errorf("%w: %d bytes", ErrTooLarge, size)
	}
	return nil
}

// Save validates and stores an uploaded multipart file.
func (s *ImageStore) Save(fh *multipart.FileHeader) (string, error) {
	if err := s.Validate(fh.Filename, fh.Size); err != nil {
		return "", err
	}
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer f.Close()
	return s.write(fh.Filename, f)
}

// SaveReader validates and stores size bytes read from r.
func (s *ImageStore) SaveReader(filename string, size int64, r io.Reader) (string, error) {
	if err := s.Validate(filename, size); err != nil {
		return "", err
	}
	return s.write(filename, r)
}

func (s *ImageStore) write(filename string, r io.Reader) (string, error) {
	dir := filepath.Join(s.rootDir, filepath.FromSlash(s.subDir))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	name := fmt.Sprintf("%s_%s%s", s.now().Format("20060102_150405"), strings.ReplaceAll(uuid.NewString(), "-", ""), ext)

	out, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return "", fmt.Errorf("failed to create image file: %w", err)
	}
	// Copy at most one byte past the limit so oversize input is detected.
	n, err := io.Copy(out, io.LimitReader(r, s.maxBytes+1))
	closeErr := out.Close()
	if err == nil && n > s.maxBytes {
		err = fmt.Errorf("%w: more than %d bytes", ErrTooLarge, s.maxBytes)
	}
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(filepath.Join(dir, name))
		return "", fmt.Errorf("failed to write image file: %w", err)
	}

	return "/" + path.Join(s.subDir, name), nil
}

// Resolve maps a stored image reference to a file path inside the web root.
// It returns an empty string for references outside /uploads/ or escaping
// the web root.
func (s *ImageStore) Resolve(ref string) string {
	if !strings.HasPrefix(ref, "/uploads/") {
		return ""
	}
	root := filepath.Clean(s.rootDir)
	p := filepath.Join(root, filepath.FromSlash(strings.TrimPrefix(ref, "/")))
	rel, err := filepath.Rel(root, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ""
	}
	return p
}

// Remove deletes the file behind a reference returned by Save.
func (s *ImageStore) Remove(ref string) error {
	p := s.Resolve(ref)
	if p == "" {
		return fmt.Errorf("cannot resolve image reference %q", ref)
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove image file: %w", err)
	}
	return nil
}
