package upload

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrTooLarge indicates the upload exceeded the configured limit.
	ErrTooLarge = errors.New("file too large")

	// ErrInvalidKey indicates a key that does not name a stored file.
	ErrInvalidKey = errors.New("invalid certificate key")
)

// Store keeps uploaded TLS certificate and key files on disk.
type Store struct {
	dir      string
	maxBytes int64
}

// NewStore prepares dir for uploads.
func NewStore(dir string, maxBytes int64) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve upload dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o700); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{dir: abs, maxBytes: maxBytes}, nil
}

// Dir returns the absolute upload directory.
func (s *Store) Dir() string { return s.dir }

// Save writes r under a random name that keeps the original extension and
// returns that name as the key.
func (s *Store) Save(filename string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if len(ext) > 16 || strings.ContainsAny(ext, `/\`) {
		ext = ""
	}
	key := uuid.NewString() + ext

	f, err := os.OpenFile(filepath.Join(s.dir, key), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", key, err)
	}

	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}
	n, err := io.Copy(f, src)
	closeErr := f.Close()
	switch {
	case err != nil:
		err = fmt.Errorf("write %s: %w", key, err)
	case closeErr != nil:
		err = fmt.Errorf("close %s: %w", key, closeErr)
	case s.maxBytes > 0 && n > s.maxBytes:
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(filepath.Join(s.dir, key))
		return "", err
	}
	return key, nil
}

// Resolve maps a key to the stored file's absolute path.
func (s *Store) Resolve(key string) (string, error) {
	if key == "" || key != filepath.Base(key) || strings.Contains(key, "..") || strings.ContainsAny(key, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	path := filepath.Join(s.dir, key)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return path, nil
}
