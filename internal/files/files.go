// Package files stores uploaded attachments on local disk and addresses
// them by public URL. The rest of the system treats an attachment as an
// opaque URL string.
package files

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// URLPrefix is the public path under which stored files are served.
const URLPrefix = "/uploads"

// MaxUploadSize caps a single uploaded file at 10MB.
const MaxUploadSize = 10 << 20

// Storage saves uploads under a directory and issues URLs for them.
type Storage struct {
	dir string
}

// NewStorage creates the upload directory if needed.
func NewStorage(dir string) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Storage{dir: dir}, nil
}

// Dir returns the directory files are stored in.
func (s *Storage) Dir() string {
	return s.dir
}

// Save writes the stream to a uniquely named file, keeping the original
// extension, and returns its public URL.
func (s *Storage) Save(originalName string, r io.Reader) (string, error) {
	name := uuid.NewString() + filepath.Ext(originalName)

	f, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("write upload file: %w", err)
	}

	return URLPrefix + "/" + name, nil
}

// Remove deletes the file a previously issued URL points to. URLs outside
// the storage prefix and already-missing files are not errors.
func (s *Storage) Remove(url string) error {
	name, ok := strings.CutPrefix(url, URLPrefix+"/")
	if !ok || name == "" || strings.Contains(name, "/") || strings.Contains(name, "..") {
		return nil
	}

	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove upload file: %w", err)
	}
	return nil
}
