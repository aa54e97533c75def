package receipt

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// DiskStore saves uploaded receipts under a directory.
type DiskStore struct {
	dir string
}

// NewDiskStore creates dir if needed and returns a store rooted there.
func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create receipt dir: %w", err)
	}
	return &DiskStore{dir: dir}, nil
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9.\-_]+`)

func sanitize(name string) string {
	return unsafeChars.ReplaceAllString(name, "_")
}

// UniqueName prefixes the sanitized file name with the date and a uuid so
// receipts with the same team or participant name never collide.
func UniqueName(original string, now time.Time) string {
	return fmt.Sprintf("%s-%s-%s", now.Format("20060102"), uuid.NewString(), sanitize(original))
}

// Save writes data and returns the path it was stored at.
func (s *DiskStore) Save(name string, data []byte) (string, error) {
	path := filepath.Join(s.dir, UniqueName(name, time.Now()))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write receipt: %w", err)
	}
	return path, nil
}

// Remove deletes a stored receipt.
func (s *DiskStore) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove receipt: %w", err)
	}
	return nil
}
