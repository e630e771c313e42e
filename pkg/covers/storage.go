// Package covers manages cover image files on disk. Database rows are
// deduplicated by content hash; the filesystem is not authoritative, so
// every operation here tolerates files that have already gone missing.
package covers

import (
	"crypto/md5" //nolint:gosec // dedup key, not a security boundary
	"encoding/hex"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
)

// AllowedMimetypes are the cover image types accepted on upload.
var AllowedMimetypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// Storage reads and writes cover files under a single upload directory.
type Storage struct {
	dir string
}

func NewStorage(dir string) *Storage {
	return &Storage{dir: dir}
}

// Init creates the upload directory and verifies it is writable.
func (s *Storage) Init() error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return errors.Wrapf(err, "failed to create upload directory: %s", s.dir)
	}

	testFile := filepath.Join(s.dir, ".write_test")
	f, err := os.Create(testFile)
	if err != nil {
		return errors.Wrapf(err, "upload directory is not writable: %s", s.dir)
	}
	f.Close()

	if err := os.Remove(testFile); err != nil {
		return errors.Wrapf(err, "failed to clean up write test file: %s", testFile)
	}

	return nil
}

// Path returns the absolute path of a stored cover file.
func (s *Storage) Path(filename string) string {
	return filepath.Join(s.dir, filename)
}

// Write stores cover bytes under the given filename.
func (s *Storage) Write(filename string, content []byte) error {
	err := os.WriteFile(s.Path(filename), content, 0644) //nolint:gosec
	return errors.WithStack(err)
}

// Remove deletes a stored cover file. A file that is already gone is not an
// error.
func (s *Storage) Remove(filename string) error {
	err := os.Remove(s.Path(filename))
	if err != nil && !os.IsNotExist(err) {
		return errors.WithStack(err)
	}
	return nil
}

// Sum returns the hex MD5 of the cover bytes, the dedup key for cover rows.
func Sum(content []byte) string {
	sum := md5.Sum(content) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

// DetectMimetype sniffs the mimetype from the file bytes.
func DetectMimetype(content []byte) string {
	return mimetype.Detect(content).String()
}
