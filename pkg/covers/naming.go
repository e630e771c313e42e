package covers

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

var unsafeCharsRE = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Filename derives the on-disk name for a book's cover:
// {bookID}_{sanitized original filename}.
func Filename(bookID int, original string) string {
	return fmt.Sprintf("%d_%s", bookID, SanitizeFilename(original))
}

// SanitizeFilename reduces an uploaded filename to a safe basename. Path
// separators and shell-unfriendly characters become underscores; the
// extension is preserved lowercase.
func SanitizeFilename(name string) string {
	// Drop any client-supplied directory components.
	name = filepath.Base(name)
	ext := strings.ToLower(filepath.Ext(name))
	base := strings.TrimSuffix(name, filepath.Ext(name))

	base = unsafeCharsRE.ReplaceAllString(base, "_")
	base = strings.Trim(base, "._")
	if base == "" {
		base = "cover"
	}

	return base + ext
}
