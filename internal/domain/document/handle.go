package document

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// Handle identifies one source document. Immutable once created.
type Handle struct {
	// ID is the slash-separated path relative to the corpus root.
	ID      string
	Path    string
	Size    int64
	ModTime time.Time
}

// NewHandle creates a Handle after validating the identifier.
func NewHandle(id, path string, size int64, modTime time.Time) (Handle, error) {
	if strings.TrimSpace(id) == "" {
		return Handle{}, errors.New("document id is required")
	}
	if path == "" {
		return Handle{}, errors.New("document path is required")
	}
	if size < 0 {
		return Handle{}, errors.New("document size must be non-negative")
	}
	return Handle{ID: id, Path: path, Size: size, ModTime: modTime.UTC()}, nil
}

// Marker returns the modification marker used in corpus fingerprints.
func (h Handle) Marker() string {
	return h.ID + "|" + strconv.FormatInt(h.Size, 10) + "|" + strconv.FormatInt(h.ModTime.UnixNano(), 10)
}
