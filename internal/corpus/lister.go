// Package corpus enumerates the documents of a corpus directory in a stable order.
package corpus

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kailas-cloud/ccdarank/internal/domain/document"
)

// DefaultExtension is the document file extension picked up by List.
const DefaultExtension = ".xml"

// Lister walks a corpus root.
type Lister struct {
	ext         string
	excludeDirs map[string]struct{}
}

// NewLister creates a Lister for files with the given extension (case-insensitive).
func NewLister(ext string) *Lister {
	if ext == "" {
		ext = DefaultExtension
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return &Lister{ext: strings.ToLower(ext), excludeDirs: map[string]struct{}{}}
}

// WithExcludeDirs skips directories with these base names during the walk.
func (l *Lister) WithExcludeDirs(names ...string) *Lister {
	for _, n := range names {
		if n != "" {
			l.excludeDirs[strings.ToLower(n)] = struct{}{}
		}
	}
	return l
}

// List returns one handle per matching regular file under root, sorted by id.
// Hidden files and directories are skipped.
func (l *Lister) List(ctx context.Context, root string) ([]document.Handle, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat corpus %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("corpus %s is not a directory", root)
	}

	var handles []document.Handle
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path == root {
				return nil
			}
			if strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			if _, skip := l.excludeDirs[strings.ToLower(name)]; skip {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || strings.HasPrefix(name, ".") {
			return nil
		}
		if strings.ToLower(filepath.Ext(name)) != l.ext {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("relative path %s: %w", path, err)
		}
		h, err := document.NewHandle(filepath.ToSlash(rel), path, fi.Size(), fi.ModTime())
		if err != nil {
			return fmt.Errorf("handle %s: %w", path, err)
		}
		handles = append(handles, h)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk corpus %s: %w", root, err)
	}

	sort.Slice(handles, func(i, j int) bool { return handles[i].ID < handles[j].ID })
	return handles, nil
}

// Fingerprint identifies a corpus version: any added, removed, resized or modified document changes it.
func Fingerprint(handles []document.Handle) string {
	markers := make([]string, len(handles))
	for i, h := range handles {
		markers[i] = h.Marker()
	}
	sort.Strings(markers)
	sum := sha256.Sum256([]byte(strings.Join(markers, "\n")))
	return hex.EncodeToString(sum[:])
}

// Batches splits handles into consecutive slices of at most size elements.
func Batches(handles []document.Handle, size int) [][]document.Handle {
	if size <= 0 {
		size = 1
	}
	out := make([][]document.Handle, 0, (len(handles)+size-1)/size)
	for start := 0; start < len(handles); start += size {
		end := start + size
		if end > len(handles) {
			end = len(handles)
		}
		out = append(out, handles[start:end])
	}
	return out
}
