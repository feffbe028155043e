// Package preview manages short-lived thumbnail files derived from candidate
// images. Every accepted item owns exactly one handle; releasing it deletes
// the backing file. Handles are never shared or transferred between items.
package preview

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

var ErrStoreClosed = errors.New("preview store is closed")

// Store writes preview thumbnails into a scratch directory and tracks the
// outstanding handles so leaks are observable.
type Store struct {
	dir     string
	maxEdge int

	mu     sync.Mutex
	live   map[string]*Handle
	closed bool
}

// NewStore creates a scratch directory for preview files. When baseDir is
// empty the system temp directory is used. The store owns the directory and
// removes it on Close.
func NewStore(baseDir string, maxEdge int) (*Store, error) {
	dir, err := os.MkdirTemp(baseDir, "face-enroll-previews-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create preview directory: %w", err)
	}

	return &Store{
		dir:     dir,
		maxEdge: maxEdge,
		live:    map[string]*Handle{},
	}, nil
}

// Create derives a preview for the given item and returns its handle. The
// caller becomes responsible for releasing it exactly once. Content that the
// image decoder rejects is stored as-is so the resource contract does not
// depend on decodability of the declared format.
func (s *Store) Create(id, mediaType string, data []byte) (*Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	content := "image/jpeg"
	name := id + ".jpg"

	thumb, err := thumbnail(data, s.maxEdge)
	if err != nil {
		// Declared type is a claim, not a guarantee. Keep the raw bytes.
		thumb = data
		content = mediaType
		name = id + ".raw"
	}

	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, thumb, 0600); err != nil {
		return nil, fmt.Errorf("failed to write preview file: %w", err)
	}

	h := &Handle{
		store:       s,
		id:          id,
		path:        path,
		contentType: content,
	}
	s.live[id] = h

	return h, nil
}

// Live returns the number of handles that have not been released yet.
func (s *Store) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

// Close releases all outstanding handles and removes the scratch directory.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	handles := make([]*Handle, 0, len(s.live))
	for _, h := range s.live {
		handles = append(handles, h)
	}
	s.mu.Unlock()

	for _, h := range handles {
		h.Release()
	}

	return os.RemoveAll(s.dir)
}

func (s *Store) forget(id string) {
	s.mu.Lock()
	delete(s.live, id)
	s.mu.Unlock()
}

// Handle is a revocable reference to one preview file.
type Handle struct {
	store       *Store
	id          string
	path        string
	contentType string
	once        sync.Once
}

// Path returns the location of the preview file. Invalid after Release.
func (h *Handle) Path() string {
	return h.path
}

// ContentType reports the media type of the preview file, image/jpeg for
// generated thumbnails or the source's declared type for raw fallbacks.
func (h *Handle) ContentType() string {
	return h.contentType
}

// Release deletes the preview file. Safe to call more than once; only the
// first call has an effect.
func (h *Handle) Release() {
	h.once.Do(func() {
		h.store.forget(h.id)
		// Best-effort; directory removal on Close catches leftovers.
		_ = os.Remove(h.path)
	})
}
