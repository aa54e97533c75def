package receipt

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// ErrPreviewReleased is returned when a preview handle is unknown or was
// already released.
var ErrPreviewReleased = errors.New("preview already released")

// thumbSize bounds the longest edge of an image preview.
const thumbSize = 480

// Preview describes what to show for an attached receipt. Image receipts
// carry a Handle to a thumbnail held by the PreviewStore; anything else is
// shown as a generic placeholder and holds no resource.
type Preview struct {
	Handle      string `json:"handle,omitempty"`
	Placeholder bool   `json:"placeholder"`
}

// HasResource reports whether the preview must be released.
func (p Preview) HasResource() bool {
	return p.Handle != ""
}

// PreviewStats counts preview resources over the life of a store.
type PreviewStats struct {
	Created  int
	Released int
	Live     int
}

// PreviewStore holds rendered previews until they are released.
type PreviewStore struct {
	mu       sync.Mutex
	previews map[string][]byte
	created  int
	released int
}

// NewPreviewStore returns an empty store.
func NewPreviewStore() *PreviewStore {
	return &PreviewStore{previews: make(map[string][]byte)}
}

// Create renders a preview for f. Images are decoded and scaled to a JPEG
// thumbnail; images the decoder does not understand are kept as-is.
func (s *PreviewStore) Create(f File) (Preview, error) {
	if !f.IsImage() {
		return Preview{Placeholder: true}, nil
	}

	data := f.Data
	if img, err := imaging.Decode(bytes.NewReader(f.Data), imaging.AutoOrientation(true)); err == nil {
		thumb := imaging.Fit(img, thumbSize, thumbSize, imaging.Lanczos)
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(80)); err != nil {
			return Preview{}, fmt.Errorf("encode preview: %w", err)
		}
		data = buf.Bytes()
	}

	handle := uuid.NewString()
	s.mu.Lock()
	s.previews[handle] = data
	s.created++
	s.mu.Unlock()

	return Preview{Handle: handle}, nil
}

// Get returns the rendered preview bytes for handle.
func (s *PreviewStore) Get(handle string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.previews[handle]
	return data, ok
}

// Release frees the preview behind handle. Releasing twice is an error.
func (s *PreviewStore) Release(handle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.previews[handle]; !ok {
		return ErrPreviewReleased
	}
	delete(s.previews, handle)
	s.released++
	return nil
}

// Stats reports how many previews were created and released.
func (s *PreviewStore) Stats() PreviewStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return PreviewStats{Created: s.created, Released: s.released, Live: len(s.previews)}
}
