package browser

import (
	"sort"
	"sync"
)

// ScreenshotStore keeps captured screenshots in memory, keyed by the name
// given at capture time. Capturing under an existing name replaces the
// previous image.
type ScreenshotStore struct {
	mu     sync.RWMutex
	images map[string][]byte
}

// NewScreenshotStore creates an empty store.
func NewScreenshotStore() *ScreenshotStore {
	return &ScreenshotStore{images: make(map[string][]byte)}
}

// Put stores a PNG image under name.
func (s *ScreenshotStore) Put(name string, png []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images[name] = png
}

// Get returns the image stored under name.
func (s *ScreenshotStore) Get(name string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	png, ok := s.images[name]
	return png, ok
}

// Names returns the stored screenshot names in sorted order.
func (s *ScreenshotStore) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.images))
	for name := range s.images {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
