// Package qrstore keeps rotating QR code images so they can be displayed.
package qrstore

import (
	"net/http"
	"path"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-bankid-auth/authflow"
	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
)

// MemoryStore holds images in memory under "<prefix><id>" URIs. Entries also expire
// after ttl so a caller that never releases cannot grow the store without bound.
type MemoryStore struct {
	prefix string
	images *cache.Cache
	live   atomic.Int64
}

var _ authflow.CodeStore = (*MemoryStore)(nil)

func NewMemoryStore(prefix string, ttl time.Duration) *MemoryStore {
	s := &MemoryStore{
		prefix: prefix,
		images: cache.New(ttl, ttl),
	}
	s.images.OnEvicted(func(string, interface{}) {
		s.live.Add(-1)
	})
	return s
}

func (s *MemoryStore) Create(png []byte) (authflow.Code, error) {
	if len(png) == 0 {
		return authflow.Code{}, errors.New("[MemoryStore Create] empty image")
	}
	id := uuid.NewString()
	image := make([]byte, len(png))
	copy(image, png)

	s.images.Set(id, image, cache.DefaultExpiration)
	s.live.Add(1)
	return authflow.Code{ID: id, URI: s.prefix + id}, nil
}

func (s *MemoryStore) Release(code authflow.Code) {
	s.images.Delete(code.ID)
}

// Lookup returns the image behind a code ID
func (s *MemoryStore) Lookup(id string) ([]byte, bool) {
	value, ok := s.images.Get(id)
	if !ok {
		return nil, false
	}
	return value.([]byte), true
}

// Live is the number of images currently held
func (s *MemoryStore) Live() int {
	return int(s.live.Load())
}

// ServeHTTP serves the image whose ID is the last path segment.
func (s *MemoryStore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	image, ok := s.Lookup(path.Base(r.URL.Path))
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(image)
}
