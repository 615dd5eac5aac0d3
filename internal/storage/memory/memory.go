package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/iamsyg/artisian-dashboard/internal/storage"
)

type object struct {
	contentType string
	data        []byte
}

// Store keeps uploaded objects in process memory, grouped by bucket, and
// serves them back over HTTP so that the URLs it hands out resolve.
type Store struct {
	mu      sync.RWMutex
	buckets map[string]map[string]object
	baseURL string
}

// New creates an in-memory store whose public URLs are rooted at baseURL.
func New(baseURL string) *Store {
	return &Store{
		buckets: make(map[string]map[string]object),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Bucket returns a handle on the named bucket, creating it on first use.
func (s *Store) Bucket(name string) *Bucket {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.buckets[name]; !ok {
		s.buckets[name] = make(map[string]object)
	}
	return &Bucket{store: s, name: name}
}

// Get returns the bytes and content type stored under bucket/key.
func (s *Store) Get(bucket, key string) ([]byte, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.buckets[bucket][key]
	if !ok {
		return nil, "", false
	}
	return obj.data, obj.contentType, true
}

// ServeHTTP answers GET /media/{bucket}/*.
func (s *Store) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	data, contentType, ok := s.Get(chi.URLParam(r, "bucket"), chi.URLParam(r, "*"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write(data)
	}
}

// Bucket implements storage.Bucket on top of a Store.
type Bucket struct {
	store *Store
	name  string
}

var _ storage.Bucket = (*Bucket)(nil)

// Upload copies the input bytes into memory.
func (b *Bucket) Upload(ctx context.Context, input *storage.UploadInput) (*storage.UploadResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(input.Data)
	if err != nil {
		return nil, fmt.Errorf("read upload body: %w", err)
	}

	b.store.mu.Lock()
	defer b.store.mu.Unlock()

	objects := b.store.buckets[b.name]
	if _, exists := objects[input.Key]; exists && !input.Upsert {
		return nil, fmt.Errorf("%s/%s: %w", b.name, input.Key, storage.ErrObjectExists)
	}
	objects[input.Key] = object{contentType: input.ContentType, data: bytes.Clone(data)}

	return &storage.UploadResult{Key: input.Key, URL: b.PublicURL(input.Key)}, nil
}

// Delete removes key from the bucket.
func (b *Bucket) Delete(_ context.Context, key string) error {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	delete(b.store.buckets[b.name], key)
	return nil
}

// PublicURL returns {baseURL}/media/{bucket}/{key}.
func (b *Bucket) PublicURL(key string) string {
	return fmt.Sprintf("%s/media/%s/%s", b.store.baseURL, b.name, key)
}
