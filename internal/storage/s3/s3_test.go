package s3

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamsyg/artisian-dashboard/internal/storage"
)

type recordedRequest struct {
	method      string
	path        string
	contentType string
	ifNoneMatch string
	body        string
}

type fakeS3 struct {
	mu       sync.Mutex
	requests []recordedRequest
	status   int
	body     string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{
		method:      r.Method,
		path:        r.URL.Path,
		contentType: r.Header.Get("Content-Type"),
		ifNoneMatch: r.Header.Get("If-None-Match"),
		body:        string(body),
	})
	status, respBody := f.status, f.body
	f.mu.Unlock()

	if status == 0 {
		status = http.StatusOK
		if r.Method == http.MethodDelete {
			status = http.StatusNoContent
		}
	}
	if respBody != "" {
		w.Header().Set("Content-Type", "application/xml")
	}
	w.WriteHeader(status)
	_, _ = io.WriteString(w, respBody)
}

func (f *fakeS3) last() recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func newTestStore(t *testing.T, fake *fakeS3) (*Store, string) {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	store, err := New(context.Background(), Config{
		Region:          "us-east-1",
		Endpoint:        srv.URL,
		AccessKeyID:     "minio",
		SecretAccessKey: "minio123",
		UsePathStyle:    true,
	})
	require.NoError(t, err)
	return store, srv.URL
}

func TestBucket_Upload(t *testing.T) {
	fake := &fakeS3{}
	store, base := newTestStore(t, fake)
	bucket := store.Bucket(storage.BucketProductPhotos)

	res, err := bucket.Upload(context.Background(), &storage.UploadInput{
		Key:         "products/p1-ad-1700000000000-abcdefgh.png",
		ContentType: "image/png",
		Data:        bytes.NewReader([]byte("png-bytes")),
		Upsert:      true,
	})
	require.NoError(t, err)
	assert.Equal(t, base+"/product-photos/products/p1-ad-1700000000000-abcdefgh.png", res.URL)

	req := fake.last()
	assert.Equal(t, http.MethodPut, req.method)
	assert.Equal(t, "/product-photos/products/p1-ad-1700000000000-abcdefgh.png", req.path)
	assert.Equal(t, "image/png", req.contentType)
	assert.Empty(t, req.ifNoneMatch)
	assert.Contains(t, req.body, "png-bytes")
}

func TestBucket_UploadWithoutUpsert(t *testing.T) {
	fake := &fakeS3{
		status: http.StatusPreconditionFailed,
		body:   `<?xml version="1.0" encoding="UTF-8"?><Error><Code>PreconditionFailed</Code><Message>At least one of the pre-conditions you specified did not hold</Message></Error>`,
	}
	store, _ := newTestStore(t, fake)
	bucket := store.Bucket(storage.BucketProfilePictures)

	_, err := bucket.Upload(context.Background(), &storage.UploadInput{
		Key:         "users/u1/1-me.png",
		ContentType: "image/png",
		Data:        bytes.NewReader([]byte("x")),
	})
	assert.ErrorIs(t, err, storage.ErrObjectExists)
	assert.Equal(t, "*", fake.last().ifNoneMatch)
}

func TestBucket_Delete(t *testing.T) {
	fake := &fakeS3{}
	store, _ := newTestStore(t, fake)

	require.NoError(t, store.Bucket("audio-records").Delete(context.Background(), "u1/1-a.webm"))
	req := fake.last()
	assert.Equal(t, http.MethodDelete, req.method)
	assert.Equal(t, "/audio-records/u1/1-a.webm", req.path)
}

func TestPublicURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"public base wins", Config{Region: "eu-west-1", Endpoint: "http://minio:9000", PublicBaseURL: "https://cdn.example.com/"}, "https://cdn.example.com/product-photos/a%20b.png"},
		{"endpoint", Config{Region: "eu-west-1", Endpoint: "http://minio:9000"}, "http://minio:9000/product-photos/a%20b.png"},
		{"aws virtual host", Config{Region: "eu-west-1"}, "https://product-photos.s3.eu-west-1.amazonaws.com/a%20b.png"},
		{"aws path style", Config{Region: "eu-west-1", UsePathStyle: true}, "https://s3.eu-west-1.amazonaws.com/product-photos/a%20b.png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Store{cfg: tt.cfg, baseURL: publicBase(tt.cfg)}
			assert.Equal(t, tt.want, s.Bucket(storage.BucketProductPhotos).PublicURL("a b.png"))
		})
	}
}
