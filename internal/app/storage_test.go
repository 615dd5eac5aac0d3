package app

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamsyg/artisian-dashboard/internal/config"
	"github.com/iamsyg/artisian-dashboard/internal/storage"
)

func TestNewObjectStore_MemoryServesMedia(t *testing.T) {
	cfg := &config.Config{StorageDriver: config.StorageMemory, HTTPPort: 8080}

	objects, err := newObjectStore(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, objects.media)

	res, err := objects.bucket("product-photos").Upload(context.Background(), &storage.UploadInput{
		Key:         "products/vase.png",
		ContentType: "image/png",
		Data:        bytes.NewReader([]byte("png")),
	})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/media/product-photos/products/vase.png", res.URL)

	r := chi.NewRouter()
	r.Get("/media/{bucket}/*", objects.media.ServeHTTP)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/media/product-photos/products/vase.png", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "png", rec.Body.String())
}

func TestNewObjectStore_S3(t *testing.T) {
	cfg := &config.Config{
		StorageDriver:        config.StorageS3,
		S3Region:             "eu-west-1",
		S3Endpoint:           "http://localhost:9000",
		S3AccessKeyID:        "key",
		S3SecretAccessKey:    "secret",
		S3UsePathStyle:       true,
		StoragePublicBaseURL: "https://cdn.example.com",
	}

	objects, err := newObjectStore(context.Background(), cfg)
	require.NoError(t, err)
	assert.Nil(t, objects.media)
	assert.Equal(t, "https://cdn.example.com/product-photos/products/vase.png",
		objects.bucket("product-photos").PublicURL("products/vase.png"))
}
