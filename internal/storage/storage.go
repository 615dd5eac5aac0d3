package storage

import (
	"context"
	"errors"
	"io"
)

// Bucket names used by the marketplace.
const (
	BucketProductPhotos   = "product-photos"
	BucketProfilePictures = "profile-pictures"
	BucketAudioRecords    = "audio-records"
)

var (
	// ErrObjectExists is returned by Upload when Upsert is false and the key
	// is already taken.
	ErrObjectExists = errors.New("object already exists")

	// ErrObjectNotFound is returned by drivers that can tell a missing key
	// apart from other failures.
	ErrObjectNotFound = errors.New("object not found")
)

// Bucket is a single object storage bucket with public read access.
type Bucket interface {
	// Upload stores a file and returns the result with key and URL.
	Upload(ctx context.Context, input *UploadInput) (*UploadResult, error)

	// Delete removes a file by its key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// PublicURL returns the durable public URL of key.
	PublicURL(key string) string
}

// UploadInput holds the parameters for uploading a file.
type UploadInput struct {
	Key         string
	ContentType string
	Size        int64
	Data        io.Reader
	Upsert      bool
}

// UploadResult holds the result of a successful upload.
type UploadResult struct {
	Key string
	URL string
}
