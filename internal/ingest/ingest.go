// Package ingest validates uploaded media and stores it in a bucket.
package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/iamsyg/artisian-dashboard/internal/storage"
	apperrors "github.com/iamsyg/artisian-dashboard/pkg/errors"
)

// Kind selects the accepted content types of an Ingestor.
type Kind int

const (
	Image Kind = iota
	Audio
)

var extensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
	"audio/mpeg": "mp3",
	"audio/wave": "wav",
	"audio/wav":  "wav",
	"audio/ogg":  "ogg",
	"audio/webm": "webm",
	"audio/mp4":  "m4a",
	"video/webm": "webm",
}

func (k Kind) accepts(contentType string) bool {
	switch k {
	case Image:
		return strings.HasPrefix(contentType, "image/") && extensions[contentType] != ""
	case Audio:
		return extensions[contentType] != "" && !strings.HasPrefix(contentType, "image/")
	}
	return false
}

func (k Kind) String() string {
	if k == Audio {
		return "audio"
	}
	return "image"
}

// Object is a file received from a client.
type Object struct {
	// Key is the path inside the bucket. Use KeyFunc when the key depends on
	// the detected extension.
	Key     string
	KeyFunc func(ext string) string
	// DeclaredType is the client-supplied content type. Audio falls back to
	// it when the bytes are not recognisable; images must sniff as images.
	DeclaredType string
	Data         io.Reader
	Upsert       bool
}

// Stored describes an object that was confirmed written.
type Stored struct {
	Key         string
	URL         string
	ContentType string
	Size        int64
}

// Ingestor accepts bytes, stores them and returns their public URL.
type Ingestor struct {
	bucket   storage.Bucket
	kind     Kind
	maxBytes int64
	logger   *slog.Logger
}

// New creates an Ingestor writing kind objects of at most maxBytes to bucket.
func New(bucket storage.Bucket, kind Kind, maxBytes int64, logger *slog.Logger) *Ingestor {
	return &Ingestor{bucket: bucket, kind: kind, maxBytes: maxBytes, logger: logger}
}

// Ingest reads obj fully, checks size and type, and uploads it. Validation
// problems yield ValidationFailed; storage failures yield ImageIngestFailed.
func (i *Ingestor) Ingest(ctx context.Context, obj Object) (*Stored, error) {
	data, err := io.ReadAll(io.LimitReader(obj.Data, i.maxBytes+1))
	if err != nil {
		return nil, apperrors.Validation(fmt.Sprintf("could not read %s upload", i.kind))
	}
	if len(data) == 0 {
		return nil, apperrors.Validation(fmt.Sprintf("%s file is empty", i.kind))
	}
	if int64(len(data)) > i.maxBytes {
		return nil, apperrors.Validation(fmt.Sprintf("%s exceeds maximum size of %d bytes", i.kind, i.maxBytes))
	}

	declared := obj.DeclaredType
	if i.kind == Image {
		declared = ""
	}
	contentType := DetectContentType(data, declared)
	if !i.kind.accepts(contentType) {
		return nil, apperrors.Validation(fmt.Sprintf("%s content type %q is not allowed", i.kind, contentType))
	}

	key := obj.Key
	if obj.KeyFunc != nil {
		key = obj.KeyFunc(extensions[contentType])
	}
	if key == "" {
		return nil, apperrors.Internal(errors.New("ingest: empty object key"))
	}

	res, err := i.bucket.Upload(ctx, &storage.UploadInput{
		Key:         key,
		ContentType: contentType,
		Size:        int64(len(data)),
		Data:        bytes.NewReader(data),
		Upsert:      obj.Upsert,
	})
	if err != nil {
		i.logger.WarnContext(ctx, "object upload failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return nil, apperrors.ImageIngestFailed(err)
	}

	return &Stored{Key: res.Key, URL: res.URL, ContentType: contentType, Size: int64(len(data))}, nil
}

// Remove deletes a stored object, logging instead of failing. It undoes an
// ingest whose row could not be written.
func (i *Ingestor) Remove(ctx context.Context, key string) {
	if err := i.bucket.Delete(context.WithoutCancel(ctx), key); err != nil {
		i.logger.WarnContext(ctx, "failed to clean up stored object",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}

// DetectContentType sniffs data, falling back to the declared type when the
// bytes are not conclusive.
func DetectContentType(data []byte, declared string) string {
	sniffed := normalize(http.DetectContentType(data))
	if sniffed != "application/octet-stream" {
		return sniffed
	}
	if declared = normalize(declared); declared != "" {
		return declared
	}
	return sniffed
}

// Extension returns the file extension used for contentType, without a dot.
func Extension(contentType string) string {
	return extensions[normalize(contentType)]
}

func normalize(contentType string) string {
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if ct == "application/ogg" {
		return "audio/ogg"
	}
	return ct
}
