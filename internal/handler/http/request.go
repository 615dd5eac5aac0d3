package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/iamsyg/artisian-dashboard/internal/service"
	apperrors "github.com/iamsyg/artisian-dashboard/pkg/errors"
	"github.com/iamsyg/artisian-dashboard/pkg/validator"
)

const (
	maxJSONBody     = 1 << 20
	multipartMemory = 8 << 20
	// formOverhead is allowed on top of the file limit for the other fields.
	formOverhead = 1 << 20
)

// decodeJSON reads a bounded JSON body into dst and validates it. An empty
// body leaves dst untouched when allowEmpty is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	err := json.NewDecoder(r.Body).Decode(dst)
	switch {
	case err == nil:
	case allowEmpty && errors.Is(err, io.EOF):
	default:
		return apperrors.Validation("invalid request body: " + err.Error())
	}
	return validator.Validate(dst)
}

func isMultipart(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "multipart/form-data"
}

// parseMultipart bounds the body to maxFile plus the form fields and parses it.
func parseMultipart(w http.ResponseWriter, r *http.Request, maxFile int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxFile+formOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperrors.Validation(fmt.Sprintf("upload exceeds maximum size of %d bytes", maxFile))
		}
		return apperrors.Validation("failed to parse multipart form: " + err.Error())
	}
	return nil
}

// formUpload returns the file in field, or nil when none was sent. The
// returned closer must be called once the upload has been consumed.
func formUpload(r *http.Request, field string) (*service.Upload, func(), error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, func() {}, apperrors.Validation(fmt.Sprintf("could not read %s: %s", field, err.Error()))
	}
	return &service.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        file,
	}, func() { _ = file.Close() }, nil
}
