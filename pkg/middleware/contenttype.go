package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/iamsyg/artisian-dashboard/pkg/httputil"
)

// ContentType rejects request bodies whose Content-Type is not one of the
// allowed media type prefixes. Requests without a Content-Type pass through.
func ContentType(allowed ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost, http.MethodPut, http.MethodPatch:
			default:
				next.ServeHTTP(w, r)
				return
			}

			ct := r.Header.Get("Content-Type")
			if ct == "" {
				next.ServeHTTP(w, r)
				return
			}
			for _, prefix := range allowed {
				if strings.HasPrefix(ct, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}

			httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.Response{
				Error: &httputil.ErrorResponse{
					Code:    "UNSUPPORTED_MEDIA_TYPE",
					Message: "Content-Type must be one of: " + strings.Join(allowed, ", "),
				},
			})
		})
	}
}

// CacheControl sets a public Cache-Control header on GET responses.
func CacheControl(maxAge int) func(http.Handler) http.Handler {
	value := "public, max-age=" + strconv.Itoa(maxAge)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet {
				w.Header().Set("Cache-Control", value)
			}
			next.ServeHTTP(w, r)
		})
	}
}
