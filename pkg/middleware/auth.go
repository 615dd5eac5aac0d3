package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/iamsyg/artisian-dashboard/pkg/logger"
)

type contextKeyType string

const subjectKey contextKeyType = "subject_id"

// SubjectVerifier resolves the subject id carried by a bearer token.
type SubjectVerifier interface {
	VerifySubject(ctx context.Context, token string) (string, error)
}

// Authenticate resolves the acting subject from the Authorization header and
// stores it in the request context. It never rejects a request: a missing or
// invalid token leaves the request anonymous and the authorization layer
// decides what an anonymous caller may do.
func Authenticate(verifier SubjectVerifier, l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r.Header.Get("Authorization"))
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			subject, err := verifier.VerifySubject(r.Context(), token)
			if err != nil {
				l.DebugContext(r.Context(), "bearer token rejected",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			}

			ctx := logger.WithSubjectID(WithSubject(r.Context(), subject), subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// WithSubject returns a context carrying the authenticated subject id.
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectKey, subject)
}

// SubjectFromContext returns the authenticated subject, or "" when anonymous.
func SubjectFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(subjectKey).(string); ok {
		return id
	}
	return ""
}
