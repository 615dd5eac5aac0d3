package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamsyg/artisian-dashboard/pkg/httpclient"
)

const testSecret = "test-secret-key-for-jwt-signing"

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func TestVerifier_VerifySubject(t *testing.T) {
	v := NewVerifier(testSecret)
	future := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name    string
		token   string
		want    string
		wantErr bool
	}{
		{
			name:  "sub claim",
			token: sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"sub": "user-1", "exp": future}),
			want:  "user-1",
		},
		{
			name:  "user_id fallback",
			token: sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"user_id": "user-2", "exp": future}),
			want:  "user-2",
		},
		{
			name:  "sub wins over user_id",
			token: sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"sub": "a", "user_id": "b"}),
			want:  "a",
		},
		{
			name:    "wrong secret",
			token:   sign(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{"sub": "user-1"}),
			wantErr: true,
		},
		{
			name:    "expired",
			token:   sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"sub": "user-1", "exp": time.Now().Add(-time.Hour).Unix()}),
			wantErr: true,
		},
		{
			name:    "other hmac algorithm",
			token:   sign(t, jwt.SigningMethodHS512, []byte(testSecret), jwt.MapClaims{"sub": "user-1"}),
			wantErr: true,
		},
		{
			name:    "garbage",
			token:   "not.a.jwt",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.VerifySubject(context.Background(), tt.token)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVerifier_NoSubject(t *testing.T) {
	v := NewVerifier(testSecret)
	token := sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"role": "seller"})

	_, err := v.VerifySubject(context.Background(), token)
	assert.True(t, errors.Is(err, ErrNoSubject))
}

func TestAdminClient_DeleteUser(t *testing.T) {
	var gotPath, gotAuth, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath, gotAuth = r.Method, r.URL.Path, r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewAdminClient(srv.URL+"/", "service-key", httpclient.New(httpclient.DefaultConfig()))
	require.NoError(t, c.DeleteUser(context.Background(), "user-1"))

	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/admin/users/user-1", gotPath)
	assert.Equal(t, "Bearer service-key", gotAuth)
}

func TestAdminClient_DeleteUser_AlreadyGone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewAdminClient(srv.URL, "k", httpclient.New(httpclient.DefaultConfig()))
	assert.NoError(t, c.DeleteUser(context.Background(), "user-1"))
}

func TestAdminClient_DeleteUser_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":"not_admin","message":"User not allowed"}}`))
	}))
	defer srv.Close()

	c := NewAdminClient(srv.URL, "k", httpclient.New(httpclient.DefaultConfig()))
	err := c.DeleteUser(context.Background(), "user-1")

	require.Error(t, err)
	var se *httpclient.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusForbidden, se.StatusCode)
	assert.Equal(t, "User not allowed", se.Message)
}
