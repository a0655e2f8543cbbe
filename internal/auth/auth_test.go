package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func deny(w http.ResponseWriter, status int, msg string) {
	http.Error(w, msg, status)
}

func TestTokenRoundTrip(t *testing.T) {
	tok, err := GenerateToken("secret", time.Hour)
	require.NoError(t, err)

	claims, err := ValidateToken("secret", tok)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Role)

	_, err = ValidateToken("other", tok)
	assert.Error(t, err)
}

func TestTokenExpired(t *testing.T) {
	tok, err := GenerateToken("secret", -time.Minute)
	require.NoError(t, err)
	_, err = ValidateToken("secret", tok)
	assert.Error(t, err)
}

func TestCheckKey(t *testing.T) {
	hash, err := HashKey("s3cret")
	require.NoError(t, err)
	assert.True(t, CheckKey("s3cret", hash))
	assert.False(t, CheckKey("guess", hash))
}

func TestAdminMiddleware(t *testing.T) {
	admin, err := NewAdmin("s3cret", deny)
	require.NoError(t, err)
	h := admin.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tok, err := GenerateToken("s3cret", time.Hour)
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		value  string
		want   int
	}{
		{"no credentials", "", "", http.StatusUnauthorized},
		{"wrong key", "X-Admin-Key", "nope", http.StatusUnauthorized},
		{"right key", "X-Admin-Key", "s3cret", http.StatusNoContent},
		{"bearer token", "Authorization", "Bearer " + tok, http.StatusNoContent},
		{"bad bearer", "Authorization", "Bearer abc.def.ghi", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodDelete, "/api/admin/clear-all-data", nil)
			if tc.header != "" {
				req.Header.Set(tc.header, tc.value)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestAdminDisabled(t *testing.T) {
	admin, err := NewAdmin("", deny)
	require.NoError(t, err)
	assert.False(t, admin.Enabled())

	req := httptest.NewRequest(http.MethodDelete, "/api/admin/clear-all-data", nil)
	req.Header.Set("X-Admin-Key", "")
	rec := httptest.NewRecorder()
	admin.Middleware(http.NotFoundHandler()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAdminMiddlewareExposesTokenClaims(t *testing.T) {
	admin, err := NewAdmin("s3cret", deny)
	require.NoError(t, err)
	var got *Claims
	h := admin.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetClaims(r.Context())
	}))

	tok, err := GenerateToken("s3cret", time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodDelete, "/api/admin/clear-all-data", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.NotNil(t, got)
	assert.Equal(t, "admin", got.Subject)

	got = nil
	req = httptest.NewRequest(http.MethodDelete, "/api/admin/clear-all-data", nil)
	req.Header.Set("X-Admin-Key", "s3cret")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Nil(t, got)
}
