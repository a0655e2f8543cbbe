package auth

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const claimsKey contextKey = "admin"

// Admin guards the administrative routes. Requests authenticate with the raw
// key in X-Admin-Key or with a bearer token from GenerateToken.
type Admin struct {
	key     string
	keyHash string
	deny    func(w http.ResponseWriter, status int, msg string)
}

// NewAdmin hashes key once. An empty key leaves every admin route disabled.
func NewAdmin(key string, deny func(w http.ResponseWriter, status int, msg string)) (*Admin, error) {
	a := &Admin{key: key, deny: deny}
	if key == "" {
		return a, nil
	}
	hash, err := HashKey(key)
	if err != nil {
		return nil, err
	}
	a.keyHash = hash
	return a, nil
}

func (a *Admin) Enabled() bool { return a.key != "" }

func (a *Admin) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() {
			a.deny(w, http.StatusServiceUnavailable, "admin endpoints disabled")
			return
		}
		if key := r.Header.Get("X-Admin-Key"); key != "" {
			if !CheckKey(key, a.keyHash) {
				a.deny(w, http.StatusUnauthorized, "invalid admin key")
				return
			}
			next.ServeHTTP(w, r)
			return
		}
		header := r.Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			a.deny(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		claims, err := ValidateToken(a.key, strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			a.deny(w, http.StatusUnauthorized, "invalid token")
			return
		}
		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetClaims(ctx context.Context) *Claims {
	claims, _ := ctx.Value(claimsKey).(*Claims)
	return claims
}
