package httputil

import (
	"context"
	"net/http"
)

// Identity is the authenticated caller of a request.
type Identity struct {
	UserID string
	Method string // "tma", "jwt" or "dev"
}

type identityKey struct{}

// WithIdentity attaches the caller to the request context.
func WithIdentity(r *http.Request, id Identity) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), identityKey{}, id))
}

// GetUserID returns the authenticated user id, or "" when the request did
// not pass through the auth middleware.
func GetUserID(r *http.Request) string {
	id, _ := r.Context().Value(identityKey{}).(Identity)
	return id.UserID
}

// GetIdentity returns the caller and whether one was set.
func GetIdentity(r *http.Request) (Identity, bool) {
	id, ok := r.Context().Value(identityKey{}).(Identity)
	return id, ok
}
