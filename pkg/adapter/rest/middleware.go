package rest

import (
	"context"
	"net/http"

	"github.com/driftfs/driftfs/pkg/metadata"
)

// contextKey is a private type preventing context key collisions.
type contextKey string

const keyContextKey = contextKey("key")

// authMiddleware authenticates every request in the protected group.
//
// The client presents its fingerprint in Key-Id and, when it holds a live
// challenge, the signature in Signed-Token. Every failure path responds 401
// with a fresh challenge in the body (writeError takes care of that), so the
// canonical flow is: request without signature, receive challenge, retry
// with signature.
func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		keyID := r.Header.Get(KeyIDHeader)
		if keyID == "" {
			h.respondError(w, http.StatusUnauthorized, "Key-Id header is required")
			return
		}

		key, err := h.authenticator.Authenticate(r.Context(), keyID, r.Header.Get(SignedTokenHeader))
		if err != nil {
			h.writeError(w, keyID, err)
			return
		}

		ctx := context.WithValue(r.Context(), keyContextKey, key)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestKey returns the authenticated key stored by authMiddleware.
func requestKey(r *http.Request) *metadata.Key {
	key, _ := r.Context().Value(keyContextKey).(*metadata.Key)
	return key
}
