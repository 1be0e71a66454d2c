package rest

import (
	"errors"
	"net/http"

	"github.com/driftfs/driftfs/pkg/auth"
	"github.com/driftfs/driftfs/pkg/metadata"
)

type registerRequest struct {
	// KeyID is the fingerprint the client claims for its public key.
	KeyID     string `json:"key_id" validate:"required"`
	PublicKey string `json:"public_key" validate:"required"`

	// SignedToken proves possession of the private key. When absent the
	// response carries a fresh challenge to sign.
	SignedToken string `json:"signed_token"`
}

type keyResponse struct {
	KeyID        string `json:"key_id"`
	StorageLimit int64  `json:"storage_limit"`
	Activated    bool   `json:"is_activated"`
}

// handleRegister registers a PEM-encoded RSA public key and provisions the
// owner's root folder. Registration is a two-step handshake: the first call
// without a signature receives a challenge, the second call presents the
// signature over it. Registering the same key twice is idempotent.
func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	key, err := h.authenticator.Register(r.Context(), req.KeyID, req.PublicKey, req.SignedToken)
	if err != nil {
		var storeErr *metadata.StoreError
		switch {
		case errors.Is(err, auth.ErrKeyMismatch):
			h.respondError(w, http.StatusConflict, err.Error())
		case auth.IsRegistrationRequired(err), auth.IsAuthenticationFailed(err), errors.As(err, &storeErr):
			h.writeError(w, req.KeyID, err)
		default:
			// Unparseable or non-RSA key material.
			h.respondError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	h.respondJSON(w, http.StatusCreated, keyResponse{
		KeyID:        key.ID,
		StorageLimit: key.StorageLimit,
		Activated:    key.Activated,
	})
}
