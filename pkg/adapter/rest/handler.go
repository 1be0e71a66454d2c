// Package rest exposes the metadata and redirection service over HTTP.
//
// Request authentication uses two headers: Key-Id carries the client's key
// fingerprint and Signed-Token the base64 RSA-PSS signature over the current
// challenge. Authentication failures respond with a fresh challenge token in
// the body so a client can complete the handshake in exactly two requests.
package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/driftfs/driftfs/internal/logger"
	"github.com/driftfs/driftfs/pkg/auth"
	"github.com/driftfs/driftfs/pkg/metadata"
	"github.com/driftfs/driftfs/pkg/redirect"
	"github.com/driftfs/driftfs/pkg/storage"
	"github.com/driftfs/driftfs/pkg/storage/httpnode"
)

// Authentication headers.
const (
	// KeyIDHeader carries the client's key fingerprint.
	KeyIDHeader = "Key-Id"

	// SignedTokenHeader carries the base64 signature over the challenge.
	SignedTokenHeader = "Signed-Token"

	// FileSizeHeader carries the upload content length.
	FileSizeHeader = "File-Size"
)

// Handler holds the dependencies of the HTTP handlers.
type Handler struct {
	authenticator *auth.Authenticator
	store         metadata.Store
	redirector    *redirect.Redirector
	validate      *validator.Validate
}

// NewHandler creates the REST handler.
func NewHandler(authenticator *auth.Authenticator, store metadata.Store, redirector *redirect.Redirector) *Handler {
	return &Handler{
		authenticator: authenticator,
		store:         store,
		redirector:    redirector,
		validate:      validator.New(),
	}
}

// errorResponse is the uniform failure body. On 401 responses Token carries
// a freshly issued challenge and RegistrationRequired tells the client
// whether it must register before retrying.
type errorResponse struct {
	Detail               string `json:"detail"`
	Token                string `json:"token,omitempty"`
	RegistrationRequired bool   `json:"registration_required,omitempty"`
}

func (h *Handler) respondJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		logger.Error("failed to serialize response: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail":"internal error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

func (h *Handler) respondError(w http.ResponseWriter, code int, detail string) {
	h.respondJSON(w, code, errorResponse{Detail: detail})
}

// writeError translates a domain error into an HTTP response. keyID is used
// to attach a fresh challenge to authentication failures.
func (h *Handler) writeError(w http.ResponseWriter, keyID string, err error) {
	// Authentication errors carry a new challenge so the client can retry
	// without an extra round trip.
	switch {
	case auth.IsRegistrationRequired(err):
		h.respondJSON(w, http.StatusUnauthorized, errorResponse{
			Detail:               err.Error(),
			Token:                h.challengeFor(keyID),
			RegistrationRequired: true,
		})
		return
	case auth.IsAuthenticationRequired(err), auth.IsAuthenticationFailed(err):
		h.respondJSON(w, http.StatusUnauthorized, errorResponse{
			Detail: err.Error(),
			Token:  h.challengeFor(keyID),
		})
		return
	}

	var storeErr *metadata.StoreError
	if errors.As(err, &storeErr) {
		h.respondError(w, storeErrorStatus(storeErr.Code), storeErr.Error())
		return
	}

	var quotaErr *redirect.QuotaExceededError
	if errors.As(err, &quotaErr) {
		h.respondError(w, http.StatusRequestEntityTooLarge, quotaErr.Error())
		return
	}

	var nodeErr *httpnode.ResponseError
	if errors.As(err, &nodeErr) {
		h.respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	switch {
	case errors.Is(err, redirect.ErrNotActivated):
		h.respondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, storage.ErrNoAvailableStorage):
		// Retryable: capacity may free up or a node may come back.
		h.respondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		logger.Error("request failed: %v", err)
		h.respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *Handler) challengeFor(keyID string) string {
	if keyID == "" {
		return ""
	}
	return h.authenticator.Challenge(keyID)
}

func storeErrorStatus(code metadata.ErrorCode) int {
	switch code {
	case metadata.ErrNotFound, metadata.ErrParentNotFound:
		return http.StatusNotFound
	case metadata.ErrAlreadyExists:
		return http.StatusConflict
	case metadata.ErrInvalidDestination, metadata.ErrInvalidArgument:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// decodeAndValidate decodes a JSON body into req and runs struct validation.
func (h *Handler) decodeAndValidate(r *http.Request, req any) error {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		return errors.New("invalid JSON payload")
	}
	if err := h.validate.Struct(req); err != nil {
		return err
	}
	return nil
}
