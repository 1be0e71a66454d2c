package rest

import (
	"net/http"

	"github.com/driftfs/driftfs/pkg/metadata"
)

type usageResponse struct {
	Used  int64 `json:"used"`
	Limit int64 `json:"limit"`
}

// storageResponse mirrors a storage descriptor without its access token.
type storageResponse struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	Capacity  int64  `json:"capacity"`
	UsedSpace int64  `json:"used_space"`
	Free      int64  `json:"free"`
	Priority  int    `json:"priority"`
}

func toStorageResponse(s *metadata.Storage) storageResponse {
	return storageResponse{
		ID:        s.ID,
		URL:       s.URL,
		Capacity:  s.Capacity,
		UsedSpace: s.UsedSpace,
		Free:      s.Free(),
		Priority:  s.Priority,
	}
}

// handleStorageUsage reports the authenticated key's exact usage against its
// quota. Usage is always recomputed from the file rows, never cached.
func (h *Handler) handleStorageUsage(w http.ResponseWriter, r *http.Request) {
	key := requestKey(r)

	used, err := h.store.CalculateUsedStorage(r.Context(), key.ID)
	if err != nil {
		h.writeError(w, key.ID, err)
		return
	}
	h.respondJSON(w, http.StatusOK, usageResponse{Used: used, Limit: key.StorageLimit})
}

// handleListStorageNodes reports the configured storage nodes and their
// cached usage figures.
func (h *Handler) handleListStorageNodes(w http.ResponseWriter, r *http.Request) {
	storages, err := h.store.ListStorages(r.Context())
	if err != nil {
		h.writeError(w, requestKey(r).ID, err)
		return
	}

	response := make([]storageResponse, 0, len(storages))
	for _, s := range storages {
		response = append(response, toStorageResponse(s))
	}
	h.respondJSON(w, http.StatusOK, response)
}
