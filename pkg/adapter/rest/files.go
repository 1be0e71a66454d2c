package rest

import (
	"io"
	"net/http"
	"strconv"

	"github.com/driftfs/driftfs/internal/logger"
)

// handleUpload streams the request body to a storage node and commits the
// file row. The destination path comes from ?path= and the content length
// from the File-Size header, which is authoritative over Content-Length so
// clients behind re-chunking proxies still work.
func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	key := requestKey(r)

	path := r.URL.Query().Get("path")
	if path == "" {
		h.respondError(w, http.StatusBadRequest, "path query parameter is required")
		return
	}

	sizeHeader := r.Header.Get(FileSizeHeader)
	if sizeHeader == "" {
		h.respondError(w, http.StatusBadRequest, "File-Size header is required")
		return
	}
	size, err := strconv.ParseInt(sizeHeader, 10, 64)
	if err != nil || size < 0 {
		h.respondError(w, http.StatusBadRequest, "File-Size header must be a non-negative integer")
		return
	}

	file, err := h.redirector.Upload(r.Context(), key, path, size, r.Body)
	if err != nil {
		h.writeError(w, key.ID, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, file)
}

// handleDownload streams the content at ?path= back to the client.
func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	key := requestKey(r)

	path := r.URL.Query().Get("path")
	if path == "" {
		h.respondError(w, http.StatusBadRequest, "path query parameter is required")
		return
	}

	content, file, err := h.redirector.Download(r.Context(), key, path)
	if err != nil {
		h.writeError(w, key.ID, err)
		return
	}
	defer func() { _ = content.Close() }()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.FormatInt(file.Size, 10))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, content); err != nil {
		// Headers are already out; all we can do is log the broken stream.
		logger.Warn("download of %s interrupted: %v", file.FullPath, err)
	}
}

// handleDeleteFile removes the file at ?path= from its storage node and then
// from the metadata store.
func (h *Handler) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	key := requestKey(r)

	path := r.URL.Query().Get("path")
	if path == "" {
		h.respondError(w, http.StatusBadRequest, "path query parameter is required")
		return
	}

	if err := h.redirector.DeleteFile(r.Context(), key, path); err != nil {
		h.writeError(w, key.ID, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
