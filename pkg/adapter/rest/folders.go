package rest

import (
	"net/http"

	"github.com/driftfs/driftfs/pkg/metadata"
	"github.com/driftfs/driftfs/pkg/pathutil"
)

type mkdirRequest struct {
	Path string `json:"path" validate:"required"`

	// Recursive creates missing intermediate folders instead of failing when
	// the parent does not exist.
	Recursive bool `json:"recursive"`
}

type renameFolderRequest struct {
	Path    string `json:"path" validate:"required"`
	NewName string `json:"new_name" validate:"required"`
}

type moveFolderRequest struct {
	Path        string `json:"path" validate:"required"`
	Destination string `json:"destination" validate:"required"`
}

type folderResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	FullPath string `json:"full_path"`
}

type listFolderResponse struct {
	Folder  folderResponse   `json:"folder"`
	Folders []folderResponse `json:"folders"`
	Files   []*metadata.File `json:"files"`
}

func toFolderResponse(f *metadata.Folder) folderResponse {
	return folderResponse{ID: f.ID, Name: f.Name, FullPath: f.FullPath}
}

// canonicalPath normalizes a client-supplied path, mapping rejection to the
// store's invalid argument error so writeError turns it into a 400.
func canonicalPath(raw string) (string, error) {
	canonical, err := pathutil.Normalize(raw)
	if err != nil {
		return "", metadata.NewError(metadata.ErrInvalidArgument, err.Error(), raw)
	}
	return canonical, nil
}

// handleMkdir creates every missing folder along the requested path.
func (h *Handler) handleMkdir(w http.ResponseWriter, r *http.Request) {
	key := requestKey(r)

	var req mkdirRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	path, err := canonicalPath(req.Path)
	if err != nil {
		h.writeError(w, key.ID, err)
		return
	}

	create := h.store.CreateFolder
	if req.Recursive {
		create = h.store.CreateFolderPath
	}
	folder, err := create(r.Context(), key.ID, path)
	if err != nil {
		h.writeError(w, key.ID, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, toFolderResponse(folder))
}

func (h *Handler) handleRenameFolder(w http.ResponseWriter, r *http.Request) {
	key := requestKey(r)

	var req renameFolderRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	path, err := canonicalPath(req.Path)
	if err != nil {
		h.writeError(w, key.ID, err)
		return
	}

	folder, err := h.store.RenameFolder(r.Context(), key.ID, path, req.NewName)
	if err != nil {
		h.writeError(w, key.ID, err)
		return
	}
	h.respondJSON(w, http.StatusOK, toFolderResponse(folder))
}

func (h *Handler) handleMoveFolder(w http.ResponseWriter, r *http.Request) {
	key := requestKey(r)

	var req moveFolderRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	path, err := canonicalPath(req.Path)
	if err != nil {
		h.writeError(w, key.ID, err)
		return
	}
	destination, err := canonicalPath(req.Destination)
	if err != nil {
		h.writeError(w, key.ID, err)
		return
	}
	// The store rejects these too; checking here keeps the cheap failures off
	// the store entirely.
	if destination == path || pathutil.IsWithin(destination, path) {
		h.respondError(w, http.StatusBadRequest, "destination cannot be the source folder or inside it")
		return
	}

	folder, err := h.store.MoveFolder(r.Context(), key.ID, path, destination)
	if err != nil {
		h.writeError(w, key.ID, err)
		return
	}
	h.respondJSON(w, http.StatusOK, toFolderResponse(folder))
}

// handleListFolder returns the folder at ?path= together with its direct
// children. An empty path lists the root.
func (h *Handler) handleListFolder(w http.ResponseWriter, r *http.Request) {
	key := requestKey(r)

	raw := r.URL.Query().Get("path")
	if raw == "" {
		raw = "/"
	}
	path, err := canonicalPath(raw)
	if err != nil {
		h.writeError(w, key.ID, err)
		return
	}

	folder, err := h.store.FindFolder(r.Context(), key.ID, path)
	if err != nil {
		h.writeError(w, key.ID, err)
		return
	}
	subfolders, err := h.store.ListSubfolders(r.Context(), key.ID, path)
	if err != nil {
		h.writeError(w, key.ID, err)
		return
	}
	files, err := h.store.ListFiles(r.Context(), key.ID, path)
	if err != nil {
		h.writeError(w, key.ID, err)
		return
	}

	response := listFolderResponse{
		Folder:  toFolderResponse(folder),
		Folders: make([]folderResponse, 0, len(subfolders)),
		Files:   files,
	}
	for _, sub := range subfolders {
		response.Folders = append(response.Folders, toFolderResponse(sub))
	}
	h.respondJSON(w, http.StatusOK, response)
}

// handleDeleteFolder deletes the folder at ?path=, its subtree and the
// backend content of every file inside it.
func (h *Handler) handleDeleteFolder(w http.ResponseWriter, r *http.Request) {
	key := requestKey(r)

	path := r.URL.Query().Get("path")
	if path == "" {
		h.respondError(w, http.StatusBadRequest, "path query parameter is required")
		return
	}

	if err := h.redirector.DeleteFolder(r.Context(), key, path); err != nil {
		h.writeError(w, key.ID, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
