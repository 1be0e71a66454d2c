// Package metadata defines the domain model and store contract for the
// virtual filesystem: client key records, the folder tree, file rows and
// storage node descriptors.
package metadata

import "time"

// Key identifies a client by its public key fingerprint and carries the
// client's account state.
type Key struct {
	// ID is the lowercase hex SHA-256 fingerprint of the public key.
	ID string `json:"id"`

	// PublicKey is the PEM-encoded RSA public key used to verify challenge
	// signatures.
	PublicKey string `json:"public_key"`

	// StorageLimit is the client's byte quota across all of its files.
	StorageLimit int64 `json:"storage_limit"`

	// Activated gates uploads. A registered but not yet activated key can
	// authenticate and browse but cannot store new content.
	Activated bool `json:"is_activated"`
}

// Folder is a node in a client's folder tree.
type Folder struct {
	ID string `json:"id"`

	// OwnerID is the key id of the owning client.
	OwnerID string `json:"owner_id"`

	// ParentID is empty for the root folder.
	ParentID string `json:"parent_id,omitempty"`

	Name string `json:"name"`

	// FullPath is the denormalized canonical path from the root. It is kept
	// consistent with the parent chain on every rename and move.
	FullPath string `json:"full_path"`
}

// IsRoot reports whether the folder is its owner's root.
func (f *Folder) IsRoot() bool {
	return f.ParentID == ""
}

// File is a metadata row pointing at content held by a storage node.
type File struct {
	// ID names the content object on the assigned storage node.
	ID string `json:"id"`

	FolderID  string `json:"folder_id"`
	StorageID string `json:"storage_id"`
	Name      string `json:"name"`

	// FullPath is the denormalized canonical path, maintained like
	// Folder.FullPath.
	FullPath string `json:"full_path"`

	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// Storage describes a storage node the redirect layer can send content to.
type Storage struct {
	ID string `json:"id"`

	// URL is the node's base endpoint.
	URL string `json:"url"`

	// Token authenticates this server against the node.
	Token string `json:"token,omitempty"`

	Capacity  int64 `json:"capacity"`
	UsedSpace int64 `json:"used_space"`

	// Priority orders node selection. Nodes with priority <= 0 are excluded
	// from selection entirely.
	Priority int `json:"priority"`
}

// Free returns the node's remaining capacity in bytes.
func (s *Storage) Free() int64 {
	return s.Capacity - s.UsedSpace
}
