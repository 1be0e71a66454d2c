package badger

// Database Key Namespace Design
// ==============================
//
// BadgerDB is a key-value store, so prefixed keys organize the record types
// and their secondary indexes into logical namespaces. This design:
//   - Prevents key collisions between record types
//   - Enables efficient range scans (children of a folder, files of an owner)
//   - Makes the database structure self-documenting
//
// Key Namespace Prefixes:
//
// Data Type            Prefix  Key Format                     Value Type
// =========================================================================
// Key Records          "k:"    k:<keyID>                      Key (JSON)
// Folder Rows          "d:"    d:<folderID>                   Folder (JSON)
// Folder Path Index    "dp:"   dp:<ownerID>:<fullPath>        folderID (bytes)
// Folder Child Index   "dc:"   dc:<parentID>:<name>           folderID (bytes)
// Owner Roots          "r:"    r:<ownerID>                    folderID (bytes)
// File Rows            "f:"    f:<fileID>                     File (JSON)
// File Path Index      "fp:"   fp:<ownerID>:<fullPath>        fileID (bytes)
// File Child Index     "fc:"   fc:<folderID>:<name>           fileID (bytes)
// Storage Nodes        "s:"    s:<storageID>                  Storage (JSON)
//
// Index Rationale:
//
// 1. Path Indexes (dp:, fp:)
//    Point lookup by (owner, canonical path) is the hot operation of every
//    request. Owner ids are hex fingerprints and folder ids are UUIDs, so
//    the ":" separator never appears in the prefix part of a key.
//
// 2. Child Indexes (dc:, fc:)
//    Denormalized: one entry per child. Listing a folder and checking
//    sibling-name uniqueness are range scans over "dc:<parentID>:" and
//    "fc:<parentID>:".
//
// 3. Owner Roots (r:)
//    One entry per registered owner pointing at its root folder row.
//
// 4. Usage Aggregation
//    CalculateUsedStorage scans "fp:<ownerID>:" and sums the sizes of the
//    referenced file rows, so the figure is always derived from live rows.

const (
	prefixKey        = "k:"
	prefixFolder     = "d:"
	prefixFolderPath = "dp:"
	prefixFolderChld = "dc:"
	prefixRoot       = "r:"
	prefixFile       = "f:"
	prefixFilePath   = "fp:"
	prefixFileChld   = "fc:"
	prefixStorage    = "s:"
)

// Key generation functions. These construct database keys for the record
// types and indexes above; going through them keeps key formatting in one
// place.

func keyKey(keyID string) []byte {
	return []byte(prefixKey + keyID)
}

func keyFolder(folderID string) []byte {
	return []byte(prefixFolder + folderID)
}

func keyFolderPath(ownerID, fullPath string) []byte {
	return []byte(prefixFolderPath + ownerID + ":" + fullPath)
}

func keyFolderChild(parentID, name string) []byte {
	return []byte(prefixFolderChld + parentID + ":" + name)
}

// keyFolderChildPrefix is the range-scan prefix for all subfolders of a folder.
func keyFolderChildPrefix(parentID string) []byte {
	return []byte(prefixFolderChld + parentID + ":")
}

func keyRoot(ownerID string) []byte {
	return []byte(prefixRoot + ownerID)
}

func keyFile(fileID string) []byte {
	return []byte(prefixFile + fileID)
}

func keyFilePath(ownerID, fullPath string) []byte {
	return []byte(prefixFilePath + ownerID + ":" + fullPath)
}

// keyFilePathPrefix is the range-scan prefix for all files of an owner.
func keyFilePathPrefix(ownerID string) []byte {
	return []byte(prefixFilePath + ownerID + ":")
}

func keyFileChild(folderID, name string) []byte {
	return []byte(prefixFileChld + folderID + ":" + name)
}

// keyFileChildPrefix is the range-scan prefix for all files in a folder.
func keyFileChildPrefix(folderID string) []byte {
	return []byte(prefixFileChld + folderID + ":")
}

func keyStorage(storageID string) []byte {
	return []byte(prefixStorage + storageID)
}

// keyStoragePrefix is the range-scan prefix for all storage nodes.
func keyStoragePrefix() []byte {
	return []byte(prefixStorage)
}
