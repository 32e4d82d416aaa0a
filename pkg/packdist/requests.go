package packdist

import "github.com/google/uuid"

// Request DTOs

// UploadRequest contains parameters for uploading one category archive of one
// modpack version. UploadedBy is a caller-supplied identity recorded for
// audit; the engine performs no authorization itself.
type UploadRequest struct {
	ModpackID uuid.UUID
	VersionID uuid.UUID
	Category  Category
	Archive   []byte

	// ReuseFromVersionID, when set, asks the orchestrator to try copying
	// the category from that version before falling back to processing
	// Archive.
	ReuseFromVersionID *uuid.UUID

	UploadedBy string
}

// ReuseRequest contains parameters for copying a category from an earlier
// version of the same modpack into the target version without re-upload.
type ReuseRequest struct {
	ModpackID       uuid.UUID
	TargetVersionID uuid.UUID
	SourceVersionID uuid.UUID
	Category        Category
	RequestedBy     string
}
