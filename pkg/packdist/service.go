package packdist

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// Service is the upload orchestration interface for the distribution engine.
//
// Each call is handled independently with no cross-request locking: two
// concurrent uploads of the same category for the same version race, and the
// last metadata transaction to commit wins, an accepted limitation of the
// single-publisher workflow. Uploads for different categories or versions
// are fully independent.
type Service interface {
	// UploadCategoryArchive ingests one category archive for a draft
	// version: extract, hash, diff against the prior version's baseline,
	// write blobs, persist metadata in one transaction, update the
	// manifest. When the request names a reuse source and the category is
	// reusable, reuse is attempted first and a missing source falls back
	// to the standard upload.
	UploadCategoryArchive(ctx context.Context, req UploadRequest) (*UploadResult, error)

	// ReuseCategory copies a category from an earlier version of the same
	// modpack into the target version without re-reading, re-extracting or
	// re-uploading any blob.
	ReuseCategory(ctx context.Context, req ReuseRequest) (*UploadResult, error)

	// GetManifest returns the per-version manifest.
	GetManifest(ctx context.Context, modpackID, versionID uuid.UUID) (*Manifest, error)

	// GetCurrentCategoryFile returns the current category file for a
	// (version, category) pair together with its individual files, for the
	// publisher's diff display.
	GetCurrentCategoryFile(ctx context.Context, versionID uuid.UUID, category Category) (*CategoryFile, []IndividualFile, error)

	// DownloadArchive streams the whole archive blob backing a category
	// file.
	DownloadArchive(ctx context.Context, categoryFileID uuid.UUID) (io.ReadCloser, error)
}
