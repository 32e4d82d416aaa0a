package packdist

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// BlobStore defines the interface for content-addressed blob storage.
// Because object keys are derived from content hashes, re-writing identical
// bytes is a no-op in effect and every write is safe to retry. The store
// performs no internal retry; retry policy belongs to the caller.
type BlobStore interface {
	// Upload writes the object at objectKey.
	Upload(ctx context.Context, objectKey string, reader io.Reader) error

	// UploadWithParams writes the object with an explicit content type and
	// caller-supplied metadata.
	UploadWithParams(ctx context.Context, reader io.Reader, params UploadParams) error

	// Download reads the object back. Returns an error wrapping
	// ErrObjectNotFound when the key is absent.
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// GetObjectMeta retrieves size and content type for an object. Returns
	// an error wrapping ErrObjectNotFound when the key is absent.
	GetObjectMeta(ctx context.Context, objectKey string) (*ObjectMeta, error)
}

// UploadParams contains parameters for uploading an object.
type UploadParams struct {
	ObjectKey   string
	ContentType string
	Metadata    map[string]string
}

// ObjectMeta contains metadata about an object in storage.
type ObjectMeta struct {
	Key         string
	Size        int64
	ContentType string
	UpdatedAt   time.Time
	ETag        string
	Metadata    map[string]string
}

// Repository defines the interface for version-file persistence. A
// CategoryFile and its IndividualFile rows form one atomic unit: no reader
// may ever observe the CategoryFile without its members.
type Repository interface {
	// GetVersion returns the version read model, or an error wrapping
	// ErrVersionNotFound.
	GetVersion(ctx context.Context, id uuid.UUID) (*Version, error)

	// CreateCategoryFile persists the category file and all of its
	// individual files in a single transaction.
	CreateCategoryFile(ctx context.Context, cf *CategoryFile, files []IndividualFile) error

	// GetCategoryFile returns a category file by ID, or an error wrapping
	// ErrCategoryFileNotFound.
	GetCategoryFile(ctx context.Context, id uuid.UUID) (*CategoryFile, error)

	// GetCurrentCategoryFile returns the current (most recently created)
	// category file for a (version, category) pair, or an error wrapping
	// ErrCategoryFileNotFound.
	GetCurrentCategoryFile(ctx context.Context, versionID uuid.UUID, category Category) (*CategoryFile, error)

	// FindLatestCategoryFile locates the category file of the most recently
	// released version of the modpack that has one for the given category,
	// together with its individual files. Used as the delta baseline.
	// Returns an error wrapping ErrCategoryFileNotFound when no released
	// version carries the category.
	FindLatestCategoryFile(ctx context.Context, modpackID uuid.UUID, category Category) (*CategoryFile, []IndividualFile, error)

	// ListIndividualFiles returns all files of a category file.
	ListIndividualFiles(ctx context.Context, categoryFileID uuid.UUID) ([]IndividualFile, error)
}

// EventSink defines the interface for upload lifecycle event handling.
// Sink failures are reported to the sink's own infrastructure and never
// fail the triggering operation.
type EventSink interface {
	// CategoryUploaded is fired after a fresh upload commits.
	CategoryUploaded(ctx context.Context, cf *CategoryFile, delta Delta) error

	// CategoryReused is fired after a cross-version reuse commits.
	CategoryReused(ctx context.Context, cf *CategoryFile, sourceVersionID uuid.UUID) error

	// ManifestUpdated is fired after the per-version manifest is rewritten.
	ManifestUpdated(ctx context.Context, versionID uuid.UUID, manifest *Manifest) error
}
