package packdist

import (
	"time"

	"github.com/google/uuid"
)

// Category is the domain type for the fixed content kinds a modpack version ships.
type Category string

// Category constants (typed).
const (
	CategoryMods          Category = "mods"
	CategoryConfigs       Category = "configs"
	CategoryResources     Category = "resources"
	CategoryResourcePacks Category = "resourcepacks"
	CategoryShaderPacks   Category = "shaderpacks"
	CategoryExtras        Category = "extras"
)

// Categories returns all valid categories in a stable order.
func Categories() []Category {
	return []Category{
		CategoryMods,
		CategoryConfigs,
		CategoryResources,
		CategoryResourcePacks,
		CategoryShaderPacks,
		CategoryExtras,
	}
}

// Valid reports whether c is one of the fixed categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryMods, CategoryConfigs, CategoryResources,
		CategoryResourcePacks, CategoryShaderPacks, CategoryExtras:
		return true
	}
	return false
}

// Reusable reports whether a category is expected to stay byte-identical
// across versions, making it a candidate for cross-version reuse. The
// reuse engine itself is category-agnostic; this only gates the
// orchestrator's reuse attempt.
func (c Category) Reusable() bool {
	return c == CategoryConfigs || c == CategoryResources
}

// ParseCategory converts a raw string into a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", &ValidationError{Field: "category", Value: s, Err: ErrInvalidCategory}
	}
	return c, nil
}

// VersionState is the domain type for version lifecycle states. Lifecycle
// transitions are owned by an external collaborator; the engine only reads
// the state to gate uploads.
type VersionState string

// Version state constants (typed).
const (
	VersionStateDraft     VersionState = "draft"
	VersionStatePublished VersionState = "published"
	VersionStateArchived  VersionState = "archived"
)

// Version is the read model for a modpack version. The engine never creates
// or mutates versions; it validates draft state before accepting uploads and
// orders released versions when locating a delta baseline.
type Version struct {
	ID           uuid.UUID    `json:"id"`
	ModpackID    uuid.UUID    `json:"modpack_id"`
	Name         string       `json:"name"`
	McVersion    string       `json:"mc_version"`
	ForgeVersion string       `json:"forge_version,omitempty"`
	State        VersionState `json:"state"`
	ReleasedAt   *time.Time   `json:"released_at,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}

// CategoryFile records one upload (or reuse) event for a (version, category)
// pair. Rows are immutable: a re-upload of the same category creates a new
// row and the previous one is superseded, never mutated.
//
// OriginVersionID names the version whose blob path holds the archive. A
// fresh upload writes its own blobs, so it equals VersionID; a reuse copies
// the source row's origin, so the blob location survives any later
// supersession of the source's current row. ReusedFrom records the direct
// source version for provenance display and the manifest.
type CategoryFile struct {
	ID              uuid.UUID  `json:"id"`
	VersionID       uuid.UUID  `json:"version_id"`
	ModpackID       uuid.UUID  `json:"modpack_id"`
	Category        Category   `json:"category"`
	ArchiveHash     string     `json:"archive_hash"`
	IsDelta         bool       `json:"is_delta"`
	TotalSize       int64      `json:"total_size"`
	FileCount       int        `json:"file_count"`
	OriginVersionID uuid.UUID  `json:"origin_version_id"`
	ReusedFrom      *uuid.UUID `json:"reused_from,omitempty"`
	UploadedBy      string     `json:"uploaded_by,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// IndividualFile is one file extracted from a category archive. RelativePath
// is unique within its CategoryFile; ContentHash may repeat across files and
// versions, which is the dedup mechanism.
type IndividualFile struct {
	ID             uuid.UUID `json:"id"`
	CategoryFileID uuid.UUID `json:"category_file_id"`
	RelativePath   string    `json:"relative_path"`
	ContentHash    string    `json:"content_hash"`
	Size           int64     `json:"size"`
}

// FileEntry describes a file extracted from an archive: its path inside the
// archive, the SHA-256 of its decompressed bytes, and its decompressed size.
type FileEntry struct {
	RelativePath string `json:"relative_path"`
	ContentHash  string `json:"content_hash"`
	Size         int64  `json:"size"`
}

// ExtractedFile pairs a FileEntry with its decompressed bytes for blob
// storage.
type ExtractedFile struct {
	FileEntry
	Data []byte
}

// BaselineFile is the prior-version view of a file used for delta
// computation.
type BaselineFile struct {
	ContentHash string
	Size        int64
}

// Baseline builds the path-keyed map the delta calculator diffs against from
// a prior CategoryFile's individual files.
func Baseline(files []IndividualFile) map[string]BaselineFile {
	m := make(map[string]BaselineFile, len(files))
	for _, f := range files {
		m[f.RelativePath] = BaselineFile{ContentHash: f.ContentHash, Size: f.Size}
	}
	return m
}

// Delta summarizes the per-file differences between a new upload and the
// prior version's same category.
type Delta struct {
	Added    int  `json:"added"`
	Removed  int  `json:"removed"`
	Modified int  `json:"modified"`
	IsDelta  bool `json:"is_delta"`
}

// Manifest is the portable per-version JSON snapshot read by the installer
// client. The relational store remains the source of truth for everything
// else; the manifest only records which archive hash backs each category and
// whether a category was reused from another version.
type Manifest struct {
	Name         string                 `json:"name"`
	Version      string                 `json:"version"`
	McVersion    string                 `json:"mc_version"`
	ForgeVersion string                 `json:"forge_version,omitempty"`
	Files        map[Category]string    `json:"files"`
	ReusedFrom   map[Category]uuid.UUID `json:"reused_from,omitempty"`
}

// UploadResult is the summary returned for every successful upload or reuse.
type UploadResult struct {
	CategoryFileID uuid.UUID `json:"category_file_id"`
	ArchiveHash    string    `json:"archive_hash"`
	IsDelta        bool      `json:"is_delta"`
	FileCount      int       `json:"file_count"`
	TotalSize      int64     `json:"total_size"`
	AddedFiles     int       `json:"added_files"`
	RemovedFiles   int       `json:"removed_files"`
	ModifiedFiles  int       `json:"modified_files"`
}
