package packdist

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/packforge/packdist/pkg/packdist/objectkey"
)

// service implements the Service interface
type service struct {
	repository Repository
	blobStore  BlobStore
	keys       objectkey.Generator
	manifests  *ManifestWriter
	eventSink  EventSink
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithBlobStore sets the blob store for the service. The store is an
// explicit dependency: the service never reaches for a shared global client.
func WithBlobStore(store BlobStore) Option {
	return func(s *service) {
		s.blobStore = store
	}
}

// WithObjectKeyGenerator overrides the default blob key layout.
func WithObjectKeyGenerator(keys objectkey.Generator) Option {
	return func(s *service) {
		s.keys = keys
	}
}

// WithEventSink sets the event sink for the service
func WithEventSink(sink EventSink) Option {
	return func(s *service) {
		s.eventSink = sink
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		keys: objectkey.NewDefaultGenerator(),
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.blobStore == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if s.eventSink == nil {
		s.eventSink = NewNoopEventSink()
	}

	s.manifests = NewManifestWriter(s.blobStore, s.keys)

	return s, nil
}

func (s *service) UploadCategoryArchive(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	version, err := s.validateDraftVersion(ctx, req.ModpackID, req.VersionID, req.Category)
	if err != nil {
		return nil, err
	}

	if req.ReuseFromVersionID != nil && req.Category.Reusable() {
		result, err := s.ReuseCategory(ctx, ReuseRequest{
			ModpackID:       req.ModpackID,
			TargetVersionID: req.VersionID,
			SourceVersionID: *req.ReuseFromVersionID,
			Category:        req.Category,
			RequestedBy:     req.UploadedBy,
		})
		if err == nil {
			return result, nil
		}
		var notFound *NotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		// Missing reuse source is non-fatal: fall through to a standard
		// upload of the supplied archive.
	}

	extracted, err := ExtractArchive(req.Archive)
	if err != nil {
		return nil, err
	}
	entries := Entries(extracted)
	archiveHash := HashBytes(req.Archive)

	baseline := map[string]BaselineFile{}
	if _, prior, err := s.repository.FindLatestCategoryFile(ctx, req.ModpackID, req.Category); err == nil {
		baseline = Baseline(prior)
	} else if !errors.Is(err, ErrCategoryFileNotFound) {
		return nil, &PersistenceError{Op: "find_baseline", Err: err}
	}

	delta := ComputeDelta(entries, baseline)

	// All blob writes complete before the metadata transaction opens, so
	// no network I/O happens while a transaction is held. A failure past
	// this point orphans the blobs just written; content-addressed keys
	// make the retry overwrite them in place.
	if err := s.writeBlobs(ctx, req, archiveHash, extracted); err != nil {
		return nil, err
	}

	var totalSize int64
	for _, e := range entries {
		totalSize += e.Size
	}

	cf := &CategoryFile{
		ID:              uuid.New(),
		VersionID:       req.VersionID,
		ModpackID:       req.ModpackID,
		Category:        req.Category,
		ArchiveHash:     archiveHash,
		IsDelta:         delta.IsDelta,
		TotalSize:       totalSize,
		FileCount:       len(entries),
		OriginVersionID: req.VersionID,
		UploadedBy:      req.UploadedBy,
		CreatedAt:       time.Now().UTC(),
	}
	files := make([]IndividualFile, len(entries))
	for i, e := range entries {
		files[i] = IndividualFile{
			ID:             uuid.New(),
			CategoryFileID: cf.ID,
			RelativePath:   e.RelativePath,
			ContentHash:    e.ContentHash,
			Size:           e.Size,
		}
	}

	if err := s.repository.CreateCategoryFile(ctx, cf, files); err != nil {
		return nil, &PersistenceError{Op: "create_category_file", Err: err}
	}

	manifest, err := s.manifests.Upsert(ctx, version, req.Category, archiveHash, nil)
	if err != nil {
		return nil, err
	}

	// Event failures never fail the upload.
	_ = s.eventSink.CategoryUploaded(ctx, cf, delta)
	_ = s.eventSink.ManifestUpdated(ctx, version.ID, manifest)

	return &UploadResult{
		CategoryFileID: cf.ID,
		ArchiveHash:    archiveHash,
		IsDelta:        delta.IsDelta,
		FileCount:      cf.FileCount,
		TotalSize:      cf.TotalSize,
		AddedFiles:     delta.Added,
		RemovedFiles:   delta.Removed,
		ModifiedFiles:  delta.Modified,
	}, nil
}

func (s *service) ReuseCategory(ctx context.Context, req ReuseRequest) (*UploadResult, error) {
	target, err := s.validateDraftVersion(ctx, req.ModpackID, req.TargetVersionID, req.Category)
	if err != nil {
		return nil, err
	}

	source, err := s.repository.GetVersion(ctx, req.SourceVersionID)
	if err != nil {
		if errors.Is(err, ErrVersionNotFound) {
			return nil, &NotFoundError{Resource: "source version", ID: req.SourceVersionID, Err: ErrVersionNotFound}
		}
		return nil, &PersistenceError{Op: "get_source_version", Err: err}
	}
	if source.ModpackID != req.ModpackID {
		return nil, &NotFoundError{Resource: "source version", ID: req.SourceVersionID, Err: ErrModpackMismatch}
	}

	srcCF, err := s.repository.GetCurrentCategoryFile(ctx, req.SourceVersionID, req.Category)
	if err != nil {
		if errors.Is(err, ErrCategoryFileNotFound) {
			return nil, &NotFoundError{Resource: "source category file for version", ID: req.SourceVersionID, Err: ErrCategoryFileNotFound}
		}
		return nil, &PersistenceError{Op: "get_source_category_file", Err: err}
	}

	srcFiles, err := s.repository.ListIndividualFiles(ctx, srcCF.ID)
	if err != nil {
		return nil, &PersistenceError{Op: "list_source_files", Err: err}
	}

	// A pure metadata copy: the new rows reference the same content hashes
	// and no blob is re-read, re-extracted or re-uploaded. The origin is
	// carried over from the source row, not recomputed, so the copy keeps
	// pointing at the right blobs even if the source version later
	// supersedes its own category file.
	sourceID := req.SourceVersionID
	cf := &CategoryFile{
		ID:              uuid.New(),
		VersionID:       req.TargetVersionID,
		ModpackID:       req.ModpackID,
		Category:        req.Category,
		ArchiveHash:     srcCF.ArchiveHash,
		IsDelta:         srcCF.IsDelta,
		TotalSize:       srcCF.TotalSize,
		FileCount:       srcCF.FileCount,
		OriginVersionID: srcCF.OriginVersionID,
		ReusedFrom:      &sourceID,
		UploadedBy:      req.RequestedBy,
		CreatedAt:       time.Now().UTC(),
	}
	files := make([]IndividualFile, len(srcFiles))
	for i, f := range srcFiles {
		files[i] = IndividualFile{
			ID:             uuid.New(),
			CategoryFileID: cf.ID,
			RelativePath:   f.RelativePath,
			ContentHash:    f.ContentHash,
			Size:           f.Size,
		}
	}

	if err := s.repository.CreateCategoryFile(ctx, cf, files); err != nil {
		return nil, &PersistenceError{Op: "copy_category_file", Err: err}
	}

	manifest, err := s.manifests.Upsert(ctx, target, req.Category, cf.ArchiveHash, &sourceID)
	if err != nil {
		return nil, err
	}

	_ = s.eventSink.CategoryReused(ctx, cf, sourceID)
	_ = s.eventSink.ManifestUpdated(ctx, target.ID, manifest)

	return &UploadResult{
		CategoryFileID: cf.ID,
		ArchiveHash:    cf.ArchiveHash,
		IsDelta:        cf.IsDelta,
		FileCount:      cf.FileCount,
		TotalSize:      cf.TotalSize,
	}, nil
}

func (s *service) GetManifest(ctx context.Context, modpackID, versionID uuid.UUID) (*Manifest, error) {
	return s.manifests.Read(ctx, modpackID, versionID)
}

func (s *service) GetCurrentCategoryFile(ctx context.Context, versionID uuid.UUID, category Category) (*CategoryFile, []IndividualFile, error) {
	if !category.Valid() {
		return nil, nil, &ValidationError{Field: "category", Value: string(category), Err: ErrInvalidCategory}
	}

	cf, err := s.repository.GetCurrentCategoryFile(ctx, versionID, category)
	if err != nil {
		if errors.Is(err, ErrCategoryFileNotFound) {
			return nil, nil, &NotFoundError{Resource: "category file for version", ID: versionID, Err: ErrCategoryFileNotFound}
		}
		return nil, nil, &PersistenceError{Op: "get_category_file", Err: err}
	}

	files, err := s.repository.ListIndividualFiles(ctx, cf.ID)
	if err != nil {
		return nil, nil, &PersistenceError{Op: "list_individual_files", Err: err}
	}

	return cf, files, nil
}

func (s *service) DownloadArchive(ctx context.Context, categoryFileID uuid.UUID) (io.ReadCloser, error) {
	cf, err := s.repository.GetCategoryFile(ctx, categoryFileID)
	if err != nil {
		if errors.Is(err, ErrCategoryFileNotFound) {
			return nil, &NotFoundError{Resource: "category file", ID: categoryFileID, Err: ErrCategoryFileNotFound}
		}
		return nil, &PersistenceError{Op: "get_category_file", Err: err}
	}

	// Reused category files reference blobs written under the version that
	// originally uploaded them; the row records that version at copy time.
	key := s.keys.ArchiveKey(cf.ModpackID, cf.OriginVersionID, string(cf.Category), cf.ArchiveHash)
	rc, err := s.blobStore.Download(ctx, key)
	if err != nil {
		return nil, &StorageError{Key: key, Op: "download_archive", Err: err}
	}

	return rc, nil
}

// validateDraftVersion gates every write: the category must be one of the
// fixed enum values and the target version must be a draft of the claimed
// modpack.
func (s *service) validateDraftVersion(ctx context.Context, modpackID, versionID uuid.UUID, category Category) (*Version, error) {
	if !category.Valid() {
		return nil, &ValidationError{Field: "category", Value: string(category), Err: ErrInvalidCategory}
	}

	version, err := s.repository.GetVersion(ctx, versionID)
	if err != nil {
		if errors.Is(err, ErrVersionNotFound) {
			return nil, &ValidationError{Field: "version", Value: versionID.String(), Err: ErrVersionNotFound}
		}
		return nil, &PersistenceError{Op: "get_version", Err: err}
	}
	if version.ModpackID != modpackID {
		return nil, &ValidationError{Field: "version", Value: versionID.String(), Err: ErrModpackMismatch}
	}
	if version.State != VersionStateDraft {
		return nil, &ValidationError{Field: "version", Value: versionID.String(), Err: ErrVersionNotDraft}
	}

	return version, nil
}

func (s *service) writeBlobs(ctx context.Context, req UploadRequest, archiveHash string, files []ExtractedFile) error {
	archiveKey := s.keys.ArchiveKey(req.ModpackID, req.VersionID, string(req.Category), archiveHash)
	params := UploadParams{
		ObjectKey:   archiveKey,
		ContentType: "application/zip",
		Metadata: map[string]string{
			"category":    string(req.Category),
			"uploaded_by": req.UploadedBy,
		},
	}
	if err := s.blobStore.UploadWithParams(ctx, bytes.NewReader(req.Archive), params); err != nil {
		return &StorageError{Key: archiveKey, Op: "write_archive", Err: err}
	}

	// Files with identical content share a key; write each key once.
	written := make(map[string]struct{}, len(files))
	for _, f := range files {
		key := s.keys.IndividualFileKey(req.ModpackID, req.VersionID, string(req.Category), f.ContentHash)
		if _, ok := written[key]; ok {
			continue
		}
		written[key] = struct{}{}

		if err := s.blobStore.Upload(ctx, key, bytes.NewReader(f.Data)); err != nil {
			return &StorageError{Key: key, Op: "write_individual_file", Err: err}
		}
	}

	return nil
}
