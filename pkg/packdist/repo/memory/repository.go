package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/packforge/packdist/pkg/packdist"
)

// Repository implements packdist.Repository using in-memory storage. It also
// exposes PutVersion for seeding version read models, which in production
// arrive from the external lifecycle owner.
type Repository struct {
	mu            sync.RWMutex
	versions      map[uuid.UUID]*packdist.Version
	categoryFiles map[uuid.UUID]*packdist.CategoryFile
	files         map[uuid.UUID][]packdist.IndividualFile // category_file_id -> files
	byVersion     map[uuid.UUID][]uuid.UUID               // version_id -> []category_file_id, insertion order
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		versions:      make(map[uuid.UUID]*packdist.Version),
		categoryFiles: make(map[uuid.UUID]*packdist.CategoryFile),
		files:         make(map[uuid.UUID][]packdist.IndividualFile),
		byVersion:     make(map[uuid.UUID][]uuid.UUID),
	}
}

// PutVersion stores or replaces a version read model.
func (r *Repository) PutVersion(ctx context.Context, version *packdist.Version) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	versionCopy := *version
	r.versions[version.ID] = &versionCopy
	return nil
}

func (r *Repository) GetVersion(ctx context.Context, id uuid.UUID) (*packdist.Version, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	version, exists := r.versions[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", packdist.ErrVersionNotFound, id)
	}

	versionCopy := *version
	return &versionCopy, nil
}

func (r *Repository) CreateCategoryFile(ctx context.Context, cf *packdist.CategoryFile, files []packdist.IndividualFile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Copies keep callers from mutating stored rows; both maps are updated
	// under one lock acquisition so no reader observes the category file
	// without its members.
	cfCopy := *cf
	fileCopies := make([]packdist.IndividualFile, len(files))
	copy(fileCopies, files)

	r.categoryFiles[cf.ID] = &cfCopy
	r.files[cf.ID] = fileCopies
	r.byVersion[cf.VersionID] = append(r.byVersion[cf.VersionID], cf.ID)

	return nil
}

func (r *Repository) GetCategoryFile(ctx context.Context, id uuid.UUID) (*packdist.CategoryFile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cf, exists := r.categoryFiles[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", packdist.ErrCategoryFileNotFound, id)
	}

	cfCopy := *cf
	return &cfCopy, nil
}

func (r *Repository) GetCurrentCategoryFile(ctx context.Context, versionID uuid.UUID, category packdist.Category) (*packdist.CategoryFile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cf := r.currentLocked(versionID, category)
	if cf == nil {
		return nil, fmt.Errorf("%w: version %s category %s", packdist.ErrCategoryFileNotFound, versionID, category)
	}

	cfCopy := *cf
	return &cfCopy, nil
}

func (r *Repository) FindLatestCategoryFile(ctx context.Context, modpackID uuid.UUID, category packdist.Category) (*packdist.CategoryFile, []packdist.IndividualFile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// Most recently released version of the modpack that carries the
	// category. Draft versions never serve as a baseline.
	var best *packdist.CategoryFile
	var bestVersion *packdist.Version
	for _, version := range r.versions {
		if version.ModpackID != modpackID || version.ReleasedAt == nil {
			continue
		}
		cf := r.currentLocked(version.ID, category)
		if cf == nil {
			continue
		}
		if bestVersion == nil || version.ReleasedAt.After(*bestVersion.ReleasedAt) ||
			(version.ReleasedAt.Equal(*bestVersion.ReleasedAt) && newerCategoryFile(cf, best)) {
			best = cf
			bestVersion = version
		}
	}

	if best == nil {
		return nil, nil, fmt.Errorf("%w: modpack %s category %s", packdist.ErrCategoryFileNotFound, modpackID, category)
	}

	cfCopy := *best
	files := make([]packdist.IndividualFile, len(r.files[best.ID]))
	copy(files, r.files[best.ID])

	return &cfCopy, files, nil
}

func (r *Repository) ListIndividualFiles(ctx context.Context, categoryFileID uuid.UUID) ([]packdist.IndividualFile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, exists := r.categoryFiles[categoryFileID]; !exists {
		return nil, fmt.Errorf("%w: %s", packdist.ErrCategoryFileNotFound, categoryFileID)
	}

	files := make([]packdist.IndividualFile, len(r.files[categoryFileID]))
	copy(files, r.files[categoryFileID])

	return files, nil
}

// newerCategoryFile breaks release-time ties the same way the SQL backend
// orders candidates: newer created_at first, then ascending id. Map
// iteration order must never decide the baseline.
func newerCategoryFile(a, b *packdist.CategoryFile) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID.String() < b.ID.String()
}

// currentLocked returns the most recently inserted category file for a
// (version, category) pair. A re-upload supersedes earlier rows, so the last
// insertion wins. Caller holds the lock.
func (r *Repository) currentLocked(versionID uuid.UUID, category packdist.Category) *packdist.CategoryFile {
	ids := r.byVersion[versionID]
	for i := len(ids) - 1; i >= 0; i-- {
		cf := r.categoryFiles[ids[i]]
		if cf != nil && cf.Category == category {
			return cf
		}
	}
	return nil
}
