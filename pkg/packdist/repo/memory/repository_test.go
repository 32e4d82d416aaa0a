package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packforge/packdist/pkg/packdist"
	"github.com/packforge/packdist/pkg/packdist/repo/memory"
)

func seedVersion(t *testing.T, repo *memory.Repository, modpackID uuid.UUID, name string, releasedAt *time.Time) *packdist.Version {
	t.Helper()

	state := packdist.VersionStateDraft
	if releasedAt != nil {
		state = packdist.VersionStatePublished
	}
	version := &packdist.Version{
		ID:         uuid.New(),
		ModpackID:  modpackID,
		Name:       name,
		McVersion:  "1.20.1",
		State:      state,
		ReleasedAt: releasedAt,
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, repo.PutVersion(context.Background(), version))
	return version
}

func newCategoryFile(versionID, modpackID uuid.UUID, category packdist.Category, hash string) (*packdist.CategoryFile, []packdist.IndividualFile) {
	cf := &packdist.CategoryFile{
		ID:          uuid.New(),
		VersionID:   versionID,
		ModpackID:   modpackID,
		Category:    category,
		ArchiveHash: hash,
		FileCount:   1,
		TotalSize:   10,
		CreatedAt:   time.Now().UTC(),
	}
	files := []packdist.IndividualFile{
		{ID: uuid.New(), CategoryFileID: cf.ID, RelativePath: "a.jar", ContentHash: "h-" + hash, Size: 10},
	}
	return cf, files
}

func TestGetVersion(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	modpackID := uuid.New()
	version := seedVersion(t, repo, modpackID, "1.0.0", nil)

	t.Run("returns stored version", func(t *testing.T) {
		got, err := repo.GetVersion(ctx, version.ID)
		require.NoError(t, err)
		assert.Equal(t, version.ID, got.ID)
		assert.Equal(t, modpackID, got.ModpackID)
	})

	t.Run("returned copy is independent", func(t *testing.T) {
		got, err := repo.GetVersion(ctx, version.ID)
		require.NoError(t, err)
		got.Name = "mutated"

		again, err := repo.GetVersion(ctx, version.ID)
		require.NoError(t, err)
		assert.Equal(t, "1.0.0", again.Name)
	})

	t.Run("unknown version", func(t *testing.T) {
		_, err := repo.GetVersion(ctx, uuid.New())
		assert.ErrorIs(t, err, packdist.ErrVersionNotFound)
	})
}

func TestCreateAndGetCategoryFile(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	modpackID := uuid.New()
	version := seedVersion(t, repo, modpackID, "1.0.0", nil)

	cf, files := newCategoryFile(version.ID, modpackID, packdist.CategoryMods, "hash1")
	require.NoError(t, repo.CreateCategoryFile(ctx, cf, files))

	t.Run("get by id", func(t *testing.T) {
		got, err := repo.GetCategoryFile(ctx, cf.ID)
		require.NoError(t, err)
		assert.Equal(t, "hash1", got.ArchiveHash)
	})

	t.Run("list individual files", func(t *testing.T) {
		got, err := repo.ListIndividualFiles(ctx, cf.ID)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "a.jar", got[0].RelativePath)
	})

	t.Run("unknown category file", func(t *testing.T) {
		_, err := repo.GetCategoryFile(ctx, uuid.New())
		assert.ErrorIs(t, err, packdist.ErrCategoryFileNotFound)

		_, err = repo.ListIndividualFiles(ctx, uuid.New())
		assert.ErrorIs(t, err, packdist.ErrCategoryFileNotFound)
	})
}

func TestGetCurrentCategoryFile_LatestWins(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	modpackID := uuid.New()
	version := seedVersion(t, repo, modpackID, "1.0.0", nil)

	first, files1 := newCategoryFile(version.ID, modpackID, packdist.CategoryMods, "hash1")
	require.NoError(t, repo.CreateCategoryFile(ctx, first, files1))
	second, files2 := newCategoryFile(version.ID, modpackID, packdist.CategoryMods, "hash2")
	require.NoError(t, repo.CreateCategoryFile(ctx, second, files2))

	// Re-uploads supersede; both rows remain readable by ID.
	current, err := repo.GetCurrentCategoryFile(ctx, version.ID, packdist.CategoryMods)
	require.NoError(t, err)
	assert.Equal(t, second.ID, current.ID)

	superseded, err := repo.GetCategoryFile(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "hash1", superseded.ArchiveHash)

	_, err = repo.GetCurrentCategoryFile(ctx, version.ID, packdist.CategoryConfigs)
	assert.ErrorIs(t, err, packdist.ErrCategoryFileNotFound)
}

func TestFindLatestCategoryFile(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	modpackID := uuid.New()

	older := time.Now().UTC().Add(-48 * time.Hour)
	newer := time.Now().UTC().Add(-24 * time.Hour)

	v1 := seedVersion(t, repo, modpackID, "1.0.0", &older)
	v2 := seedVersion(t, repo, modpackID, "1.1.0", &newer)
	draft := seedVersion(t, repo, modpackID, "1.2.0", nil)

	cf1, files1 := newCategoryFile(v1.ID, modpackID, packdist.CategoryMods, "hash-old")
	require.NoError(t, repo.CreateCategoryFile(ctx, cf1, files1))
	cf2, files2 := newCategoryFile(v2.ID, modpackID, packdist.CategoryMods, "hash-new")
	require.NoError(t, repo.CreateCategoryFile(ctx, cf2, files2))
	cfDraft, filesDraft := newCategoryFile(draft.ID, modpackID, packdist.CategoryMods, "hash-draft")
	require.NoError(t, repo.CreateCategoryFile(ctx, cfDraft, filesDraft))

	t.Run("picks most recently released version", func(t *testing.T) {
		cf, files, err := repo.FindLatestCategoryFile(ctx, modpackID, packdist.CategoryMods)
		require.NoError(t, err)
		assert.Equal(t, cf2.ID, cf.ID)
		require.Len(t, files, 1)
		assert.Equal(t, "h-hash-new", files[0].ContentHash)
	})

	t.Run("skips released versions lacking the category", func(t *testing.T) {
		cfCfg, filesCfg := newCategoryFile(v1.ID, modpackID, packdist.CategoryConfigs, "hash-cfg")
		require.NoError(t, repo.CreateCategoryFile(ctx, cfCfg, filesCfg))

		cf, _, err := repo.FindLatestCategoryFile(ctx, modpackID, packdist.CategoryConfigs)
		require.NoError(t, err)
		assert.Equal(t, cfCfg.ID, cf.ID)
	})

	t.Run("release-time ties resolve by created_at then id", func(t *testing.T) {
		at := time.Now().UTC().Add(-12 * time.Hour)
		tiedA := seedVersion(t, repo, modpackID, "2.0.0", &at)
		tiedB := seedVersion(t, repo, modpackID, "2.0.1", &at)

		cfA, filesA := newCategoryFile(tiedA.ID, modpackID, packdist.CategoryResources, "hash-a")
		cfA.CreatedAt = time.Now().UTC().Add(-2 * time.Hour)
		require.NoError(t, repo.CreateCategoryFile(ctx, cfA, filesA))
		cfB, filesB := newCategoryFile(tiedB.ID, modpackID, packdist.CategoryResources, "hash-b")
		cfB.CreatedAt = time.Now().UTC().Add(-1 * time.Hour)
		require.NoError(t, repo.CreateCategoryFile(ctx, cfB, filesB))

		// Repeated lookups must agree with the SQL ordering (released_at
		// DESC, created_at DESC, id) regardless of map iteration order.
		for i := 0; i < 10; i++ {
			cf, _, err := repo.FindLatestCategoryFile(ctx, modpackID, packdist.CategoryResources)
			require.NoError(t, err)
			assert.Equal(t, cfB.ID, cf.ID)
		}
	})

	t.Run("no released version carries the category", func(t *testing.T) {
		_, _, err := repo.FindLatestCategoryFile(ctx, modpackID, packdist.CategoryExtras)
		assert.ErrorIs(t, err, packdist.ErrCategoryFileNotFound)
	})

	t.Run("other modpacks are invisible", func(t *testing.T) {
		_, _, err := repo.FindLatestCategoryFile(ctx, uuid.New(), packdist.CategoryMods)
		assert.ErrorIs(t, err, packdist.ErrCategoryFileNotFound)
	})
}
