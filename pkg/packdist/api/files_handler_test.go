package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packforge/packdist/pkg/packdist"
	"github.com/packforge/packdist/pkg/packdist/api"
	memoryrepo "github.com/packforge/packdist/pkg/packdist/repo/memory"
	memorystorage "github.com/packforge/packdist/pkg/packdist/storage/memory"
)

type handlerEnv struct {
	server    *httptest.Server
	repo      *memoryrepo.Repository
	modpackID uuid.UUID
}

func newHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()

	repo := memoryrepo.New()
	svc, err := packdist.New(
		packdist.WithRepository(repo),
		packdist.WithBlobStore(memorystorage.New()),
	)
	require.NoError(t, err)

	handler := api.NewFilesHandler(svc, nil)
	server := httptest.NewServer(handler.Routes())
	t.Cleanup(server.Close)

	return &handlerEnv{server: server, repo: repo, modpackID: uuid.New()}
}

func (e *handlerEnv) seedDraft(t *testing.T, name string) *packdist.Version {
	t.Helper()

	version := &packdist.Version{
		ID:        uuid.New(),
		ModpackID: e.modpackID,
		Name:      name,
		McVersion: "1.20.1",
		State:     packdist.VersionStateDraft,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, e.repo.PutVersion(context.Background(), version))
	return version
}

func buildZip(t *testing.T, entries map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for path, content := range entries {
		w, err := zw.Create(path)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func (e *handlerEnv) uploadURL(versionID uuid.UUID, category string) string {
	return fmt.Sprintf("%s/modpacks/%s/versions/%s/files/%s", e.server.URL, e.modpackID, versionID, category)
}

func (e *handlerEnv) upload(t *testing.T, versionID uuid.UUID, category string, body []byte) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, e.uploadURL(versionID, category), bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("X-Uploaded-By", "tester")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()

	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestUploadCategoryArchive(t *testing.T) {
	env := newHandlerEnv(t)
	version := env.seedDraft(t, "1.0.0")

	archive := buildZip(t, map[string]string{
		"alpha.jar": "alpha",
		"beta.jar":  "beta",
	})

	resp := env.upload(t, version.ID, "mods", archive)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	result := decodeJSON[packdist.UploadResult](t, resp)
	assert.Equal(t, packdist.HashBytes(archive), result.ArchiveHash)
	assert.Equal(t, 2, result.FileCount)
	assert.False(t, result.IsDelta)
}

func TestUploadCategoryArchive_BadRequests(t *testing.T) {
	env := newHandlerEnv(t)
	version := env.seedDraft(t, "1.0.0")
	archive := buildZip(t, map[string]string{"a.jar": "a"})

	t.Run("non-zip body rejected before the engine runs", func(t *testing.T) {
		resp := env.upload(t, version.ID, "mods", []byte("plain text"))
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("invalid category", func(t *testing.T) {
		resp := env.upload(t, version.ID, "textures", archive)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unknown version maps to unprocessable", func(t *testing.T) {
		resp := env.upload(t, uuid.New(), "mods", archive)
		require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

		body := decodeJSON[api.ErrorResponse](t, resp)
		assert.False(t, body.Retryable)
	})

	t.Run("invalid reuse_from query", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodPost, env.uploadURL(version.ID, "configs")+"?reuse_from=not-a-uuid", bytes.NewReader(archive))
		require.NoError(t, err)

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestReuseCategoryEndpoint(t *testing.T) {
	env := newHandlerEnv(t)

	source := env.seedDraft(t, "1.0.0")
	archive := buildZip(t, map[string]string{"settings.toml": "enabled = true"})
	resp := env.upload(t, source.ID, "configs", archive)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	released := time.Now().UTC()
	source.State = packdist.VersionStatePublished
	source.ReleasedAt = &released
	require.NoError(t, env.repo.PutVersion(context.Background(), source))

	target := env.seedDraft(t, "1.1.0")

	body, err := json.Marshal(api.ReuseRequest{SourceVersionID: source.ID.String()})
	require.NoError(t, err)

	url := env.uploadURL(target.ID, "configs") + "/reuse"
	reuseResp, err := http.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, reuseResp.StatusCode)

	result := decodeJSON[packdist.UploadResult](t, reuseResp)
	assert.Equal(t, packdist.HashBytes(archive), result.ArchiveHash)
	assert.Equal(t, 0, result.AddedFiles)

	t.Run("category file listing carries provenance", func(t *testing.T) {
		listURL := fmt.Sprintf("%s/versions/%s/files/configs", env.server.URL, target.ID)
		resp, err := http.Get(listURL)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		listing := decodeJSON[api.CategoryFileResponse](t, resp)
		assert.Equal(t, source.ID.String(), listing.ReusedFrom)
		assert.Len(t, listing.Files, 1)
		assert.Equal(t, "settings.toml", listing.Files[0].RelativePath)
	})

	t.Run("manifest records reuse", func(t *testing.T) {
		manifestURL := fmt.Sprintf("%s/modpacks/%s/versions/%s/manifest", env.server.URL, env.modpackID, target.ID)
		resp, err := http.Get(manifestURL)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		manifest := decodeJSON[packdist.Manifest](t, resp)
		assert.Equal(t, packdist.HashBytes(archive), manifest.Files[packdist.CategoryConfigs])
		assert.Equal(t, source.ID, manifest.ReusedFrom[packdist.CategoryConfigs])
	})

	t.Run("archive download resolves through the reuse chain", func(t *testing.T) {
		downloadURL := fmt.Sprintf("%s/category-files/%s/archive", env.server.URL, result.CategoryFileID)
		resp, err := http.Get(downloadURL)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/zip", resp.Header.Get("Content-Type"))

		data, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, archive, data)
	})
}

func TestGetManifest_NotFound(t *testing.T) {
	env := newHandlerEnv(t)
	version := env.seedDraft(t, "1.0.0")

	url := fmt.Sprintf("%s/modpacks/%s/versions/%s/manifest", env.server.URL, env.modpackID, version.ID)
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetCategoryFile_NotFound(t *testing.T) {
	env := newHandlerEnv(t)
	version := env.seedDraft(t, "1.0.0")

	url := fmt.Sprintf("%s/versions/%s/files/mods", env.server.URL, version.ID)
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
