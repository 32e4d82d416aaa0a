package memory_test

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packforge/packdist/pkg/packdist"
	"github.com/packforge/packdist/pkg/packdist/storage/memory"
)

func TestUploadDownload(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	require.NoError(t, store.Upload(ctx, "a/b/c.zip", bytes.NewReader([]byte("payload"))))

	rc, err := store.Download(ctx, "a/b/c.zip")
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)
}

func TestUploadOverwrites(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	require.NoError(t, store.Upload(ctx, "key", bytes.NewReader([]byte("first"))))
	require.NoError(t, store.Upload(ctx, "key", bytes.NewReader([]byte("second"))))

	rc, err := store.Download(ctx, "key")
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), data)
}

func TestUploadWithParams(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	err := store.UploadWithParams(ctx, bytes.NewReader([]byte("{}")), packdist.UploadParams{
		ObjectKey:   "m/v/manifest.json",
		ContentType: "application/json",
		Metadata:    map[string]string{"category": "mods"},
	})
	require.NoError(t, err)

	meta, err := store.GetObjectMeta(ctx, "m/v/manifest.json")
	require.NoError(t, err)
	assert.Equal(t, "application/json", meta.ContentType)
	assert.Equal(t, int64(2), meta.Size)
	assert.Equal(t, "mods", meta.Metadata["category"])
	assert.False(t, meta.UpdatedAt.IsZero())
}

func TestMissingObject(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	_, err := store.Download(ctx, "missing")
	assert.ErrorIs(t, err, packdist.ErrObjectNotFound)

	_, err = store.GetObjectMeta(ctx, "missing")
	assert.ErrorIs(t, err, packdist.ErrObjectNotFound)
}
