package packdist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/google/uuid"

	"github.com/packforge/packdist/pkg/packdist/objectkey"
)

// ManifestWriter maintains the per-version manifest blob. Both update paths,
// fresh upload and cross-version reuse, go through Upsert; the only
// difference is whether reusedFrom is set.
type ManifestWriter struct {
	store BlobStore
	keys  objectkey.Generator
}

// NewManifestWriter creates a manifest writer on top of a blob store.
func NewManifestWriter(store BlobStore, keys objectkey.Generator) *ManifestWriter {
	if keys == nil {
		keys = objectkey.NewDefaultGenerator()
	}
	return &ManifestWriter{store: store, keys: keys}
}

// Upsert reads the existing manifest for the version if present, merges
// files[category] = archiveHash, sets or clears reused_from[category], and
// writes the result back. After a successful Upsert the manifest's
// files[category] equals the database's current CategoryFile archive hash
// for that category.
func (w *ManifestWriter) Upsert(ctx context.Context, version *Version, category Category, archiveHash string, reusedFrom *uuid.UUID) (*Manifest, error) {
	key := w.keys.ManifestKey(version.ModpackID, version.ID)

	manifest, err := w.read(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrObjectNotFound) {
			return nil, err
		}
		manifest = &Manifest{Files: make(map[Category]string)}
	}

	// Version descriptor fields are refreshed on every write so a renamed
	// draft does not ship a stale manifest.
	manifest.Name = version.Name
	manifest.Version = version.Name
	manifest.McVersion = version.McVersion
	manifest.ForgeVersion = version.ForgeVersion

	if manifest.Files == nil {
		manifest.Files = make(map[Category]string)
	}
	manifest.Files[category] = archiveHash

	if reusedFrom != nil {
		if manifest.ReusedFrom == nil {
			manifest.ReusedFrom = make(map[Category]uuid.UUID)
		}
		manifest.ReusedFrom[category] = *reusedFrom
	} else if manifest.ReusedFrom != nil {
		delete(manifest.ReusedFrom, category)
		if len(manifest.ReusedFrom) == 0 {
			manifest.ReusedFrom = nil
		}
	}

	if err := w.write(ctx, key, manifest); err != nil {
		return nil, err
	}

	return manifest, nil
}

// Read returns the current manifest for a version, or an error wrapping
// ErrManifestNotFound when none has been written yet.
func (w *ManifestWriter) Read(ctx context.Context, modpackID, versionID uuid.UUID) (*Manifest, error) {
	key := w.keys.ManifestKey(modpackID, versionID)
	manifest, err := w.read(ctx, key)
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			return nil, &NotFoundError{Resource: "manifest for version", ID: versionID, Err: ErrManifestNotFound}
		}
		return nil, err
	}
	return manifest, nil
}

func (w *ManifestWriter) read(ctx context.Context, key string) (*Manifest, error) {
	rc, err := w.store.Download(ctx, key)
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			return nil, err
		}
		return nil, &StorageError{Key: key, Op: "read_manifest", Err: err}
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, &StorageError{Key: key, Op: "read_manifest", Err: err}
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, &StorageError{Key: key, Op: "decode_manifest", Err: err}
	}

	return &manifest, nil
}

func (w *ManifestWriter) write(ctx context.Context, key string, manifest *Manifest) error {
	// Indented output keeps the manifest human-diffable for publishers.
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return &StorageError{Key: key, Op: "encode_manifest", Err: err}
	}

	params := UploadParams{
		ObjectKey:   key,
		ContentType: "application/json",
	}
	if err := w.store.UploadWithParams(ctx, bytes.NewReader(data), params); err != nil {
		return &StorageError{Key: key, Op: "write_manifest", Err: err}
	}

	return nil
}
