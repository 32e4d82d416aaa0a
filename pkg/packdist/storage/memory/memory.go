package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/packforge/packdist/pkg/packdist"
)

// Backend is an in-memory implementation of the packdist.BlobStore interface
type Backend struct {
	mu          sync.RWMutex
	objects     map[string][]byte
	contentType map[string]string
	metadata    map[string]map[string]string
	updatedAt   map[string]time.Time
}

// New creates a new in-memory storage backend
func New() packdist.BlobStore {
	return &Backend{
		objects:     make(map[string][]byte),
		contentType: make(map[string]string),
		metadata:    make(map[string]map[string]string),
		updatedAt:   make(map[string]time.Time),
	}
}

// Upload uploads content directly
func (b *Backend) Upload(ctx context.Context, objectKey string, reader io.Reader) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.objects[objectKey] = data
	b.updatedAt[objectKey] = time.Now().UTC()
	if _, exists := b.contentType[objectKey]; !exists {
		b.contentType[objectKey] = "application/octet-stream"
	}
	return nil
}

// UploadWithParams uploads content with an explicit content type and metadata
func (b *Backend) UploadWithParams(ctx context.Context, reader io.Reader, params packdist.UploadParams) error {
	if err := b.Upload(ctx, params.ObjectKey, reader); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.contentType[params.ObjectKey] = params.ContentType
	if params.Metadata != nil {
		meta := make(map[string]string, len(params.Metadata))
		for k, v := range params.Metadata {
			meta[k] = v
		}
		b.metadata[params.ObjectKey] = meta
	}
	return nil
}

// Download downloads content directly
func (b *Backend) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, exists := b.objects[objectKey]
	if !exists {
		return nil, fmt.Errorf("%w: %s", packdist.ErrObjectNotFound, objectKey)
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

// GetObjectMeta retrieves metadata for an object in memory
func (b *Backend) GetObjectMeta(ctx context.Context, objectKey string) (*packdist.ObjectMeta, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, exists := b.objects[objectKey]
	if !exists {
		return nil, fmt.Errorf("%w: %s", packdist.ErrObjectNotFound, objectKey)
	}

	meta := &packdist.ObjectMeta{
		Key:         objectKey,
		Size:        int64(len(data)),
		ContentType: b.contentType[objectKey],
		UpdatedAt:   b.updatedAt[objectKey],
		Metadata:    b.metadata[objectKey],
	}

	return meta, nil
}
