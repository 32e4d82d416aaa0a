package packdist

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// NoopEventSink is a no-operation implementation of EventSink, useful when
// no event handling is needed or for testing.
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-operation event sink.
func NewNoopEventSink() EventSink {
	return &NoopEventSink{}
}

func (n *NoopEventSink) CategoryUploaded(ctx context.Context, cf *CategoryFile, delta Delta) error {
	return nil
}

func (n *NoopEventSink) CategoryReused(ctx context.Context, cf *CategoryFile, sourceVersionID uuid.UUID) error {
	return nil
}

func (n *NoopEventSink) ManifestUpdated(ctx context.Context, versionID uuid.UUID, manifest *Manifest) error {
	return nil
}

// SlogEventSink logs upload lifecycle events through a slog.Logger.
type SlogEventSink struct {
	logger *slog.Logger
}

// NewSlogEventSink creates an event sink backed by logger. A nil logger
// falls back to slog.Default.
func NewSlogEventSink(logger *slog.Logger) EventSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogEventSink{logger: logger}
}

func (s *SlogEventSink) CategoryUploaded(ctx context.Context, cf *CategoryFile, delta Delta) error {
	s.logger.InfoContext(ctx, "category uploaded",
		"category_file_id", cf.ID,
		"version_id", cf.VersionID,
		"category", cf.Category,
		"archive_hash", cf.ArchiveHash,
		"file_count", cf.FileCount,
		"total_size", cf.TotalSize,
		"is_delta", cf.IsDelta,
		"added", delta.Added,
		"removed", delta.Removed,
		"modified", delta.Modified,
	)
	return nil
}

func (s *SlogEventSink) CategoryReused(ctx context.Context, cf *CategoryFile, sourceVersionID uuid.UUID) error {
	s.logger.InfoContext(ctx, "category reused",
		"category_file_id", cf.ID,
		"version_id", cf.VersionID,
		"category", cf.Category,
		"source_version_id", sourceVersionID,
	)
	return nil
}

func (s *SlogEventSink) ManifestUpdated(ctx context.Context, versionID uuid.UUID, manifest *Manifest) error {
	s.logger.InfoContext(ctx, "manifest updated",
		"version_id", versionID,
		"categories", len(manifest.Files),
	)
	return nil
}
