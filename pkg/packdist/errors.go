package packdist

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Error types
var (
	// ErrVersionNotFound indicates the target or source version does not exist
	ErrVersionNotFound = errors.New("version not found")

	// ErrCategoryFileNotFound indicates no category file exists for a (version, category)
	ErrCategoryFileNotFound = errors.New("category file not found")

	// ErrObjectNotFound indicates a blob is absent from the blob store
	ErrObjectNotFound = errors.New("object not found")

	// ErrManifestNotFound indicates no manifest has been written for a version yet
	ErrManifestNotFound = errors.New("manifest not found")

	// ErrInvalidCategory indicates a category outside the fixed enum
	ErrInvalidCategory = errors.New("invalid category")

	// ErrVersionNotDraft indicates the target version is not in a draft state
	ErrVersionNotDraft = errors.New("version is not in draft state")

	// ErrModpackMismatch indicates a version belongs to a different modpack
	ErrModpackMismatch = errors.New("version belongs to a different modpack")
)

// ValidationError reports a request rejected before any side effect: a bad
// category or a version in the wrong lifecycle state. Never retryable.
type ValidationError struct {
	Field string
	Value string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s %q: %v", e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("validation failed: %v", e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Retryable reports whether retrying the identical request could succeed.
func (e *ValidationError) Retryable() bool { return false }

// ArchiveError reports a malformed or unreadable archive. Terminal with no
// side effects. Never retryable.
type ArchiveError struct {
	Entry string // offending entry path, empty when the container itself is bad
	Err   error
}

func (e *ArchiveError) Error() string {
	if e.Entry != "" {
		return fmt.Sprintf("archive entry %q unreadable: %v", e.Entry, e.Err)
	}
	return fmt.Sprintf("malformed archive: %v", e.Err)
}

func (e *ArchiveError) Unwrap() error { return e.Err }

func (e *ArchiveError) Retryable() bool { return false }

// StorageError reports a blob store read or write failure. The engine
// performs no internal retry; content-addressed writes make retrying the
// whole upload safe.
type StorageError struct {
	Key string
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Retryable() bool { return true }

// NotFoundError reports a missing reuse source: the source version, or its
// category file, does not exist for the same modpack. The orchestrator
// treats it as non-fatal and falls back to a standard upload.
type NotFoundError struct {
	Resource string
	ID       uuid.UUID
	Err      error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Resource, e.ID, e.Err)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

func (e *NotFoundError) Retryable() bool { return false }

// PersistenceError reports a failed metadata transaction. Blobs written
// before the transaction opened are orphaned and left for external garbage
// collection; retrying the identical upload is safe.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence operation %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Retryable() bool { return true }

// Retryable reports whether err (or any error it wraps) is safe and
// worthwhile to retry with the identical request.
func Retryable(err error) bool {
	var r interface{ Retryable() bool }
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return false
}
