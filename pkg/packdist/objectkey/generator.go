// Package objectkey defines the blob key scheme for the distribution engine.
//
// Keys embed the content hash, so identical bytes always land on the
// identical key and re-writes are idempotent. The layout is fixed because
// installer clients construct the same keys independently:
//
//	{modpack}/{version}/{category}/{archiveHash}.zip
//	{modpack}/{version}/{category}/individual/{fileHash}
//	{modpack}/{version}/manifest.json
package objectkey

import (
	"fmt"

	"github.com/google/uuid"
)

// Generator defines the interface for blob key generation strategies.
type Generator interface {
	// ArchiveKey returns the key for a whole category archive.
	ArchiveKey(modpackID, versionID uuid.UUID, category string, archiveHash string) string

	// IndividualFileKey returns the key for one extracted file.
	IndividualFileKey(modpackID, versionID uuid.UUID, category string, fileHash string) string

	// ManifestKey returns the fixed per-version manifest key.
	ManifestKey(modpackID, versionID uuid.UUID) string
}

// DefaultGenerator implements the canonical key layout.
type DefaultGenerator struct{}

// NewDefaultGenerator returns the generator installer clients expect.
func NewDefaultGenerator() Generator {
	return &DefaultGenerator{}
}

func (g *DefaultGenerator) ArchiveKey(modpackID, versionID uuid.UUID, category, archiveHash string) string {
	return fmt.Sprintf("%s/%s/%s/%s.zip", modpackID, versionID, category, archiveHash)
}

func (g *DefaultGenerator) IndividualFileKey(modpackID, versionID uuid.UUID, category, fileHash string) string {
	return fmt.Sprintf("%s/%s/%s/individual/%s", modpackID, versionID, category, fileHash)
}

func (g *DefaultGenerator) ManifestKey(modpackID, versionID uuid.UUID) string {
	return fmt.Sprintf("%s/%s/manifest.json", modpackID, versionID)
}

// PrefixedGenerator wraps another generator and prefixes every key, for
// deployments that share a bucket with other applications.
type PrefixedGenerator struct {
	Prefix string
	Base   Generator
}

// NewPrefixedGenerator returns a generator that nests the canonical layout
// under prefix.
func NewPrefixedGenerator(prefix string) Generator {
	return &PrefixedGenerator{Prefix: prefix, Base: NewDefaultGenerator()}
}

func (g *PrefixedGenerator) ArchiveKey(modpackID, versionID uuid.UUID, category, archiveHash string) string {
	return g.Prefix + "/" + g.Base.ArchiveKey(modpackID, versionID, category, archiveHash)
}

func (g *PrefixedGenerator) IndividualFileKey(modpackID, versionID uuid.UUID, category, fileHash string) string {
	return g.Prefix + "/" + g.Base.IndividualFileKey(modpackID, versionID, category, fileHash)
}

func (g *PrefixedGenerator) ManifestKey(modpackID, versionID uuid.UUID) string {
	return g.Prefix + "/" + g.Base.ManifestKey(modpackID, versionID)
}
