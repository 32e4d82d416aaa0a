// Package packdist provides a reusable library for distributing versioned
// modpack content as content-addressed file bundles.
//
// A modpack version ships its content in fixed categories (mods, configs,
// resources, resource packs, shader packs, extras). Each category is uploaded
// as one archive, which the engine decomposes into individually hashed files,
// diffs against the prior version's same category, and records in a
// per-version manifest. A category that is byte-identical to an earlier
// version can be reused without re-uploading any bytes.
//
// The package exposes a single Service interface that orchestrates archive
// processing, delta computation, blob storage, transactional persistence and
// manifest maintenance. Implementations of repositories (e.g., memory,
// Postgres) and blob stores (e.g., memory, filesystem, S3) are provided under
// subpackages.
//
// Content Addressing
//
// Every stored object is keyed by the SHA-256 of its bytes, so identical
// content always maps to the identical key in both the blob store and the
// database. Re-writing identical bytes is a no-op in effect, which makes
// every upload safe to retry.
package packdist
