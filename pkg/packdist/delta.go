package packdist

// ComputeDelta diffs a freshly extracted file set against the prior
// version's same category.
//
// A file absent from the baseline counts as added; present with a different
// hash as modified; hash-equal files are not counted. Baseline paths absent
// from the new set count as removed. When no baseline exists at all the
// result is zero-valued with IsDelta false: no diff is computed against a
// nonexistent baseline, and notably Added stays zero rather than counting
// every file.
func ComputeDelta(files []FileEntry, baseline map[string]BaselineFile) Delta {
	if len(baseline) == 0 {
		return Delta{}
	}

	d := Delta{IsDelta: true}
	seen := make(map[string]struct{}, len(files))
	for _, f := range files {
		seen[f.RelativePath] = struct{}{}
		prev, ok := baseline[f.RelativePath]
		switch {
		case !ok:
			d.Added++
		case prev.ContentHash != f.ContentHash:
			d.Modified++
		}
	}

	for path := range baseline {
		if _, ok := seen[path]; !ok {
			d.Removed++
		}
	}

	return d
}

// Entries projects extracted files down to their metadata for delta
// computation and persistence.
func Entries(files []ExtractedFile) []FileEntry {
	entries := make([]FileEntry, len(files))
	for i, f := range files {
		entries[i] = f.FileEntry
	}
	return entries
}
