package packdist

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"sort"

	"github.com/klauspost/compress/zip"
)

// ExtractArchive walks every non-directory entry of a zip container,
// decompresses it, and returns one ExtractedFile per entry with the SHA-256
// of the decompressed bytes and the decompressed size. Zero-length directory
// placeholders are skipped and nested path structure is preserved. When the
// container holds the same path twice, the later entry wins, matching how
// archivers overwrite on extraction.
//
// Output is sorted by relative path so repeated extraction of the same bytes
// yields identical results. The only validation performed here is
// readability; extension and magic-byte pre-checks belong to the caller.
func ExtractArchive(archive []byte) ([]ExtractedFile, error) {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, &ArchiveError{Err: err}
	}

	byPath := make(map[string]ExtractedFile, len(zr.File))
	for _, entry := range zr.File {
		if entry.FileInfo().IsDir() {
			continue
		}

		data, err := readEntry(entry)
		if err != nil {
			return nil, &ArchiveError{Entry: entry.Name, Err: err}
		}

		byPath[entry.Name] = ExtractedFile{
			FileEntry: FileEntry{
				RelativePath: entry.Name,
				ContentHash:  HashBytes(data),
				Size:         int64(len(data)),
			},
			Data: data,
		}
	}

	files := make([]ExtractedFile, 0, len(byPath))
	for _, f := range byPath {
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].RelativePath < files[j].RelativePath
	})

	return files, nil
}

func readEntry(entry *zip.File) ([]byte, error) {
	rc, err := entry.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}

	// UncompressedSize64 lies in hand-crafted archives; trust the bytes we
	// actually decompressed but reject truncated streams.
	if entry.UncompressedSize64 > 0 && uint64(len(data)) != entry.UncompressedSize64 {
		return nil, errors.New("decompressed size mismatch")
	}

	return data, nil
}

// HashBytes returns the lowercase hex SHA-256 of data. It is the single
// content-addressing function for archives, individual files and blob keys.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
