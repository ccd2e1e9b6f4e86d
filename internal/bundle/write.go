package bundle

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// AssetFile is one asset to pack. Exactly one of SrcPath or Data supplies
// the content.
type AssetFile struct {
	// RelPath is the path under assets/ inside the archive.
	RelPath string
	// SrcPath is a file on disk to copy.
	SrcPath string
	// Data is used when SrcPath is empty.
	Data []byte
}

// WriteResult describes a written bundle.
type WriteResult struct {
	Path   string
	Assets int
	Size   int64
}

// Encode renders the metadata document as written into meta.json.
func Encode(meta *Metadata) ([]byte, error) {
	if meta == nil {
		return nil, fmt.Errorf("metadata is nil")
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	return data, nil
}

// Write packs meta and files into a zip archive at dest.
//
// The archive is assembled in a temp file next to dest and renamed into
// place only after it is complete and synced, so a failed write never leaves
// a file at dest. Files sharing a RelPath are packed once.
func Write(dest string, meta *Metadata, files []AssetFile) (*WriteResult, error) {
	metaJSON, err := Encode(meta)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, "."+filepath.Base(dest)+".tmp.*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath) // no-op after successful rename

	modified := time.UnixMilli(meta.CreatedAt)
	if meta.CreatedAt == 0 {
		modified = time.Now()
	}

	zw := zip.NewWriter(tmpFile)
	packed, err := writeEntries(zw, metaJSON, files, modified)
	if err != nil {
		zw.Close()
		tmpFile.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		tmpFile.Close()
		return nil, fmt.Errorf("finalize zip: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return nil, fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return nil, fmt.Errorf("rename temp file: %w", err)
	}

	info, err := os.Stat(dest)
	if err != nil {
		return nil, fmt.Errorf("stat bundle: %w", err)
	}
	return &WriteResult{Path: dest, Assets: packed, Size: info.Size()}, nil
}

func writeEntries(zw *zip.Writer, metaJSON []byte, files []AssetFile, modified time.Time) (int, error) {
	if err := writeEntry(zw, MetadataFileName, modified, func(w io.Writer) error {
		_, err := w.Write(metaJSON)
		return err
	}); err != nil {
		return 0, err
	}

	seen := make(map[string]struct{}, len(files))
	packed := 0
	for _, f := range files {
		rel, err := cleanEntryPath(f.RelPath)
		if err != nil {
			return packed, err
		}
		if _, ok := seen[rel]; ok {
			continue
		}
		seen[rel] = struct{}{}

		name := AssetsDirName + "/" + rel
		err = writeEntry(zw, name, modified, func(w io.Writer) error {
			if f.SrcPath == "" {
				_, err := w.Write(f.Data)
				return err
			}
			src, err := os.Open(f.SrcPath)
			if err != nil {
				return err
			}
			defer src.Close()
			_, err = io.Copy(w, src)
			return err
		})
		if err != nil {
			return packed, err
		}
		packed++
	}
	return packed, nil
}

func writeEntry(zw *zip.Writer, name string, modified time.Time, fill func(io.Writer) error) error {
	header := &zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: modified,
	}
	header.SetMode(0644)

	w, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("create zip entry %s: %w", name, err)
	}
	if err := fill(w); err != nil {
		return fmt.Errorf("write zip entry %s: %w", name, err)
	}
	return nil
}

// cleanEntryPath normalizes an asset path for use inside the archive and
// rejects anything that would land outside assets/.
func cleanEntryPath(rel string) (string, error) {
	p := path.Clean(NormalizePath(strings.TrimSpace(rel)))
	if p == "." || p == "" || p == ".." || strings.HasPrefix(p, "../") || strings.HasPrefix(p, "/") {
		return "", fmt.Errorf("invalid asset path in bundle: %q", rel)
	}
	return p, nil
}

// NormalizePath converts a path to use forward slashes (for cross-platform bundles).
func NormalizePath(p string) string {
	return strings.ReplaceAll(filepath.ToSlash(p), "\\", "/")
}

// DenormalizePath converts a forward-slash path to the OS-native separator.
func DenormalizePath(p string) string {
	return filepath.FromSlash(p)
}
