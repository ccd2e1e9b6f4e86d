package bundle

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidBundle is returned when an archive is unreadable or carries no
// usable meta.json.
var ErrInvalidBundle = errors.New("invalid bundle")

// maxExtractedFileSize caps each extracted entry (zip bomb guard).
const maxExtractedFileSize = 512 * 1024 * 1024

// Extract unpacks archive into destDir and returns the effective bundle root:
// destDir itself when it holds meta.json, otherwise its only subdirectory if
// that holds meta.json.
func Extract(archive, destDir string) (string, error) {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return "", fmt.Errorf("%w: open archive: %v", ErrInvalidBundle, err)
	}
	defer r.Close()

	if err := os.MkdirAll(destDir, 0700); err != nil {
		return "", fmt.Errorf("create extraction dir: %w", err)
	}

	for _, f := range r.File {
		if err := extractZipFile(f, destDir); err != nil {
			return "", fmt.Errorf("extract %s: %w", f.Name, err)
		}
	}

	return ResolveRoot(destDir)
}

// ResolveRoot finds meta.json in dir or exactly one directory level below.
func ResolveRoot(dir string) (string, error) {
	if fileExists(filepath.Join(dir, MetadataFileName)) {
		return dir, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("%w: read extraction dir: %v", ErrInvalidBundle, err)
	}
	var subdirs []string
	for _, e := range entries {
		if e.IsDir() {
			subdirs = append(subdirs, e.Name())
		}
	}
	if len(subdirs) == 1 {
		candidate := filepath.Join(dir, subdirs[0])
		if fileExists(filepath.Join(candidate, MetadataFileName)) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: missing %s", ErrInvalidBundle, MetadataFileName)
}

// extractZipFile extracts a single file from a zip archive.
func extractZipFile(f *zip.File, destDir string) error {
	// Zip Slip: normalize, then reject absolute and parent-relative names.
	cleanName := filepath.Clean(DenormalizePath(NormalizePath(f.Name)))
	if cleanName == ".." || strings.HasPrefix(cleanName, ".."+string(filepath.Separator)) || filepath.IsAbs(cleanName) {
		return fmt.Errorf("invalid file path (path traversal attempt): %s", f.Name)
	}

	path := filepath.Join(destDir, cleanName)

	relPath, err := filepath.Rel(destDir, path)
	if err != nil || relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) || filepath.IsAbs(relPath) {
		return fmt.Errorf("invalid file path (escapes destination): %s", f.Name)
	}

	cleanDest := filepath.Clean(destDir) + string(filepath.Separator)
	cleanPath := filepath.Clean(path)
	if !strings.HasPrefix(cleanPath, cleanDest) && cleanPath != filepath.Clean(destDir) {
		return fmt.Errorf("invalid file path: %s", f.Name)
	}

	if f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/") {
		return os.MkdirAll(path, 0700)
	}
	if f.Mode()&os.ModeSymlink != 0 {
		return fmt.Errorf("symlink entries are not allowed: %s", f.Name)
	}

	if f.UncompressedSize64 > maxExtractedFileSize {
		return fmt.Errorf("file %s too large: %d bytes (max %d)", f.Name, f.UncompressedSize64, maxExtractedFileSize)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	dest, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer dest.Close()

	// Header sizes can lie.
	limited := io.LimitReader(rc, maxExtractedFileSize+1)
	written, err := io.Copy(dest, limited)
	if err != nil {
		return err
	}
	if written > maxExtractedFileSize {
		return fmt.Errorf("file %s exceeded size limit during extraction", f.Name)
	}
	return nil
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}
