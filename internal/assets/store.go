package assets

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// ErrPathEscape is returned when an asset path resolves outside its root.
var ErrPathEscape = errors.New("asset path escapes root")

// maxRenameAttempts bounds the search for an unused synthesized name.
const maxRenameAttempts = 100

// Resolve joins a relative asset path under root. Absolute paths, volume
// names, ".." components that climb out of root, and paths that resolve to
// root itself are rejected with ErrPathEscape.
func Resolve(root, rel string) (string, error) {
	rel = strings.TrimSpace(rel)
	if rel == "" {
		return "", fmt.Errorf("%w: empty path", ErrPathEscape)
	}

	cleanName := filepath.Clean(filepath.FromSlash(NormalizePath(rel)))
	if filepath.IsAbs(cleanName) || filepath.VolumeName(cleanName) != "" || strings.HasPrefix(NormalizePath(rel), "/") {
		return "", fmt.Errorf("%w: %s", ErrPathEscape, rel)
	}
	if cleanName == "." || cleanName == ".." || strings.HasPrefix(cleanName, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrPathEscape, rel)
	}

	cleanRoot := filepath.Clean(root)
	full := filepath.Join(cleanRoot, cleanName)

	relPath, err := filepath.Rel(cleanRoot, full)
	if err != nil || relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) || filepath.IsAbs(relPath) {
		return "", fmt.Errorf("%w: %s", ErrPathEscape, rel)
	}
	if !strings.HasPrefix(full, cleanRoot+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrPathEscape, rel)
	}
	return full, nil
}

// ImportOutcome describes where an imported asset ended up.
type ImportOutcome struct {
	// Name is the stored name, relative to the store root.
	Name string
	// Path is the absolute path of the stored file.
	Path string
	// Reused is true when an existing file with identical content was
	// returned instead of copying.
	Reused bool
}

// Store is a flat directory of asset files.
type Store struct {
	root   string
	logger *slog.Logger

	now    func() time.Time
	random func() int
}

// NewStore returns a Store rooted at root. The directory is created lazily
// on the first import.
func NewStore(root string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		root:   filepath.Clean(root),
		logger: logger,
		now:    time.Now,
		random: func() int { return rand.Intn(1000) },
	}
}

// Root returns the store's root directory.
func (s *Store) Root() string {
	return s.root
}

// Locate resolves a stored asset path against the store root.
func (s *Store) Locate(rel string) (string, error) {
	return Resolve(s.root, rel)
}

// Import copies src into the store under preferredName's base name.
//
// If the name is free the file is copied as is. If it is taken by a file
// with the same digest, that file is reused. Otherwise a previously
// synthesized sibling with the same digest is reused if one exists, and
// failing that the file is copied under a fresh "<millis>_<rand>_<name>".
func (s *Store) Import(src, preferredName string) (ImportOutcome, error) {
	name := path.Base(NormalizePath(strings.TrimSpace(preferredName)))
	if name == "" || name == "." || name == ".." || name == "/" {
		return ImportOutcome{}, fmt.Errorf("%w: invalid asset name %q", ErrPathEscape, preferredName)
	}

	info, err := os.Stat(src)
	if err != nil {
		return ImportOutcome{}, fmt.Errorf("stat source asset: %w", err)
	}
	if info.IsDir() {
		return ImportOutcome{}, fmt.Errorf("source asset %s is a directory", src)
	}

	if err := os.MkdirAll(s.root, 0755); err != nil {
		return ImportOutcome{}, fmt.Errorf("create asset root: %w", err)
	}

	dest, err := s.Locate(name)
	if err != nil {
		return ImportOutcome{}, err
	}

	exists, err := fileExists(dest)
	if err != nil {
		return ImportOutcome{}, err
	}
	if !exists {
		if err := copyFileAtomic(src, dest); err != nil {
			return ImportOutcome{}, err
		}
		return ImportOutcome{Name: name, Path: dest}, nil
	}

	srcDigest := Hash(src)
	if srcDigest != "" && srcDigest == Hash(dest) {
		return ImportOutcome{Name: name, Path: dest, Reused: true}, nil
	}

	if srcDigest != "" {
		if sibling, ok := s.findSibling(name, srcDigest); ok {
			return ImportOutcome{Name: sibling, Path: filepath.Join(s.root, sibling), Reused: true}, nil
		}
	}

	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for attempt := 0; attempt < maxRenameAttempts; attempt++ {
		candidate := fmt.Sprintf("%d_%d_%s%s", s.now().UnixMilli(), s.random(), stem, ext)
		candidatePath := filepath.Join(s.root, candidate)
		taken, err := fileExists(candidatePath)
		if err != nil {
			return ImportOutcome{}, err
		}
		if taken {
			continue
		}
		if err := copyFileAtomic(src, candidatePath); err != nil {
			return ImportOutcome{}, err
		}
		s.logger.Debug("asset renamed on collision", "preferred", name, "stored", candidate)
		return ImportOutcome{Name: candidate, Path: candidatePath}, nil
	}
	return ImportOutcome{}, fmt.Errorf("no free name for asset %s after %d attempts", name, maxRenameAttempts)
}

// findSibling looks for a synthesized "<millis>_<rand>_<name>" file with the
// given digest.
func (s *Store) findSibling(name, digest string) (string, bool) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return "", false
	}
	pattern := regexp.MustCompile(`^\d+_\d{1,3}_` + regexp.QuoteMeta(name) + `$`)
	for _, entry := range entries {
		if entry.IsDir() || !pattern.MatchString(entry.Name()) {
			continue
		}
		if Hash(filepath.Join(s.root, entry.Name())) == digest {
			return entry.Name(), true
		}
	}
	return "", false
}

// Remove deletes a stored asset. A missing file is not an error.
func (s *Store) Remove(name string) error {
	full, err := s.Locate(name)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove asset %s: %w", name, err)
	}
	return nil
}

func fileExists(p string) (bool, error) {
	_, err := os.Stat(p)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("stat %s: %w", p, err)
}

// copyFileAtomic copies src to dst through a temp file in dst's directory
// so that a partially written asset is never visible under its final name.
func copyFileAtomic(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source asset: %w", err)
	}
	defer in.Close()

	tmpFile, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".tmp.*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmpFile, in); err != nil {
		tmpFile.Close()
		return fmt.Errorf("copy asset: %w", err)
	}
	if err := tmpFile.Chmod(0644); err != nil {
		tmpFile.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
