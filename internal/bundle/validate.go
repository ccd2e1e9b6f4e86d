package bundle

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ValidationError represents a metadata validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// LoadMetadata reads meta.json from a bundle root.
func LoadMetadata(root string) (*Metadata, error) {
	data, err := os.ReadFile(filepath.Join(root, MetadataFileName))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrInvalidBundle, MetadataFileName, err)
	}

	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrInvalidBundle, MetadataFileName, err)
	}
	if err := ValidateMetadata(&meta); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBundle, err)
	}
	return &meta, nil
}

// ValidateMetadata checks that a decoded document can be imported.
func ValidateMetadata(m *Metadata) error {
	if m == nil {
		return &ValidationError{Message: "metadata is nil"}
	}

	if m.Version != "" && !IsCompatibleVersion(m.Version) {
		return &ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("unsupported version %q (this build reads up to %s)", m.Version, CurrentVersion),
		}
	}

	seen := make(map[int64]bool, len(m.Inventory))
	for i, rec := range m.Inventory {
		if seen[rec.ID] {
			return &ValidationError{
				Field:   fmt.Sprintf("inventory[%d].id", i),
				Message: fmt.Sprintf("duplicate id %d", rec.ID),
			}
		}
		seen[rec.ID] = true
	}
	seen = make(map[int64]bool, len(m.Projects))
	for i, rec := range m.Projects {
		if seen[rec.ID] {
			return &ValidationError{
				Field:   fmt.Sprintf("projects[%d].id", i),
				Message: fmt.Sprintf("duplicate id %d", rec.ID),
			}
		}
		seen[rec.ID] = true
	}
	return nil
}

// IsCompatibleVersion reports whether a bundle version can be read. Any
// version with the same or lower major number is accepted.
func IsCompatibleVersion(v string) bool {
	major, ok := majorVersion(v)
	if !ok {
		return false
	}
	current, _ := majorVersion(CurrentVersion)
	return major <= current
}

func majorVersion(v string) (int, bool) {
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	head, _, _ := strings.Cut(v, ".")
	n, err := strconv.Atoi(head)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
