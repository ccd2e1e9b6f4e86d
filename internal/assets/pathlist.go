// Package assets manages the content-addressed asset directory that backs
// inventory images, datasheets and project files.
//
// Records reference assets through PathList values: ordered, forward-slash
// relative paths into the asset root. The Store copies assets in with
// collision-safe renaming, and Hash provides the content digest used for
// deduplication and conflict detection.
package assets

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// PathList is an ordered list of relative asset paths.
//
// Decoding is deliberately lenient: older bundles and databases store the
// list as a JSON-encoded string rather than an array, and anything that does
// not parse is treated as an empty list instead of an error.
type PathList []string

// ParsePathList decodes raw JSON into a PathList. It accepts a JSON array of
// strings or a JSON string whose content is such an array. Malformed input
// yields an empty list.
func ParsePathList(raw []byte) PathList {
	return parsePathList(raw, true)
}

func parsePathList(raw []byte, allowEncoded bool) PathList {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return PathList{}
	}

	switch raw[0] {
	case '"':
		if !allowEncoded {
			return PathList{}
		}
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return PathList{}
		}
		return parsePathList([]byte(inner), false)
	case '[':
		var paths []string
		if err := json.Unmarshal(raw, &paths); err != nil {
			return PathList{}
		}
		out := make(PathList, 0, len(paths))
		for _, p := range paths {
			p = NormalizePath(strings.TrimSpace(p))
			if p == "" {
				continue
			}
			out = append(out, p)
		}
		return out
	default:
		return PathList{}
	}
}

// NormalizePath converts a path to forward slashes, including backslashes
// written by Windows exports.
func NormalizePath(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

// MarshalJSON always encodes an array, never null.
func (p PathList) MarshalJSON() ([]byte, error) {
	if p == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(p))
}

// UnmarshalJSON implements json.Unmarshaler. It never fails.
func (p *PathList) UnmarshalJSON(b []byte) error {
	*p = ParsePathList(b)
	return nil
}

// Scan implements sql.Scanner for TEXT columns holding a JSON array.
func (p *PathList) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*p = PathList{}
	case string:
		*p = ParsePathList([]byte(v))
	case []byte:
		*p = ParsePathList(v)
	default:
		return fmt.Errorf("scan path list: unsupported type %T", src)
	}
	return nil
}

// Value implements driver.Valuer.
func (p PathList) Value() (driver.Value, error) {
	b, err := p.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Equal reports whether both lists hold the same paths in the same order.
func (p PathList) Equal(other PathList) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}
