// Package bundle reads and writes svault backup bundles.
//
// A bundle is a zip archive holding:
//   - meta.json, the BundleMetadata document (inventory, projects and the
//     links between them)
//   - assets/, every file the records reference, at the same relative path
//
// Bundles repacked by hand often carry one extra wrapper folder around that
// layout; Extract tolerates exactly one such level.
package bundle

import (
	"encoding/json"
	"time"

	"github.com/Dicklesworthstone/siliconvault/internal/assets"
)

// CurrentVersion is the metadata format version written by Write.
const CurrentVersion = "2.0"

// FileExtension is the standard file extension for bundles.
const FileExtension = ".svdata"

// MetadataFileName is the name of the metadata document within the bundle.
const MetadataFileName = "meta.json"

// AssetsDirName is the directory holding asset files within the bundle.
const AssetsDirName = "assets"

// DefaultMinStock is used for inventory records that carry no min_stock.
const DefaultMinStock int64 = 10

// Metadata is the meta.json document.
type Metadata struct {
	// Version is the format version, "2.0" for bundles written today.
	Version string `json:"version"`

	// CreatedAt is the export time in unix milliseconds.
	CreatedAt int64 `json:"createdAt"`

	Inventory []InventoryRecord `json:"inventory"`
	Projects  []ProjectRecord   `json:"projects"`

	// Links associate projects with inventory using bundle-local ids.
	Links []ProjectLink `json:"projectItems"`
}

// NewMetadata returns an empty document stamped with the current version.
func NewMetadata(createdAt time.Time) *Metadata {
	return &Metadata{
		Version:   CurrentVersion,
		CreatedAt: createdAt.UnixMilli(),
		Inventory: []InventoryRecord{},
		Projects:  []ProjectRecord{},
		Links:     []ProjectLink{},
	}
}

// UnmarshalJSON accepts "projectLinks" as an alternative key for the links.
func (m *Metadata) UnmarshalJSON(b []byte) error {
	type plain Metadata
	var doc struct {
		plain
		ProjectLinks []ProjectLink `json:"projectLinks"`
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return err
	}
	*m = Metadata(doc.plain)
	if m.Links == nil && doc.ProjectLinks != nil {
		m.Links = doc.ProjectLinks
	}
	return nil
}

// Created returns CreatedAt as a time.
func (m *Metadata) Created() time.Time {
	return time.UnixMilli(m.CreatedAt)
}

// InventoryRecord is an inventory row as exported.
type InventoryRecord struct {
	ID       int64  `json:"id"`
	Category string `json:"category"`
	Name     string `json:"name"`
	Value    string `json:"value"`
	Package  string `json:"package"`
	Quantity int64  `json:"quantity"`
	Location string `json:"location"`
	MinStock int64  `json:"min_stock"`

	ImagePaths     assets.PathList `json:"image_paths"`
	DatasheetPaths assets.PathList `json:"datasheet_paths"`

	minStockMissing bool
}

// UnmarshalJSON fills MinStock with DefaultMinStock when the field is absent
// or null.
func (r *InventoryRecord) UnmarshalJSON(b []byte) error {
	type plain InventoryRecord
	var doc struct {
		plain
		MinStock *int64 `json:"min_stock"`
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return err
	}
	*r = InventoryRecord(doc.plain)
	if doc.MinStock != nil {
		r.MinStock = *doc.MinStock
	} else {
		r.MinStock = DefaultMinStock
		r.minStockMissing = true
	}
	return nil
}

// MinStockOr returns the record's min_stock, or def if the document did not
// carry one.
func (r InventoryRecord) MinStockOr(def int64) int64 {
	if r.minStockMissing {
		return def
	}
	return r.MinStock
}

// ProjectRecord is a project row as exported.
type ProjectRecord struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	CreatedAt   string          `json:"created_at"`
	OrderIndex  int64           `json:"order_index"`
	Files       assets.PathList `json:"files"`
}

// ProjectLink is one project_items row.
type ProjectLink struct {
	ProjectID   int64 `json:"project_id"`
	InventoryID int64 `json:"inventory_id"`
	Quantity    int64 `json:"quantity"`
}

// AssetPaths returns every distinct asset path referenced by the document,
// in first-seen order.
func (m *Metadata) AssetPaths() []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(paths assets.PathList) {
		for _, p := range paths {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	for _, rec := range m.Inventory {
		add(rec.ImagePaths)
		add(rec.DatasheetPaths)
	}
	for _, rec := range m.Projects {
		add(rec.Files)
	}
	return out
}
