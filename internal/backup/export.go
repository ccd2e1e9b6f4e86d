package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/Dicklesworthstone/siliconvault/internal/assets"
	"github.com/Dicklesworthstone/siliconvault/internal/bundle"
	"github.com/Dicklesworthstone/siliconvault/internal/db"
	"github.com/Dicklesworthstone/siliconvault/internal/metrics"
)

// ExportResult summarizes a written bundle.
type ExportResult struct {
	Path      string
	Inventory int
	Projects  int
	Links     int
	// Assets is the number of distinct files packed.
	Assets int
	// MissingAssets counts referenced files that were absent or outside
	// the asset root and therefore left out.
	MissingAssets int
	Size          int64
}

// ExportAll writes every inventory row, project, link and referenced asset
// to dest.
func (e *Engine) ExportAll(ctx context.Context, dest string) (*ExportResult, error) {
	start := time.Now()
	q := e.db.Queries()

	inventory, err := q.ListInventory(ctx)
	if err != nil {
		return nil, err
	}
	projects, err := q.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	links, err := q.ListProjectItems(ctx)
	if err != nil {
		return nil, err
	}

	res, err := e.export(ctx, dest, inventory, projects, links)
	e.observe("export", start, err)
	return res, err
}

// ExportSubset writes the named projects with their links, the union of the
// named inventory ids and every item those projects use, and their assets.
// Unknown ids are ignored.
func (e *Engine) ExportSubset(ctx context.Context, dest string, projectIDs, inventoryIDs []int64) (*ExportResult, error) {
	start := time.Now()
	q := e.db.Queries()

	projects, err := q.ListProjectsByIDs(ctx, projectIDs)
	if err != nil {
		return nil, err
	}
	found := make([]int64, 0, len(projects))
	for _, p := range projects {
		found = append(found, p.ID)
	}

	links, err := q.ListProjectItemsFor(ctx, found)
	if err != nil {
		return nil, err
	}

	wanted := make(map[int64]struct{}, len(inventoryIDs)+len(links))
	for _, id := range inventoryIDs {
		wanted[id] = struct{}{}
	}
	for _, l := range links {
		wanted[l.InventoryID] = struct{}{}
	}
	ids := make([]int64, 0, len(wanted))
	for id := range wanted {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	inventory, err := q.ListInventoryByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	res, err := e.export(ctx, dest, inventory, projects, links)
	e.observe("export", start, err)
	return res, err
}

func (e *Engine) export(ctx context.Context, dest string, inventory []db.InventoryItem, projects []db.Project, links []db.ProjectItem) (*ExportResult, error) {
	meta := bundle.NewMetadata(e.now())
	for _, it := range inventory {
		meta.Inventory = append(meta.Inventory, inventoryRecord(it))
	}
	for _, p := range projects {
		meta.Projects = append(meta.Projects, projectRecord(p))
	}
	for _, l := range links {
		meta.Links = append(meta.Links, bundle.ProjectLink{
			ProjectID:   l.ProjectID,
			InventoryID: l.InventoryID,
			Quantity:    l.Quantity,
		})
	}

	files, missing := e.collectAssets(meta.AssetPaths())

	written, err := bundle.Write(dest, meta, files)
	if err != nil {
		return nil, fmt.Errorf("write bundle: %w", err)
	}

	res := &ExportResult{
		Path:          written.Path,
		Inventory:     len(meta.Inventory),
		Projects:      len(meta.Projects),
		Links:         len(meta.Links),
		Assets:        written.Assets,
		MissingAssets: missing,
		Size:          written.Size,
	}

	e.metrics.ObserveBundleSize(res.Size)
	e.metrics.AddAssets(metrics.AssetMissing, missing)
	e.logger.Info("bundle exported",
		"path", res.Path,
		"inventory", res.Inventory,
		"projects", res.Projects,
		"assets", res.Assets,
		"missing_assets", res.MissingAssets)

	e.audit(ctx, db.AuditEntry{
		Op:       db.OpExport,
		Target:   db.TargetProject,
		TargetID: 0,
		Key:      "log.backup.export",
		Params: map[string]any{
			"invCount":  res.Inventory,
			"projCount": res.Projects,
		},
	})
	return res, nil
}

// collectAssets resolves referenced paths against the asset root. Paths that
// escape the root or do not exist are skipped and counted.
func (e *Engine) collectAssets(paths []string) ([]bundle.AssetFile, int) {
	files := make([]bundle.AssetFile, 0, len(paths))
	missing := 0
	for _, rel := range paths {
		src, err := e.assets.Locate(rel)
		if err != nil {
			e.logger.Warn("asset skipped", "path", rel, "error", err)
			missing++
			continue
		}
		info, err := os.Stat(src)
		if err != nil || info.IsDir() {
			if err == nil {
				err = errors.New("is a directory")
			}
			e.logger.Warn("asset skipped", "path", rel, "error", fmt.Errorf("%w: %v", ErrAssetIO, err))
			missing++
			continue
		}
		files = append(files, bundle.AssetFile{RelPath: rel, SrcPath: src})
	}
	return files, missing
}

func inventoryRecord(it db.InventoryItem) bundle.InventoryRecord {
	return bundle.InventoryRecord{
		ID:             it.ID,
		Category:       it.Category,
		Name:           it.Name,
		Value:          it.Value,
		Package:        it.Package,
		Quantity:       it.Quantity,
		Location:       it.Location,
		MinStock:       it.MinStock,
		ImagePaths:     nonNil(it.ImagePaths),
		DatasheetPaths: nonNil(it.DatasheetPaths),
	}
}

func projectRecord(p db.Project) bundle.ProjectRecord {
	return bundle.ProjectRecord{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		CreatedAt:   p.CreatedAt,
		OrderIndex:  p.OrderIndex,
		Files:       nonNil(p.Files),
	}
}

func nonNil(p assets.PathList) assets.PathList {
	if p == nil {
		return assets.PathList{}
	}
	return p
}
