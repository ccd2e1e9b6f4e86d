package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Dicklesworthstone/siliconvault/internal/assets"
	"github.com/Dicklesworthstone/siliconvault/internal/bundle"
	"github.com/Dicklesworthstone/siliconvault/internal/db"
	"github.com/Dicklesworthstone/siliconvault/internal/metrics"
)

// EntityCounts tallies what Import did with one kind of record.
type EntityCounts struct {
	Created int
	Updated int
	Skipped int
}

// ImportResult summarizes a committed import.
type ImportResult struct {
	Inventory EntityCounts
	Projects  EntityCounts

	LinksCreated int
	// LinksDropped counts bundle links whose project or inventory end did
	// not map to a local row.
	LinksDropped int

	AssetsCopied int
	AssetsReused int
	// AssetFailures counts asset references dropped because the file was
	// missing from the bundle, escaped it, or could not be copied.
	AssetFailures int

	// InventoryIDs and ProjectIDs map bundle ids to local ids.
	InventoryIDs map[int64]int64
	ProjectIDs   map[int64]int64
}

// Import merges a scanned bundle into the store in one transaction.
//
// The session is consumed whatever the outcome. When the transaction fails
// nothing is committed, asset files this import created are removed, and
// the error wraps ErrStoreTransaction.
func (e *Engine) Import(ctx context.Context, sessionID string, strategies Strategies) (res *ImportResult, err error) {
	start := time.Now()
	defer func() { e.observe("import", start, err) }()

	sess, err := e.sessions.Take(sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionExpired, sessionID)
	}
	defer func() {
		if cerr := sess.Cleanup(); cerr != nil {
			e.logger.Warn("session cleanup failed", "session", sess.ID, "error", cerr)
		}
		e.metrics.SetSessionsActive(e.sessions.Len())
	}()

	if _, statErr := os.Stat(sess.Root); statErr != nil {
		return nil, fmt.Errorf("%w: %s: working directory is gone", ErrSessionExpired, sessionID)
	}

	meta, err := bundle.LoadMetadata(sess.Root)
	if err != nil {
		return nil, err
	}

	imp := &importer{
		engine:     e,
		assetsDir:  filepath.Join(sess.Root, bundle.AssetsDirName),
		meta:       meta,
		strategies: strategies,
		res: &ImportResult{
			InventoryIDs: make(map[int64]int64, len(meta.Inventory)),
			ProjectIDs:   make(map[int64]int64, len(meta.Projects)),
		},
	}

	err = e.db.WithTx(ctx, func(q *db.Queries) error {
		return imp.run(ctx, q)
	})
	if err != nil {
		imp.removeCreatedAssets()
		e.logger.Error("import rolled back", "session", sess.ID, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrStoreTransaction, err)
	}

	res = imp.res
	e.recordImportMetrics(res)
	e.logger.Info("bundle imported",
		"session", sess.ID,
		"inventory_created", res.Inventory.Created,
		"inventory_updated", res.Inventory.Updated,
		"inventory_skipped", res.Inventory.Skipped,
		"projects_created", res.Projects.Created,
		"projects_updated", res.Projects.Updated,
		"projects_skipped", res.Projects.Skipped,
		"links_created", res.LinksCreated,
		"links_dropped", res.LinksDropped,
		"asset_failures", res.AssetFailures)

	shortID := sess.ID
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}
	e.audit(ctx, db.AuditEntry{
		Op:       db.OpImport,
		Target:   db.TargetInventory,
		TargetID: 0,
		Key:      "log.backup.import",
		Params: map[string]any{
			"session": shortID,
			"inv":     len(meta.Inventory),
			"proj":    len(meta.Projects),
		},
	})
	return res, nil
}

func (e *Engine) recordImportMetrics(res *ImportResult) {
	e.metrics.AddRecords("inventory", "created", res.Inventory.Created)
	e.metrics.AddRecords("inventory", "updated", res.Inventory.Updated)
	e.metrics.AddRecords("inventory", "skipped", res.Inventory.Skipped)
	e.metrics.AddRecords("project", "created", res.Projects.Created)
	e.metrics.AddRecords("project", "updated", res.Projects.Updated)
	e.metrics.AddRecords("project", "skipped", res.Projects.Skipped)
	e.metrics.AddAssets(metrics.AssetCopied, res.AssetsCopied)
	e.metrics.AddAssets(metrics.AssetReused, res.AssetsReused)
	e.metrics.AddAssets(metrics.AssetFailed, res.AssetFailures)
	e.metrics.AddLinksDropped(res.LinksDropped)
}

// importer carries the state of one Import call.
type importer struct {
	engine     *Engine
	assetsDir  string
	meta       *bundle.Metadata
	strategies Strategies
	res        *ImportResult

	// created lists asset files copied by this import, for rollback.
	created []string
}

func (imp *importer) run(ctx context.Context, q *db.Queries) error {
	if err := imp.importInventory(ctx, q); err != nil {
		return err
	}
	overwritten, err := imp.importProjects(ctx, q)
	if err != nil {
		return err
	}
	for _, pid := range overwritten {
		if err := q.DeleteProjectItems(ctx, pid); err != nil {
			return err
		}
	}
	return imp.importLinks(ctx, q)
}

func (imp *importer) importInventory(ctx context.Context, q *db.Queries) error {
	e := imp.engine
	for _, remote := range imp.meta.Inventory {
		if err := ctx.Err(); err != nil {
			return err
		}
		strategy := imp.strategies.ForInventory(remote.ID)

		existing, err := q.FindInventoryByIdentity(ctx, remote.Name, remote.Package, remote.Value)
		if err != nil {
			return err
		}
		if existing != nil && strategy == Skip {
			imp.res.InventoryIDs[remote.ID] = existing.ID
			imp.res.Inventory.Skipped++
			continue
		}

		images := imp.importAssets(remote.ImagePaths)
		datasheets := imp.importAssets(remote.DatasheetPaths)
		minStock := remote.MinStockOr(e.defaultMinStock)

		if existing != nil && strategy == Overwrite {
			if err := q.MergeInventory(ctx, existing.ID, remote.Category, minStock, images, datasheets); err != nil {
				return err
			}
			imp.res.InventoryIDs[remote.ID] = existing.ID
			imp.res.Inventory.Updated++
			continue
		}

		name := remote.Name
		if existing != nil {
			name, err = imp.freeInventoryName(ctx, q, remote)
			if err != nil {
				return err
			}
		}

		row := db.InventoryItem{
			Category:       remote.Category,
			Name:           name,
			Value:          remote.Value,
			Package:        remote.Package,
			MinStock:       minStock,
			ImagePaths:     images,
			DatasheetPaths: datasheets,
		}
		if e.keepRemoteQuantity {
			row.Quantity = remote.Quantity
			row.Location = remote.Location
		}
		id, err := q.InsertInventory(ctx, row)
		if err != nil {
			return err
		}
		imp.res.InventoryIDs[remote.ID] = id
		imp.res.Inventory.Created++
	}
	return nil
}

// importProjects returns the local ids of overwritten projects, whose links
// are rebuilt from the bundle.
func (imp *importer) importProjects(ctx context.Context, q *db.Queries) ([]int64, error) {
	var overwritten []int64
	for _, remote := range imp.meta.Projects {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		strategy := imp.strategies.ForProject(remote.ID)

		existing, err := q.FindProjectByName(ctx, remote.Name)
		if err != nil {
			return nil, err
		}
		if existing != nil && strategy == Skip {
			imp.res.ProjectIDs[remote.ID] = existing.ID
			imp.res.Projects.Skipped++
			continue
		}

		files := imp.importAssets(remote.Files)

		if existing != nil && strategy == Overwrite {
			if err := q.MergeProject(ctx, existing.ID, remote.Description, files); err != nil {
				return nil, err
			}
			imp.res.ProjectIDs[remote.ID] = existing.ID
			imp.res.Projects.Updated++
			overwritten = append(overwritten, existing.ID)
			continue
		}

		name := remote.Name
		if existing != nil {
			name, err = imp.freeProjectName(ctx, q, remote.Name)
			if err != nil {
				return nil, err
			}
		}

		id, err := q.InsertProject(ctx, db.Project{
			Name:        name,
			Description: remote.Description,
			CreatedAt:   remote.CreatedAt,
			OrderIndex:  remote.OrderIndex,
			Files:       files,
		})
		if err != nil {
			return nil, err
		}
		imp.res.ProjectIDs[remote.ID] = id
		imp.res.Projects.Created++
	}
	return overwritten, nil
}

func (imp *importer) importLinks(ctx context.Context, q *db.Queries) error {
	e := imp.engine
	for _, link := range imp.meta.Links {
		pid, okProject := imp.res.ProjectIDs[link.ProjectID]
		iid, okItem := imp.res.InventoryIDs[link.InventoryID]
		if !okProject || !okItem {
			imp.res.LinksDropped++
			e.logger.Debug("link dropped", "project_id", link.ProjectID, "inventory_id", link.InventoryID)
			continue
		}

		exists, err := q.ProjectItemExists(ctx, pid, iid)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if err := q.InsertProjectItem(ctx, db.ProjectItem{ProjectID: pid, InventoryID: iid, Quantity: link.Quantity}); err != nil {
			return err
		}
		imp.res.LinksCreated++
	}
	return nil
}

// importAssets copies a record's assets into the store and returns the stored
// names. References that cannot be resolved or copied are dropped.
func (imp *importer) importAssets(paths assets.PathList) assets.PathList {
	e := imp.engine
	out := assets.PathList{}
	for _, rel := range paths {
		src := locateBundleAsset(imp.assetsDir, rel)
		if src == "" {
			imp.assetFailed(rel, fmt.Errorf("%w: %s", assets.ErrPathEscape, rel))
			continue
		}
		if _, err := os.Stat(src); err != nil {
			imp.assetFailed(rel, err)
			continue
		}

		outcome, err := e.assets.Import(src, rel)
		if err != nil {
			imp.assetFailed(rel, err)
			continue
		}
		if outcome.Reused {
			imp.res.AssetsReused++
		} else {
			imp.res.AssetsCopied++
			imp.created = append(imp.created, outcome.Name)
		}
		out = append(out, outcome.Name)
	}
	return out
}

func (imp *importer) assetFailed(rel string, err error) {
	imp.res.AssetFailures++
	imp.engine.logger.Warn("asset dropped", "path", rel, "error", fmt.Errorf("%w: %w", ErrAssetIO, err))
}

func (imp *importer) removeCreatedAssets() {
	for _, name := range imp.created {
		if err := imp.engine.assets.Remove(name); err != nil {
			imp.engine.logger.Warn("asset rollback failed", "asset", name, "error", err)
		}
	}
	imp.created = nil
}

// freeInventoryName returns the first suffixed name whose identity is not
// taken: "R (Imported)", then "R (Imported 2)", and so on.
func (imp *importer) freeInventoryName(ctx context.Context, q *db.Queries, remote bundle.InventoryRecord) (string, error) {
	for n := 1; ; n++ {
		candidate := suffixedName(remote.Name, imp.engine.importedSuffix, n)
		taken, err := q.FindInventoryByIdentity(ctx, candidate, remote.Package, remote.Value)
		if err != nil {
			return "", err
		}
		if taken == nil {
			return candidate, nil
		}
	}
}

func (imp *importer) freeProjectName(ctx context.Context, q *db.Queries, name string) (string, error) {
	for n := 1; ; n++ {
		candidate := suffixedName(name, imp.engine.importedSuffix, n)
		taken, err := q.FindProjectByName(ctx, candidate)
		if err != nil {
			return "", err
		}
		if taken == nil {
			return candidate, nil
		}
	}
}

// suffixedName appends suffix to name, numbering from the second attempt.
// A suffix ending in ")" takes the number inside the parentheses.
func suffixedName(name, suffix string, n int) string {
	if n <= 1 {
		return name + suffix
	}
	num := strconv.Itoa(n)
	if strings.HasSuffix(suffix, ")") {
		return name + strings.TrimSuffix(suffix, ")") + " " + num + ")"
	}
	return name + suffix + " " + num
}
