package backup

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/Dicklesworthstone/siliconvault/internal/assets"
	"github.com/Dicklesworthstone/siliconvault/internal/bundle"
	"github.com/Dicklesworthstone/siliconvault/internal/db"
)

// InventoryConflict pairs a bundle record with the local row sharing its
// (name, package, value) identity.
type InventoryConflict struct {
	Local              db.InventoryItem
	Remote             bundle.InventoryRecord
	HasAssetDifference bool
}

// ProjectConflict pairs a bundle project with the local project of the same
// name.
type ProjectConflict struct {
	Local              db.Project
	Remote             bundle.ProjectRecord
	HasAssetDifference bool
}

// Conflicts lists every matched pair found by Scan.
type Conflicts struct {
	Inventory []InventoryConflict
	Projects  []ProjectConflict
}

// NewItems counts bundle records with no local match.
type NewItems struct {
	Inventory int
	Projects  int
}

// ScanReport is the result of Scan. SessionID is passed to Import or
// Discard.
type ScanReport struct {
	SessionID string
	Metadata  *bundle.Metadata
	Conflicts Conflicts
	NewItems  NewItems
}

// Scan extracts archive into a new session and compares its records with the
// local store. On any error the session is disposed before returning.
func (e *Engine) Scan(ctx context.Context, archive string) (report *ScanReport, err error) {
	start := time.Now()
	defer func() { e.observe("scan", start, err) }()

	sess, err := e.sessions.Create()
	if err != nil {
		return nil, fmt.Errorf("create scan session: %w", err)
	}
	defer func() {
		if err != nil {
			if derr := e.sessions.Dispose(sess.ID); derr != nil {
				e.logger.Warn("session cleanup failed", "session", sess.ID, "error", derr)
			}
		}
		e.metrics.SetSessionsActive(e.sessions.Len())
	}()

	root, err := bundle.Extract(archive, sess.Dir)
	if err != nil {
		return nil, err
	}
	if err := e.sessions.SetRoot(sess.ID, root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionExpired, err)
	}

	meta, err := bundle.LoadMetadata(root)
	if err != nil {
		return nil, err
	}

	report = &ScanReport{
		SessionID: sess.ID,
		Metadata:  meta,
		Conflicts: Conflicts{
			Inventory: []InventoryConflict{},
			Projects:  []ProjectConflict{},
		},
	}

	q := e.db.Queries()
	for _, remote := range meta.Inventory {
		local, err := q.FindInventoryByIdentity(ctx, remote.Name, remote.Package, remote.Value)
		if err != nil {
			return nil, err
		}
		if local == nil {
			report.NewItems.Inventory++
			continue
		}
		differs := e.assetSetsDiffer(local.ImagePaths, remote.ImagePaths, root) ||
			e.assetSetsDiffer(local.DatasheetPaths, remote.DatasheetPaths, root)
		report.Conflicts.Inventory = append(report.Conflicts.Inventory, InventoryConflict{
			Local:              *local,
			Remote:             remote,
			HasAssetDifference: differs,
		})
	}

	for _, remote := range meta.Projects {
		local, err := q.FindProjectByName(ctx, remote.Name)
		if err != nil {
			return nil, err
		}
		if local == nil {
			report.NewItems.Projects++
			continue
		}
		report.Conflicts.Projects = append(report.Conflicts.Projects, ProjectConflict{
			Local:              *local,
			Remote:             remote,
			HasAssetDifference: e.assetSetsDiffer(local.Files, remote.Files, root),
		})
	}

	e.logger.Info("bundle scanned",
		"session", sess.ID,
		"new_inventory", report.NewItems.Inventory,
		"new_projects", report.NewItems.Projects,
		"inventory_conflicts", len(report.Conflicts.Inventory),
		"project_conflicts", len(report.Conflicts.Projects))
	return report, nil
}

// Discard disposes a scanned session that will not be imported.
func (e *Engine) Discard(sessionID string) error {
	err := e.sessions.Dispose(sessionID)
	e.metrics.SetSessionsActive(e.sessions.Len())
	return err
}

// assetSetsDiffer reports whether two asset lists hold different content.
// Lists of different length always differ. Otherwise they differ when some
// remote file hashes to a digest that no local file has. Names never matter,
// and remote files that cannot be read are ignored.
func (e *Engine) assetSetsDiffer(local, remote assets.PathList, bundleRoot string) bool {
	if len(local) != len(remote) {
		return true
	}
	if len(remote) == 0 {
		return false
	}

	localDigests := make(map[string]struct{}, len(local))
	for _, rel := range local {
		full, err := e.assets.Locate(rel)
		if err != nil {
			continue
		}
		localDigests[assets.Hash(full)] = struct{}{}
	}

	assetsDir := filepath.Join(bundleRoot, bundle.AssetsDirName)
	for _, rel := range remote {
		digest := assets.Hash(locateBundleAsset(assetsDir, rel))
		if digest == "" {
			continue
		}
		if _, ok := localDigests[digest]; !ok {
			return true
		}
	}
	return false
}

// locateBundleAsset resolves rel inside a bundle's assets directory, falling
// back to its base name for bundles repacked flat. It returns "" when rel
// escapes the directory.
func locateBundleAsset(assetsDir, rel string) string {
	full, err := assets.Resolve(assetsDir, rel)
	if err != nil {
		return ""
	}
	if _, err := os.Stat(full); err == nil {
		return full
	}
	base := path.Base(assets.NormalizePath(rel))
	flat, err := assets.Resolve(assetsDir, base)
	if err != nil {
		return full
	}
	return flat
}
