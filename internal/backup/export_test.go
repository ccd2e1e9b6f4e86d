package backup

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dicklesworthstone/siliconvault/internal/assets"
	"github.com/Dicklesworthstone/siliconvault/internal/bundle"
	"github.com/Dicklesworthstone/siliconvault/internal/db"
)

func TestExportAll(t *testing.T) {
	s := newTestStore(t)
	itemID, projectID := s.seed(t)
	dest := filepath.Join(t.TempDir(), "out.svdata")

	res, err := s.engine.ExportAll(context.Background(), dest)
	require.NoError(t, err)
	assert.Equal(t, dest, res.Path)
	assert.Equal(t, 1, res.Inventory)
	assert.Equal(t, 1, res.Projects)
	assert.Equal(t, 1, res.Links)
	assert.Equal(t, 3, res.Assets)
	assert.Zero(t, res.MissingAssets)
	assert.Positive(t, res.Size)

	root, err := bundle.Extract(dest, t.TempDir())
	require.NoError(t, err)
	meta, err := bundle.LoadMetadata(root)
	require.NoError(t, err)

	assert.Equal(t, bundle.CurrentVersion, meta.Version)
	assert.Equal(t, testNow.UnixMilli(), meta.CreatedAt)
	require.Len(t, meta.Inventory, 1)
	assert.Equal(t, itemID, meta.Inventory[0].ID)
	assert.Equal(t, int64(50), meta.Inventory[0].Quantity)
	assert.Equal(t, int64(5), meta.Inventory[0].MinStock)
	require.Len(t, meta.Projects, 1)
	assert.Equal(t, projectID, meta.Projects[0].ID)
	assert.Equal(t, "2024-01-02 03:04:05", meta.Projects[0].CreatedAt)
	assert.Equal(t, []bundle.ProjectLink{{ProjectID: projectID, InventoryID: itemID, Quantity: 2}}, meta.Links)

	data, err := os.ReadFile(filepath.Join(root, bundle.AssetsDirName, "r.png"))
	require.NoError(t, err)
	assert.Equal(t, "resistor-image", string(data))

	audit, err := s.db.ListAudit(context.Background(), 10)
	require.NoError(t, err)
	require.NotEmpty(t, audit)
	assert.Equal(t, db.OpExport, audit[0].Op)
	assert.Equal(t, "log.backup.export", audit[0].Key)
}

func TestExportCountsMissingAssets(t *testing.T) {
	s := newTestStore(t)
	s.putAsset(t, "present.png", "here")
	s.addItem(t, db.InventoryItem{
		Name:       "U1",
		ImagePaths: assets.PathList{"present.png", "ghost.png", "../escape.png"},
	})

	res, err := s.engine.ExportAll(context.Background(), filepath.Join(t.TempDir(), "out.svdata"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Assets)
	assert.Equal(t, 2, res.MissingAssets)
}

func TestExportEmptyStore(t *testing.T) {
	s := newTestStore(t)
	res, err := s.engine.ExportAll(context.Background(), filepath.Join(t.TempDir(), "empty.svdata"))
	require.NoError(t, err)
	assert.Zero(t, res.Inventory)
	assert.Zero(t, res.Projects)
	assert.Zero(t, res.Assets)
}

func TestExportSubset(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	used := s.addItem(t, db.InventoryItem{Name: "used", Value: "1"})
	other := s.addItem(t, db.InventoryItem{Name: "other", Value: "2"})
	loose := s.addItem(t, db.InventoryItem{Name: "loose", Value: "3"})
	s.addItem(t, db.InventoryItem{Name: "unrelated", Value: "4"})

	p1 := s.addProject(t, db.Project{Name: "P1"})
	p2 := s.addProject(t, db.Project{Name: "P2"})
	s.link(t, p1, used, 1)
	s.link(t, p2, other, 1)

	dest := filepath.Join(t.TempDir(), "subset.svdata")
	res, err := s.engine.ExportSubset(ctx, dest, []int64{p1, 999}, []int64{loose})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Inventory)
	assert.Equal(t, 1, res.Projects)
	assert.Equal(t, 1, res.Links)

	root, err := bundle.Extract(dest, t.TempDir())
	require.NoError(t, err)
	meta, err := bundle.LoadMetadata(root)
	require.NoError(t, err)

	var names []string
	for _, it := range meta.Inventory {
		names = append(names, it.Name)
	}
	assert.ElementsMatch(t, []string{"used", "loose"}, names)
	assert.Equal(t, "P1", meta.Projects[0].Name)
}

func TestExportWriteFailure(t *testing.T) {
	s := newTestStore(t)
	s.seed(t)

	// The destination's parent is a regular file.
	parent := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(parent, []byte("x"), 0644))

	_, err := s.engine.ExportAll(context.Background(), filepath.Join(parent, "out.svdata"))
	require.Error(t, err)
}
