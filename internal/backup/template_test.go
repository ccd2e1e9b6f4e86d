package backup

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateTemplate(t *testing.T) {
	s := newTestStore(t)
	dest := filepath.Join(t.TempDir(), "template.svdata")

	written, err := s.engine.GenerateTemplate(dest)
	require.NoError(t, err)
	assert.Equal(t, 5, written.Assets)

	report, err := s.engine.Scan(context.Background(), dest)
	require.NoError(t, err)
	assert.Equal(t, 1, report.NewItems.Inventory)
	assert.Equal(t, 1, report.NewItems.Projects)

	meta := report.Metadata
	require.Len(t, meta.Inventory, 1)
	assert.Equal(t, int64(1001), meta.Inventory[0].ID)
	assert.Equal(t, "Example Resistor", meta.Inventory[0].Name)
	assert.Equal(t, "Demo Project (LED Blinker)", meta.Projects[0].Name)
	assert.Equal(t, testNow.UTC().Format("2006-01-02 15:04:05"), meta.Projects[0].CreatedAt)

	res, err := s.engine.Import(context.Background(), report.SessionID, Strategies{})
	require.NoError(t, err)
	assert.Equal(t, 5, res.AssetsCopied)
	assert.Equal(t, 1, res.LinksCreated)
	assert.Zero(t, res.AssetFailures)

	items := s.inventory(t)
	require.Len(t, items, 1)
	assert.Equal(t, int64(50), items[0].MinStock)
}
