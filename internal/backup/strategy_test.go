package backup

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in      string
		want    Strategy
		wantErr bool
	}{
		{"skip", Skip, false},
		{"Overwrite", Overwrite, false},
		{"keep_both", KeepBoth, false},
		{"keep-both", KeepBoth, false},
		{"KeepBoth", KeepBoth, false},
		{" both ", KeepBoth, false},
		{"merge", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseStrategy(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestStrategiesDefaultToKeepBoth(t *testing.T) {
	var zero Strategies
	assert.Equal(t, KeepBoth, zero.ForInventory(1))
	assert.Equal(t, KeepBoth, zero.ForProject(1))

	st := Strategies{
		Inventory: map[int64]Strategy{1: Skip, 2: ""},
		Projects:  map[int64]Strategy{3: Overwrite},
	}
	assert.Equal(t, Skip, st.ForInventory(1))
	assert.Equal(t, KeepBoth, st.ForInventory(2))
	assert.Equal(t, Overwrite, st.ForProject(3))
	assert.Equal(t, KeepBoth, st.ForProject(4))
}

func TestUniform(t *testing.T) {
	assert.Empty(t, Uniform(nil, Skip).Inventory)

	s := newTestStore(t)
	s.seed(t)
	archive := filepath.Join(t.TempDir(), "self.svdata")
	_, err := s.engine.ExportAll(context.Background(), archive)
	require.NoError(t, err)

	report, err := s.engine.Scan(context.Background(), archive)
	require.NoError(t, err)
	defer s.engine.Discard(report.SessionID)

	st := Uniform(report, Overwrite)
	require.Len(t, st.Inventory, 1)
	require.Len(t, st.Projects, 1)
	assert.Equal(t, Overwrite, st.ForInventory(report.Conflicts.Inventory[0].Remote.ID))
	assert.Equal(t, Overwrite, st.ForProject(report.Conflicts.Projects[0].Remote.ID))
}
