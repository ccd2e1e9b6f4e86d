package assets

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePathList(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want PathList
	}{
		{"array", `["a.png","docs/b.pdf"]`, PathList{"a.png", "docs/b.pdf"}},
		{"encoded string", `"[\"a.png\",\"b.pdf\"]"`, PathList{"a.png", "b.pdf"}},
		{"backslashes", `["docs\\b.pdf"]`, PathList{"docs/b.pdf"}},
		{"empty entries dropped", `["", "  ", "x.png"]`, PathList{"x.png"}},
		{"null", `null`, PathList{}},
		{"empty", ``, PathList{}},
		{"garbage", `{not json`, PathList{}},
		{"object", `{"a":1}`, PathList{}},
		{"non-string element", `["a.png", 3]`, PathList{}},
		{"string not array", `"just a name"`, PathList{}},
		{"double encoded", `"\"[\\\"a\\\"]\""`, PathList{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParsePathList([]byte(tt.raw))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPathListJSON(t *testing.T) {
	var nilList PathList
	b, err := json.Marshal(nilList)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(b))

	var doc struct {
		Images PathList `json:"image_paths"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"image_paths":"[\"x.png\"]"}`), &doc))
	assert.Equal(t, PathList{"x.png"}, doc.Images)

	require.NoError(t, json.Unmarshal([]byte(`{"image_paths":42}`), &doc))
	assert.Empty(t, doc.Images)
}

func TestPathListSQL(t *testing.T) {
	var p PathList
	require.NoError(t, p.Scan(`["a.png"]`))
	assert.Equal(t, PathList{"a.png"}, p)

	require.NoError(t, p.Scan([]byte(`broken`)))
	assert.Empty(t, p)

	require.NoError(t, p.Scan(nil))
	assert.Empty(t, p)

	assert.Error(t, p.Scan(12))

	v, err := PathList{"a.png", "b.pdf"}.Value()
	require.NoError(t, err)
	assert.Equal(t, `["a.png","b.pdf"]`, v)

	v, err = PathList(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, `[]`, v)
}

func TestPathListEqual(t *testing.T) {
	assert.True(t, PathList{}.Equal(nil))
	assert.True(t, PathList{"a", "b"}.Equal(PathList{"a", "b"}))
	assert.False(t, PathList{"a", "b"}.Equal(PathList{"b", "a"}))
	assert.False(t, PathList{"a"}.Equal(PathList{"a", "b"}))
}
