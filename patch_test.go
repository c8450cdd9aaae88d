package goserdes_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	goserdes "github.com/reoring/goserdes"
)

func TestApplyPatches(t *testing.T) {
	doc := map[string]any{
		"products": []any{map[string]any{"prod_id": "p1", "name": "Laptop"}},
		"version":  int64(1),
	}

	got, err := goserdes.ApplyPatches(doc)
	require.NoError(t, err)
	assert.Equal(t, doc, got, "no patches returns the document")

	got, err = goserdes.ApplyPatches(doc,
		goserdes.Patch(`[{"op": "add", "path": "/products/-", "value": {"prod_id": "p2", "name": "Phone"}}]`),
		goserdes.Patch(`{"version": null, "owner": "shop"}`),
	)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"products": []any{
			map[string]any{"prod_id": "p1", "name": "Laptop"},
			map[string]any{"prod_id": "p2", "name": "Phone"},
		},
		"owner": "shop",
	}, got)
	assert.Equal(t, int64(1), doc["version"], "input is not modified")

	_, err = goserdes.ApplyPatches(doc, goserdes.Patch(`[{"op": "test", "path": "/version", "value": 2}]`))
	require.Error(t, err)
	_, err = goserdes.ApplyPatches(doc, goserdes.Patch(`{not json`))
	require.Error(t, err)
}

func TestPatch_IsJSONPatch(t *testing.T) {
	assert.True(t, goserdes.Patch("  [ ]").IsJSONPatch())
	assert.False(t, goserdes.Patch(`{"a": 1}`).IsJSONPatch())
	assert.False(t, goserdes.Patch("").IsJSONPatch())
}
