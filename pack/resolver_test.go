package pack

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resolverTree() *Tree {
	tree := NewTree()
	tree.Put("assets/custom/models/item/wand.json", []byte(`{
		"parent": "item/generated",
		"textures": {"layer0": "custom:item/wand"}
	}`))
	tree.Put("assets/custom/textures/item/wand.png", []byte{0x89, 'P', 'N', 'G'})
	tree.Put("assets/minecraft/models/item/stick.json", []byte(`{
		"parent": "item/handheld",
		"textures": {"layer0": "item/stick"}
	}`))
	return tree
}

func TestResolver_Resolve(t *testing.T) {
	r := NewResolver(resolverTree())

	tests := []struct {
		name        string
		ref         string
		kind        AssetKind
		wantRel     string
		wantInTree  bool
		wantVanilla bool
		shouldError bool
	}{
		{
			name:       "custom namespace hit",
			ref:        "custom:item/wand",
			kind:       KindModel,
			wantRel:    "assets/custom/models/item/wand.json",
			wantInTree: true,
		},
		{
			name:       "vanilla namespace hit",
			ref:        "item/stick",
			kind:       KindModel,
			wantRel:    "assets/minecraft/models/item/stick.json",
			wantInTree: true,
		},
		{
			name:        "vanilla namespace miss is client provided",
			ref:         "item/generated",
			kind:        KindModel,
			wantRel:     "assets/minecraft/models/item/generated.json",
			wantVanilla: true,
		},
		{
			name:        "custom namespace miss is broken",
			ref:         "custom:item/missing",
			kind:        KindModel,
			shouldError: true,
		},
		{
			name:       "texture kind",
			ref:        "custom:item/wand",
			kind:       KindTexture,
			wantRel:    "assets/custom/textures/item/wand.png",
			wantInTree: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := ParseIdentifier(tt.ref)
			require.NoError(t, err)

			rel, res, err := r.Resolve("test.json", id, tt.kind)
			if tt.shouldError {
				require.Error(t, err)
				var re *ReferenceError
				require.True(t, errors.As(err, &re))
				assert.Equal(t, id, re.Ref)
				assert.Equal(t, "test.json", re.From)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantRel, rel)
			assert.Equal(t, tt.wantInTree, res.InTree)
			assert.Equal(t, tt.wantVanilla, res.Vanilla)
		})
	}
}

func TestResolver_Model(t *testing.T) {
	r := NewResolver(resolverTree())

	obj, res, err := r.Model("test.json", Identifier{Namespace: "custom", Path: "item/wand"})
	require.NoError(t, err)
	assert.True(t, res.InTree)
	assert.Equal(t, "item/generated", obj["parent"])

	obj, res, err = r.Model("test.json", Identifier{Namespace: "minecraft", Path: "item/generated"})
	require.NoError(t, err)
	assert.True(t, res.Vanilla)
	assert.Nil(t, obj)

	_, _, err = r.Model("test.json", Identifier{Namespace: "custom", Path: "item/missing"})
	assert.Error(t, err)
}

func TestResolver_Index(t *testing.T) {
	tree := resolverTree()
	tree.Put("assets/custom/models/item/wand_glow.json", []byte(`{
		"parent": "custom:item/wand",
		"textures": {"layer0": "custom:item/wand", "particle": "#layer0"}
	}`))
	r := NewResolver(tree)

	index := r.Index()

	wandModel := Reference{Kind: KindModel, ID: Identifier{Namespace: "custom", Path: "item/wand"}}
	assert.Equal(t, []string{"assets/custom/models/item/wand_glow.json"}, index[wandModel])

	wandTexture := Reference{Kind: KindTexture, ID: Identifier{Namespace: "custom", Path: "item/wand"}}
	assert.Equal(t, []string{
		"assets/custom/models/item/wand.json",
		"assets/custom/models/item/wand_glow.json",
	}, index[wandTexture])

	// Local texture variables never reach the index.
	for ref := range index {
		assert.NotContains(t, ref.ID.Path, "#")
	}
}

func TestResolver_Verify_Clean(t *testing.T) {
	r := NewResolver(resolverTree())
	assert.Empty(t, r.Verify())
}

func TestResolver_Verify_BrokenReference(t *testing.T) {
	tree := resolverTree()
	tree.Put("assets/custom/models/item/broken.json", []byte(`{
		"parent": "custom:item/gone",
		"textures": {"layer0": "custom:item/also_gone"}
	}`))
	r := NewResolver(tree)

	errs := r.Verify()
	require.Len(t, errs, 2)
	var re *ReferenceError
	require.True(t, errors.As(errs[0], &re))
	assert.Equal(t, "assets/custom/models/item/broken.json", re.From)
}

func TestResolver_Verify_InvalidIdentifier(t *testing.T) {
	tree := resolverTree()
	tree.Put("assets/custom/models/item/evil.json", []byte(`{
		"parent": "custom:../../../etc/passwd"
	}`))
	r := NewResolver(tree)

	errs := r.Verify()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "invalid model reference")
}

func TestResolver_Verify_WalksDescriptors(t *testing.T) {
	tree := resolverTree()
	tree.Put("assets/minecraft/items/stick.json", []byte(`{
		"model": {
			"type": "range_dispatch",
			"property": "custom_model_data",
			"fallback": {"type": "model", "model": "item/stick"},
			"entries": [
				{"threshold": 1, "model": {"type": "model", "model": "custom:item/wand"}},
				{"threshold": 2, "model": {"type": "model", "model": "custom:item/vanished"}}
			]
		}
	}`))
	r := NewResolver(tree)

	errs := r.Verify()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "custom:item/vanished")
}

func TestResolver_Verify_WalksSelectCases(t *testing.T) {
	tree := resolverTree()
	tree.Put("assets/minecraft/items/stick.json", []byte(`{
		"model": {
			"type": "select",
			"property": "custom_model_data",
			"fallback": {"type": "model", "model": "item/stick"},
			"cases": [
				{"when": "1", "model": {"type": "model", "model": "custom:item/nowhere"}}
			]
		}
	}`))
	r := NewResolver(tree)

	errs := r.Verify()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "custom:item/nowhere")
}

func TestResolver_Verify_WalksInlineFallback(t *testing.T) {
	tree := resolverTree()
	tree.Put("assets/custom/items/wand.json", []byte(`{
		"model": {
			"type": "range_dispatch",
			"property": "custom_model_data",
			"fallback": {"type": "model", "model": {
				"parent": "custom:item/phantom",
				"textures": {"layer0": "custom:item/wand"}
			}},
			"entries": [
				{"threshold": 1, "model": {"type": "model", "model": "custom:item/wand"}}
			]
		}
	}`))
	r := NewResolver(tree)

	// The inline base declaration is walked like any model document, so its
	// dangling parent surfaces while the resolvable texture passes.
	errs := r.Verify()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "custom:item/phantom")
}
