package pack

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// Reference is one occurrence of an asset identifier inside a pack file.
type Reference struct {
	Kind AssetKind
	ID   Identifier
}

// Resolution describes where a reference landed.
type Resolution struct {
	// InTree is true when the referenced file exists in the tree.
	InTree bool
	// Vanilla is true when the file is absent but the identifier sits in the
	// minecraft namespace, so the game client supplies it.
	Vanilla bool
}

// Resolver answers reference lookups against a single tree. Identifiers in
// the minecraft namespace fall through to the client's built-in assets, so a
// tree miss there is advisory rather than an error. A miss in any other
// namespace is a broken reference.
type Resolver struct {
	tree *Tree
}

// NewResolver returns a resolver bound to t.
func NewResolver(t *Tree) *Resolver {
	return &Resolver{tree: t}
}

// Resolve locates id as an asset of the given kind. The from argument names
// the referencing file and is used only in error messages.
func (r *Resolver) Resolve(from string, id Identifier, kind AssetKind) (string, Resolution, error) {
	rel := id.File(kind)
	if r.tree.Has(rel) {
		return rel, Resolution{InTree: true}, nil
	}
	if id.IsVanilla() {
		logrus.Debugf("%s %s referenced from %s resolves to a client asset", kind, id, from)
		return rel, Resolution{Vanilla: true}, nil
	}
	return "", Resolution{}, &ReferenceError{Ref: id, Kind: kind, From: from}
}

// Model returns the parsed JSON of the model id, or nil with a vanilla
// resolution when the model is provided by the client.
func (r *Resolver) Model(from string, id Identifier) (map[string]any, Resolution, error) {
	rel, res, err := r.Resolve(from, id, KindModel)
	if err != nil {
		return nil, res, err
	}
	if res.Vanilla {
		return nil, res, nil
	}
	obj, err := r.tree.JSON(rel)
	if err != nil {
		return nil, res, err
	}
	return obj, res, nil
}

// Index maps every reference found in the tree's JSON files to the sorted
// list of files containing it. Malformed JSON and malformed identifiers are
// skipped; Verify reports them.
func (r *Resolver) Index() map[Reference][]string {
	index := make(map[Reference][]string)
	for _, rel := range r.tree.Paths() {
		if !strings.HasSuffix(strings.ToLower(rel), ".json") {
			continue
		}
		obj, err := r.tree.JSON(rel)
		if err != nil {
			continue
		}
		collectRefs(obj, func(raw string, kind AssetKind) {
			id, err := ParseIdentifier(raw)
			if err != nil {
				return
			}
			key := Reference{Kind: kind, ID: id}
			index[key] = append(index[key], rel)
		})
	}
	for key, files := range index {
		sort.Strings(files)
		index[key] = dedupeSorted(files)
	}
	return index
}

// Verify walks every JSON file and returns one error per broken or
// unparseable reference, sorted by message. Vanilla-namespace misses pass.
func (r *Resolver) Verify() []error {
	var errs []error
	for _, rel := range r.tree.Paths() {
		if !strings.HasSuffix(strings.ToLower(rel), ".json") {
			continue
		}
		obj, err := r.tree.JSON(rel)
		if err != nil {
			continue
		}
		from := rel
		collectRefs(obj, func(raw string, kind AssetKind) {
			id, err := ParseIdentifier(raw)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s reference %q in %s: %w", kind, raw, from, err))
				return
			}
			if _, _, err := r.Resolve(from, id, kind); err != nil {
				errs = append(errs, err)
			}
		})
	}
	sort.Slice(errs, func(i, j int) bool { return errs[i].Error() < errs[j].Error() })
	return errs
}

// collectRefs walks a parsed pack JSON document and emits every asset
// reference it contains. It understands legacy model files (parent, textures,
// overrides) and modern item descriptors (nested model nodes with fallback,
// entries and cases).
func collectRefs(obj map[string]any, emit func(ref string, kind AssetKind)) {
	if parent, ok := obj["parent"].(string); ok && parent != "" {
		emit(parent, KindModel)
	}
	if textures, ok := obj["textures"].(map[string]any); ok {
		for _, v := range textures {
			s, ok := v.(string)
			if !ok || s == "" || strings.HasPrefix(s, "#") {
				continue
			}
			emit(s, KindTexture)
		}
	}
	if overrides, ok := obj["overrides"].([]any); ok {
		for _, entry := range overrides {
			m, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			if ref, ok := m["model"].(string); ok && ref != "" {
				emit(ref, KindModel)
			}
		}
	}
	if node, ok := obj["model"].(map[string]any); ok {
		walkModelNode(node, emit)
	}
}

// walkModelNode descends a modern item-model node tree. Nodes carry a type
// key; a typeless map under model is an inline base declaration and is
// walked as a document of its own.
func walkModelNode(node map[string]any, emit func(ref string, kind AssetKind)) {
	switch v := node["model"].(type) {
	case string:
		if v != "" {
			emit(v, KindModel)
		}
	case map[string]any:
		if _, typed := v["type"]; typed {
			walkModelNode(v, emit)
		} else {
			collectRefs(v, emit)
		}
	}
	if fallback, ok := node["fallback"].(map[string]any); ok {
		walkModelNode(fallback, emit)
	}
	for _, key := range []string{"entries", "cases"} {
		list, ok := node[key].([]any)
		if !ok {
			continue
		}
		for _, entry := range list {
			m, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			walkModelNode(m, emit)
		}
	}
}

func dedupeSorted(s []string) []string {
	out := s[:0]
	for i, v := range s {
		if i == 0 || v != s[i-1] {
			out = append(out, v)
		}
	}
	return out
}
