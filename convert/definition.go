package convert

import (
	"path"
	"strings"

	"github.com/d1nch8g/packbridge/pack"
)

// override is one parsed custom-model-data predicate entry, in source order.
type override struct {
	Value int
	Model string
}

// parseOverrides extracts the custom-model-data overrides of a legacy item
// definition in source order. Overrides keyed by other predicates are
// dropped, matching what the modern formats can express. Two overrides
// claiming the same value make the definition unconvertible.
func parseOverrides(rel string, obj map[string]any) ([]override, error) {
	raw, _ := obj["overrides"].([]any)

	var out []override
	seen := make(map[int]string)

	for _, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		predicate, ok := m["predicate"].(map[string]any)
		if !ok {
			continue
		}
		cmd, ok := predicate["custom_model_data"].(float64)
		if !ok {
			continue
		}
		model, ok := m["model"].(string)
		if !ok || model == "" {
			continue
		}

		value := int(cmd)
		if first, dup := seen[value]; dup {
			return nil, &AmbiguousPredicateError{Path: rel, Value: value, First: first, Second: model}
		}
		seen[value] = model
		out = append(out, override{Value: value, Model: model})
	}

	return out, nil
}

// baseModelRef derives the fallback model reference of a definition from its
// layer0 texture. Texture and item model paths mirror each other for the
// items this scheme applies to, so the texture path doubles as the model
// reference once an item/ prefix is ensured. A definition without a layer0
// texture falls back to its own identifier.
func baseModelRef(rel string, obj map[string]any) string {
	var base string
	if textures, ok := obj["textures"].(map[string]any); ok {
		base, _ = textures["layer0"].(string)
	}

	if base == "" {
		if id, _, ok := pack.IdentifyFile(rel); ok {
			if id.IsVanilla() {
				return id.Path
			}
			return id.String()
		}
		return "item/" + strings.TrimSuffix(path.Base(rel), path.Ext(rel))
	}

	if ns, p, found := strings.Cut(base, ":"); found {
		if strings.HasPrefix(p, "item/") {
			return base
		}
		return ns + ":item/" + p
	}
	if strings.HasPrefix(base, "item/") {
		return base
	}
	return "item/" + base
}
