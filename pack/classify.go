package pack

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// Classification buckets the files of a tree by conversion relevance. The
// slices hold tree-relative paths in sorted walk order; nothing downstream may
// depend on that order for correctness, only for reproducible logging.
type Classification struct {
	// ItemDefinitions are legacy item models carrying custom-model-data
	// predicate overrides.
	ItemDefinitions []string
	// Models are model-shaped JSON files without qualifying overrides.
	Models []string
	// Others is everything copied through untouched: textures, pack.mcmeta,
	// sounds, JSON with unrecognized top-level shapes.
	Others []string
	// Malformed records .json files that failed to parse. These are skipped,
	// reported, and never fatal to the run.
	Malformed []*ParseError
}

// Classify inspects every file in the tree and buckets it for the converters.
func Classify(t *Tree) *Classification {
	cls := &Classification{}

	for _, rel := range t.Paths() {
		if !strings.HasSuffix(strings.ToLower(rel), ".json") {
			cls.Others = append(cls.Others, rel)
			continue
		}

		obj, err := t.JSON(rel)
		if err != nil {
			if pe, ok := err.(*ParseError); ok {
				logrus.Warnf("skipping malformed JSON %s: %v", rel, pe.Err)
				cls.Malformed = append(cls.Malformed, pe)
				continue
			}
			// Tree misses cannot happen while iterating Paths.
			cls.Others = append(cls.Others, rel)
			continue
		}

		switch {
		case IsItemDefinition(obj):
			cls.ItemDefinitions = append(cls.ItemDefinitions, rel)
		case IsModel(obj):
			cls.Models = append(cls.Models, rel)
		default:
			cls.Others = append(cls.Others, rel)
		}
	}

	return cls
}

// IsItemDefinition reports whether a parsed JSON document is a legacy item
// definition, meaning it has at least one override keyed by a
// custom_model_data predicate.
func IsItemDefinition(obj map[string]any) bool {
	overrides, ok := obj["overrides"].([]any)
	if !ok {
		return false
	}
	for _, entry := range overrides {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		predicate, ok := m["predicate"].(map[string]any)
		if !ok {
			continue
		}
		if _, ok := predicate["custom_model_data"]; ok {
			return true
		}
	}
	return false
}

// IsModel reports whether a parsed JSON document looks like a model file.
func IsModel(obj map[string]any) bool {
	if _, ok := obj["parent"]; ok {
		return true
	}
	if _, ok := obj["textures"]; ok {
		return true
	}
	if _, ok := obj["elements"]; ok {
		return true
	}
	return false
}
