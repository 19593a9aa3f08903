// Package version holds the table of supported target game versions and the
// per-version knobs the converters and the layout normalizer consult.
package version

import (
	_ "embed"
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Encoding selects how generated item descriptors dispatch on the
// custom-model-data value.
type Encoding string

const (
	// EncodingRangeDispatch emits a range_dispatch node with numeric
	// thresholds. This matches what the game's own migration produces.
	EncodingRangeDispatch Encoding = "range_dispatch"
	// EncodingSelect emits a select node with exact string cases.
	EncodingSelect Encoding = "select"
)

// ParseEncoding validates a user-supplied encoding name. Empty means no
// preference and resolves to the target version's default.
func ParseEncoding(s string) (Encoding, error) {
	switch Encoding(s) {
	case "", EncodingRangeDispatch, EncodingSelect:
		return Encoding(s), nil
	}
	return "", fmt.Errorf("unknown encoding %q, want %s or %s", s, EncodingRangeDispatch, EncodingSelect)
}

// Move relocates files of one document shape between asset roots. From and To
// are slash paths relative to assets/<namespace>/.
type Move struct {
	Shape string `yaml:"shape"`
	From  string `yaml:"from"`
	To    string `yaml:"to"`
}

// ShapeItemDescriptor matches JSON documents with a top-level model object,
// the modern item definition format.
const ShapeItemDescriptor = "item_descriptor"

// Version bundles everything that varies between target game versions.
type Version struct {
	ID         string   `yaml:"id"`
	PackFormat int      `yaml:"pack_format"`
	Encoding   Encoding `yaml:"encoding"`
	Moves      []Move   `yaml:"moves"`
}

type table struct {
	Default  string    `yaml:"default"`
	Versions []Version `yaml:"versions"`
}

//go:embed versions.yaml
var rawTable []byte

var (
	loadOnce   sync.Once
	loadErr    error
	byID       map[string]Version
	defaultVer Version
)

func load() {
	loadOnce.Do(func() {
		var tbl table
		if err := yaml.Unmarshal(rawTable, &tbl); err != nil {
			loadErr = fmt.Errorf("failed to parse version table: %w", err)
			return
		}

		byID = make(map[string]Version, len(tbl.Versions))
		for _, v := range tbl.Versions {
			if v.ID == "" || v.PackFormat <= 0 {
				loadErr = fmt.Errorf("version table entry %q is incomplete", v.ID)
				return
			}
			if _, err := ParseEncoding(string(v.Encoding)); err != nil || v.Encoding == "" {
				loadErr = fmt.Errorf("version %s has invalid encoding %q", v.ID, v.Encoding)
				return
			}
			for _, m := range v.Moves {
				if m.Shape != ShapeItemDescriptor || m.From == "" || m.To == "" {
					loadErr = fmt.Errorf("version %s has invalid move %+v", v.ID, m)
					return
				}
			}
			if _, dup := byID[v.ID]; dup {
				loadErr = fmt.Errorf("version table lists %s twice", v.ID)
				return
			}
			byID[v.ID] = v
		}

		def, ok := byID[tbl.Default]
		if !ok {
			loadErr = fmt.Errorf("version table default %q is not listed", tbl.Default)
			return
		}
		defaultVer = def
	})
}

// Default returns the version targeted when the caller names none.
func Default() Version {
	load()
	if loadErr != nil {
		// The table is embedded, so a parse failure is a build defect.
		panic(loadErr)
	}
	return defaultVer
}

// Lookup resolves a version by ID. The empty string resolves to the default.
func Lookup(id string) (Version, error) {
	load()
	if loadErr != nil {
		panic(loadErr)
	}
	if id == "" {
		return defaultVer, nil
	}
	v, ok := byID[id]
	if !ok {
		return Version{}, fmt.Errorf("unsupported target version %q, supported: %v", id, IDs())
	}
	return v, nil
}

// IDs returns the supported version IDs in sorted order.
func IDs() []string {
	load()
	if loadErr != nil {
		panic(loadErr)
	}
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
