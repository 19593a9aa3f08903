package pack

// McmetaFile is the pack metadata file at the root of every resource pack.
const McmetaFile = "pack.mcmeta"

// SetPackFormat stamps the pack_format field of pack.mcmeta, keeping every
// other key intact. A missing or unreadable pack.mcmeta is replaced with a
// minimal one so the output stays loadable.
func SetPackFormat(t *Tree, format int) error {
	obj, err := t.JSON(McmetaFile)
	if err != nil {
		obj = map[string]any{}
	}
	section, ok := obj["pack"].(map[string]any)
	if !ok {
		section = map[string]any{"description": ""}
	}
	section["pack_format"] = format
	obj["pack"] = section
	return t.PutJSON(McmetaFile, obj, "    ")
}

// PackFormat reads the pack_format field of pack.mcmeta. The second return
// is false when the file or field is absent or malformed.
func PackFormat(t *Tree) (int, bool) {
	obj, err := t.JSON(McmetaFile)
	if err != nil {
		return 0, false
	}
	section, ok := obj["pack"].(map[string]any)
	if !ok {
		return 0, false
	}
	switch v := section["pack_format"].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}
