package pack

import (
	"fmt"
	"path"
	"strings"
)

// DefaultNamespace is assumed whenever a reference omits the namespace part.
const DefaultNamespace = "minecraft"

// AssetKind tells how an identifier maps onto files inside a resource pack.
type AssetKind int

const (
	KindModel AssetKind = iota
	KindItemDefinition
	KindTexture
)

// String returns the kind name used in reports and error messages.
func (k AssetKind) String() string {
	switch k {
	case KindModel:
		return "model"
	case KindItemDefinition:
		return "item_definition"
	case KindTexture:
		return "texture"
	default:
		return "unknown"
	}
}

// Root returns the directory under assets/<namespace>/ holding this kind.
func (k AssetKind) Root() string {
	switch k {
	case KindModel:
		return "models"
	case KindItemDefinition:
		return "items"
	case KindTexture:
		return "textures"
	default:
		return ""
	}
}

// ext returns the file extension used by this kind.
func (k AssetKind) ext() string {
	if k == KindTexture {
		return ".png"
	}
	return ".json"
}

// Identifier addresses a single asset as namespace:path.
type Identifier struct {
	Namespace string
	Path      string
}

// ParseIdentifier splits a reference into namespace and path, applying the
// default namespace when none is given. Path traversal segments and absolute
// paths are rejected so a malicious reference can never escape the pack.
func ParseIdentifier(ref string) (Identifier, error) {
	ns := DefaultNamespace
	p := ref

	if i := strings.IndexByte(ref, ':'); i >= 0 {
		ns = ref[:i]
		p = ref[i+1:]
	}

	if ns == "" || p == "" {
		return Identifier{}, fmt.Errorf("invalid resource reference %q", ref)
	}
	if strings.Contains(ref, "\\") || strings.HasPrefix(p, "/") {
		return Identifier{}, fmt.Errorf("invalid resource reference %q", ref)
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return Identifier{}, fmt.Errorf("invalid resource reference %q", ref)
		}
	}

	return Identifier{Namespace: ns, Path: p}, nil
}

// String returns the canonical namespace:path form.
func (id Identifier) String() string {
	return id.Namespace + ":" + id.Path
}

// IsVanilla reports whether the identifier lives in the minecraft namespace.
func (id Identifier) IsVanilla() bool {
	return id.Namespace == DefaultNamespace
}

// BaseName returns the last segment of the identifier path.
func (id Identifier) BaseName() string {
	return path.Base(id.Path)
}

// File returns the tree-relative file path addressed by the identifier under
// the given asset kind.
func (id Identifier) File(kind AssetKind) string {
	return path.Join("assets", id.Namespace, kind.Root(), id.Path) + kind.ext()
}

// IdentifyFile maps a tree-relative file path back to its identifier and kind.
// The boolean is false for paths outside the assets/<namespace>/<root>/ layout.
func IdentifyFile(rel string) (Identifier, AssetKind, bool) {
	parts := strings.SplitN(rel, "/", 4)
	if len(parts) != 4 || parts[0] != "assets" {
		return Identifier{}, 0, false
	}

	var kind AssetKind
	switch parts[2] {
	case "models":
		kind = KindModel
	case "items":
		kind = KindItemDefinition
	case "textures":
		kind = KindTexture
	default:
		return Identifier{}, 0, false
	}

	rest := parts[3]
	if !strings.HasSuffix(rest, kind.ext()) {
		return Identifier{}, 0, false
	}
	rest = strings.TrimSuffix(rest, kind.ext())
	if rest == "" {
		return Identifier{}, 0, false
	}

	return Identifier{Namespace: parts[1], Path: rest}, kind, true
}
