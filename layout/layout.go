// Package layout rewrites a converted pack into the folder structure its
// target game version expects.
package layout

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/d1nch8g/packbridge/pack"
	"github.com/d1nch8g/packbridge/version"
)

const indent = "    "

// Options tunes a normalization pass.
type Options struct {
	// Sink receives per-move progress. Nil discards it.
	Sink pack.ProgressSink
	// Version is the target game version. The zero value means the table
	// default.
	Version version.Version
}

// plannedMove is one relocation, resolved to concrete tree paths.
type plannedMove struct {
	from     string
	to       string
	fromKind pack.AssetKind
	toKind   pack.AssetKind
	sameKind bool
}

// Normalize rewrites dir in place into the layout the target version
// mandates. Every move is planned and applied in memory, cross-references to
// assets that stay within their kind are rewritten from a reference index
// built before the first move, and the whole tree must verify before a
// single byte reaches disk. Running Normalize on its own output changes
// nothing.
func Normalize(ctx context.Context, dir string, opts Options) error {
	v := opts.Version
	if v.ID == "" {
		v = version.Default()
	}
	sink := pack.SinkOrNop(opts.Sink)

	tree, err := pack.LoadTree(dir)
	if err != nil {
		return err
	}

	resolver := pack.NewResolver(tree)
	index := resolver.Index()

	plan, err := planMoves(tree, v.Moves)
	if err != nil {
		return err
	}

	// Sources are snapshotted before the first write, so a rule set that
	// chains (one rule's destination is another's source) reads pre-move
	// content no matter the application order.
	payload := make(map[string][]byte, len(plan))
	destinations := make(map[string]bool, len(plan))
	for _, mv := range plan {
		data, _ := tree.Get(mv.from)
		payload[mv.from] = data
		destinations[mv.to] = true
	}

	sink.Report(0, len(plan))
	for i, mv := range plan {
		if err := ctx.Err(); err != nil {
			return err
		}

		tree.Put(mv.to, payload[mv.from])
		if !destinations[mv.from] {
			tree.Remove(mv.from)
		}
		logrus.Debugf("relocated %s to %s", mv.from, mv.to)
		sink.Message("moving " + mv.from)
		sink.Report(i+1, len(plan))
	}

	if err := rewriteMovedRefs(tree, index, plan); err != nil {
		return err
	}

	if err := pack.SetPackFormat(tree, v.PackFormat); err != nil {
		return err
	}

	if errs := resolver.Verify(); len(errs) > 0 {
		return fmt.Errorf("layout verification failed: %w", errors.Join(errs...))
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := tree.WriteTo(dir); err != nil {
		return fmt.Errorf("failed to write normalized tree: %w", err)
	}

	logrus.Infof("layout normalized for %s: %d files relocated", v.ID, len(plan))
	return nil
}

// planMoves matches every tree file against the version's move rules. Only
// files whose parsed document matches the rule's shape are picked up, so a
// stray model or texture sitting in a rule's source directory stays put.
func planMoves(tree *pack.Tree, rules []version.Move) ([]plannedMove, error) {
	var plan []plannedMove
	sources := make(map[string]bool)
	targets := make(map[string]string)

	for _, rule := range rules {
		for _, rel := range tree.Paths() {
			// A file claimed by an earlier rule stays with it.
			if sources[rel] {
				continue
			}
			ns, sub, ok := splitUnderRoot(rel, rule.From)
			if !ok || !matchesShape(tree, rel, rule.Shape) {
				continue
			}

			to := "assets/" + ns + "/" + rule.To + "/" + sub
			if first, dup := targets[to]; dup {
				return nil, fmt.Errorf("failed to relocate %s: %s also moves to %s", rel, first, to)
			}
			targets[to] = rel
			sources[rel] = true
			plan = append(plan, plannedMove{
				from:     rel,
				to:       to,
				fromKind: rootKind(rule.From),
				toKind:   rootKind(rule.To),
				sameKind: rootKind(rule.From) == rootKind(rule.To),
			})
		}
	}

	for _, mv := range plan {
		if tree.Has(mv.to) && !sources[mv.to] {
			return nil, fmt.Errorf("failed to relocate %s: destination %s already exists", mv.from, mv.to)
		}
	}

	sort.Slice(plan, func(i, j int) bool { return plan[i].from < plan[j].from })
	return plan, nil
}

// splitUnderRoot checks whether rel is a JSON file under
// assets/<ns>/<root>/ and returns the namespace and remaining subpath.
func splitUnderRoot(rel, root string) (ns, sub string, ok bool) {
	if !strings.HasSuffix(strings.ToLower(rel), ".json") {
		return "", "", false
	}
	rest, found := strings.CutPrefix(rel, "assets/")
	if !found {
		return "", "", false
	}
	ns, rest, found = strings.Cut(rest, "/")
	if !found || ns == "" {
		return "", "", false
	}
	sub, found = strings.CutPrefix(rest, root+"/")
	if !found || sub == "" {
		return "", "", false
	}
	return ns, sub, true
}

// rootKind maps a rule path to the asset kind of its top directory.
func rootKind(root string) pack.AssetKind {
	switch {
	case root == "items" || strings.HasPrefix(root, "items/"):
		return pack.KindItemDefinition
	case root == "textures" || strings.HasPrefix(root, "textures/"):
		return pack.KindTexture
	default:
		return pack.KindModel
	}
}

// matchesShape tests a file's parsed document against a rule shape.
// Unreadable JSON never matches.
func matchesShape(tree *pack.Tree, rel, shape string) bool {
	obj, err := tree.JSON(rel)
	if err != nil {
		return false
	}
	switch shape {
	case version.ShapeItemDescriptor:
		_, ok := obj["model"].(map[string]any)
		return ok
	default:
		return false
	}
}

// rewriteMovedRefs updates references to assets that moved without changing
// kind. A kind-changing move has no same-kind address at the new location;
// references to those are left for verification to judge. The index predates
// the moves, so referencing files that moved themselves are followed to
// their new paths.
func rewriteMovedRefs(tree *pack.Tree, index map[pack.Reference][]string, plan []plannedMove) error {
	relocated := make(map[string]string, len(plan))
	for _, mv := range plan {
		relocated[mv.from] = mv.to
	}

	for _, mv := range plan {
		if !mv.sameKind {
			continue
		}
		fromID, _, ok := pack.IdentifyFile(mv.from)
		if !ok {
			continue
		}
		toID, _, ok := pack.IdentifyFile(mv.to)
		if !ok {
			continue
		}

		for _, rel := range index[pack.Reference{Kind: mv.fromKind, ID: fromID}] {
			if nw, moved := relocated[rel]; moved {
				rel = nw
			}
			obj, err := tree.JSON(rel)
			if err != nil {
				continue
			}
			if rewriteRefs(obj, mv.fromKind, fromID, toID) {
				if err := tree.PutJSON(rel, obj, indent); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// rewriteRefs replaces every reference to fromID of the given kind inside a
// parsed document, keeping the original qualification style. Reports whether
// anything changed.
func rewriteRefs(obj map[string]any, kind pack.AssetKind, fromID, toID pack.Identifier) bool {
	replace := func(ref string, refKind pack.AssetKind) (string, bool) {
		if refKind != kind {
			return "", false
		}
		id, err := pack.ParseIdentifier(ref)
		if err != nil || id != fromID {
			return "", false
		}
		if !strings.Contains(ref, ":") && toID.IsVanilla() {
			return toID.Path, true
		}
		return toID.String(), true
	}
	return rewriteDoc(obj, replace)
}

// rewriteDoc walks the reference-bearing sections of one document. Inline
// base declarations nested in descriptor nodes take the same walk.
func rewriteDoc(obj map[string]any, replace func(string, pack.AssetKind) (string, bool)) bool {
	changed := false
	if parent, ok := obj["parent"].(string); ok && parent != "" {
		if nw, hit := replace(parent, pack.KindModel); hit {
			obj["parent"] = nw
			changed = true
		}
	}
	if textures, ok := obj["textures"].(map[string]any); ok {
		for key, val := range textures {
			s, ok := val.(string)
			if !ok || s == "" || strings.HasPrefix(s, "#") {
				continue
			}
			if nw, hit := replace(s, pack.KindTexture); hit {
				textures[key] = nw
				changed = true
			}
		}
	}
	if overrides, ok := obj["overrides"].([]any); ok {
		for _, entry := range overrides {
			m, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			if ref, ok := m["model"].(string); ok && ref != "" {
				if nw, hit := replace(ref, pack.KindModel); hit {
					m["model"] = nw
					changed = true
				}
			}
		}
	}
	if node, ok := obj["model"].(map[string]any); ok {
		changed = rewriteModelNode(node, replace) || changed
	}
	return changed
}

func rewriteModelNode(node map[string]any, replace func(string, pack.AssetKind) (string, bool)) bool {
	changed := false
	switch v := node["model"].(type) {
	case string:
		if v != "" {
			if nw, hit := replace(v, pack.KindModel); hit {
				node["model"] = nw
				changed = true
			}
		}
	case map[string]any:
		if _, typed := v["type"]; typed {
			changed = rewriteModelNode(v, replace) || changed
		} else {
			changed = rewriteDoc(v, replace) || changed
		}
	}
	if fallback, ok := node["fallback"].(map[string]any); ok {
		changed = rewriteModelNode(fallback, replace) || changed
	}
	for _, key := range []string{"entries", "cases"} {
		list, ok := node[key].([]any)
		if !ok {
			continue
		}
		for _, entry := range list {
			if m, ok := entry.(map[string]any); ok {
				changed = rewriteModelNode(m, replace) || changed
			}
		}
	}
	return changed
}
