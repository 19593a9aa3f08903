package convert

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/d1nch8g/packbridge/pack"
	"github.com/d1nch8g/packbridge/version"
)

// ItemModel converts a legacy pack into per-variant item models. Every item
// definition with custom-model-data overrides yields one model file per
// override, a rewritten base model stripped of the override list, and a root
// item descriptor selecting among them by exact value. Definitions outside
// models/item cannot be addressed by the item scheme and are skipped.
//
// Unlike the custom-model-data path, the result needs no layout pass; the
// tree is verified and the pack format stamped before anything is written.
func ItemModel(ctx context.Context, inputDir, outputDir string, opts Options) (*Report, error) {
	v, _, sink := opts.resolved()
	report := newReport(ModeItemModel, v.ID, string(version.EncodingSelect))

	tree, err := pack.LoadTree(inputDir)
	if err != nil {
		return nil, err
	}

	cls := pack.Classify(tree)
	for _, pe := range cls.Malformed {
		report.parseFailed(pe.Path, pe.Err)
	}

	definitions := make(map[string]bool, len(cls.ItemDefinitions))
	for _, rel := range cls.ItemDefinitions {
		definitions[rel] = true
	}
	malformed := make(map[string]bool, len(cls.Malformed))
	for _, pe := range cls.Malformed {
		malformed[pe.Path] = true
	}

	resolver := pack.NewResolver(tree)
	// generated maps every materialized path to the definition it came from,
	// so collisions across definitions name both offenders.
	generated := make(map[string]string)

	paths := tree.Paths()
	total := len(paths)
	report.Scanned = total
	sink.Report(0, total)

	for i, rel := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if definitions[rel] {
			converted, err := materializeDefinition(tree, resolver, generated, rel, report)
			if err != nil {
				return nil, err
			}
			if converted {
				sink.Message("converted " + rel)
			}
		} else if !malformed[rel] {
			report.copied(rel)
		}

		sink.Report(i+1, total)
	}

	if err := pack.SetPackFormat(tree, v.PackFormat); err != nil {
		return nil, err
	}

	if errs := resolver.Verify(); len(errs) > 0 {
		return nil, fmt.Errorf("output verification failed: %w", errors.Join(errs...))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := tree.WriteTo(outputDir); err != nil {
		return nil, fmt.Errorf("failed to write output tree: %w", err)
	}

	report.finish()
	logrus.Infof("item model conversion done: %d rewritten, %d generated, %d copied, %d skipped of %d files",
		report.Rewritten, report.Generated, report.Copied, report.Skipped, report.Scanned)
	return report, nil
}

// plannedVariant is one model file ready to be written for a definition.
// Planning is separated from writing so a skipped or failing definition never
// leaves partial variants in the tree.
type plannedVariant struct {
	rel     string
	ref     string
	value   int
	content map[string]any
}

func materializeDefinition(tree *pack.Tree, resolver *pack.Resolver, generated map[string]string, rel string, report *Report) (bool, error) {
	obj, err := tree.JSON(rel)
	if err != nil {
		return false, err
	}

	id, kind, ok := pack.IdentifyFile(rel)
	if !ok || kind != pack.KindModel || !strings.HasPrefix(id.Path, "item/") {
		report.skipped(rel, "item definition outside models/item")
		return false, nil
	}

	ovs, err := parseOverrides(rel, obj)
	if err != nil {
		return false, err
	}
	if len(ovs) == 0 {
		report.skipped(rel, "no convertible overrides")
		return false, nil
	}

	// Rendering fields on the definition itself do not travel through the
	// parent chain of an override target, so they are materialized onto each
	// variant unless the target declares its own.
	inherit := make(map[string]any)
	for _, key := range []string{"display", "gui_light"} {
		if v, ok := obj[key]; ok {
			inherit[key] = v
		}
	}

	plans := make([]plannedVariant, 0, len(ovs))
	for _, ov := range ovs {
		variantID := pack.Identifier{
			Namespace: id.Namespace,
			Path:      "item/" + id.BaseName() + "_" + strconv.Itoa(ov.Value),
		}
		variantRel := variantID.File(pack.KindModel)
		if src, dup := generated[variantRel]; dup {
			return false, &DuplicateVariantError{ID: variantID, FirstSource: src, SecondSource: rel}
		}
		if tree.Has(variantRel) {
			return false, &DuplicateVariantError{ID: variantID, FirstSource: variantRel, SecondSource: rel}
		}

		overrideID, err := pack.ParseIdentifier(ov.Model)
		if err != nil {
			return false, fmt.Errorf("invalid model reference %q in %s: %w", ov.Model, rel, err)
		}

		var content map[string]any
		target, _, err := resolver.Model(rel, overrideID)
		switch {
		case err == nil:
			content = map[string]any{"parent": ov.Model}
			for key, val := range inherit {
				if target == nil || target[key] == nil {
					content[key] = val
				}
			}
		default:
			var pe *pack.ParseError
			var re *pack.ReferenceError
			if errors.As(err, &pe) {
				// Classification already reported the parse failure.
				report.skipped(rel, "override target "+pe.Path+" is malformed")
				return false, nil
			}
			if !errors.As(err, &re) {
				return false, err
			}
			// The override points at a model that is neither in the pack nor
			// vanilla-provided. The variant is built from the base declaration
			// so the output never carries the dead reference.
			content = selfContained(obj)
			logrus.Warnf("override %s in %s does not resolve, variant falls back to the base declaration", ov.Model, rel)
		}
		plans = append(plans, plannedVariant{
			rel:     variantRel,
			ref:     variantID.String(),
			value:   ov.Value,
			content: content,
		})
	}

	subpath := strings.TrimPrefix(id.Path, "item/")
	rootID := pack.Identifier{Namespace: id.Namespace, Path: subpath}
	rootRel := rootID.File(pack.KindItemDefinition)
	if src, dup := generated[rootRel]; dup {
		return false, &DuplicateVariantError{ID: rootID, FirstSource: src, SecondSource: rel}
	}
	if tree.Has(rootRel) {
		return false, &DuplicateVariantError{ID: rootID, FirstSource: rootRel, SecondSource: rel}
	}

	// All checks passed, write everything.
	for _, p := range plans {
		if err := tree.PutJSON(p.rel, p.content, indentNarrow); err != nil {
			return false, err
		}
		generated[p.rel] = rel
		report.generated(p.rel, rel)
	}

	base := make(map[string]any, len(obj))
	for k, v := range obj {
		if k != "overrides" {
			base[k] = v
		}
	}
	if err := tree.PutJSON(rel, base, indentNarrow); err != nil {
		return false, err
	}
	report.converted(rel)

	cases := make([]override, len(plans))
	for i, p := range plans {
		cases[i] = override{Value: p.value, Model: p.ref}
	}
	doc := map[string]any{"model": selectNode(modelNode(id.String()), cases)}
	if err := tree.PutJSON(rootRel, doc, indentNarrow); err != nil {
		return false, err
	}
	generated[rootRel] = rel
	report.generated(rootRel, rel)

	logrus.Debugf("materialized %d variants for %s", len(plans), rel)
	return true, nil
}

// selfContained copies the renderable fields of a base declaration into a
// standalone variant model.
func selfContained(obj map[string]any) map[string]any {
	content := make(map[string]any)
	for _, key := range []string{"parent", "textures", "elements", "display", "gui_light"} {
		if v, ok := obj[key]; ok {
			content[key] = v
		}
	}
	return content
}
