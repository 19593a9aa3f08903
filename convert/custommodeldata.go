package convert

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/d1nch8g/packbridge/pack"
	"github.com/d1nch8g/packbridge/version"
)

// Writer profiles carried over from the packs this tool grew up around:
// predicate-era rewrites ship four-space indented, item-model outputs
// two-space.
const (
	indentWide   = "    "
	indentNarrow = "  "
)

// CustomModelData converts a legacy pack into the custom-model-data
// compatible form. Every item definition carrying custom-model-data
// overrides is rewritten in place into a dispatch descriptor; everything
// else is copied through untouched. The output tree keeps the legacy layout;
// run the layout normalizer afterwards to finish the migration.
func CustomModelData(ctx context.Context, inputDir, outputDir string, opts Options) (*Report, error) {
	v, enc, sink := opts.resolved()
	report := newReport(ModeCustomModelData, v.ID, string(enc))

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

	paths := tree.Paths()
	total := len(paths)
	report.Scanned = total
	sink.Report(0, total)

	for i, rel := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if definitions[rel] {
			if err := convertDefinition(tree, definitions, rel, enc, report); err != nil {
				return nil, err
			}
			sink.Message("converted " + rel)
		} else if !malformed[rel] {
			report.copied(rel)
		}

		sink.Report(i+1, total)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := tree.WriteTo(outputDir); err != nil {
		return nil, fmt.Errorf("failed to write output tree: %w", err)
	}

	report.finish()
	logrus.Infof("custom model data conversion done: %d rewritten, %d copied, %d skipped of %d files",
		report.Rewritten, report.Copied, report.Skipped, report.Scanned)
	return report, nil
}

// convertDefinition rewrites one legacy item definition into descriptor form.
func convertDefinition(tree *pack.Tree, definitions map[string]bool, rel string, enc version.Encoding, report *Report) error {
	obj, err := tree.JSON(rel)
	if err != nil {
		return err
	}

	ovs, err := parseOverrides(rel, obj)
	if err != nil {
		return err
	}
	if len(ovs) == 0 {
		report.skipped(rel, "no convertible overrides")
		return nil
	}

	doc := map[string]any{
		"model": descriptorNode(enc, fallbackNode(tree, definitions, rel, obj), ovs),
	}
	if err := tree.PutJSON(rel, doc, indentWide); err != nil {
		return err
	}

	report.converted(rel)
	logrus.Debugf("rewrote %s with %d entries", rel, len(ovs))
	return nil
}

// fallbackNode builds the no-match branch of a descriptor. A vanilla base
// reference stays textual even when the model leaves the tree, since the
// client supplies it. A custom-namespace reference has no such backstop:
// when its target is another rewritten definition (packs routinely point
// layer0 back at the definition's own path) or missing from the tree
// entirely, the base declaration is materialized into the descriptor so the
// fallback never dangles after relocation.
func fallbackNode(tree *pack.Tree, definitions map[string]bool, rel string, obj map[string]any) map[string]any {
	ref := baseModelRef(rel, obj)
	id, err := pack.ParseIdentifier(ref)
	if err != nil || id.IsVanilla() {
		return modelNode(ref)
	}

	target := id.File(pack.KindModel)
	if tree.Has(target) && !definitions[target] {
		return modelNode(ref)
	}
	if tree.Has(target) {
		logrus.Debugf("base model %s of %s is itself rewritten, materializing the fallback", ref, rel)
	} else {
		logrus.Warnf("base model %s of %s is not in the pack, materializing the fallback", ref, rel)
	}
	return inlineModelNode(selfContained(obj))
}
