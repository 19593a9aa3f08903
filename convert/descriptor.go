package convert

import (
	"sort"
	"strconv"

	"github.com/d1nch8g/packbridge/version"
)

// modelNode wraps a plain model reference in the node form descriptors use.
func modelNode(ref string) map[string]any {
	return map[string]any{"type": "model", "model": ref}
}

// inlineModelNode wraps a materialized model body in node form, used for
// fallbacks whose reference would not survive relocation.
func inlineModelNode(body map[string]any) map[string]any {
	return map[string]any{"type": "model", "model": body}
}

// descriptorNode builds the dispatch node of an item descriptor from a
// fallback node and the parsed overrides.
func descriptorNode(enc version.Encoding, fallback map[string]any, ovs []override) map[string]any {
	if enc == version.EncodingSelect {
		return selectNode(fallback, ovs)
	}
	return rangeDispatchNode(fallback, ovs)
}

// rangeDispatchNode keys variants by numeric threshold. The game picks the
// highest threshold not above the stack's value, so entries must ascend;
// values are unique by the time this runs, making the sort a pure reorder.
func rangeDispatchNode(fallback map[string]any, ovs []override) map[string]any {
	sorted := make([]override, len(ovs))
	copy(sorted, ovs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Value < sorted[j].Value })

	entries := make([]any, 0, len(sorted))
	for _, ov := range sorted {
		entries = append(entries, map[string]any{
			"threshold": ov.Value,
			"model":     modelNode(ov.Model),
		})
	}

	return map[string]any{
		"type":     "range_dispatch",
		"property": "custom_model_data",
		"fallback": fallback,
		"entries":  entries,
	}
}

// selectNode keys variants by exact stringified value, preserving source
// order.
func selectNode(fallback map[string]any, ovs []override) map[string]any {
	cases := make([]any, 0, len(ovs))
	for _, ov := range ovs {
		cases = append(cases, map[string]any{
			"when":  strconv.Itoa(ov.Value),
			"model": modelNode(ov.Model),
		})
	}

	return map[string]any{
		"type":     "select",
		"property": "custom_model_data",
		"fallback": fallback,
		"cases":    cases,
	}
}
