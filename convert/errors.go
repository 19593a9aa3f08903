package convert

import (
	"fmt"

	"github.com/d1nch8g/packbridge/pack"
)

// AmbiguousPredicateError reports two overrides in one item definition
// claiming the same custom-model-data value. The game would resolve such a
// pack unpredictably, so the conversion refuses to pick a winner.
type AmbiguousPredicateError struct {
	Path   string
	Value  int
	First  string
	Second string
}

func (e *AmbiguousPredicateError) Error() string {
	return fmt.Sprintf("ambiguous custom_model_data %d in %s: %s vs %s", e.Value, e.Path, e.First, e.Second)
}

// DuplicateVariantError reports a generated variant identifier colliding with
// an existing asset or with a variant generated from another definition.
type DuplicateVariantError struct {
	ID           pack.Identifier
	FirstSource  string
	SecondSource string
}

func (e *DuplicateVariantError) Error() string {
	return fmt.Sprintf("duplicate variant %s generated from %s and %s", e.ID, e.FirstSource, e.SecondSource)
}
