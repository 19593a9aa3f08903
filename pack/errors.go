package pack

import "fmt"

// ParseError records a single malformed JSON asset. Parse problems never abort
// a run; they are aggregated into the conversion report and the file is left
// untouched.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ReferenceError reports an identifier that cannot be mapped to any asset in
// the current tree. Output-side references must always resolve, so callers
// treat this as fatal once a tree has been rewritten.
type ReferenceError struct {
	Ref  Identifier
	Kind AssetKind
	From string // referencing file, empty when not known
}

func (e *ReferenceError) Error() string {
	if e.From == "" {
		return fmt.Sprintf("unresolved %s reference %s", e.Kind, e.Ref)
	}
	return fmt.Sprintf("unresolved %s reference %s in %s", e.Kind, e.Ref, e.From)
}
