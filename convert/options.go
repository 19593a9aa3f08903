package convert

import (
	"github.com/d1nch8g/packbridge/pack"
	"github.com/d1nch8g/packbridge/version"
)

// Options tunes a conversion run. The zero value targets the default game
// version with its default variant encoding and discards progress.
type Options struct {
	// Sink receives per-file progress. Nil discards it.
	Sink pack.ProgressSink
	// Version is the target game version. The zero value means the table
	// default.
	Version version.Version
	// Encoding overrides the target version's default variant dispatch in
	// custom-model-data mode. Item-model descriptors always use exact-match
	// select dispatch, since a discriminant value maps to exactly one variant.
	Encoding version.Encoding
}

func (o Options) resolved() (version.Version, version.Encoding, pack.ProgressSink) {
	v := o.Version
	if v.ID == "" {
		v = version.Default()
	}
	enc := o.Encoding
	if enc == "" {
		enc = v.Encoding
	}
	return v, enc, pack.SinkOrNop(o.Sink)
}
