package convert

import "time"

// Run modes recorded in reports and journal entries.
const (
	ModeCustomModelData = "custom_model_data"
	ModeItemModel       = "item_model"
)

// File record statuses.
const (
	StatusConverted = "converted"
	StatusGenerated = "generated"
	StatusCopied    = "copied"
	StatusSkipped   = "skipped"
)

// FileRecord notes the outcome for one file of the run. Every scanned file
// lands either here or in the parse failures, so a report accounts for the
// whole input.
type FileRecord struct {
	Path   string `json:"path"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// ParseFailure records a JSON asset that could not be parsed. The asset is
// copied through unmodified and the run continues.
type ParseFailure struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Report accumulates the outcome of one conversion run. It is append-only
// while the run executes and read-only afterwards; the journal stores it
// verbatim as JSON.
type Report struct {
	Mode     string    `json:"mode"`
	Version  string    `json:"version"`
	Encoding string    `json:"encoding"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`

	// Scanned counts input files examined, Rewritten files whose content
	// changed, Generated files newly created, Copied files carried through
	// unconverted, Skipped item definitions left untouched.
	Scanned   int `json:"scanned"`
	Rewritten int `json:"rewritten"`
	Generated int `json:"generated"`
	Copied    int `json:"copied"`
	Skipped   int `json:"skipped"`

	Files []FileRecord   `json:"files,omitempty"`
	Parse []ParseFailure `json:"parse_failures,omitempty"`
}

func newReport(mode, versionID string, encoding string) *Report {
	return &Report{
		Mode:     mode,
		Version:  versionID,
		Encoding: encoding,
		Started:  time.Now().UTC(),
	}
}

func (r *Report) converted(path string) {
	r.Rewritten++
	r.Files = append(r.Files, FileRecord{Path: path, Status: StatusConverted})
}

func (r *Report) generated(path, from string) {
	r.Generated++
	r.Files = append(r.Files, FileRecord{Path: path, Status: StatusGenerated, Detail: "from " + from})
}

func (r *Report) copied(path string) {
	r.Copied++
	r.Files = append(r.Files, FileRecord{Path: path, Status: StatusCopied})
}

func (r *Report) skipped(path, reason string) {
	r.Skipped++
	r.Files = append(r.Files, FileRecord{Path: path, Status: StatusSkipped, Detail: reason})
}

func (r *Report) parseFailed(path string, err error) {
	r.Parse = append(r.Parse, ParseFailure{Path: path, Reason: err.Error()})
}

func (r *Report) finish() {
	r.Finished = time.Now().UTC()
}
