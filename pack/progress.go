package pack

// ProgressSink receives progress updates at per-file checkpoints. The concrete
// sink is supplied by the caller; the conversion code calls it synchronously
// and never retains it beyond the run.
type ProgressSink interface {
	// Report is called with a monotonically increasing completed count.
	Report(completed, total int)
	// Message carries a short status line, such as the file being processed.
	Message(text string)
}

// NopSink discards all progress updates.
type NopSink struct{}

func (NopSink) Report(int, int) {}

func (NopSink) Message(string) {}

// SinkOrNop returns the sink itself, or a NopSink when it is nil.
func SinkOrNop(sink ProgressSink) ProgressSink {
	if sink == nil {
		return NopSink{}
	}
	return sink
}
