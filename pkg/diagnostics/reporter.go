package diagnostics

import "sync"

// Reporter collects diagnostics from every pipeline stage and remembers
// whether any error was seen. Later stages consult HadError before running.
type Reporter struct {
	mu       sync.Mutex
	diags    []Diagnostic
	onReport func(Diagnostic)
}

// NewReporter creates a Reporter. onReport, when non-nil, is invoked for every
// diagnostic as it is reported.
func NewReporter(onReport func(Diagnostic)) *Reporter {
	return &Reporter{onReport: onReport}
}

// Report records a diagnostic and sets the had-error flag.
func (r *Reporter) Report(d Diagnostic) {
	r.mu.Lock()
	r.diags = append(r.diags, d)
	fn := r.onReport
	r.mu.Unlock()
	if fn != nil {
		fn(d)
	}
}

// ReportAll records each diagnostic in order.
func (r *Reporter) ReportAll(diags []Diagnostic) {
	for _, d := range diags {
		r.Report(d)
	}
}

// HadError reports whether any diagnostic has been recorded since the last Reset.
func (r *Reporter) HadError() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.diags) > 0
}

// Diagnostics returns a copy of the recorded diagnostics.
func (r *Reporter) Diagnostics() []Diagnostic {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Diagnostic, len(r.diags))
	copy(out, r.diags)
	return out
}

// Reset clears the recorded diagnostics and the had-error flag.
func (r *Reporter) Reset() {
	r.mu.Lock()
	r.diags = nil
	r.mu.Unlock()
}
