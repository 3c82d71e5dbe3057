package harness

// Result contains the outcome of running a scenario.
type Result struct {
	// Pass is true if every step met its expectation and every assertion held.
	Pass bool

	// Trace is the ordered list of flow events.
	Trace []TraceEvent

	// Errors lists expectation and assertion failures.
	Errors []string
}

// TraceEvent records one executed flow step.
type TraceEvent struct {
	Step   int    // 1-based flow index
	Op     string // flow operation
	Target string // resource IRI, or the container for compile

	// Text is the compiled statement for compile and describe.
	Text string

	// Triples is the retrieved description for retrieve.
	Triples []string

	// Error is the error code of a failed step, empty on success.
	Error string
}

// NewResult creates an empty, passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Pass = false
}

// Event returns the event of 1-based flow step n.
func (r *Result) Event(n int) (TraceEvent, bool) {
	if n < 1 || n > len(r.Trace) {
		return TraceEvent{}, false
	}
	return r.Trace[n-1], true
}
