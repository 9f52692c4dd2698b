package harness

// TraceEvent records one executed step.
type TraceEvent struct {
	Seq    int    `json:"seq"`
	Action string `json:"action"`
	Actor  string `json:"actor,omitempty"`
	// Outcome is "ok" or the error code the operation failed with.
	Outcome string `json:"outcome"`
	// Result holds the step's observable output fields.
	Result map[string]any `json:"result,omitempty"`
	// Events lists the audit event kinds the step appended, in order.
	Events []string `json:"events"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expectation and assertion held.
	Pass bool `json:"pass"`

	Trace []TraceEvent `json:"trace"`

	// Errors contains validation failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result with an empty trace.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddStep appends a trace entry and returns its sequence number.
func (r *Result) AddStep(ev TraceEvent) int {
	ev.Seq = len(r.Trace) + 1
	if ev.Events == nil {
		ev.Events = []string{}
	}
	r.Trace = append(r.Trace, ev)
	return ev.Seq
}
