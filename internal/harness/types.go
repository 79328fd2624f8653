package harness

import "github.com/roach88/proofslot/internal/ir"

// Trace event types.
const (
	EventFund    = "fund"
	EventSubmit  = "submit"
	EventAdvance = "advance"
)

// OutcomeOK is the outcome recorded for an accepted submission.
// Rejections record their ir.ErrorCode instead.
const OutcomeOK = "ok"

// TraceEvent records one executed step.
// Identities appear by their scenario name, never as derived bytes.
type TraceEvent struct {
	Seq  int64  `json:"seq"`
	Type string `json:"type"` // "fund", "submit", or "advance"

	// fund
	Identity string `json:"identity,omitempty"`
	Lamports uint64 `json:"lamports,omitempty"`
	Balance  uint64 `json:"balance,omitempty"`

	// submit
	Submitter    string       `json:"submitter,omitempty"`
	Payer        string       `json:"payer,omitempty"`
	ProofLen     int          `json:"proof_len,omitempty"`
	EventType    ir.EventType `json:"event_type,omitempty"`
	Outcome      string       `json:"outcome,omitempty"`
	SubmissionID string       `json:"submission_id,omitempty"`
	Created      bool         `json:"created,omitempty"`
	RentCharged  uint64       `json:"rent_charged,omitempty"`
	Timestamp    int64        `json:"timestamp,omitempty"`

	// advance
	Clock int64 `json:"clock,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all expect clauses and assertions match.
	Pass bool `json:"pass"`

	// Trace contains every executed step in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
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

// Outcomes returns the outcome of every submit step in order.
func (r *Result) Outcomes() []string {
	var out []string
	for _, ev := range r.Trace {
		if ev.Type == EventSubmit {
			out = append(out, ev.Outcome)
		}
	}
	return out
}
