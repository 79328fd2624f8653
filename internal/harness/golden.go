package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/proofslot/internal/ir"
)

// TraceSnapshot captures the complete trace for a scenario execution.
// All fields use canonical JSON serialization for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Trace        []TraceEvent `json:"trace"`
}

// toCanonicalMap converts a TraceSnapshot to a map[string]any for canonical
// JSON serialization. Each event carries only the fields of its type.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, ev := range s.Trace {
		m := map[string]any{
			"seq":  ev.Seq,
			"type": ev.Type,
		}
		switch ev.Type {
		case EventFund:
			m["identity"] = ev.Identity
			m["lamports"] = ev.Lamports
			m["balance"] = ev.Balance
		case EventAdvance:
			m["clock"] = ev.Clock
		case EventSubmit:
			m["submitter"] = ev.Submitter
			m["proof_len"] = ev.ProofLen
			m["event_type"] = ev.EventType
			m["outcome"] = ev.Outcome
			if ev.Payer != "" {
				m["payer"] = ev.Payer
			}
			if ev.Outcome == OutcomeOK {
				m["submission_id"] = ev.SubmissionID
				m["created"] = ev.Created
				m["rent_charged"] = ev.RentCharged
				m["timestamp"] = ev.Timestamp
			}
		}
		traceList[i] = m
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         traceList,
	}
}

// Snapshot returns the canonical JSON snapshot of a scenario run.
// The bytes are what golden files store.
func Snapshot(scenario *Scenario, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{
		ScenarioName: scenario.Name,
		Trace:        result.Trace,
	}
	return ir.MarshalCanonical(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	traceJSON, err := Snapshot(scenario, result)
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, traceJSON)

	return result, nil
}
