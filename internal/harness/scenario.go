package harness

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/proofslot/internal/ir"
)

// DefaultClock is the unix second a scenario starts at unless it sets clock.
const DefaultClock int64 = 1_700_000_000

// Scenario defines a submission test scenario.
// Identities are named; each name maps to a stable 32-byte identity.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Namespace overrides the default slot namespace.
	Namespace string `yaml:"namespace,omitempty"`

	// RentPerByte overrides the default rent rate. Small values keep
	// balances readable.
	RentPerByte *uint64 `yaml:"rent_per_byte,omitempty"`

	// Clock is the starting unix second. Defaults to DefaultClock.
	Clock int64 `yaml:"clock,omitempty"`

	// Setup funds payers before the flow. Setup steps must succeed.
	Setup []FundStep `yaml:"setup,omitempty"`

	// Flow contains the main test flow.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the final state.
	Assertions []Assertion `yaml:"assertions"`
}

// FundStep credits lamports to a named identity.
type FundStep struct {
	Fund     string `yaml:"fund"`
	Lamports uint64 `yaml:"lamports"`
}

// FlowStep is exactly one of: a submission, a fund, or a clock advance.
type FlowStep struct {
	// Submit names the submitter.
	Submit string `yaml:"submit,omitempty"`

	// Payer names the identity charged on creation. Defaults to the submitter.
	Payer string `yaml:"payer,omitempty"`

	// Proof is hex. Repeat > 1 repeats it, so "ff" x 600 stays readable.
	Proof  string `yaml:"proof,omitempty"`
	Repeat int    `yaml:"repeat,omitempty"`

	// EventType is a catalog name or a decimal code.
	EventType string `yaml:"event_type,omitempty"`

	// Fund and Lamports credit an identity mid-flow.
	Fund     string `yaml:"fund,omitempty"`
	Lamports uint64 `yaml:"lamports,omitempty"`

	// Advance moves the clock by a Go duration, e.g. "5s" or "-1h".
	Advance string `yaml:"advance,omitempty"`

	// Expect validates the submission outcome. Nil skips validation.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected submission outcome.
type ExpectClause struct {
	// Outcome is "ok" or an error code such as PAYLOAD_TOO_LARGE.
	Outcome string `yaml:"outcome"`

	// Created, when set, checks whether the slot was allocated by this step.
	Created *bool `yaml:"created,omitempty"`
}

// Assertion validates the final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "record": slot of Identity holds Expect (subset of proof, event_type, timestamp)
	// - "no_slot": Identity has no slot
	// - "balance": Identity holds Lamports
	// - "distinct_slots": every name in Identities has its own slot
	// - "slot_count": exactly Count slots exist
	// - "outcome_count": Outcome occurred exactly Count times
	Type string `yaml:"type"`

	Identity   string         `yaml:"identity,omitempty"`
	Identities []string       `yaml:"identities,omitempty"`
	Expect     map[string]any `yaml:"expect,omitempty"`
	Lamports   *uint64        `yaml:"lamports,omitempty"`
	Count      *int           `yaml:"count,omitempty"`
	Outcome    string         `yaml:"outcome,omitempty"`
}

// Assertion type constants.
const (
	AssertRecord        = "record"
	AssertNoSlot        = "no_slot"
	AssertBalance       = "balance"
	AssertDistinctSlots = "distinct_slots"
	AssertSlotCount     = "slot_count"
	AssertOutcomeCount  = "outcome_count"
)

// recordFields are the keys a record assertion may check.
var recordFields = map[string]bool{
	"proof":      true,
	"event_type": true,
	"timestamp":  true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field checking.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// ProofBytes decodes the step's proof, applying Repeat.
func (s FlowStep) ProofBytes() ([]byte, error) {
	proof, err := hex.DecodeString(s.Proof)
	if err != nil {
		return nil, fmt.Errorf("proof is not hex: %w", err)
	}
	if s.Repeat > 1 {
		proof = bytes.Repeat(proof, s.Repeat)
	}
	return proof, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Setup {
		if step.Fund == "" {
			return fmt.Errorf("setup[%d]: fund is required", i)
		}
	}

	for i, step := range s.Flow {
		if err := validateFlowStep(step); err != nil {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func validateFlowStep(step FlowStep) error {
	kinds := 0
	for _, set := range []bool{step.Submit != "", step.Fund != "", step.Advance != ""} {
		if set {
			kinds++
		}
	}
	if kinds != 1 {
		return fmt.Errorf("exactly one of submit, fund, advance is required")
	}

	switch {
	case step.Submit != "":
		if _, err := step.ProofBytes(); err != nil {
			return err
		}
		if _, err := ir.ParseEventType(step.EventType); err != nil && step.EventType != "" {
			return err
		}
		if step.Expect != nil && step.Expect.Outcome == "" {
			return fmt.Errorf("expect: outcome is required")
		}
	case step.Advance != "":
		if _, err := time.ParseDuration(step.Advance); err != nil {
			return fmt.Errorf("advance: %w", err)
		}
		if step.Expect != nil {
			return fmt.Errorf("expect is only valid on submit steps")
		}
	default:
		if step.Expect != nil {
			return fmt.Errorf("expect is only valid on submit steps")
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(a Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("type is required")
	case AssertRecord:
		if a.Identity == "" || len(a.Expect) == 0 {
			return fmt.Errorf("identity and expect are required for record")
		}
		for key := range a.Expect {
			if !recordFields[key] {
				return fmt.Errorf("unknown record field %q", key)
			}
		}
	case AssertNoSlot:
		if a.Identity == "" {
			return fmt.Errorf("identity is required for no_slot")
		}
	case AssertBalance:
		if a.Identity == "" || a.Lamports == nil {
			return fmt.Errorf("identity and lamports are required for balance")
		}
	case AssertDistinctSlots:
		if len(a.Identities) < 2 {
			return fmt.Errorf("at least two identities are required for distinct_slots")
		}
	case AssertSlotCount:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("non-negative count is required for slot_count")
		}
	case AssertOutcomeCount:
		if a.Outcome == "" || a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("outcome and non-negative count are required for outcome_count")
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
