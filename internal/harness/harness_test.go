package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTestdata(t *testing.T, name string) *Scenario {
	t.Helper()
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return scenario
}

func TestRunWithGolden_Scenarios(t *testing.T) {
	names := []string{
		"first_submission_then_oversized",
		"distinct_identities",
		"update_reuses_slot",
		"sponsored_payer",
	}

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			result, err := RunWithGolden(t, loadTestdata(t, name))
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_Deterministic(t *testing.T) {
	scenario := loadTestdata(t, "update_reuses_slot")

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	a, err := Snapshot(scenario, first)
	require.NoError(t, err)
	b, err := Snapshot(scenario, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRun_Outcomes(t *testing.T) {
	result, err := Run(loadTestdata(t, "sponsored_payer"))
	require.NoError(t, err)

	assert.Equal(t, []string{"ok", "STORAGE_ALLOCATION", "STORAGE_ALLOCATION", "ok"}, result.Outcomes())
}

func TestRun_ExpectMismatchFails(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: mismatch
description: "Expects success from an unfunded submitter"
flow:
  - submit: U1
    proof: "01"
    expect:
      outcome: ok
      created: true
assertions:
  - type: slot_count
    count: 1
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "outcome STORAGE_ALLOCATION, want ok")
	assert.Contains(t, result.Errors[1], "created false, want true")
	assert.Contains(t, result.Errors[2], "0 slots")
}

func TestRun_FailedAssertions(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: failing
description: "Every assertion is wrong"
rent_per_byte: 1
setup:
  - fund: U1
    lamports: 661
flow:
  - submit: U1
    proof: "01"
    event_type: spam
assertions:
  - type: record
    identity: U1
    expect: { proof: "02" }
  - type: record
    identity: U1
    expect: { event_type: malware }
  - type: record
    identity: U2
    expect: { proof: "01" }
  - type: no_slot
    identity: U1
  - type: balance
    identity: U1
    lamports: 1
  - type: distinct_slots
    identities: [U1, U2]
  - type: outcome_count
    outcome: ok
    count: 2
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 7)
	assert.Contains(t, result.Errors[0], "U1.proof = 02")
	assert.Contains(t, result.Errors[1], "U1.event_type = malware")
	assert.Contains(t, result.Errors[2], "slot not found")
	assert.Contains(t, result.Errors[3], "slot exists")
	assert.Contains(t, result.Errors[4], "holds 1 lamports")
	assert.Contains(t, result.Errors[5], "slot owned by U2")
	assert.True(t, strings.HasPrefix(result.Errors[6], "Assertion failed: outcome_count"))
}

func TestRun_NamespaceAndClock(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: custom
description: "Custom namespace and start time"
namespace: audit
clock: 42
rent_per_byte: 0
flow:
  - submit: U1
    proof: "01"
    expect: { outcome: ok, created: true }
assertions:
  - type: record
    identity: U1
    expect: { timestamp: 42 }
  - type: balance
    identity: U1
    lamports: 0
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}
