package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalScenario = `
name: minimal
description: "One submission"
setup:
  - fund: U1
    lamports: 5000000
flow:
  - submit: U1
    proof: "0102"
    event_type: spam
    expect:
      outcome: ok
assertions:
  - type: slot_count
    count: 1
`

func TestLoadScenario_ValidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "minimal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalScenario), 0644))

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "minimal", scenario.Name)
	assert.Len(t, scenario.Setup, 1)
	assert.Equal(t, uint64(5000000), scenario.Setup[0].Lamports)
	require.Len(t, scenario.Flow, 1)
	assert.Equal(t, "U1", scenario.Flow[0].Submit)
	assert.Equal(t, "spam", scenario.Flow[0].EventType)
	assert.Nil(t, scenario.RentPerByte)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_Testdata(t *testing.T) {
	files, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, f := range files {
		_, err := LoadScenario(f)
		assert.NoError(t, err, f)
	}
}

func TestFlowStep_ProofBytes(t *testing.T) {
	proof, err := FlowStep{Proof: "ff", Repeat: 600}.ProofBytes()
	require.NoError(t, err)
	assert.Len(t, proof, 600)

	proof, err = FlowStep{Proof: "0102"}.ProofBytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, proof)

	proof, err = FlowStep{}.ProofBytes()
	require.NoError(t, err)
	assert.Empty(t, proof)

	_, err = FlowStep{Proof: "zz"}.ProofBytes()
	assert.Error(t, err)
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "unknown field",
			yaml:    "name: x\ndescription: d\nflows: []\n",
			wantErr: "failed to parse YAML",
		},
		{
			name:    "missing name",
			yaml:    "description: d\nflow: [{advance: 1s}]\nassertions: [{type: slot_count, count: 0}]\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			yaml:    "name: x\nflow: [{advance: 1s}]\nassertions: [{type: slot_count, count: 0}]\n",
			wantErr: "description is required",
		},
		{
			name:    "empty flow",
			yaml:    "name: x\ndescription: d\nassertions: [{type: slot_count, count: 0}]\n",
			wantErr: "flow list is required",
		},
		{
			name:    "no assertions",
			yaml:    "name: x\ndescription: d\nflow: [{advance: 1s}]\n",
			wantErr: "assertions list is required",
		},
		{
			name:    "two step kinds",
			yaml:    "name: x\ndescription: d\nflow: [{submit: U1, advance: 1s}]\nassertions: [{type: slot_count, count: 0}]\n",
			wantErr: "exactly one of submit, fund, advance",
		},
		{
			name:    "bad duration",
			yaml:    "name: x\ndescription: d\nflow: [{advance: soon}]\nassertions: [{type: slot_count, count: 0}]\n",
			wantErr: "advance",
		},
		{
			name:    "bad proof hex",
			yaml:    "name: x\ndescription: d\nflow: [{submit: U1, proof: xyz}]\nassertions: [{type: slot_count, count: 0}]\n",
			wantErr: "proof is not hex",
		},
		{
			name:    "bad event type",
			yaml:    "name: x\ndescription: d\nflow: [{submit: U1, event_type: ransomware}]\nassertions: [{type: slot_count, count: 0}]\n",
			wantErr: "event type",
		},
		{
			name:    "expect without outcome",
			yaml:    "name: x\ndescription: d\nflow: [{submit: U1, expect: {created: true}}]\nassertions: [{type: slot_count, count: 0}]\n",
			wantErr: "outcome is required",
		},
		{
			name:    "expect on advance",
			yaml:    "name: x\ndescription: d\nflow: [{advance: 1s, expect: {outcome: ok}}]\nassertions: [{type: slot_count, count: 0}]\n",
			wantErr: "only valid on submit",
		},
		{
			name:    "setup without fund",
			yaml:    "name: x\ndescription: d\nsetup: [{lamports: 5}]\nflow: [{advance: 1s}]\nassertions: [{type: slot_count, count: 0}]\n",
			wantErr: "setup[0]: fund is required",
		},
		{
			name:    "unknown assertion",
			yaml:    "name: x\ndescription: d\nflow: [{advance: 1s}]\nassertions: [{type: trace_order}]\n",
			wantErr: "unknown assertion type",
		},
		{
			name:    "record without expect",
			yaml:    "name: x\ndescription: d\nflow: [{advance: 1s}]\nassertions: [{type: record, identity: U1}]\n",
			wantErr: "identity and expect are required",
		},
		{
			name:    "record unknown field",
			yaml:    "name: x\ndescription: d\nflow: [{advance: 1s}]\nassertions: [{type: record, identity: U1, expect: {owner: U1}}]\n",
			wantErr: "unknown record field",
		},
		{
			name:    "balance without lamports",
			yaml:    "name: x\ndescription: d\nflow: [{advance: 1s}]\nassertions: [{type: balance, identity: U1}]\n",
			wantErr: "lamports are required",
		},
		{
			name:    "distinct slots needs two",
			yaml:    "name: x\ndescription: d\nflow: [{advance: 1s}]\nassertions: [{type: distinct_slots, identities: [U1]}]\n",
			wantErr: "at least two identities",
		},
		{
			name:    "outcome count without count",
			yaml:    "name: x\ndescription: d\nflow: [{advance: 1s}]\nassertions: [{type: outcome_count, outcome: ok}]\n",
			wantErr: "outcome and non-negative count",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
