package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/proofslot/internal/ir"
)

// cliEnv is an isolated database plus a config file charging 1 lamport per byte.
type cliEnv struct {
	db     string
	config string
}

func newCLIEnv(t *testing.T) cliEnv {
	t.Helper()
	dir := t.TempDir()
	cfg := filepath.Join(dir, "proofslot.cue")
	require.NoError(t, os.WriteFile(cfg, []byte("rent_per_byte: 1\nlog_level: \"warn\"\n"), 0644))
	return cliEnv{db: filepath.Join(dir, "proofslot.db"), config: cfg}
}

// run executes the root command against the environment's database.
func (e cliEnv) run(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(append([]string{"--config", e.config, "--db", e.db}, args...))
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "proofslot", cmd.Use)
	assert.Contains(t, cmd.Long, "derive")
	assert.Equal(t, ir.Version, cmd.Version)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"submit", "show", "derive", "fund", "balance", "test"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	for _, name := range []string{"config", "db", "backend"} {
		flag := cmd.PersistentFlags().Lookup(name)
		require.NotNil(t, flag, name)
		assert.Empty(t, flag.DefValue, name)
	}
}

func TestSubmitCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	submitCmd, _, err := cmd.Find([]string{"submit"})
	require.NoError(t, err)

	for _, name := range []string{"proof", "proof-file", "payer"} {
		assert.NotNil(t, submitCmd.Flags().Lookup(name), name)
	}
	eventFlag := submitCmd.Flags().Lookup("event-type")
	require.NotNil(t, eventFlag)
	assert.Equal(t, "phishing", eventFlag.DefValue)
}

func TestInvalidFormat(t *testing.T) {
	env := newCLIEnv(t)

	_, _, err := env.run(t, "--format", "xml", "balance", alice())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestInvalidBackendFlag(t *testing.T) {
	env := newCLIEnv(t)

	_, _, err := env.run(t, "--backend", "postgres", "balance", alice())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestMissingConfigFile(t *testing.T) {
	env := newCLIEnv(t)
	env.config = filepath.Join(t.TempDir(), "missing.cue")

	_, _, err := env.run(t, "balance", alice())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestVerboseLogsToStderr(t *testing.T) {
	env := newCLIEnv(t)

	stdout, stderr, err := env.run(t, "--verbose", "fund", alice(), "10")
	require.NoError(t, err)
	assert.Contains(t, stdout, "10 lamports")
	assert.Contains(t, stderr, "backend opened")
	assert.NotContains(t, stdout, "backend opened")
}
