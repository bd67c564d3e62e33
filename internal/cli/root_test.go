package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "terminalops", cmd.Use)
	assert.Contains(t, cmd.Long, "SQLite")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"validate"}, {"schedule"}, {"status"}, {"plan"}, {"progress"}, {"board"},
		{"activity"}, {"test"},
		{"step", "complete"}, {"step", "undo"}, {"step", "rework"}, {"step", "list"},
		{"hold", "add"}, {"hold", "impact"}, {"hold", "list"},
	}

	for _, path := range commands {
		name := path[len(path)-1]
		t.Run(name, func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err, "Command %v should exist", path)
			require.NotNil(t, subCmd)
			assert.Equal(t, name, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	t.Setenv(EnvDatabase, "")
	t.Setenv(EnvTerminal, "")
	t.Setenv(EnvFormat, "")
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	dbFlag := cmd.PersistentFlags().Lookup("db")
	require.NotNil(t, dbFlag)
	assert.Equal(t, "terminalops.db", dbFlag.DefValue)

	gateFlag := cmd.PersistentFlags().Lookup("gate")
	require.NotNil(t, gateFlag)
	assert.Equal(t, "false", gateFlag.DefValue)
}

func TestGlobalFlagsFromEnvironment(t *testing.T) {
	t.Setenv(EnvDatabase, "/var/lib/terminalops/ops.db")
	t.Setenv(EnvTerminal, "/etc/terminalops")
	t.Setenv(EnvFormat, "json")
	cmd := NewRootCommand()

	assert.Equal(t, "/var/lib/terminalops/ops.db", cmd.PersistentFlags().Lookup("db").DefValue)
	assert.Equal(t, "/etc/terminalops", cmd.PersistentFlags().Lookup("terminal").DefValue)
	assert.Equal(t, "json", cmd.PersistentFlags().Lookup("format").DefValue)
}

func TestStepCommandFlags(t *testing.T) {
	cmd := NewRootCommand()

	for _, sub := range []string{"complete", "undo", "rework"} {
		t.Run(sub, func(t *testing.T) {
			stepCmd, _, err := cmd.Find([]string{"step", sub})
			require.NoError(t, err)

			for _, name := range []string{"transfer", "loop", "actor"} {
				assert.NotNil(t, stepCmd.Flags().Lookup(name), "flag --%s", name)
			}
			assert.Equal(t, "0", stepCmd.Flags().Lookup("loop").DefValue)
		})
	}

	undoCmd, _, err := cmd.Find([]string{"step", "undo"})
	require.NoError(t, err)
	assert.NotNil(t, undoCmd.Flags().Lookup("reason"))

	listCmd, _, err := cmd.Find([]string{"step", "list"})
	require.NoError(t, err)
	assert.NotNil(t, listCmd.Flags().Lookup("pending-undo"))
}

func TestTestCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	testCmd, _, err := cmd.Find([]string{"test"})
	require.NoError(t, err)

	updateFlag := testCmd.Flags().Lookup("update")
	require.NotNil(t, updateFlag)
	assert.Equal(t, "false", updateFlag.DefValue)

	assert.NotNil(t, testCmd.Flags().Lookup("filter"))
	assert.NotNil(t, testCmd.Flags().Lookup("golden-dir"))
}

func TestInvalidFormat(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--format", "xml", "board"})
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestIsValidFormat(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))
	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
}
