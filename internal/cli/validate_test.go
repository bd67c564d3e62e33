package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var terminalDir = filepath.Join("..", "..", "testdata", "terminal")

func TestValidateValidTerminal(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{terminalDir})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "✓ Terminal valid")
	assert.Contains(t, output, "3 tanks")
	assert.Contains(t, output, "custom checklists for Truck")
}

func TestValidateValidTerminalJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{terminalDir})

	err := cmd.Execute()
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	require.NotNil(t, resp.Data.Summary)
	assert.Equal(t, 3, resp.Data.Summary.Tanks)
	assert.Equal(t, 3, resp.Data.Summary.Authorizations)
	assert.Equal(t, 4, resp.Data.Summary.Infrastructure)
}

func TestValidateDefaultsToTerminalFlag(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text", Terminal: terminalDir}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "✓ Terminal valid")
}

func TestValidateNonExistentDirectory(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"/nonexistent/directory/path"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "E005") // ErrCodeNotFound
	assert.Contains(t, buf.String(), "not found")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidateEmptyDirectory(t *testing.T) {
	tmpDir := t.TempDir()

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{tmpDir})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "E003")
	assert.Contains(t, buf.String(), "no CUE files found")
}

func TestValidateSchemaViolation(t *testing.T) {
	tmpDir := t.TempDir()
	writeCUE(t, tmpDir, `
package terminal

terminal: tanks: T1: {capacity: -5}
`)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{tmpDir})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "E004")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

const inconsistentTerminal = `
package terminal

terminal: {
	tanks: T1: {capacity: 100}
	authorizations: [{customer: "Acme", product: "Diesel", tanks: ["T9"]}]
	infrastructure: "Bay 1": ["T1", "T7"]
}
`

func TestValidateInconsistentTerminal(t *testing.T) {
	tmpDir := t.TempDir()
	writeCUE(t, tmpDir, inconsistentTerminal)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{tmpDir})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
	assert.Equal(t, ExitFailure, GetExitCode(err))

	output := buf.String()
	assert.Contains(t, output, "✗ Validation failed")
	assert.Contains(t, output, "E201")
	assert.Contains(t, output, "E202")
}

func TestValidateInconsistentTerminalJSON(t *testing.T) {
	tmpDir := t.TempDir()
	writeCUE(t, tmpDir, inconsistentTerminal)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{tmpDir})

	err := cmd.Execute()
	require.Error(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	assert.Len(t, resp.Data.Errors, 2)
	require.NotNil(t, resp.Error)
	assert.Equal(t, resp.Data.Errors[0].Code, resp.Error.Code)
}

func writeCUE(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "terminal.cue"), []byte(content), 0o644))
}
