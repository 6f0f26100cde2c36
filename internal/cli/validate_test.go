package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSession(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestValidate_Valid(t *testing.T) {
	path := writeSession(t, "seed: 42\nplayers: 7\n")

	out, _, err := execute(t, "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, markPass+" "+path+" valid (7 players)")
}

func TestValidate_ValidJSON(t *testing.T) {
	path := writeSession(t, `
seats:
  - id: alice
  - id: bob
  - id: carol
  - id: dave
  - id: erin
    agent: first
`)

	out, _, err := execute(t, "validate", path, "--format", "json")
	require.NoError(t, err)

	var res ValidationResult
	resp := decodeResponse(t, out, &res)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, res.Valid)
	assert.Equal(t, 5, res.Players)
	assert.False(t, res.Seeded)
}

func TestValidate_InvalidReportsEveryError(t *testing.T) {
	path := writeSession(t, "players: 4\nretries: -1\n")

	out, _, err := execute(t, "validate", path, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var res ValidationResult
	resp := decodeResponse(t, out, &res)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_CONFIG", resp.Error.Code)
	assert.False(t, res.Valid)
	assert.GreaterOrEqual(t, len(res.Errors), 2)
}

func TestValidate_UnknownKeyText(t *testing.T) {
	path := writeSession(t, "seed: 1\nplayerz: 5\n")

	out, _, err := execute(t, "validate", path)
	require.Error(t, err)
	assert.Contains(t, out, markFail+" "+path)
	assert.Contains(t, out, "playerz")
}

func TestValidate_MissingFile(t *testing.T) {
	out, _, err := execute(t, "validate", filepath.Join(t.TempDir(), "nope.yaml"), "--format", "json")
	require.Error(t, err)

	resp := decodeResponse(t, out, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_CONFIG_READ", resp.Error.Code)
}

func TestValidate_RequiresOneArg(t *testing.T) {
	_, _, err := execute(t, "validate")
	require.Error(t, err)
}

func TestSplitErrors(t *testing.T) {
	path := writeSession(t, `
timeout: 0s
seats:
  - id: a
  - id: a
  - id: b
  - id: c
  - id: d
`)
	_, _, err := execute(t, "validate", path)
	require.Error(t, err)

	msgs := splitErrors(err.(*ExitError).Err)
	require.Len(t, msgs, 2)
	for _, m := range msgs {
		assert.NotContains(t, m, "invalid session config")
	}
}
