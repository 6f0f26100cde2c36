package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/shadowgov/internal/testutil"
)

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// fixedNow pins the clock new sessions start from.
func fixedNow(t *testing.T) {
	t.Helper()
	clock := testutil.NewDeterministicClock()
	prev := now
	now = clock.Now
	t.Cleanup(func() { now = prev })
}

// decodeResponse parses a JSON CLI response, decoding Data into data.
func decodeResponse(t *testing.T, out string, data any) CLIResponse {
	t.Helper()
	var raw struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
		Error  *CLIError       `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &raw), out)
	if data != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, data))
	}
	return CLIResponse{Status: raw.Status, Error: raw.Error}
}

// playToDB plays one seeded session into a fresh database and returns the
// database path and the play result.
func playToDB(t *testing.T, extra ...string) (string, PlayResult) {
	t.Helper()
	fixedNow(t)
	db := filepath.Join(t.TempDir(), "games.db")
	args := append([]string{"play", "--seed", "42", "--agent", "first", "--db", db, "--format", "json"}, extra...)
	out, _, err := execute(t, args...)
	require.NoError(t, err)

	var res PlayResult
	resp := decodeResponse(t, out, &res)
	require.Equal(t, "ok", resp.Status)
	return db, res
}
