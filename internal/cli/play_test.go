package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shadowgov/internal/eventlog"
)

func TestPlay_JSON(t *testing.T) {
	fixedNow(t)
	out, _, err := execute(t, "play", "--seed", "42", "--agent", "first", "--format", "json")
	require.NoError(t, err)

	var res PlayResult
	resp := decodeResponse(t, out, &res)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, int64(42), res.Seed)
	assert.Equal(t, 5, res.Players)
	assert.NotEmpty(t, res.SessionID)
	assert.NotEmpty(t, res.Winner)
	assert.NotEmpty(t, res.Condition)
	assert.False(t, res.Halted)
	assert.Positive(t, res.Events)
	assert.Len(t, res.TraceHash, 64)
}

func TestPlay_Text(t *testing.T) {
	fixedNow(t)
	out, _, err := execute(t, "play", "--seed", "7", "--players", "7")
	require.NoError(t, err)

	assert.Contains(t, out, "(seed 7, 7 players)")
	assert.Contains(t, out, markPass)
	assert.Contains(t, out, "Trace:")
}

func TestPlay_SameSeedSameTrace(t *testing.T) {
	t.Setenv("SHADOWGOV_SESSION_ID", "cli-determinism")

	hashes := make([]string, 2)
	for i := range hashes {
		fixedNow(t)
		out, _, err := execute(t, "play", "--seed", "1234", "--format", "json")
		require.NoError(t, err)
		var res PlayResult
		decodeResponse(t, out, &res)
		assert.Equal(t, "cli-determinism", res.SessionID)
		hashes[i] = res.TraceHash
	}
	assert.Equal(t, hashes[0], hashes[1])
}

func TestPlay_DrawsSeedWhenUnset(t *testing.T) {
	fixedNow(t)
	out, _, err := execute(t, "play", "--agent", "first", "--format", "json")
	require.NoError(t, err)

	var res PlayResult
	decodeResponse(t, out, &res)
	assert.NotZero(t, res.Seed)
}

func TestPlay_HaltAfterRound(t *testing.T) {
	fixedNow(t)
	out, _, err := execute(t, "play", "--seed", "3", "--agent", "first", "--halt-after-round", "1", "--format", "json")
	require.NoError(t, err)

	var res PlayResult
	decodeResponse(t, out, &res)
	assert.True(t, res.Halted)
	assert.Equal(t, 1, res.Rounds)
	assert.Empty(t, res.Winner)
}

func TestPlay_ConfigFileWithFlagOverride(t *testing.T) {
	fixedNow(t)
	path := filepath.Join(t.TempDir(), "session.yaml")
	require.NoError(t, os.WriteFile(path, []byte("seed: 5\nplayers: 6\nagent: first\nsession_id: from-file\n"), 0o644))

	out, _, err := execute(t, "play", "--config", path, "--players", "8", "--format", "json")
	require.NoError(t, err)

	var res PlayResult
	decodeResponse(t, out, &res)
	assert.Equal(t, int64(5), res.Seed)
	assert.Equal(t, 8, res.Players, "flag wins over file")
	assert.Equal(t, "from-file", res.SessionID)
}

func TestPlay_RoundBudgetAbortsWithCode(t *testing.T) {
	fixedNow(t)
	path := filepath.Join(t.TempDir(), "session.yaml")
	require.NoError(t, os.WriteFile(path, []byte("seed: 1\nplayers: 5\nagent: first\nround_budget: 1\n"), 0o644))

	out, _, err := execute(t, "play", "--config", path, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var res PlayResult
	resp := decodeResponse(t, out, &res)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_STATE_CORRUPTION", resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "round budget")
}

func TestPlay_InvalidPlayers(t *testing.T) {
	_, _, err := execute(t, "play", "--seed", "1", "--players", "4")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "players")
}

func TestPlay_UnknownAgent(t *testing.T) {
	_, _, err := execute(t, "play", "--seed", "1", "--agent", "oracle")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestPlay_WritesJSONL(t *testing.T) {
	fixedNow(t)
	path := filepath.Join(t.TempDir(), "session.jsonl")
	out, _, err := execute(t, "play", "--seed", "9", "--agent", "first", "--jsonl", path, "--format", "json")
	require.NoError(t, err)

	var res PlayResult
	decodeResponse(t, out, &res)

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()
	events, err := eventlog.ReadJSONL(file)
	require.NoError(t, err)
	assert.Len(t, events, res.Events)
	assert.Equal(t, "game_start", events[0].GameEvent)
	assert.Equal(t, "game_over", events[len(events)-1].GameEvent)
}

func TestPlay_RecordsSessionInDB(t *testing.T) {
	db, res := playToDB(t)

	out, _, err := execute(t, "trace", "--db", db, "--session", res.SessionID)
	require.NoError(t, err)
	assert.Contains(t, out, "(finished)")
	assert.True(t, strings.Contains(out, "game_over"))
}
