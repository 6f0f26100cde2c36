package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenarioSource = "../harness/testdata/scenarios"

// copyScenarios copies the named harness scenarios into a temp dir so
// golden files can be written next to them.
func copyScenarios(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(scenarioSource, name+".yaml"))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name+".yaml"), data, 0o644))
	}
	return dir
}

func TestTest_AllScenariosPass(t *testing.T) {
	out, _, err := execute(t, "test", scenarioSource, "--format", "json")
	require.NoError(t, err)

	var res TestResult
	resp := decodeResponse(t, out, &res)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 8, res.Total)
	assert.Equal(t, res.Total, res.Passed)
	assert.Zero(t, res.Failed)
	for _, s := range res.Scenarios {
		assert.True(t, s.Pass, "%s: %v", s.Name, s.Errors)
		assert.Len(t, s.TraceHash, 64)
	}
}

func TestTest_Filter(t *testing.T) {
	out, _, err := execute(t, "test", scenarioSource, "--filter", "chaos_*")
	require.NoError(t, err)
	assert.Contains(t, out, markPass+" chaos_after_three_rejections")
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
}

func TestTest_GoldenUpdateThenMatch(t *testing.T) {
	dir := copyScenarios(t, "forced_default", "reshuffle_short_pile")

	out, _, err := execute(t, "test", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "(golden updated)")
	assert.FileExists(t, filepath.Join(dir, "golden", "forced_default.golden"))
	assert.FileExists(t, filepath.Join(dir, "golden", "reshuffle_short_pile.golden"))

	out, _, err = execute(t, "test", dir, "--format", "json")
	require.NoError(t, err)
	var res TestResult
	decodeResponse(t, out, &res)
	require.Len(t, res.Scenarios, 2)
	for _, s := range res.Scenarios {
		assert.Equal(t, "match", s.Golden, s.Name)
	}
}

func TestTest_GoldenMismatch(t *testing.T) {
	dir := copyScenarios(t, "forced_default")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "golden"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "forced_default.golden"), []byte("{}\n"), 0o644))

	out, _, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, markFail+" forced_default")
	assert.Contains(t, out, "trace does not match golden file")
}

func TestTest_FailingAssertion(t *testing.T) {
	dir := t.TempDir()
	scenario := `
name: wrong_expectation
seed: 1
halt_after_round: 1
script:
  p1:
    nominate: [p2]
assertions:
  - type: final_state
    expect:
      phase: GameOver
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wrong.yaml"), []byte(scenario), 0o644))

	out, _, err := execute(t, "test", dir, "--format", "json")
	require.Error(t, err)

	var res TestResult
	resp := decodeResponse(t, out, &res)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_SCENARIO_FAILED", resp.Error.Code)
	require.Len(t, res.Scenarios, 1)
	assert.False(t, res.Scenarios[0].Pass)
	assert.NotEmpty(t, res.Scenarios[0].Errors)
}

func TestTest_LoadError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("name: x\nbogus: 1\n"), 0o644))

	out, _, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Contains(t, out, markFail+" broken")
	assert.Contains(t, out, "failed to load scenario")
}

func TestTest_MissingDir(t *testing.T) {
	_, _, err := execute(t, "test", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTest_EmptyDir(t *testing.T) {
	out, _, err := execute(t, "test", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}
