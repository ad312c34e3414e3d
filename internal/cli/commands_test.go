package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cutScript = `
name: cut
tracks: 1
assets:
  - id: a
    length: 50
steps:
  - op: insert
    asset: a
    track: 0
    position: 10
    as: a
assertions:
  - type: duration
    frames: 60
`

const cutLayout = `duration 60
track track1 index=0 length=60
  [10,60) a a in=0 out=49
`

const brokenScript = `
name: broken
steps:
  - op: ripple
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRunScript_Text(t *testing.T) {
	path := writeFile(t, t.TempDir(), "cut.yaml", cutScript)

	out, err := execute(t, "run", path)
	require.NoError(t, err)
	assert.Contains(t, out, cutLayout)
	assert.Contains(t, out, "digest ")
	assert.Contains(t, out, "✓ 1 step(s) ok")
	assert.NotContains(t, out, "session")
}

func TestRunScript_JSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "cut.yaml", cutScript)

	out, err := execute(t, "--format", "json", "run", path)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "cut", data["scenario"])
	assert.Equal(t, true, data["pass"])
	assert.Len(t, data["digest"], 64)

	state, ok := data["state"].(map[string]interface{})
	require.True(t, ok)
	assert.EqualValues(t, 60, state["duration"])
}

func TestRunScript_FailureExitCode(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "cut.yaml", cutScript+"  - type: clip_count\n    count: 5\n")

	out, err := execute(t, "run", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ failed")
	assert.Contains(t, out, "clip_count: expected 5, got 1")
}

func TestRunScript_MissingFile(t *testing.T) {
	_, err := execute(t, "run", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load script")
}

func TestRunScript_JournalAndHistory(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "cut.yaml", cutScript)
	db := filepath.Join(dir, "history.db")

	out, err := execute(t, "run", "--db", db, "--session", "take-1", path)
	require.NoError(t, err)
	assert.Contains(t, out, "session take-1")

	out, err = execute(t, "history", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "do")
	assert.Contains(t, out, "insert clip")
	assert.Contains(t, out, "take-1-0001")

	out, err = execute(t, "--format", "json", "history", "--db", db, "--session", "take-1")
	require.NoError(t, err)
	var resp struct {
		Status string         `json:"status"`
		Data   []HistoryEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "do", resp.Data[0].Kind)
	assert.Equal(t, int64(1), resp.Data[0].Seq)
	assert.Len(t, resp.Data[0].StateDigest, 64)

	out, err = execute(t, "history", "--db", db, "--session", "other")
	require.NoError(t, err)
	assert.Contains(t, out, "No history.")
}

func TestRunScript_RepeatedRunsGetTheirOwnSessions(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "cut.yaml", cutScript)
	db := filepath.Join(dir, "history.db")

	_, err := execute(t, "run", "--db", db, path)
	require.NoError(t, err)
	_, err = execute(t, "run", "--db", db, path)
	require.NoError(t, err)

	out, err := execute(t, "--format", "json", "history", "--db", db)
	require.NoError(t, err)
	var resp struct {
		Data []HistoryEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 2)
	assert.NotEqual(t, resp.Data[0].ActionID, resp.Data[1].ActionID)
}

func TestHistory_MissingJournal(t *testing.T) {
	db := filepath.Join(t.TempDir(), "nope.db")
	_, err := execute(t, "history", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	_, statErr := os.Stat(db)
	assert.True(t, os.IsNotExist(statErr))
}

func TestHistory_RequiresDB(t *testing.T) {
	_, err := execute(t, "history")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestTestCommand_GoldenMatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "cut.yaml", cutScript)
	writeFile(t, dir, filepath.Join("golden", "cut.golden"), cutLayout)

	out, err := execute(t, "test", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ cut")
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
}

func TestTestCommand_GoldenMismatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "cut.yaml", cutScript)
	writeFile(t, dir, filepath.Join("golden", "cut.golden"), "duration 1\n")

	out, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ cut")
	assert.Contains(t, out, "does not match golden file")
}

func TestTestCommand_Update(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "cut.yaml", cutScript)

	_, err := execute(t, "test", "--update", dir)
	require.NoError(t, err)

	golden, err := os.ReadFile(filepath.Join(dir, "golden", "cut.golden"))
	require.NoError(t, err)
	assert.Equal(t, cutLayout, string(golden))

	_, err = execute(t, "test", dir)
	require.NoError(t, err)
}

func TestTestCommand_FilterAndLoadErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "cut.yaml", cutScript)
	writeFile(t, dir, "broken.yaml", brokenScript)

	out, err := execute(t, "test", "--filter", "cu*", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "1 total")

	out, err = execute(t, "--format", "json", "test", dir)
	require.Error(t, err)
	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, 2, resp.Data.Total)
	assert.Equal(t, 1, resp.Data.Failed)
}

func TestTestCommand_EmptyAndMissingDirs(t *testing.T) {
	out, err := execute(t, "test", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scripts found")

	_, err = execute(t, "test", "/nonexistent/scripts")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scripts directory not found")
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "cut.yaml", cutScript)
	bad := writeFile(t, dir, "broken.yaml", brokenScript)

	out, err := execute(t, "validate", good)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ "+good+" (1 steps, 1 assets)")

	out, err = execute(t, "validate", good, bad)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ "+bad)
	assert.Contains(t, out, "UNKNOWN_OP")
}

func TestValidate_CatalogError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "assets.cue", "assets: { a: { length: \"long\" } }\n")
	path := writeFile(t, dir, "cut.yaml", "name: cut\ncatalog: assets.cue\nsteps:\n  - op: undo\n    expect: rejected\n")

	out, err := execute(t, "validate", path)
	require.Error(t, err)
	assert.Contains(t, out, "catalog:")
}

func TestAssets(t *testing.T) {
	dir := t.TempDir()
	catalog := writeFile(t, dir, "assets.cue", `
assets: {
	voice: { length: 60, video_index: -1 }
	slate: { service: "color", resource: "0x000000ff", length: 1 }
}
`)

	out, err := execute(t, "assets", catalog)
	require.NoError(t, err)
	assert.Contains(t, out, "slate")
	assert.Contains(t, out, "endless no-audio")
	assert.Contains(t, out, "no-video")

	out, err = execute(t, "--format", "json", "assets", catalog)
	require.NoError(t, err)
	var resp struct {
		Data []AssetEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "slate", resp.Data[0].ID)
	assert.False(t, resp.Data[0].Limited)
	assert.Equal(t, "voice", resp.Data[1].ID)
	assert.True(t, resp.Data[1].Audio)
	assert.False(t, resp.Data[1].Video)
}

func TestAssets_BadCatalog(t *testing.T) {
	_, err := execute(t, "assets", filepath.Join(t.TempDir(), "missing.cue"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
