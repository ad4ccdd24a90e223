package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const levelDoc = `{
  "formatVersion": "1.0.0",
  "name": "Level1",
  "sceneVariables": [{"name": "Score", "type": "number", "value": 3}],
  "events": [
    {
      "type": "BuiltinCommonInstructions::Standard",
      "actions": [{"type": {"value": "ModVarScene"}, "parameters": ["Score", "+", "2"]}]
    },
    {"type": "BuiltinCommonInstructions::Link", "target": "Shared"}
  ],
  "externalEvents": [{
    "name": "Shared",
    "events": [{
      "type": "BuiltinCommonInstructions::Standard",
      "actions": [{"type": {"value": "ModVarScene"}, "parameters": ["Bonus", "+", "1"]}]
    }]
  }]
}`

const brokenDoc = `[
  {
    "type": "BuiltinCommonInstructions::Standard",
    "actions": [{"type": {"value": "ModVarScen"}, "parameters": ["Score", "+", "2"]}]
  },
  {"type": "BuiltinCommonInstructions::Link", "target": "Missing"}
]`

const loopDoc = `[{
  "type": "BuiltinCommonInstructions::While",
  "whileConditions": [],
  "actions": [{"type": {"value": "ModVarScene"}, "parameters": ["N", "+", "1"]}]
}]`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(strings.NewReader(stdin), &stdout, &stderr)
	cmd.SetArgs(append([]string{"--env-file", ""}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRender(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "level.json", levelDoc)

	out, _, err := execute(t, "", "render", path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "<event-0>\n Conditions:\n (no conditions)\n Actions:\n - Change the scene variable Score: + 2\n"), out)
	assert.Contains(t, out, `(link to events in events sheet called "Shared")`)
}

func TestRenderManyKeepsOrder(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.json", `[{"type": "BuiltinCommonInstructions::Comment"}]`)
	b := writeFile(t, dir, "b.json", `[{"type": "BuiltinCommonInstructions::Group", "name": "B"}]`)

	out, _, err := execute(t, "", "--jobs", "2", "render", a, b, a)
	require.NoError(t, err)
	first := strings.Index(out, "== "+a+" ==")
	second := strings.Index(out, "== "+b+" ==")
	require.GreaterOrEqual(t, first, 0)
	require.Greater(t, second, first)
	assert.Equal(t, 2, strings.Count(out, "(comment - content is not displayed)"))
	assert.Contains(t, out, `Group called "B":`)
}

func TestRenderStdin(t *testing.T) {
	out, _, err := execute(t, `[{"type": "BuiltinCommonInstructions::Comment"}]`, "render", "-")
	require.NoError(t, err)
	assert.Equal(t, "<event-0>\n (comment - content is not displayed)\n</event-0>\n", out)
}

func TestRenderInvalidDocument(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.json", `{"events": "nope"}`)

	_, _, err := execute(t, "", "render", path)
	require.Error(t, err)

	var buf bytes.Buffer
	FormatError(&buf, err, false)
	assert.True(t, strings.HasPrefix(buf.String(), "Error: invalid events document\n"), buf.String())
}

func TestRenderMissingFile(t *testing.T) {
	_, _, err := execute(t, "", "render", filepath.Join(t.TempDir(), "missing.json"))
	var cliErr *CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, "load", cliErr.Type)
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "level.json", levelDoc)
	bad := writeFile(t, dir, "broken.json", brokenDoc)

	out, _, err := execute(t, "", "check", good)
	require.NoError(t, err)
	assert.Contains(t, out, `Shared:0: info [implicit-variable]: variable "Bonus" is not declared`)
	assert.True(t, strings.HasSuffix(out, good+": ok (3 events, 0 skipped)\n"), out)

	out, _, err = execute(t, "", "check", good, bad)
	var cliErr *CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, "1 of 2 sheets have errors", cliErr.Message)
	assert.Equal(t, bad, cliErr.Details)
	assert.Contains(t, out, "unknown-instruction")
	assert.Contains(t, out, `did you mean "ModVarScene"?`)
	assert.Contains(t, out, "unresolved-link")
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "level.json", levelDoc)

	out, stderr, err := execute(t, "", "run", "--frames", "2", "--telemetry", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"Score":7`)
	assert.Contains(t, out, `"Bonus":2`)
	assert.Contains(t, stderr, "frame 1: 2 events")
	assert.Contains(t, stderr, "frame 2: 2 events")
}

func TestRunLoopLimit(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "loop.json", loopDoc)

	_, _, err := execute(t, "", "--max-loop-iterations", "10", "run", path)
	require.Error(t, err)

	var buf bytes.Buffer
	FormatError(&buf, err, false)
	assert.Contains(t, buf.String(), "loop iteration limit exceeded")
	assert.Contains(t, buf.String(), "Hint: raise --max-loop-iterations")
}

func TestRunRejectsZeroFrames(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "level.json", levelDoc)
	_, _, err := execute(t, "", "run", "--frames", "0", path)
	var cliErr *CLIError
	require.ErrorAs(t, err, &cliErr)
}

func TestDigest(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.json", levelDoc)
	b := writeFile(t, dir, "b.json", strings.ReplaceAll(levelDoc, "\n", ""))

	out, _, err := execute(t, "", "digest", a, b)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	digestA, _, _ := strings.Cut(lines[0], "  ")
	digestB, _, _ := strings.Cut(lines[1], "  ")
	assert.True(t, strings.HasPrefix(digestA, "blake2b:"))
	assert.Equal(t, digestA, digestB)
}

func TestDiff(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.json", levelDoc)
	b := writeFile(t, dir, "b.json", strings.Replace(levelDoc, `"Score", "+", "2"`, `"Score", "+", "5"`, 1))

	out, _, err := execute(t, "", "diff", a, a)
	require.NoError(t, err)
	assert.Equal(t, "No differences found.\n", out)

	out, _, err = execute(t, "", "diff", a, b)
	assert.ErrorIs(t, err, errDiffers)
	assert.Contains(t, out, "- - Change the scene variable Score: + 2")
	assert.Contains(t, out, "+ - Change the scene variable Score: + 5")
}

func TestTree(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "level.json", levelDoc)

	out, _, err := execute(t, "", "tree", path)
	require.NoError(t, err)
	assert.Equal(t, "Level1:\n"+
		"├─ 0 standard [0 conditions, 1 action]\n"+
		"└─ 1 link \"Shared\"\n"+
		"   └─ 0 standard [0 conditions, 1 action] from Shared\n", out)
}

func TestLinksDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Extra.json", `[{
	  "type": "BuiltinCommonInstructions::Standard",
	  "actions": [{"type": {"value": "ModVarScene"}, "parameters": ["Extra", "=", "9"]}]
	}]`)
	path := writeFile(t, dir, "main.json", `[{"type": "BuiltinCommonInstructions::Link", "target": "Extra"}]`)

	out, _, err := execute(t, "", "--links", dir, "run", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"Extra":9`)

	out, _, err = execute(t, "", "check", path)
	var cliErr *CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Contains(t, out, "unresolved-link")
}

// syncBuffer is a bytes.Buffer safe for one writer and one reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "level.json", `[{"type": "BuiltinCommonInstructions::Comment"}]`)

	var stdout, stderr syncBuffer
	cmd := newRootCmd(strings.NewReader(""), &stdout, &stderr)
	cmd.SetArgs([]string{"--env-file", "", "watch", path})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	require.Eventually(t, func() bool {
		return strings.Contains(stdout.String(), "(comment - content is not displayed)")
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte(`[{"type": "BuiltinCommonInstructions::Group", "name": "Changed"}]`), 0o644))
	require.Eventually(t, func() bool {
		return strings.Contains(stdout.String(), `Group called "Changed":`)
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancellation")
	}
}
