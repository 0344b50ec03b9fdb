package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/urfave/cli.v1"

	"github.com/thomasrohde/botlang/pkg/runtime"
)

// runApp runs the CLI with args and returns the exit code it asked for.
func runApp(t *testing.T, args ...string) (int, string) {
	t.Helper()
	code := runtime.ExitOK
	var errOut bytes.Buffer
	oldExiter, oldErr := cli.OsExiter, cli.ErrWriter
	cli.OsExiter = func(c int) { code = c }
	cli.ErrWriter = &errOut
	defer func() {
		cli.OsExiter, cli.ErrWriter = oldExiter, oldErr
	}()

	t.Setenv("HOME", t.TempDir())
	t.Setenv("USERPROFILE", t.TempDir())
	err := newApp().Run(append([]string{"botlang"}, args...))
	if err != nil && code == runtime.ExitOK {
		code = runtime.ExitUsage
	}
	return code, errOut.String()
}

func writeProgram(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prog.bl")
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))
	return path
}

func TestExitCodes(t *testing.T) {
	tests := []struct {
		name   string
		args   func(t *testing.T) []string
		expect int
	}{
		{"run ok", func(t *testing.T) []string {
			return []string{"run", "--instant", writeProgram(t, "var x = 1;")}
		}, runtime.ExitOK},
		{"run static", func(t *testing.T) []string {
			return []string{"run", writeProgram(t, "var = 1;")}
		}, runtime.ExitStatic},
		{"run fault", func(t *testing.T) []string {
			return []string{"run", "--instant", writeProgram(t, "var x = nil + 1;")}
		}, runtime.ExitRuntime},
		{"run loop guard flag", func(t *testing.T) []string {
			return []string{"run", "--max-loops", "3", writeProgram(t, "for (var i = 0; i < 4; i += 1) {}")}
		}, runtime.ExitRuntime},
		{"check ok", func(t *testing.T) []string {
			return []string{"check", writeProgram(t, "var a = 1;")}
		}, runtime.ExitOK},
		{"check resolve", func(t *testing.T) []string {
			return []string{"check", "--json", writeProgram(t, "return;")}
		}, runtime.ExitStatic},
		{"check inherit flag", func(t *testing.T) []string {
			return []string{"check", "--inherit", writeProgram(t, "class A {} class B < A {}")}
		}, runtime.ExitOK},
		{"missing file", func(t *testing.T) []string {
			return []string{"run", filepath.Join(t.TempDir(), "nope.bl")}
		}, runtime.ExitUsage},
		{"no file", func(t *testing.T) []string {
			return []string{"check"}
		}, runtime.ExitUsage},
		{"bad config", func(t *testing.T) []string {
			cfg := filepath.Join(t.TempDir(), "bad.toml")
			require.NoError(t, os.WriteFile(cfg, []byte("[Robot\n"), 0644))
			return []string{"--config", cfg, "check", writeProgram(t, "")}
		}, runtime.ExitUsage},
		{"unknown topic", func(t *testing.T) []string {
			return []string{"help", "zzz"}
		}, runtime.ExitUsage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, stderr := runApp(t, tt.args(t)...)
			assert.Equal(t, tt.expect, code, "stderr: %s", stderr)
		})
	}
}

func TestFmtWrite(t *testing.T) {
	path := writeProgram(t, "var x=1;x=x*2;")
	code, _ := runApp(t, "fmt", "--write", path)
	require.Equal(t, runtime.ExitOK, code)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "var x = 1;\nx *= 2;\n", string(data))
}

func TestRunTraceFile(t *testing.T) {
	trace := filepath.Join(t.TempDir(), "trace.jsonl")
	code, _ := runApp(t, "run", "--instant", "--trace", trace, writeProgram(t, "moveFwd(1); rotate(2);"))
	require.Equal(t, runtime.ExitOK, code)

	f, err := os.Open(trace)
	require.NoError(t, err)
	defer f.Close()
	s := computeTraceSummary(f)
	assert.Equal(t, 2, s.Calls)
	assert.Equal(t, map[string]int{"moveFwd": 1, "rotate": 1}, s.CallsByName)
}

// ---- REPL input ----

func TestDepth(t *testing.T) {
	tests := []struct {
		src    string
		expect int
	}{
		{"print 1;", 0},
		{"function f() {", 1},
		{"function f() {\n  if (x) {", 2},
		{"function f() {\n}", 0},
		{"print (1 +", 1},
		{"var a = [1,", 1},
		{`print "{";`, 0},
		{`print "open`, 0},
		{"# {", 0},
		{"}", -1},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			assert.Equal(t, tt.expect, depth(tt.src))
		})
	}
}

// ---- Trace summaries ----

func TestComputeTraceSummary(t *testing.T) {
	trace := strings.Join([]string{
		`{"ts":"2024-01-01T00:00:00Z","runId":"r1","event":"run_start"}`,
		`{"ts":"2024-01-01T00:00:00.1Z","runId":"r1","event":"call_start","data":{"fn":"moveFwd"}}`,
		`{"ts":"2024-01-01T00:00:00.1Z","runId":"r1","event":"suspend"}`,
		`not json`,
		``,
		`{"ts":"2024-01-01T00:00:00.2Z","runId":"r1","event":"resume"}`,
		`{"ts":"2024-01-01T00:00:00.2Z","runId":"r1","event":"call_end","data":{"fn":"moveFwd"}}`,
		`{"ts":"2024-01-01T00:00:00.3Z","runId":"r1","event":"call_start","data":{"fn":"moveFwd"}}`,
		`{"ts":"2024-01-01T00:00:00.3Z","runId":"r1","event":"call_start","data":{"fn":"rotate"}}`,
		`{"ts":"2024-01-01T00:00:00.4Z","runId":"r1","event":"loop_guard","data":{"iterations":"10001"}}`,
		`{"ts":"2024-01-01T00:00:00.5Z","runId":"r1","event":"run_end"}`,
	}, "\n")

	s := computeTraceSummary(strings.NewReader(trace))
	assert.Equal(t, "r1", s.RunID)
	assert.Equal(t, 9, s.TotalEvents)
	assert.Equal(t, 3, s.Calls)
	assert.Equal(t, map[string]int{"moveFwd": 2, "rotate": 1}, s.CallsByName)
	assert.Equal(t, 1, s.Suspends)
	assert.Equal(t, 1, s.LoopGuards)
	assert.Equal(t, float64(500), s.DurationMs)

	var buf bytes.Buffer
	printTraceSummaryText(&buf, s)
	out := buf.String()
	assert.Contains(t, out, "Run: r1")
	assert.Contains(t, out, "Duration: 500ms")
	assert.Less(t, strings.Index(out, "moveFwd"), strings.Index(out, "rotate"))
}

func TestComputeTraceSummaryEmpty(t *testing.T) {
	s := computeTraceSummary(strings.NewReader(""))
	assert.Zero(t, s.TotalEvents)
	assert.Zero(t, s.DurationMs)
	assert.Empty(t, s.CallsByName)
}
