// Package testutil provides shared test helpers for BotLang Go tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
)

// ScenariosDir is the scenario root, relative to the module root.
const ScenariosDir = "testdata/scenarios"

// Scenario represents a test scenario loaded from a scenario.json file.
type Scenario struct {
	// Cmd is the command and program file, e.g. ["run", "main.bl"].
	Cmd     []string        `json:"cmd"`
	Options ScenarioOptions `json:"options,omitempty"`
	Meta    *ScenarioMeta   `json:"meta,omitempty"`
	Expect  ExpectedResult  `json:"expect"`
}

// ScenarioOptions adjust the runtime configuration for one scenario.
type ScenarioOptions struct {
	AllowInheritance  bool  `json:"allowInheritance,omitempty"`
	MaxLoopIterations int   `json:"maxLoopIterations,omitempty"`
	Seed              int64 `json:"seed,omitempty"`
}

// ScenarioMeta holds optional scenario metadata.
type ScenarioMeta struct {
	Tags []string `json:"tags,omitempty"`
}

// ExpectedResult describes the expected outcome of running a scenario.
// Unset fields are not checked.
type ExpectedResult struct {
	ExitCode          int             `json:"exitCode"`
	StdoutJSON        json.RawMessage `json:"stdoutJson,omitempty"`
	StdoutText        *string         `json:"stdoutText,omitempty"`
	StderrContains    string          `json:"stderrContains,omitempty"`
	DiagnosticsSubset json.RawMessage `json:"diagnosticsSubset,omitempty"`
	ShapeCount        *int            `json:"shapeCount,omitempty"`
	RobotSubset       json.RawMessage `json:"robotSubset,omitempty"`
}

// LoadScenario loads a scenario from a directory containing scenario.json.
func LoadScenario(dir string) (*Scenario, error) {
	data, err := os.ReadFile(filepath.Join(dir, "scenario.json"))
	if err != nil {
		return nil, err
	}
	var s Scenario
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%s: %w", dir, err)
	}
	if len(s.Cmd) < 2 {
		return nil, fmt.Errorf("%s: cmd needs a command and a program file", dir)
	}
	return &s, nil
}

// ListScenarios returns all scenario directories under the given root, sorted.
func ListScenarios(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			scenarioPath := filepath.Join(root, e.Name(), "scenario.json")
			if _, err := os.Stat(scenarioPath); err == nil {
				dirs = append(dirs, filepath.Join(root, e.Name()))
			}
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}

// ReadProgramFile reads the program file referenced by the scenario cmd.
func ReadProgramFile(scenarioDir string, cmd []string) (string, string, error) {
	filename := cmd[1]
	source, err := os.ReadFile(filepath.Join(scenarioDir, filename))
	if err != nil {
		return "", "", err
	}
	return string(source), filename, nil
}

// IsSubset checks if expected is a subset of actual, both decoded from JSON.
// Numbers match within 1e-9.
func IsSubset(expected, actual interface{}) bool {
	switch e := expected.(type) {
	case map[string]interface{}:
		a, ok := actual.(map[string]interface{})
		if !ok {
			return false
		}
		for k, ev := range e {
			av, exists := a[k]
			if !exists || !IsSubset(ev, av) {
				return false
			}
		}
		return true

	case []interface{}:
		a, ok := actual.([]interface{})
		if !ok || len(e) > len(a) {
			return false
		}
		for i, ev := range e {
			if !IsSubset(ev, a[i]) {
				return false
			}
		}
		return true

	case float64:
		af, ok := actual.(float64)
		return ok && math.Abs(e-af) < 1e-9

	case nil:
		return actual == nil

	default:
		return expected == actual
	}
}

// Normalize round-trips v through JSON so it can be compared with IsSubset.
func Normalize(v interface{}) (interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out interface{}
	err = json.Unmarshal(data, &out)
	return out, err
}
