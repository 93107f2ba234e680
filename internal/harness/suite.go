package harness

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// ScenarioNotFoundError is returned when a scenario path doesn't exist.
type ScenarioNotFoundError struct {
	Path string
}

// Error implements the error interface.
func (e *ScenarioNotFoundError) Error() string {
	return fmt.Sprintf("scenario %q does not exist", e.Path)
}

// CollectScenarios expands paths into scenario files. Directories contribute
// their *.yaml and *.yml files, sorted; files are taken as given.
func CollectScenarios(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if os.IsNotExist(err) {
			return nil, &ScenarioNotFoundError{Path: p}
		}
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, p)
			continue
		}
		var found []string
		for _, pattern := range []string{"*.yaml", "*.yml"} {
			matches, err := filepath.Glob(filepath.Join(p, pattern))
			if err != nil {
				return nil, err
			}
			found = append(found, matches...)
		}
		sort.Strings(found)
		out = append(out, found...)
	}
	return out, nil
}

// SuiteResult contains results from running a set of scenario files.
type SuiteResult struct {
	TotalScenarios int               `json:"total_scenarios"`
	Passed         int               `json:"passed"`
	Failed         int               `json:"failed"`
	Results        []ScenarioOutcome `json:"results"`
}

// ScenarioOutcome is the result of one scenario file.
type ScenarioOutcome struct {
	Path   string   `json:"path"`
	Name   string   `json:"name,omitempty"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// RunSuite loads and runs every scenario under paths.
//
// For each scenario file:
// 1. Load it, resolving CUE paths relative to its directory
// 2. Run it via RunWithLogger
// 3. Collect and report results
//
// Load and execution failures count as scenario failures; only a missing
// path is returned as an error.
func RunSuite(ctx context.Context, paths []string, logger *slog.Logger) (*SuiteResult, error) {
	files, err := CollectScenarios(paths)
	if err != nil {
		return nil, err
	}

	result := &SuiteResult{Results: []ScenarioOutcome{}}
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.TotalScenarios++
		outcome := ScenarioOutcome{Path: path}

		scenario, err := LoadScenario(path)
		if err != nil {
			outcome.Errors = []string{fmt.Sprintf("failed to load scenario: %v", err)}
			result.Failed++
			result.Results = append(result.Results, outcome)
			continue
		}
		outcome.Name = scenario.Name

		runResult, err := RunWithLogger(scenario, logger)
		if err != nil {
			outcome.Errors = []string{fmt.Sprintf("scenario execution failed: %v", err)}
			result.Failed++
			result.Results = append(result.Results, outcome)
			continue
		}

		outcome.Pass = runResult.Pass
		outcome.Errors = runResult.Errors
		if runResult.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
		result.Results = append(result.Results, outcome)
	}

	return result, nil
}
