package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/arbor/internal/engine"
	"github.com/roach88/arbor/internal/lane"
	"github.com/roach88/arbor/internal/view"
)

// Scenario defines a reconciliation test scenario.
// Scenarios drive an engine over an in-memory host through a list of steps
// and assert on the committed mutations and the final host tree.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files are named after it.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// FrameBudget overrides the engine frame budget, e.g. "0s" to yield
	// after every unit. Empty keeps the engine default; the harness clock
	// only moves on advance steps, so the default never yields.
	FrameBudget string `yaml:"frame_budget,omitempty"`

	// ClockStep makes every clock read advance time by this much.
	ClockStep string `yaml:"clock_step,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace, host tree and journal.
	// Supported types: host_tree, mutation_count, mutation_order,
	// pass_outcome, journal
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one scenario action. Exactly one field is set.
type Step struct {
	Submit  *SubmitStep `yaml:"submit,omitempty"`
	Advance string      `yaml:"advance,omitempty"`
	Work    *WorkStep   `yaml:"work,omitempty"`
	Flush   *WorkStep   `yaml:"flush,omitempty"`
}

// SubmitStep submits a description. The description comes from View, from
// the CUE file named by CUE, or is nil when Delete is set.
type SubmitStep struct {
	// Path addresses the position, e.g. "/list/a" or "/#0".
	Path string `yaml:"path"`

	// Priority is a lane.Priority name. Default: normal.
	Priority string `yaml:"priority,omitempty"`

	View *view.Node `yaml:"view,omitempty"`

	// CUE is a view file, relative to the scenario file.
	CUE string `yaml:"cue,omitempty"`

	Delete bool `yaml:"delete,omitempty"`
}

// WorkStep runs one Work call (work) or passes until nothing is pending
// (flush).
type WorkStep struct {
	// Expect is the expected outcome of the step's last pass.
	Expect string `yaml:"expect,omitempty"`
}

// Assertion validates the scenario result.
type Assertion struct {
	// Type specifies the assertion type:
	// - "host_tree": compare the final host rendering with Tree
	// - "mutation_count": count committed mutations, optionally of one Effect
	// - "mutation_order": check Mutations appear in order
	// - "pass_outcome": check the last pass of Step
	// - "journal": query a journal table and verify expected values
	Type string `yaml:"type"`

	// Tree is the expected host rendering (used by host_tree).
	Tree string `yaml:"tree,omitempty"`

	// Count is the expected number of mutations (used by mutation_count).
	Count int `yaml:"count,omitempty"`

	// Effect restricts mutation_count to mutations whose effect includes it.
	Effect string `yaml:"effect,omitempty"`

	// Mutations is the expected order (used by mutation_order), in
	// "effect kind path" form.
	Mutations []string `yaml:"mutations,omitempty"`

	// Step is the zero-based step index (used by pass_outcome).
	Step int `yaml:"step,omitempty"`

	// Outcome and Lanes are the expected pass (used by pass_outcome).
	Outcome string `yaml:"outcome,omitempty"`
	Lanes   string `yaml:"lanes,omitempty"`

	// Table is the journal table name (used by journal).
	Table string `yaml:"table,omitempty"`

	// Where specifies query filters (used by journal).
	// All fields must match exactly.
	Where map[string]interface{} `yaml:"where,omitempty"`

	// Expect contains expected field values (used by journal).
	// Subset match - only specified fields are validated.
	Expect map[string]interface{} `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertHostTree      = "host_tree"
	AssertMutationCount = "mutation_count"
	AssertMutationOrder = "mutation_order"
	AssertPassOutcome   = "pass_outcome"
	AssertJournal       = "journal"
)

// LoadScenario reads and parses a scenario YAML file. CUE paths resolve
// relative to the scenario file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving CUE paths relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve CUE paths relative to base path BEFORE validation
	for _, step := range scenario.Steps {
		if step.Submit != nil && step.Submit.CUE != "" && !filepath.IsAbs(step.Submit.CUE) && basePath != "" {
			step.Submit.CUE = filepath.Join(basePath, step.Submit.CUE)
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if _, err := parseDuration(s.FrameBudget); err != nil {
		return fmt.Errorf("frame_budget: %w", err)
	}
	if _, err := parseDuration(s.ClockStep); err != nil {
		return fmt.Errorf("clock_step: %w", err)
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion, len(s.Steps)); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(index int, st *Step) error {
	set := 0
	if st.Submit != nil {
		set++
	}
	if st.Advance != "" {
		set++
	}
	if st.Work != nil {
		set++
	}
	if st.Flush != nil {
		set++
	}
	if set != 1 {
		return fmt.Errorf("steps[%d]: exactly one of submit, advance, work, flush is required", index)
	}

	switch {
	case st.Submit != nil:
		sub := st.Submit
		if _, err := view.ParsePath(sub.Path); err != nil {
			return fmt.Errorf("steps[%d].submit: %w", index, err)
		}
		if _, err := parsePriority(sub.Priority); err != nil {
			return fmt.Errorf("steps[%d].submit: %w", index, err)
		}
		sources := 0
		if sub.View != nil {
			sources++
		}
		if sub.CUE != "" {
			sources++
			if _, err := os.Stat(sub.CUE); os.IsNotExist(err) {
				return fmt.Errorf("steps[%d].submit: cue file not found: %s", index, sub.CUE)
			}
		}
		if sub.Delete {
			sources++
		}
		if sources != 1 {
			return fmt.Errorf("steps[%d].submit: exactly one of view, cue, delete is required", index)
		}
	case st.Advance != "":
		if _, err := time.ParseDuration(st.Advance); err != nil {
			return fmt.Errorf("steps[%d].advance: %w", index, err)
		}
	case st.Work != nil:
		if err := validateExpect(st.Work.Expect); err != nil {
			return fmt.Errorf("steps[%d].work: %w", index, err)
		}
	case st.Flush != nil:
		if err := validateExpect(st.Flush.Expect); err != nil {
			return fmt.Errorf("steps[%d].flush: %w", index, err)
		}
	}
	return nil
}

func validateExpect(s string) error {
	if s == "" {
		return nil
	}
	_, err := engine.ParseOutcome(s)
	return err
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, steps int) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertHostTree:
		// an empty tree asserts an empty host
	case AssertMutationCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for mutation_count", index)
		}
	case AssertMutationOrder:
		if len(a.Mutations) == 0 {
			return fmt.Errorf("assertions[%d]: mutations list is required for mutation_order", index)
		}
	case AssertPassOutcome:
		if a.Step < 0 || a.Step >= steps {
			return fmt.Errorf("assertions[%d]: step %d out of range for pass_outcome", index, a.Step)
		}
		if _, err := engine.ParseOutcome(a.Outcome); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	case AssertJournal:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for journal", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for journal", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

func parsePriority(s string) (lane.Priority, error) {
	if s == "" {
		return lane.PriorityNormal, nil
	}
	return lane.ParsePriority(s)
}
