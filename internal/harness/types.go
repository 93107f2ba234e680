package harness

import (
	"fmt"
	"strings"
)

// PassRecord is one non-idle Work call made by a step.
type PassRecord struct {
	Outcome   string   `json:"outcome"`
	Lanes     string   `json:"lanes"`
	Restarts  int      `json:"restarts,omitempty"`
	Commit    string   `json:"commit,omitempty"`
	Mutations []string `json:"mutations,omitempty"`
	Error     string   `json:"error,omitempty"`

	// Calls are the host calls the pass made, in order.
	Calls []string `json:"calls,omitempty"`
}

// StepRecord is the trace of one scenario step.
type StepRecord struct {
	Index  int          `json:"index"`
	Step   string       `json:"step"`
	Passes []PassRecord `json:"passes,omitempty"`
}

// LastPass returns the step's final pass, or nil when it made none.
func (s *StepRecord) LastPass() *PassRecord {
	if len(s.Passes) == 0 {
		return nil
	}
	return &s.Passes[len(s.Passes)-1]
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every step expectation and assertion holds.
	Pass bool `json:"pass"`

	// Steps is the per-step trace used for assertions and golden comparison.
	Steps []StepRecord `json:"steps"`

	// Mutations lists every committed mutation in apply order.
	Mutations []string `json:"mutations"`

	// HostTree is the final rendering of the in-memory host.
	HostTree string `json:"host_tree"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:      true,
		Steps:     []StepRecord{},
		Mutations: []string{},
		Errors:    []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Trace renders the result as the text compared against golden files:
//
//	step 0: submit / normal
//	step 1: flush
//	  pass committed lanes=normal commit=commit-1
//	    create 2 list {}
//	    = create list /l
//	host:
//	  list
func (r *Result) Trace() string {
	var b strings.Builder
	for _, s := range r.Steps {
		fmt.Fprintf(&b, "step %d: %s\n", s.Index, s.Step)
		for _, p := range s.Passes {
			b.WriteString("  pass ")
			b.WriteString(p.Outcome)
			fmt.Fprintf(&b, " lanes=%s", p.Lanes)
			if p.Restarts > 0 {
				fmt.Fprintf(&b, " restarts=%d", p.Restarts)
			}
			if p.Commit != "" {
				fmt.Fprintf(&b, " commit=%s", p.Commit)
			}
			if p.Error != "" {
				fmt.Fprintf(&b, " error=%q", p.Error)
			}
			b.WriteByte('\n')
			for _, c := range p.Calls {
				fmt.Fprintf(&b, "    %s\n", c)
			}
			for _, m := range p.Mutations {
				fmt.Fprintf(&b, "    = %s\n", m)
			}
		}
	}
	b.WriteString("host:\n")
	for _, line := range strings.Split(strings.TrimRight(r.HostTree, "\n"), "\n") {
		if line == "" {
			continue
		}
		fmt.Fprintf(&b, "  %s\n", line)
	}
	return b.String()
}
