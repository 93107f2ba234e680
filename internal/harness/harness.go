package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/roach88/arbor/internal/compiler"
	"github.com/roach88/arbor/internal/engine"
	"github.com/roach88/arbor/internal/host"
	"github.com/roach88/arbor/internal/store"
	"github.com/roach88/arbor/internal/testutil"
	"github.com/roach88/arbor/internal/view"
)

// maxFlushPasses bounds a flush step so a scenario that keeps submitting
// from hooks cannot spin forever.
const maxFlushPasses = 10000

// Harness is the test execution engine.
// It runs scenarios against a real engine with a manual clock, an in-memory
// host wrapped in a call recorder, and an in-memory journal.
type Harness struct {
	store  *store.Store
	engine *engine.Engine
	mem    *host.Memory
	rec    *host.Recorder
	clock  *testutil.ManualClock
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh engine and in-memory database for isolation.
// Commit IDs are sequential and time only moves on advance steps, so traces
// are identical across runs.
//
// Execution flow:
// 1. Create fresh in-memory host, journal and engine
// 2. Execute steps, recording every non-idle pass and its host calls
// 3. Check step expectations and assertions
// 4. Return result with pass/fail, trace, and errors
func Run(scenario *Scenario) (*Result, error) {
	return RunWithLogger(scenario, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// RunWithLogger is Run with engine logs sent to logger.
func RunWithLogger(scenario *Scenario, logger *slog.Logger) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h, err := newHarness(scenario, st, logger)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.execute(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("failed to execute step %d: %w", i, err)
		}
	}
	result.HostTree = h.mem.Render()

	actx := &AssertionContext{
		Store: st,
		Ctx:   ctx,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

func newHarness(scenario *Scenario, st *store.Store, logger *slog.Logger) (*Harness, error) {
	clock := testutil.NewManualClock()
	step, err := parseDuration(scenario.ClockStep)
	if err != nil {
		return nil, fmt.Errorf("clock_step: %w", err)
	}
	clock.SetStep(step)

	mem := host.NewMemory()
	rec := host.NewRecorder(mem)

	opts := []engine.EngineOption{
		engine.WithLogger(logger),
		engine.WithTimeSource(clock),
		engine.WithIDGenerator(engine.NewSequentialGenerator("commit")),
		engine.WithJournal(st),
	}
	if scenario.FrameBudget != "" {
		budget, err := parseDuration(scenario.FrameBudget)
		if err != nil {
			return nil, fmt.Errorf("frame_budget: %w", err)
		}
		opts = append(opts, engine.WithFrameBudget(budget))
	}

	return &Harness{
		store:  st,
		engine: engine.New(rec, mem.Root(), opts...),
		mem:    mem,
		rec:    rec,
		clock:  clock,
		logger: logger,
	}, nil
}

func (h *Harness) execute(ctx context.Context, index int, step Step, result *Result) error {
	record := StepRecord{Index: index}

	switch {
	case step.Submit != nil:
		desc, err := h.submit(step.Submit)
		if err != nil {
			return err
		}
		record.Step = desc

	case step.Advance != "":
		d, err := time.ParseDuration(step.Advance)
		if err != nil {
			return err
		}
		h.clock.Advance(d)
		record.Step = "advance " + d.String()

	case step.Work != nil:
		record.Step = "work"
		p := h.work(ctx, result)
		if p.Outcome != engine.OutcomeIdle.String() {
			record.Passes = append(record.Passes, p)
		}
		h.checkExpect(index, step.Work.Expect, p.Outcome, result)

	case step.Flush != nil:
		record.Step = "flush"
		last := engine.OutcomeIdle.String()
		for n := 0; ; n++ {
			if n == maxFlushPasses {
				return fmt.Errorf("flush did not settle after %d passes", maxFlushPasses)
			}
			p := h.work(ctx, result)
			if p.Outcome == engine.OutcomeIdle.String() {
				break
			}
			record.Passes = append(record.Passes, p)
			last = p.Outcome
		}
		h.checkExpect(index, step.Flush.Expect, last, result)
	}

	h.logger.Info("step completed", "step", index, "action", record.Step, "passes", len(record.Passes))
	result.Steps = append(result.Steps, record)
	return nil
}

func (h *Harness) submit(s *SubmitStep) (string, error) {
	path, err := view.ParsePath(s.Path)
	if err != nil {
		return "", err
	}
	p, err := parsePriority(s.Priority)
	if err != nil {
		return "", err
	}

	desc := fmt.Sprintf("submit %s %s", path, p)
	var n *view.Node
	switch {
	case s.Delete:
		desc += " delete"
	case s.CUE != "":
		n, err = compiler.LoadViewFile(s.CUE)
		if err != nil {
			return "", err
		}
		desc += " cue=" + filepath.Base(s.CUE)
	default:
		n = s.View
	}

	if err := h.engine.Submit(path, n, p); err != nil {
		return "", err
	}
	return desc, nil
}

// work runs one Work call and records it. Pass errors are part of the trace,
// not harness failures.
func (h *Harness) work(ctx context.Context, result *Result) PassRecord {
	h.rec.Reset()
	p, err := h.engine.Work(ctx)

	rec := PassRecord{
		Outcome:  p.Outcome.String(),
		Lanes:    p.Lanes.String(),
		Restarts: p.Restarts,
	}
	if err != nil {
		rec.Error = err.Error()
	}
	if p.Commit != nil {
		rec.Commit = p.Commit.ID
		for _, m := range p.Commit.Mutations {
			rec.Mutations = append(rec.Mutations, m.String())
			result.Mutations = append(result.Mutations, m.String())
		}
	}
	for _, c := range h.rec.Calls() {
		rec.Calls = append(rec.Calls, c.String())
	}
	return rec
}

func (h *Harness) checkExpect(index int, want, got string, result *Result) {
	if want != "" && want != got {
		result.AddError(fmt.Sprintf("steps[%d]: expected outcome %s, got %s", index, want, got))
	}
}
