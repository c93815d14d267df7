package tools

import (
	"sync"

	"github.com/rahul/gridmind/internal/action"
	"github.com/rahul/gridmind/internal/grid"
	"github.com/rahul/gridmind/internal/plan"
)

// PlanBuilder accumulates the steps the planner proposes through its
// tools during one reasoning run. The planner never touches the sheet
// directly; every tool call lands here as a pending step, and the
// engine executes the collected plan afterwards.
type PlanBuilder struct {
	mu    sync.Mutex
	steps []plan.Step
	snap  *grid.TableSnapshot
	meta  *grid.SheetMetadata
}

func NewPlanBuilder() *PlanBuilder {
	return &PlanBuilder{}
}

// SetContext installs the active sheet's snapshot and pre-processed
// shape for the run. Read tools answer from these and the formula
// fixer uses the last row. Queued steps from a previous run are
// discarded.
func (b *PlanBuilder) SetContext(snap *grid.TableSnapshot, meta *grid.SheetMetadata) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.snap = snap
	b.meta = meta
	b.steps = nil
}

func (b *PlanBuilder) Metadata() *grid.SheetMetadata {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.meta
}

func (b *PlanBuilder) Snapshot() *grid.TableSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snap
}

// LastRow is the metadata's last occupied row, with a generous default
// when no sheet context was provided.
func (b *PlanBuilder) LastRow() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.meta == nil || b.meta.LastRow == 0 {
		return 100
	}
	return b.meta.LastRow
}

// queue appends a step. A createSheet for a name already queued is
// dropped; planners occasionally propose the same sheet twice.
func (b *PlanBuilder) queue(s plan.Step) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cs, ok := s.Action.(action.CreateSheet); ok {
		for _, existing := range b.steps {
			if prev, ok := existing.Action.(action.CreateSheet); ok && prev.Name == cs.Name {
				return false
			}
		}
	}
	b.steps = append(b.steps, s)
	return true
}

// Steps drains the accumulated steps, leaving the builder ready for
// the next run.
func (b *PlanBuilder) Steps() []plan.Step {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.steps
	b.steps = nil
	return out
}

// Pending returns the queued step count without draining.
func (b *PlanBuilder) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.steps)
}
