package plan

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rahul/gridmind/internal/action"
)

// Status is the runtime state of a single step.
type Status string

const (
	StatusPending   Status = "pending"
	StatusExecuting Status = "executing"
	StatusDone      Status = "done"
	StatusError     Status = "error"
)

// Step is one action plus its descriptive metadata and runtime state.
// The action itself is immutable once the plan is built; only Status and
// Result change, and only through Plan's setters.
type Step struct {
	Index       int           `json:"step"`
	Description string        `json:"description"`
	Action      action.Action `json:"action"`
	Formula     string        `json:"formula,omitempty"`
	About       string        `json:"about,omitempty"`
	Status      Status        `json:"status"`
	Result      string        `json:"result,omitempty"`
}

type stepWire struct {
	Index       int             `json:"step"`
	Description string          `json:"description"`
	Action      json.RawMessage `json:"action"`
	Formula     string          `json:"formula,omitempty"`
	About       string          `json:"about,omitempty"`
	Status      Status          `json:"status"`
	Result      string          `json:"result,omitempty"`
}

func (s *Step) UnmarshalJSON(data []byte) error {
	var w stepWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	a, err := action.Decode(w.Action)
	if err != nil {
		return fmt.Errorf("step %d: %w", w.Index, err)
	}
	s.Index = w.Index
	s.Description = w.Description
	s.Action = a
	s.Formula = w.Formula
	s.About = w.About
	s.Status = w.Status
	s.Result = w.Result
	if s.Status == "" {
		s.Status = StatusPending
	}
	return nil
}

func (s Step) MarshalJSON() ([]byte, error) {
	raw, err := action.Encode(s.Action)
	if err != nil {
		return nil, fmt.Errorf("step %d: %w", s.Index, err)
	}
	return json.Marshal(stepWire{
		Index:       s.Index,
		Description: s.Description,
		Action:      raw,
		Formula:     s.Formula,
		About:       s.About,
		Status:      s.Status,
		Result:      s.Result,
	})
}

// Plan is an ordered sequence of steps produced once per assistant
// response. The step list never changes after construction; the mutex
// guards status/result updates against concurrent status polling.
type Plan struct {
	mu    sync.RWMutex
	steps []Step
}

// New builds a plan from steps, normalising indexes to their 1-based
// position and resetting every step to pending.
func New(steps []Step) (*Plan, error) {
	out := make([]Step, len(steps))
	for i, s := range steps {
		if s.Action == nil {
			return nil, fmt.Errorf("step %d has no action", i+1)
		}
		if err := action.Validate(s.Action); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		s.Index = i + 1
		s.Status = StatusPending
		s.Result = ""
		out[i] = s
	}
	return &Plan{steps: out}, nil
}

// Parse decodes a serialized plan of the form {"steps": [...]}.
func Parse(data []byte) (*Plan, error) {
	var w struct {
		Steps []Step `json:"steps"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("parse plan: %w", err)
	}
	return &Plan{steps: w.Steps}, nil
}

func (p *Plan) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Steps []Step `json:"steps"`
	}{Steps: p.Snapshot()})
}

func (p *Plan) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.steps)
}

// Snapshot returns a copy of the steps, safe to read while execution is
// in flight.
func (p *Plan) Snapshot() []Step {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Step, len(p.steps))
	copy(out, p.steps)
	return out
}

// Step returns the step at the given 1-based index.
func (p *Plan) Step(index int) (Step, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if index < 1 || index > len(p.steps) {
		return Step{}, false
	}
	return p.steps[index-1], true
}

// SetStatus records a status transition for the step at the 1-based index.
func (p *Plan) SetStatus(index int, status Status, result string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if index < 1 || index > len(p.steps) {
		return
	}
	p.steps[index-1].Status = status
	p.steps[index-1].Result = result
}
