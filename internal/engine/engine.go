package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rahul/gridmind/internal/action"
	"github.com/rahul/gridmind/internal/governance"
	"github.com/rahul/gridmind/internal/observability"
	"github.com/rahul/gridmind/internal/plan"
)

// errorToken is the literal marker the document executor prefixes onto a
// failed step's result text. It is part of the wire contract with the
// existing bridge executor and must not change.
const errorToken = "Error"

// Applier is the injected capability bound to the live document. A
// returned error means the action never reached the document (transport
// failure); an in-band failure comes back as a result string starting
// with the "Error" token.
type Applier interface {
	ApplyAction(ctx context.Context, a action.Action) (string, error)
}

// Undoer applies a reversal log back to the document. The runner invokes
// it at most once per message.
type Undoer interface {
	ApplyUndo(ctx context.Context, u plan.UndoInfo) (string, error)
}

// StepEvent is one status transition, emitted live for progressive UI.
type StepEvent struct {
	MessageID   string
	Index       int
	Description string
	Status      plan.Status
	Result      string
}

// Observer receives step events as they happen. It must not block for
// long; the runner calls it inline between document operations.
type Observer func(StepEvent)

// RunSummary is the terminal report of one plan execution.
type RunSummary struct {
	Total       int    `json:"total"`
	Completed   int    `json:"completed"`
	FailedIndex int    `json:"failed_index,omitempty"` // 0 when every step completed
	FailedText  string `json:"failed_text,omitempty"`
}

func (s RunSummary) String() string {
	if s.FailedIndex == 0 {
		return fmt.Sprintf("%d/%d steps completed", s.Completed, s.Total)
	}
	return fmt.Sprintf("%d/%d steps completed, step %d failed: %s",
		s.Completed, s.Total, s.FailedIndex, s.FailedText)
}

// Runner executes plans sequentially against the injected capabilities.
type Runner struct {
	applier   Applier
	undoer    Undoer
	policy    governance.PolicyEngine
	logger    *observability.Logger
	observer  Observer
	stepDelay time.Duration
}

type Option func(*Runner)

// WithObserver registers a live step-status listener.
func WithObserver(o Observer) Option {
	return func(r *Runner) { r.observer = o }
}

// WithStepDelay inserts a pause between completed steps so an observer
// can render progressive feedback. It never changes final state.
func WithStepDelay(d time.Duration) Option {
	return func(r *Runner) { r.stepDelay = d }
}

// WithPolicy gates every step through a policy engine. A denial becomes
// an in-band step error, so fail-fast semantics are unchanged.
func WithPolicy(p governance.PolicyEngine) Option {
	return func(r *Runner) { r.policy = p }
}

func WithLogger(l *observability.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

func NewRunner(applier Applier, undoer Undoer, opts ...Option) *Runner {
	r := &Runner{
		applier: applier,
		undoer:  undoer,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// IsErrorResult classifies a result string per the executor contract: a
// leading "Error" token is a failure, anything else is a human-readable
// success.
func IsErrorResult(result string) bool {
	return strings.HasPrefix(result, errorToken)
}

// Run executes the message's plan step by step, in index order, stopping
// at the first failure. Steps after a failure are never attempted and
// stay pending. When the loop ends the reversal log is derived from the
// completed steps and attached to the message.
func (r *Runner) Run(ctx context.Context, m *plan.Message) RunSummary {
	p := m.Plan
	summary := RunSummary{Total: p.Len()}

	observability.SetPhase(observability.PhaseExecuting, "Running plan")
	defer observability.SetPhase(observability.PhaseIdle, "")

	steps := p.Snapshot()
	for i, step := range steps {
		r.transition(m, p, step, plan.StatusExecuting, "")

		result := r.applyStep(ctx, m, step)

		if IsErrorResult(result) {
			r.transition(m, p, step, plan.StatusError, result)
			summary.FailedIndex = step.Index
			summary.FailedText = result
			break
		}

		r.transition(m, p, step, plan.StatusDone, result)
		summary.Completed++

		// Pause between completed steps purely so the observer can
		// render progressive feedback.
		if r.stepDelay > 0 && i < len(steps)-1 {
			time.Sleep(r.stepDelay)
		}
	}

	undo := BuildUndoInfo(p.Snapshot())
	m.Undo = &undo

	observability.CountPlan(summary.Completed)
	if r.logger != nil {
		r.logger.LogPlan(m.ConversationID.String(), m.ID.String(), summary.Total, summary.String())
	}
	return summary
}

func (r *Runner) applyStep(ctx context.Context, m *plan.Message, step plan.Step) string {
	if r.policy != nil {
		res, err := r.policy.Evaluate(ctx, governance.Request{
			Action:         step.Action,
			ConversationID: m.ConversationID.String(),
		})
		if err != nil {
			return fmt.Sprintf("%s: policy evaluation failed: %v", errorToken, err)
		}
		if r.logger != nil {
			r.logger.LogPolicyCheck(m.ID.String(), string(step.Action.Kind()), string(res.Effect), res.Reason)
		}
		if res.Effect == governance.EffectDeny {
			return fmt.Sprintf("%s: blocked by policy: %s", errorToken, res.Reason)
		}
	}

	result, err := r.applier.ApplyAction(ctx, step.Action)
	if err != nil {
		// Transport failures fold into the in-band error channel so the
		// orchestrator has a single failure classification.
		return fmt.Sprintf("%s: %v", errorToken, err)
	}
	return result
}

func (r *Runner) transition(m *plan.Message, p *plan.Plan, step plan.Step, status plan.Status, result string) {
	p.SetStatus(step.Index, status, result)
	if r.logger != nil && status != plan.StatusExecuting {
		r.logger.LogStep(m.ID.String(), step.Index, string(status), result)
	}
	if r.observer != nil {
		r.observer(StepEvent{
			MessageID:   m.ID.String(),
			Index:       step.Index,
			Description: step.Description,
			Status:      status,
			Result:      result,
		})
	}
}

// Undo applies the message's reversal log through the undo capability,
// at most once per message. An in-band "Error" result from the executor
// does not flip the latch, so the user may retry a failed reversal.
func (r *Runner) Undo(ctx context.Context, m *plan.Message) (string, error) {
	observability.SetPhase(observability.PhaseUndoing, "Undoing plan")
	defer observability.SetPhase(observability.PhaseIdle, "")

	result, err := m.UndoOnce(func(u plan.UndoInfo) (string, error) {
		res, err := r.undoer.ApplyUndo(ctx, u)
		if err != nil {
			return res, err
		}
		if IsErrorResult(res) {
			return res, fmt.Errorf("undo rejected by executor: %s", res)
		}
		return res, nil
	})
	if err != nil {
		return result, err
	}

	observability.CountUndo()
	if r.logger != nil && m.Undo != nil {
		r.logger.LogUndo(m.ID.String(), len(m.Undo.SheetsToDelete), len(m.Undo.CellsToClear), result)
	}
	return result, nil
}
