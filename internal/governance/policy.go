package governance

import (
	"context"
	"fmt"
	"regexp"

	"github.com/rahul/gridmind/internal/action"
)

// Effect defines the result of a policy evaluation.
type Effect string

const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

// Request contains the context of a planned action to be evaluated.
type Request struct {
	Action         action.Action
	ConversationID string
}

// Result contains the outcome of a policy evaluation.
type Result struct {
	Effect Effect
	Reason string
}

// PolicyEngine evaluates planned actions against a set of rules before
// they reach the document.
type PolicyEngine interface {
	Evaluate(ctx context.Context, req Request) (Result, error)
}

// DefaultPolicyEngine is a basic implementation of PolicyEngine.
type DefaultPolicyEngine struct {
	DeniedKinds     map[action.Kind]bool
	ProtectedSheets []*regexp.Regexp
	MaxWriteCells   int
}

func NewDefaultPolicyEngine() *DefaultPolicyEngine {
	return &DefaultPolicyEngine{
		DeniedKinds:     make(map[action.Kind]bool),
		ProtectedSheets: make([]*regexp.Regexp, 0),
		MaxWriteCells:   50000,
	}
}

func (e *DefaultPolicyEngine) DenyKind(kind action.Kind) {
	e.DeniedKinds[kind] = true
}

// ProtectSheet blocks mutations to sheets whose name matches the pattern.
func (e *DefaultPolicyEngine) ProtectSheet(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	e.ProtectedSheets = append(e.ProtectedSheets, re)
	return nil
}

func (e *DefaultPolicyEngine) Evaluate(ctx context.Context, req Request) (Result, error) {
	kind := req.Action.Kind()
	if e.DeniedKinds[kind] {
		return Result{
			Effect: EffectDeny,
			Reason: fmt.Sprintf("Action '%s' is restricted by system policy", kind),
		}, nil
	}

	if sheet := targetSheet(req.Action); sheet != "" && req.Action.Mutates() {
		for _, re := range e.ProtectedSheets {
			if re.MatchString(sheet) {
				return Result{
					Effect: EffectDeny,
					Reason: fmt.Sprintf("Sheet '%s' matches protected pattern: %s", sheet, re.String()),
				}, nil
			}
		}
	}

	if sv, ok := req.Action.(action.SetValues); ok {
		cells := 0
		for _, row := range sv.Values {
			cells += len(row)
		}
		if cells > e.MaxWriteCells {
			return Result{
				Effect: EffectDeny,
				Reason: fmt.Sprintf("setValues writes %d cells, above the %d cell limit", cells, e.MaxWriteCells),
			}, nil
		}
	}

	return Result{
		Effect: EffectAllow,
		Reason: "Approved by default policy",
	}, nil
}

func targetSheet(a action.Action) string {
	switch v := a.(type) {
	case action.SetValue:
		return v.Sheet
	case action.SetValues:
		return v.Sheet
	case action.SetFormula:
		return v.Sheet
	case action.AutoFillDown:
		return v.Sheet
	case action.FormatRange:
		return v.Sheet
	case action.CreateSheet:
		return v.Name
	}
	return ""
}
