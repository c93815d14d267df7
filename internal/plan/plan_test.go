package plan

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rahul/gridmind/internal/action"
)

func TestNewNormalisesSteps(t *testing.T) {
	p, err := New([]Step{
		{Description: "Create summary sheet", Action: action.CreateSheet{Name: "Summary"}, Status: StatusDone, Result: "stale"},
		{Description: "Add headers", Action: action.SetValues{Sheet: "Summary", Range: "A1:B1", Values: [][]any{{"Major", "Total"}}}},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	for i, s := range p.Snapshot() {
		if s.Index != i+1 {
			t.Errorf("Step %d has index %d", i, s.Index)
		}
		if s.Status != StatusPending {
			t.Errorf("Step %d should start pending, got %s", i+1, s.Status)
		}
		if s.Result != "" {
			t.Errorf("Step %d should start with empty result", i+1)
		}
	}
}

func TestNewRejectsInvalidAction(t *testing.T) {
	if _, err := New([]Step{{Description: "bad", Action: action.CreateSheet{}}}); err == nil {
		t.Fatal("Expected error for action missing required field")
	}
}

func TestPlanJSONRoundTrip(t *testing.T) {
	p, err := New([]Step{
		{Description: "Create summary sheet", Action: action.CreateSheet{Name: "Summary"}},
		{
			Description: "Sum per major",
			Action:      action.SetFormula{Sheet: "Summary", Cell: "B2", Formula: "=SUMIF('Sheet1'!E2:E31, A2, 'Sheet1'!G2:G31)"},
			Formula:     "=SUMIF('Sheet1'!E2:E31, A2, 'Sheet1'!G2:G31)",
			About:       "Sum values grouped by the unique key",
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	p.SetStatus(1, StatusDone, "Created sheet 'Summary'")

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	back, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	steps := back.Snapshot()
	if len(steps) != 2 {
		t.Fatalf("Expected 2 steps, got %d", len(steps))
	}
	if steps[0].Status != StatusDone || steps[0].Result != "Created sheet 'Summary'" {
		t.Errorf("Step 1 state lost in round trip: %+v", steps[0])
	}
	if _, ok := steps[1].Action.(action.SetFormula); !ok {
		t.Errorf("Step 2 action type lost: %T", steps[1].Action)
	}
	if steps[1].About == "" {
		t.Error("Step 2 about text lost in round trip")
	}
}

func TestUndoOnceLatch(t *testing.T) {
	m := NewAssistantMessage(uuid.New(), "done", nil)
	m.Undo = &UndoInfo{SheetsToDelete: []string{"Summary"}}

	calls := 0
	apply := func(u UndoInfo) (string, error) {
		calls++
		return "Undo complete", nil
	}

	if _, err := m.UndoOnce(apply); err != nil {
		t.Fatalf("First undo failed: %v", err)
	}
	if !m.Undone() {
		t.Error("Message should be marked undone")
	}

	for i := 0; i < 3; i++ {
		if _, err := m.UndoOnce(apply); !errors.Is(err, ErrAlreadyUndone) {
			t.Fatalf("Expected ErrAlreadyUndone, got %v", err)
		}
	}
	if calls != 1 {
		t.Errorf("Apply should run exactly once, ran %d times", calls)
	}
}

func TestUndoOnceRetriesAfterFailure(t *testing.T) {
	m := NewAssistantMessage(uuid.New(), "done", nil)
	m.Undo = &UndoInfo{CellsToClear: []CellRange{{Sheet: "Sheet1", Range: "A1:B3"}}}

	calls := 0
	apply := func(u UndoInfo) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("bridge unreachable")
		}
		return "Undo complete", nil
	}

	if _, err := m.UndoOnce(apply); err == nil {
		t.Fatal("Expected transport error on first attempt")
	}
	if m.Undone() {
		t.Fatal("Failed reversal must not flip the latch")
	}
	if _, err := m.UndoOnce(apply); err != nil {
		t.Fatalf("Retry after failure should succeed: %v", err)
	}
	if calls != 2 {
		t.Errorf("Expected 2 apply calls, got %d", calls)
	}
}

func TestUndoOnceUnavailable(t *testing.T) {
	m := NewAssistantMessage(uuid.New(), "chat only", nil)
	if _, err := m.UndoOnce(nil); !errors.Is(err, ErrUndoUnavailable) {
		t.Fatalf("Expected ErrUndoUnavailable, got %v", err)
	}

	m.Undo = &UndoInfo{}
	if _, err := m.UndoOnce(nil); !errors.Is(err, ErrUndoUnavailable) {
		t.Fatalf("Expected ErrUndoUnavailable for empty log, got %v", err)
	}
}
