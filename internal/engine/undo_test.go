package engine

import (
	"testing"

	"github.com/rahul/gridmind/internal/action"
	"github.com/rahul/gridmind/internal/plan"
)

func doneStep(index int, a action.Action) plan.Step {
	return plan.Step{Index: index, Action: a, Status: plan.StatusDone}
}

func TestBuildUndoInfoCreatedSheetSubsumesWrites(t *testing.T) {
	// createSheet then setFormula into it: deleting the sheet reverses
	// the write, so only the deletion is recorded.
	steps := []plan.Step{
		doneStep(1, action.CreateSheet{Name: "Summary"}),
		doneStep(2, action.SetFormula{Sheet: "Summary", Cell: "B2", Formula: "=SUM(A1:A10)"}),
	}
	undo := BuildUndoInfo(steps)

	if len(undo.SheetsToDelete) != 1 || undo.SheetsToDelete[0] != "Summary" {
		t.Errorf("Expected sheetsToDelete=[Summary], got %v", undo.SheetsToDelete)
	}
	if len(undo.CellsToClear) != 0 {
		t.Errorf("Write into created sheet must be subsumed, got %v", undo.CellsToClear)
	}
}

func TestBuildUndoInfoWritesToExistingSheet(t *testing.T) {
	steps := []plan.Step{
		doneStep(1, action.SetValues{Sheet: "Sheet1", Range: "A1:B3", Values: [][]any{{1, 2}, {3, 4}, {5, 6}}}),
		doneStep(2, action.SetFormula{Sheet: "Sheet1", Cell: "C1", Formula: "=A1+B1"}),
	}
	undo := BuildUndoInfo(steps)

	if len(undo.SheetsToDelete) != 0 {
		t.Errorf("No sheet was created, got %v", undo.SheetsToDelete)
	}
	want := []plan.CellRange{
		{Sheet: "Sheet1", Range: "A1:B3"},
		{Sheet: "Sheet1", Range: "C1"},
	}
	if len(undo.CellsToClear) != len(want) {
		t.Fatalf("Expected %d entries, got %v", len(want), undo.CellsToClear)
	}
	for i, w := range want {
		if undo.CellsToClear[i] != w {
			t.Errorf("Entry %d: expected %v, got %v", i, w, undo.CellsToClear[i])
		}
	}
}

func TestBuildUndoInfoSkipsNonDoneSteps(t *testing.T) {
	steps := []plan.Step{
		doneStep(1, action.CreateSheet{Name: "Summary"}),
		{Index: 2, Action: action.SetValues{Sheet: "Sheet1", Range: "A1:A5", Values: [][]any{{1}}}, Status: plan.StatusError},
		{Index: 3, Action: action.SetFormula{Sheet: "Sheet1", Cell: "B1", Formula: "=1"}, Status: plan.StatusPending},
	}
	undo := BuildUndoInfo(steps)

	if len(undo.SheetsToDelete) != 1 {
		t.Errorf("Expected the done createSheet only, got %v", undo.SheetsToDelete)
	}
	if len(undo.CellsToClear) != 0 {
		t.Errorf("Errored and pending steps must contribute nothing, got %v", undo.CellsToClear)
	}
}

func TestBuildUndoInfoNonMutatingPlanIsEmpty(t *testing.T) {
	steps := []plan.Step{
		doneStep(1, action.ReadRange{Sheet: "Sheet1", Range: "A1:C10"}),
		doneStep(2, action.Sort{Column: "A", Ascending: true}),
		doneStep(3, action.Filter{Column: "C", Criteria: "=Male"}),
		doneStep(4, action.Highlight{Range: "A2:A10", Color: "#FFFF00"}),
	}
	undo := BuildUndoInfo(steps)
	if !undo.Empty() {
		t.Errorf("Non-mutating plan should yield an empty log, got %+v", undo)
	}
}

func TestBuildUndoInfoUntrackedMutations(t *testing.T) {
	// formatRange and insertColumn mutate the document but the
	// vocabulary cannot express their reversal; they are deliberately
	// left out of the log.
	steps := []plan.Step{
		doneStep(1, action.FormatRange{Sheet: "Sheet1", Range: "A1:B1", Bold: true}),
		doneStep(2, action.InsertColumn{After: "C", Header: "Status"}),
	}
	if undo := BuildUndoInfo(steps); !undo.Empty() {
		t.Errorf("Untracked mutations should contribute nothing, got %+v", undo)
	}
}

func TestBuildUndoInfoAutoFillRange(t *testing.T) {
	steps := []plan.Step{
		doneStep(1, action.AutoFillDown{Sheet: "Sheet1", SourceCell: "B2", LastRow: 10}),
	}
	undo := BuildUndoInfo(steps)
	if len(undo.CellsToClear) != 1 {
		t.Fatalf("Expected one entry, got %v", undo.CellsToClear)
	}
	if undo.CellsToClear[0] != (plan.CellRange{Sheet: "Sheet1", Range: "B3:B10"}) {
		t.Errorf("Expected fill range B3:B10, got %v", undo.CellsToClear[0])
	}
}

func TestBuildUndoInfoDisjointInvariant(t *testing.T) {
	// Interleave creates and writes across several sheets; the deletion
	// set and the sheet components of the clear list must stay disjoint.
	steps := []plan.Step{
		doneStep(1, action.SetValues{Sheet: "Sheet1", Range: "A1:A2", Values: [][]any{{1}, {2}}}),
		doneStep(2, action.CreateSheet{Name: "Summary"}),
		doneStep(3, action.SetFormula{Sheet: "Summary", Cell: "A2", Formula: "=UNIQUE('Sheet1'!E2:E31)"}),
		doneStep(4, action.SetFormula{Sheet: "Sheet1", Cell: "D1", Formula: "=SUM(A:A)"}),
		doneStep(5, action.CreateSheet{Name: "Charts"}),
		doneStep(6, action.AutoFillDown{Sheet: "Summary", SourceCell: "B2", LastRow: 6}),
	}
	undo := BuildUndoInfo(steps)

	deleted := make(map[string]bool)
	for _, name := range undo.SheetsToDelete {
		deleted[name] = true
	}
	for _, cr := range undo.CellsToClear {
		if deleted[cr.Sheet] {
			t.Errorf("Sheet %q appears both in sheetsToDelete and cellsToClear", cr.Sheet)
		}
	}
	if len(undo.SheetsToDelete) != 2 {
		t.Errorf("Expected 2 created sheets, got %v", undo.SheetsToDelete)
	}
	if len(undo.CellsToClear) != 2 {
		t.Errorf("Expected 2 clears on Sheet1, got %v", undo.CellsToClear)
	}
}

func TestBuildUndoInfoEmptyInput(t *testing.T) {
	undo := BuildUndoInfo(nil)
	if !undo.Empty() {
		t.Errorf("Zero-step plan should yield empty log, got %+v", undo)
	}
	if undo.SheetsToDelete == nil || undo.CellsToClear == nil {
		t.Error("Log slices should be initialised, not nil")
	}
}
