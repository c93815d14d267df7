package grid

import (
	"context"
	"strings"
	"testing"

	"github.com/rahul/gridmind/internal/action"
	"github.com/rahul/gridmind/internal/plan"
)

func seededDoc(t *testing.T) *Document {
	t.Helper()
	d := NewDocument("Sheet1")
	err := d.LoadRows("Sheet1", [][]any{
		{"Name", "Score", "Gender"},
		{"Asha", 91, "Female"},
		{"Ben", 74, "Male"},
		{"Chen", 88, "Male"},
		{"Dina", 65, "Female"},
	})
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func apply(t *testing.T, d *Document, a action.Action) string {
	t.Helper()
	result, err := d.ApplyAction(context.Background(), a)
	if err != nil {
		t.Fatalf("In-memory document must not return transport errors: %v", err)
	}
	return result
}

func TestCreateSheet(t *testing.T) {
	d := seededDoc(t)
	result := apply(t, d, action.CreateSheet{Name: "Summary"})
	if result != "Created sheet 'Summary'" {
		t.Errorf("Unexpected result: %q", result)
	}
	if got := d.SheetNames(); len(got) != 2 || got[1] != "Summary" {
		t.Errorf("Sheet order wrong: %v", got)
	}

	result = apply(t, d, action.CreateSheet{Name: "Summary"})
	if !strings.HasPrefix(result, "Error") || !strings.Contains(result, "already exists") {
		t.Errorf("Duplicate create should fail in-band, got %q", result)
	}
}

func TestSetValueAndReadBack(t *testing.T) {
	d := seededDoc(t)
	apply(t, d, action.SetValue{Sheet: "Sheet1", Cell: "E1", Value: "Grade"})

	out := apply(t, d, action.ReadRange{Sheet: "Sheet1", Range: "E1"})
	if out != "Grade" {
		t.Errorf("Expected written value back, got %q", out)
	}
}

func TestSetValuesShapeMismatch(t *testing.T) {
	d := seededDoc(t)
	result := apply(t, d, action.SetValues{
		Sheet: "Sheet1", Range: "A10:B11",
		Values: [][]any{{"only one row"}},
	})
	if !strings.HasPrefix(result, "Error") {
		t.Errorf("Shape mismatch should fail in-band, got %q", result)
	}
}

func TestMissingSheetIsInBandError(t *testing.T) {
	d := seededDoc(t)
	for _, a := range []action.Action{
		action.SetValue{Sheet: "Nope", Cell: "A1", Value: 1},
		action.SetValues{Sheet: "Nope", Range: "A1:A1", Values: [][]any{{1}}},
		action.SetFormula{Sheet: "Nope", Cell: "A1", Formula: "=1"},
		action.ReadRange{Sheet: "Nope", Range: "A1:B2"},
	} {
		result := apply(t, d, a)
		if !strings.Contains(result, "Error: sheet 'Nope' does not exist") {
			t.Errorf("%s: expected missing-sheet error, got %q", a.Kind(), result)
		}
	}
}

func TestAutoFillDownShiftsRows(t *testing.T) {
	d := seededDoc(t)
	apply(t, d, action.SetFormula{Sheet: "Sheet1", Cell: "D2", Formula: "=B2*2"})

	result := apply(t, d, action.AutoFillDown{Sheet: "Sheet1", SourceCell: "D2", LastRow: 5})
	if result != "Filled formula from Sheet1!D2 down to row 5" {
		t.Errorf("Unexpected result: %q", result)
	}

	out := apply(t, d, action.ReadRange{Sheet: "Sheet1", Range: "D3:D5"})
	want := "=B3*2\n=B4*2\n=B5*2"
	if out != want {
		t.Errorf("Expected shifted formulas %q, got %q", want, out)
	}
}

func TestAutoFillDownWithoutSourceFormula(t *testing.T) {
	d := seededDoc(t)
	result := apply(t, d, action.AutoFillDown{Sheet: "Sheet1", SourceCell: "D2", LastRow: 5})
	if !strings.Contains(result, "no formula in source cell") {
		t.Errorf("Expected source-formula error, got %q", result)
	}
}

func TestAutoFillDownKeepsAbsoluteRows(t *testing.T) {
	d := seededDoc(t)
	apply(t, d, action.SetFormula{Sheet: "Sheet1", Cell: "D2", Formula: "=B2/SUM(B$2:B$5)"})
	apply(t, d, action.AutoFillDown{Sheet: "Sheet1", SourceCell: "D2", LastRow: 3})

	out := apply(t, d, action.ReadRange{Sheet: "Sheet1", Range: "D3"})
	if out != "=B3/SUM(B$2:B$5)" {
		t.Errorf("Absolute rows must not shift, got %q", out)
	}
}

func TestFilterCountsMatches(t *testing.T) {
	d := seededDoc(t)
	result := apply(t, d, action.Filter{Column: "C", Criteria: "=Male"})
	if !strings.Contains(result, "2 of 4 rows match") {
		t.Errorf("Unexpected filter result: %q", result)
	}

	result = apply(t, d, action.Filter{Column: "B", Criteria: ">80"})
	if !strings.Contains(result, "2 of 4 rows match") {
		t.Errorf("Unexpected numeric filter result: %q", result)
	}
}

func TestFilterNumericCriteriaOnTextColumn(t *testing.T) {
	d := seededDoc(t)

	// Text cells are not numbers; no comparison operator may match them.
	for _, criteria := range []string{"<=5", "<5", ">5", ">=5"} {
		result := apply(t, d, action.Filter{Column: "A", Criteria: criteria})
		if !strings.Contains(result, "0 of 4 rows match") {
			t.Errorf("Criteria %q on a text column: %q", criteria, result)
		}
	}
}

func TestSortReordersDataRowsOnly(t *testing.T) {
	d := seededDoc(t)
	apply(t, d, action.Sort{Column: "B", Ascending: true})

	out := apply(t, d, action.ReadRange{Sheet: "Sheet1", Range: "A1:B5"})
	lines := strings.Split(out, "\n")
	if lines[0] != "Name | Score" {
		t.Errorf("Header row must stay in place, got %q", lines[0])
	}
	wantOrder := []string{"Dina", "Ben", "Chen", "Asha"}
	for i, name := range wantOrder {
		if !strings.HasPrefix(lines[i+1], name) {
			t.Errorf("Row %d: expected %s first, got %q", i+2, name, lines[i+1])
		}
	}
}

func TestInsertColumnShiftsRight(t *testing.T) {
	d := seededDoc(t)
	result := apply(t, d, action.InsertColumn{After: "A", Header: "Status"})
	if result != "Inserted column 'Status' after A" {
		t.Errorf("Unexpected result: %q", result)
	}

	out := apply(t, d, action.ReadRange{Sheet: "Sheet1", Range: "A1:C1"})
	if out != "Name | Status | Score" {
		t.Errorf("Expected shifted header row, got %q", out)
	}
}

func TestHighlightAndFormat(t *testing.T) {
	d := seededDoc(t)
	if result := apply(t, d, action.Highlight{Range: "A2:A5"}); !strings.Contains(result, "#FFFF00") {
		t.Errorf("Default highlight colour missing: %q", result)
	}
	if result := apply(t, d, action.FormatRange{Sheet: "Sheet1", Range: "A1:C1", Bold: true}); result != "Formatted Sheet1!A1:C1" {
		t.Errorf("Unexpected result: %q", result)
	}
}

func TestReadRangeEmpty(t *testing.T) {
	d := seededDoc(t)
	result := apply(t, d, action.ReadRange{Sheet: "Sheet1", Range: "H10:J12"})
	if !strings.Contains(result, "is empty") {
		t.Errorf("Expected empty-range notice, got %q", result)
	}
}

func TestApplyUndoDeletesAndClears(t *testing.T) {
	d := seededDoc(t)
	apply(t, d, action.CreateSheet{Name: "Summary"})
	apply(t, d, action.SetFormula{Sheet: "Summary", Cell: "A1", Formula: "=1"})
	apply(t, d, action.SetValues{Sheet: "Sheet1", Range: "E1:E2", Values: [][]any{{"x"}, {"y"}}})

	result, err := d.ApplyUndo(context.Background(), plan.UndoInfo{
		SheetsToDelete: []string{"Summary"},
		CellsToClear:   []plan.CellRange{{Sheet: "Sheet1", Range: "E1:E2"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if result != "Undo complete: deleted 1 sheet(s), cleared 1 range(s)" {
		t.Errorf("Unexpected result: %q", result)
	}
	if got := d.SheetNames(); len(got) != 1 || got[0] != "Sheet1" {
		t.Errorf("Created sheet should be gone: %v", got)
	}
	if out := apply(t, d, action.ReadRange{Sheet: "Sheet1", Range: "E1:E2"}); !strings.Contains(out, "is empty") {
		t.Errorf("Cleared range should read empty, got %q", out)
	}
}

func TestApplyUndoSkipsMissingSheets(t *testing.T) {
	d := seededDoc(t)
	result, err := d.ApplyUndo(context.Background(), plan.UndoInfo{
		SheetsToDelete: []string{"LongGone"},
		CellsToClear:   []plan.CellRange{{Sheet: "AlsoGone", Range: "A1:A2"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(result, "skipped 2 missing target(s)") {
		t.Errorf("Missing targets should be skipped, not fatal: %q", result)
	}
}

func TestUnknownCriteriaDefaultsToEquality(t *testing.T) {
	d := seededDoc(t)
	result := apply(t, d, action.Filter{Column: "A", Criteria: "Asha"})
	if !strings.Contains(result, "1 of 4 rows match") {
		t.Errorf("Bare criteria should match by equality, got %q", result)
	}
}
