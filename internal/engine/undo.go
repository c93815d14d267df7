package engine

import (
	"github.com/rahul/gridmind/internal/action"
	"github.com/rahul/gridmind/internal/plan"
)

// BuildUndoInfo derives the reversal log from a finished run in a single
// left-to-right pass over the steps that reached done. Pending and
// errored steps had no effect (or only a failed attempt) and contribute
// nothing.
//
// A createSheet records the whole sheet for deletion; later writes into
// that sheet are subsumed, since deleting it reverses them wholesale.
// Writes into pre-existing sheets record (sheet, range) pairs in
// execution order. Presentation and structural actions the vocabulary
// cannot express a reversal for (filter, sort, highlight, formatRange,
// insertColumn, readRange) are deliberately untracked.
//
// Correctness leans on the plan creating a sheet before writing into it;
// execution order is trusted, never verified or reordered.
func BuildUndoInfo(steps []plan.Step) plan.UndoInfo {
	undo := plan.UndoInfo{
		SheetsToDelete: []string{},
		CellsToClear:   []plan.CellRange{},
	}
	created := make(map[string]bool)

	for _, step := range steps {
		if step.Status != plan.StatusDone {
			continue
		}
		switch a := step.Action.(type) {
		case action.CreateSheet:
			if !created[a.Name] {
				created[a.Name] = true
				undo.SheetsToDelete = append(undo.SheetsToDelete, a.Name)
			}
		case action.SetFormula:
			if !created[a.Sheet] {
				undo.CellsToClear = append(undo.CellsToClear, plan.CellRange{Sheet: a.Sheet, Range: a.Cell})
			}
		case action.SetValue:
			if !created[a.Sheet] {
				undo.CellsToClear = append(undo.CellsToClear, plan.CellRange{Sheet: a.Sheet, Range: a.Cell})
			}
		case action.SetValues:
			if !created[a.Sheet] {
				undo.CellsToClear = append(undo.CellsToClear, plan.CellRange{Sheet: a.Sheet, Range: a.Range})
			}
		case action.AutoFillDown:
			if created[a.Sheet] {
				continue
			}
			if rng, ok := a.FillRange(); ok {
				undo.CellsToClear = append(undo.CellsToClear, plan.CellRange{Sheet: a.Sheet, Range: rng})
			}
		}
	}
	return undo
}
