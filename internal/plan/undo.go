package plan

// CellRange names one cleared location of a reversal: a sheet plus the
// range reference that was written into it.
type CellRange struct {
	Sheet string `json:"sheet"`
	Range string `json:"range"`
}

// UndoInfo is the minimal reversal log for one executed plan. Deleting a
// sheet already reverses everything written into it, so a sheet named in
// SheetsToDelete never appears as the sheet of any CellsToClear entry.
type UndoInfo struct {
	SheetsToDelete []string    `json:"sheetsToDelete"`
	CellsToClear   []CellRange `json:"cellsToClear"`
}

// Empty reports whether the log records no reversible effect.
func (u UndoInfo) Empty() bool {
	return len(u.SheetsToDelete) == 0 && len(u.CellsToClear) == 0
}
