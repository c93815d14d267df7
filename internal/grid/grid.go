// Package grid holds an in-memory spreadsheet document implementing the
// engine's Applier and Undoer capabilities. It backs the demo gateways
// and the test suite; production deployments point the engine at the
// HTTP bridge instead.
package grid

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/rahul/gridmind/internal/action"
	"github.com/rahul/gridmind/internal/plan"
)

type cellFormat struct {
	bold       bool
	background string
	fontColor  string
}

type cell struct {
	value   any
	formula string
	format  *cellFormat
}

type sheet struct {
	name  string
	cells map[string]*cell
}

func newSheet(name string) *sheet {
	return &sheet{name: name, cells: make(map[string]*cell)}
}

func (s *sheet) at(col, row int) *cell {
	key := cellKey(col, row)
	c, ok := s.cells[key]
	if !ok {
		c = &cell{}
		s.cells[key] = c
	}
	return c
}

func (s *sheet) lookup(col, row int) (*cell, bool) {
	c, ok := s.cells[cellKey(col, row)]
	return c, ok
}

// bounds returns the last occupied row and column.
func (s *sheet) bounds() (lastRow, lastCol int) {
	for key := range s.cells {
		col, row, err := parseCell(key)
		if err != nil {
			continue
		}
		if row > lastRow {
			lastRow = row
		}
		if col > lastCol {
			lastCol = col
		}
	}
	return lastRow, lastCol
}

// Document is a live spreadsheet held in memory. The first sheet acts as
// the active sheet for column-addressed actions (filter, sort, highlight,
// insertColumn), mirroring how the sidebar operates on the sheet the user
// is looking at.
type Document struct {
	mu     sync.Mutex
	order  []string
	sheets map[string]*sheet
	active string
}

func NewDocument(sheetNames ...string) *Document {
	d := &Document{sheets: make(map[string]*sheet)}
	if len(sheetNames) == 0 {
		sheetNames = []string{"Sheet1"}
	}
	for _, name := range sheetNames {
		d.sheets[name] = newSheet(name)
		d.order = append(d.order, name)
	}
	d.active = sheetNames[0]
	return d
}

// LoadRows seeds a sheet with a values matrix, row 1 first.
func (d *Document) LoadRows(sheetName string, rows [][]any) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	sh, ok := d.sheets[sheetName]
	if !ok {
		return fmt.Errorf("sheet '%s' does not exist", sheetName)
	}
	for r, row := range rows {
		for c, v := range row {
			sh.at(c+1, r+1).value = v
		}
	}
	return nil
}

func (d *Document) SheetNames() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}

func errorf(format string, args ...any) string {
	return "Error: " + fmt.Sprintf(format, args...)
}

// ApplyAction executes one action against the document. In-band failures
// come back as "Error: ..." result strings per the executor contract; the
// error return is reserved for transport-level problems and is always nil
// for the in-memory document.
func (d *Document) ApplyAction(ctx context.Context, a action.Action) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch v := a.(type) {
	case action.CreateSheet:
		return d.createSheet(v), nil
	case action.SetValue:
		return d.setValue(v), nil
	case action.SetValues:
		return d.setValues(v), nil
	case action.SetFormula:
		return d.setFormula(v), nil
	case action.AutoFillDown:
		return d.autoFillDown(v), nil
	case action.InsertColumn:
		return d.insertColumn(v), nil
	case action.FormatRange:
		return d.formatRange(v), nil
	case action.Highlight:
		return d.highlight(v), nil
	case action.Filter:
		return d.filter(v), nil
	case action.Sort:
		return d.sortRows(v), nil
	case action.ReadRange:
		return d.readRange(v), nil
	}
	return errorf("unsupported action '%s'", a.Kind()), nil
}

func (d *Document) createSheet(a action.CreateSheet) string {
	if _, exists := d.sheets[a.Name]; exists {
		return errorf("sheet '%s' already exists", a.Name)
	}
	d.sheets[a.Name] = newSheet(a.Name)
	d.order = append(d.order, a.Name)
	return fmt.Sprintf("Created sheet '%s'", a.Name)
}

func (d *Document) setValue(a action.SetValue) string {
	sh, ok := d.sheets[a.Sheet]
	if !ok {
		return errorf("sheet '%s' does not exist", a.Sheet)
	}
	col, row, err := parseCell(a.Cell)
	if err != nil {
		return errorf("%v", err)
	}
	sh.at(col, row).value = a.Value
	return fmt.Sprintf("Set %s!%s = %v", a.Sheet, a.Cell, a.Value)
}

func (d *Document) setValues(a action.SetValues) string {
	sh, ok := d.sheets[a.Sheet]
	if !ok {
		return errorf("sheet '%s' does not exist", a.Sheet)
	}
	c1, r1, c2, r2, err := parseRange(a.Range)
	if err != nil {
		return errorf("%v", err)
	}
	if len(a.Values) != r2-r1+1 {
		return errorf("values have %d rows but range %s spans %d", len(a.Values), a.Range, r2-r1+1)
	}
	for r, rowVals := range a.Values {
		if len(rowVals) != c2-c1+1 {
			return errorf("row %d has %d values but range %s spans %d columns", r+1, len(rowVals), a.Range, c2-c1+1)
		}
		for c, v := range rowVals {
			sh.at(c1+c, r1+r).value = v
		}
	}
	return fmt.Sprintf("Set values in %s!%s", a.Sheet, a.Range)
}

func (d *Document) setFormula(a action.SetFormula) string {
	sh, ok := d.sheets[a.Sheet]
	if !ok {
		return errorf("sheet '%s' does not exist", a.Sheet)
	}
	col, row, err := parseCell(a.Cell)
	if err != nil {
		return errorf("%v", err)
	}
	sh.at(col, row).formula = a.Formula
	msg := fmt.Sprintf("Set %s!%s = %s", a.Sheet, a.Cell, a.Formula)
	if a.FillDown {
		msg += " (will fill down)"
	}
	return msg
}

func (d *Document) autoFillDown(a action.AutoFillDown) string {
	sh, ok := d.sheets[a.Sheet]
	if !ok {
		return errorf("sheet '%s' does not exist", a.Sheet)
	}
	col, row, err := parseCell(a.SourceCell)
	if err != nil {
		return errorf("%v", err)
	}
	src, ok := sh.lookup(col, row)
	if !ok || src.formula == "" {
		return errorf("no formula in source cell %s!%s", a.Sheet, a.SourceCell)
	}
	if a.LastRow <= row {
		return errorf("lastRow %d is not below source cell %s", a.LastRow, a.SourceCell)
	}
	for r := row + 1; r <= a.LastRow; r++ {
		sh.at(col, r).formula = shiftFormulaRows(src.formula, r-row)
	}
	return fmt.Sprintf("Filled formula from %s!%s down to row %d", a.Sheet, a.SourceCell, a.LastRow)
}

func (d *Document) insertColumn(a action.InsertColumn) string {
	sh := d.sheets[d.active]
	after := colToIndex(strings.ToUpper(a.After))
	lastRow, lastCol := sh.bounds()

	// Shift everything right of the insertion point one column over,
	// rightmost first.
	for c := lastCol; c > after; c-- {
		for r := 1; r <= lastRow; r++ {
			if cl, ok := sh.lookup(c, r); ok {
				sh.cells[cellKey(c+1, r)] = cl
				delete(sh.cells, cellKey(c, r))
			}
		}
	}
	sh.at(after+1, 1).value = a.Header
	return fmt.Sprintf("Inserted column '%s' after %s", a.Header, strings.ToUpper(a.After))
}

func (d *Document) formatRange(a action.FormatRange) string {
	sh, ok := d.sheets[a.Sheet]
	if !ok {
		return errorf("sheet '%s' does not exist", a.Sheet)
	}
	c1, r1, c2, r2, err := parseRange(a.Range)
	if err != nil {
		return errorf("%v", err)
	}
	for c := c1; c <= c2; c++ {
		for r := r1; r <= r2; r++ {
			sh.at(c, r).format = &cellFormat{bold: a.Bold, background: a.Background, fontColor: a.FontColor}
		}
	}
	return fmt.Sprintf("Formatted %s!%s", a.Sheet, a.Range)
}

func (d *Document) highlight(a action.Highlight) string {
	sh := d.sheets[d.active]
	c1, r1, c2, r2, err := parseRange(a.Range)
	if err != nil {
		return errorf("%v", err)
	}
	color := a.Color
	if color == "" {
		color = "#FFFF00"
	}
	for c := c1; c <= c2; c++ {
		for r := r1; r <= r2; r++ {
			cl := sh.at(c, r)
			if cl.format == nil {
				cl.format = &cellFormat{}
			}
			cl.format.background = color
		}
	}
	return fmt.Sprintf("Highlighted %s with %s", a.Range, color)
}

func (d *Document) filter(a action.Filter) string {
	sh := d.sheets[d.active]
	col := colToIndex(strings.ToUpper(a.Column))
	lastRow, _ := sh.bounds()

	matched, total := 0, 0
	for r := 2; r <= lastRow; r++ { // row 1 is the header
		cl, ok := sh.lookup(col, r)
		if !ok {
			continue
		}
		total++
		if matchesCriteria(cl.value, a.Criteria) {
			matched++
		}
	}
	return fmt.Sprintf("Filter applied to column %s: %d of %d rows match %s",
		strings.ToUpper(a.Column), matched, total, a.Criteria)
}

func (d *Document) sortRows(a action.Sort) string {
	sh := d.sheets[d.active]
	col := colToIndex(strings.ToUpper(a.Column))
	lastRow, lastCol := sh.bounds()
	if lastRow < 3 {
		return fmt.Sprintf("Sorted by column %s", strings.ToUpper(a.Column))
	}

	// Materialise the data rows, sort, write back.
	rows := make([][]*cell, 0, lastRow-1)
	for r := 2; r <= lastRow; r++ {
		row := make([]*cell, lastCol)
		for c := 1; c <= lastCol; c++ {
			if cl, ok := sh.lookup(c, r); ok {
				row[c-1] = cl
			}
			delete(sh.cells, cellKey(c, r))
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		less := compareCells(rows[i][col-1], rows[j][col-1])
		if a.Ascending {
			return less < 0
		}
		return less > 0
	})

	for i, row := range rows {
		for c, cl := range row {
			if cl != nil {
				sh.cells[cellKey(c+1, i+2)] = cl
			}
		}
	}

	dir := "descending"
	if a.Ascending {
		dir = "ascending"
	}
	return fmt.Sprintf("Sorted by column %s (%s)", strings.ToUpper(a.Column), dir)
}

func (d *Document) readRange(a action.ReadRange) string {
	sh, ok := d.sheets[a.Sheet]
	if !ok {
		return errorf("sheet '%s' does not exist", a.Sheet)
	}
	c1, r1, c2, r2, err := parseRange(a.Range)
	if err != nil {
		return errorf("%v", err)
	}
	var sb strings.Builder
	for r := r1; r <= r2; r++ {
		vals := make([]string, 0, c2-c1+1)
		for c := c1; c <= c2; c++ {
			vals = append(vals, renderCell(sh, c, r))
		}
		sb.WriteString(strings.Join(vals, " | "))
		sb.WriteString("\n")
	}
	out := strings.TrimRight(sb.String(), "\n")
	if strings.TrimSpace(strings.ReplaceAll(out, "|", "")) == "" {
		return fmt.Sprintf("Range %s!%s is empty", a.Sheet, a.Range)
	}
	return out
}

func renderCell(sh *sheet, col, row int) string {
	cl, ok := sh.lookup(col, row)
	if !ok {
		return ""
	}
	if cl.formula != "" {
		return cl.formula
	}
	if cl.value == nil {
		return ""
	}
	return fmt.Sprintf("%v", cl.value)
}

// ApplyUndo reverses a plan's recorded effects: delete the created
// sheets, then clear the written ranges. Sheets that no longer exist
// (renamed or already removed) are skipped rather than failing the whole
// reversal.
func (d *Document) ApplyUndo(ctx context.Context, u plan.UndoInfo) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	deleted, cleared, skipped := 0, 0, 0

	for _, name := range u.SheetsToDelete {
		if _, ok := d.sheets[name]; !ok {
			skipped++
			continue
		}
		delete(d.sheets, name)
		for i, n := range d.order {
			if n == name {
				d.order = append(d.order[:i], d.order[i+1:]...)
				break
			}
		}
		deleted++
	}

	for _, cr := range u.CellsToClear {
		sh, ok := d.sheets[cr.Sheet]
		if !ok {
			skipped++
			continue
		}
		c1, r1, c2, r2, err := parseRange(cr.Range)
		if err != nil {
			skipped++
			continue
		}
		for c := c1; c <= c2; c++ {
			for r := r1; r <= r2; r++ {
				if cl, ok := sh.lookup(c, r); ok {
					cl.value = nil
					cl.formula = ""
				}
			}
		}
		cleared++
	}

	msg := fmt.Sprintf("Undo complete: deleted %d sheet(s), cleared %d range(s)", deleted, cleared)
	if skipped > 0 {
		msg += fmt.Sprintf(", skipped %d missing target(s)", skipped)
	}
	return msg, nil
}

// matchesCriteria evaluates the planner's filter criteria dialect:
// "=X", "!=X" for text, ">n", ">=n", "<n", "<=n" for numbers.
func matchesCriteria(value any, criteria string) bool {
	text := ""
	if value != nil {
		text = fmt.Sprintf("%v", value)
	}
	switch {
	case strings.HasPrefix(criteria, ">="):
		return compareNumeric(text, criteria[2:]) >= 0
	case strings.HasPrefix(criteria, "<="):
		cmp := compareNumeric(text, criteria[2:])
		return cmp != -2 && cmp <= 0
	case strings.HasPrefix(criteria, "!="):
		return text != criteria[2:]
	case strings.HasPrefix(criteria, ">"):
		return compareNumeric(text, criteria[1:]) > 0
	case strings.HasPrefix(criteria, "<"):
		cmp := compareNumeric(text, criteria[1:])
		return cmp != -2 && cmp < 0
	case strings.HasPrefix(criteria, "="):
		return text == criteria[1:]
	}
	return text == criteria
}

// compareNumeric returns -1/0/1, or -2 when either side is not a number
// (which makes every comparison operator false).
func compareNumeric(a, b string) int {
	fa, errA := strconv.ParseFloat(strings.TrimSpace(a), 64)
	fb, errB := strconv.ParseFloat(strings.TrimSpace(b), 64)
	if errA != nil || errB != nil {
		return -2
	}
	switch {
	case fa < fb:
		return -1
	case fa > fb:
		return 1
	}
	return 0
}

func compareCells(a, b *cell) int {
	av, bv := "", ""
	if a != nil && a.value != nil {
		av = fmt.Sprintf("%v", a.value)
	}
	if b != nil && b.value != nil {
		bv = fmt.Sprintf("%v", b.value)
	}
	if n := compareNumeric(av, bv); n >= -1 {
		return n
	}
	return strings.Compare(av, bv)
}
