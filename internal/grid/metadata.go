package grid

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// TableSnapshot is a rectangular copy of a sheet's occupied region,
// row 1 first. Formulas render as their text.
type TableSnapshot struct {
	Name   string
	Values [][]any
}

// SnapshotSheet copies a sheet's occupied rectangle for analysis.
func (d *Document) SnapshotSheet(name string) (TableSnapshot, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	sh, ok := d.sheets[name]
	if !ok {
		return TableSnapshot{}, fmt.Errorf("sheet '%s' does not exist", name)
	}
	lastRow, lastCol := sh.bounds()
	snap := TableSnapshot{Name: name, Values: make([][]any, lastRow)}
	for r := 1; r <= lastRow; r++ {
		row := make([]any, lastCol)
		for c := 1; c <= lastCol; c++ {
			if cl, ok := sh.lookup(c, r); ok {
				if cl.formula != "" {
					row[c-1] = cl.formula
				} else {
					row[c-1] = cl.value
				}
			}
		}
		snap.Values[r-1] = row
	}
	return snap, nil
}

// ColumnMetadata describes one column of a sheet after pre-processing.
type ColumnMetadata struct {
	Letter      string   `json:"letter"`
	Header      string   `json:"header"`
	Type        string   `json:"type"` // numeric, text, date, categorical, empty
	UniqueCount int      `json:"uniqueCount"`
	NullCount   int      `json:"nullCount"`
	Samples     []string `json:"samples,omitempty"`

	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
	Avg *float64 `json:"avg,omitempty"`
	Sum *float64 `json:"sum,omitempty"`

	Categories []string `json:"categories,omitempty"`
}

// SheetMetadata is the pre-processed shape of a sheet handed to the
// planner so it can reason about columns without reading raw cells.
type SheetMetadata struct {
	SheetName           string           `json:"sheetName"`
	TotalRows           int              `json:"totalRows"`
	DataRows            int              `json:"dataRows"`
	LastRow             int              `json:"lastRow"`
	TotalColumns        int              `json:"totalColumns"`
	Columns             []ColumnMetadata `json:"columns"`
	SuggestedGroupBy    []string         `json:"suggestedGroupBy"`
	SuggestedAggregate  []string         `json:"suggestedAggregate"`
	SuggestedDateColumn string           `json:"suggestedDateColumn,omitempty"`
}

var datePattern = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}/\d{2,4})`)

// Analyze derives column metadata from a snapshot. Row 1 is treated as
// the header row.
func Analyze(snap TableSnapshot) SheetMetadata {
	meta := SheetMetadata{
		SheetName:          snap.Name,
		TotalRows:          len(snap.Values),
		Columns:            []ColumnMetadata{},
		SuggestedGroupBy:   []string{},
		SuggestedAggregate: []string{},
	}
	if meta.TotalRows == 0 {
		return meta
	}
	meta.DataRows = meta.TotalRows - 1
	meta.LastRow = meta.TotalRows
	meta.TotalColumns = len(snap.Values[0])

	for c := 0; c < meta.TotalColumns; c++ {
		col := analyzeColumn(snap, c)
		meta.Columns = append(meta.Columns, col)
		switch col.Type {
		case "categorical":
			meta.SuggestedGroupBy = append(meta.SuggestedGroupBy, col.Letter)
		case "numeric":
			meta.SuggestedAggregate = append(meta.SuggestedAggregate, col.Letter)
		case "date":
			if meta.SuggestedDateColumn == "" {
				meta.SuggestedDateColumn = col.Letter
			}
		}
	}
	return meta
}

func analyzeColumn(snap TableSnapshot, c int) ColumnMetadata {
	col := ColumnMetadata{Letter: indexToCol(c + 1)}
	if h := snap.Values[0]; c < len(h) && h[c] != nil {
		col.Header = fmt.Sprintf("%v", h[c])
	}

	values := []string{}
	numbers := []float64{}
	dates := 0
	for r := 1; r < len(snap.Values); r++ {
		row := snap.Values[r]
		if c >= len(row) || row[c] == nil || fmt.Sprintf("%v", row[c]) == "" {
			col.NullCount++
			continue
		}
		text := fmt.Sprintf("%v", row[c])
		values = append(values, text)
		if f, err := strconv.ParseFloat(strings.TrimSpace(text), 64); err == nil {
			numbers = append(numbers, f)
		} else if datePattern.MatchString(text) {
			dates++
		}
	}

	uniq := map[string]bool{}
	for _, v := range values {
		uniq[v] = true
	}
	col.UniqueCount = len(uniq)
	if n := len(values); n > 3 {
		col.Samples = values[:3]
	} else {
		col.Samples = values
	}

	switch {
	case len(values) == 0:
		col.Type = "empty"
	case len(numbers) == len(values):
		col.Type = "numeric"
		col.Min, col.Max, col.Avg, col.Sum = numericStats(numbers)
	case dates == len(values):
		col.Type = "date"
	case col.UniqueCount <= 20 && float64(col.UniqueCount) < float64(len(values))*0.5:
		col.Type = "categorical"
		cats := make([]string, 0, len(uniq))
		for v := range uniq {
			cats = append(cats, v)
		}
		sort.Strings(cats)
		col.Categories = cats
	default:
		col.Type = "text"
	}
	return col
}

func numericStats(nums []float64) (min, max, avg, sum *float64) {
	lo, hi, total := nums[0], nums[0], 0.0
	for _, n := range nums {
		if n < lo {
			lo = n
		}
		if n > hi {
			hi = n
		}
		total += n
	}
	mean := total / float64(len(nums))
	return &lo, &hi, &mean, &total
}

// Summary renders the metadata as a compact block for the planner's
// context window.
func (m SheetMetadata) Summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Sheet '%s': %d data rows + 1 header (last row %d), %d columns\n",
		m.SheetName, m.DataRows, m.LastRow, m.TotalColumns)
	for _, c := range m.Columns {
		fmt.Fprintf(&sb, "  %s %q: %s", c.Letter, c.Header, c.Type)
		switch c.Type {
		case "numeric":
			if c.Min != nil && c.Max != nil && c.Sum != nil {
				fmt.Fprintf(&sb, " (min %g, max %g, sum %g)", *c.Min, *c.Max, *c.Sum)
			}
		case "categorical":
			fmt.Fprintf(&sb, " (%d categories: %s)", c.UniqueCount, strings.Join(c.Categories, ", "))
		default:
			fmt.Fprintf(&sb, " (%d unique)", c.UniqueCount)
		}
		if c.NullCount > 0 {
			fmt.Fprintf(&sb, ", %d empty", c.NullCount)
		}
		sb.WriteString("\n")
	}
	if len(m.SuggestedGroupBy) > 0 {
		fmt.Fprintf(&sb, "  group by: %s", strings.Join(m.SuggestedGroupBy, ", "))
		if len(m.SuggestedAggregate) > 0 {
			fmt.Fprintf(&sb, "; aggregate: %s", strings.Join(m.SuggestedAggregate, ", "))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
