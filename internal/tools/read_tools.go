package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Read tools answer from the sheet context installed on the builder.
// They queue nothing; the planner uses them to ground its plan in the
// actual data before proposing mutations.

type GetHeadersTool struct {
	Builder *PlanBuilder
}

func (t *GetHeadersTool) Name() string { return "get_headers" }

func (t *GetHeadersTool) Description() string {
	return "List the column letters and header names of the active sheet. Call this first to learn the data layout."
}

func (t *GetHeadersTool) Parameters() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}

func (t *GetHeadersTool) Execute(ctx context.Context, input string) (string, error) {
	meta := t.Builder.Metadata()
	if meta == nil {
		return "Error: no sheet data available", nil
	}
	var lines []string
	for _, c := range meta.Columns {
		lines = append(lines, fmt.Sprintf("%s: %s (%s)", c.Letter, c.Header, c.Type))
	}
	if len(lines) == 0 {
		return "The sheet is empty", nil
	}
	lines = append(lines, fmt.Sprintf("Data rows: %d (rows 2-%d)", meta.DataRows, meta.LastRow))
	return strings.Join(lines, "\n"), nil
}

type ColumnStatsTool struct {
	Builder *PlanBuilder
}

func (t *ColumnStatsTool) Name() string { return "get_column_stats" }

func (t *ColumnStatsTool) Description() string {
	return "Get statistics for a column: header, type, unique count, and numeric min/max/avg/sum. Use the unique count to size UNIQUE-based summaries."
}

func (t *ColumnStatsTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"column": map[string]any{
				"type":        "string",
				"description": "Column letter, e.g. \"B\"",
			},
		},
		"required": []string{"column"},
	}
}

func (t *ColumnStatsTool) Execute(ctx context.Context, input string) (string, error) {
	var args struct {
		Column string `json:"column"`
	}
	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return "", fmt.Errorf("invalid input: %v", err)
	}

	meta := t.Builder.Metadata()
	if meta == nil {
		return "Error: no sheet data available", nil
	}
	letter := strings.ToUpper(strings.TrimSpace(args.Column))
	for _, c := range meta.Columns {
		if c.Letter != letter {
			continue
		}
		out := map[string]any{
			"header":      c.Header,
			"type":        c.Type,
			"uniqueCount": c.UniqueCount,
			"nullCount":   c.NullCount,
			"totalRows":   meta.DataRows,
		}
		if len(c.Categories) > 0 {
			out["uniqueValues"] = c.Categories
		}
		if c.Min != nil {
			out["min"], out["max"], out["avg"], out["sum"] = *c.Min, *c.Max, *c.Avg, *c.Sum
		}
		encoded, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return "", err
		}
		return string(encoded), nil
	}
	return fmt.Sprintf("Error: no column %s in the sheet", letter), nil
}

type SummaryRangeTool struct {
	Builder *PlanBuilder
}

func (t *SummaryRangeTool) Name() string { return "get_summary_range" }

func (t *SummaryRangeTool) Description() string {
	return "Get the row range a UNIQUE-based summary of a column will occupy, plus the lastRow to pass to auto_fill_down. Call this before filling formulas next to a UNIQUE column."
}

func (t *SummaryRangeTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"column": map[string]any{
				"type":        "string",
				"description": "The grouped column's letter in the source sheet",
			},
		},
		"required": []string{"column"},
	}
}

func (t *SummaryRangeTool) Execute(ctx context.Context, input string) (string, error) {
	var args struct {
		Column string `json:"column"`
	}
	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return "", fmt.Errorf("invalid input: %v", err)
	}

	meta := t.Builder.Metadata()
	if meta == nil {
		return "Error: no sheet data available", nil
	}
	letter := strings.ToUpper(strings.TrimSpace(args.Column))
	uniqueCount := 0
	for _, c := range meta.Columns {
		if c.Letter == letter {
			uniqueCount = c.UniqueCount
			break
		}
	}
	if uniqueCount == 0 {
		return fmt.Sprintf("Error: no column %s in the sheet", letter), nil
	}

	startRow := 2 // row 1 is headers
	endRow := startRow + uniqueCount - 1
	fillDownLastRow := 1 + uniqueCount
	out, err := json.Marshal(map[string]any{
		"startRow":        startRow,
		"endRow":          endRow,
		"uniqueCount":     uniqueCount,
		"fillDownLastRow": fillDownLastRow,
		"explanation": fmt.Sprintf("%d unique values -> summary rows %d to %d, auto_fill_down to row %d",
			uniqueCount, startRow, endRow, fillDownLastRow),
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

type ReadCellsTool struct {
	Builder *PlanBuilder
}

func (t *ReadCellsTool) Name() string { return "read_cells" }

func (t *ReadCellsTool) Description() string {
	return "Read the first rows of the active sheet as a table. Use this to inspect actual values."
}

func (t *ReadCellsTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"limit": map[string]any{
				"type":        "integer",
				"description": "Maximum data rows to return (default 20)",
			},
		},
	}
}

func (t *ReadCellsTool) Execute(ctx context.Context, input string) (string, error) {
	var args struct {
		Limit int `json:"limit"`
	}
	if input != "" {
		if err := json.Unmarshal([]byte(input), &args); err != nil {
			return "", fmt.Errorf("invalid input: %v", err)
		}
	}
	if args.Limit <= 0 {
		args.Limit = 20
	}

	snap := t.Builder.Snapshot()
	if snap == nil || len(snap.Values) == 0 {
		return "Error: no sheet data available", nil
	}

	rows := snap.Values
	if len(rows) > args.Limit+1 {
		rows = rows[:args.Limit+1] // header plus limit data rows
	}
	var sb strings.Builder
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, v := range row {
			if v != nil {
				cells[i] = fmt.Sprintf("%v", v)
			}
		}
		sb.WriteString(strings.Join(cells, " | "))
		sb.WriteString("\n")
	}
	if len(snap.Values) > len(rows) {
		fmt.Fprintf(&sb, "... %d more rows\n", len(snap.Values)-len(rows))
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

// RegisterReadTools wires the inspection tools onto the registry.
func RegisterReadTools(r *Registry, b *PlanBuilder) {
	r.Register(&GetHeadersTool{Builder: b})
	r.Register(&ColumnStatsTool{Builder: b})
	r.Register(&SummaryRangeTool{Builder: b})
	r.Register(&ReadCellsTool{Builder: b})
}
