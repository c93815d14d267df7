package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rahul/gridmind/internal/action"
	"github.com/rahul/gridmind/internal/formula"
	"github.com/rahul/gridmind/internal/plan"
)

// The tools in this file queue mutations onto the PlanBuilder. Each one
// returns a confirmation string the planner sees as the tool result; a
// message starting with "Error" tells it the call was rejected.

type CreateSheetTool struct {
	Builder *PlanBuilder
}

func (t *CreateSheetTool) Name() string { return "create_sheet" }

func (t *CreateSheetTool) Description() string {
	return "Create a new sheet with the given name. Use this when creating summary or output sheets."
}

func (t *CreateSheetTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name": map[string]any{
				"type":        "string",
				"description": "The name for the new sheet (e.g., \"Sales Summary\")",
			},
		},
		"required": []string{"name"},
	}
}

func (t *CreateSheetTool) Execute(ctx context.Context, input string) (string, error) {
	var args struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return "", fmt.Errorf("invalid input: %v", err)
	}
	name := strings.Trim(strings.TrimSpace(args.Name), `"'`)
	if name == "" {
		return "Error: sheet name is required", nil
	}

	queued := t.Builder.queue(plan.Step{
		Description: fmt.Sprintf("Create sheet '%s'", name),
		Action:      action.CreateSheet{Name: name},
	})
	if !queued {
		return fmt.Sprintf("Sheet '%s' is already planned; reusing it", name), nil
	}
	return fmt.Sprintf("Created sheet '%s'", name), nil
}

type SetValuesTool struct {
	Builder *PlanBuilder
}

func (t *SetValuesTool) Name() string { return "set_values" }

func (t *SetValuesTool) Description() string {
	return "Set multiple values in a range at once, e.g. header rows or static labels."
}

func (t *SetValuesTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"sheet": map[string]any{"type": "string"},
			"range": map[string]any{
				"type":        "string",
				"description": "Target range like \"A1:B1\"; its shape must match values",
			},
			"values": map[string]any{
				"type":        "array",
				"description": "Row-major matrix of values",
				"items":       map[string]any{"type": "array"},
			},
		},
		"required": []string{"sheet", "range", "values"},
	}
}

func (t *SetValuesTool) Execute(ctx context.Context, input string) (string, error) {
	var args action.SetValues
	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return "", fmt.Errorf("invalid input: %v", err)
	}
	if err := action.Validate(args); err != nil {
		return fmt.Sprintf("Error: %v", err), nil
	}

	t.Builder.queue(plan.Step{
		Description: fmt.Sprintf("Set values in %s!%s", args.Sheet, args.Range),
		Action:      args,
	})
	return fmt.Sprintf("Set values in %s!%s", args.Sheet, args.Range), nil
}

type SetFormulaTool struct {
	Builder *PlanBuilder
}

func (t *SetFormulaTool) Name() string { return "set_formula" }

func (t *SetFormulaTool) Description() string {
	return "Set a formula in a cell. Pass fillDown=true to copy it down the data rows; auto-expanding formulas (UNIQUE, FILTER, SORT) must not be filled down."
}

func (t *SetFormulaTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"sheet": map[string]any{"type": "string"},
			"cell":  map[string]any{"type": "string"},
			"formula": map[string]any{
				"type":        "string",
				"description": "The formula, starting with '=' (e.g., \"=SUMIF('Sheet1'!E2:E31, A2, 'Sheet1'!D2:D31)\")",
			},
			"fillDown": map[string]any{"type": "boolean"},
		},
		"required": []string{"sheet", "cell", "formula"},
	}
}

func (t *SetFormulaTool) Execute(ctx context.Context, input string) (string, error) {
	var args action.SetFormula
	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return "", fmt.Errorf("invalid input: %v", err)
	}
	if err := action.Validate(args); err != nil {
		return fmt.Sprintf("Error: %v", err), nil
	}

	fixed, warnings := formula.Fix(args.Formula, t.Builder.LastRow())
	args.Formula = fixed

	// Auto-spill formulas expand on their own; filling them down
	// produces overlapping ranges.
	if args.FillDown && formula.IsAutoSpill(fixed) {
		args.FillDown = false
		warnings = append(warnings, "BLOCKED fillDown=true for auto-spill formula. These formulas auto-expand.")
	}

	t.Builder.queue(plan.Step{
		Description: fmt.Sprintf("Set formula in %s!%s", args.Sheet, args.Cell),
		Action:      args,
		Formula:     fixed,
	})

	msg := fmt.Sprintf("Set %s!%s = %s", args.Sheet, args.Cell, fixed)
	if args.FillDown {
		msg += " (will fill down)"
	}
	if len(warnings) > 0 {
		msg += "\n\nFORMULA VALIDATION NOTES:\n- " + strings.Join(warnings, "\n- ")
	}
	return msg, nil
}

type AutoFillDownTool struct {
	Builder *PlanBuilder
}

func (t *AutoFillDownTool) Name() string { return "auto_fill_down" }

func (t *AutoFillDownTool) Description() string {
	return "Copy a formula from a source cell down to the given last row."
}

func (t *AutoFillDownTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"sheet":      map[string]any{"type": "string"},
			"sourceCell": map[string]any{"type": "string"},
			"lastRow":    map[string]any{"type": "integer"},
		},
		"required": []string{"sheet", "sourceCell", "lastRow"},
	}
}

func (t *AutoFillDownTool) Execute(ctx context.Context, input string) (string, error) {
	var args action.AutoFillDown
	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return "", fmt.Errorf("invalid input: %v", err)
	}
	if err := action.Validate(args); err != nil {
		return fmt.Sprintf("Error: %v", err), nil
	}

	t.Builder.queue(plan.Step{
		Description: fmt.Sprintf("Fill formula from %s!%s down to row %d", args.Sheet, args.SourceCell, args.LastRow),
		Action:      args,
	})
	return fmt.Sprintf("Filled formula from %s!%s down to row %d", args.Sheet, args.SourceCell, args.LastRow), nil
}

type FormatHeadersTool struct {
	Builder *PlanBuilder
}

func (t *FormatHeadersTool) Name() string { return "format_headers" }

func (t *FormatHeadersTool) Description() string {
	return "Format a range as headers (bold, blue background, white text). Use after setting header values."
}

func (t *FormatHeadersTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"sheet": map[string]any{"type": "string"},
			"range": map[string]any{"type": "string"},
		},
		"required": []string{"sheet", "range"},
	}
}

func (t *FormatHeadersTool) Execute(ctx context.Context, input string) (string, error) {
	var args struct {
		Sheet string `json:"sheet"`
		Range string `json:"range"`
	}
	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return "", fmt.Errorf("invalid input: %v", err)
	}

	a := action.FormatRange{
		Sheet:      args.Sheet,
		Range:      args.Range,
		Bold:       true,
		Background: "#4472C4",
		FontColor:  "#FFFFFF",
	}
	if err := action.Validate(a); err != nil {
		return fmt.Sprintf("Error: %v", err), nil
	}

	t.Builder.queue(plan.Step{
		Description: fmt.Sprintf("Format %s!%s as headers", args.Sheet, args.Range),
		Action:      a,
	})
	return fmt.Sprintf("Formatted %s!%s as headers", args.Sheet, args.Range), nil
}

type HighlightTool struct {
	Builder *PlanBuilder
}

func (t *HighlightTool) Name() string { return "highlight_range" }

func (t *HighlightTool) Description() string {
	return "Highlight cells with a background color. Default is yellow (#FFFF00)."
}

func (t *HighlightTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"range": map[string]any{"type": "string"},
			"color": map[string]any{
				"type":        "string",
				"description": "Hex color code, e.g. #FF0000 for red",
			},
		},
		"required": []string{"range"},
	}
}

func (t *HighlightTool) Execute(ctx context.Context, input string) (string, error) {
	var args action.Highlight
	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return "", fmt.Errorf("invalid input: %v", err)
	}
	if args.Color == "" {
		args.Color = "#FFFF00"
	}
	if err := action.Validate(args); err != nil {
		return fmt.Sprintf("Error: %v", err), nil
	}

	t.Builder.queue(plan.Step{
		Description: fmt.Sprintf("Highlight %s", args.Range),
		Action:      args,
	})
	return fmt.Sprintf("Highlighted %s with color %s", args.Range, args.Color), nil
}

type FilterTool struct {
	Builder *PlanBuilder
}

func (t *FilterTool) Name() string { return "filter_data" }

func (t *FilterTool) Description() string {
	return "Filter rows by a column. Criteria: \"=Male\", \"!=Inactive\", \">100\", \">=50\", \"<10\", \"<=0\"."
}

func (t *FilterTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"column":   map[string]any{"type": "string"},
			"criteria": map[string]any{"type": "string"},
		},
		"required": []string{"column", "criteria"},
	}
}

func (t *FilterTool) Execute(ctx context.Context, input string) (string, error) {
	var args action.Filter
	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return "", fmt.Errorf("invalid input: %v", err)
	}
	if err := action.Validate(args); err != nil {
		return fmt.Sprintf("Error: %v", err), nil
	}

	t.Builder.queue(plan.Step{
		Description: fmt.Sprintf("Filter column %s where %s", args.Column, args.Criteria),
		Action:      args,
	})
	return fmt.Sprintf("Filtered column %s where %s", args.Column, args.Criteria), nil
}

type SortTool struct {
	Builder *PlanBuilder
}

func (t *SortTool) Name() string { return "sort_data" }

func (t *SortTool) Description() string {
	return "Sort the sheet by a column. ascending=true for A-Z/0-9."
}

func (t *SortTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"column":    map[string]any{"type": "string"},
			"ascending": map[string]any{"type": "boolean"},
		},
		"required": []string{"column"},
	}
}

func (t *SortTool) Execute(ctx context.Context, input string) (string, error) {
	var args action.Sort
	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return "", fmt.Errorf("invalid input: %v", err)
	}
	if err := action.Validate(args); err != nil {
		return fmt.Sprintf("Error: %v", err), nil
	}

	direction := "descending"
	if args.Ascending {
		direction = "ascending"
	}
	t.Builder.queue(plan.Step{
		Description: fmt.Sprintf("Sort by column %s (%s)", args.Column, direction),
		Action:      args,
	})
	return fmt.Sprintf("Sorted by column %s (%s)", args.Column, direction), nil
}

type InsertColumnTool struct {
	Builder *PlanBuilder
}

func (t *InsertColumnTool) Name() string { return "insert_column" }

func (t *InsertColumnTool) Description() string {
	return "Insert a new column with a header after an existing column."
}

func (t *InsertColumnTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"after": map[string]any{
				"type":        "string",
				"description": "Column letter to insert after, e.g. \"C\"",
			},
			"header": map[string]any{"type": "string"},
		},
		"required": []string{"after", "header"},
	}
}

func (t *InsertColumnTool) Execute(ctx context.Context, input string) (string, error) {
	var args action.InsertColumn
	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return "", fmt.Errorf("invalid input: %v", err)
	}
	if err := action.Validate(args); err != nil {
		return fmt.Sprintf("Error: %v", err), nil
	}

	t.Builder.queue(plan.Step{
		Description: fmt.Sprintf("Insert column '%s' after %s", args.Header, args.After),
		Action:      args,
	})
	return fmt.Sprintf("Inserted column '%s' after %s", args.Header, args.After), nil
}

// RegisterPlanTools wires every mutation tool onto the registry.
func RegisterPlanTools(r *Registry, b *PlanBuilder) {
	r.Register(&CreateSheetTool{Builder: b})
	r.Register(&SetValuesTool{Builder: b})
	r.Register(&SetFormulaTool{Builder: b})
	r.Register(&AutoFillDownTool{Builder: b})
	r.Register(&FormatHeadersTool{Builder: b})
	r.Register(&HighlightTool{Builder: b})
	r.Register(&FilterTool{Builder: b})
	r.Register(&SortTool{Builder: b})
	r.Register(&InsertColumnTool{Builder: b})
}
