package tools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rahul/gridmind/internal/grid"
)

func studentContext() (*grid.TableSnapshot, *grid.SheetMetadata) {
	snap := &grid.TableSnapshot{
		Name: "Sheet1",
		Values: [][]any{
			{"Name", "Score", "Major"},
			{"Asha", 91, "Physics"},
			{"Ben", 74, "History"},
			{"Chen", 88, "Physics"},
			{"Dina", 65, "History"},
			{"Eli", 70, "Physics"},
			{"Fay", 82, "History"},
		},
	}
	meta := grid.Analyze(*snap)
	return snap, &meta
}

func contextBuilder() *PlanBuilder {
	b := NewPlanBuilder()
	snap, meta := studentContext()
	b.SetContext(snap, meta)
	return b
}

func TestGetHeaders(t *testing.T) {
	b := contextBuilder()
	result, err := (&GetHeadersTool{Builder: b}).Execute(context.Background(), "{}")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"A: Name", "B: Score (numeric)", "C: Major (categorical)", "Data rows: 6 (rows 2-7)"} {
		if !strings.Contains(result, want) {
			t.Errorf("Headers output missing %q:\n%s", want, result)
		}
	}
}

func TestGetHeadersWithoutContext(t *testing.T) {
	result, err := (&GetHeadersTool{Builder: NewPlanBuilder()}).Execute(context.Background(), "{}")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(result, "Error") {
		t.Errorf("Missing context should be an in-band error, got %q", result)
	}
}

func TestColumnStats(t *testing.T) {
	b := contextBuilder()
	result, err := (&ColumnStatsTool{Builder: b}).Execute(context.Background(), `{"column": "b"}`)
	if err != nil {
		t.Fatal(err)
	}

	var stats map[string]any
	if err := json.Unmarshal([]byte(result), &stats); err != nil {
		t.Fatalf("Stats should be JSON: %v\n%s", err, result)
	}
	if stats["header"] != "Score" || stats["type"] != "numeric" {
		t.Errorf("Wrong column described: %v", stats)
	}
	if stats["min"].(float64) != 65 || stats["max"].(float64) != 91 {
		t.Errorf("Numeric stats wrong: %v", stats)
	}
}

func TestColumnStatsUnknownColumn(t *testing.T) {
	b := contextBuilder()
	result, _ := (&ColumnStatsTool{Builder: b}).Execute(context.Background(), `{"column": "Z"}`)
	if !strings.HasPrefix(result, "Error") {
		t.Errorf("Unknown column should error in-band, got %q", result)
	}
}

func TestSummaryRange(t *testing.T) {
	b := contextBuilder()
	result, err := (&SummaryRangeTool{Builder: b}).Execute(context.Background(), `{"column": "C"}`)
	if err != nil {
		t.Fatal(err)
	}

	var out struct {
		StartRow        int `json:"startRow"`
		EndRow          int `json:"endRow"`
		UniqueCount     int `json:"uniqueCount"`
		FillDownLastRow int `json:"fillDownLastRow"`
	}
	if err := json.Unmarshal([]byte(result), &out); err != nil {
		t.Fatal(err)
	}
	// Two unique majors: summary occupies rows 2-3, formulas fill to row 3.
	if out.UniqueCount != 2 || out.StartRow != 2 || out.EndRow != 3 || out.FillDownLastRow != 3 {
		t.Errorf("Wrong summary range: %+v", out)
	}
}

func TestReadCellsLimit(t *testing.T) {
	b := contextBuilder()
	result, err := (&ReadCellsTool{Builder: b}).Execute(context.Background(), `{"limit": 2}`)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(result, "Name | Score | Major") {
		t.Errorf("Header row should lead the table:\n%s", result)
	}
	if !strings.Contains(result, "... 4 more rows") {
		t.Errorf("Truncation notice missing:\n%s", result)
	}
}
