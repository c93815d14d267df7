package grid

import (
	"strings"
	"testing"
)

func sampleSnapshot() TableSnapshot {
	return TableSnapshot{
		Name: "Sheet1",
		Values: [][]any{
			{"Name", "Score", "Gender", "Joined", "Notes"},
			{"Asha", 91, "Female", "2024-01-15", "team lead"},
			{"Ben", 74, "Male", "2024-02-03", nil},
			{"Chen", 88, "Male", "2024-03-21", "remote"},
			{"Dina", 65, "Female", "2024-04-02", "new hire"},
			{"Eli", 82, "Male", "2024-05-19", "remote"},
		},
	}
}

func TestAnalyzeColumnTypes(t *testing.T) {
	meta := Analyze(sampleSnapshot())

	if meta.DataRows != 5 || meta.LastRow != 6 || meta.TotalColumns != 5 {
		t.Fatalf("Unexpected shape: %+v", meta)
	}

	want := map[string]string{
		"A": "text",
		"B": "numeric",
		"C": "categorical",
		"D": "date",
		"E": "text",
	}
	for _, c := range meta.Columns {
		if c.Type != want[c.Letter] {
			t.Errorf("Column %s (%s): expected %s, got %s", c.Letter, c.Header, want[c.Letter], c.Type)
		}
	}
}

func TestAnalyzeNumericStats(t *testing.T) {
	meta := Analyze(sampleSnapshot())
	score := meta.Columns[1]

	if score.Min == nil || *score.Min != 65 {
		t.Errorf("Expected min 65, got %v", score.Min)
	}
	if score.Max == nil || *score.Max != 91 {
		t.Errorf("Expected max 91, got %v", score.Max)
	}
	if score.Sum == nil || *score.Sum != 400 {
		t.Errorf("Expected sum 400, got %v", score.Sum)
	}
	if score.Avg == nil || *score.Avg != 80 {
		t.Errorf("Expected avg 80, got %v", score.Avg)
	}
}

func TestAnalyzeCategoricalAndNulls(t *testing.T) {
	meta := Analyze(sampleSnapshot())

	gender := meta.Columns[2]
	if gender.UniqueCount != 2 {
		t.Errorf("Expected 2 unique genders, got %d", gender.UniqueCount)
	}
	if len(gender.Categories) != 2 || gender.Categories[0] != "Female" {
		t.Errorf("Expected sorted categories, got %v", gender.Categories)
	}

	notes := meta.Columns[4]
	if notes.NullCount != 1 {
		t.Errorf("Expected 1 empty note, got %d", notes.NullCount)
	}
}

func TestAnalyzeSuggestions(t *testing.T) {
	meta := Analyze(sampleSnapshot())

	if len(meta.SuggestedGroupBy) != 1 || meta.SuggestedGroupBy[0] != "C" {
		t.Errorf("Expected group-by suggestion [C], got %v", meta.SuggestedGroupBy)
	}
	if len(meta.SuggestedAggregate) != 1 || meta.SuggestedAggregate[0] != "B" {
		t.Errorf("Expected aggregate suggestion [B], got %v", meta.SuggestedAggregate)
	}
	if meta.SuggestedDateColumn != "D" {
		t.Errorf("Expected date column D, got %q", meta.SuggestedDateColumn)
	}
}

func TestAnalyzeCategoricalBoundary(t *testing.T) {
	// The categorical rule is strict: uniqueCount must be under half the
	// values. Two unique values over four rows sits exactly on the
	// boundary and stays text; over five rows it tips categorical.
	four := Analyze(TableSnapshot{Name: "S", Values: [][]any{
		{"Gender"}, {"Female"}, {"Male"}, {"Male"}, {"Female"},
	}})
	if got := four.Columns[0].Type; got != "text" {
		t.Errorf("2 unique of 4: expected text, got %s", got)
	}

	five := Analyze(TableSnapshot{Name: "S", Values: [][]any{
		{"Gender"}, {"Female"}, {"Male"}, {"Male"}, {"Female"}, {"Male"},
	}})
	if got := five.Columns[0].Type; got != "categorical" {
		t.Errorf("2 unique of 5: expected categorical, got %s", got)
	}
}

func TestAnalyzeEmptySnapshot(t *testing.T) {
	meta := Analyze(TableSnapshot{Name: "Blank"})
	if meta.TotalRows != 0 || len(meta.Columns) != 0 {
		t.Errorf("Empty snapshot should yield empty metadata: %+v", meta)
	}
}

func TestSummaryRendersColumns(t *testing.T) {
	summary := Analyze(sampleSnapshot()).Summary()

	for _, want := range []string{
		"Sheet 'Sheet1': 5 data rows + 1 header (last row 6), 5 columns",
		`B "Score": numeric`,
		`C "Gender": categorical (2 categories: Female, Male)`,
		"group by: C; aggregate: B",
	} {
		if !strings.Contains(summary, want) {
			t.Errorf("Summary missing %q:\n%s", want, summary)
		}
	}
}
