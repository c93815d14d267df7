package formula

import (
	"strings"
	"testing"
)

func TestFixSumifMultiplicationBecomesSumproduct(t *testing.T) {
	fixed, warnings := Fix("=SUMIF(E2:E31, A2, C2:C31*D2:D31)", 31)

	if fixed != "=SUMPRODUCT((E2:E31=A2)*(C2:C31*D2:D31))" {
		t.Errorf("Unexpected rewrite: %q", fixed)
	}
	if len(warnings) == 0 || !strings.Contains(warnings[0], "CONVERTED") {
		t.Errorf("Expected a CONVERTED warning, got %v", warnings)
	}
}

func TestFixFullColumnReferences(t *testing.T) {
	fixed, warnings := Fix("=SUMIF('Sheet1'!A:A, A2, 'Sheet1'!C:C)", 31)

	if fixed != "=SUMIF('Sheet1'!A2:A31, A2, 'Sheet1'!C2:C31)" {
		t.Errorf("Unexpected rewrite: %q", fixed)
	}
	found := 0
	for _, w := range warnings {
		if strings.Contains(w, "Fixed full column") {
			found++
		}
	}
	if found != 2 {
		t.Errorf("Expected 2 full-column warnings, got %v", warnings)
	}
}

func TestFixOpenEndedRanges(t *testing.T) {
	fixed, _ := Fix("=SUM(B2:B)", 45)
	if fixed != "=SUM(B2:B45)" {
		t.Errorf("Unexpected rewrite: %q", fixed)
	}
}

func TestFixLeavesMixedColumnsAlone(t *testing.T) {
	// A:C is a multi-column range, not an unbounded single column.
	fixed, _ := Fix("=VLOOKUP(A2, Data!A:C, 3, FALSE)", 31)
	if !strings.Contains(fixed, "A:C") {
		t.Errorf("Multi-column range must not be rewritten: %q", fixed)
	}
}

func TestFixCleanFormulaUnchanged(t *testing.T) {
	fixed, warnings := Fix("=SUM(A2:A31)", 31)
	if fixed != "=SUM(A2:A31)" {
		t.Errorf("Clean formula changed: %q", fixed)
	}
	if len(warnings) != 0 {
		t.Errorf("Clean formula should warn nothing, got %v", warnings)
	}
}

func TestFixFlagsCriticalSyntax(t *testing.T) {
	_, warnings := Fix("=SUMMARIZE(A2:A31", 31)

	var critical []string
	for _, w := range warnings {
		if strings.HasPrefix(w, "CRITICAL SYNTAX ERROR") {
			critical = append(critical, w)
		}
	}
	if len(critical) != 2 {
		t.Errorf("Expected unknown-function and parenthesis criticals, got %v", warnings)
	}
}

func TestIsAutoSpill(t *testing.T) {
	for _, f := range []string{
		"=UNIQUE('Sheet1'!E2:E31)",
		"=FILTER(A2:C31, B2:B31>50)",
		"=SORT(A2:A31)",
		"=sequence(10)",
		"=ARRAYFORMULA(A2:A31*2)",
	} {
		if !IsAutoSpill(f) {
			t.Errorf("%s should auto-spill", f)
		}
	}
	for _, f := range []string{
		"=SUM(A2:A31)",
		"=SUMIF(E2:E31, A2, D2:D31)",
		"=IF(A2>1, UNIQUE(B2:B31), \"\")",
	} {
		if IsAutoSpill(f) {
			t.Errorf("%s should not auto-spill", f)
		}
	}
}
