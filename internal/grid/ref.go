package grid

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var cellPattern = regexp.MustCompile(`^\$?([A-Z]{1,3})\$?([0-9]+)$`)

// colToIndex converts a column letter ("A".."ZZZ") to its 1-based index.
func colToIndex(col string) int {
	n := 0
	for _, ch := range col {
		n = n*26 + int(ch-'A') + 1
	}
	return n
}

// indexToCol converts a 1-based column index back to letters.
func indexToCol(n int) string {
	var sb strings.Builder
	for n > 0 {
		n--
		sb.WriteByte(byte('A' + n%26))
		n /= 26
	}
	// Reverse
	s := []byte(sb.String())
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
	return string(s)
}

func parseCell(ref string) (col, row int, err error) {
	m := cellPattern.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(ref)))
	if m == nil {
		return 0, 0, fmt.Errorf("invalid cell reference '%s'", ref)
	}
	row, err = strconv.Atoi(m[2])
	if err != nil || row < 1 {
		return 0, 0, fmt.Errorf("invalid cell reference '%s'", ref)
	}
	return colToIndex(m[1]), row, nil
}

// parseRange parses "A1:B3" or a single cell "C1" into 1-based bounds.
func parseRange(ref string) (c1, r1, c2, r2 int, err error) {
	parts := strings.SplitN(ref, ":", 2)
	c1, r1, err = parseCell(parts[0])
	if err != nil {
		return 0, 0, 0, 0, fmt.Errorf("invalid range '%s'", ref)
	}
	if len(parts) == 1 {
		return c1, r1, c1, r1, nil
	}
	c2, r2, err = parseCell(parts[1])
	if err != nil {
		return 0, 0, 0, 0, fmt.Errorf("invalid range '%s'", ref)
	}
	if c2 < c1 || r2 < r1 {
		return 0, 0, 0, 0, fmt.Errorf("invalid range '%s': end before start", ref)
	}
	return c1, r1, c2, r2, nil
}

func cellKey(col, row int) string {
	return indexToCol(col) + strconv.Itoa(row)
}

var relRefPattern = regexp.MustCompile(`(\$?)([A-Z]{1,3})(\$?)([0-9]+)`)

// shiftFormulaRows rewrites relative row references in a formula by delta,
// the way a spreadsheet adjusts a formula copied downward. Absolute rows
// ($1) are left alone.
func shiftFormulaRows(formula string, delta int) string {
	return relRefPattern.ReplaceAllStringFunc(formula, func(ref string) string {
		m := relRefPattern.FindStringSubmatch(ref)
		if m[3] == "$" {
			return ref
		}
		row, err := strconv.Atoi(m[4])
		if err != nil {
			return ref
		}
		return m[1] + m[2] + strconv.Itoa(row+delta)
	})
}
