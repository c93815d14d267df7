// Package formula validates and repairs spreadsheet formulas before
// they reach a live sheet: structural checks (parentheses, quotes,
// function names, argument counts) plus rewrites for the mistakes
// planners make most often.
package formula

import (
	"fmt"
	"regexp"
	"strings"
)

// argSpec bounds a function's argument count. Max -1 means unlimited.
type argSpec struct {
	Min int
	Max int
}

// knownFunctions is the accepted vocabulary with argument bounds.
var knownFunctions = map[string]argSpec{
	// Math
	"SUM": {1, -1}, "SUMIF": {2, 3}, "SUMIFS": {3, -1},
	"SUMPRODUCT": {1, -1}, "AVERAGE": {1, -1}, "AVERAGEIF": {2, 3},
	"AVERAGEIFS": {3, -1}, "COUNT": {1, -1}, "COUNTA": {1, -1},
	"COUNTBLANK": {1, 1}, "COUNTIF": {2, 2}, "COUNTIFS": {2, -1},
	"MAX": {1, -1}, "MAXIFS": {3, -1}, "MIN": {1, -1},
	"MINIFS": {3, -1}, "ABS": {1, 1}, "ROUND": {1, 2},
	"ROUNDUP": {2, 2}, "ROUNDDOWN": {2, 2}, "INT": {1, 1},
	"MOD": {2, 2}, "POWER": {2, 2}, "SQRT": {1, 1},
	"PRODUCT": {1, -1}, "MEDIAN": {1, -1}, "LARGE": {2, 2},
	"SMALL": {2, 2}, "RANK": {2, 3}, "PERCENTILE": {2, 2},
	"RAND": {0, 0}, "RANDBETWEEN": {2, 2},
	"CEILING": {1, 2}, "FLOOR": {1, 2}, "LOG": {1, 2},
	"LOG10": {1, 1}, "LN": {1, 1}, "EXP": {1, 1},
	"SIGN": {1, 1}, "TRUNC": {1, 2},

	// Lookup
	"VLOOKUP": {3, 4}, "HLOOKUP": {3, 4}, "INDEX": {2, 3},
	"MATCH": {2, 3}, "XLOOKUP": {3, 6}, "OFFSET": {3, 5},
	"INDIRECT": {1, 2}, "ROW": {0, 1}, "COLUMN": {0, 1},
	"ROWS": {1, 1}, "COLUMNS": {1, 1}, "CHOOSE": {2, -1},
	"ADDRESS": {2, 5},

	// Text
	"LEFT": {1, 2}, "RIGHT": {1, 2}, "MID": {3, 3},
	"LEN": {1, 1}, "TRIM": {1, 1}, "CLEAN": {1, 1},
	"UPPER": {1, 1}, "LOWER": {1, 1}, "PROPER": {1, 1},
	"SUBSTITUTE": {3, 4}, "REPLACE": {4, 4}, "FIND": {2, 3},
	"SEARCH": {2, 3}, "CONCATENATE": {1, -1}, "CONCAT": {1, -1},
	"TEXTJOIN": {3, -1}, "TEXT": {2, 2}, "VALUE": {1, 1},
	"REPT": {2, 2}, "EXACT": {2, 2}, "T": {1, 1},
	"CHAR": {1, 1}, "CODE": {1, 1}, "NUMBERVALUE": {1, 3},
	"SPLIT": {2, 4}, "JOIN": {2, -1},

	// Date
	"TODAY": {0, 0}, "NOW": {0, 0}, "DATE": {3, 3},
	"YEAR": {1, 1}, "MONTH": {1, 1}, "DAY": {1, 1},
	"HOUR": {1, 1}, "MINUTE": {1, 1}, "SECOND": {1, 1},
	"DATEVALUE": {1, 1}, "DATEDIF": {3, 3}, "EDATE": {2, 2},
	"EOMONTH": {2, 2}, "WEEKDAY": {1, 2}, "WEEKNUM": {1, 2},
	"NETWORKDAYS": {2, 3}, "WORKDAY": {2, 3},
	"TIME": {3, 3}, "TIMEVALUE": {1, 1}, "ISOWEEKNUM": {1, 1},
	"DAYS": {2, 2},

	// Logical
	"IF": {2, 3}, "IFS": {2, -1}, "AND": {1, -1},
	"OR": {1, -1}, "NOT": {1, 1}, "IFERROR": {2, 2},
	"IFNA": {2, 2}, "SWITCH": {3, -1}, "TRUE": {0, 0},
	"FALSE": {0, 0}, "XOR": {1, -1},

	// Array / dynamic
	"UNIQUE": {1, 3}, "FILTER": {2, 3}, "SORT": {1, 4},
	"SORTN": {1, -1}, "SEQUENCE": {1, 4}, "ARRAYFORMULA": {1, 1},
	"FLATTEN": {1, -1}, "TRANSPOSE": {1, 1},
	"IMPORTRANGE": {2, 2},
	"MAP":         {2, -1}, "LAMBDA": {2, -1}, "REDUCE": {3, 3},
	"BYROW": {2, 2}, "BYCOL": {2, 2}, "MAKEARRAY": {3, 3},
	"LET": {3, -1}, "SCAN": {3, 3}, "HSTACK": {1, -1},
	"VSTACK": {1, -1}, "TOROW": {1, 3}, "TOCOL": {1, 3},
	"WRAPCOLS": {2, 3}, "WRAPROWS": {2, 3}, "CHOOSEROWS": {2, -1},
	"CHOOSECOLS": {2, -1},

	// Statistical
	"STDEV": {1, -1}, "STDEVP": {1, -1}, "VAR": {1, -1},
	"VARP": {1, -1}, "CORREL": {2, 2},
	"FORECAST": {3, 3}, "TREND": {1, 4}, "GROWTH": {1, 4},
	"PERCENTRANK": {2, 3},

	// Financial
	"PMT": {3, 5}, "FV": {3, 5}, "PV": {3, 5}, "NPV": {2, -1},
	"IRR": {1, 2}, "RATE": {3, 6}, "NPER": {3, 5}, "SLN": {3, 3},
	"DDB": {4, 5}, "DB": {4, 5},

	// Database
	"DSUM": {3, 3}, "DCOUNT": {3, 3}, "DCOUNTA": {3, 3},
	"DGET": {3, 3}, "DAVERAGE": {3, 3}, "DMAX": {3, 3},
	"DMIN": {3, 3}, "DPRODUCT": {3, 3}, "DSTDEV": {3, 3},
	"DVAR": {3, 3},

	// Web / import
	"IMPORTHTML": {3, 3}, "IMPORTXML": {2, 2}, "IMPORTDATA": {1, 1},

	// Info
	"ISBLANK": {1, 1}, "ISERROR": {1, 1}, "ISNA": {1, 1},
	"ISNUMBER": {1, 1}, "ISTEXT": {1, 1}, "TYPE": {1, 1},
	"CELL": {1, 2}, "N": {1, 1},
	"ISLOGICAL": {1, 1}, "ISFORMULA": {1, 1}, "ISEVEN": {1, 1},
	"ISODD": {1, 1}, "ISERR": {1, 1}, "ERROR.TYPE": {1, 1},
	"ISREF": {1, 1}, "NA": {0, 0}, "SHEET": {0, 1}, "SHEETS": {0, 1},

	// Misc
	"HYPERLINK": {1, 2}, "IMAGE": {1, 4}, "SPARKLINE": {1, 2},
	"QUERY": {2, 3}, "REGEXMATCH": {2, 2}, "REGEXEXTRACT": {2, 2},
	"REGEXREPLACE": {3, 3},
}

var funcCallPattern = regexp.MustCompile(`(?i)([A-Z_][A-Z_0-9.]*)\s*\(`)

// Validate checks a formula for structural correctness: leading '=',
// balanced parentheses and quotes, known function names, and argument
// counts for top-level calls. Returns nil when the formula is sound.
func Validate(formula string) []string {
	var errs []string

	if formula == "" {
		return []string{"Empty formula"}
	}
	if !strings.HasPrefix(formula, "=") {
		return []string{"Formula must start with '='"}
	}
	body := formula[1:]
	if strings.TrimSpace(body) == "" {
		return []string{"Formula is empty after '='"}
	}

	errs = append(errs, checkBalance(body)...)
	// Quoted sheet names can contain anything, including parentheses
	// that would confuse the call scanner.
	errs = append(errs, checkFunctions(quotedSheetRef.ReplaceAllString(body, ""))...)
	return errs
}

var quotedSheetRef = regexp.MustCompile(`'[^']*'!`)

// checkBalance verifies parentheses and double quotes, skipping string
// literals and quoted sheet references like 'Sheet Name'!.
func checkBalance(body string) []string {
	var errs []string
	depth := 0
	inString := false
	quotes := 0
	runes := []rune(body)

	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		if inString {
			if ch == '"' {
				inString = false
				quotes++
			}
			continue
		}
		switch ch {
		case '\'':
			// A quoted sheet reference ends with '! — skip it whole.
			if end := sheetRefEnd(runes, i); end > 0 {
				i = end
			}
		case '"':
			inString = true
			quotes++
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				errs = append(errs, fmt.Sprintf("Unexpected closing parenthesis at position %d", i+2))
				depth = 0
			}
		}
	}
	if depth > 0 {
		errs = append(errs, fmt.Sprintf("Missing %d closing parenthesis(es)", depth))
	}
	if quotes%2 != 0 {
		errs = append(errs, "Unmatched double quote")
	}
	return errs
}

// sheetRefEnd returns the index of the '!' closing a 'Sheet Name'!
// reference starting at the opening quote, or -1.
func sheetRefEnd(runes []rune, start int) int {
	for i := start + 1; i < len(runes); i++ {
		if runes[i] == '\'' {
			if i+1 < len(runes) && runes[i+1] == '!' {
				return i + 1
			}
			return -1
		}
	}
	return -1
}

func checkFunctions(body string) []string {
	var errs []string
	for _, m := range funcCallPattern.FindAllStringSubmatchIndex(body, -1) {
		name := strings.ToUpper(body[m[2]:m[3]])
		spec, known := knownFunctions[name]
		if !known {
			errs = append(errs, "Unknown function: "+name)
			continue
		}

		args, ok := extractArgs(body, m[1])
		if !ok {
			continue // unbalanced, reported separately
		}
		n := countTopLevelArgs(args)
		if n < spec.Min {
			errs = append(errs, fmt.Sprintf("%s requires at least %d argument(s), got %d", name, spec.Min, n))
		}
		if spec.Max >= 0 && n > spec.Max {
			errs = append(errs, fmt.Sprintf("%s accepts at most %d argument(s), got %d", name, spec.Max, n))
		}
	}
	return errs
}

// extractArgs returns the text between a call's parentheses, starting
// just past the opening '('.
func extractArgs(body string, start int) (string, bool) {
	depth := 1
	inString := false
	for i := start; i < len(body); i++ {
		ch := body[i]
		if inString {
			if ch == '"' {
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return body[start:i], true
			}
		}
	}
	return "", false
}

func countTopLevelArgs(args string) int {
	if strings.TrimSpace(args) == "" {
		return 0
	}
	count := 1
	depth := 0
	inString := false
	for i := 0; i < len(args); i++ {
		ch := args[i]
		if inString {
			if ch == '"' {
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				count++
			}
		}
	}
	return count
}

// SuggestAlternatives flags legacy patterns with a modern replacement.
func SuggestAlternatives(formula string) []string {
	var out []string
	upper := strings.ToUpper(formula)

	if strings.Contains(upper, "VLOOKUP") {
		out = append(out, "Consider XLOOKUP instead of VLOOKUP: more flexible, can search any column, and doesn't need column index numbers.")
	}
	if nestedIfPattern.MatchString(upper) {
		out = append(out, "Nested IF detected. Consider IFS() for cleaner multiple-condition logic.")
	}
	if strings.Contains(upper, "CONCATENATE") {
		out = append(out, "CONCATENATE is legacy. Consider TEXTJOIN(delimiter, ignore_empty, range) or the & operator.")
	}
	if strings.Contains(upper, "INDEX") && strings.Contains(upper, "MATCH") {
		out = append(out, "INDEX+MATCH combo detected. XLOOKUP can often replace this with simpler syntax.")
	}
	if fullColPattern.MatchString(upper) {
		out = append(out, "Full column references (e.g., A:A) detected. Use bounded ranges for better performance.")
	}
	return out
}

var nestedIfPattern = regexp.MustCompile(`IF\s*\(\s*[^,]+,\s*[^,]+,\s*IF\s*\(`)
