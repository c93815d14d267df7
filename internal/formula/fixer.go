package formula

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	sumifMultPattern  = regexp.MustCompile(`(?i)^=SUMIF\s*\(\s*([^,]+),\s*([^,]+),\s*([^)]+\*[^)]+)\s*\)$`)
	fullColPattern    = regexp.MustCompile(`('[\w\s]+'!)?\b([A-Z]):([A-Z])\b`)
	partialColPattern = regexp.MustCompile(`('[\w\s]+'!)?\b([A-Z])(\d+):([A-Z])\b([^\d]|$)`)
	autoSpillPattern  = regexp.MustCompile(`(?i)^=\s*(UNIQUE|FILTER|SORT|SORTN|SEQUENCE|ARRAYFORMULA)\s*\(`)
)

// Fix rewrites the formula mistakes planners make most often and runs
// the validator over the result. lastRow bounds open-ended column
// references. The returned warnings describe every rewrite and any
// remaining syntax problem; the formula comes back unchanged when
// nothing applies.
func Fix(formula string, lastRow int) (string, []string) {
	var warnings []string
	fixed := formula

	// SUMIF with a multiplied sum range is invalid; SUMPRODUCT expresses it.
	if m := sumifMultPattern.FindStringSubmatch(fixed); m != nil {
		fixed = fmt.Sprintf("=SUMPRODUCT((%s=%s)*(%s))",
			strings.TrimSpace(m[1]), strings.TrimSpace(m[2]), strings.TrimSpace(m[3]))
		warnings = append(warnings, "CONVERTED: SUMIF with multiplication is invalid. Changed to SUMPRODUCT: "+fixed)
	}

	// Full column references A:A become A2:A{lastRow}.
	fixed = fullColPattern.ReplaceAllStringFunc(fixed, func(ref string) string {
		m := fullColPattern.FindStringSubmatch(ref)
		if m[2] != m[3] {
			return ref
		}
		warnings = append(warnings, fmt.Sprintf("Fixed full column %s:%s to %s2:%s%d", m[2], m[2], m[2], m[2], lastRow))
		return fmt.Sprintf("%s%s2:%s%d", m[1], m[2], m[2], lastRow)
	})

	// Open-ended ranges A2:A get the last row appended.
	fixed = partialColPattern.ReplaceAllStringFunc(fixed, func(ref string) string {
		m := partialColPattern.FindStringSubmatch(ref)
		if m[2] != m[4] {
			return ref
		}
		warnings = append(warnings, fmt.Sprintf("Fixed open-ended range %s%s:%s to %s%s:%s%d", m[2], m[3], m[2], m[2], m[3], m[2], lastRow))
		return fmt.Sprintf("%s%s%s:%s%d%s", m[1], m[2], m[3], m[2], lastRow, m[5])
	})

	for _, err := range Validate(fixed) {
		if isCritical(err) {
			warnings = append(warnings, "CRITICAL SYNTAX ERROR: "+err)
		} else {
			warnings = append(warnings, "SYNTAX: "+err)
		}
	}
	for _, s := range SuggestAlternatives(fixed) {
		warnings = append(warnings, "Suggestion: "+s)
	}
	return fixed, warnings
}

func isCritical(err string) bool {
	lower := strings.ToLower(err)
	for _, kw := range []string{"parenthesis", "unknown function", "empty formula", "must start"} {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// IsAutoSpill reports whether the formula expands on its own when
// entered in one cell. Filling such a formula down corrupts its output,
// so callers suppress fillDown for these.
func IsAutoSpill(formula string) bool {
	return autoSpillPattern.MatchString(formula)
}
