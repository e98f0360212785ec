package hostlist

import (
	"cmp"
	"slices"
)

// SortNumeric orders host names by alternating digit and non-digit
// runs, comparing digit runs by value, so n2 sorts before n10 and d01
// before n9.
func SortNumeric(hosts []string) {
	slices.SortFunc(hosts, compareNumeric)
}

func compareNumeric(a, b string) int {
	for a != "" && b != "" {
		runA, restA := takeRun(a)
		runB, restB := takeRun(b)
		if isDigits(runA) && isDigits(runB) {
			// Compare by value without parsing: strip leading zeros,
			// then a shorter run is a smaller number.
			vA := trimLeadingZeros(runA)
			vB := trimLeadingZeros(runB)
			if len(vA) != len(vB) {
				return cmp.Compare(len(vA), len(vB))
			}
			if vA != vB {
				return cmp.Compare(vA, vB)
			}
			// Same value, e.g. 01 vs 1. Fall back to the literals so
			// the order is deterministic.
			if runA != runB {
				return cmp.Compare(runA, runB)
			}
		} else if runA != runB {
			return cmp.Compare(runA, runB)
		}
		a, b = restA, restB
	}
	return cmp.Compare(len(a), len(b))
}

// takeRun splits off the leading run of digits or non-digits.
func takeRun(s string) (string, string) {
	digits := isDigit(s[0])
	for i := 1; i < len(s); i++ {
		if isDigit(s[i]) != digits {
			return s[:i], s[i:]
		}
	}
	return s, ""
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isDigits(s string) bool {
	return s != "" && isDigit(s[0])
}

func trimLeadingZeros(s string) string {
	i := 0
	for i < len(s)-1 && s[i] == '0' {
		i++
	}
	return s[i:]
}
