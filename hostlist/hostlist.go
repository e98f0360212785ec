// Package hostlist decodes the compact list notations SLURM uses to
// describe groups of nodes and per-node counts.
//
// A hostlist expression names hosts with optional bracketed numeric
// ranges, e.g. "n[9-11],d[01-02]" for n9, n10, n11, d01, d02. A part may
// carry several bracket groups ("a[1-2]b[1-3]" expands to their cross
// product) but brackets never nest. Ranges are inclusive and keep the
// zero padding of their low bound, so "n[01-03]" yields n01, n02, n03.
//
// A counts list is the run-length form used by values such as
// SLURM_JOB_CPUS_PER_NODE, e.g. "1(x2),2(x3)" for 1, 1, 2, 2, 2. See
// counts.go.
package hostlist

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrMalformed reports a grammar violation in either notation. All
// decode failures in this package wrap it.
var ErrMalformed = errors.New("malformed expression")

// MaxHosts bounds the number of names a single expression may expand
// to. The bound is checked before any expansion is materialized so that
// an expression like "n[1-999999999]" is rejected cheaply.
const MaxHosts = 65536

// Options adjusts Expand behavior.
type Options struct {
	// KeepDuplicates retains repeated names. By default duplicates are
	// dropped, keeping the first occurrence.
	KeepDuplicates bool
	// Sort orders the result with SortNumeric instead of keeping
	// first-occurrence order.
	Sort bool
}

// Expand decodes a hostlist expression into one name per host, in the
// order the expression names them. An empty expression yields an empty
// list.
func Expand(expr string) ([]string, error) {
	return ExpandWithOptions(expr, Options{})
}

// ExpandWithOptions is Expand with explicit duplicate and ordering
// behavior.
func ExpandWithOptions(expr string, opts Options) ([]string, error) {
	parts, err := splitParts(expr)
	if err != nil {
		return nil, err
	}
	var hosts []string
	remaining := MaxHosts
	for _, part := range parts {
		frags, count, err := parsePart(part)
		if err != nil {
			return nil, err
		}
		if count > remaining {
			return nil, fmt.Errorf("%w: expansion exceeds %d names", ErrMalformed, MaxHosts)
		}
		remaining -= count
		hosts = materialize(frags, hosts)
	}
	if !opts.KeepDuplicates {
		seen := make(map[string]struct{}, len(hosts))
		uniq := hosts[:0]
		for _, h := range hosts {
			if _, ok := seen[h]; ok {
				continue
			}
			seen[h] = struct{}{}
			uniq = append(uniq, h)
		}
		hosts = uniq
	}
	if opts.Sort {
		SortNumeric(hosts)
	}
	return hosts, nil
}

// ExpandRangeList decodes a bare rangelist with no prefix or brackets,
// e.g. "0-3,8,10-11", as used by the CPU_IDs field of scontrol output.
// An empty list yields an empty result.
func ExpandRangeList(list string) ([]string, error) {
	if list == "" {
		return nil, nil
	}
	r := strings.NewReader(list)
	var vals []string
	for {
		var err error
		vals, err = appendRangeElement(r, vals)
		if err != nil {
			return nil, err
		}
		if eatc(r, ',') {
			continue
		}
		if c := getc(r); c != 0 {
			return nil, fmt.Errorf("%w: unexpected %q in range list", ErrMalformed, c)
		}
		return vals, nil
	}
}

// splitParts splits an expression at top-level commas. Commas inside a
// bracket group do not split. Bracket pairing is checked here so that
// nesting and stray brackets fail before any part is expanded.
func splitParts(expr string) ([]string, error) {
	if expr == "" {
		return nil, nil
	}
	var parts []string
	inside := false
	start := 0
	for i, c := range expr {
		switch {
		case c == '[':
			if inside {
				return nil, fmt.Errorf("%w: nested brackets in %q", ErrMalformed, expr)
			}
			inside = true
		case c == ']':
			if !inside {
				return nil, fmt.Errorf("%w: unmatched closing bracket in %q", ErrMalformed, expr)
			}
			inside = false
		case c == ',' && !inside:
			if i == start {
				return nil, fmt.Errorf("%w: empty host name in %q", ErrMalformed, expr)
			}
			parts = append(parts, expr[start:i])
			start = i + 1
		}
	}
	if inside {
		return nil, fmt.Errorf("%w: missing closing bracket in %q", ErrMalformed, expr)
	}
	if start == len(expr) {
		return nil, fmt.Errorf("%w: empty host name in %q", ErrMalformed, expr)
	}
	return append(parts, expr[start:]), nil
}

// fragment is one run of a part: either literal text or the expanded
// values of one bracket group.
type fragment struct {
	literal string
	values  []string
}

// parsePart scans one comma-free part into fragments and reports how
// many names their cross product would produce, without building it.
func parsePart(part string) ([]fragment, int, error) {
	r := strings.NewReader(part)
	var frags []fragment
	count := 1
	for {
		c := getc(r)
		if c == 0 {
			break
		}
		switch c {
		case '[':
			vals, err := parseRangeList(r)
			if err != nil {
				return nil, 0, err
			}
			frags = append(frags, fragment{values: vals})
			count *= len(vals)
			if count > MaxHosts {
				return nil, 0, fmt.Errorf("%w: expansion exceeds %d names", ErrMalformed, MaxHosts)
			}
		case ']':
			return nil, 0, fmt.Errorf("%w: unmatched closing bracket in %q", ErrMalformed, part)
		default:
			lit := string(c)
			for {
				c = getc(r)
				if c == 0 || c == '[' || c == ']' {
					ungetc(r, c)
					break
				}
				lit += string(c)
			}
			frags = append(frags, fragment{literal: lit})
		}
	}
	if len(frags) == 0 {
		return nil, 0, fmt.Errorf("%w: empty host name", ErrMalformed)
	}
	return frags, count, nil
}

// materialize appends the cross product of the fragments to hosts. The
// suffix is built first so that earlier bracket groups vary slowest:
// a[1-2]b[1-2] comes out as a1b1, a1b2, a2b1, a2b2.
func materialize(frags []fragment, hosts []string) []string {
	tails := []string{""}
	for i := len(frags) - 1; i >= 0; i-- {
		f := frags[i]
		if f.values == nil {
			next := make([]string, 0, len(tails))
			for _, t := range tails {
				next = append(next, f.literal+t)
			}
			tails = next
			continue
		}
		next := make([]string, 0, len(tails)*len(f.values))
		for _, v := range f.values {
			for _, t := range tails {
				next = append(next, v+t)
			}
		}
		tails = next
	}
	return append(hosts, tails...)
}

// parseRangeList consumes rangelist elements up to and including the
// closing bracket.
func parseRangeList(r *strings.Reader) ([]string, error) {
	var vals []string
	for {
		var err error
		vals, err = appendRangeElement(r, vals)
		if err != nil {
			return nil, err
		}
		if eatc(r, ',') {
			continue
		}
		if eatc(r, ']') {
			return vals, nil
		}
		c := getc(r)
		if c == 0 {
			return nil, fmt.Errorf("%w: missing closing bracket", ErrMalformed)
		}
		return nil, fmt.Errorf("%w: unexpected %q in range list", ErrMalformed, c)
	}
}

// appendRangeElement reads one "low" or "low-high" element and appends
// its values. Ranges keep the zero padding of the low bound. The size
// of a range is checked against MaxHosts before its values are built.
func appendRangeElement(r *strings.Reader, vals []string) ([]string, error) {
	low, nLow, err := readNumber(r)
	if err != nil {
		return nil, err
	}
	if !eatc(r, '-') {
		if len(vals) >= MaxHosts {
			return nil, fmt.Errorf("%w: expansion exceeds %d names", ErrMalformed, MaxHosts)
		}
		return append(vals, low), nil
	}
	_, nHigh, err := readNumber(r)
	if err != nil {
		return nil, err
	}
	if nHigh < nLow {
		return nil, fmt.Errorf("%w: inverted range %v-%v", ErrMalformed, nLow, nHigh)
	}
	size := nHigh - nLow + 1
	if len(vals)+size > MaxHosts {
		return nil, fmt.Errorf("%w: expansion exceeds %d names", ErrMalformed, MaxHosts)
	}
	width := len(low)
	for v := nLow; v <= nHigh; v++ {
		vals = append(vals, fmt.Sprintf("%0*d", width, v))
	}
	return vals, nil
}

// readNumber reads a run of decimal digits, returning both the literal
// (padding intact) and its value.
func readNumber(r io.RuneScanner) (string, int, error) {
	lit := ""
	for {
		c := getc(r)
		if c < '0' || c > '9' {
			ungetc(r, c)
			break
		}
		lit += string(c)
	}
	if lit == "" {
		return "", 0, fmt.Errorf("%w: expected number", ErrMalformed)
	}
	n, err := strconv.Atoi(lit)
	if err != nil {
		return "", 0, fmt.Errorf("%w: number %q out of range", ErrMalformed, lit)
	}
	return lit, n, nil
}

func eatc(r io.RuneScanner, want rune) bool {
	c := getc(r)
	if c == want {
		return true
	}
	ungetc(r, c)
	return false
}

func getc(r io.RuneScanner) rune {
	c, _, err := r.ReadRune()
	if err == io.EOF {
		return 0
	}
	return c
}

func ungetc(r io.RuneScanner, c rune) {
	if c != 0 {
		r.UnreadRune() // nolint: errcheck
	}
}
