package hostlist

import (
	"fmt"
	"strings"
)

// ExpandCounts decodes a run-length count list into one integer per
// position: "1(x2),2(x3)" yields [1 1 2 2 2]. Each element is either a
// bare non-negative integer or value(xrepeat) with a positive value and
// repeat. Empty elements, dangling commas and anything else fail with
// ErrMalformed. The expansion is subject to the same ceiling as host
// lists, one entry per node.
func ExpandCounts(list string) ([]int, error) {
	r := strings.NewReader(list)
	var out []int
	for {
		_, value, err := readNumber(r)
		if err != nil {
			return nil, err
		}
		repeat := 1
		if eatc(r, '(') {
			if !eatc(r, 'x') {
				return nil, fmt.Errorf("%w: expected x after ( in count list", ErrMalformed)
			}
			_, repeat, err = readNumber(r)
			if err != nil {
				return nil, err
			}
			if !eatc(r, ')') {
				return nil, fmt.Errorf("%w: missing ) in count list", ErrMalformed)
			}
			if repeat < 1 {
				return nil, fmt.Errorf("%w: repeat count must be positive", ErrMalformed)
			}
			if value < 1 {
				return nil, fmt.Errorf("%w: repeated value must be positive", ErrMalformed)
			}
		}
		if len(out)+repeat > MaxHosts {
			return nil, fmt.Errorf("%w: expansion exceeds %d counts", ErrMalformed, MaxHosts)
		}
		for i := 0; i < repeat; i++ {
			out = append(out, value)
		}
		if eatc(r, ',') {
			if r.Len() == 0 {
				return nil, fmt.Errorf("%w: trailing comma in count list", ErrMalformed)
			}
			continue
		}
		if c := getc(r); c != 0 {
			return nil, fmt.Errorf("%w: unexpected %q in count list", ErrMalformed, c)
		}
		return out, nil
	}
}

// SumCounts totals a run-length count list: "1(x2),2(x3)" sums to 8.
// Parsing is tolerant, matching how slot totals have always been
// derived from SLURM_JOB_CPUS_PER_NODE: scanning stops at the first
// element it cannot read, keeping whatever was accumulated so far. If
// nothing positive was accumulated (the list is empty, absent or
// unparseable) the defined total is 1, not 0: a job always occupies at
// least one slot.
func SumCounts(list string) int {
	r := strings.NewReader(list)
	total := 0
	for {
		_, value, err := readNumber(r)
		if err != nil {
			break
		}
		repeat := 1
		if eatc(r, '(') {
			if !eatc(r, 'x') {
				break
			}
			if _, repeat, err = readNumber(r); err != nil {
				break
			}
			if !eatc(r, ')') {
				break
			}
		}
		total += value * repeat
		if !eatc(r, ',') {
			break
		}
	}
	if total > 0 {
		return total
	}
	return 1
}
