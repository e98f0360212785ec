package slurmaddons

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseMemoryMB parses a scheduler memory size into megabytes. The
// scheduler prints megabytes by default; a single-letter suffix M, G or
// T scales the value, and a trailing n or c (per-node / per-CPU
// markers in older output) is ignored. The value may be fractional, as
// in 0.5G.
func ParseMemoryMB(in string) (int64, error) {
	s := strings.TrimSpace(in)
	if s == "" {
		return 0, fmt.Errorf("failed to parse memory size: empty value")
	}
	if c := s[len(s)-1]; c == 'n' || c == 'c' {
		s = s[:len(s)-1]
	}
	mult := int64(1)
	if len(s) > 0 {
		switch s[len(s)-1] {
		case 'M', 'm':
			s = s[:len(s)-1]
		case 'G', 'g':
			mult = 1 << 10
			s = s[:len(s)-1]
		case 'T', 't':
			mult = 1 << 20
			s = s[:len(s)-1]
		}
	}
	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse memory size %q: %w", in, err)
	}
	if value < 0 {
		return 0, fmt.Errorf("failed to parse memory size %q: negative", in)
	}
	return int64(value * float64(mult)), nil
}

// FormatMemoryMB renders megabytes back in the scheduler's compact
// form, using the largest unit that divides evenly.
func FormatMemoryMB(mb int64) string {
	switch {
	case mb >= 1<<20 && mb%(1<<20) == 0:
		return fmt.Sprintf("%dT", mb/(1<<20))
	case mb >= 1<<10 && mb%(1<<10) == 0:
		return fmt.Sprintf("%dG", mb/(1<<10))
	default:
		return fmt.Sprintf("%dM", mb)
	}
}

// GroupLimits is a workgroup's resource ceiling, parsed from the
// scheduler's trackable-resource form. Plain limits (cpu, node,
// billing, mem in MB) live in TRES; gres/ entries keep their own map,
// name to count. Treat a parsed value as read-only.
type GroupLimits struct {
	TRES map[string]int64 `json:"tres" yaml:"tres"`
	GRES map[string]int64 `json:"gres" yaml:"gres"`
}

// ParseGroupLimits parses a trackable-resource specification such as
// "cpu=720,mem=5120G,gres/gpu=8,node=20". An empty specification is a
// valid, empty limit set (the scheduler prints nothing for accounts
// without ceilings).
func ParseGroupLimits(spec string) (GroupLimits, error) {
	gl := GroupLimits{
		TRES: make(map[string]int64),
		GRES: make(map[string]int64),
	}
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return gl, nil
	}
	for _, pair := range strings.Split(spec, ",") {
		key, value, found := strings.Cut(pair, "=")
		if !found {
			return gl, fmt.Errorf("bad trackable resource %q: missing =", pair)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		switch {
		case strings.HasPrefix(key, "gres/"):
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return gl, fmt.Errorf("bad trackable resource %q: %w", pair, err)
			}
			gl.GRES[strings.TrimPrefix(key, "gres/")] = n
		case key == "mem":
			mb, err := ParseMemoryMB(value)
			if err != nil {
				return gl, fmt.Errorf("bad trackable resource %q: %w", pair, err)
			}
			gl.TRES[key] = mb
		default:
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return gl, fmt.Errorf("bad trackable resource %q: %w", pair, err)
			}
			gl.TRES[key] = n
		}
	}
	return gl, nil
}
