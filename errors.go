package slurmaddons

import (
	"errors"

	"github.com/patirot/ud-slurm-addons/hostlist"
)

var (
	// ErrMalformedExpression reports a grammar violation in a hostlist
	// or count-list notation. It is the hostlist package's sentinel,
	// re-exported so callers have one place to test error kinds.
	ErrMalformedExpression = hostlist.ErrMalformed

	// ErrUnresolvedHost reports a host that has no entry in the
	// per-host CPU map when one is required. Callers must treat the
	// host's share as unknown, never as zero.
	ErrUnresolvedHost = errors.New("host has no resource mapping")

	// ErrRowShapeMismatch reports a scheduler output row whose field
	// count does not match the requested field order. Such rows are
	// dropped with a warning, never fatal.
	ErrRowShapeMismatch = errors.New("row field count mismatch")
)
