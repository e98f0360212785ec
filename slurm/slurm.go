// Package slurm queries the SLURM reporting commands (squeue, sinfo,
// scontrol, sacctmgr) and decodes their delimited text output into the
// domain types of the root package.
package slurm

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// DefaultTimeout bounds each scheduler command. The tools these
// helpers replace waited on the controller forever; a stuck controller
// should fail the report instead.
const DefaultTimeout = 30 * time.Second

// Runner executes a scheduler command and returns its standard output.
// Implementations must honor ctx cancellation.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// LocalRunner runs commands on this host.
type LocalRunner struct{}

func (LocalRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var out, errOut bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errOut
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(errOut.String()); msg != "" {
			return nil, fmt.Errorf("%v: %w: %v", name, err, msg)
		}
		return nil, fmt.Errorf("%v: %w", name, err)
	}
	return out.Bytes(), nil
}

// IsAvailable reports whether the SLURM client commands can be found
// on this host.
func IsAvailable() bool {
	_, err := exec.LookPath("squeue")
	if err == nil {
		slog.Debug("found squeue")
		return true
	}
	slog.Debug("failed to find squeue", "err", err)
	return false
}

// Client queries the scheduler. The zero value runs the bare command
// names locally with DefaultTimeout.
type Client struct {
	// Runner executes the commands. Nil means LocalRunner.
	Runner Runner
	// Timeout bounds each command. Zero or negative means
	// DefaultTimeout.
	Timeout time.Duration

	// Absolute command paths, for clusters that keep the SLURM tools
	// off the default PATH. Empty fields use the bare names.
	SqueuePath   string
	SinfoPath    string
	ScontrolPath string
	SacctmgrPath string
}

func (c *Client) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	runner := c.Runner
	if runner == nil {
		runner = LocalRunner{}
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	slog.Debug("running scheduler command", "cmd", name, "args", args)
	return runner.Run(ctx, name, args...)
}

func pathOr(path, name string) string {
	if path != "" {
		return path
	}
	return name
}

// atoiOr0 parses scheduler numerics leniently, like the record
// constructor does: N/A, * and friends come back as 0.
func atoiOr0(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
