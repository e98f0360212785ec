package slurm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	slurmaddons "github.com/patirot/ud-slurm-addons"
)

// NodeInfo is one row of the sinfo node inventory. A node serving
// several partitions appears once per partition.
type NodeInfo struct {
	Name      string `json:"name" yaml:"name"`
	Partition string `json:"partition" yaml:"partition"`
	CPUs      int    `json:"cpus" yaml:"cpus"`
	MemoryMB  int64  `json:"memory_mb" yaml:"memory_mb"`
	Load      string `json:"load" yaml:"load"`
	State     string `json:"state" yaml:"state"`
	GRES      string `json:"gres,omitempty" yaml:"gres,omitempty"`
}

var sinfoCodes = []string{"%N", "%P", "%c", "%m", "%O", "%T", "%G"}

// Nodes lists every node the scheduler knows about, one row per node
// and partition.
func (c *Client) Nodes(ctx context.Context) ([]NodeInfo, error) {
	args := []string{"-a", "-h", "-N", "-o", strings.Join(sinfoCodes, "|")}
	out, err := c.run(ctx, pathOr(c.SinfoPath, "sinfo"), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}
	return parseNodeRows(string(out)), nil
}

func parseNodeRows(out string) []NodeInfo {
	var nodes []NodeInfo
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		n, err := parseNodeRow(line)
		if err != nil {
			slog.Warn("dropping sinfo row", "err", err, "row", line)
			continue
		}
		nodes = append(nodes, n)
	}
	return nodes
}

func parseNodeRow(line string) (NodeInfo, error) {
	parts := strings.Split(line, "|")
	if len(parts) != len(sinfoCodes) {
		return NodeInfo{}, fmt.Errorf("%w: got %d fields, want %d",
			slurmaddons.ErrRowShapeMismatch, len(parts), len(sinfoCodes))
	}
	mem, err := slurmaddons.ParseMemoryMB(parts[3])
	if err != nil {
		mem = 0
	}
	gres := parts[6]
	if gres == "(null)" {
		gres = ""
	}
	return NodeInfo{
		Name:      parts[0],
		Partition: parts[1],
		CPUs:      atoiOr0(parts[2]),
		MemoryMB:  mem,
		Load:      parts[4],
		State:     parts[5],
		GRES:      gres,
	}, nil
}
