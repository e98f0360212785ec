package slurm

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	slurmaddons "github.com/patirot/ud-slurm-addons"
	"github.com/patirot/ud-slurm-addons/hostlist"
)

// JobDetail carries the fields only scontrol reports: the requested
// task layout and, for running jobs, which CPUs each host contributed.
type JobDetail struct {
	JobID          string
	BatchFlag      bool
	NumTasks       int
	CPUsPerTask    int
	TasksPerNode   int
	TasksPerCore   int
	TasksPerSocket int

	// CPUs maps each allocated host to the number of CPU ids scontrol
	// lists for it. Empty for pending jobs.
	CPUs slurmaddons.NodeCPUMap
}

// JobDetail fetches `scontrol show job -d` output for one job.
func (c *Client) JobDetail(ctx context.Context, jobID string) (*JobDetail, error) {
	out, err := c.run(ctx, pathOr(c.ScontrolPath, "scontrol"), "show", "job", "-d", jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch detail for job %v: %w", jobID, err)
	}
	return parseJobDetail(string(out)), nil
}

// Apply copies the detail counters onto a record built from a squeue
// row. Counters scontrol reported as unset stay whatever the row said.
func (d *JobDetail) Apply(r *slurmaddons.JobRecord) {
	r.BatchJob = d.BatchFlag
	if d.NumTasks > 0 {
		r.TaskCount = d.NumTasks
	}
	if d.CPUsPerTask > 0 {
		r.CPUsPerTask = d.CPUsPerTask
	}
	if d.TasksPerNode > 0 {
		r.TasksPerNode = d.TasksPerNode
	}
	if d.TasksPerCore > 0 {
		r.TasksPerCore = d.TasksPerCore
	}
	if d.TasksPerSocket > 0 {
		r.TasksPerSocket = d.TasksPerSocket
	}
}

var nodeCPUIDs = regexp.MustCompile(`^Nodes=(\S+)\s+CPU_IDs=([0-9,-]+)`)

// parseJobDetail scans the key=value text scontrol prints. It never
// fails outright: lines it cannot make sense of are skipped, matching
// how the row decoders treat bad input.
func parseJobDetail(out string) *JobDetail {
	d := &JobDetail{CPUs: slurmaddons.NodeCPUMap{}}
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if m := nodeCPUIDs.FindStringSubmatch(line); m != nil {
			d.addCPUIDs(m[1], m[2])
			continue
		}
		for _, tok := range strings.Fields(line) {
			key, val, ok := strings.Cut(tok, "=")
			if !ok {
				continue
			}
			switch key {
			case "JobId":
				d.JobID = val
			case "BatchFlag":
				d.BatchFlag = val == "1"
			case "NumTasks":
				d.NumTasks = atoiOr0(val)
			case "CPUs/Task":
				d.CPUsPerTask = atoiOr0(val)
			case "NtasksPerN:B:S:C":
				// node : board : socket : core, any of them "*".
				counts := strings.Split(val, ":")
				if len(counts) == 4 {
					d.TasksPerNode = atoiOr0(counts[0])
					d.TasksPerSocket = atoiOr0(counts[2])
					d.TasksPerCore = atoiOr0(counts[3])
				}
			}
		}
	}
	return d
}

func (d *JobDetail) addCPUIDs(nodes, idList string) {
	hosts, err := hostlist.Expand(nodes)
	if err != nil {
		slog.Warn("skipping node CPU line", "nodes", nodes, "err", err)
		return
	}
	ids, err := hostlist.ExpandRangeList(idList)
	if err != nil {
		slog.Warn("skipping node CPU line", "cpuIDs", idList, "err", err)
		return
	}
	for _, h := range hosts {
		d.CPUs[h] = len(ids)
	}
}
