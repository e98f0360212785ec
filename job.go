package slurmaddons

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/patirot/ud-slurm-addons/hostlist"
)

// slurmTimeLayout is the timestamp format squeue and scontrol print.
const slurmTimeLayout = "2006-01-02T15:04:05"

// JobRecord is the normalized resource footprint of one job, or of one
// host's share of a job after SplitPerHost. Counters are job-wide
// totals on a whole-job record and host-local values on a split one,
// except the socket, core and thread counters, which hold the row's
// per-node shape (sockets per node, cores per socket, threads per
// core) in both cases.
type JobRecord struct {
	JobID       string    `json:"job_id" yaml:"job_id"`
	ArrayTaskID string    `json:"array_task_id,omitempty" yaml:"array_task_id,omitempty"`
	BatchHost   string    `json:"batch_host,omitempty" yaml:"batch_host,omitempty"`
	BatchJob    bool      `json:"batch_job" yaml:"batch_job"`
	Hosts       []string  `json:"hosts,omitempty" yaml:"hosts,omitempty"`
	Priority    int       `json:"priority" yaml:"priority"`
	Name        string    `json:"name" yaml:"name"`
	Owner       string    `json:"owner" yaml:"owner"`
	State       string    `json:"state" yaml:"state"`
	StartTime   time.Time `json:"start_time,omitempty" yaml:"start_time,omitempty"`
	Partition   string    `json:"partition" yaml:"partition"`
	Account     string    `json:"account" yaml:"account"`
	MinMemoryMB int64     `json:"min_memory_mb" yaml:"min_memory_mb"`
	GRES        string    `json:"gres,omitempty" yaml:"gres,omitempty"`

	CPUsPerTask    int `json:"cpus_per_task" yaml:"cpus_per_task"`
	TaskCount      int `json:"task_count" yaml:"task_count"`
	NodeCount      int `json:"node_count" yaml:"node_count"`
	CPUCount       int `json:"cpu_count" yaml:"cpu_count"`
	SocketCount    int `json:"socket_count" yaml:"socket_count"`
	CoreCount      int `json:"core_count" yaml:"core_count"`
	ThreadCount    int `json:"thread_count" yaml:"thread_count"`
	TasksPerNode   int `json:"tasks_per_node" yaml:"tasks_per_node"`
	TasksPerCore   int `json:"tasks_per_core" yaml:"tasks_per_core"`
	TasksPerSocket int `json:"tasks_per_socket" yaml:"tasks_per_socket"`

	perHost []*JobRecord
}

// NewJobRecord builds a record from a row of named fields as requested
// from the scheduler (see the slurm package for the field order). The
// nodelist field is decoded into Hosts and a malformed expression is
// the only construction error. Numeric fields are parsed leniently:
// anything that does not parse as a non-negative integer becomes 0.
// Historical scheduler output prints N/A, *, or nothing in numeric
// columns, and those rows must still aggregate; keep the leniency.
func NewJobRecord(fields map[string]string) (*JobRecord, error) {
	hosts, err := hostlist.Expand(fields["nodelist"])
	if err != nil {
		return nil, fmt.Errorf("job %v nodelist: %w", fields["jobid"], err)
	}
	r := &JobRecord{
		JobID:       fields["jobid"],
		ArrayTaskID: fields["arraytaskid"],
		BatchHost:   hostField(fields["batchhost"]),
		Hosts:       hosts,
		Priority:    atoiField(fields["priority"]),
		Name:        fields["name"],
		Owner:       fields["user"],
		State:       fields["state"],
		StartTime:   timeField(fields["starttime"]),
		Partition:   fields["partition"],
		Account:     fields["account"],
		MinMemoryMB: memoryField(fields["minmemory"]),
		GRES:        gresField(fields["gres"]),

		CPUsPerTask:    atoiField(fields["cpuspertask"]),
		TaskCount:      atoiField(fields["numtasks"]),
		NodeCount:      atoiField(fields["numnodes"]),
		CPUCount:       atoiField(fields["numcpus"]),
		SocketCount:    atoiField(fields["socketspernode"]),
		CoreCount:      atoiField(fields["corespersocket"]),
		ThreadCount:    atoiField(fields["threadspercore"]),
		TasksPerNode:   atoiField(fields["taskspernode"]),
		TasksPerCore:   atoiField(fields["taskspercore"]),
		TasksPerSocket: atoiField(fields["taskspersocket"]),
	}
	if r.ArrayTaskID == "N/A" {
		r.ArrayTaskID = ""
	}
	return r, nil
}

func (r *JobRecord) IsRunning() bool {
	return r.State == "R" || r.State == "RUNNING"
}

func (r *JobRecord) IsPending() bool {
	return r.State == "PD" || r.State == "PENDING"
}

// SplitPerHost returns one record per host, each a copy of r with the
// host-local slot count substituted for the task and CPU counters. The
// slot count per host comes from BuildNodeIndex: the job's uniform
// tasks-per-node when it has one, otherwise the cpus map. The socket,
// core and thread counters are per-node shape values that a single
// host's record still describes, so the copies keep them. A record
// with at most one host is returned as itself, not a copy.
// The first successful split is memoized and later calls return it
// unchanged, whatever map they are passed.
func (r *JobRecord) SplitPerHost(cpus NodeCPUMap) ([]*JobRecord, error) {
	if r.perHost != nil {
		return r.perHost, nil
	}
	if len(r.Hosts) <= 1 {
		r.perHost = []*JobRecord{r}
		return r.perHost, nil
	}
	idx, err := BuildNodeIndex(r.Hosts, r.TasksPerNode, cpus)
	if err != nil {
		return nil, fmt.Errorf("split job %v: %w", r.JobID, err)
	}
	split := make([]*JobRecord, 0, len(r.Hosts))
	for _, h := range r.Hosts {
		c := *r
		c.Hosts = []string{h}
		c.NodeCount = 1
		c.TaskCount = idx[h]
		c.CPUCount = idx[h]
		c.perHost = nil
		split = append(split, &c)
	}
	r.perHost = split
	return split, nil
}

// Aggregate folds other's additive counters into r. Identity fields
// (name, owner, state and the rest) are never merged; folding records
// with different identities is legal and the mismatch is ignored. The
// per-unit rates (CPUsPerTask, TasksPer*) are not additive and are
// left alone.
func (r *JobRecord) Aggregate(other *JobRecord) {
	r.NodeCount += other.NodeCount
	r.TaskCount += other.TaskCount
	r.CPUCount += other.CPUCount
	r.SocketCount += other.SocketCount
	r.CoreCount += other.CoreCount
	r.ThreadCount += other.ThreadCount
}

// atoiField parses a counter leniently. Counters are non-negative, so
// parse failures and negative values both come back as 0.
func atoiField(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// timeField parses a scheduler timestamp, or returns the zero time for
// the N/A a pending job prints.
func timeField(s string) time.Time {
	t, err := time.ParseInLocation(slurmTimeLayout, strings.TrimSpace(s), time.Local)
	if err != nil {
		return time.Time{}
	}
	return t
}

// memoryField parses a memory size leniently, like atoiField.
func memoryField(s string) int64 {
	mb, err := ParseMemoryMB(s)
	if err != nil || mb < 0 {
		return 0
	}
	return mb
}

// gresField normalizes the placeholders squeue prints for jobs without
// generic resources.
func gresField(s string) string {
	if s == "(null)" || s == "N/A" {
		return ""
	}
	return s
}

// hostField normalizes the n/a a pending job prints for its batch
// host.
func hostField(s string) string {
	if s == "n/a" || s == "N/A" {
		return ""
	}
	return s
}
