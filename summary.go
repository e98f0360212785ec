package slurmaddons

import (
	"cmp"
	"slices"
)

// QueueSummary accumulates the footprint of every job sharing one
// (account, partition) key. The zero-key instance returned by Summarize
// is the grand total.
type QueueSummary struct {
	Account     string `json:"account,omitempty" yaml:"account,omitempty"`
	Partition   string `json:"partition,omitempty" yaml:"partition,omitempty"`
	JobCount    int    `json:"job_count" yaml:"job_count"`
	RunningJobs int    `json:"running_jobs" yaml:"running_jobs"`
	PendingJobs int    `json:"pending_jobs" yaml:"pending_jobs"`
	NodeCount   int    `json:"node_count" yaml:"node_count"`
	TaskCount   int    `json:"task_count" yaml:"task_count"`
	CPUCount    int    `json:"cpu_count" yaml:"cpu_count"`
	MemoryMB    int64  `json:"memory_mb" yaml:"memory_mb"`
}

// Add folds one record into the summary.
func (s *QueueSummary) Add(r *JobRecord) {
	s.JobCount++
	switch {
	case r.IsRunning():
		s.RunningJobs++
	case r.IsPending():
		s.PendingJobs++
	}
	s.NodeCount += r.NodeCount
	s.TaskCount += r.TaskCount
	s.CPUCount += r.CPUCount
	s.MemoryMB += r.MinMemoryMB
}

// Summarize groups records by (account, partition) and returns one
// summary per key in key order, plus a grand total over all records.
// It sorts a copy, so the caller's slice keeps its order. Grouping is a
// single pass over the sorted copy: a key change closes the open
// summary and opens the next one.
func Summarize(records []*JobRecord) ([]QueueSummary, QueueSummary) {
	sorted := slices.Clone(records)
	slices.SortFunc(sorted, func(a, b *JobRecord) int {
		if c := cmp.Compare(a.Account, b.Account); c != 0 {
			return c
		}
		return cmp.Compare(a.Partition, b.Partition)
	})

	var groups []QueueSummary
	var total QueueSummary
	var cur QueueSummary
	open := false
	for _, r := range sorted {
		if !open || cur.Account != r.Account || cur.Partition != r.Partition {
			if open {
				groups = append(groups, cur)
			}
			cur = QueueSummary{Account: r.Account, Partition: r.Partition}
			open = true
		}
		cur.Add(r)
		total.Add(r)
	}
	if open {
		groups = append(groups, cur)
	}
	return groups, total
}
