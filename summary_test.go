package slurmaddons

import (
	"testing"
)

func TestSummarize(t *testing.T) {
	records := []*JobRecord{
		{Account: "it_css", Partition: "standard", State: "R", NodeCount: 2, TaskCount: 8, CPUCount: 8, MinMemoryMB: 8000},
		{Account: "biomix", Partition: "standard", State: "PD", NodeCount: 1, TaskCount: 4, CPUCount: 4, MinMemoryMB: 4000},
		{Account: "it_css", Partition: "gpu", State: "R", NodeCount: 1, TaskCount: 1, CPUCount: 4, MinMemoryMB: 16000},
		{Account: "it_css", Partition: "standard", State: "R", NodeCount: 1, TaskCount: 4, CPUCount: 4, MinMemoryMB: 4000},
	}

	groups, total := Summarize(records)

	if len(groups) != 3 {
		t.Fatalf("should have 3 groups but got %d: %+v", len(groups), groups)
	}

	// Key order: biomix/standard, it_css/gpu, it_css/standard.
	if groups[0].Account != "biomix" || groups[0].Partition != "standard" {
		t.Errorf("first group should be biomix/standard but got %v/%v", groups[0].Account, groups[0].Partition)
	}
	if groups[1].Account != "it_css" || groups[1].Partition != "gpu" {
		t.Errorf("second group should be it_css/gpu but got %v/%v", groups[1].Account, groups[1].Partition)
	}
	if groups[2].Account != "it_css" || groups[2].Partition != "standard" {
		t.Errorf("third group should be it_css/standard but got %v/%v", groups[2].Account, groups[2].Partition)
	}

	std := groups[2]
	if std.JobCount != 2 || std.NodeCount != 3 || std.TaskCount != 12 || std.CPUCount != 12 {
		t.Errorf("it_css/standard totals wrong: %+v", std)
	}
	if std.RunningJobs != 2 || std.PendingJobs != 0 {
		t.Errorf("it_css/standard state counts wrong: %+v", std)
	}

	// The grand total covers every record regardless of key.
	if total.JobCount != 4 || total.NodeCount != 5 || total.TaskCount != 17 || total.CPUCount != 20 {
		t.Errorf("grand total wrong: %+v", total)
	}
	if total.MemoryMB != 32000 {
		t.Errorf("grand total memory should be 32000 but got %v", total.MemoryMB)
	}
	if total.RunningJobs != 3 || total.PendingJobs != 1 {
		t.Errorf("grand total state counts wrong: %+v", total)
	}

	// The caller's slice keeps its order.
	if records[0].Account != "it_css" || records[1].Account != "biomix" {
		t.Errorf("Summarize should not reorder the input slice")
	}
}

func TestSummarizeEmpty(t *testing.T) {
	groups, total := Summarize(nil)
	if len(groups) != 0 {
		t.Errorf("no records should give no groups but got %+v", groups)
	}
	if total.JobCount != 0 {
		t.Errorf("no records should give a zero total but got %+v", total)
	}
}

func TestSummarizeGrandTotalMatchesFold(t *testing.T) {
	// Folding every record into one accumulator must agree with the
	// grand total, whatever the key distribution.
	records := []*JobRecord{
		{Account: "a", Partition: "p1", NodeCount: 1, TaskCount: 2, CPUCount: 3},
		{Account: "b", Partition: "p2", NodeCount: 4, TaskCount: 5, CPUCount: 6},
		{Account: "a", Partition: "p2", NodeCount: 7, TaskCount: 8, CPUCount: 9},
	}
	var fold JobRecord
	for _, r := range records {
		fold.Aggregate(r)
	}
	_, total := Summarize(records)
	if total.NodeCount != fold.NodeCount || total.TaskCount != fold.TaskCount || total.CPUCount != fold.CPUCount {
		t.Errorf("grand total %+v should match plain fold %+v", total, fold)
	}
}
