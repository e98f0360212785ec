package slurm

import (
	"testing"

	slurmaddons "github.com/patirot/ud-slurm-addons"
)

const scontrolFixture = `JobId=1234 JobName=align.sh
   UserId=traine(1001) GroupId=it_css(1002) MCS_label=N/A
   Priority=4294901742 Nice=0 Account=it_css QOS=normal
   JobState=RUNNING Reason=None Dependency=(null)
   Requeue=1 Restarts=0 BatchFlag=1 Reboot=0 ExitCode=0:0
   RunTime=00:05:20 TimeLimit=7-00:00:00 TimeMin=N/A
   SubmitTime=2026-08-20T09:14:45 EligibleTime=2026-08-20T09:14:45
   StartTime=2026-08-20T09:15:00 EndTime=2026-08-27T09:15:00 Deadline=N/A
   Partition=standard AllocNode:Sid=login01:28817
   ReqNodeList=(null) ExcNodeList=(null)
   NodeList=n[9-11] BatchHost=n9
   NumNodes=3 NumCPUs=12 NumTasks=12 CPUs/Task=1 ReqB:S:C:T=0:0:*:*
   TRES=cpu=12,mem=12000M,node=3,billing=12
   Socks/Node=* NtasksPerN:B:S:C=4:0:*:* CoreSpec=*
   JOB_GRES=(null)
     Nodes=n9 CPU_IDs=0-3 Mem=4000 GRES=
     Nodes=n[10-11] CPU_IDs=0-1,8-9 Mem=4000 GRES=
   MinCPUsNode=4 MinMemoryNode=4000M MinTmpDiskNode=0
   Command=/home/traine/align.sh
   WorkDir=/home/traine
`

func TestParseJobDetail(t *testing.T) {
	d := parseJobDetail(scontrolFixture)
	if d.JobID != "1234" {
		t.Errorf("expected job id 1234, got %v", d.JobID)
	}
	if !d.BatchFlag {
		t.Error("expected BatchFlag=1 to decode as true")
	}
	if d.NumTasks != 12 {
		t.Errorf("expected 12 tasks, got %v", d.NumTasks)
	}
	if d.CPUsPerTask != 1 {
		t.Errorf("expected 1 cpu per task, got %v", d.CPUsPerTask)
	}
	if d.TasksPerNode != 4 {
		t.Errorf("expected 4 tasks per node, got %v", d.TasksPerNode)
	}
	if d.TasksPerSocket != 0 || d.TasksPerCore != 0 {
		t.Errorf("expected * per socket/core to decode as 0, got %v/%v",
			d.TasksPerSocket, d.TasksPerCore)
	}
	want := slurmaddons.NodeCPUMap{"n9": 4, "n10": 4, "n11": 4}
	if len(d.CPUs) != len(want) {
		t.Fatalf("expected CPU map %v, got %v", want, d.CPUs)
	}
	for h, n := range want {
		if d.CPUs[h] != n {
			t.Errorf("expected %v CPUs on %v, got %v", n, h, d.CPUs[h])
		}
	}
}

func TestParseJobDetailApply(t *testing.T) {
	d := parseJobDetail(scontrolFixture)
	r := &slurmaddons.JobRecord{JobID: "1234", CPUCount: 12, CPUsPerTask: 0}
	d.Apply(r)
	if r.TaskCount != 12 || r.CPUsPerTask != 1 || r.TasksPerNode != 4 {
		t.Errorf("expected detail counters applied, got tasks=%v cpt=%v tpn=%v",
			r.TaskCount, r.CPUsPerTask, r.TasksPerNode)
	}
	if !r.BatchJob {
		t.Error("expected batch flag applied")
	}
	if r.CPUCount != 12 {
		t.Errorf("expected row CPU count untouched, got %v", r.CPUCount)
	}
}

func TestParseJobDetailSkipsBadLines(t *testing.T) {
	d := parseJobDetail("   Nodes=n[5-2] CPU_IDs=0-3 Mem=1\n   Nodes=n1 CPU_IDs=0-upJ\n   NumTasks=3\n")
	if len(d.CPUs) != 0 {
		t.Errorf("expected undecodable CPU lines skipped, got %v", d.CPUs)
	}
	if d.NumTasks != 3 {
		t.Errorf("expected later lines still scanned, got %v tasks", d.NumTasks)
	}
}

func TestParseJobDetailPendingJob(t *testing.T) {
	pending := `JobId=1301 JobName=train
   JobState=PENDING Reason=Priority Dependency=(null)
   Requeue=1 Restarts=0 BatchFlag=1 Reboot=0 ExitCode=0:0
   NumNodes=1 NumCPUs=4 NumTasks=4 CPUs/Task=1 ReqB:S:C:T=0:0:*:*
   Socks/Node=* NtasksPerN:B:S:C=0:0:*:* CoreSpec=*
`
	d := parseJobDetail(pending)
	if len(d.CPUs) != 0 {
		t.Errorf("expected no CPU map for a pending job, got %v", d.CPUs)
	}
	if d.NumTasks != 4 || d.TasksPerNode != 0 {
		t.Errorf("expected tasks=4 tpn=0, got %v/%v", d.NumTasks, d.TasksPerNode)
	}
}
