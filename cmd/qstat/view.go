package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	slurmaddons "github.com/patirot/ud-slurm-addons"
	"github.com/patirot/ud-slurm-addons/render"
)

const timeColumnLayout = "2006-01-02 15:04:05"

func startColumn(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(timeColumnLayout)
}

// queueColumn renders the Grid Engine queue@host notation from the
// partition and batch host.
func queueColumn(r *slurmaddons.JobRecord) string {
	if r.BatchHost == "" {
		return r.Partition
	}
	return r.Partition + "@" + r.BatchHost
}

func hostColumn(r *slurmaddons.JobRecord) string {
	if len(r.Hosts) == 0 {
		return ""
	}
	return r.Hosts[0]
}

func printJobs(format render.Format, jobs []*slurmaddons.JobRecord, perHost bool) {
	switch format {
	case render.FormatJSON:
		if err := render.WriteJSON(os.Stdout, jobs); err != nil {
			slog.Error("failed to render json", "err", err)
			os.Exit(1)
		}
	case render.FormatYAML:
		if err := render.WriteYAML(os.Stdout, jobs); err != nil {
			slog.Error("failed to render yaml", "err", err)
			os.Exit(1)
		}
	case render.FormatCSV:
		header, rows := jobRows(jobs, perHost)
		if err := render.WriteCSV(os.Stdout, header, rows); err != nil {
			slog.Error("failed to render csv", "err", err)
			os.Exit(1)
		}
	default:
		printJobTable(jobs, perHost)
	}
}

func printJobTable(jobs []*slurmaddons.JobRecord, perHost bool) {
	if perHost {
		fmt.Printf("%-10v %-16.16v %-12.12v %-5v %-16v %6v %6v %v\n",
			"job-ID", "name", "user", "state", "host", "tasks", "cpus", "ja-task-ID")
		for _, r := range jobs {
			fmt.Printf("%-10v %-16.16v %-12.12v %-5v %-16v %6v %6v %v\n",
				r.JobID, r.Name, r.Owner, r.State,
				hostColumn(r), r.TaskCount, r.CPUCount, r.ArrayTaskID)
		}
		return
	}
	fmt.Printf("%-10v %-11v %-16.16v %-12.12v %-5v %-19v %-24.24v %5v %v\n",
		"job-ID", "prior", "name", "user", "state", "start-at", "queue", "slots", "ja-task-ID")
	for _, r := range jobs {
		fmt.Printf("%-10v %-11v %-16.16v %-12.12v %-5v %-19v %-24.24v %5v %v\n",
			r.JobID, r.Priority, r.Name, r.Owner, r.State,
			startColumn(r.StartTime), queueColumn(r), r.CPUCount, r.ArrayTaskID)
	}
}

func jobRows(jobs []*slurmaddons.JobRecord, perHost bool) ([]string, [][]string) {
	if perHost {
		header := []string{"job_id", "array_task_id", "name", "user",
			"account", "partition", "state", "host", "task_count", "cpu_count"}
		rows := make([][]string, 0, len(jobs))
		for _, r := range jobs {
			rows = append(rows, []string{
				r.JobID, r.ArrayTaskID, r.Name, r.Owner,
				r.Account, r.Partition, r.State, hostColumn(r),
				strconv.Itoa(r.TaskCount), strconv.Itoa(r.CPUCount),
			})
		}
		return header, rows
	}
	header := []string{"job_id", "array_task_id", "name", "user",
		"account", "partition", "state", "priority", "start_time",
		"batch_host", "node_count", "task_count", "cpu_count",
		"memory_mb", "gres", "hosts"}
	rows := make([][]string, 0, len(jobs))
	for _, r := range jobs {
		rows = append(rows, []string{
			r.JobID, r.ArrayTaskID, r.Name, r.Owner,
			r.Account, r.Partition, r.State,
			strconv.Itoa(r.Priority), startColumn(r.StartTime),
			r.BatchHost, strconv.Itoa(r.NodeCount),
			strconv.Itoa(r.TaskCount), strconv.Itoa(r.CPUCount),
			strconv.FormatInt(r.MinMemoryMB, 10), r.GRES,
			strings.Join(r.Hosts, " "),
		})
	}
	return header, rows
}

type summaryDocument struct {
	TakenAt time.Time                  `json:"taken_at" yaml:"taken_at"`
	Groups  []slurmaddons.QueueSummary `json:"groups" yaml:"groups"`
	Total   slurmaddons.QueueSummary   `json:"total" yaml:"total"`
}

func printSummary(format render.Format, takenAt time.Time, groups []slurmaddons.QueueSummary, total slurmaddons.QueueSummary) {
	switch format {
	case render.FormatJSON:
		doc := summaryDocument{TakenAt: takenAt, Groups: groups, Total: total}
		if err := render.WriteJSON(os.Stdout, doc); err != nil {
			slog.Error("failed to render json", "err", err)
			os.Exit(1)
		}
	case render.FormatYAML:
		doc := summaryDocument{TakenAt: takenAt, Groups: groups, Total: total}
		if err := render.WriteYAML(os.Stdout, doc); err != nil {
			slog.Error("failed to render yaml", "err", err)
			os.Exit(1)
		}
	case render.FormatCSV:
		header, rows := summaryRows(groups, total)
		if err := render.WriteCSV(os.Stdout, header, rows); err != nil {
			slog.Error("failed to render csv", "err", err)
			os.Exit(1)
		}
	default:
		printSummaryTable(takenAt, groups, total)
	}
}

func printSummaryTable(takenAt time.Time, groups []slurmaddons.QueueSummary, total slurmaddons.QueueSummary) {
	fmt.Printf("Queue summary as of %v\n", takenAt.Format(timeColumnLayout))
	fmt.Printf("%-16v %-14v %6v %6v %6v %7v %7v %7v %10v\n",
		"account", "partition", "jobs", "run", "pend", "nodes", "tasks", "cpus", "memory")
	fmt.Println(strings.Repeat("-", 88))
	for _, g := range groups {
		fmt.Printf("%-16v %-14v %6v %6v %6v %7v %7v %7v %10v\n",
			g.Account, g.Partition, g.JobCount, g.RunningJobs, g.PendingJobs,
			g.NodeCount, g.TaskCount, g.CPUCount,
			slurmaddons.FormatMemoryMB(g.MemoryMB))
	}
	fmt.Println(strings.Repeat("-", 88))
	fmt.Printf("%-16v %-14v %6v %6v %6v %7v %7v %7v %10v\n",
		"TOTAL", "", total.JobCount, total.RunningJobs, total.PendingJobs,
		total.NodeCount, total.TaskCount, total.CPUCount,
		slurmaddons.FormatMemoryMB(total.MemoryMB))
}

func summaryRows(groups []slurmaddons.QueueSummary, total slurmaddons.QueueSummary) ([]string, [][]string) {
	header := []string{"account", "partition", "job_count", "running_jobs",
		"pending_jobs", "node_count", "task_count", "cpu_count", "memory_mb"}
	rows := make([][]string, 0, len(groups)+1)
	for _, g := range groups {
		rows = append(rows, summaryRow(g.Account, g.Partition, g))
	}
	rows = append(rows, summaryRow("TOTAL", "", total))
	return header, rows
}

func summaryRow(account, partition string, g slurmaddons.QueueSummary) []string {
	return []string{
		account, partition,
		strconv.Itoa(g.JobCount), strconv.Itoa(g.RunningJobs),
		strconv.Itoa(g.PendingJobs), strconv.Itoa(g.NodeCount),
		strconv.Itoa(g.TaskCount), strconv.Itoa(g.CPUCount),
		strconv.FormatInt(g.MemoryMB, 10),
	}
}
