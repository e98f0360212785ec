package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	slurmaddons "github.com/patirot/ud-slurm-addons"
	"github.com/patirot/ud-slurm-addons/config"
	"github.com/patirot/ud-slurm-addons/recorder"
	"github.com/patirot/ud-slurm-addons/remote"
	"github.com/patirot/ud-slurm-addons/render"
	"github.com/patirot/ud-slurm-addons/slurm"
)

var (
	// These will get overridden by goreleaser.
	buildVersion = "dev"
	buildCommit  = "none"
	buildDate    = "unknown"
)

var userFlag = flag.String("u", "", "Show only jobs owned by this user.")
var accountFlag = flag.String("A", "", "Show only jobs billed to this account (workgroup).")
var partitionFlag = flag.String("p", "", "Show only jobs in this partition.")
var taskView = flag.Bool("t", false, "Show one row per allocated host with its task and CPU share.")
var summaryMode = flag.String("g", "", "Summary mode: c groups jobs by account and partition.")
var formatFlag = flag.String("f", "", "Output format: table, csv, json or yaml.")
var record = flag.Bool("record", false, "Also record a summary snapshot to the local database.")
var recordDB = flag.String("record-db", "", "Location of the record database.")
var load = flag.Bool("load", false, "Print the last recorded summary instead of querying the scheduler.")
var debug = flag.Bool("debug", false, "Enable debug logging.")
var showVersion = flag.Bool("version", false, "Show version and exit.")

func main() {
	flag.Parse()
	logOpts := slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	if *debug {
		logOpts.Level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &logOpts)))
	slog.Debug("qstat started", "version", buildVersion, "dateBuilt", buildDate, "commitBuilt", buildCommit)

	if *showVersion {
		fmt.Printf("qstat (slurm-addons) %v git-%v. Built %v\n", buildVersion, buildCommit, buildDate)
		os.Exit(0)
	}
	if *summaryMode != "" && *summaryMode != "c" {
		slog.Error("unknown summary mode, only -g c is supported", "mode", *summaryMode)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	name := cfg.Format
	if *formatFlag != "" {
		name = *formatFlag
	}
	format, err := render.ParseFormat(name)
	if err != nil {
		slog.Error("bad output format", "err", err)
		os.Exit(1)
	}

	if *load {
		printRecordedSummary(cfg, format)
		return
	}

	client, cleanup := newClient(cfg)
	defer cleanup()
	ctx := context.Background()

	jobs, err := client.Jobs(ctx, slurm.JobFilter{
		User:      *userFlag,
		Account:   *accountFlag,
		Partition: *partitionFlag,
	})
	if err != nil {
		// A failed query degrades the report to an empty one, it does
		// not abort the run.
		slog.Error("failed to list jobs", "err", err)
	}

	if *record && err == nil {
		recordSummary(cfg, jobs)
	}

	switch {
	case *summaryMode == "c":
		groups, total := slurmaddons.Summarize(jobs)
		printSummary(format, time.Now(), groups, total)
	case *taskView:
		printJobs(format, splitPerHost(ctx, client, jobs), true)
	default:
		printJobs(format, jobs, false)
	}
}

func newClient(cfg *config.Config) (*slurm.Client, func()) {
	client := &slurm.Client{
		Timeout:      time.Duration(cfg.Timeout),
		SqueuePath:   cfg.SqueuePath,
		SinfoPath:    cfg.SinfoPath,
		ScontrolPath: cfg.ScontrolPath,
		SacctmgrPath: cfg.SacctmgrPath,
	}
	if cfg.Remote == nil || cfg.Remote.Host == "" {
		if cfg.SqueuePath == "" && !slurm.IsAvailable() {
			slog.Warn("SLURM client tools not found on PATH; set command paths or a remote host in the config")
		}
		return client, func() {}
	}
	runner := &remote.Runner{
		Host:    cfg.Remote.Host,
		User:    cfg.Remote.User,
		KeyFile: cfg.Remote.KeyFile,
	}
	client.Runner = runner
	return client, func() {
		if err := runner.Close(); err != nil {
			slog.Debug("failed to close ssh connection", "err", err)
		}
	}
}

// splitPerHost expands each job into one record per allocated host.
// The scontrol detail supplies the task layout and the per host CPU
// ids; a job whose hosts cannot all be resolved stays as one unsplit
// row.
func splitPerHost(ctx context.Context, client *slurm.Client, jobs []*slurmaddons.JobRecord) []*slurmaddons.JobRecord {
	var rows []*slurmaddons.JobRecord
	for _, job := range jobs {
		var cpus slurmaddons.NodeCPUMap
		detail, err := client.JobDetail(ctx, job.JobID)
		if err != nil {
			slog.Warn("failed to fetch job detail", "jobID", job.JobID, "err", err)
		} else {
			detail.Apply(job)
			cpus = detail.CPUs
		}
		split, err := job.SplitPerHost(cpus)
		if err != nil {
			slog.Warn("cannot split job by host", "jobID", job.JobID, "err", err)
			rows = append(rows, job)
			continue
		}
		rows = append(rows, split...)
	}
	return rows
}

func recordPath(cfg *config.Config) (string, error) {
	if *recordDB != "" {
		return *recordDB, nil
	}
	if cfg.RecordDB != "" {
		return cfg.RecordDB, nil
	}
	return recorder.DefaultPath()
}

func recordSummary(cfg *config.Config, jobs []*slurmaddons.JobRecord) {
	path, err := recordPath(cfg)
	if err != nil {
		slog.Error("failed to resolve record db path", "err", err)
		os.Exit(1)
	}
	rec, err := recorder.New(path)
	if err != nil {
		slog.Error("failed to open record db", "err", err)
		os.Exit(1)
	}
	defer rec.Close() // nolint: errcheck
	groups, _ := slurmaddons.Summarize(jobs)
	if err := rec.RecordSnapshot(time.Now(), groups); err != nil {
		slog.Error("failed to record summary snapshot", "err", err)
	}
}

func printRecordedSummary(cfg *config.Config, format render.Format) {
	path, err := recordPath(cfg)
	if err != nil {
		slog.Error("failed to resolve record db path", "err", err)
		os.Exit(1)
	}
	rec, err := recorder.New(path)
	if err != nil {
		slog.Error("failed to open record db", "err", err)
		os.Exit(1)
	}
	defer rec.Close() // nolint: errcheck
	snap, total, err := rec.LatestSnapshot()
	if err != nil {
		slog.Error("failed to load recorded summary", "err", err)
		os.Exit(1)
	}
	printSummary(format, snap.TakenAt, snap.Groups, total)
}
