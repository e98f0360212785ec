package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	slurmaddons "github.com/patirot/ud-slurm-addons"
	"github.com/patirot/ud-slurm-addons/config"
	"github.com/patirot/ud-slurm-addons/hostlist"
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

var showJobs = flag.Bool("j", false, "Also show the jobs running on each host.")
var formatFlag = flag.String("f", "", "Output format: table, csv, json or yaml.")
var debug = flag.Bool("debug", false, "Enable debug logging.")
var showVersion = flag.Bool("version", false, "Show version and exit.")

// hostView is one displayed host with the jobs placed on it.
type hostView struct {
	slurm.NodeInfo `yaml:",inline"`
	Jobs           []*slurmaddons.JobRecord `json:"jobs,omitempty" yaml:"jobs,omitempty"`
}

func main() {
	flag.Parse()
	logOpts := slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	if *debug {
		logOpts.Level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &logOpts)))
	slog.Debug("qhost started", "version", buildVersion, "dateBuilt", buildDate, "commitBuilt", buildCommit)

	if *showVersion {
		fmt.Printf("qhost (slurm-addons) %v git-%v. Built %v\n", buildVersion, buildCommit, buildDate)
		os.Exit(0)
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

	wanted, err := expandArgs(flag.Args())
	if err != nil {
		slog.Error("bad host expression", "err", err)
		os.Exit(1)
	}

	client, cleanup := newClient(cfg)
	defer cleanup()
	ctx := context.Background()

	nodes, err := client.Nodes(ctx)
	if err != nil {
		// A failed query degrades the report to an empty one, it does
		// not abort the run.
		slog.Error("failed to list nodes", "err", err)
	}
	if wanted != nil {
		nodes = filterNodes(nodes, wanted)
	}
	views := mergeByHost(nodes)

	if *showJobs {
		jobs, err := client.Jobs(ctx, slurm.JobFilter{})
		if err != nil {
			slog.Error("failed to list jobs", "err", err)
		} else {
			placeJobs(views, jobs)
		}
	}

	printHosts(format, views)
}

func newClient(cfg *config.Config) (*slurm.Client, func()) {
	client := &slurm.Client{
		Timeout:    time.Duration(cfg.Timeout),
		SqueuePath: cfg.SqueuePath,
		SinfoPath:  cfg.SinfoPath,
	}
	if cfg.Remote == nil || cfg.Remote.Host == "" {
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

// expandArgs decodes the positional hostlist expressions into the set
// of hostnames to show. No arguments means show everything.
func expandArgs(args []string) (map[string]bool, error) {
	if len(args) == 0 {
		return nil, nil
	}
	wanted := make(map[string]bool)
	for _, expr := range args {
		hosts, err := hostlist.Expand(expr)
		if err != nil {
			return nil, fmt.Errorf("%v: %w", expr, err)
		}
		for _, h := range hosts {
			wanted[h] = true
		}
	}
	return wanted, nil
}

func filterNodes(nodes []slurm.NodeInfo, wanted map[string]bool) []slurm.NodeInfo {
	var kept []slurm.NodeInfo
	for _, n := range nodes {
		if wanted[n.Name] {
			kept = append(kept, n)
		}
	}
	return kept
}

// mergeByHost folds the one-row-per-partition sinfo listing into one
// row per host, joining the partition names.
func mergeByHost(nodes []slurm.NodeInfo) []*hostView {
	var views []*hostView
	byName := make(map[string]*hostView)
	for _, n := range nodes {
		if v, ok := byName[n.Name]; ok {
			v.Partition += "," + n.Partition
			continue
		}
		v := &hostView{NodeInfo: n}
		byName[n.Name] = v
		views = append(views, v)
	}
	return views
}

// placeJobs attaches each job to every shown host it runs on.
func placeJobs(views []*hostView, jobs []*slurmaddons.JobRecord) {
	byName := make(map[string]*hostView, len(views))
	for _, v := range views {
		byName[v.Name] = v
	}
	for _, job := range jobs {
		for _, h := range job.Hosts {
			if v, ok := byName[h]; ok {
				v.Jobs = append(v.Jobs, job)
			}
		}
	}
}

func printHosts(format render.Format, views []*hostView) {
	switch format {
	case render.FormatJSON:
		if err := render.WriteJSON(os.Stdout, views); err != nil {
			slog.Error("failed to render json", "err", err)
			os.Exit(1)
		}
	case render.FormatYAML:
		if err := render.WriteYAML(os.Stdout, views); err != nil {
			slog.Error("failed to render yaml", "err", err)
			os.Exit(1)
		}
	case render.FormatCSV:
		header, rows := hostRows(views)
		if err := render.WriteCSV(os.Stdout, header, rows); err != nil {
			slog.Error("failed to render csv", "err", err)
			os.Exit(1)
		}
	default:
		printHostTable(views)
	}
}

func printHostTable(views []*hostView) {
	fmt.Printf("%-20v %-20.20v %5v %8v %10v %-10v %v\n",
		"HOSTNAME", "PARTITION", "NCPU", "LOAD", "MEMTOT", "STATE", "GRES")
	fmt.Println(strings.Repeat("-", 84))
	for _, v := range views {
		fmt.Printf("%-20v %-20.20v %5v %8v %10v %-10v %v\n",
			v.Name, v.Partition, v.CPUs, v.Load,
			slurmaddons.FormatMemoryMB(v.MemoryMB), v.State, v.GRES)
		for _, job := range v.Jobs {
			fmt.Printf("   %-10v %-12.12v %-5v %-16.16v %v\n",
				job.JobID, job.Owner, job.State, job.Name, job.ArrayTaskID)
		}
	}
}

func hostRows(views []*hostView) ([]string, [][]string) {
	header := []string{"hostname", "partition", "cpus", "memory_mb",
		"load", "state", "gres", "job_ids"}
	rows := make([][]string, 0, len(views))
	for _, v := range views {
		ids := make([]string, 0, len(v.Jobs))
		for _, job := range v.Jobs {
			ids = append(ids, job.JobID)
		}
		rows = append(rows, []string{
			v.Name, v.Partition, strconv.Itoa(v.CPUs),
			strconv.FormatInt(v.MemoryMB, 10), v.Load, v.State, v.GRES,
			strings.Join(ids, " "),
		})
	}
	return header, rows
}
