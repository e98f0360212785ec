package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	slurmaddons "github.com/patirot/ud-slurm-addons"
	"github.com/patirot/ud-slurm-addons/config"
	"github.com/patirot/ud-slurm-addons/remote"
	"github.com/patirot/ud-slurm-addons/slurm"
)

var (
	// These will get overridden by goreleaser.
	buildVersion = "dev"
	buildCommit  = "none"
	buildDate    = "unknown"
)

var interval = flag.Duration("interval", 30*time.Second, "Queue polling rate.")
var userFlag = flag.String("u", "", "Show only jobs of this user.")
var accountFlag = flag.String("A", "", "Show only jobs of this workgroup (account).")
var partitionFlag = flag.String("p", "", "Show only jobs in this partition.")
var useHTTPServer = flag.Bool("http", false, "Serve the summary as a live web page instead of the terminal.")
var httpServerPort = flag.Int("http-port", 0, "Port for -http. The default is to automatically pick a free port.")
var debug = flag.Bool("debug", false, "Enable debug logging.")
var showVersion = flag.Bool("version", false, "Show version and exit.")

// snapshot is one polled view of the queue.
type snapshot struct {
	TakenAt time.Time
	Groups  []slurmaddons.QueueSummary
	Total   slurmaddons.QueueSummary
}

type app struct {
	client      *slurm.Client
	filter      slurm.JobFilter
	clusterName string

	mu      sync.RWMutex
	current *snapshot

	*summaryPubSub
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
	slog.Debug("qtop started", "version", buildVersion, "dateBuilt", buildDate, "commitBuilt", buildCommit)

	if *showVersion {
		fmt.Printf("qtop (slurm-addons) %v git-%v. Built %v\n", buildVersion, buildCommit, buildDate)
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	client, cleanup := newClient(cfg)
	defer cleanup()

	a := &app{
		client: client,
		filter: slurm.JobFilter{
			User:      *userFlag,
			Account:   *accountFlag,
			Partition: *partitionFlag,
		},
		clusterName:   cfg.ClusterName,
		current:       &snapshot{TakenAt: time.Now()},
		summaryPubSub: newSummaryPubSub(),
	}
	if a.clusterName == "" {
		a.clusterName = os.Getenv("SLURM_CLUSTER_NAME")
	}

	// An empty first snapshot is fine; the next tick retries.
	if err := a.refresh(); err != nil {
		slog.Error("failed to poll the queue", "err", err)
	}

	if *useHTTPServer {
		a.startServer()
		return
	}

	a.printCurrent()
	ticker := time.NewTicker(*interval)
	stopReq := make(chan os.Signal, 1)
	signal.Notify(stopReq, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	for {
		select {
		case <-stopReq:
			fmt.Println("\nqtop exiting...")
			return
		case <-ticker.C:
			if err := a.refresh(); err != nil {
				slog.Error("failed to poll the queue", "err", err)
				continue
			}
			fmt.Println()
			a.printCurrent()
		}
	}
}

func newClient(cfg *config.Config) (*slurm.Client, func()) {
	client := &slurm.Client{
		Timeout:    time.Duration(cfg.Timeout),
		SqueuePath: cfg.SqueuePath,
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

// refresh polls the queue, stores the new snapshot and hands it to any
// websocket listeners.
func (a *app) refresh() error {
	jobs, err := a.client.Jobs(context.Background(), a.filter)
	if err != nil {
		return err
	}
	groups, total := slurmaddons.Summarize(jobs)
	s := &snapshot{TakenAt: time.Now(), Groups: groups, Total: total}
	a.mu.Lock()
	a.current = s
	a.mu.Unlock()
	a.Publish(s)
	return nil
}

func (a *app) printCurrent() {
	a.mu.RLock()
	s := a.current
	a.mu.RUnlock()

	title := "Queue summary"
	if a.clusterName != "" {
		title = fmt.Sprintf("Queue summary for %v", a.clusterName)
	}
	fmt.Printf("%v as of %v\n", title, s.TakenAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("%-16v %-14v %6v %6v %6v %7v %7v %7v %10v\n",
		"account", "partition", "jobs", "run", "pend", "nodes", "tasks", "cpus", "memory")
	fmt.Println(strings.Repeat("-", 88))
	for _, g := range s.Groups {
		fmt.Printf("%-16v %-14v %6v %6v %6v %7v %7v %7v %10v\n",
			g.Account, g.Partition, g.JobCount, g.RunningJobs, g.PendingJobs,
			g.NodeCount, g.TaskCount, g.CPUCount,
			slurmaddons.FormatMemoryMB(g.MemoryMB))
	}
	fmt.Println(strings.Repeat("-", 88))
	fmt.Printf("%-16v %-14v %6v %6v %6v %7v %7v %7v %10v\n",
		"TOTAL", "", s.Total.JobCount, s.Total.RunningJobs, s.Total.PendingJobs,
		s.Total.NodeCount, s.Total.TaskCount, s.Total.CPUCount,
		slurmaddons.FormatMemoryMB(s.Total.MemoryMB))
}
