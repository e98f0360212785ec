package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/user"
	"slices"
	"strconv"
	"time"

	slurmaddons "github.com/patirot/ud-slurm-addons"
	"github.com/patirot/ud-slurm-addons/config"
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

var groupFlag = flag.String("g", "", "Workgroup (account) to show. Defaults to your UNIX group.")
var formatFlag = flag.String("f", "", "Output format: table, csv, json or yaml.")
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
	slog.Debug("qquota started", "version", buildVersion, "dateBuilt", buildDate, "commitBuilt", buildCommit)

	if *showVersion {
		fmt.Printf("qquota (slurm-addons) %v git-%v. Built %v\n", buildVersion, buildCommit, buildDate)
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

	account := *groupFlag
	if account == "" {
		account, err = defaultAccount()
		if err != nil {
			slog.Error("failed to find your workgroup, pass -g", "err", err)
			os.Exit(1)
		}
	}

	client, cleanup := newClient(cfg)
	defer cleanup()

	assocs, err := client.Associations(context.Background(), account)
	if err != nil {
		// A failed query degrades the report to an empty one, it does
		// not abort the run.
		slog.Error("failed to list limits", "err", err)
	}

	printAssociations(format, account, assocs)
}

// defaultAccount is the caller's primary UNIX group. Workgroups and
// accounts share names on this cluster, one group per allocation.
func defaultAccount() (string, error) {
	u, err := user.Current()
	if err != nil {
		return "", err
	}
	g, err := user.LookupGroupId(u.Gid)
	if err != nil {
		return "", err
	}
	return g.Name, nil
}

func newClient(cfg *config.Config) (*slurm.Client, func()) {
	client := &slurm.Client{
		Timeout:      time.Duration(cfg.Timeout),
		SacctmgrPath: cfg.SacctmgrPath,
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

// limitRow is one resource ceiling, flattened for display.
type limitRow struct {
	scope    string
	resource string
	limit    string
}

func scopeColumn(a slurm.Association) string {
	s := a.Account
	if a.User != "" {
		s += "/" + a.User
	}
	if a.Partition != "" {
		s += "@" + a.Partition
	}
	return s
}

func flattenLimits(assocs []slurm.Association) []limitRow {
	var out []limitRow
	for _, a := range assocs {
		scope := scopeColumn(a)
		for _, key := range sortedKeys(a.Limits.TRES) {
			limit := strconv.FormatInt(a.Limits.TRES[key], 10)
			if key == "mem" {
				limit = slurmaddons.FormatMemoryMB(a.Limits.TRES[key])
			}
			out = append(out, limitRow{scope: scope, resource: key, limit: limit})
		}
		for _, key := range sortedKeys(a.Limits.GRES) {
			out = append(out, limitRow{
				scope:    scope,
				resource: "gres/" + key,
				limit:    strconv.FormatInt(a.Limits.GRES[key], 10),
			})
		}
		if a.GrpJobs > 0 {
			out = append(out, limitRow{scope: scope, resource: "jobs",
				limit: strconv.Itoa(a.GrpJobs)})
		}
	}
	return out
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func printAssociations(format render.Format, account string, assocs []slurm.Association) {
	switch format {
	case render.FormatJSON:
		if err := render.WriteJSON(os.Stdout, assocs); err != nil {
			slog.Error("failed to render json", "err", err)
			os.Exit(1)
		}
	case render.FormatYAML:
		if err := render.WriteYAML(os.Stdout, assocs); err != nil {
			slog.Error("failed to render yaml", "err", err)
			os.Exit(1)
		}
	case render.FormatCSV:
		header := []string{"scope", "resource", "limit"}
		var rows [][]string
		for _, r := range flattenLimits(assocs) {
			rows = append(rows, []string{r.scope, r.resource, r.limit})
		}
		if err := render.WriteCSV(os.Stdout, header, rows); err != nil {
			slog.Error("failed to render csv", "err", err)
			os.Exit(1)
		}
	default:
		rows := flattenLimits(assocs)
		if len(rows) == 0 {
			fmt.Printf("no resource limits configured for %v\n", account)
			return
		}
		fmt.Printf("%-30v %-16v %v\n", "scope", "resource", "limit")
		for _, r := range rows {
			fmt.Printf("%-30v %-16v %v\n", r.scope, r.resource, r.limit)
		}
	}
}
