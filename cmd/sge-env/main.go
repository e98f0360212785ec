package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"github.com/patirot/ud-slurm-addons/config"
	"github.com/patirot/ud-slurm-addons/sgeenv"
)

var exportMode = flag.Bool("export", false, "Print shell export lines instead of NAME=value pairs.")
var execMode = flag.Bool("exec", false, "Run the remaining arguments as a command with the translated variables set.")
var chdirWorkdir = flag.Bool("cwd", false, "With -exec, change to SGE_O_WORKDIR before running the command.")
var debug = flag.Bool("debug", false, "Enable debug logging.")

func main() {
	flag.Parse()
	logOpts := slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	if *debug {
		logOpts.Level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &logOpts)))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	vars := sgeenv.Translate(getenv(cfg))

	if *execMode {
		runChild(vars, flag.Args())
		return
	}
	if flag.NArg() > 0 {
		slog.Error("arguments given without -exec", "args", flag.Args())
		os.Exit(1)
	}
	for _, v := range vars {
		if *exportMode {
			fmt.Println(v.ExportLine())
		} else {
			fmt.Printf("%v=%v\n", v.Name, v.Value)
		}
	}
}

// getenv reads the process environment, falling back to the configured
// cluster name when slurmd did not provide one.
func getenv(cfg *config.Config) func(string) string {
	return func(name string) string {
		v := os.Getenv(name)
		if v == "" && name == "SLURM_CLUSTER_NAME" {
			return cfg.ClusterName
		}
		return v
	}
}

func runChild(vars []sgeenv.Var, argv []string) {
	if len(argv) == 0 {
		slog.Error("-exec needs a command to run")
		os.Exit(1)
	}
	if *chdirWorkdir {
		for _, v := range vars {
			if v.Name == "SGE_O_WORKDIR" && v.Value != "" {
				if err := os.Chdir(v.Value); err != nil {
					slog.Error("failed to change to the submit directory", "err", err)
					os.Exit(1)
				}
			}
		}
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Env = append(os.Environ(), sgeenv.Environ(vars)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	err := cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		os.Exit(exitErr.ExitCode())
	}
	if err != nil {
		slog.Error("failed to run command", "err", err, "command", argv[0])
		os.Exit(1)
	}
}
