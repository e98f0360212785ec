// Package config loads the optional slurm-addons configuration file.
//
// The file is YAML and is looked for at $SLURM_ADDONS_CONFIG, then
// ~/.config/slurm-addons/config.yaml, then
// /etc/slurm-addons/config.yaml. No file at all is fine; every setting
// has a usable default.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML can spell timeouts as "45s" or
// as a bare number of seconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	// Decoding into a string succeeds for any scalar node, so a bare
	// int arrives here as its digits.
	var s string
	if err := n.Decode(&s); err != nil {
		return err
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(time.Duration(secs) * time.Second)
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("bad duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// Remote describes an SSH gateway to run the scheduler commands on,
// for hosts that do not have the SLURM client tools installed.
type Remote struct {
	Host    string `yaml:"host"`
	User    string `yaml:"user"`
	KeyFile string `yaml:"keyFile"`
}

type Config struct {
	// ClusterName is shown in page titles and table headers. Empty
	// means ask the scheduler environment.
	ClusterName string `yaml:"clusterName"`
	// Format is the default output format for commands that take -f.
	Format string `yaml:"format"`
	// Timeout bounds each scheduler command. Zero keeps the built in
	// default.
	Timeout Duration `yaml:"timeout"`
	// RecordDB is the sqlite file qstat -record writes. Empty means
	// the per user default path.
	RecordDB string `yaml:"recordDB"`

	// Absolute paths for the scheduler commands, when they are not on
	// PATH.
	SqueuePath   string `yaml:"squeuePath"`
	SinfoPath    string `yaml:"sinfoPath"`
	ScontrolPath string `yaml:"scontrolPath"`
	SacctmgrPath string `yaml:"sacctmgrPath"`

	Remote *Remote `yaml:"remote"`
}

func Default() *Config {
	return &Config{Format: "table"}
}

// Load finds and parses the configuration file. A path pinned through
// $SLURM_ADDONS_CONFIG must exist; the search path locations may be
// absent.
func Load() (*Config, error) {
	if path := os.Getenv("SLURM_ADDONS_CONFIG"); path != "" {
		return loadFile(path)
	}
	var candidates []string
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates,
			filepath.Join(home, ".config", "slurm-addons", "config.yaml"))
	}
	candidates = append(candidates, "/etc/slurm-addons/config.yaml")
	for _, path := range candidates {
		cfg, err := loadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		return cfg, err
	}
	return Default(), nil
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %v: %w", path, err)
	}
	return cfg, nil
}
