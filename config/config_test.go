package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestDurationUnmarshal(t *testing.T) {
	for _, tc := range []struct {
		input     string
		expected  time.Duration
		shouldErr bool
	}{
		{input: "timeout: 45s", expected: 45 * time.Second},
		{input: "timeout: 2m", expected: 2 * time.Minute},
		{input: "timeout: 45", expected: 45 * time.Second},
		{input: `timeout: "45"`, expected: 45 * time.Second},
		{input: "timeout: soon", shouldErr: true},
	} {
		var doc struct {
			Timeout Duration `yaml:"timeout"`
		}
		err := yaml.Unmarshal([]byte(tc.input), &doc)
		if tc.shouldErr {
			if err == nil {
				t.Errorf("input %v should produce error but did not", tc.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("input %v should not produce error, got %v", tc.input, err)
		}
		if time.Duration(doc.Timeout) != tc.expected {
			t.Errorf("input %v: expected %v, got %v", tc.input, tc.expected, doc.Timeout)
		}
	}
}

func TestLoadPinnedPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `clusterName: caviness
format: json
timeout: 10s
squeuePath: /opt/slurm/bin/squeue
remote:
  host: login01
  user: traine
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SLURM_ADDONS_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ClusterName != "caviness" || cfg.Format != "json" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if time.Duration(cfg.Timeout) != 10*time.Second {
		t.Errorf("expected 10s timeout, got %v", cfg.Timeout)
	}
	if cfg.SqueuePath != "/opt/slurm/bin/squeue" {
		t.Errorf("unexpected squeue path %v", cfg.SqueuePath)
	}
	if cfg.Remote == nil || cfg.Remote.Host != "login01" || cfg.Remote.User != "traine" {
		t.Errorf("unexpected remote: %+v", cfg.Remote)
	}
}

func TestLoadPinnedPathMissing(t *testing.T) {
	t.Setenv("SLURM_ADDONS_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))
	if _, err := Load(); err == nil {
		t.Error("expected error for a pinned path that does not exist")
	}
}

func TestLoadDefaultsKept(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("clusterName: x\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SLURM_ADDONS_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Format != "table" {
		t.Errorf("expected default format kept, got %v", cfg.Format)
	}
	if cfg.Timeout != 0 {
		t.Errorf("expected zero timeout meaning unset, got %v", cfg.Timeout)
	}
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(":\tnot yaml"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SLURM_ADDONS_CONFIG", path)
	if _, err := Load(); err == nil {
		t.Error("expected error for unparseable config")
	}
}
