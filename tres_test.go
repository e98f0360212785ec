package slurmaddons

import (
	"testing"
)

func TestParseMemoryMB(t *testing.T) {
	for _, tc := range []struct {
		in        string
		out       int64
		shouldErr bool
	}{
		{in: "0", out: 0},
		{in: "512", out: 512},
		{in: "4000M", out: 4000},
		{in: "2G", out: 2048},
		{in: "1T", out: 1048576},
		{in: "0.5G", out: 512},
		{in: "4000Mn", out: 4000},
		{in: "300Mc", out: 300},
		{in: " 2G ", out: 2048},
		{in: "2g", out: 2048},
		{in: "", shouldErr: true},
		{in: "whatever", shouldErr: true},
		{in: "-5M", shouldErr: true},
		{in: "G", shouldErr: true},
	} {
		out, err := ParseMemoryMB(tc.in)
		if tc.shouldErr {
			if err == nil {
				t.Errorf("input %q should produce error but did not", tc.in)
			}
		} else {
			if err != nil {
				t.Errorf("input %q should not produce error but it did: %v", tc.in, err)
			} else if out != tc.out {
				t.Errorf("input %q should produce %v but it produced %v", tc.in, tc.out, out)
			}
		}
	}
}

func TestFormatMemoryMB(t *testing.T) {
	for _, tc := range []struct {
		in  int64
		out string
	}{
		{in: 0, out: "0M"},
		{in: 512, out: "512M"},
		{in: 4000, out: "4000M"},
		{in: 2048, out: "2G"},
		{in: 5242880, out: "5T"},
		{in: 1048576, out: "1T"},
	} {
		out := FormatMemoryMB(tc.in)
		if out != tc.out {
			t.Errorf("input %v should format as %v but got %v", tc.in, tc.out, out)
		}
	}
}

func TestParseGroupLimits(t *testing.T) {
	gl, err := ParseGroupLimits("cpu=720,mem=5120G,gres/gpu=8,gres/gpu:a100=2,node=20")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gl.TRES["cpu"] != 720 {
		t.Errorf("cpu limit should be 720 but got %v", gl.TRES["cpu"])
	}
	if gl.TRES["mem"] != 5120*1024 {
		t.Errorf("mem limit should normalize to %v MB but got %v", 5120*1024, gl.TRES["mem"])
	}
	if gl.TRES["node"] != 20 {
		t.Errorf("node limit should be 20 but got %v", gl.TRES["node"])
	}
	if gl.GRES["gpu"] != 8 {
		t.Errorf("gpu gres should be 8 but got %v", gl.GRES["gpu"])
	}
	if gl.GRES["gpu:a100"] != 2 {
		t.Errorf("gpu:a100 gres should be 2 but got %v", gl.GRES["gpu:a100"])
	}
	if len(gl.TRES) != 3 || len(gl.GRES) != 2 {
		t.Errorf("unexpected extra entries: %+v", gl)
	}
}

func TestParseGroupLimitsEmpty(t *testing.T) {
	gl, err := ParseGroupLimits("")
	if err != nil {
		t.Fatalf("empty spec should parse but got: %v", err)
	}
	if len(gl.TRES) != 0 || len(gl.GRES) != 0 {
		t.Errorf("empty spec should give empty limits but got %+v", gl)
	}
}

func TestParseGroupLimitsBad(t *testing.T) {
	for _, in := range []string{
		"cpu",
		"cpu=abc",
		"mem=junk",
		"gres/gpu=x",
	} {
		if _, err := ParseGroupLimits(in); err == nil {
			t.Errorf("input %q should produce error but did not", in)
		}
	}
}
