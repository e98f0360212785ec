// Package sgeenv derives the Grid Engine environment variables that
// migrated job scripts still read from the SLURM job environment.
package sgeenv

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/patirot/ud-slurm-addons/hostlist"
)

// Var is one translated environment variable.
type Var struct {
	Name  string
	Value string
}

// Translate maps a SLURM job environment to its Grid Engine
// equivalents. getenv is usually os.Getenv; tests pass a map lookup.
//
// A variable whose SLURM source is unset or empty is left out, except
// NQUEUES, NHOSTS and NSLOTS, which Grid Engine always defined and so
// always translate (defaulting to 1). For array jobs JOB_ID is the
// array master id and the SGE_TASK_* variables describe the task
// range; for plain jobs JOB_ID is the job id and no SGE_TASK_*
// variables appear.
func Translate(getenv func(string) string) []Var {
	var vars []Var
	add := func(name, value string) {
		vars = append(vars, Var{Name: name, Value: value})
	}
	copyVar := func(sge, slurm string) {
		if v := getenv(slurm); v != "" {
			add(sge, v)
		}
	}

	copyVar("SGE_CLUSTER_NAME", "SLURM_CLUSTER_NAME")
	copyVar("SGE_O_WORKDIR", "SLURM_SUBMIT_DIR")
	copyVar("SGE_O_HOST", "SLURM_SUBMIT_HOST")

	if arrayID := getenv("SLURM_ARRAY_JOB_ID"); arrayID != "" {
		add("JOB_ID", arrayID)
		copyVar("SGE_TASK_ID", "SLURM_ARRAY_TASK_ID")
		copyVar("SGE_TASK_FIRST", "SLURM_ARRAY_TASK_MIN")
		copyVar("SGE_TASK_LAST", "SLURM_ARRAY_TASK_MAX")
		copyVar("SGE_TASK_STEPSIZE", "SLURM_ARRAY_TASK_STEP")
	} else if jobID := getenv("SLURM_JOB_ID"); jobID != "" {
		add("JOB_ID", jobID)
	}

	copyVar("JOB_NAME", "SLURM_JOB_NAME")
	copyVar("QUEUE", "SLURM_JOB_PARTITION")
	add("NQUEUES", "1")

	if n := getenv("SLURM_JOB_NUM_NODES"); n != "" {
		add("NHOSTS", n)
	} else {
		add("NHOSTS", "1")
	}

	// No PE_HOSTFILE. Tightly integrated MPI launchers probe for it
	// and would misdetect a Grid Engine cluster.
	add("NSLOTS", strconv.Itoa(hostlist.SumCounts(getenv("SLURM_JOB_CPUS_PER_NODE"))))

	return vars
}

// Environ renders the variables as NAME=value pairs, ready to append
// to a child process environment.
func Environ(vars []Var) []string {
	env := make([]string, len(vars))
	for i, v := range vars {
		env[i] = v.Name + "=" + v.Value
	}
	return env
}

// ExportLine renders the variable as a bourne shell export statement
// with the value single quoted.
func (v Var) ExportLine() string {
	return fmt.Sprintf("export %s='%s'", v.Name,
		strings.ReplaceAll(v.Value, "'", `'\''`))
}
