package slurm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	slurmaddons "github.com/patirot/ud-slurm-addons"
)

// squeueFields is the fixed field order requested from squeue. Rows
// come back pipe delimited in exactly this order, and parseJobRow
// names each position for the record constructor.
var squeueFields = []struct {
	name string
	code string
}{
	{"jobid", "%i"},
	{"arraytaskid", "%K"},
	{"batchhost", "%B"},
	{"user", "%u"},
	{"account", "%a"},
	{"partition", "%P"},
	{"name", "%j"},
	{"state", "%t"},
	{"priority", "%Q"},
	{"starttime", "%S"},
	{"numnodes", "%D"},
	{"numcpus", "%C"},
	{"socketspernode", "%H"},
	{"corespersocket", "%I"},
	{"threadspercore", "%J"},
	{"minmemory", "%m"},
	{"gres", "%b"},
	{"nodelist", "%N"},
}

func squeueFormat() string {
	codes := make([]string, len(squeueFields))
	for i, f := range squeueFields {
		codes[i] = f.code
	}
	return strings.Join(codes, "|")
}

// JobFilter narrows a job listing. Empty fields are not passed to
// squeue at all, so the scheduler's own defaults apply.
type JobFilter struct {
	User      string
	Account   string
	Partition string
}

// Jobs lists jobs in the scheduler's reporting order. The records
// carry only the squeue columns; JobDetail fills in the task layout
// fields squeue cannot report.
func (c *Client) Jobs(ctx context.Context, f JobFilter) ([]*slurmaddons.JobRecord, error) {
	args := []string{"--noheader", "-o", squeueFormat()}
	if f.User != "" {
		args = append(args, "-u", f.User)
	}
	if f.Account != "" {
		args = append(args, "-A", f.Account)
	}
	if f.Partition != "" {
		args = append(args, "-p", f.Partition)
	}
	out, err := c.run(ctx, pathOr(c.SqueuePath, "squeue"), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return parseJobRows(string(out)), nil
}

// parseJobRows decodes pipe delimited squeue rows. A row whose field
// count does not match the requested format, or whose nodelist does
// not decode, is dropped with a warning rather than failing the whole
// listing.
func parseJobRows(out string) []*slurmaddons.JobRecord {
	var records []*slurmaddons.JobRecord
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r, err := parseJobRow(line)
		if err != nil {
			slog.Warn("dropping squeue row", "err", err, "row", line)
			continue
		}
		records = append(records, r)
	}
	return records
}

func parseJobRow(line string) (*slurmaddons.JobRecord, error) {
	parts := strings.Split(line, "|")
	if len(parts) != len(squeueFields) {
		return nil, fmt.Errorf("%w: got %d fields, want %d",
			slurmaddons.ErrRowShapeMismatch, len(parts), len(squeueFields))
	}
	fields := make(map[string]string, len(parts))
	for i, f := range squeueFields {
		fields[f.name] = parts[i]
	}
	return slurmaddons.NewJobRecord(fields)
}
