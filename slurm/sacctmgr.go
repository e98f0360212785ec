package slurm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	slurmaddons "github.com/patirot/ud-slurm-addons"
)

// Association is one row of the accounting database's limit table. A
// row with an empty User carries the account-wide limits; rows with a
// User carry that member's own limits. GrpJobs of zero means the
// database has no job cap for the row.
type Association struct {
	Account   string                  `json:"account" yaml:"account"`
	User      string                  `json:"user,omitempty" yaml:"user,omitempty"`
	Partition string                  `json:"partition,omitempty" yaml:"partition,omitempty"`
	Limits    slurmaddons.GroupLimits `json:"limits" yaml:"limits"`
	GrpJobs   int                     `json:"grp_jobs,omitempty" yaml:"grp_jobs,omitempty"`
}

var sacctmgrFormat = []string{"Account", "User", "Partition", "GrpTRES", "GrpJobs"}

// Associations lists the limit rows for one account, or for every
// account when account is empty.
func (c *Client) Associations(ctx context.Context, account string) ([]Association, error) {
	args := []string{"-nP", "show", "association",
		"format=" + strings.Join(sacctmgrFormat, ",")}
	if account != "" {
		args = append(args, "where", "account="+account)
	}
	out, err := c.run(ctx, pathOr(c.SacctmgrPath, "sacctmgr"), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list associations: %w", err)
	}
	return parseAssociationRows(string(out)), nil
}

func parseAssociationRows(out string) []Association {
	var assocs []Association
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		a, err := parseAssociationRow(line)
		if err != nil {
			slog.Warn("dropping sacctmgr row", "err", err, "row", line)
			continue
		}
		assocs = append(assocs, a)
	}
	return assocs
}

func parseAssociationRow(line string) (Association, error) {
	parts := strings.Split(line, "|")
	if len(parts) != len(sacctmgrFormat) {
		return Association{}, fmt.Errorf("%w: got %d fields, want %d",
			slurmaddons.ErrRowShapeMismatch, len(parts), len(sacctmgrFormat))
	}
	limits, err := slurmaddons.ParseGroupLimits(parts[3])
	if err != nil {
		return Association{}, fmt.Errorf("bad GrpTRES %q: %w", parts[3], err)
	}
	return Association{
		Account:   parts[0],
		User:      parts[1],
		Partition: parts[2],
		Limits:    limits,
		GrpJobs:   atoiOr0(parts[4]),
	}, nil
}
