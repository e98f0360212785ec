package slurm

import "testing"

const sacctmgrFixture = `it_css|||cpu=720,mem=5120G,gres/gpu=8|
it_css||standard|cpu=400|20
it_css|traine|standard||
biomix|||cpu=1200,node=20,gres/gpu:a100=2|
broken|row
bogus|||cpu=abc|
`

func TestParseAssociationRows(t *testing.T) {
	assocs := parseAssociationRows(sacctmgrFixture)
	if len(assocs) != 4 {
		t.Fatalf("expected 4 rows after dropping bad ones, got %v", len(assocs))
	}

	acct := assocs[0]
	if acct.Account != "it_css" || acct.User != "" || acct.Partition != "" {
		t.Errorf("unexpected identity on account row: %+v", acct)
	}
	if acct.Limits.TRES["cpu"] != 720 {
		t.Errorf("expected cpu=720, got %v", acct.Limits.TRES["cpu"])
	}
	if acct.Limits.TRES["mem"] != 5120*1024 {
		t.Errorf("expected 5120G in MB, got %v", acct.Limits.TRES["mem"])
	}
	if acct.Limits.GRES["gpu"] != 8 {
		t.Errorf("expected gres/gpu=8, got %v", acct.Limits.GRES["gpu"])
	}
	if acct.GrpJobs != 0 {
		t.Errorf("expected empty GrpJobs to decode as 0, got %v", acct.GrpJobs)
	}

	part := assocs[1]
	if part.Partition != "standard" || part.GrpJobs != 20 {
		t.Errorf("unexpected partition row: %+v", part)
	}

	member := assocs[2]
	if member.User != "traine" {
		t.Errorf("expected member row, got %+v", member)
	}
	if len(member.Limits.TRES) != 0 || len(member.Limits.GRES) != 0 {
		t.Errorf("expected empty limits for member row, got %+v", member.Limits)
	}

	named := assocs[3]
	if named.Limits.GRES["gpu:a100"] != 2 {
		t.Errorf("expected named gres kept, got %+v", named.Limits.GRES)
	}
	if named.Limits.TRES["node"] != 20 {
		t.Errorf("expected node=20, got %v", named.Limits.TRES["node"])
	}
}
