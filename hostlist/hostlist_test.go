package hostlist

import (
	"errors"
	"slices"
	"testing"
)

func TestExpand(t *testing.T) {
	for _, tc := range []struct {
		in  string
		out []string
	}{
		{in: "", out: nil},
		{in: "login1", out: []string{"login1"}},
		{in: "login1,login2", out: []string{"login1", "login2"}},
		{in: "n[9-11],d[01-02]", out: []string{"n9", "n10", "n11", "d01", "d02"}},
		{in: "n[01-03]", out: []string{"n01", "n02", "n03"}},
		{in: "n[8-10]", out: []string{"n8", "n9", "n10"}},
		{in: "n[5]", out: []string{"n5"}},
		{in: "n[1,3,5-6]", out: []string{"n1", "n3", "n5", "n6"}},
		{in: "a[1-3]b[1-2]", out: []string{"a1b1", "a1b2", "a2b1", "a2b2", "a3b1", "a3b2"}},
		{in: "x[1-2]y[1-3]", out: []string{"x1y1", "x1y2", "x1y3", "x2y1", "x2y2", "x2y3"}},
		{in: "rack[1-2]-node", out: []string{"rack1-node", "rack2-node"}},
		{in: "gpu[1-2].cluster.local", out: []string{"gpu1.cluster.local", "gpu2.cluster.local"}},
		{in: "n1,n1,n2", out: []string{"n1", "n2"}},
		{in: "n[1-3],n2", out: []string{"n1", "n2", "n3"}},
	} {
		out, err := Expand(tc.in)
		if err != nil {
			t.Errorf("input %q should not produce error but it did: %v", tc.in, err)
			continue
		}
		if !slices.Equal(out, tc.out) {
			t.Errorf("input %q should produce %v but it produced %v", tc.in, tc.out, out)
		}
	}
}

func TestExpandMalformed(t *testing.T) {
	for _, in := range []string{
		"n[1-2",
		"n[1[2-3]]",
		"n[5-2]",
		"n]",
		"n[]",
		"n[a-b]",
		"n[1-]",
		"n[1-999999999]",
		"n[1-70000]",
		"[1-300]x[1-300]",
		",n1",
		"n1,",
		"a,,b",
	} {
		_, err := Expand(in)
		if err == nil {
			t.Errorf("input %q should produce error but did not", in)
			continue
		}
		if !errors.Is(err, ErrMalformed) {
			t.Errorf("input %q should fail with ErrMalformed but got: %v", in, err)
		}
	}
}

func TestExpandWithOptions(t *testing.T) {
	out, err := ExpandWithOptions("n[9-11],d[01-02]", Options{Sort: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"d01", "d02", "n9", "n10", "n11"}
	if !slices.Equal(out, want) {
		t.Errorf("sorted expansion should be %v but got %v", want, out)
	}

	out, err = ExpandWithOptions("n1,n1,n2", Options{KeepDuplicates: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want = []string{"n1", "n1", "n2"}
	if !slices.Equal(out, want) {
		t.Errorf("duplicate-keeping expansion should be %v but got %v", want, out)
	}
}

func TestExpandCrossProductSize(t *testing.T) {
	out, err := Expand("a[1-3]b[1-2]")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 6 {
		t.Errorf("a[1-3]b[1-2] should expand to 6 names but got %d: %v", len(out), out)
	}
}

func TestExpandRangeList(t *testing.T) {
	for _, tc := range []struct {
		in        string
		out       []string
		shouldErr bool
	}{
		{in: "", out: nil},
		{in: "0", out: []string{"0"}},
		{in: "0-3", out: []string{"0", "1", "2", "3"}},
		{in: "0,2-3,7", out: []string{"0", "2", "3", "7"}},
		{in: "04-05", out: []string{"04", "05"}},
		{in: "1-", shouldErr: true},
		{in: "x", shouldErr: true},
		{in: "3-1", shouldErr: true},
		{in: "0-3,", shouldErr: true},
	} {
		out, err := ExpandRangeList(tc.in)
		if tc.shouldErr {
			if err == nil {
				t.Errorf("input %q should produce error but did not", tc.in)
			} else if !errors.Is(err, ErrMalformed) {
				t.Errorf("input %q should fail with ErrMalformed but got: %v", tc.in, err)
			}
		} else {
			if err != nil {
				t.Errorf("input %q should not produce error but it did: %v", tc.in, err)
			} else if !slices.Equal(out, tc.out) {
				t.Errorf("input %q should produce %v but it produced %v", tc.in, tc.out, out)
			}
		}
	}
}

func TestSortNumeric(t *testing.T) {
	for _, tc := range []struct {
		in  []string
		out []string
	}{
		{
			in:  []string{"n10", "n9", "n2", "d01"},
			out: []string{"d01", "n2", "n9", "n10"},
		},
		{
			in:  []string{"n9", "n11", "n10", "d02", "d01"},
			out: []string{"d01", "d02", "n9", "n10", "n11"},
		},
		{
			in:  []string{"d1", "d01"},
			out: []string{"d01", "d1"},
		},
		{
			in:  []string{"a2b10", "a2b2", "a10b1"},
			out: []string{"a2b2", "a2b10", "a10b1"},
		},
		{
			in:  []string{"login", "login1"},
			out: []string{"login", "login1"},
		},
	} {
		got := slices.Clone(tc.in)
		SortNumeric(got)
		if !slices.Equal(got, tc.out) {
			t.Errorf("sorting %v should give %v but got %v", tc.in, tc.out, got)
		}
	}
}
