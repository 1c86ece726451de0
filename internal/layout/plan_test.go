package layout

import "testing"

func TestPlanCoversEveryEntryExactlyOnce(t *testing.T) {
	cases := []struct {
		n         int64
		entrySize int64
		l1        int64
		disk      int64
	}{
		{0, 8, 64, 1024},
		{1, 8, 64, 1024},
		{7, 8, 64, 1024},
		{100, 8, 64, 1024},
		{1000, 8, 64, 1024},
		{1 << 20, 8, 4096, 65536},
		{123457, 12, 512, 8192},
	}
	for _, c := range cases {
		plan, err := Plan(Params{N: c.n, EntrySize: c.entrySize, L1Bytes: c.l1, DiskBytes: c.disk})
		if err != nil {
			t.Fatalf("Plan(%+v): %v", c, err)
		}
		seen := make(map[int64]bool, c.n)
		for i := int64(0); i < c.n; i++ {
			off := plan.Locate(i)
			if off%c.entrySize != 0 {
				t.Fatalf("n=%d: Locate(%d)=%d not entry-aligned", c.n, i, off)
			}
			if off < 0 || off >= plan.BodySize {
				t.Fatalf("n=%d: Locate(%d)=%d out of body range [0,%d)", c.n, i, off, plan.BodySize)
			}
			if seen[off] {
				t.Fatalf("n=%d: offset %d produced by two different indices", c.n, off)
			}
			seen[off] = true
		}
		if int64(len(seen)) != c.n {
			t.Fatalf("n=%d: got %d distinct offsets, want %d", c.n, len(seen), c.n)
		}
		if plan.BodySize != c.n*c.entrySize {
			t.Fatalf("n=%d: BodySize=%d, want exactly %d (no padding)", c.n, plan.BodySize, c.n*c.entrySize)
		}
	}
}

func TestPlanLocateRankRoundTrip(t *testing.T) {
	plan, err := Plan(Params{N: 50000, EntrySize: 8, L1Bytes: 256, DiskBytes: 4096})
	if err != nil {
		t.Fatal(err)
	}
	for i := int64(0); i < plan.N; i += 37 {
		off := plan.Locate(i)
		if got := plan.Rank(off); got != i {
			t.Fatalf("Rank(Locate(%d))=%d, want %d", i, got, i)
		}
	}
}

func TestPlanInvariant3SumsToN(t *testing.T) {
	plan, err := Plan(Params{N: 987654, EntrySize: 16, L1Bytes: 1024, DiskBytes: 16384})
	if err != nil {
		t.Fatal(err)
	}
	sum := plan.Tail
	for _, lvl := range plan.Levels {
		sum += lvl.NMain
	}
	if sum != plan.N {
		t.Fatalf("sum of level NMain (%d) + tail (%d) = %d, want N=%d", sum-plan.Tail, plan.Tail, sum, plan.N)
	}
}
