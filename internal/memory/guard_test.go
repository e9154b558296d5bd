package memory

import "testing"

func TestGuard_Disabled(t *testing.T) {
	g := NewGuard(0)
	called := false
	g.WithSampler(func() uint64 { called = true; return 1 << 40 }, nil)

	released, used := g.Check()
	if released || used != 0 || called {
		t.Errorf("disabled guard sampled: released=%v used=%d called=%v", released, used, called)
	}

	var nilGuard *Guard
	if r, _ := nilGuard.Check(); r {
		t.Error("nil guard must not release")
	}
	if nilGuard.Releases() != 0 || nilGuard.Peak() != 0 || nilGuard.LimitBytes() != 0 {
		t.Error("nil guard accessors must return zero")
	}
}

func TestGuard_ReleasesAboveCeiling(t *testing.T) {
	usage := []uint64{10 << 20, 200 << 20, 50 << 20}
	i := 0
	releases := 0
	g := NewGuard(100).WithSampler(
		func() uint64 { v := usage[i]; i++; return v },
		func() { releases++ },
	)

	want := []bool{false, true, false}
	for step, w := range want {
		got, _ := g.Check()
		if got != w {
			t.Errorf("step %d: released = %v, want %v", step, got, w)
		}
	}
	if releases != 1 || g.Releases() != 1 {
		t.Errorf("releases = %d / %d, want 1", releases, g.Releases())
	}
	if g.Peak() != 200<<20 {
		t.Errorf("Peak() = %d", g.Peak())
	}
	if g.LimitBytes() != 100<<20 {
		t.Errorf("LimitBytes() = %d", g.LimitBytes())
	}
}

func TestHeapAlloc(t *testing.T) {
	if HeapAlloc() == 0 {
		t.Error("HeapAlloc returned 0")
	}
}
