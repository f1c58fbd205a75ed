package expdecay

import (
	"math"
	"testing"
	"time"
)

func fixedClock(t *Tracker) *time.Time {
	now := time.Unix(1_700_000_000, 0)
	t.now = func() time.Time { return now }
	return &now
}

func TestScore_AccumulatesWithoutDecayAtSameInstant(t *testing.T) {
	tr := New(time.Minute)
	fixedClock(tr)

	for i := 0; i < 5; i++ {
		tr.Inc("s1")
	}
	if got := tr.Score("s1"); got != 5 {
		t.Fatalf("Score = %v, want 5", got)
	}
	if got := tr.Score("other"); got != 0 {
		t.Fatalf("unseen scene Score = %v, want 0", got)
	}
}

func TestScore_HalvesAfterOneHalfLife(t *testing.T) {
	tr := New(time.Minute)
	now := fixedClock(tr)

	for i := 0; i < 8; i++ {
		tr.Inc("s1")
	}
	*now = now.Add(time.Minute)

	if got := tr.Score("s1"); math.Abs(got-4) > 1e-9 {
		t.Fatalf("Score after one half-life = %v, want 4", got)
	}

	*now = now.Add(time.Minute)
	if got := tr.Score("s1"); math.Abs(got-2) > 1e-9 {
		t.Fatalf("Score after two half-lives = %v, want 2", got)
	}
}

func TestInc_DecaysBeforeAdding(t *testing.T) {
	tr := New(time.Minute)
	now := fixedClock(tr)

	tr.Inc("s1")
	tr.Inc("s1")
	*now = now.Add(time.Minute)
	tr.Inc("s1")

	// 2 halved to 1, plus the new hit
	if got := tr.Score("s1"); math.Abs(got-2) > 1e-9 {
		t.Fatalf("Score = %v, want 2", got)
	}
}

func TestReset_DropsScenes(t *testing.T) {
	tr := New(time.Minute)
	fixedClock(tr)

	tr.Inc("s1")
	tr.Inc("s2")
	tr.Reset("s1", "", "never-seen")

	if got := tr.Score("s1"); got != 0 {
		t.Fatalf("Score after Reset = %v, want 0", got)
	}
	if got := tr.Score("s2"); got != 1 {
		t.Fatalf("unrelated scene Score = %v, want 1", got)
	}
}

func TestInc_IgnoresEmptyScene(t *testing.T) {
	tr := New(time.Minute)
	fixedClock(tr)
	tr.Inc("")
	if got := tr.Score(""); got != 0 {
		t.Fatalf("Score(\"\") = %v", got)
	}
}
