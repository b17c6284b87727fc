package snapshot

import (
	"testing"
	"time"
)

func TestEventCountStrategy(t *testing.T) {
	s := EventCountStrategy{N: 10}
	if s.ShouldSnapshot("agg", 9, time.Time{}, 0) {
		t.Fatalf("should not trigger before N events")
	}
	if !s.ShouldSnapshot("agg", 10, time.Time{}, 0) {
		t.Fatalf("should trigger at exactly N events")
	}
}

func TestTimeBasedStrategy(t *testing.T) {
	s := TimeBasedStrategy{MaxAge: time.Hour}
	if !s.ShouldSnapshot("agg", 1, time.Time{}, 0) {
		t.Fatalf("should trigger with no prior snapshot")
	}
	if s.ShouldSnapshot("agg", 1, time.Now(), 0) {
		t.Fatalf("should not trigger immediately after a snapshot")
	}
	if !s.ShouldSnapshot("agg", 1, time.Now().Add(-2*time.Hour), 0) {
		t.Fatalf("should trigger once older than MaxAge")
	}
}

func TestHybridStrategyORs(t *testing.T) {
	h := NewDefault(10, time.Hour)
	if !h.ShouldSnapshot("agg", 10, time.Now(), 0) {
		t.Fatalf("event-count threshold should still trigger within hybrid")
	}
	if !h.ShouldSnapshot("agg", 1, time.Now().Add(-2*time.Hour), 0) {
		t.Fatalf("time threshold should still trigger within hybrid")
	}
	if h.ShouldSnapshot("agg", 1, time.Now(), 0) {
		t.Fatalf("neither threshold met, should not trigger")
	}
}
