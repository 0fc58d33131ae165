package clock

import (
	"testing"
	"time"
)

func TestFixedAdvance(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewFixed(start)
	c.Advance(90 * time.Minute)
	if got := c.Now(); !got.Equal(start.Add(90 * time.Minute)) {
		t.Fatalf("unexpected time %v", got)
	}
	c.Set(start)
	if !c.Now().Equal(start) {
		t.Fatal("expected Set to pin the clock")
	}
}

func TestSystemIsUTC(t *testing.T) {
	if System().Now().Location() != time.UTC {
		t.Fatal("expected UTC")
	}
}
