package clock

import (
	"testing"
	"time"
)

func TestFakeClockAdvance(t *testing.T) {
	start := time.Date(2025, 4, 30, 23, 0, 0, 0, time.UTC)
	c := NewFakeClock(start)

	c.Advance(2 * time.Hour)
	if got := c.Now(); !got.Equal(start.Add(2 * time.Hour)) {
		t.Fatalf("expected %v, got %v", start.Add(2*time.Hour), got)
	}
	if c.Now().Month() != time.May {
		t.Fatalf("expected clock to roll into May")
	}
}

func TestSystemClockIsUTC(t *testing.T) {
	if loc := New().Now().Location(); loc != time.UTC {
		t.Fatalf("expected UTC, got %v", loc)
	}
}
