package ticket

import (
	"testing"
	"time"
)

// fixedClock always returns the same instant
type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

func TestWindowDerivation(t *testing.T) {

	base := time.Unix(30000, 0)
	clock := fixedClock{now: base}

	w := CurrentWindow(clock)
	if w != 1000 {
		t.Fatalf("Expected window 1000, got %d", w)
	}

	// any instant within the same epoch yields the same window
	if WindowAt(base.Add(29*time.Second)) != w {
		t.Fatal("Two instants of the same epoch produced different windows")
	}

	// the next epoch yields the next window
	if WindowAt(base.Add(30*time.Second)) != w+1 {
		t.Fatal("The next epoch did not produce the next window")
	}
}

func TestSystemClockWindow(t *testing.T) {

	w := CurrentWindow(SystemClock)
	expected := time.Now().Unix() / RotationSeconds
	// allow an epoch rollover between the two reads
	if w != expected && w != expected-1 {
		t.Fatalf("System clock window %d too far from %d", w, expected)
	}
}
