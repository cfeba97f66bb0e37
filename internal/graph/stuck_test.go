package graph

import (
	"strings"
	"testing"
)

func TestStuckNeedsFullWindow(t *testing.T) {
	t.Parallel()
	d := NewStuckDetector(3, 10)

	d.ObserveScreen(0xABCD, "tree")
	d.ObserveScreen(0xABCD, "tree")
	if stuck, _ := d.Detect(); stuck {
		t.Fatal("two observations must not trigger a window of three")
	}
	d.ObserveScreen(0xABCD, "tree")
	stuck, reason := d.Detect()
	if !stuck {
		t.Fatal("three identical observations should be stuck")
	}
	if !strings.Contains(reason, "visually unchanged") {
		t.Fatalf("reason = %q", reason)
	}
}

func TestStuckWithinHammingTolerance(t *testing.T) {
	t.Parallel()
	d := NewStuckDetector(3, 10)

	base := uint64(0xFFFF)
	d.ObserveScreen(base, "tree")
	d.ObserveScreen(base^0b11, "tree")    // distance 2
	d.ObserveScreen(base^0b11100, "tree") // distance 3
	if stuck, _ := d.Detect(); !stuck {
		t.Fatal("hashes within tolerance of the first should be stuck")
	}
}

func TestNotStuckBeyondTolerance(t *testing.T) {
	t.Parallel()
	d := NewStuckDetector(3, 10)

	d.ObserveScreen(0, "tree")
	d.ObserveScreen(0x7FF, "tree") // distance 11, just past tolerance
	d.ObserveScreen(0, "tree")
	if stuck, _ := d.Detect(); stuck {
		t.Fatal("a hash beyond the tolerance must break the window")
	}
}

func TestChangingTreeBlocksScreenshotRule(t *testing.T) {
	t.Parallel()
	d := NewStuckDetector(3, 10)

	// Visually static but the AX tree keeps changing, as when text is being
	// typed into a field.
	d.ObserveScreen(0xABCD, "field: h")
	d.ObserveScreen(0xABCD, "field: he")
	d.ObserveScreen(0xABCD, "field: hel")
	if stuck, _ := d.Detect(); stuck {
		t.Fatal("a changing tree means progress, not stuck")
	}
}

func TestTextStuckRule(t *testing.T) {
	t.Parallel()
	d := NewStuckDetector(3, 10)

	// Normalization makes case and whitespace differences equal.
	d.ObserveResponse("I will click the button")
	d.ObserveResponse("i will  click the button")
	d.ObserveResponse("I WILL CLICK THE BUTTON")
	stuck, reason := d.Detect()
	if !stuck {
		t.Fatal("three equivalent responses should be stuck")
	}
	if !strings.Contains(reason, "repeated") {
		t.Fatalf("reason = %q", reason)
	}
}

func TestTextNotStuckWhenResponsesDiffer(t *testing.T) {
	t.Parallel()
	d := NewStuckDetector(3, 10)

	d.ObserveResponse("clicking the login button")
	d.ObserveResponse("typing the username")
	d.ObserveResponse("pressing enter")
	if stuck, _ := d.Detect(); stuck {
		t.Fatal("distinct responses must not be stuck")
	}
}

func TestClearResetsWindows(t *testing.T) {
	t.Parallel()
	d := NewStuckDetector(3, 10)

	for i := 0; i < 3; i++ {
		d.ObserveScreen(0x1234, "tree")
		d.ObserveResponse("same thing")
	}
	if stuck, _ := d.Detect(); !stuck {
		t.Fatal("setup should be stuck")
	}
	d.Clear()
	if stuck, _ := d.Detect(); stuck {
		t.Fatal("cleared detector must not report stuck")
	}
}

func TestWindowSlides(t *testing.T) {
	t.Parallel()
	d := NewStuckDetector(3, 10)

	d.ObserveScreen(0, "a")
	d.ObserveScreen(0xFFFFFFFF, "b")
	// Three more identical observations push the differing ones out.
	d.ObserveScreen(0x42, "c")
	d.ObserveScreen(0x42, "c")
	d.ObserveScreen(0x42, "c")
	if stuck, _ := d.Detect(); !stuck {
		t.Fatal("the window should only hold the last three observations")
	}
}
