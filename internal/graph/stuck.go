package graph

import (
	"fmt"
	"strings"

	"github.com/deskpilot-core/deskpilot/internal/vision"
)

const (
	DefaultStuckWindow      = 3
	DefaultHammingTolerance = 10
)

// StuckDetector keeps three fixed-length rolling windows over recent
// iterations: screenshot hashes, UI-tree summaries, and normalized model
// responses. Either the screenshot rule or the text rule alone is enough to
// report stuck.
type StuckDetector struct {
	window    int
	tolerance int
	hashes    []uint64
	trees     []string
	responses []string
}

func NewStuckDetector(window, tolerance int) *StuckDetector {
	if window <= 0 {
		window = DefaultStuckWindow
	}
	if tolerance <= 0 {
		tolerance = DefaultHammingTolerance
	}
	return &StuckDetector{window: window, tolerance: tolerance}
}

// ObserveScreen records one post-action screen observation. The hash and the
// tree are recorded as a pair so the two windows stay aligned.
func (d *StuckDetector) ObserveScreen(hash uint64, uiTree string) {
	d.hashes = push(d.hashes, hash, d.window)
	d.trees = push(d.trees, uiTree, d.window)
}

// ObserveResponse records one model response.
func (d *StuckDetector) ObserveResponse(text string) {
	d.responses = push(d.responses, normalizeResponse(text), d.window)
}

// Detect reports whether the recent windows show no meaningful change, with
// a human-readable reason.
func (d *StuckDetector) Detect() (bool, string) {
	if stuck, reason := d.screenshotStuck(); stuck {
		return true, reason
	}
	if stuck, reason := d.textStuck(); stuck {
		return true, reason
	}
	return false, ""
}

// screenshotStuck fires when every hash in a full window stays within the
// Hamming tolerance of the first one, and only if the UI-tree summaries are
// also identical. A visually static screen whose AX tree is still changing
// (incremental typing) is not stuck.
func (d *StuckDetector) screenshotStuck() (bool, string) {
	if len(d.hashes) < d.window {
		return false, ""
	}
	first := d.hashes[0]
	for _, h := range d.hashes[1:] {
		if vision.HammingDistance(first, h) > d.tolerance {
			return false, ""
		}
	}
	for _, tree := range d.trees[1:] {
		if tree != d.trees[0] {
			return false, ""
		}
	}
	return true, fmt.Sprintf("screen visually unchanged across last %d observations", d.window)
}

func (d *StuckDetector) textStuck() (bool, string) {
	if len(d.responses) < d.window {
		return false, ""
	}
	for _, r := range d.responses[1:] {
		if r != d.responses[0] {
			return false, ""
		}
	}
	return true, fmt.Sprintf("model response repeated %d times", d.window)
}

// Clear empties all three windows so detection restarts cleanly after a
// recovery attempt or step transition.
func (d *StuckDetector) Clear() {
	d.hashes = nil
	d.trees = nil
	d.responses = nil
}

func normalizeResponse(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

func push[T any](window []T, value T, size int) []T {
	window = append(window, value)
	if len(window) > size {
		window = window[len(window)-size:]
	}
	return window
}
