package graph

import "testing"

func TestContainsCompletionMarker(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"exact", "TASK_COMPLETE", true},
		{"lowercase", "task_complete", true},
		{"embedded in prose", "All done. TASK_COMPLETE. The file was saved.", true},
		{"whitespace inside marker", "TASK _ COMPLETE", true},
		{"mixed case split", "Task_ Complete", true},
		{"absent", "the task is almost complete", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := containsCompletionMarker(tt.text, DefaultCompletionMarker); got != tt.want {
				t.Fatalf("containsCompletionMarker(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}

	if containsCompletionMarker("anything", "") {
		t.Fatal("an empty marker must never match")
	}
}

func TestClassifyFailures(t *testing.T) {
	t.Parallel()

	failed := func(msg string) ToolResult {
		return ToolResult{Failed: true, Error: msg}
	}
	ok := ToolResult{Summary: "done"}

	tests := []struct {
		name    string
		results []ToolResult
		want    ErrorClass
	}{
		{"no results", nil, ErrNone},
		{"all succeeded", []ToolResult{ok, ok}, ErrNone},
		{"timeout is transient", []ToolResult{failed("command timed out after 30s")}, ErrTransient},
		{"connection refused is transient", []ToolResult{failed("dial tcp: connection refused")}, ErrTransient},
		{"unknown error is permanent", []ToolResult{failed("element not found")}, ErrPermanent},
		{"rate limit is resource", []ToolResult{failed("429 rate limit exceeded")}, ErrResource},
		{"disk full is resource", []ToolResult{failed("write /tmp/out: disk full")}, ErrResource},
		{
			name:    "resource dominates permanent",
			results: []ToolResult{failed("element not found"), failed("quota exceeded")},
			want:    ErrResource,
		},
		{
			name:    "permanent dominates transient",
			results: []ToolResult{failed("timed out"), failed("element not found")},
			want:    ErrPermanent,
		},
		{
			name:    "mixed success and failure still classifies",
			results: []ToolResult{ok, failed("temporarily unavailable")},
			want:    ErrTransient,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := classifyFailures(tt.results); got != tt.want {
				t.Fatalf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestResetIteration(t *testing.T) {
	t.Parallel()
	st := &State{
		Results:               []ToolResult{{Summary: "x"}},
		ErrorClass:            ErrPermanent,
		ScreenshotSkipped:     true,
		Stuck:                 true,
		StuckReason:           "reason",
		Iteration:             4,
		TotalRecoveryAttempts: 2,
	}
	st.resetIteration()
	if st.Results != nil || st.ErrorClass != ErrNone || st.ScreenshotSkipped || st.Stuck || st.StuckReason != "" {
		t.Fatalf("iteration fields not reset: %+v", st)
	}
	// Cross-iteration fields persist.
	if st.Iteration != 4 || st.TotalRecoveryAttempts != 2 {
		t.Fatal("persistent fields must survive the reset")
	}
}
