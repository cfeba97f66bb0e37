package risk

import (
	"strings"
	"testing"
)

func TestRiskLevelOrdering(t *testing.T) {
	t.Parallel()
	if !(LevelSafe < LevelModerate && LevelModerate < LevelHigh && LevelHigh < LevelCritical) {
		t.Fatal("risk levels are not totally ordered")
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()
	for raw, want := range map[string]RiskLevel{
		"safe":     LevelSafe,
		"Moderate": LevelModerate,
		" HIGH ":   LevelHigh,
		"critical": LevelCritical,
	} {
		got, err := ParseLevel(raw)
		if err != nil {
			t.Fatalf("ParseLevel(%q): %v", raw, err)
		}
		if got != want {
			t.Fatalf("ParseLevel(%q) = %s, want %s", raw, got, want)
		}
	}
	if _, err := ParseLevel("severe"); err == nil {
		t.Fatal("ParseLevel accepted an unknown level")
	}
}

func TestClassifyClick(t *testing.T) {
	t.Parallel()
	c := NewClassifier(PermissionDefault)

	tests := []struct {
		name        string
		description string
		ctx         ActionContext
		wantLevel   RiskLevel
		wantGated   bool
	}{
		{
			name:        "financial phrase is critical",
			description: "Place Order button",
			wantLevel:   LevelCritical,
			wantGated:   true,
		},
		{
			name:        "pay now is critical",
			description: "Pay Now",
			wantLevel:   LevelCritical,
			wantGated:   true,
		},
		{
			name:        "irreversible phrase is high",
			description: "Delete conversation",
			wantLevel:   LevelHigh,
			wantGated:   true,
		},
		{
			name:        "send button is high",
			description: "Send",
			wantLevel:   LevelHigh,
			wantGated:   true,
		},
		{
			name:        "plain click in banking context is moderate",
			description: "Accounts tab",
			ctx:         ActionContext{CurrentURL: "https://www.chase.com/accounts"},
			wantLevel:   LevelModerate,
		},
		{
			name:        "plain click is safe",
			description: "Next page",
			wantLevel:   LevelSafe,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			call := ToolCall{Name: ToolClick, Input: map[string]string{"element_description": tt.description}}
			v, certain := c.Classify(call, tt.ctx)
			if !certain {
				t.Fatal("click classification should always be certain")
			}
			if v.Level != tt.wantLevel {
				t.Fatalf("level = %s, want %s (reason: %s)", v.Level, tt.wantLevel, v.Reason)
			}
			if v.RequiresApproval != tt.wantGated {
				t.Fatalf("RequiresApproval = %v, want %v", v.RequiresApproval, tt.wantGated)
			}
		})
	}
}

func TestClassifyTypeText(t *testing.T) {
	t.Parallel()
	c := NewClassifier(PermissionDefault)

	tests := []struct {
		name      string
		text      string
		ctx       ActionContext
		wantLevel RiskLevel
	}{
		{
			name:      "payment card number is critical",
			text:      "my card is 4111 1111 1111 1111",
			wantLevel: LevelCritical,
		},
		{
			name:      "ssn is critical",
			text:      "ssn 123-45-6789",
			wantLevel: LevelCritical,
		},
		{
			name:      "secure field is high",
			text:      "hunter2",
			ctx:       ActionContext{FocusedElementRole: "AXSecureTextField"},
			wantLevel: LevelHigh,
		},
		{
			name:      "checkout page is high",
			text:      "John Smith",
			ctx:       ActionContext{CurrentURL: "https://shop.example.com/checkout"},
			wantLevel: LevelHigh,
		},
		{
			name:      "sensitive label is high",
			text:      "0042",
			ctx:       ActionContext{FocusedElementLabel: "CVV"},
			wantLevel: LevelHigh,
		},
		{
			name:      "plain text is safe",
			text:      "hello world",
			wantLevel: LevelSafe,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			call := ToolCall{Name: ToolTypeText, Input: map[string]string{"text": tt.text}}
			v, _ := c.Classify(call, tt.ctx)
			if v.Level != tt.wantLevel {
				t.Fatalf("level = %s, want %s (reason: %s)", v.Level, tt.wantLevel, v.Reason)
			}
			if tt.wantLevel >= LevelHigh && !v.RequiresApproval {
				t.Fatal("high and critical verdicts must require approval")
			}
		})
	}
}

func TestClassifyPressKey(t *testing.T) {
	t.Parallel()
	c := NewClassifier(PermissionDefault)

	t.Run("enter after typing in messaging app", func(t *testing.T) {
		t.Parallel()
		ctx := ActionContext{
			ActiveAppName:   "Slack",
			RecentToolCalls: []RecentCall{{Name: ToolTypeText, Summary: "typed reply"}},
		}
		call := ToolCall{Name: ToolPressKey, Input: map[string]string{"key": "enter"}}
		v, _ := c.Classify(call, ctx)
		if v.Level != LevelHigh || !v.RequiresApproval {
			t.Fatalf("got level %s approval %v, want gated high", v.Level, v.RequiresApproval)
		}
		if !strings.Contains(v.ApprovalPrompt, "will send the typed message") {
			t.Fatalf("prompt %q should explain the send consequence", v.ApprovalPrompt)
		}
	})

	t.Run("enter in messaging app without prior typing is safe", func(t *testing.T) {
		t.Parallel()
		ctx := ActionContext{
			ActiveAppName:   "Slack",
			RecentToolCalls: []RecentCall{{Name: "scroll", Summary: "scrolled"}},
		}
		call := ToolCall{Name: ToolPressKey, Input: map[string]string{"key": "enter"}}
		v, _ := c.Classify(call, ctx)
		if v.Level != LevelSafe {
			t.Fatalf("level = %s, want safe", v.Level)
		}
	})

	t.Run("enter in confirmation dialog", func(t *testing.T) {
		t.Parallel()
		ctx := ActionContext{WindowTitle: "Are you sure you want to delete this file?"}
		call := ToolCall{Name: ToolPressKey, Input: map[string]string{"key": "return"}}
		v, _ := c.Classify(call, ctx)
		if v.Level != LevelHigh || !v.RequiresApproval {
			t.Fatalf("got level %s approval %v, want gated high", v.Level, v.RequiresApproval)
		}
	})

	t.Run("cmd delete is high", func(t *testing.T) {
		t.Parallel()
		call := ToolCall{Name: ToolPressKey, Input: map[string]string{"key": "delete", "modifiers": "cmd"}}
		v, _ := c.Classify(call, ActionContext{})
		if v.Level != LevelHigh || !v.RequiresApproval {
			t.Fatalf("got level %s approval %v, want gated high", v.Level, v.RequiresApproval)
		}
	})

	t.Run("tab key is safe", func(t *testing.T) {
		t.Parallel()
		call := ToolCall{Name: ToolPressKey, Input: map[string]string{"key": "tab"}}
		v, _ := c.Classify(call, ActionContext{WindowTitle: "Confirm delete"})
		if v.Level != LevelSafe {
			t.Fatalf("level = %s, want safe", v.Level)
		}
	})
}

func TestClassifyShellVerdicts(t *testing.T) {
	t.Parallel()
	c := NewClassifier(PermissionDefault)

	t.Run("read-only command is safe and certain", func(t *testing.T) {
		t.Parallel()
		call := ToolCall{Name: ToolShell, Input: map[string]string{"command": "ls -la"}}
		v, certain := c.Classify(call, ActionContext{})
		if !certain || v.Level != LevelSafe {
			t.Fatalf("got level %s certain %v, want certain safe", v.Level, certain)
		}
	})

	t.Run("dangerous command is critical and certain", func(t *testing.T) {
		t.Parallel()
		call := ToolCall{Name: ToolShell, Input: map[string]string{"command": "rm -rf /"}}
		v, certain := c.Classify(call, ActionContext{})
		if !certain || v.Level != LevelCritical || !v.RequiresApproval {
			t.Fatalf("got level %s certain %v approval %v", v.Level, certain, v.RequiresApproval)
		}
	})

	t.Run("categorized mutation carries cache key", func(t *testing.T) {
		t.Parallel()
		call := ToolCall{Name: ToolShell, Input: map[string]string{"command": "git push origin main"}}
		v, certain := c.Classify(call, ActionContext{})
		if !certain || v.Level != LevelHigh || !v.RequiresApproval {
			t.Fatalf("got level %s certain %v approval %v", v.Level, certain, v.RequiresApproval)
		}
		if v.SessionCacheKey != "shell:git_write" {
			t.Fatalf("cache key = %q, want shell:git_write", v.SessionCacheKey)
		}
	})

	t.Run("uncategorized mutation is uncertain", func(t *testing.T) {
		t.Parallel()
		call := ToolCall{Name: ToolShell, Input: map[string]string{"command": "ffmpeg -i in.mov out.mp4"}}
		v, certain := c.Classify(call, ActionContext{})
		if certain {
			t.Fatal("uncategorized mutation should escalate to the arbiter")
		}
		if v.Level != LevelHigh || !v.RequiresApproval {
			t.Fatalf("hint = %s approval %v, want gated high hint", v.Level, v.RequiresApproval)
		}
	})
}

func TestClassifyAppleScriptVerdicts(t *testing.T) {
	t.Parallel()
	c := NewClassifier(PermissionDefault)

	t.Run("tier two is moderate and ungated", func(t *testing.T) {
		t.Parallel()
		call := ToolCall{Name: ToolAppleScript, Input: map[string]string{"script": `tell application "Safari" to activate`}}
		v, certain := c.Classify(call, ActionContext{})
		if !certain || v.Level != LevelModerate || v.RequiresApproval {
			t.Fatalf("got level %s certain %v approval %v, want ungated moderate", v.Level, certain, v.RequiresApproval)
		}
	})

	t.Run("tier three is critical", func(t *testing.T) {
		t.Parallel()
		call := ToolCall{Name: ToolAppleScript, Input: map[string]string{"script": `tell application "Finder" to empty trash`}}
		v, _ := c.Classify(call, ActionContext{})
		if v.Level != LevelCritical || !v.RequiresApproval {
			t.Fatalf("got level %s approval %v, want gated critical", v.Level, v.RequiresApproval)
		}
	})
}

func TestClassifyOpenURL(t *testing.T) {
	t.Parallel()
	c := NewClassifier(PermissionDefault)

	tests := []struct {
		name      string
		url       string
		wantLevel RiskLevel
		wantGated bool
	}{
		{name: "banking domain is critical", url: "https://www.chase.com/login", wantLevel: LevelCritical, wantGated: true},
		{name: "banking subdomain matches", url: "https://secure.paypal.com", wantLevel: LevelCritical, wantGated: true},
		{name: "social domain is moderate", url: "https://twitter.com/home", wantLevel: LevelModerate},
		{name: "schemeless host still parses", url: "gmail.com", wantLevel: LevelModerate},
		{name: "plain site is safe", url: "https://golang.org/doc", wantLevel: LevelSafe},
		{name: "lookalike domain is not banking", url: "https://notchase.com", wantLevel: LevelSafe},
		{name: "empty url is safe", url: "", wantLevel: LevelSafe},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			call := ToolCall{Name: ToolOpenURL, Input: map[string]string{"url": tt.url}}
			v, _ := c.Classify(call, ActionContext{})
			if v.Level != tt.wantLevel {
				t.Fatalf("level = %s, want %s (reason: %s)", v.Level, tt.wantLevel, v.Reason)
			}
			if v.RequiresApproval != tt.wantGated {
				t.Fatalf("RequiresApproval = %v, want %v", v.RequiresApproval, tt.wantGated)
			}
		})
	}
}

func TestClassifySendMessageAndUnknown(t *testing.T) {
	t.Parallel()
	c := NewClassifier(PermissionDefault)

	v, _ := c.Classify(ToolCall{Name: ToolSendMessage, Input: map[string]string{"channel": "#general"}}, ActionContext{})
	if v.Level != LevelHigh || !v.RequiresApproval {
		t.Fatalf("send_message: got level %s approval %v, want gated high", v.Level, v.RequiresApproval)
	}
	if !strings.Contains(v.ApprovalPrompt, "#general") {
		t.Fatalf("prompt %q should name the channel", v.ApprovalPrompt)
	}

	v, _ = c.Classify(ToolCall{Name: "warp_drive"}, ActionContext{})
	if v.Level != LevelModerate || v.RequiresApproval {
		t.Fatalf("unknown tool: got level %s approval %v, want ungated moderate", v.Level, v.RequiresApproval)
	}
}
