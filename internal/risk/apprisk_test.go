package risk

import "testing"

func TestAssessAppRisk(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		ctx  ActionContext
		want RiskLevel
	}{
		{
			name: "banking app is critical",
			ctx:  ActionContext{ActiveAppName: "Chase Mobile"},
			want: LevelCritical,
		},
		{
			name: "banking bundle id is critical",
			ctx:  ActionContext{ActiveAppBundleID: "com.paypal.PayPal"},
			want: LevelCritical,
		},
		{
			name: "banking url is critical",
			ctx:  ActionContext{ActiveAppName: "Safari", CurrentURL: "https://www.fidelity.com/portfolio"},
			want: LevelCritical,
		},
		{
			name: "compose window in mail client is high",
			ctx:  ActionContext{ActiveAppName: "Mail", WindowTitle: "New Message"},
			want: LevelHigh,
		},
		{
			name: "slack reply thread is high",
			ctx:  ActionContext{ActiveAppName: "Slack", WindowTitle: "Reply to thread"},
			want: LevelHigh,
		},
		{
			name: "messaging app without compose is moderate",
			ctx:  ActionContext{ActiveAppName: "Slack", WindowTitle: "#general"},
			want: LevelModerate,
		},
		{
			name: "system settings is high",
			ctx:  ActionContext{ActiveAppName: "System Settings"},
			want: LevelHigh,
		},
		{
			name: "system preferences bundle is high",
			ctx:  ActionContext{ActiveAppName: "Prefs", ActiveAppBundleID: "com.apple.systempreferences"},
			want: LevelHigh,
		},
		{
			name: "terminal is moderate",
			ctx:  ActionContext{ActiveAppName: "iTerm2"},
			want: LevelModerate,
		},
		{
			name: "text editor is safe",
			ctx:  ActionContext{ActiveAppName: "TextEdit", WindowTitle: "notes.txt"},
			want: LevelSafe,
		},
		{
			name: "empty context is safe",
			ctx:  ActionContext{},
			want: LevelSafe,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := AssessAppRisk(tt.ctx); got != tt.want {
				t.Fatalf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestIsMessagingApp(t *testing.T) {
	t.Parallel()
	for _, app := range []string{"Slack", "Messages", "WhatsApp", "Microsoft Teams"} {
		if !isMessagingApp(app) {
			t.Fatalf("isMessagingApp(%q) = false, want true", app)
		}
	}
	for _, app := range []string{"", "Finder", "Xcode"} {
		if isMessagingApp(app) {
			t.Fatalf("isMessagingApp(%q) = true, want false", app)
		}
	}
}
