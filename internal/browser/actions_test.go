package browser

import (
	"testing"

	"github.com/go-rod/rod/lib/input"
)

func TestParseKeyCombo(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		combo     string
		modifiers int
		key       input.Key
		wantErr   bool
	}{
		{name: "plain enter", combo: "enter", key: input.Enter},
		{name: "single character", combo: "a", key: input.Key('a')},
		{name: "cmd combo", combo: "cmd+a", modifiers: 1, key: input.Key('a')},
		{name: "ctrl shift combo", combo: "ctrl+shift+tab", modifiers: 2, key: input.Tab},
		{name: "cmd delete", combo: "cmd+delete", modifiers: 1, key: input.Delete},
		{name: "modifier only", combo: "cmd", wantErr: true},
		{name: "unknown key", combo: "cmd+frobnicate", wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			modifiers, key, err := parseKeyCombo(tt.combo)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.combo)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseKeyCombo(%q) error: %v", tt.combo, err)
			}
			if len(modifiers) != tt.modifiers {
				t.Fatalf("got %d modifiers want %d", len(modifiers), tt.modifiers)
			}
			if key != tt.key {
				t.Fatalf("got key %q want %q", key, tt.key)
			}
		})
	}
}
