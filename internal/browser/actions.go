package browser

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"

	"github.com/deskpilot-core/deskpilot/internal/risk"
)

var keyNames = map[string]input.Key{
	"enter":       input.Enter,
	"return":      input.Enter,
	"escape":      input.Escape,
	"tab":         input.Tab,
	"backspace":   input.Backspace,
	"delete":      input.Delete,
	"space":       input.Space,
	"arrow_up":    input.ArrowUp,
	"arrow_down":  input.ArrowDown,
	"arrow_left":  input.ArrowLeft,
	"arrow_right": input.ArrowRight,
	"page_up":     input.PageUp,
	"page_down":   input.PageDown,
}

// Execute dispatches one UI tool call against the live page.
func (s *Service) Execute(ctx context.Context, call risk.ToolCall) (string, error) {
	switch call.Name {
	case risk.ToolClick, risk.ToolRightClick:
		return s.click(ctx, call)
	case risk.ToolTypeText:
		return s.typeText(ctx, call)
	case risk.ToolPressKey:
		return s.pressKey(ctx, call.Arg("key"))
	case risk.ToolOpenURL:
		url := call.Arg("url")
		if err := s.navigate(ctx, url); err != nil {
			return "", err
		}
		return "opened " + url, nil
	case "scroll":
		return s.scroll(ctx, call.Arg("amount"))
	case "screenshot", "read_screen":
		// The capture itself happens in the next observation.
		return "screenshot requested", nil
	case "get_ui_tree":
		return s.UITreeSummary(ctx)
	case "read_text":
		return s.readText(ctx, call)
	case "focused_element":
		return s.describeFocused(ctx)
	case "wait":
		return s.wait(ctx, call.Arg("seconds"))
	default:
		return "", fmt.Errorf("unsupported tool %q", call.Name)
	}
}

func (s *Service) click(ctx context.Context, call risk.ToolCall) (string, error) {
	el, desc, err := s.resolveElement(ctx, call)
	if err != nil {
		return "", err
	}
	clickCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	button := proto.InputMouseButtonLeft
	if call.Name == risk.ToolRightClick {
		button = proto.InputMouseButtonRight
	}
	if err := el.Context(clickCtx).Click(button, 1); err != nil {
		// Overlapped elements reject synthetic mouse input; fall back to
		// a DOM-level click.
		if _, jsErr := el.Context(clickCtx).Eval(`() => this.click()`); jsErr != nil {
			return "", fmt.Errorf("click %s: %w", desc, err)
		}
	}
	page, pageErr := s.currentPage(ctx)
	if pageErr == nil {
		s.waitSettled(ctx, page, 2*time.Second)
	}
	return "clicked " + desc, nil
}

func (s *Service) typeText(ctx context.Context, call risk.ToolCall) (string, error) {
	text := call.Arg("text")
	typeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if call.Arg("selector") != "" || call.Arg("text_target") != "" {
		el, desc, err := s.resolveElement(ctx, call)
		if err != nil {
			return "", err
		}
		el = el.Context(typeCtx)
		// Existing content is replaced, not appended.
		_ = el.SelectAllText()
		if err := el.Input(text); err != nil {
			return "", fmt.Errorf("type into %s: %w", desc, err)
		}
		return fmt.Sprintf("typed %d characters into %s", len(text), desc), nil
	}

	page, err := s.currentPage(ctx)
	if err != nil {
		return "", err
	}
	if err := page.Context(typeCtx).InsertText(text); err != nil {
		return "", fmt.Errorf("type text: %w", err)
	}
	return fmt.Sprintf("typed %d characters", len(text)), nil
}

func (s *Service) pressKey(ctx context.Context, name string) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return "", fmt.Errorf("key is required")
	}
	page, err := s.currentPage(ctx)
	if err != nil {
		return "", err
	}
	pressCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	page = page.Context(pressCtx)

	modifiers, key, err := parseKeyCombo(name)
	if err != nil {
		return "", err
	}
	if len(modifiers) == 0 {
		err = page.Keyboard.Type(key)
	} else {
		err = page.KeyActions().Press(modifiers...).Type(key).Release(modifiers...).Do()
	}
	if err != nil {
		return "", fmt.Errorf("press %s: %w", name, err)
	}
	s.waitSettled(ctx, page, time.Second)
	return "pressed " + name, nil
}

// parseKeyCombo splits "cmd+a" style names into held modifiers and the key
// to type.
func parseKeyCombo(name string) ([]input.Key, input.Key, error) {
	parts := strings.Split(name, "+")
	var modifiers []input.Key
	var key input.Key
	haveKey := false
	for _, part := range parts {
		part = strings.TrimSpace(part)
		switch part {
		case "cmd", "meta", "super":
			modifiers = append(modifiers, input.MetaLeft)
		case "ctrl", "control":
			modifiers = append(modifiers, input.ControlLeft)
		case "alt", "option":
			modifiers = append(modifiers, input.AltLeft)
		case "shift":
			modifiers = append(modifiers, input.ShiftLeft)
		default:
			if k, ok := keyNames[part]; ok {
				key, haveKey = k, true
			} else if len(part) == 1 {
				key, haveKey = input.Key(part[0]), true
			} else {
				return nil, 0, fmt.Errorf("unsupported key %q", part)
			}
		}
	}
	if !haveKey {
		return nil, 0, fmt.Errorf("no key to press in %q", name)
	}
	return modifiers, key, nil
}

func (s *Service) scroll(ctx context.Context, amount string) (string, error) {
	pixels := 600
	if amount != "" {
		parsed, err := strconv.Atoi(strings.TrimSpace(amount))
		if err != nil {
			return "", fmt.Errorf("scroll amount %q: %w", amount, err)
		}
		pixels = parsed
	}
	page, err := s.currentPage(ctx)
	if err != nil {
		return "", err
	}
	evalCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if _, err := page.Context(evalCtx).Eval(`(px) => window.scrollBy(0, px)`, pixels); err != nil {
		return "", fmt.Errorf("scroll: %w", err)
	}
	return fmt.Sprintf("scrolled %d pixels", pixels), nil
}

func (s *Service) readText(ctx context.Context, call risk.ToolCall) (string, error) {
	el, desc, err := s.resolveElement(ctx, call)
	if err != nil {
		return "", err
	}
	readCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	text, err := el.Context(readCtx).Text()
	if err != nil {
		return "", fmt.Errorf("read %s: %w", desc, err)
	}
	return text, nil
}

func (s *Service) describeFocused(ctx context.Context) (string, error) {
	info, err := s.focusedInfo(ctx)
	if err != nil {
		return "", err
	}
	if info == nil {
		return "nothing is focused", nil
	}
	return fmt.Sprintf("focused %s %q value=%q", info.Role, info.Label, info.Value), nil
}

func (s *Service) wait(ctx context.Context, seconds string) (string, error) {
	d := time.Second
	if seconds != "" {
		parsed, err := strconv.ParseFloat(strings.TrimSpace(seconds), 64)
		if err != nil || parsed < 0 || parsed > 30 {
			return "", fmt.Errorf("invalid wait duration %q", seconds)
		}
		d = time.Duration(parsed * float64(time.Second))
	}
	select {
	case <-time.After(d):
		return fmt.Sprintf("waited %s", d), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// resolveElement finds the action target: a numeric agent id from the last
// UI tree, a CSS selector, or a visible-text match, in that order.
func (s *Service) resolveElement(ctx context.Context, call risk.ToolCall) (*rod.Element, string, error) {
	page, err := s.currentPage(ctx)
	if err != nil {
		return nil, "", err
	}
	findCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	page = page.Context(findCtx)

	selector := strings.TrimSpace(call.Arg("selector"))
	if selector != "" {
		if _, err := strconv.Atoi(selector); err == nil {
			selector = fmt.Sprintf(`[data-agent-id="%s"]`, selector)
		}
		el, err := page.Element(selector)
		if err != nil {
			return nil, "", fmt.Errorf("element %q not found: %w", selector, err)
		}
		return el, selector, nil
	}

	needle := strings.TrimSpace(call.Arg("text"))
	if call.Name == risk.ToolTypeText {
		needle = strings.TrimSpace(call.Arg("text_target"))
	}
	if needle == "" {
		return nil, "", fmt.Errorf("selector or text is required")
	}
	res, err := page.Eval(clickByTextScript, needle)
	if err != nil || !res.Value.Bool() {
		return nil, "", fmt.Errorf("no element matching text %q", needle)
	}
	el, err := page.Element(`[data-agent-target="1"]`)
	if err != nil {
		return nil, "", fmt.Errorf("element matching %q vanished: %w", needle, err)
	}
	_, _ = el.Eval(`() => this.removeAttribute('data-agent-target')`)
	return el, fmt.Sprintf("%q", needle), nil
}
