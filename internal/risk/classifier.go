package risk

import (
	"fmt"
	"net/url"
	"strings"
)

// Tool names the classifier dispatches on. The set is closed; unrecognized
// names fall through to the unknown-capability path.
const (
	ToolClick       = "click"
	ToolRightClick  = "right_click"
	ToolTypeText    = "type_text"
	ToolPressKey    = "press_key"
	ToolShell       = "run_shell_command"
	ToolAppleScript = "run_applescript"
	ToolOpenURL     = "open_url"
	ToolSendMessage = "send_message"
)

// Ordered phrase tables for click targets. Critical financial phrases are
// checked before high irreversible-action phrases so the most severe match
// always wins.
var criticalClickPhrases = []string{
	"purchase",
	"buy now",
	"place order",
	"complete order",
	"checkout",
	"pay now",
	"confirm payment",
	"wire transfer",
	"transfer funds",
	"subscribe",
	"add payment",
	"confirm purchase",
}

var highClickPhrases = []string{
	"send",
	"delete",
	"remove",
	"sign out",
	"log out",
	"revoke",
	"unsubscribe",
	"discard",
	"empty trash",
	"uninstall",
	"format",
	"factory reset",
	"share",
	"publish",
	"post",
	"submit",
	"accept all",
}

var confirmationTitleTerms = []string{
	"confirm",
	"are you sure",
	"delete",
	"cannot be undone",
	"permanently",
}

var bankingDomains = []string{
	"chase.com",
	"bankofamerica.com",
	"wellsfargo.com",
	"citi.com",
	"citibank.com",
	"usbank.com",
	"capitalone.com",
	"americanexpress.com",
	"discover.com",
	"fidelity.com",
	"schwab.com",
	"vanguard.com",
	"paypal.com",
	"venmo.com",
	"coinbase.com",
	"robinhood.com",
}

var socialEmailDomains = []string{
	"facebook.com",
	"instagram.com",
	"twitter.com",
	"x.com",
	"linkedin.com",
	"reddit.com",
	"tiktok.com",
	"mail.google.com",
	"gmail.com",
	"outlook.com",
	"outlook.live.com",
	"mail.yahoo.com",
}

// Classifier is the heuristic rule engine: pure, deterministic, and
// sub-millisecond. The returned bool is false when the rules cannot decide
// and the verdict should be escalated to the LLM arbiter as a hint.
type Classifier struct {
	mode PermissionMode
}

func NewClassifier(mode PermissionMode) *Classifier {
	return &Classifier{mode: mode}
}

func (c *Classifier) Classify(call ToolCall, ctx ActionContext) (Verdict, bool) {
	switch call.Name {
	case ToolClick, ToolRightClick:
		return c.classifyClick(call, ctx), true
	case ToolTypeText:
		return c.classifyTypeText(call, ctx), true
	case ToolPressKey:
		return c.classifyPressKey(call, ctx), true
	case ToolShell:
		return c.classifyShell(call)
	case ToolAppleScript:
		return c.classifyAppleScript(call), true
	case ToolOpenURL:
		return c.classifyOpenURL(call), true
	case ToolSendMessage:
		return approvalVerdict(call, LevelHigh,
			"sending a message on behalf of the user is never auto-approved",
			fmt.Sprintf("Send message via %s?", messageChannel(call))), true
	default:
		// Unknown capability gets visibility, not a hard block.
		return verdict(call, LevelModerate, fmt.Sprintf("unrecognized tool %q", call.Name)), true
	}
}

func (c *Classifier) classifyClick(call ToolCall, ctx ActionContext) Verdict {
	target := clickTarget(call)
	desc := strings.ToLower(target)
	for _, phrase := range criticalClickPhrases {
		if strings.Contains(desc, phrase) {
			return approvalVerdict(call, LevelCritical,
				fmt.Sprintf("click target matches financial phrase %q", phrase),
				fmt.Sprintf("Click %q? This looks like a financial action.", target))
		}
	}
	for _, phrase := range highClickPhrases {
		if strings.Contains(desc, phrase) {
			return approvalVerdict(call, LevelHigh,
				fmt.Sprintf("click target matches irreversible-action phrase %q", phrase),
				fmt.Sprintf("Click %q? This action may be hard to undo.", target))
		}
	}
	if AssessAppRisk(ctx) >= LevelHigh {
		return verdict(call, LevelModerate, "click inside a high-risk application")
	}
	return verdict(call, LevelSafe, "click target matched no risk phrase")
}

// clickTarget picks the best available description of what is being clicked.
// Planner output carries the visible label in "text"; some callers describe
// the element directly instead.
func clickTarget(call ToolCall) string {
	if d := call.Arg("element_description"); d != "" {
		return d
	}
	if t := call.Arg("text"); t != "" {
		return t
	}
	return call.Arg("selector")
}

func (c *Classifier) classifyTypeText(call ToolCall, ctx ActionContext) Verdict {
	text := call.Arg("text")
	if ContainsPaymentCard(text) {
		return approvalVerdict(call, LevelCritical,
			"text contains a payment-card-shaped digit run",
			"Type what appears to be a payment card number?")
	}
	if ContainsSSN(text) {
		return approvalVerdict(call, LevelCritical,
			"text contains an SSN-shaped pattern",
			"Type what appears to be a social security number?")
	}
	if isSecureField(ctx.FocusedElementRole) {
		return approvalVerdict(call, LevelHigh,
			"typing into a secure text field",
			"Type into a password field?")
	}
	if isSensitiveFormContext(ctx.WindowTitle, ctx.CurrentURL) {
		return approvalVerdict(call, LevelHigh,
			"typing inside a sensitive form context",
			fmt.Sprintf("Type into %q? This looks like a payment or billing form.", ctx.WindowTitle))
	}
	if isSensitiveLabel(ctx.FocusedElementLabel) {
		return approvalVerdict(call, LevelHigh,
			fmt.Sprintf("focused field label %q is sensitive", ctx.FocusedElementLabel),
			fmt.Sprintf("Type into the %q field?", ctx.FocusedElementLabel))
	}
	return verdict(call, LevelSafe, "typed text matched no sensitive pattern")
}

func (c *Classifier) classifyPressKey(call ToolCall, ctx ActionContext) Verdict {
	key := strings.ToLower(strings.TrimSpace(call.Arg("key")))
	modifiers := strings.ToLower(call.Arg("modifiers"))

	if (key == "delete" || key == "backspace") && (strings.Contains(modifiers, "cmd") || strings.Contains(modifiers, "command")) {
		return approvalVerdict(call, LevelHigh,
			"cmd+delete is a destructive shortcut",
			"Press Cmd+Delete? This usually deletes the selected item.")
	}
	if key != "enter" && key != "return" {
		return verdict(call, LevelSafe, "key press matched no risk rule")
	}

	title := strings.ToLower(ctx.WindowTitle)
	for _, term := range confirmationTitleTerms {
		if strings.Contains(title, term) {
			return approvalVerdict(call, LevelHigh,
				fmt.Sprintf("pressing enter inside a confirmation dialog (title matches %q)", term),
				fmt.Sprintf("Press Enter in %q? This confirms the dialog.", ctx.WindowTitle))
		}
	}
	if isMessagingApp(ctx.ActiveAppName) {
		if last, ok := ctx.LastToolCall(); ok && last.Name == ToolTypeText {
			return approvalVerdict(call, LevelHigh,
				"enter after typing in a messaging app will send the message",
				fmt.Sprintf("Press Enter in %s? This will send the typed message.", ctx.ActiveAppName))
		}
	}
	if AssessAppRisk(ctx) >= LevelHigh {
		return approvalVerdict(call, LevelHigh,
			"pressing enter inside a high-risk application",
			fmt.Sprintf("Press Enter in %s?", ctx.ActiveAppName))
	}
	return verdict(call, LevelSafe, "key press matched no risk rule")
}

func (c *Classifier) classifyShell(call ToolCall) (Verdict, bool) {
	command := call.Arg("command")
	tier := ClassifyShellCommand(command)
	switch tier.Tier {
	case Tier3:
		return approvalVerdict(call, LevelCritical,
			fmt.Sprintf("dangerous shell command: %s", tier.Reason),
			fmt.Sprintf("Run dangerous command %q? %s.", command, tier.Reason)), true
	case Tier2:
		if tier.Category == "" {
			// No rule matched: escalate to the arbiter with a high hint.
			hint := approvalVerdict(call, LevelHigh,
				"unrecognized shell mutation; escalating for arbitration",
				fmt.Sprintf("Run command %q?", command))
			return hint, false
		}
		v := approvalVerdict(call, LevelHigh,
			fmt.Sprintf("shell command category: %s", tier.Category),
			fmt.Sprintf("%s (%q)?", tier.Prompt, command))
		v.SessionCacheKey = "shell:" + tier.Category
		return v, true
	default:
		return verdict(call, LevelSafe, "read-only shell command"), true
	}
}

// AppleScript tier-2 is deliberately lower-consequence than shell tier-2 in
// this design: moderate, auto-logged, not gated.
func (c *Classifier) classifyAppleScript(call ToolCall) Verdict {
	source := call.Arg("script")
	tier := ClassifyAppleScript(source)
	switch tier.Tier {
	case Tier3:
		return approvalVerdict(call, LevelCritical,
			fmt.Sprintf("dangerous AppleScript: %s", tier.Reason),
			fmt.Sprintf("Run AppleScript? %s.", tier.Reason))
	case Tier2:
		reason := "AppleScript mutation"
		if tier.Category != "" {
			reason = fmt.Sprintf("AppleScript category: %s", tier.Category)
		}
		return verdict(call, LevelModerate, reason)
	default:
		return verdict(call, LevelSafe, "read-only AppleScript")
	}
}

func (c *Classifier) classifyOpenURL(call ToolCall) Verdict {
	raw := call.Arg("url")
	host := hostOf(raw)
	if host == "" {
		return verdict(call, LevelSafe, "url has no recognizable host")
	}
	if matchesDomainList(host, bankingDomains) {
		return approvalVerdict(call, LevelCritical,
			fmt.Sprintf("url host %s is a financial domain", host),
			fmt.Sprintf("Open banking site %s?", host))
	}
	if matchesDomainList(host, socialEmailDomains) {
		return verdict(call, LevelModerate, fmt.Sprintf("url host %s is a social or email domain", host))
	}
	return verdict(call, LevelSafe, "url host matched no curated list")
}

func messageChannel(call ToolCall) string {
	if channel := call.Arg("channel"); channel != "" {
		return channel
	}
	if to := call.Arg("to"); to != "" {
		return to
	}
	return "an external channel"
}

func hostOf(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}

func matchesDomainList(host string, domains []string) bool {
	for _, domain := range domains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}
