package risk

import (
	"regexp"
	"strings"
)

// CommandTier buckets shell/AppleScript text: 1 read-only, 2 categorized
// mutation, 3 dangerous. The tables below are a closed, versioned set;
// extending them is a reviewed change, never runtime-editable.
type CommandTier int

const (
	Tier1 CommandTier = iota + 1
	Tier2
	Tier3
)

type TierResult struct {
	Tier     CommandTier
	Category string
	Prompt   string
	Reason   string
}

type dangerRule struct {
	pattern *regexp.Regexp
	reason  string
}

var shellDangerRules = []dangerRule{
	{regexp.MustCompile(`(?i)\brm\s+(-[a-z]*r[a-z]*f|-[a-z]*f[a-z]*r)[a-z]*\s+(/|~|\$home)`), "recursive force delete of a root path"},
	{regexp.MustCompile(`(?i)\bmkfs\b|\bdiskutil\s+erase|\bformat\s+[a-z]:`), "filesystem format"},
	{regexp.MustCompile(`(?i)\bdd\s+.*\bof=/dev/`), "raw write to a block device"},
	{regexp.MustCompile(`(?i)^\s*sudo\b|\|\s*sudo\b|&&\s*sudo\b|;\s*sudo\b`), "privilege escalation via sudo"},
	{regexp.MustCompile(`(?i)\b(curl|wget)\b[^|;]*\|\s*(sudo\s+)?(ba|z|da)?sh\b`), "remote code piped into a shell"},
	{regexp.MustCompile(`(?i)/etc/(passwd|shadow|sudoers)`), "credential file access"},
	{regexp.MustCompile(`(?i)(~|\$home|/users/[a-z0-9_.-]+|/home/[a-z0-9_.-]+)/\.ssh\b|\bid_rsa\b|\.aws/credentials`), "ssh or cloud credential access"},
	{regexp.MustCompile(`(?i)\bdrop\s+(table|database)\b|\btruncate\s+table\b|\btruncate\s+[a-z_]`), "destructive sql statement"},
	{regexp.MustCompile(`(?i)\b(shutdown|reboot|halt)\b`), "power control"},
	{regexp.MustCompile(`(?i)\bkill\s+-9\b|\bkillall\b`), "forced process kill"},
	{regexp.MustCompile(`:\(\)\s*\{`), "fork bomb"},
	{regexp.MustCompile(`(?i)\bchmod\s+(-[a-z]+\s+)*777\s+/`), "world-writable root permissions"},
}

type categoryRule struct {
	pattern  *regexp.Regexp
	category string
	prompt   string
}

var shellCategoryRules = []categoryRule{
	{regexp.MustCompile(`(?i)\b(brew|apt|apt-get|dnf|yum|pacman)\s+(install|upgrade|remove)\b|\bnpm\s+(install|i)\b|\byarn\s+add\b|\bpip3?\s+install\b|\bgem\s+install\b|\bcargo\s+install\b|\bgo\s+install\b`),
		"package_install", "Install or modify software packages"},
	{regexp.MustCompile(`(?i)\bgit\s+(push|commit|checkout|reset|merge|rebase|clone|pull|stash|tag)\b`),
		"git_write", "Run git operations that modify a repository"},
	{regexp.MustCompile(`(?i)\b(mv|cp|mkdir|touch|ln|tee|chmod|chown|rm)\b|>>?\s*\S`),
		"file_write", "Create, move, or modify files"},
	{regexp.MustCompile(`(?i)\b(curl|wget)\b`),
		"network_request", "Make an outbound network request"},
	{regexp.MustCompile(`(?i)\b(kill|launchctl|open\s+-a|osascript)\b`),
		"process_control", "Control running processes or applications"},
}

var readOnlyCommands = map[string]struct{}{
	"ls": {}, "cat": {}, "grep": {}, "head": {}, "tail": {}, "find": {},
	"ps": {}, "pwd": {}, "whoami": {}, "echo": {}, "date": {}, "which": {},
	"file": {}, "wc": {}, "du": {}, "df": {}, "uptime": {}, "env": {},
	"printenv": {}, "stat": {}, "uname": {}, "history": {}, "man": {},
	"less": {}, "more": {}, "id": {}, "hostname": {}, "sw_vers": {},
	"type": {}, "top": {}, "tree": {},
}

// ClassifyShellCommand assigns a tier to one shell command string. Compound
// commands are split on pipes and separators; any dangerous segment wins, and
// the command is read-only only if every segment is.
func ClassifyShellCommand(command string) TierResult {
	trimmed := strings.TrimSpace(command)
	if trimmed == "" {
		return TierResult{Tier: Tier1, Reason: "empty command"}
	}
	for _, rule := range shellDangerRules {
		if rule.pattern.MatchString(trimmed) {
			return TierResult{Tier: Tier3, Reason: rule.reason}
		}
	}
	if allSegmentsReadOnly(trimmed) {
		return TierResult{Tier: Tier1, Reason: "read-only command"}
	}
	for _, rule := range shellCategoryRules {
		if rule.pattern.MatchString(trimmed) {
			return TierResult{Tier: Tier2, Category: rule.category, Prompt: rule.prompt}
		}
	}
	// Uncategorized mutation: signals the caller to escalate.
	return TierResult{Tier: Tier2, Reason: "no classification rule matched"}
}

var segmentSplitter = regexp.MustCompile(`\|\||&&|;|\|`)

func allSegmentsReadOnly(command string) bool {
	if strings.ContainsAny(command, "><") {
		return false
	}
	for _, segment := range segmentSplitter.Split(command, -1) {
		fields := strings.Fields(segment)
		if len(fields) == 0 {
			continue
		}
		name := strings.ToLower(fields[0])
		if idx := strings.LastIndex(name, "/"); idx >= 0 {
			name = name[idx+1:]
		}
		if _, ok := readOnlyCommands[name]; !ok {
			return false
		}
	}
	return true
}

var appleScriptDangerRules = []dangerRule{
	{regexp.MustCompile(`(?i)with\s+administrator\s+privileges`), "administrator privileges requested"},
	{regexp.MustCompile(`(?i)\bempty\s+(the\s+)?trash\b`), "emptying the trash"},
	{regexp.MustCompile(`(?i)\bdelete\s+every\b`), "bulk delete"},
	{regexp.MustCompile(`(?i)\b(restart|shut\s+down)\b`), "power control"},
	{regexp.MustCompile(`(?i)\berase\s+disk\b`), "disk erase"},
}

var appleScriptCategoryRules = []categoryRule{
	{regexp.MustCompile(`(?i)tell\s+application\s+"system\s+events"`), "ui_scripting", "Drive another application's UI"},
	{regexp.MustCompile(`(?i)\b(keystroke|key\s+code)\b`), "ui_scripting", "Send synthetic keyboard input"},
	{regexp.MustCompile(`(?i)\b(activate|quit|launch|open\s+location)\b`), "app_control", "Control an application"},
	{regexp.MustCompile(`(?i)\b(make\s+new|move|duplicate|set\s+)\b`), "file_ops", "Modify files or application state"},
}

var appleScriptReadOnly = regexp.MustCompile(`(?i)^\s*(tell\s+application\s+"[^"]+"\s+to\s+)?(get|return|count|exists|name\s+of|id\s+of|properties\s+of)\b`)

// ClassifyAppleScript mirrors the shell tiering for AppleScript source. A
// "do shell script" payload is re-classified with the shell rules first.
func ClassifyAppleScript(source string) TierResult {
	trimmed := strings.TrimSpace(source)
	if trimmed == "" {
		return TierResult{Tier: Tier1, Reason: "empty script"}
	}
	// Danger rules run before the embedded-shell branch so that a script
	// like `do shell script "ls" with administrator privileges` keeps its
	// tier-3 rating.
	for _, rule := range appleScriptDangerRules {
		if rule.pattern.MatchString(trimmed) {
			return TierResult{Tier: Tier3, Reason: rule.reason}
		}
	}
	if inner, ok := embeddedShellScript(trimmed); ok {
		shell := ClassifyShellCommand(inner)
		if shell.Tier == Tier3 {
			return TierResult{Tier: Tier3, Reason: "embedded shell: " + shell.Reason}
		}
		return TierResult{Tier: Tier2, Category: "shell_via_applescript", Prompt: "Run a shell command through AppleScript"}
	}
	if appleScriptReadOnly.MatchString(trimmed) {
		return TierResult{Tier: Tier1, Reason: "read-only query"}
	}
	for _, rule := range appleScriptCategoryRules {
		if rule.pattern.MatchString(trimmed) {
			return TierResult{Tier: Tier2, Category: rule.category, Prompt: rule.prompt}
		}
	}
	return TierResult{Tier: Tier2, Reason: "no classification rule matched"}
}

var doShellScriptPattern = regexp.MustCompile(`(?i)do\s+shell\s+script\s+"((?:[^"\\]|\\.)*)"`)

func embeddedShellScript(source string) (string, bool) {
	match := doShellScriptPattern.FindStringSubmatch(source)
	if match == nil {
		return "", false
	}
	inner := strings.ReplaceAll(match[1], `\"`, `"`)
	return inner, true
}
