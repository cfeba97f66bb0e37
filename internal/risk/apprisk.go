package risk

import "strings"

var bankingAppTerms = []string{
	"chase",
	"bank of america",
	"wells fargo",
	"citibank",
	"fidelity",
	"schwab",
	"vanguard",
	"paypal",
	"venmo",
	"robinhood",
	"coinbase",
}

var bankingBundleTerms = []string{
	"com.chase",
	"com.bankofamerica",
	"com.wellsfargo",
	"com.paypal",
	"com.venmo",
	"com.coinbase",
	"com.robinhood",
}

var communicationAppTerms = []string{
	"slack",
	"discord",
	"messages",
	"telegram",
	"whatsapp",
	"signal",
	"mail",
	"outlook",
	"teams",
	"thunderbird",
}

var composeTitleTerms = []string{
	"compose",
	"reply",
	"new message",
	"draft",
	"to:",
}

var systemSettingsTerms = []string{
	"system settings",
	"system preferences",
	"control panel",
}

var terminalAppTerms = []string{
	"terminal",
	"iterm",
	"warp",
	"alacritty",
	"kitty",
	"console",
}

// AssessAppRisk is a pure contextual signal consumed by the tool evaluators;
// it does not itself gate actions.
func AssessAppRisk(ctx ActionContext) RiskLevel {
	app := strings.ToLower(ctx.ActiveAppName)
	bundle := strings.ToLower(ctx.ActiveAppBundleID)
	title := strings.ToLower(ctx.WindowTitle)

	if isBankingContext(ctx) {
		return LevelCritical
	}
	if matchesAny(app, communicationAppTerms) {
		if matchesAny(title, composeTitleTerms) {
			return LevelHigh
		}
		return LevelModerate
	}
	if matchesAny(app, systemSettingsTerms) || matchesAny(title, systemSettingsTerms) ||
		strings.Contains(bundle, "com.apple.systempreferences") || strings.Contains(bundle, "com.apple.systemsettings") {
		return LevelHigh
	}
	if matchesAny(app, terminalAppTerms) {
		return LevelModerate
	}
	return LevelSafe
}

func isBankingContext(ctx ActionContext) bool {
	app := strings.ToLower(ctx.ActiveAppName)
	bundle := strings.ToLower(ctx.ActiveAppBundleID)
	if matchesAny(app, bankingAppTerms) || matchesAny(bundle, bankingBundleTerms) {
		return true
	}
	if host := hostOf(ctx.CurrentURL); host != "" {
		return matchesDomainList(host, bankingDomains)
	}
	return false
}

func isMessagingApp(appName string) bool {
	return matchesAny(strings.ToLower(appName), communicationAppTerms)
}

func matchesAny(value string, terms []string) bool {
	if value == "" {
		return false
	}
	for _, term := range terms {
		if strings.Contains(value, term) {
			return true
		}
	}
	return false
}
