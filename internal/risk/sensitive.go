package risk

import (
	"regexp"
	"strings"
)

var (
	// 13-19 contiguous digits once spaces and dashes are stripped.
	cardDigitRun = regexp.MustCompile(`\d{13,19}`)
	ssnPattern   = regexp.MustCompile(`\d{3}[- ]?\d{2}[- ]?\d{4}`)
)

var stripSeparators = strings.NewReplacer(" ", "", "-", "")

// ContainsPaymentCard reports whether text carries a credit-card-shaped digit
// run after separator stripping.
func ContainsPaymentCard(text string) bool {
	return cardDigitRun.MatchString(stripSeparators.Replace(text))
}

// ContainsSSN reports whether text carries an SSN-shaped pattern.
func ContainsSSN(text string) bool {
	return ssnPattern.MatchString(text)
}

var secureFieldRoles = map[string]struct{}{
	"axsecuretextfield": {},
	"securetextfield":   {},
	"password":          {},
}

func isSecureField(role string) bool {
	normalized := strings.ToLower(strings.TrimSpace(role))
	if _, ok := secureFieldRoles[normalized]; ok {
		return true
	}
	return strings.Contains(normalized, "secure")
}

// Narrow financial-only variant; the broad list with "login"/"register" is
// superseded (too many false positives).
var sensitiveFormTerms = []string{
	"checkout",
	"payment",
	"billing",
	"wire transfer",
	"card details",
	"card number",
}

func isSensitiveFormContext(windowTitle, currentURL string) bool {
	haystack := strings.ToLower(windowTitle + " " + currentURL)
	for _, term := range sensitiveFormTerms {
		if strings.Contains(haystack, term) {
			return true
		}
	}
	return false
}

var sensitiveLabelTerms = []string{
	"password",
	"passcode",
	"passphrase",
	"cvv",
	"cvc",
	"security code",
	"card number",
	"credit card",
	"routing number",
	"account number",
	"social security",
	"ssn",
	"api key",
	"secret key",
	"access token",
	"private key",
	"pin",
}

func isSensitiveLabel(label string) bool {
	normalized := strings.ToLower(strings.TrimSpace(label))
	if normalized == "" {
		return false
	}
	for _, term := range sensitiveLabelTerms {
		if strings.Contains(normalized, term) {
			return true
		}
	}
	return false
}

// Input keys masked before tool input is shown to the arbiter model or
// written into an audit summary.
var redactedInputKeys = []string{
	"password",
	"secret",
	"token",
	"api_key",
	"apikey",
	"credit_card",
	"card_number",
	"cvv",
	"pin",
}

func isRedactedKey(key string) bool {
	normalized := strings.ToLower(strings.TrimSpace(key))
	for _, term := range redactedInputKeys {
		if strings.Contains(normalized, term) {
			return true
		}
	}
	return false
}

// RedactInput returns a copy of input with sensitive values masked.
func RedactInput(input map[string]string) map[string]string {
	if input == nil {
		return nil
	}
	out := make(map[string]string, len(input))
	for key, value := range input {
		if isRedactedKey(key) {
			out[key] = "[redacted]"
			continue
		}
		out[key] = value
	}
	return out
}
