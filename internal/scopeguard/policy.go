// Package scopeguard confines browser navigation to operator-defined web
// domains. Deny entries always win; a non-empty allow list makes everything
// else out of scope.
package scopeguard

import (
	"fmt"
	"net/url"
	"strings"
)

type Policy struct {
	allow []string
	deny  []string
}

// New builds a policy from raw domain entries. Entries are case-insensitive
// and may carry a scheme or a www prefix; both are stripped.
func New(allowEntries, denyEntries []string) *Policy {
	return &Policy{
		allow: normalizeEntries(allowEntries),
		deny:  normalizeEntries(denyEntries),
	}
}

func normalizeEntries(entries []string) []string {
	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		if domain := normalizeDomain(entry); domain != "" {
			out = append(out, domain)
		}
	}
	return out
}

func normalizeDomain(entry string) string {
	entry = strings.ToLower(strings.TrimSpace(entry))
	if entry == "" {
		return ""
	}
	if strings.Contains(entry, "://") {
		if u, err := url.Parse(entry); err == nil && u.Hostname() != "" {
			entry = u.Hostname()
		}
	}
	entry = strings.TrimPrefix(entry, "www.")
	return strings.Trim(entry, ".")
}

func (p *Policy) HasRules() bool {
	return p != nil && (len(p.allow) > 0 || len(p.deny) > 0)
}

// CheckURL reports whether navigating to raw is inside scope.
func (p *Policy) CheckURL(raw string) error {
	if !p.HasRules() {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return fmt.Errorf("cannot determine host of %q", raw)
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")

	for _, domain := range p.deny {
		if matchesDomain(host, domain) {
			return fmt.Errorf("domain %s is blocked by policy", host)
		}
	}
	if len(p.allow) == 0 {
		return nil
	}
	for _, domain := range p.allow {
		if matchesDomain(host, domain) {
			return nil
		}
	}
	return fmt.Errorf("domain %s is outside the allowed scope", host)
}

// matchesDomain is an exact or dot-boundary suffix match, so example.com
// covers app.example.com but not notexample.com.
func matchesDomain(host, domain string) bool {
	return host == domain || strings.HasSuffix(host, "."+domain)
}
