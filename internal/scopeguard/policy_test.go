package scopeguard

import "testing"

func TestPolicyNoRulesAllowsAll(t *testing.T) {
	t.Parallel()
	var p *Policy
	if err := p.CheckURL("https://anything.example"); err != nil {
		t.Fatalf("nil policy rejected: %v", err)
	}
	if err := New(nil, nil).CheckURL("https://anything.example"); err != nil {
		t.Fatalf("empty policy rejected: %v", err)
	}
}

func TestPolicyDenyWins(t *testing.T) {
	t.Parallel()
	p := New([]string{"example.com"}, []string{"bad.example.com"})
	if err := p.CheckURL("https://bad.example.com/login"); err == nil {
		t.Fatalf("expected deny for bad.example.com")
	}
	if err := p.CheckURL("https://app.example.com/"); err != nil {
		t.Fatalf("allowed subdomain rejected: %v", err)
	}
}

func TestPolicyAllowListExcludesOthers(t *testing.T) {
	t.Parallel()
	p := New([]string{"docs.internal"}, nil)
	if err := p.CheckURL("https://docs.internal/page"); err != nil {
		t.Fatalf("in-scope rejected: %v", err)
	}
	if err := p.CheckURL("https://example.com"); err == nil {
		t.Fatalf("expected out-of-scope rejection")
	}
}

func TestPolicySuffixIsDotBounded(t *testing.T) {
	t.Parallel()
	p := New(nil, []string{"example.com"})
	if err := p.CheckURL("https://notexample.com"); err != nil {
		t.Fatalf("notexample.com wrongly blocked: %v", err)
	}
	if err := p.CheckURL("https://www.example.com"); err == nil {
		t.Fatalf("www.example.com should be blocked")
	}
}

func TestPolicyNormalizesEntries(t *testing.T) {
	t.Parallel()
	p := New(nil, []string{" https://WWW.Example.com/path "})
	if err := p.CheckURL("https://example.com"); err == nil {
		t.Fatalf("normalized deny entry not applied")
	}
}

func TestPolicyRejectsUnparseableURL(t *testing.T) {
	t.Parallel()
	p := New([]string{"example.com"}, nil)
	if err := p.CheckURL("not a url"); err == nil {
		t.Fatalf("expected error for unparseable url")
	}
}
