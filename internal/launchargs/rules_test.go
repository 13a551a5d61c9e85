package launchargs

import (
	"testing"

	"github.com/MangriMen/aether-core/internal/domain"
)

func TestIncludeNoRulesDefaultsTrue(t *testing.T) {
	if !Include(nil, Environment{OS: OSLinux}) {
		t.Fatal("expected no-rules to default to included")
	}
}

func TestIncludeAllowMatchingOS(t *testing.T) {
	rules := []domain.Rule{{Action: "allow", OS: &domain.OSPredicate{Name: "osx"}}}
	if Include(rules, Environment{OS: OSLinux}) {
		t.Fatal("expected linux to be excluded by an osx-only allow rule")
	}
	if !Include(rules, Environment{OS: OSOSX}) {
		t.Fatal("expected osx to be included")
	}
}

func TestIncludeDisallowOverridesEarlierAllow(t *testing.T) {
	rules := []domain.Rule{
		{Action: "allow"},
		{Action: "disallow", OS: &domain.OSPredicate{Name: "windows"}},
	}
	if Include(rules, Environment{OS: OSWindows}) {
		t.Fatal("expected windows to be disallowed")
	}
	if !Include(rules, Environment{OS: OSLinux}) {
		t.Fatal("expected linux to remain allowed")
	}
}

func TestIncludeAllDisallowImpliesTrueWhenUnmatched(t *testing.T) {
	rules := []domain.Rule{{Action: "disallow", OS: &domain.OSPredicate{Name: "windows"}}}
	if !Include(rules, Environment{OS: OSLinux}) {
		t.Fatal("expected an all-disallow rule set to default true when it never matches")
	}
	if Include(rules, Environment{OS: OSWindows}) {
		t.Fatal("expected the matching disallow to exclude windows")
	}
}

func TestIncludeFeatureGate(t *testing.T) {
	rules := []domain.Rule{{Action: "allow", Features: map[string]bool{"is_demo_user": true}}}
	if Include(rules, Environment{Features: Features{IsDemoUser: false}}) {
		t.Fatal("expected feature mismatch to exclude")
	}
	if !Include(rules, Environment{Features: Features{IsDemoUser: true}}) {
		t.Fatal("expected matching feature to include")
	}
}

func TestIncludeNonMatchingAllowVetoesWholeList(t *testing.T) {
	rules := []domain.Rule{
		{Action: "allow", OS: &domain.OSPredicate{Name: "windows"}},
		{Action: "allow"},
	}
	if Include(rules, Environment{OS: OSLinux}) {
		t.Fatal("expected the unmatched os:windows allow rule to veto the whole list on linux")
	}
	if !Include(rules, Environment{OS: OSWindows}) {
		t.Fatal("expected both allow rules to match on windows")
	}
}

func TestEffectiveOSLinuxArchBridging(t *testing.T) {
	if effectiveOS("aarch64") != OSLinux && effectiveOS("aarch64") != OSLinuxARM64 {
		t.Fatalf("unexpected os for aarch64: %v", effectiveOS("aarch64"))
	}
}

func TestShouldIncludeLibraryDelegatesToRules(t *testing.T) {
	lib := domain.Library{Name: "test:lib:1.0", Rules: []domain.Rule{{Action: "allow", OS: &domain.OSPredicate{Name: "osx"}}}}
	if ShouldIncludeLibrary(lib, Environment{OS: OSLinux}) {
		t.Fatal("expected osx-only library to be excluded on linux")
	}
}
