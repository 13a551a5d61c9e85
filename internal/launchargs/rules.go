// Package launchargs implements §4.7/§4.8: the JVM/game argument builders
// and the rules engine that gates both libraries and arguments.
// Generalizes the teacher's shouldIncludeLibrary/getOSName
// (src/launcher/launcher.go, duplicated near-verbatim in
// src/downloader/downloader.go) from a bare os-name allow/disallow walk
// into the full {os{name,arch,version}, features} predicate.
package launchargs

import (
	"regexp"
	"runtime"

	"github.com/MangriMen/aether-core/internal/domain"
)

// OSName is the Minecraft-specific operating-system enum.
type OSName string

const (
	OSLinux       OSName = "linux"
	OSLinuxARM64  OSName = "linux-arm64"
	OSLinuxARM32  OSName = "linux-arm32"
	OSWindows     OSName = "windows"
	OSOSX         OSName = "osx"
)

// Features is the set of feature flags a rule may gate on. All default to
// "disabled" per spec.md §4.8's conservative semantics.
type Features struct {
	IsDemoUser            bool
	HasCustomResolution   bool
	HasQuickPlaySupport   bool
	IsQuickPlaySingleplayer bool
	IsQuickPlayMultiplayer bool
	IsQuickPlayRealms     bool
}

func (f Features) value(name string) (bool, bool) {
	switch name {
	case "is_demo_user":
		return f.IsDemoUser, true
	case "has_custom_resolution":
		return f.HasCustomResolution, true
	case "has_quick_plays_support":
		return f.HasQuickPlaySupport, true
	case "is_quick_play_singleplayer":
		return f.IsQuickPlaySingleplayer, true
	case "is_quick_play_multiplayer":
		return f.IsQuickPlayMultiplayer, true
	case "is_quick_play_realms":
		return f.IsQuickPlayRealms, true
	default:
		return false, false
	}
}

// Environment is the effective platform a rule set is evaluated against.
type Environment struct {
	OS       OSName
	Features Features
	// OSRelease is matched against an os.version regex rule, mirroring
	// spec.md's os_release() call.
	OSRelease string
}

// CurrentEnvironment derives the effective OS either from the process's
// native platform, or — for Java-architecture bridging (x86/arm builds
// running under emulation/rosetta) — from the supplied java architecture.
func CurrentEnvironment(javaArch string, features Features) Environment {
	return Environment{OS: effectiveOS(javaArch), Features: features, OSRelease: runtimeOSRelease()}
}

func effectiveOS(javaArch string) OSName {
	switch runtime.GOOS {
	case "windows":
		return OSWindows
	case "darwin":
		return OSOSX
	case "linux":
		switch javaArch {
		case "aarch64", "arm64":
			return OSLinuxARM64
		case "arm", "arm32":
			return OSLinuxARM32
		default:
			return OSLinux
		}
	default:
		return OSLinux
	}
}

// runtimeOSRelease always returns the empty string, since Go's stdlib has
// no portable os-release call: an os.version rule is matched against ""
// unless a caller sets Environment.OSRelease itself.
func runtimeOSRelease() string { return "" }

// Include evaluates rules against env and returns whether the
// rule-guarded value should be included, per spec.md §4.8 / the ground-truth
// parse_rule/parse_rules algorithm (library.rs:4-45): each rule casts a
// three-valued vote (Some(true), Some(false), or no opinion/None), a rule
// with neither os nor features always votes Some(true) regardless of its
// action, and if every rule is Disallow an implicit trailing Some(true)
// vote is added. The outcome is true unless some vote is an explicit
// Some(false), or every vote is "no opinion". A non-matching Allow rule
// therefore vetoes the whole list rather than being skipped.
func Include(rules []domain.Rule, env Environment) bool {
	if len(rules) == 0 {
		return true
	}

	votes := make([]*bool, 0, len(rules)+1)
	for _, r := range rules {
		votes = append(votes, ruleVote(r, env))
	}

	allDisallow := true
	for _, r := range rules {
		if r.Action != "disallow" {
			allDisallow = false
			break
		}
	}
	if allDisallow {
		v := true
		votes = append(votes, &v)
	}

	anyFalse := false
	allNone := true
	for _, v := range votes {
		if v == nil {
			continue
		}
		allNone = false
		if !*v {
			anyFalse = true
		}
	}
	return !(anyFalse || allNone)
}

// ruleVote casts r's three-valued vote (library.rs:19-43): a rule with
// neither os nor features votes Some(true) unconditionally; otherwise an
// Allow rule votes its condition's match result, and a Disallow rule votes
// Some(false) when its condition matches or abstains (None) when it
// doesn't.
func ruleVote(r domain.Rule, env Environment) *bool {
	if r.OS == nil && r.Features == nil {
		v := true
		return &v
	}
	res := ruleMatches(r, env)
	switch r.Action {
	case "allow":
		v := res
		return &v
	case "disallow":
		if res {
			f := false
			return &f
		}
		return nil
	default:
		v := res
		return &v
	}
}

func ruleMatches(r domain.Rule, env Environment) bool {
	if r.OS == nil && r.Features == nil {
		return true
	}
	if r.OS != nil {
		if r.OS.Name != "" && OSName(r.OS.Name) != env.OS {
			return false
		}
		if r.OS.Version != "" {
			re, err := regexp.Compile(r.OS.Version)
			if err != nil || !re.MatchString(env.OSRelease) {
				return false
			}
		}
	}
	if r.Features != nil {
		for name, want := range r.Features {
			got, known := env.Features.value(name)
			if !known || got != want {
				return false
			}
		}
	}
	return true
}

// ShouldIncludeLibrary is the library-specific entry point, kept as a
// distinct name to mirror the teacher's shouldIncludeLibrary call sites.
func ShouldIncludeLibrary(lib domain.Library, env Environment) bool {
	return Include(lib.Rules, env)
}
