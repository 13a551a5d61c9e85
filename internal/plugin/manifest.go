package plugin

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/MangriMen/aether-core/internal/domain"
	"github.com/MangriMen/aether-core/internal/domainerr"
)

// HostAPIVersion is the capability surface this build of the core exposes
// to plugins. Bumped whenever a host function's signature or semantics
// changes in a way a plugin must be aware of.
const HostAPIVersion = "1.0.0"

// loadManifest reads and parses plugins/<pid>/manifest, grounded on
// original_source/aether-core/src/features/plugins/domain/models/plugin_manifest.rs's
// {metadata, runtime, load, api} shape, using BurntSushi/toml (the pack's
// own TOML library, already wired for settings/pack-index persistence).
func loadManifest(path string) (domain.PluginManifest, error) {
	var m domain.PluginManifest
	data, err := os.ReadFile(path)
	if err != nil {
		return m, domainerr.Wrap(domainerr.KindPluginLoadFailed, path, err)
	}
	if err := toml.Unmarshal(data, &m); err != nil {
		return m, domainerr.Wrap(domainerr.KindCorrupted, path, err)
	}
	return m, nil
}

// validateManifest checks m.API.VersionReq against HostAPIVersion and that
// m.Load names a file that actually exists under dir, mirroring
// PluginManifest::validate in the original source.
func validateManifest(m domain.PluginManifest, dir string) error {
	if !versionSatisfies(HostAPIVersion, m.API.VersionReq) {
		return domainerr.WithField(domainerr.New(domainerr.KindUnsupportedAPI, m.Metadata.ID), "version_req", m.API.VersionReq)
	}

	switch m.Load.Kind {
	case domain.LoadKindWasm:
		full := filepath.Join(dir, m.Load.File)
		if _, err := os.Stat(full); err != nil {
			return domainerr.Wrap(domainerr.KindPluginLoadFailed, full, err)
		}
	case domain.LoadKindNative:
		return domainerr.New(domainerr.KindUnsupportedAPI, "native plugins are not supported by this host")
	default:
		return domainerr.New(domainerr.KindUnsupportedAPI, string(m.Load.Kind))
	}
	for _, mapping := range m.Runtime.AllowedPaths {
		if filepath.IsAbs(mapping.HostPath) {
			return domainerr.New(domainerr.KindPluginNotAllowedPath, mapping.HostPath)
		}
	}
	return nil
}

// versionSatisfies implements the small subset of semver range matching
// spec.md's manifest validation needs: an exact "X.Y.Z" requires an exact
// match, a "^X.Y.Z" requires same-major with version >= the requirement.
// No semver library appears anywhere in the corpus, so this hand-rolled
// comparison (three-field numeric split, no pre-release handling) stands
// in rather than introducing an ungrounded dependency for one predicate.
func versionSatisfies(version, req string) bool {
	if req == "" || req == "*" {
		return true
	}
	caret := strings.HasPrefix(req, "^")
	req = strings.TrimPrefix(req, "^")

	vMaj, vMin, vPatch, vOK := splitSemver(version)
	rMaj, rMin, rPatch, rOK := splitSemver(req)
	if !vOK || !rOK {
		return false
	}
	if !caret {
		return vMaj == rMaj && vMin == rMin && vPatch == rPatch
	}
	if vMaj != rMaj {
		return false
	}
	if vMin != rMin {
		return vMin > rMin
	}
	return vPatch >= rPatch
}

func splitSemver(v string) (maj, min, patch int, ok bool) {
	parts := strings.SplitN(v, ".", 3)
	if len(parts) != 3 {
		return 0, 0, 0, false
	}
	var err error
	if maj, err = strconv.Atoi(parts[0]); err != nil {
		return 0, 0, 0, false
	}
	if min, err = strconv.Atoi(parts[1]); err != nil {
		return 0, 0, 0, false
	}
	if patch, err = strconv.Atoi(parts[2]); err != nil {
		return 0, 0, 0, false
	}
	return maj, min, patch, true
}
