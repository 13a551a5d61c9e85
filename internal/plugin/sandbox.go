package plugin

import (
	"path/filepath"
	"strings"

	"github.com/MangriMen/aether-core/internal/domainerr"
)

// sandbox is one plugin's resolved view of the filesystem: a fixed set of
// plugin-visible tags ("/cache", "/instances", plus anything the manifest's
// runtime.allowed_paths adds), each bound to one host-side base directory.
// Grounded on spec.md §4.12's "#<tag>/... resolves to a host-side allowed
// base" rule and
// original_source/aether-core/src/features/plugins/domain/plugin_state.rs's
// get_default_allowed_paths (fixed "/cache" and "/instances" defaults,
// extended by the manifest's own grants).
type sandbox struct {
	bases map[string]string // tag -> host base dir, tags without leading '#'
}

func newSandbox(defaults map[string]string, extra map[string]string) *sandbox {
	bases := make(map[string]string, len(defaults)+len(extra))
	for k, v := range defaults {
		bases[k] = v
	}
	for k, v := range extra {
		bases[k] = v
	}
	return &sandbox{bases: bases}
}

// resolve rewrites a plugin-supplied path of the form "#<tag>/rest/of/path"
// into its host-side absolute path, refusing anything that is not a
// descendant of the tag's base (directory traversal) or that doesn't use a
// registered tag at all.
func (s *sandbox) resolve(pluginPath string) (string, error) {
	if !strings.HasPrefix(pluginPath, "#") {
		return "", domainerr.New(domainerr.KindPluginNotAllowedPath, pluginPath)
	}
	rest := pluginPath[1:]
	tag, sub, _ := strings.Cut(rest, "/")

	base, ok := s.bases[tag]
	if !ok {
		return "", domainerr.New(domainerr.KindPluginNotAllowedPath, pluginPath)
	}

	resolved := filepath.Join(base, filepath.FromSlash(sub))
	rel, err := filepath.Rel(base, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", domainerr.New(domainerr.KindPluginNotAllowedPath, pluginPath)
	}
	return resolved, nil
}
