package domain

// LoadKind is the plugin runtime family a manifest's `load` field selects.
// Only Wasm is implemented (see internal/plugin); Native is modeled so a
// manifest declaring it surfaces KindUnsupportedAPI instead of silently
// doing nothing.
type LoadKind string

const (
	LoadKindWasm   LoadKind = "wasm"
	LoadKindNative LoadKind = "native"
)

// PluginMetadata is a manifest's identity block.
type PluginMetadata struct {
	ID          string   `toml:"id"`
	Name        string   `toml:"name"`
	Version     string   `toml:"version"`
	Description string   `toml:"description,omitempty"`
	Authors     []string `toml:"authors,omitempty"`
	License     string   `toml:"license,omitempty"`
}

// PathMapping grants a plugin a sandboxed view of one host directory under
// a plugin-visible tag (e.g. "/downloads" -> "downloads/").
type PathMapping struct {
	Tag      string `toml:"tag"`
	HostPath string `toml:"host_path"`
}

// RuntimeConfig is a manifest's `runtime` block: capability grants beyond
// the default sandbox (cache dir, instances root).
type RuntimeConfig struct {
	AllowedHosts []string      `toml:"allowed_hosts,omitempty"`
	AllowedPaths []PathMapping `toml:"allowed_paths,omitempty"`
}

// LoadConfig is a manifest's `load` block: which loader family to use and
// its parameters.
type LoadConfig struct {
	Kind        LoadKind `toml:"kind"`
	File        string   `toml:"file,omitempty"`         // Wasm
	MemoryLimit *int     `toml:"memory_limit,omitempty"` // Wasm, pages
	LibPath     string   `toml:"lib_path,omitempty"`      // Native
}

// APIConfig is a manifest's `api` block: the host API surface the plugin
// requires.
type APIConfig struct {
	VersionReq string   `toml:"version_req"`
	Features   []string `toml:"features,omitempty"`
}

// PluginManifest is `plugins/<pid>/manifest`.
type PluginManifest struct {
	Metadata PluginMetadata `toml:"metadata"`
	Runtime  RuntimeConfig  `toml:"runtime"`
	Load     LoadConfig     `toml:"load"`
	API      APIConfig      `toml:"api"`
}

// PluginPhase is the plugin lifecycle state machine's current phase, per
// spec.md §4.12: NotLoaded -> Loading -> Loaded -> Unloading -> NotLoaded,
// with Failed reachable from Loading or Unloading.
type PluginPhase string

const (
	PhaseNotLoaded PluginPhase = "not_loaded"
	PhaseLoading   PluginPhase = "loading"
	PhaseLoaded    PluginPhase = "loaded"
	PhaseUnloading PluginPhase = "unloading"
	PhaseFailed    PluginPhase = "failed"
)

// PluginInfo is the read-only view of one registered plugin returned to
// callers listing the registry.
type PluginInfo struct {
	ID         string      `json:"id"`
	Manifest   PluginManifest `json:"manifest"`
	Phase      PluginPhase `json:"phase"`
	FailReason string      `json:"fail_reason,omitempty"`
	Enabled    bool        `json:"enabled"`
	Hash       string      `json:"hash"`
}
