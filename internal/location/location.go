// Package location is the single source of truth for on-disk paths.
// Every other component resolves paths exclusively through this package;
// no string concatenation of paths happens elsewhere. Generalizes the
// teacher's GetMCDir/PathJoin pair (src/utils/utils.go) from one fixed
// root to the full tree in spec.md §6.
package location

import "path/filepath"

// Paths seeds the whole tree from two configured roots.
type Paths struct {
	ConfigDir   string
	SettingsDir string
}

func (p Paths) metadataDir() string { return filepath.Join(p.ConfigDir, "metadata") }

// --- metadata/versions ---

func (p Paths) VersionDir(version string) string {
	return filepath.Join(p.metadataDir(), "versions", version)
}

func (p Paths) VersionJSON(version string) string {
	return filepath.Join(p.VersionDir(version), version+".json")
}

func (p Paths) VersionJar(version string) string {
	return filepath.Join(p.VersionDir(version), version+".jar")
}

// --- metadata/libraries ---

func (p Paths) LibrariesDir() string {
	return filepath.Join(p.metadataDir(), "libraries")
}

// LibraryPath joins a maven-style relative path (already using '/') under
// the libraries root.
func (p Paths) LibraryPath(relPath string) string {
	return filepath.Join(p.LibrariesDir(), filepath.FromSlash(relPath))
}

// --- metadata/assets ---

func (p Paths) AssetsDir() string { return filepath.Join(p.metadataDir(), "assets") }

func (p Paths) AssetsIndexes() string { return filepath.Join(p.AssetsDir(), "indexes") }

func (p Paths) AssetIndexFile(indexID string) string {
	return filepath.Join(p.AssetsIndexes(), indexID+".json")
}

func (p Paths) AssetsObjects() string { return filepath.Join(p.AssetsDir(), "objects") }

func (p Paths) AssetObjectFile(hash string) string {
	if len(hash) < 2 {
		return filepath.Join(p.AssetsObjects(), hash)
	}
	return filepath.Join(p.AssetsObjects(), hash[:2], hash)
}

func (p Paths) AssetsResources() string { return filepath.Join(p.AssetsDir(), "resources") }

func (p Paths) AssetResourceFile(name string) string {
	return filepath.Join(p.AssetsResources(), filepath.FromSlash(name))
}

// --- metadata/natives ---

func (p Paths) NativesDir(version string) string {
	return filepath.Join(p.metadataDir(), "natives", version)
}

// --- instances ---

func (p Paths) InstancesRoot() string { return filepath.Join(p.ConfigDir, "instances") }

func (p Paths) InstanceDir(id string) string { return filepath.Join(p.InstancesRoot(), id) }

func (p Paths) InstanceContentDir(id string, contentType string) string {
	return filepath.Join(p.InstanceDir(id), contentType)
}

func (p Paths) InstanceCrashReportsDir(id string) string {
	return filepath.Join(p.InstanceDir(id), "crash-reports")
}

func (p Paths) InstanceMetadataDir(id string) string {
	return filepath.Join(p.InstanceDir(id), ".metadata")
}

// InstancePluginDir is the per-plugin scratch directory a plugin's
// "instance_plugin_get_dir" host call resolves to, per spec.md §4.12.
func (p Paths) InstancePluginDir(instanceID, pluginID string) string {
	return filepath.Join(p.InstanceMetadataDir(instanceID), "plugins", pluginID)
}

func (p Paths) InstancePackDir(id string) string {
	return filepath.Join(p.InstanceMetadataDir(id), "pack")
}

func (p Paths) InstancePackIndex(id string) string {
	return filepath.Join(p.InstancePackDir(id), "content.toml")
}

// InstancePackSidecar maps a content-relative path (e.g. "mods/foo.jar")
// to its sidecar file ("mods/foo.jar.toml").
func (p Paths) InstancePackSidecar(id, relPath string) string {
	return filepath.Join(p.InstancePackDir(id), filepath.FromSlash(relPath)+".toml")
}

// --- cache ---

func (p Paths) CacheDir() string { return filepath.Join(p.ConfigDir, "cache") }

func (p Paths) CacheJavaDir() string { return filepath.Join(p.CacheDir(), "java") }

func (p Paths) CachePluginDir(pluginID string) string {
	return filepath.Join(p.CacheDir(), "plugins", pluginID)
}

func (p Paths) CacheWasmDir() string { return filepath.Join(p.CacheDir(), "wasm") }

// --- plugins ---

func (p Paths) PluginsRoot() string { return filepath.Join(p.ConfigDir, "plugins") }

func (p Paths) PluginDir(id string) string { return filepath.Join(p.PluginsRoot(), id) }

func (p Paths) PluginManifest(id string) string {
	return filepath.Join(p.PluginDir(id), "manifest")
}

func (p Paths) PluginLoadTarget(id, fileName string) string {
	return filepath.Join(p.PluginDir(id), fileName)
}

func (p Paths) WasmConfigFile() string { return filepath.Join(p.ConfigDir, "wasm.toml") }

// --- settings_dir ---

func (p Paths) CredentialsFile() string { return filepath.Join(p.SettingsDir, "credentials.json") }

func (p Paths) SettingsFile() string { return filepath.Join(p.SettingsDir, "settings.json") }

func (p Paths) DefaultInstanceFile() string {
	return filepath.Join(p.SettingsDir, "default_instance.toml")
}

func (p Paths) JavaFile() string { return filepath.Join(p.SettingsDir, "java.json") }

func (p Paths) PluginSettingsFile() string {
	return filepath.Join(p.SettingsDir, "plugin_settings.json")
}

func (p Paths) InstancesFile() string { return filepath.Join(p.SettingsDir, "instances.json") }
