// Package plugin implements §4.12: the plugin host. Manifests declare a
// Wasm (or, unsupported here, Native) load target plus the capabilities a
// plugin exposes; a wazero-backed loader runs the actual Wasm module
// behind a sandboxed host-function surface; loaded plugins are wrapped in
// thin proxies and registered into the shared content/instance capability
// registries so the core treats plugin-provided and builtin capabilities
// uniformly. No teacher file touches plugin hosting at all — shape is
// grounded throughout on original_source/aether-core/src/features/plugins.
package plugin

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/MangriMen/aether-core/internal/content"
	"github.com/MangriMen/aether-core/internal/domain"
	"github.com/MangriMen/aether-core/internal/domainerr"
	"github.com/MangriMen/aether-core/internal/events"
	"github.com/MangriMen/aether-core/internal/instance"
	"github.com/MangriMen/aether-core/internal/location"
	"github.com/MangriMen/aether-core/internal/storage"
)

// Host is the top-level plugin registry spec.md §4.12 describes: a
// concurrent map of plugin id -> registeredPlugin, plus the shared
// capability registries plugin-provided capabilities get proxied into.
type Host struct {
	paths    location.Paths
	bus      *events.Bus
	settings *storage.PluginSettingsStore
	caps     Capabilities
	registry *Registry
	log      zerolog.Logger

	content  *content.Engine
	instance *instance.Service

	mu        sync.Mutex
	plugins   map[string]*registeredPlugin
	importers map[string]Importer
}

func NewHost(paths location.Paths, bus *events.Bus, settings *storage.PluginSettingsStore, caps Capabilities, contentEngine *content.Engine, instanceSvc *instance.Service, log zerolog.Logger) *Host {
	return &Host{
		paths: paths, bus: bus, settings: settings, caps: caps,
		registry: NewRegistry(), log: log,
		content: contentEngine, instance: instanceSvc,
		plugins:   make(map[string]*registeredPlugin),
		importers: make(map[string]Importer),
	}
}

// Importers returns every currently-loaded plugin capable of bulk-importing
// content, for a caller (e.g. a "import from external launcher" CLI
// operation) to offer as a choice.
func (h *Host) Importers() []Importer {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Importer, 0, len(h.importers))
	for _, imp := range h.importers {
		out = append(out, imp)
	}
	return out
}

func (h *Host) List() []domain.PluginInfo {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]domain.PluginInfo, 0, len(h.plugins))
	for _, p := range h.plugins {
		out = append(out, p.info())
	}
	return out
}

// Sync implements spec.md §4.12's sync(): scan plugins/ for directories
// with a valid manifest, diff by manifest+hash against the registry —
// unchanged plugins are left alone, changed ones are unloaded and
// reloaded, disappeared ones are unloaded and dropped, and new ones are
// registered as NotLoaded (enabled only if a persisted setting says so).
func (h *Host) Sync(ctx context.Context) error {
	root := h.paths.PluginsRoot()
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return domainerr.Wrap(domainerr.KindReadFailed, root, err)
	}

	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		id := e.Name()
		seen[id] = true
		if err := h.syncOne(ctx, id); err != nil {
			h.bus.Publish(events.Event{Kind: events.KindWarning, Payload: events.WarningPayload{
				Message: "plugin sync failed for " + id, Cause: err,
			}})
		}
	}

	h.mu.Lock()
	var gone []string
	for id := range h.plugins {
		if !seen[id] {
			gone = append(gone, id)
		}
	}
	h.mu.Unlock()

	for _, id := range gone {
		if err := h.remove(ctx, id); err != nil {
			h.bus.Publish(events.Event{Kind: events.KindWarning, Payload: events.WarningPayload{
				Message: "plugin removal failed for " + id, Cause: err,
			}})
		}
	}
	return nil
}

func (h *Host) syncOne(ctx context.Context, id string) error {
	dir := h.paths.PluginDir(id)
	manifestPath := h.paths.PluginManifest(id)
	manifest, err := loadManifest(manifestPath)
	if err != nil {
		return err
	}
	if err := validateManifest(manifest, dir); err != nil {
		return err
	}

	hash, err := hashPluginLoadTarget(dir, manifest.Load.File)
	if err != nil {
		return err
	}

	h.mu.Lock()
	existing, had := h.plugins[id]
	h.mu.Unlock()

	if !had {
		enabled, _ := h.settings.Enabled(id)
		sb := h.buildSandbox(id, manifest)
		rp := &registeredPlugin{id: id, dir: dir, manifest: manifest, hash: hash, phase: domain.PhaseNotLoaded, sandbox: sb}
		h.mu.Lock()
		h.plugins[id] = rp
		h.mu.Unlock()
		h.bus.Publish(events.Event{Kind: events.KindPluginAdded, Payload: events.PluginPayload{PluginID: id}})
		if enabled {
			return h.Enable(ctx, id)
		}
		return nil
	}

	existing.mu.Lock()
	unchanged := existing.hash == hash && manifestsEqual(existing.manifest, manifest)
	wasEnabled := existing.enabled
	existing.mu.Unlock()
	if unchanged {
		return nil
	}

	if err := h.Disable(ctx, id); err != nil {
		return err
	}
	sb := h.buildSandbox(id, manifest)
	h.mu.Lock()
	h.plugins[id] = &registeredPlugin{id: id, dir: dir, manifest: manifest, hash: hash, phase: domain.PhaseNotLoaded, sandbox: sb}
	h.mu.Unlock()
	h.bus.Publish(events.Event{Kind: events.KindPluginEdited, Payload: events.PluginPayload{PluginID: id}})
	if wasEnabled {
		return h.Enable(ctx, id)
	}
	return nil
}

func manifestsEqual(a, b domain.PluginManifest) bool {
	if a.Metadata.ID != b.Metadata.ID || a.Metadata.Version != b.Metadata.Version ||
		a.Metadata.Name != b.Metadata.Name {
		return false
	}
	if a.Load.Kind != b.Load.Kind || a.Load.File != b.Load.File || a.Load.LibPath != b.Load.LibPath {
		return false
	}
	switch {
	case (a.Load.MemoryLimit == nil) != (b.Load.MemoryLimit == nil):
		return false
	case a.Load.MemoryLimit != nil && *a.Load.MemoryLimit != *b.Load.MemoryLimit:
		return false
	}
	if a.API.VersionReq != b.API.VersionReq || len(a.API.Features) != len(b.API.Features) {
		return false
	}
	for i, f := range a.API.Features {
		if b.API.Features[i] != f {
			return false
		}
	}
	return true
}

func (h *Host) buildSandbox(id string, manifest domain.PluginManifest) *sandbox {
	defaults := map[string]string{
		"cache":     h.paths.CachePluginDir(id),
		"instances": h.paths.InstancesRoot(),
	}
	extra := make(map[string]string, len(manifest.Runtime.AllowedPaths))
	for _, m := range manifest.Runtime.AllowedPaths {
		extra[m.Tag] = filepath.Join(h.paths.PluginDir(id), m.HostPath)
	}
	return newSandbox(defaults, extra)
}

// Enable implements spec.md §4.12's enable(pid): NotLoaded -> Loaded, then
// registers the plugin's capabilities into the shared registries.
func (h *Host) Enable(ctx context.Context, id string) error {
	rp, err := h.get(id)
	if err != nil {
		return err
	}
	if err := rp.load(ctx, h.registry, h.caps, h.log); err != nil {
		return err
	}

	inst, ok := rp.instance()
	if !ok {
		return domainerr.New(domainerr.KindPluginLoadFailed, id)
	}
	h.registerCapabilities(id, inst, rp.manifest)

	rp.mu.Lock()
	rp.enabled = true
	rp.mu.Unlock()
	_ = h.settings.SetEnabled(id, true)
	return nil
}

// Disable implements spec.md §4.12's disable(pid): deregister capabilities,
// then unload regardless of outcome.
func (h *Host) Disable(ctx context.Context, id string) error {
	rp, err := h.get(id)
	if err != nil {
		return err
	}
	h.unregisterCapabilities(id, rp.manifest)

	unloadErr := rp.unload(ctx, h.registry)

	rp.mu.Lock()
	rp.enabled = false
	rp.mu.Unlock()
	_ = h.settings.SetEnabled(id, false)
	return unloadErr
}

func (h *Host) remove(ctx context.Context, id string) error {
	rp, err := h.get(id)
	if err != nil {
		return nil
	}
	h.unregisterCapabilities(id, rp.manifest)
	_ = rp.unload(ctx, h.registry)

	h.mu.Lock()
	delete(h.plugins, id)
	h.mu.Unlock()
	h.bus.Publish(events.Event{Kind: events.KindPluginRemoved, Payload: events.PluginPayload{PluginID: id}})
	return nil
}

// registerCapabilities wraps inst behind every capability the manifest's
// api.features declares and registers the proxy into the matching shared
// registry, per spec.md §4.12: "on plugin load, all declared capabilities
// are registered into the shared capability registry under the plugin id".
func (h *Host) registerCapabilities(id string, inst *Instance, manifest domain.PluginManifest) {
	for _, feature := range manifest.API.Features {
		switch feature {
		case "content_provider":
			h.content.RegisterProvider(newContentProviderProxy(id, inst))
		case "updater":
			h.instance.RegisterUpdater(newUpdaterProxy(id, inst))
		case "importer":
			h.mu.Lock()
			h.importers[id] = newImporterProxy(id, inst)
			h.mu.Unlock()
		}
	}
}

func (h *Host) unregisterCapabilities(id string, manifest domain.PluginManifest) {
	for _, feature := range manifest.API.Features {
		switch feature {
		case "content_provider":
			h.content.UnregisterProvider(id)
		case "updater":
			h.instance.UnregisterUpdater(id)
		case "importer":
			h.mu.Lock()
			delete(h.importers, id)
			h.mu.Unlock()
		}
	}
}

func (h *Host) get(id string) (*registeredPlugin, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	rp, ok := h.plugins[id]
	if !ok {
		return nil, domainerr.New(domainerr.KindPluginNotFound, id)
	}
	return rp, nil
}
