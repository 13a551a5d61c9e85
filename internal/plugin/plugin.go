package plugin

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/MangriMen/aether-core/internal/domain"
	"github.com/MangriMen/aether-core/internal/domainerr"
)

// registeredPlugin is one entry in the Host's registry: its manifest, its
// current lifecycle phase, and — while Loaded — its live runtime handle.
// Transitions follow spec.md §4.12's state machine exactly: NotLoaded ->
// Loading -> Loaded -> Unloading -> NotLoaded, with Failed reachable from
// Loading or Unloading.
type registeredPlugin struct {
	mu       sync.Mutex
	id       string
	dir      string
	manifest domain.PluginManifest
	hash     string
	phase    domain.PluginPhase
	reason   string
	enabled  bool
	inst     *Instance
	sandbox  *sandbox
}

func (p *registeredPlugin) info() domain.PluginInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	return domain.PluginInfo{
		ID: p.id, Manifest: p.manifest, Phase: p.phase,
		FailReason: p.reason, Enabled: p.enabled, Hash: p.hash,
	}
}

// load runs the loader for this plugin and transitions NotLoaded ->
// Loading -> Loaded, or -> Failed(reason) if the loader errors.
func (p *registeredPlugin) load(ctx context.Context, registry *Registry, caps Capabilities, log zerolog.Logger) error {
	p.mu.Lock()
	if p.phase == domain.PhaseLoaded {
		p.mu.Unlock()
		return nil
	}
	if p.phase == domain.PhaseLoading {
		p.mu.Unlock()
		return domainerr.New(domainerr.KindPluginAlreadyLoading, p.id)
	}
	p.phase = domain.PhaseLoading
	p.mu.Unlock()

	loader, err := registry.For(p.manifest.Load.Kind)
	if err != nil {
		p.fail(err)
		return err
	}

	inst, err := loader.Load(ctx, p.dir, p.manifest, caps, p.sandbox, log)
	if err != nil {
		p.fail(err)
		return err
	}

	p.mu.Lock()
	p.inst = inst
	p.phase = domain.PhaseLoaded
	p.mu.Unlock()
	return nil
}

// unload runs the loader's Unload and transitions to NotLoaded regardless
// of whether it errors — spec.md §4.12 is explicit that a disable must
// never leave plugin code live.
func (p *registeredPlugin) unload(ctx context.Context, registry *Registry) error {
	p.mu.Lock()
	if p.phase != domain.PhaseLoaded {
		p.mu.Unlock()
		return nil
	}
	p.phase = domain.PhaseUnloading
	inst := p.inst
	p.mu.Unlock()

	loader, lerr := registry.For(p.manifest.Load.Kind)
	var err error
	if lerr != nil {
		err = lerr
	} else {
		err = loader.Unload(ctx, inst)
	}

	p.mu.Lock()
	p.inst = nil
	p.phase = domain.PhaseNotLoaded
	if err != nil {
		p.reason = err.Error()
	}
	p.mu.Unlock()
	return err
}

func (p *registeredPlugin) fail(err error) {
	p.mu.Lock()
	p.phase = domain.PhaseFailed
	p.reason = err.Error()
	p.mu.Unlock()
}

func (p *registeredPlugin) instance() (*Instance, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.phase != domain.PhaseLoaded {
		return nil, false
	}
	return p.inst, true
}

// hashPluginLoadTarget sha1-hashes the Wasm file a manifest points at, used
// by sync() to detect a changed plugin binary without re-parsing it,
// mirroring PluginState::from_dir's plugin_hash computation.
func hashPluginLoadTarget(dir, fileName string) (string, error) {
	f, err := os.Open(pluginLoadTargetPath(dir, fileName))
	if err != nil {
		return "", domainerr.Wrap(domainerr.KindReadFailed, fileName, err)
	}
	defer f.Close()

	h := sha1.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", domainerr.Wrap(domainerr.KindReadFailed, fileName, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func pluginLoadTargetPath(dir, fileName string) string {
	return filepath.Join(dir, fileName)
}
