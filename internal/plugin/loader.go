package plugin

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/MangriMen/aether-core/internal/domain"
	"github.com/MangriMen/aether-core/internal/domainerr"
)

// Instance is one loaded plugin's live runtime handle: the thing a Loader
// hands back from Load and a capability proxy invokes handler functions
// against.
type Instance struct {
	runtime  wazero.Runtime
	module   api.Module
	pluginID string
}

// Call invokes a plugin-exported handler by name, passing payload (a JSON
// string) and returning whatever JSON string the handler wrote back.
func (i *Instance) Call(ctx context.Context, fnName, payload string) (string, error) {
	fn := i.module.ExportedFunction(fnName)
	if fn == nil {
		return "", domainerr.New(domainerr.KindCallFailed, i.pluginID+"."+fnName)
	}
	packedIn, err := writeGuestString(ctx, i.module, payload)
	if err != nil {
		return "", err
	}
	results, err := fn.Call(ctx, packedIn)
	if err != nil {
		return "", domainerr.Wrap(domainerr.KindCallFailed, fnName, err)
	}
	if len(results) == 0 {
		return "", nil
	}
	packedOut := results[0]
	ptr := uint32(packedOut >> 32)
	length := uint32(packedOut)
	out, ok := readGuestString(i.module, ptr, length)
	if !ok {
		return "", domainerr.New(domainerr.KindCallFailed, fnName)
	}
	return out, nil
}

func (i *Instance) Close(ctx context.Context) error {
	return i.runtime.Close(ctx)
}

// Loader loads and unloads one LoadKind's plugin runtime family, per
// spec.md §4.12's "Loader registry maps LoadKind -> Loader".
type Loader interface {
	Load(ctx context.Context, dir string, manifest domain.PluginManifest, caps Capabilities, sb *sandbox, log zerolog.Logger) (*Instance, error)
	Unload(ctx context.Context, inst *Instance) error
}

// Registry is the LoadKind -> Loader map.
type Registry struct {
	loaders map[domain.LoadKind]Loader
}

func NewRegistry() *Registry {
	return &Registry{loaders: map[domain.LoadKind]Loader{
		domain.LoadKindWasm: NewWasmLoader(),
	}}
}

func (r *Registry) Register(kind domain.LoadKind, l Loader) { r.loaders[kind] = l }

func (r *Registry) For(kind domain.LoadKind) (Loader, error) {
	l, ok := r.loaders[kind]
	if !ok {
		return nil, domainerr.New(domainerr.KindUnsupportedAPI, string(kind))
	}
	return l, nil
}
