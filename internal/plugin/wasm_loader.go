package plugin

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/MangriMen/aether-core/internal/domain"
	"github.com/MangriMen/aether-core/internal/domainerr"
)

// WasmLoader implements Loader for domain.LoadKindWasm using wazero, the
// pure-Go no-cgo WASM runtime named for this host in SPEC_FULL.md's domain
// stack (no pack repo embeds a WASM host of its own).
type WasmLoader struct{}

func NewWasmLoader() *WasmLoader { return &WasmLoader{} }

// Load compiles and instantiates manifest's Wasm module, binding the fixed
// host function set spec.md §4.12 names (log, get_id, instance_get_dir,
// instance_plugin_get_dir, instance_create, get_or_download_java,
// run_command) into the "env" module a plugin imports from.
func (l *WasmLoader) Load(ctx context.Context, dir string, manifest domain.PluginManifest, caps Capabilities, sb *sandbox, log zerolog.Logger) (*Instance, error) {
	wasmPath := filepath.Join(dir, manifest.Load.File)
	code, err := os.ReadFile(wasmPath)
	if err != nil {
		return nil, domainerr.Wrap(domainerr.KindPluginLoadFailed, wasmPath, err)
	}

	rtCfg := wazero.NewRuntimeConfig()
	if manifest.Load.MemoryLimit != nil {
		rtCfg = rtCfg.WithMemoryLimitPages(uint32(*manifest.Load.MemoryLimit))
	}
	rt := wazero.NewRuntimeWithConfig(ctx, rtCfg)
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		rt.Close(ctx)
		return nil, domainerr.Wrap(domainerr.KindPluginLoadFailed, manifest.Metadata.ID, err)
	}

	hc := &hostCtx{pluginID: manifest.Metadata.ID, caps: caps, sandbox: sb, log: log}
	if err := bindHostModule(ctx, rt, hc); err != nil {
		rt.Close(ctx)
		return nil, err
	}

	compiled, err := rt.CompileModule(ctx, code)
	if err != nil {
		rt.Close(ctx)
		return nil, domainerr.Wrap(domainerr.KindPluginLoadFailed, wasmPath, err)
	}

	cfg := wazero.NewModuleConfig().WithStdout(os.Stdout).WithStderr(os.Stderr).WithName(manifest.Metadata.ID)

	mod, err := rt.InstantiateModule(ctx, compiled, cfg)
	if err != nil {
		rt.Close(ctx)
		return nil, domainerr.Wrap(domainerr.KindPluginLoadFailed, wasmPath, err)
	}

	return &Instance{runtime: rt, module: mod, pluginID: manifest.Metadata.ID}, nil
}

func (l *WasmLoader) Unload(ctx context.Context, inst *Instance) error {
	if inst == nil {
		return nil
	}
	return inst.Close(ctx)
}

// bindHostModule exports the fixed host function set under the "env"
// module name every plugin is compiled to import from.
func bindHostModule(ctx context.Context, rt wazero.Runtime, hc *hostCtx) error {
	_, err := rt.NewHostModuleBuilder("env").
		NewFunctionBuilder().WithFunc(hc.hostLog).Export("log").
		NewFunctionBuilder().WithFunc(hc.hostGetID).Export("get_id").
		NewFunctionBuilder().WithFunc(hc.hostInstanceGetDir).Export("instance_get_dir").
		NewFunctionBuilder().WithFunc(hc.hostInstancePluginGetDir).Export("instance_plugin_get_dir").
		NewFunctionBuilder().WithFunc(hc.hostInstanceCreate).Export("instance_create").
		NewFunctionBuilder().WithFunc(hc.hostGetOrDownloadJava).Export("get_or_download_java").
		NewFunctionBuilder().WithFunc(hc.hostRunCommand).Export("run_command").
		Instantiate(ctx)
	if err != nil {
		return domainerr.Wrap(domainerr.KindPluginLoadFailed, hc.pluginID, err)
	}
	return nil
}
