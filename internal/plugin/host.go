package plugin

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/tetratelabs/wazero/api"

	"github.com/MangriMen/aether-core/internal/domainerr"
)

// Capabilities is the subset of core functionality host functions are
// allowed to call back into. CoreCapabilities (capabilities.go) is the
// production implementation; NewHost accepts any implementation.
type Capabilities interface {
	InstanceDir(instanceID string) (string, error)
	InstancePluginDir(instanceID, pluginID string) (string, error)
	CreateInstance(name, gameVersion, modLoader string) (string, error)
	GetOrDownloadJava(majorVersion int) (string, error)
}

// hostCtx is the per-plugin-instance closure state every host function
// reads: its own id (for get_id/logging) and the sandbox that gates any
// path a plugin call touches or returns.
type hostCtx struct {
	pluginID string
	caps     Capabilities
	sandbox  *sandbox
	log      zerolog.Logger
}

// allocExportName is the guest-exported allocator every Wasm plugin must
// provide so the host can hand strings back across the linear-memory
// boundary, per the marshaling convention spec.md §4.12 describes
// ("length-prefixed through a shared linear-memory buffer").
const allocExportName = "aether_alloc"

func readGuestString(mod api.Module, ptr, length uint32) (string, bool) {
	buf, ok := mod.Memory().Read(ptr, length)
	if !ok {
		return "", false
	}
	return string(buf), true
}

// writeGuestString calls the guest's allocator for len(s) bytes, copies s
// into the returned region, and packs (ptr<<32 | len) into the single
// uint64 return value wazero host functions use for PTR-typed results.
func writeGuestString(ctx context.Context, mod api.Module, s string) (uint64, error) {
	alloc := mod.ExportedFunction(allocExportName)
	if alloc == nil {
		return 0, domainerr.New(domainerr.KindCallFailed, "plugin does not export "+allocExportName)
	}
	results, err := alloc.Call(ctx, uint64(len(s)))
	if err != nil || len(results) == 0 {
		return 0, domainerr.Wrap(domainerr.KindCallFailed, allocExportName, err)
	}
	ptr := uint32(results[0])
	if !mod.Memory().Write(ptr, []byte(s)) {
		return 0, domainerr.New(domainerr.KindCallFailed, "failed writing guest memory")
	}
	return (uint64(ptr) << 32) | uint64(len(s)), nil
}

// The host functions below make up the fixed set that bindHostModule
// (wasm_loader.go) exports: log, get_id, instance_get_dir,
// instance_plugin_get_dir, instance_create, get_or_download_java,
// run_command.
func (h *hostCtx) hostLog(ctx context.Context, mod api.Module, ptr, length uint32) {
	msg, ok := readGuestString(mod, ptr, length)
	if !ok {
		return
	}
	h.log.Info().Str("plugin", h.pluginID).Msg(msg)
}

func (h *hostCtx) hostGetID(ctx context.Context, mod api.Module) uint64 {
	out, err := writeGuestString(ctx, mod, h.pluginID)
	if err != nil {
		h.log.Warn().Err(err).Str("plugin", h.pluginID).Msg("get_id failed")
		return 0
	}
	return out
}

func (h *hostCtx) hostInstanceGetDir(ctx context.Context, mod api.Module, ptr, length uint32) uint64 {
	instanceID, ok := readGuestString(mod, ptr, length)
	if !ok {
		return 0
	}
	dir, err := h.caps.InstanceDir(instanceID)
	if err != nil {
		h.log.Warn().Err(err).Str("plugin", h.pluginID).Msg("instance_get_dir failed")
		return 0
	}
	out, err := writeGuestString(ctx, mod, dir)
	if err != nil {
		return 0
	}
	return out
}

func (h *hostCtx) hostInstancePluginGetDir(ctx context.Context, mod api.Module, ptr, length uint32) uint64 {
	instanceID, ok := readGuestString(mod, ptr, length)
	if !ok {
		return 0
	}
	dir, err := h.caps.InstancePluginDir(instanceID, h.pluginID)
	if err != nil {
		h.log.Warn().Err(err).Str("plugin", h.pluginID).Msg("instance_plugin_get_dir failed")
		return 0
	}
	out, err := writeGuestString(ctx, mod, dir)
	if err != nil {
		return 0
	}
	return out
}

// instanceCreateRequest is the JSON payload a plugin passes to
// instance_create: {"name","game_version","mod_loader"}.
type instanceCreateRequest struct {
	Name        string `json:"name"`
	GameVersion string `json:"game_version"`
	ModLoader   string `json:"mod_loader"`
}

func (h *hostCtx) hostInstanceCreate(ctx context.Context, mod api.Module, ptr, length uint32) uint64 {
	raw, ok := readGuestString(mod, ptr, length)
	if !ok {
		return 0
	}
	req, err := decodeInstanceCreateRequest(raw)
	if err != nil {
		h.log.Warn().Err(err).Str("plugin", h.pluginID).Msg("instance_create: bad request")
		return 0
	}
	id, err := h.caps.CreateInstance(req.Name, req.GameVersion, req.ModLoader)
	if err != nil {
		h.log.Warn().Err(err).Str("plugin", h.pluginID).Msg("instance_create failed")
		return 0
	}
	out, err := writeGuestString(ctx, mod, id)
	if err != nil {
		return 0
	}
	return out
}

func (h *hostCtx) hostGetOrDownloadJava(ctx context.Context, mod api.Module, ptr, length uint32) uint64 {
	raw, ok := readGuestString(mod, ptr, length)
	if !ok {
		return 0
	}
	major, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	path, err := h.caps.GetOrDownloadJava(major)
	if err != nil {
		h.log.Warn().Err(err).Str("plugin", h.pluginID).Msg("get_or_download_java failed")
		return 0
	}
	out, werr := writeGuestString(ctx, mod, path)
	if werr != nil {
		return 0
	}
	return out
}

// hostRunCommand resolves and executes a shell command string the plugin
// supplies, gated by the plugin's own sandbox: the command's working
// directory, if given via a "#<tag>/..." path, must resolve inside an
// allowed base (runtime.allowed_paths ∪ the defaults), per spec.md §4.12's
// path-rewriting rule.
func (h *hostCtx) hostRunCommand(ctx context.Context, mod api.Module, ptr, length uint32) uint64 {
	raw, ok := readGuestString(mod, ptr, length)
	if !ok {
		return 0
	}
	workDir, command, err := decodeRunCommandRequest(raw)
	if err != nil {
		h.log.Warn().Err(err).Str("plugin", h.pluginID).Msg("run_command: bad request")
		return 0
	}

	resolvedDir := ""
	if workDir != "" {
		resolvedDir, err = h.sandbox.resolve(workDir)
		if err != nil {
			h.log.Warn().Err(err).Str("plugin", h.pluginID).Msg("run_command: path not allowed")
			return 0
		}
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = resolvedDir
	output, runErr := cmd.CombinedOutput()
	result := string(output)
	if runErr != nil {
		result = fmt.Sprintf("error: %v\n%s", runErr, output)
	}

	out, werr := writeGuestString(ctx, mod, result)
	if werr != nil {
		return 0
	}
	return out
}
