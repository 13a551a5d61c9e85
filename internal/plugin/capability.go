package plugin

import (
	"context"
	"encoding/json"

	"github.com/MangriMen/aether-core/internal/domain"
	"github.com/MangriMen/aether-core/internal/domainerr"
)

// Importer is a capability a plugin can expose for bulk-importing content
// from an external source into an instance, per spec.md §4.12's capability
// list (Importer, Updater, ContentProvider).
type Importer interface {
	ID() string
	Import(ctx context.Context, instanceID string, sourcePaths []string) error
}

// contentProviderProxy wraps a loaded plugin Instance behind
// content.Provider, invoking the plugin's own "content_search" /
// "content_resolve" exported handlers and marshaling through JSON, the
// same length-prefixed string convention every host function uses.
// Grounded on
// original_source/aether-core/src/features/plugins/infra/plugin_content_provider_proxy.rs's
// "wrap a capability in a thin proxy that calls into the loader" shape.
type contentProviderProxy struct {
	pluginID string
	inst     *Instance
}

func newContentProviderProxy(pluginID string, inst *Instance) *contentProviderProxy {
	return &contentProviderProxy{pluginID: pluginID, inst: inst}
}

func (p *contentProviderProxy) ID() string { return p.pluginID }

func (p *contentProviderProxy) Search(ctx context.Context, params domain.ContentSearchParams) (domain.SearchResult, error) {
	var result domain.SearchResult
	payload, err := json.Marshal(params)
	if err != nil {
		return result, domainerr.Wrap(domainerr.KindCallFailed, "content_search", err)
	}
	raw, err := p.inst.Call(ctx, "content_search", string(payload))
	if err != nil {
		return result, err
	}
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return result, domainerr.Wrap(domainerr.KindCallFailed, "content_search", err)
	}
	return result, nil
}

// resolveResponse is what a plugin's content_resolve handler returns: the
// relative content path it already wrote under destDir (passed in the
// request), plus the sidecar metadata to record for it. Writing the actual
// file bytes is left to the plugin itself, sandboxed to destDir via
// runtime.allowed_paths — this proxy never streams file contents through
// the host-function boundary.
type resolveRequest struct {
	Params  domain.InstallParams `json:"params"`
	DestDir string               `json:"dest_dir"`
}

type resolveResponse struct {
	RelPath string         `json:"rel_path"`
	Sidecar domain.Sidecar `json:"sidecar"`
}

func (p *contentProviderProxy) Resolve(ctx context.Context, params domain.InstallParams, destDir string) (string, domain.Sidecar, error) {
	payload, err := json.Marshal(resolveRequest{Params: params, DestDir: destDir})
	if err != nil {
		return "", domain.Sidecar{}, domainerr.Wrap(domainerr.KindCallFailed, "content_resolve", err)
	}
	raw, err := p.inst.Call(ctx, "content_resolve", string(payload))
	if err != nil {
		return "", domain.Sidecar{}, err
	}
	var resp resolveResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return "", domain.Sidecar{}, domainerr.Wrap(domainerr.KindCallFailed, "content_resolve", err)
	}
	return resp.RelPath, resp.Sidecar, nil
}

// updaterProxy wraps a loaded plugin Instance behind instance.Updater.
type updaterProxy struct {
	pluginID string
	inst     *Instance
}

func newUpdaterProxy(pluginID string, inst *Instance) *updaterProxy {
	return &updaterProxy{pluginID: pluginID, inst: inst}
}

func (p *updaterProxy) ID() string { return p.pluginID }

func (p *updaterProxy) Update(ctx context.Context, inst domain.Instance) error {
	payload, err := json.Marshal(inst)
	if err != nil {
		return domainerr.Wrap(domainerr.KindCallFailed, "update", err)
	}
	_, err = p.inst.Call(ctx, "update", string(payload))
	return err
}

// importerProxy wraps a loaded plugin Instance behind Importer.
type importerProxy struct {
	pluginID string
	inst     *Instance
}

func newImporterProxy(pluginID string, inst *Instance) *importerProxy {
	return &importerProxy{pluginID: pluginID, inst: inst}
}

func (p *importerProxy) ID() string { return p.pluginID }

type importRequest struct {
	InstanceID  string   `json:"instance_id"`
	SourcePaths []string `json:"source_paths"`
}

func (p *importerProxy) Import(ctx context.Context, instanceID string, sourcePaths []string) error {
	payload, err := json.Marshal(importRequest{InstanceID: instanceID, SourcePaths: sourcePaths})
	if err != nil {
		return domainerr.Wrap(domainerr.KindCallFailed, "import", err)
	}
	_, err = p.inst.Call(ctx, "import", string(payload))
	return err
}
