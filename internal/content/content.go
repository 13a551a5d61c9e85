// Package content implements §4.13/§4.11's content engine: per-instance
// mod/resourcepack/datapack/shaderpack discovery, enable/disable, import,
// removal, and provider-driven install, plus the pack index sidecars that
// back all of it. No teacher file touches content management at all — the
// engine shape (discover → sidecar lookup-or-create → mutate pack index)
// is original to this launcher, built with the same primitives (crypto/sha1,
// os file ops) the teacher already uses elsewhere.
package content

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/MangriMen/aether-core/internal/domain"
	"github.com/MangriMen/aether-core/internal/domainerr"
	"github.com/MangriMen/aether-core/internal/events"
	"github.com/MangriMen/aether-core/internal/location"
	"github.com/MangriMen/aether-core/internal/storage"
)

// Provider is a capability that can search for and resolve installable
// content from an external source (Modrinth, a plugin-registered
// provider, ...). Matches spec.md §4.13's ContentProvider shape.
type Provider interface {
	ID() string
	Search(ctx context.Context, params domain.ContentSearchParams) (domain.SearchResult, error)
	Resolve(ctx context.Context, params domain.InstallParams, destDir string) (relPath string, sidecar domain.Sidecar, err error)
}

// Engine is the per-launcher content management service; instance.Service
// delegates every content operation onto it, scoped by instance id.
type Engine struct {
	paths     location.Paths
	bus       *events.Bus
	providers map[string]Provider
	mu        sync.RWMutex
}

func NewEngine(paths location.Paths, bus *events.Bus) *Engine {
	return &Engine{paths: paths, bus: bus, providers: make(map[string]Provider)}
}

// RegisterProvider adds or replaces a named content provider.
func (e *Engine) RegisterProvider(p Provider) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.providers[p.ID()] = p
}

// UnregisterProvider removes a previously registered provider, e.g. when
// the plugin that supplied it unloads (§4.12's capability deregistration).
func (e *Engine) UnregisterProvider(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.providers, id)
}

func (e *Engine) provider(id string) (Provider, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	p, ok := e.providers[id]
	if !ok {
		return nil, domainerr.New(domainerr.KindContentProviderNotFound, id)
	}
	return p, nil
}

// List walks every content-type folder under instanceID, looking up (or,
// when missing, computing-and-writing) each file's pack sidecar.
func (e *Engine) List(instanceID string) (map[string]domain.InstanceFile, error) {
	pack := storage.NewPackStore(e.paths, instanceID)
	out := make(map[string]domain.InstanceFile)

	for _, ct := range domain.AllContentTypes {
		dir := e.paths.InstanceContentDir(instanceID, string(ct))
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, domainerr.Wrap(domainerr.KindReadFailed, dir, err)
		}

		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			file, err := e.describe(pack, ct, dir, entry.Name())
			if err != nil {
				return nil, err
			}
			out[file.Path] = file
		}
	}
	return out, nil
}

func (e *Engine) describe(pack *storage.PackStore, ct domain.ContentType, dir, fileName string) (domain.InstanceFile, error) {
	disabled := strings.HasSuffix(fileName, ".disabled")
	baseName := strings.TrimSuffix(fileName, ".disabled")
	relPath := filepath.ToSlash(filepath.Join(string(ct), baseName))

	info, err := os.Stat(filepath.Join(dir, fileName))
	if err != nil {
		return domain.InstanceFile{}, domainerr.Wrap(domainerr.KindReadFailed, fileName, err)
	}

	sidecar, found, err := pack.Sidecar(relPath)
	if err != nil {
		return domain.InstanceFile{}, err
	}
	if !found {
		sum, err := sha1File(filepath.Join(dir, fileName))
		if err != nil {
			return domain.InstanceFile{}, err
		}
		if err := pack.WriteMinimalSidecar(relPath, baseName, sum); err != nil {
			return domain.InstanceFile{}, err
		}
		sidecar = &domain.Sidecar{FileName: baseName, Hash: sum}
	}

	var display *string
	if sidecar.Name != nil {
		display = sidecar.Name
	}

	return domain.InstanceFile{
		Path:        relPath,
		FileName:    baseName,
		Size:        info.Size(),
		SHA1:        sidecar.Hash,
		ContentType: ct,
		Disabled:    disabled,
		DisplayName: display,
		Update:      sidecar.Update,
	}, nil
}

// SetEnabled renames each path between its bare and ".disabled" form,
// idempotent when already in the requested state.
func (e *Engine) SetEnabled(instanceID string, paths []string, enabled bool) error {
	for _, relPath := range paths {
		ct, name := splitContentPath(relPath)
		dir := e.paths.InstanceContentDir(instanceID, ct)
		bare := filepath.Join(dir, name)
		disabled := bare + ".disabled"

		if enabled {
			if _, err := os.Stat(bare); err == nil {
				continue
			}
			if err := os.Rename(disabled, bare); err != nil && !os.IsNotExist(err) {
				return domainerr.Wrap(domainerr.KindWriteFailed, disabled, err)
			}
		} else {
			if _, err := os.Stat(disabled); err == nil {
				continue
			}
			if err := os.Rename(bare, disabled); err != nil && !os.IsNotExist(err) {
				return domainerr.Wrap(domainerr.KindWriteFailed, bare, err)
			}
		}
	}
	e.bus.Publish(events.Event{Kind: events.KindInstanceEdited, Payload: events.InstancePayload{InstanceID: instanceID}})
	return nil
}

func splitContentPath(relPath string) (contentType, name string) {
	parts := strings.SplitN(filepath.ToSlash(relPath), "/", 2)
	if len(parts) != 2 {
		return "", relPath
	}
	return parts[0], parts[1]
}

// Import copies each source file into the instance's content folder,
// refusing any path already present in the pack index, and writes a
// sha1 sidecar for every copy.
func (e *Engine) Import(ctx context.Context, instanceID string, ct domain.ContentType, sourcePaths []string) error {
	pack := storage.NewPackStore(e.paths, instanceID)
	if err := pack.EnsureDirs(); err != nil {
		return err
	}
	dir := e.paths.InstanceContentDir(instanceID, string(ct))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return domainerr.Wrap(domainerr.KindWriteFailed, dir, err)
	}

	idx, err := pack.Index()
	if err != nil {
		return err
	}
	existing := make(map[string]bool, len(idx.Files))
	for _, f := range idx.Files {
		existing[f.File] = true
	}

	for _, src := range sourcePaths {
		name := filepath.Base(src)
		relPath := filepath.ToSlash(filepath.Join(string(ct), name))
		if existing[relPath] {
			return domainerr.WithField(domainerr.New(domainerr.KindContentDuplication, relPath), "source", src)
		}
	}

	g, _ := errgroup.WithContext(ctx)
	for _, src := range sourcePaths {
		src := src
		g.Go(func() error {
			name := filepath.Base(src)
			relPath := filepath.ToSlash(filepath.Join(string(ct), name))
			dest := filepath.Join(dir, name)

			sum, err := copyAndHash(src, dest)
			if err != nil {
				return err
			}
			return pack.AddEntry(
				domain.PackFileEntry{File: relPath, Hash: sum, HashFormat: "sha1"},
				domain.Sidecar{FileName: name, Hash: sum},
			)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	e.bus.Publish(events.Event{Kind: events.KindInstanceEdited, Payload: events.InstancePayload{InstanceID: instanceID}})
	return nil
}

// Remove deletes each file, its sidecar, and prunes the pack index.
func (e *Engine) Remove(instanceID string, relPaths []string) error {
	pack := storage.NewPackStore(e.paths, instanceID)
	for _, relPath := range relPaths {
		ct, name := splitContentPath(relPath)
		dir := e.paths.InstanceContentDir(instanceID, ct)
		for _, candidate := range []string{filepath.Join(dir, name), filepath.Join(dir, name) + ".disabled"} {
			if err := os.Remove(candidate); err != nil && !os.IsNotExist(err) {
				return domainerr.Wrap(domainerr.KindWriteFailed, candidate, err)
			}
		}
		if err := pack.RemoveEntry(relPath); err != nil {
			return err
		}
	}
	e.bus.Publish(events.Event{Kind: events.KindInstanceEdited, Payload: events.InstancePayload{InstanceID: instanceID}})
	return nil
}

// InstallFromProvider dispatches to a registered Provider and records the
// resulting file in the pack index.
func (e *Engine) InstallFromProvider(ctx context.Context, instanceID, providerID string, params domain.InstallParams) error {
	p, err := e.provider(providerID)
	if err != nil {
		return err
	}
	pack := storage.NewPackStore(e.paths, instanceID)
	if err := pack.EnsureDirs(); err != nil {
		return err
	}
	dir := e.paths.InstanceContentDir(instanceID, string(params.ContentType))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return domainerr.Wrap(domainerr.KindWriteFailed, dir, err)
	}

	relPath, sidecar, err := p.Resolve(ctx, params, dir)
	if err != nil {
		return err
	}

	if err := pack.AddEntry(domain.PackFileEntry{
		File: relPath, Hash: sidecar.Hash, HashFormat: "sha1", Metafile: true,
	}, sidecar); err != nil {
		return err
	}

	e.bus.Publish(events.Event{Kind: events.KindInstanceEdited, Payload: events.InstancePayload{InstanceID: instanceID}})
	return nil
}

func sha1File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", domainerr.Wrap(domainerr.KindReadFailed, path, err)
	}
	defer f.Close()

	h := sha1.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", domainerr.Wrap(domainerr.KindReadFailed, path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func copyAndHash(src, dest string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", domainerr.Wrap(domainerr.KindReadFailed, src, err)
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return "", domainerr.Wrap(domainerr.KindWriteFailed, dest, err)
	}
	defer out.Close()

	h := sha1.New()
	if _, err := io.Copy(io.MultiWriter(out, h), in); err != nil {
		return "", domainerr.Wrap(domainerr.KindWriteFailed, dest, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
