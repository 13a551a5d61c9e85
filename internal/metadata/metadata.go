// Package metadata implements §4.5: cached version and loader manifests,
// and the loader-version-preference resolver. Generalizes the teacher's
// Manifest/Version/VersionMetadata structs and inheritance merge
// (src/launcher/launcher.go's loadVersionJSON) from "load an
// already-downloaded file" to "cache-or-fetch via ResourceKey".
package metadata

import (
	"context"
	"encoding/json"
	"os"
	"sync"

	"github.com/MangriMen/aether-core/internal/domain"
	"github.com/MangriMen/aether-core/internal/domainerr"
	"github.com/MangriMen/aether-core/internal/location"
	"github.com/MangriMen/aether-core/internal/request"
)

const (
	versionManifestURL = "https://launchermeta.mojang.com/mc/game/version_manifest.json"
)

// ResourceKey identifies one cacheable metadata document.
type ResourceKey struct {
	Kind string // "version_manifest" | "loader_manifest" | "merged_version_info"
	ID   string
}

// Cache is an in-memory cache over ResourceKey -> bytes. It writes nothing
// to disk; the only disk access is reading an existing
// <version>/<version>.json (GetVersionInfo, loadMaterializedVersionInfo).
type Cache struct {
	client *request.Client
	paths  location.Paths
	mu     sync.Mutex
	mem    map[ResourceKey][]byte
}

func NewCache(client *request.Client, paths location.Paths) *Cache {
	return &Cache{client: client, paths: paths, mem: make(map[ResourceKey][]byte)}
}

// loaderManifestURL maps a loader kind to its own meta-server listing.
func loaderManifestURL(loader domain.ModLoader, gameVersion string) (string, bool) {
	switch loader {
	case domain.LoaderFabric:
		return "https://meta.fabricmc.net/v2/versions/loader", true
	case domain.LoaderQuilt:
		return "https://meta.quiltmc.org/v3/versions/loader", true
	default:
		return "", false
	}
}

// GetVersionManifest returns the vanilla version list, fetching and
// caching it on first use or when force is set.
func (c *Cache) GetVersionManifest(ctx context.Context, force bool) (domain.VersionManifest, error) {
	key := ResourceKey{Kind: "version_manifest", ID: "_"}
	var manifest domain.VersionManifest
	data, ok := c.get(key, force)
	if ok {
		if err := json.Unmarshal(data, &manifest); err == nil {
			return manifest, nil
		}
	}

	data, err := c.client.FetchBytes(ctx, request.Request{Method: "GET", URL: versionManifestURL, Background: false})
	if err != nil {
		return manifest, err
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		return manifest, domainerr.Wrap(domainerr.KindCorrupted, versionManifestURL, err)
	}
	c.put(key, data)
	return manifest, nil
}

// GetLoaderVersionManifest returns a mod loader's own version listing.
func (c *Cache) GetLoaderVersionManifest(ctx context.Context, loader domain.ModLoader, gameVersion string, force bool) (domain.LoaderVersionManifest, error) {
	var manifest domain.LoaderVersionManifest
	base, ok := loaderManifestURL(loader, gameVersion)
	if !ok {
		return manifest, domainerr.New(domainerr.KindBadLoaderPref, string(loader))
	}
	url := base + "/" + gameVersion

	key := ResourceKey{Kind: "loader_manifest", ID: string(loader) + ":" + gameVersion}
	if data, ok := c.get(key, force); ok {
		if err := json.Unmarshal(data, &manifest); err == nil {
			return manifest, nil
		}
	}

	data, err := c.client.FetchBytes(ctx, request.Request{Method: "GET", URL: url})
	if err != nil {
		return manifest, err
	}
	// Fabric/Quilt return a bare array of {loader:{...}} rather than our
	// {versions:[...]} shape; normalize it here.
	var raw []struct {
		Version struct {
			Version string `json:"version"`
			Stable  bool   `json:"stable"`
		} `json:"loader"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return manifest, domainerr.Wrap(domainerr.KindCorrupted, url, err)
	}
	for _, r := range raw {
		manifest.Versions = append(manifest.Versions, domain.LoaderVersion{ID: r.Version.Version, Stable: r.Version.Stable})
	}
	c.put(key, data)
	return manifest, nil
}

// GetVersionInfo returns the VersionInfo for a version, reading
// metadata/versions/<v>/<v>.json if that file already exists (nothing in
// this package writes it), else fetching the vanilla descriptor from the
// manifest entry's own URL. A fetched descriptor is not cached.
func (c *Cache) GetVersionInfo(ctx context.Context, version string, force bool) (domain.VersionInfo, error) {
	var info domain.VersionInfo
	path := c.paths.VersionJSON(version)
	if !force {
		if data, err := os.ReadFile(path); err == nil {
			if jerr := json.Unmarshal(data, &info); jerr == nil {
				return info, nil
			}
		}
	}

	manifest, err := c.GetVersionManifest(ctx, force)
	if err != nil {
		return info, err
	}
	var entryURL string
	for _, v := range manifest.Versions {
		if v.ID == version {
			entryURL = v.URL
			break
		}
	}
	if entryURL == "" {
		return info, domainerr.New(domainerr.KindNoValueFor, "version "+version)
	}

	data, err := c.client.FetchBytes(ctx, request.Request{Method: "GET", URL: entryURL})
	if err != nil {
		return info, err
	}
	if err := json.Unmarshal(data, &info); err != nil {
		return info, domainerr.Wrap(domainerr.KindCorrupted, entryURL, err)
	}
	return info, nil
}

func (c *Cache) get(key ResourceKey, force bool) ([]byte, bool) {
	if force {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.mem[key]
	return data, ok
}

func (c *Cache) put(key ResourceKey, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mem[key] = data
}

// LoaderVersionResolver turns a user preference ("latest" | "stable" |
// <explicit id>) into a concrete LoaderVersion, per spec.md §4.5's
// tie-break rules.
type LoaderVersionResolver struct {
	cache *Cache
}

func NewLoaderVersionResolver(cache *Cache) *LoaderVersionResolver {
	return &LoaderVersionResolver{cache: cache}
}

func (r *LoaderVersionResolver) Resolve(ctx context.Context, loader domain.ModLoader, gameVersion, pref string) (domain.LoaderVersion, error) {
	manifest, err := r.cache.GetLoaderVersionManifest(ctx, loader, gameVersion, false)
	if err != nil {
		return domain.LoaderVersion{}, err
	}
	if len(manifest.Versions) == 0 {
		return domain.LoaderVersion{}, domainerr.New(domainerr.KindNoValueFor, "loader versions for "+gameVersion)
	}

	return pickLoaderVersion(manifest.Versions, pref)
}

// pickLoaderVersion implements the latest/stable/explicit tie-break rules
// in isolation from network/cache concerns, per spec.md §4.5: latest is
// the first entry, stable is the first entry with stable == true, and an
// explicit id must match exactly.
func pickLoaderVersion(versions []domain.LoaderVersion, pref string) (domain.LoaderVersion, error) {
	switch pref {
	case "latest", "":
		return versions[0], nil
	case "stable":
		for _, v := range versions {
			if v.Stable {
				return v, nil
			}
		}
		return domain.LoaderVersion{}, domainerr.New(domainerr.KindNoValueFor, "stable loader version")
	default:
		for _, v := range versions {
			if v.ID == pref {
				return v, nil
			}
		}
		return domain.LoaderVersion{}, domainerr.New(domainerr.KindBadLoaderPref, pref)
	}
}
