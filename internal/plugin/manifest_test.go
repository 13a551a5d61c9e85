package plugin

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/MangriMen/aether-core/internal/domain"
	"github.com/MangriMen/aether-core/internal/domainerr"
)

const fakeManifest = `
[metadata]
id = "example"
name = "Example"
version = "1.0.0"

[runtime]
allowed_hosts = []

[load]
kind = "wasm"
file = "plugin.wasm"

[api]
version_req = "^1.0.0"
features = ["content_provider"]
`

func TestLoadManifestParsesTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest")
	if err := os.WriteFile(path, []byte(fakeManifest), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := loadManifest(path)
	if err != nil {
		t.Fatal(err)
	}
	if m.Metadata.ID != "example" || m.Load.Kind != domain.LoadKindWasm || m.Load.File != "plugin.wasm" {
		t.Fatalf("got %+v", m)
	}
	if len(m.API.Features) != 1 || m.API.Features[0] != "content_provider" {
		t.Fatalf("got features %+v", m.API.Features)
	}
}

func TestValidateManifestRequiresLoadFileToExist(t *testing.T) {
	dir := t.TempDir()
	m := domain.PluginManifest{
		Metadata: domain.PluginMetadata{ID: "example"},
		Load:     domain.LoadConfig{Kind: domain.LoadKindWasm, File: "missing.wasm"},
		API:      domain.APIConfig{VersionReq: "^1.0.0"},
	}
	if err := validateManifest(m, dir); domainerr.KindOf(err) != domainerr.KindPluginLoadFailed {
		t.Fatalf("got %v", err)
	}
}

func TestValidateManifestRejectsUnsatisfiedAPIVersion(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "plugin.wasm"), []byte{0}, 0o644); err != nil {
		t.Fatal(err)
	}
	m := domain.PluginManifest{
		Metadata: domain.PluginMetadata{ID: "example"},
		Load:     domain.LoadConfig{Kind: domain.LoadKindWasm, File: "plugin.wasm"},
		API:      domain.APIConfig{VersionReq: "^2.0.0"},
	}
	if err := validateManifest(m, dir); domainerr.KindOf(err) != domainerr.KindUnsupportedAPI {
		t.Fatalf("got %v", err)
	}
}

func TestValidateManifestRejectsNativeLoad(t *testing.T) {
	dir := t.TempDir()
	m := domain.PluginManifest{
		Metadata: domain.PluginMetadata{ID: "example"},
		Load:     domain.LoadConfig{Kind: domain.LoadKindNative, LibPath: "plugin.so"},
		API:      domain.APIConfig{VersionReq: "^1.0.0"},
	}
	if err := validateManifest(m, dir); domainerr.KindOf(err) != domainerr.KindUnsupportedAPI {
		t.Fatalf("got %v", err)
	}
}

func TestValidateManifestRejectsAbsoluteAllowedPath(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "plugin.wasm"), []byte{0}, 0o644); err != nil {
		t.Fatal(err)
	}
	m := domain.PluginManifest{
		Metadata: domain.PluginMetadata{ID: "example"},
		Load:     domain.LoadConfig{Kind: domain.LoadKindWasm, File: "plugin.wasm"},
		API:      domain.APIConfig{VersionReq: "^1.0.0"},
		Runtime:  domain.RuntimeConfig{AllowedPaths: []domain.PathMapping{{Tag: "bad", HostPath: "/etc"}}},
	}
	if err := validateManifest(m, dir); domainerr.KindOf(err) != domainerr.KindPluginNotAllowedPath {
		t.Fatalf("got %v", err)
	}
}

func TestVersionSatisfiesExactAndCaret(t *testing.T) {
	cases := []struct {
		version, req string
		want         bool
	}{
		{"1.0.0", "1.0.0", true},
		{"1.0.1", "1.0.0", false},
		{"1.2.3", "^1.0.0", true},
		{"1.0.0", "^1.2.0", false},
		{"2.0.0", "^1.9.9", false},
		{"1.0.0", "*", true},
		{"1.0.0", "", true},
	}
	for _, c := range cases {
		if got := versionSatisfies(c.version, c.req); got != c.want {
			t.Errorf("versionSatisfies(%q, %q) = %v, want %v", c.version, c.req, got, c.want)
		}
	}
}
