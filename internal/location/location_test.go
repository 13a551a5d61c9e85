package location

import (
	"path/filepath"
	"testing"
)

func TestVersionPaths(t *testing.T) {
	p := Paths{ConfigDir: "/cfg", SettingsDir: "/settings"}

	want := filepath.Join("/cfg", "metadata", "versions", "1.20.4", "1.20.4.json")
	if got := p.VersionJSON("1.20.4"); got != want {
		t.Fatalf("VersionJSON = %q, want %q", got, want)
	}

	wantJar := filepath.Join("/cfg", "metadata", "versions", "1.20.4", "1.20.4.jar")
	if got := p.VersionJar("1.20.4"); got != wantJar {
		t.Fatalf("VersionJar = %q, want %q", got, wantJar)
	}
}

func TestAssetObjectFileUsesHashPrefix(t *testing.T) {
	p := Paths{ConfigDir: "/cfg"}
	hash := "abcdef0123456789"
	want := filepath.Join("/cfg", "metadata", "assets", "objects", "ab", hash)
	if got := p.AssetObjectFile(hash); got != want {
		t.Fatalf("AssetObjectFile = %q, want %q", got, want)
	}
}

func TestInstancePackSidecarTranslatesSlashes(t *testing.T) {
	p := Paths{ConfigDir: "/cfg"}
	got := p.InstancePackSidecar("Alpha", "mods/sodium.jar")
	want := filepath.Join("/cfg", "instances", "Alpha", ".metadata", "pack", "mods", "sodium.jar.toml")
	if got != want {
		t.Fatalf("InstancePackSidecar = %q, want %q", got, want)
	}
}

func TestSettingsDirPaths(t *testing.T) {
	p := Paths{ConfigDir: "/cfg", SettingsDir: "/settings"}
	if got := p.CredentialsFile(); got != filepath.Join("/settings", "credentials.json") {
		t.Fatalf("CredentialsFile = %q", got)
	}
	if got := p.SettingsFile(); got != filepath.Join("/settings", "settings.json") {
		t.Fatalf("SettingsFile = %q", got)
	}
}
