package metadata

import (
	"testing"

	"github.com/MangriMen/aether-core/internal/domain"
)

func TestMergeVersionInfoChildFieldsWinWhenNonEmpty(t *testing.T) {
	parent := domain.VersionInfo{
		MainClass: "net.minecraft.client.main.Main",
		Assets:    "1.20",
	}
	child := domain.VersionInfo{
		MainClass: "net.fabricmc.loader.impl.launch.knot.KnotClient",
	}

	merged := MergeVersionInfo(child, parent)
	if merged.MainClass != "net.fabricmc.loader.impl.launch.knot.KnotClient" {
		t.Fatalf("got %q", merged.MainClass)
	}
	if merged.Assets != "1.20" {
		t.Fatalf("expected inherited assets, got %q", merged.Assets)
	}
}

func TestMergeVersionInfoFallsBackToParentWhenChildEmpty(t *testing.T) {
	parent := domain.VersionInfo{
		MainClass:          "net.minecraft.client.main.Main",
		MinecraftArguments: "--username ${auth_player_name}",
		AssetIndex:         domain.AssetIndexRef{ID: "1.20"},
	}
	parent.Downloads.Client.URL = "https://example.invalid/client.jar"
	parent.JavaVersion.MajorVersion = 17

	merged := MergeVersionInfo(domain.VersionInfo{}, parent)

	if merged.MainClass != parent.MainClass {
		t.Fatalf("got %q", merged.MainClass)
	}
	if merged.MinecraftArguments != parent.MinecraftArguments {
		t.Fatalf("got %q", merged.MinecraftArguments)
	}
	if merged.AssetIndex.ID != "1.20" {
		t.Fatalf("got %+v", merged.AssetIndex)
	}
	if merged.Downloads.Client.URL != parent.Downloads.Client.URL {
		t.Fatalf("got %q", merged.Downloads.Client.URL)
	}
	if merged.JavaVersion.MajorVersion != 17 {
		t.Fatalf("got %d", merged.JavaVersion.MajorVersion)
	}
}

func TestMergeVersionInfoPrependsParentLibraries(t *testing.T) {
	parent := domain.VersionInfo{
		Libraries: []domain.Library{{Name: "com.mojang:authlib:1.0"}},
	}
	child := domain.VersionInfo{
		Libraries: []domain.Library{{Name: "net.fabricmc:fabric-loader:0.15.9"}},
	}

	merged := MergeVersionInfo(child, parent)
	if len(merged.Libraries) != 2 {
		t.Fatalf("got %d libraries", len(merged.Libraries))
	}
	if merged.Libraries[0].Name != "com.mojang:authlib:1.0" {
		t.Fatalf("expected parent library first, got %q", merged.Libraries[0].Name)
	}
	if merged.Libraries[1].Name != "net.fabricmc:fabric-loader:0.15.9" {
		t.Fatalf("expected child library second, got %q", merged.Libraries[1].Name)
	}
}

func TestMergeVersionInfoKeepsChildArgumentsWhenPresent(t *testing.T) {
	parent := domain.VersionInfo{}
	parent.Arguments.Game = []domain.Argument{{Plain: "--parent-only"}}
	child := domain.VersionInfo{}
	child.Arguments.Game = []domain.Argument{{Plain: "--child-wins"}}

	merged := MergeVersionInfo(child, parent)
	if len(merged.Arguments.Game) != 1 || merged.Arguments.Game[0].Plain != "--child-wins" {
		t.Fatalf("got %+v", merged.Arguments.Game)
	}
}
