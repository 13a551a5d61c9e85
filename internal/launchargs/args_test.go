package launchargs

import (
	"strings"
	"testing"

	"github.com/MangriMen/aether-core/internal/domain"
	"github.com/MangriMen/aether-core/internal/location"
)

func TestBuildGameArgsLegacyTemplate(t *testing.T) {
	info := domain.VersionInfo{MinecraftArguments: "--username ${auth_player_name} --uuid ${auth_uuid}"}
	sub := Substitutions{"auth_player_name": "Steve", "auth_uuid": "uuid-1"}
	args := BuildGameArgs(info, Environment{OS: OSLinux}, sub)
	got := strings.Join(args, " ")
	if got != "--username Steve --uuid uuid-1" {
		t.Fatalf("got %q", got)
	}
}

func TestBuildGameArgsModernArrayFormRespectsRules(t *testing.T) {
	info := domain.VersionInfo{}
	info.Arguments.Game = []domain.Argument{
		{Plain: "--username"},
		{Plain: "${auth_player_name}"},
		{Rules: []domain.Rule{{Action: "allow", Features: map[string]bool{"is_demo_user": true}}}, Values: []string{"--demo"}},
	}
	sub := Substitutions{"auth_player_name": "Alex"}

	args := BuildGameArgs(info, Environment{OS: OSLinux, Features: Features{IsDemoUser: false}}, sub)
	if strings.Contains(strings.Join(args, " "), "--demo") {
		t.Fatal("expected --demo to be excluded when is_demo_user is false")
	}

	args = BuildGameArgs(info, Environment{OS: OSLinux, Features: Features{IsDemoUser: true}}, sub)
	if !strings.Contains(strings.Join(args, " "), "--demo") {
		t.Fatal("expected --demo to be included when is_demo_user is true")
	}
}

func TestBuildJVMArgsFallsBackWhenNoModernArguments(t *testing.T) {
	sub := Substitutions{"natives_directory": "/tmp/natives", "classpath": "/a.jar:/b.jar"}
	args := BuildJVMArgs(domain.VersionInfo{}, Environment{OS: OSLinux}, sub, 4096, []string{"-Dextra=1"})

	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "-Xmx4096M") {
		t.Fatalf("expected memory flag, got %q", joined)
	}
	if !strings.Contains(joined, "-Djava.library.path=/tmp/natives") {
		t.Fatalf("expected library path flag, got %q", joined)
	}
	if !strings.Contains(joined, "-Dextra=1") {
		t.Fatalf("expected extra args appended, got %q", joined)
	}
}

func TestClasspathSkipsNativeClassifiersAndAppendsVersionJar(t *testing.T) {
	paths := location.Paths{ConfigDir: "/cfg"}
	info := domain.VersionInfo{
		Libraries: []domain.Library{
			{
				Name:      "org.lwjgl:lwjgl:3.3.1",
				Downloads: domain.LibraryDownloads{Artifact: domain.LibraryArtifact{Path: "org/lwjgl/lwjgl/3.3.1/lwjgl-3.3.1.jar"}},
			},
			{
				Name:    "org.lwjgl:lwjgl:natives-linux",
				Natives: map[string]string{"linux": "natives-linux"},
				Downloads: domain.LibraryDownloads{
					Classifiers: map[string]domain.LibraryArtifact{"natives-linux": {Path: "org/lwjgl/lwjgl/3.3.1/lwjgl-3.3.1-natives-linux.jar"}},
				},
			},
		},
	}

	cp := Classpath(paths, "1.20.1", info, Environment{OS: OSLinux})
	if !strings.Contains(cp, "lwjgl-3.3.1.jar") {
		t.Fatalf("expected main artifact in classpath: %q", cp)
	}
	if strings.Contains(cp, "natives-linux.jar") {
		t.Fatalf("expected native classifier excluded from classpath: %q", cp)
	}
	if !strings.HasSuffix(cp, "1.20.1.jar") {
		t.Fatalf("expected version jar appended last: %q", cp)
	}
}

func TestNativeLibraryPathsCollectsOnlyMatchingClassifiers(t *testing.T) {
	paths := location.Paths{ConfigDir: "/cfg"}
	info := domain.VersionInfo{
		Libraries: []domain.Library{
			{
				Name:    "org.lwjgl:lwjgl:natives-linux",
				Natives: map[string]string{"linux": "natives-linux"},
				Downloads: domain.LibraryDownloads{
					Classifiers: map[string]domain.LibraryArtifact{"natives-linux": {Path: "a/natives-linux.jar"}},
				},
			},
			{
				Name:      "org.lwjgl:lwjgl:3.3.1",
				Downloads: domain.LibraryDownloads{Artifact: domain.LibraryArtifact{Path: "a/lwjgl.jar"}},
			},
		},
	}

	got := NativeLibraryPaths(paths, info, Environment{OS: OSLinux})
	if len(got) != 1 || !strings.Contains(got[0], "natives-linux.jar") {
		t.Fatalf("got %v", got)
	}
}

func TestMainClassDefaultsWhenEmpty(t *testing.T) {
	if MainClass(domain.VersionInfo{}) != "net.minecraft.client.main.Main" {
		t.Fatal("expected default main class")
	}
	if MainClass(domain.VersionInfo{MainClass: "custom.Main"}) != "custom.Main" {
		t.Fatal("expected explicit main class to win")
	}
}
