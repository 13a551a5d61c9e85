package instance

import (
	"testing"

	"github.com/MangriMen/aether-core/internal/location"
)

func TestSanitizeNameReplacesIllegalChars(t *testing.T) {
	got := SanitizeName(location.Paths{}, `my/pack?*:'"|<>!`, func(string) bool { return false })
	if got != "my_pack_________" {
		t.Fatalf("got %q", got)
	}
}

func TestSanitizeNameDisambiguates(t *testing.T) {
	taken := map[string]bool{"Modpack": true, "Modpack-1": true}
	got := SanitizeName(location.Paths{}, "Modpack", func(id string) bool { return taken[id] })
	if got != "Modpack-2" {
		t.Fatalf("got %q", got)
	}
}

func TestSanitizeNameEmptyFallsBackToDefault(t *testing.T) {
	got := SanitizeName(location.Paths{}, "   ", func(string) bool { return false })
	if got != "instance" {
		t.Fatalf("got %q", got)
	}
}
