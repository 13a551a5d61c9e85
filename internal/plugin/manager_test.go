package plugin

import (
	"context"
	"os"
	"testing"

	"github.com/rs/zerolog"

	"github.com/MangriMen/aether-core/internal/domain"
	"github.com/MangriMen/aether-core/internal/events"
	"github.com/MangriMen/aether-core/internal/location"
	"github.com/MangriMen/aether-core/internal/storage"
)

func newTestHost(t *testing.T) (*Host, location.Paths, *fakeLoader) {
	t.Helper()
	paths := location.Paths{ConfigDir: t.TempDir(), SettingsDir: t.TempDir()}
	bus := events.NewBus()
	settings := storage.NewPluginSettingsStore(paths.PluginSettingsFile())
	host := NewHost(paths, bus, settings, nil, nil, nil, zerolog.Nop())

	fl := &fakeLoader{}
	host.registry.Register(domain.LoadKindWasm, fl)
	return host, paths, fl
}

func writeTestPlugin(t *testing.T, paths location.Paths, id string) {
	t.Helper()
	dir := paths.PluginDir(id)
	writeFile(t, dir, "manifest", []byte(`
[metadata]
id = "`+id+`"
name = "Test"
version = "1.0.0"

[load]
kind = "wasm"
file = "plugin.wasm"

[api]
version_req = "^1.0.0"
`))
	writeFile(t, dir, "plugin.wasm", []byte("fake wasm bytes"))
}

func TestHostSyncRegistersNewPluginAsNotLoaded(t *testing.T) {
	host, paths, _ := newTestHost(t)
	writeTestPlugin(t, paths, "example")

	if err := host.Sync(context.Background()); err != nil {
		t.Fatal(err)
	}

	list := host.List()
	if len(list) != 1 {
		t.Fatalf("got %d plugins", len(list))
	}
	if list[0].ID != "example" || list[0].Phase != domain.PhaseNotLoaded {
		t.Fatalf("got %+v", list[0])
	}
}

func TestHostSyncRemovesDisappearedPlugin(t *testing.T) {
	host, paths, _ := newTestHost(t)
	writeTestPlugin(t, paths, "example")
	if err := host.Sync(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := os.RemoveAll(paths.PluginDir("example")); err != nil {
		t.Fatal(err)
	}
	if err := host.Sync(context.Background()); err != nil {
		t.Fatal(err)
	}

	if len(host.List()) != 0 {
		t.Fatalf("expected the registry to be empty, got %+v", host.List())
	}
}

func TestHostEnableThenDisableRoundTrips(t *testing.T) {
	host, paths, fl := newTestHost(t)
	writeTestPlugin(t, paths, "example")
	if err := host.Sync(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := host.Enable(context.Background(), "example"); err != nil {
		t.Fatal(err)
	}
	list := host.List()
	if list[0].Phase != domain.PhaseLoaded || !list[0].Enabled {
		t.Fatalf("got %+v", list[0])
	}

	if err := host.Disable(context.Background(), "example"); err != nil {
		t.Fatal(err)
	}
	list = host.List()
	if list[0].Phase != domain.PhaseNotLoaded || list[0].Enabled {
		t.Fatalf("got %+v", list[0])
	}
	if fl.loaded != 1 || fl.unloaded != 1 {
		t.Fatalf("got loaded=%d unloaded=%d", fl.loaded, fl.unloaded)
	}
}

func TestHostSyncReEnablesPersistedSetting(t *testing.T) {
	host, paths, fl := newTestHost(t)
	writeTestPlugin(t, paths, "example")
	if err := host.Sync(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := host.Enable(context.Background(), "example"); err != nil {
		t.Fatal(err)
	}

	host2, _, fl2 := newTestHost(t)
	host2.paths = paths
	host2.settings = storage.NewPluginSettingsStore(paths.PluginSettingsFile())
	host2.registry.Register(domain.LoadKindWasm, fl2)
	if err := host2.Sync(context.Background()); err != nil {
		t.Fatal(err)
	}
	if host2.List()[0].Phase != domain.PhaseLoaded {
		t.Fatalf("expected re-sync to re-enable a previously enabled plugin, got %+v", host2.List()[0])
	}
	_ = fl
	_ = fl2
}
