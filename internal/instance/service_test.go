package instance

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/MangriMen/aether-core/internal/content"
	"github.com/MangriMen/aether-core/internal/domain"
	"github.com/MangriMen/aether-core/internal/domainerr"
	"github.com/MangriMen/aether-core/internal/events"
	"github.com/MangriMen/aether-core/internal/location"
	"github.com/MangriMen/aether-core/internal/storage"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	paths := location.Paths{ConfigDir: t.TempDir(), SettingsDir: t.TempDir()}
	bus := events.NewBus()
	return NewService(Deps{
		Paths:     paths,
		Bus:       bus,
		Tracker:   events.NewProgressTracker(bus),
		Instances: storage.NewInstancesStore(paths.InstancesFile()),
		JavaStore: storage.NewJavaStore(paths.JavaFile()),
		Content:   content.NewEngine(paths, bus),
		Log:       zerolog.Nop(),
	})
}

func TestCreateRejectsEmptyName(t *testing.T) {
	s := newTestService(t)
	_, err := s.Create(context.Background(), domain.NewInstance{Name: "  ", SkipInstall: true})
	if k := domainerr.KindOf(err); k != domainerr.KindEmptyName {
		t.Fatalf("got %v", err)
	}
}

func TestCreateVanillaSkipInstallPersistsAndWatchless(t *testing.T) {
	s := newTestService(t)
	id, err := s.Create(context.Background(), domain.NewInstance{
		Name:        "My World",
		GameVersion: "1.20.1",
		ModLoader:   domain.LoaderVanilla,
		SkipInstall: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if id == "" {
		t.Fatal("expected a non-empty id")
	}

	if _, err := os.Stat(s.Paths.InstanceDir(id)); err != nil {
		t.Fatalf("expected instance dir to exist: %v", err)
	}

	inst, err := s.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	if inst.Name != "My World" || inst.InstallStage != domain.StageNotInstalled {
		t.Fatalf("got %+v", inst)
	}
}

func TestCreateUniquifiesCollidingNames(t *testing.T) {
	s := newTestService(t)
	first, err := s.Create(context.Background(), domain.NewInstance{Name: "dup", GameVersion: "1.20.1", SkipInstall: true})
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.Create(context.Background(), domain.NewInstance{Name: "dup", GameVersion: "1.20.1", SkipInstall: true})
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Fatalf("expected distinct ids, got %q twice", first)
	}
}

func TestEditAppliesPatchFields(t *testing.T) {
	s := newTestService(t)
	id, err := s.Create(context.Background(), domain.NewInstance{Name: "editable", GameVersion: "1.20.1", SkipInstall: true})
	if err != nil {
		t.Fatal(err)
	}

	newName := "renamed"
	mem := 4096
	updated, err := s.Edit(id, domain.InstancePatch{
		Name:         &newName,
		MemoryMaxMiB: domain.Set(mem),
	})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Name != "renamed" {
		t.Fatalf("got name %q", updated.Name)
	}
	if updated.MemoryMaxMiB == nil || *updated.MemoryMaxMiB != mem {
		t.Fatalf("got memory %+v", updated.MemoryMaxMiB)
	}
}

func TestEditRejectsEmptyName(t *testing.T) {
	s := newTestService(t)
	id, err := s.Create(context.Background(), domain.NewInstance{Name: "keep", GameVersion: "1.20.1", SkipInstall: true})
	if err != nil {
		t.Fatal(err)
	}
	blank := "   "
	_, err = s.Edit(id, domain.InstancePatch{Name: &blank})
	if k := domainerr.KindOf(err); k != domainerr.KindEmptyName {
		t.Fatalf("got %v", err)
	}
}

func TestRemoveDeletesDirAndRecord(t *testing.T) {
	s := newTestService(t)
	id, err := s.Create(context.Background(), domain.NewInstance{Name: "gone", GameVersion: "1.20.1", SkipInstall: true})
	if err != nil {
		t.Fatal(err)
	}
	dir := s.Paths.InstanceDir(id)

	if err := s.Remove(id); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("expected instance dir removed, got err=%v", err)
	}
	if _, err := s.Get(id); domainerr.KindOf(err) != domainerr.KindInstanceNotFound {
		t.Fatalf("expected instance_not_found, got %v", err)
	}
}

func TestRemoveUnknownInstanceFails(t *testing.T) {
	s := newTestService(t)
	if err := s.Remove("nonexistent"); err == nil {
		t.Fatal("expected an error")
	}
}

type stubUpdater struct {
	id      string
	updated []string
}

func (u *stubUpdater) ID() string { return u.id }
func (u *stubUpdater) Update(ctx context.Context, inst domain.Instance) error {
	u.updated = append(u.updated, inst.ID)
	return nil
}

func TestUpdateWithNoPackIsANoop(t *testing.T) {
	s := newTestService(t)
	id, err := s.Create(context.Background(), domain.NewInstance{Name: "vanilla", GameVersion: "1.20.1", SkipInstall: true})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Update(context.Background(), id); err != nil {
		t.Fatal(err)
	}
}

func TestUpdateDispatchesToRegisteredUpdater(t *testing.T) {
	s := newTestService(t)
	id, err := s.Create(context.Background(), domain.NewInstance{
		Name: "packed", GameVersion: "1.20.1", SkipInstall: true,
		Pack: &domain.PackInfo{PackType: "modrinth"},
	})
	if err != nil {
		t.Fatal(err)
	}

	u := &stubUpdater{id: "modrinth"}
	s.RegisterUpdater(u)
	if err := s.Update(context.Background(), id); err != nil {
		t.Fatal(err)
	}
	if len(u.updated) != 1 || u.updated[0] != id {
		t.Fatalf("got %+v", u.updated)
	}

	s.UnregisterUpdater("modrinth")
	if err := s.Update(context.Background(), id); domainerr.KindOf(err) != domainerr.KindContentProviderNotFound {
		t.Fatalf("expected content_provider_not_found after deregistration, got %v", err)
	}
}

func TestListContentOnEmptyInstanceIsEmpty(t *testing.T) {
	s := newTestService(t)
	id, err := s.Create(context.Background(), domain.NewInstance{Name: "emptycontent", GameVersion: "1.20.1", SkipInstall: true})
	if err != nil {
		t.Fatal(err)
	}
	files, err := s.ListContent(id)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 0 {
		t.Fatalf("got %+v", files)
	}
}

func TestInstallContentFromProviderRejectsUnknownProvider(t *testing.T) {
	s := newTestService(t)
	id, err := s.Create(context.Background(), domain.NewInstance{Name: "needsprovider", GameVersion: "1.20.1", SkipInstall: true})
	if err != nil {
		t.Fatal(err)
	}
	err = s.InstallContentFromProvider(context.Background(), id, "nosuchprovider", domain.InstallParams{})
	if domainerr.KindOf(err) != domainerr.KindContentProviderNotFound {
		t.Fatalf("got %v", err)
	}
}

func TestLaunchRejectsWhileInstalling(t *testing.T) {
	s := newTestService(t)
	id, err := s.Create(context.Background(), domain.NewInstance{Name: "installing", GameVersion: "1.20.1", SkipInstall: true})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Instances.Mutate(id, func(i *domain.Instance) error {
		i.InstallStage = domain.StageInstalling
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	_, err = s.Launch(context.Background(), id, domain.Credentials{})
	if domainerr.KindOf(err) != domainerr.KindInstanceStillInstalling {
		t.Fatalf("got %v", err)
	}
}

func TestLaunchRejectsUnknownInstance(t *testing.T) {
	s := newTestService(t)
	if _, err := s.Launch(context.Background(), "missing", domain.Credentials{}); err == nil {
		t.Fatal("expected an error")
	}
}

func TestRollbackCreateRemovesPartialState(t *testing.T) {
	s := newTestService(t)
	dir := s.Paths.InstanceDir("ghost")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := s.Instances.Upsert(domain.Instance{ID: "ghost", Name: "ghost"}); err != nil {
		t.Fatal(err)
	}

	s.rollbackCreate("ghost")

	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("expected dir removed, got err=%v", err)
	}
	if _, err := s.Get("ghost"); domainerr.KindOf(err) != domainerr.KindInstanceNotFound {
		t.Fatalf("got %v", err)
	}
}

func TestSanitizeNameUsedByCreateAvoidsPathTraversal(t *testing.T) {
	s := newTestService(t)
	id, err := s.Create(context.Background(), domain.NewInstance{Name: "../../etc", GameVersion: "1.20.1", SkipInstall: true})
	if err != nil {
		t.Fatal(err)
	}
	dir := s.Paths.InstanceDir(id)
	root := s.Paths.InstancesRoot()
	rel, err := filepath.Rel(root, dir)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		t.Fatalf("sanitized instance dir escaped the instances root: %q", dir)
	}
}
