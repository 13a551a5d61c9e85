// Package instance implements §4.11: instance create/install/edit/
// update/remove/launch orchestration, driving metadata resolution (M),
// the download pipeline (D), the Forge processor runner (P), the
// argument builder (B), and the process manager (X) in the order spec.md
// §4.11 and §5 require (Create -> Install -> Launch strictly sequential
// per instance). Grounded on the teacher's PrepareCMD/LaunchMinecraft
// call order (src/launcher/launcher.go) and
// dilllxd-theboys-launcher's InstanceManager.CreateInstance shape
// (sanitize -> directory -> resolve loader/java -> persist record).
package instance

import (
	"context"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/MangriMen/aether-core/internal/content"
	"github.com/MangriMen/aether-core/internal/domain"
	"github.com/MangriMen/aether-core/internal/domainerr"
	"github.com/MangriMen/aether-core/internal/download"
	"github.com/MangriMen/aether-core/internal/events"
	"github.com/MangriMen/aether-core/internal/java"
	"github.com/MangriMen/aether-core/internal/launchargs"
	"github.com/MangriMen/aether-core/internal/location"
	"github.com/MangriMen/aether-core/internal/metadata"
	"github.com/MangriMen/aether-core/internal/process"
	"github.com/MangriMen/aether-core/internal/processor"
	"github.com/MangriMen/aether-core/internal/storage"
)

// defaultJavaMajor is used when a merged VersionInfo carries no
// javaVersion.majorVersion (pre-1.17 vanilla descriptors never did).
const defaultJavaMajor = 17

// defaultMemoryMiB mirrors the teacher's own -Xmx default.
const defaultMemoryMiB = 2048

// Updater is a capability a pack_info-bearing instance can be handed to
// for spec.md §4.11's Update operation. Plugin-provided Updater
// capabilities (§4.12) register here the same way content.Provider
// registers into the content engine's registry.
type Updater interface {
	ID() string
	Update(ctx context.Context, inst domain.Instance) error
}

// Deps bundles every subsystem the instance service orchestrates.
type Deps struct {
	Paths       location.Paths
	Bus         *events.Bus
	Tracker     *events.ProgressTracker
	Instances   *storage.InstancesStore
	JavaStore   *storage.JavaStore
	Metadata    *metadata.Cache
	Resolver    *metadata.LoaderVersionResolver
	Download    *download.Orchestrator
	Processor   *processor.Runner
	Process     *process.Manager
	Java        *java.Manager
	Content     *content.Engine
	Watcher     *content.Watcher
	Log         zerolog.Logger
}

// Service is the §4.11 instance orchestrator.
type Service struct {
	Deps

	mu       sync.RWMutex
	updaters map[string]Updater
}

func NewService(deps Deps) *Service {
	return &Service{Deps: deps, updaters: make(map[string]Updater)}
}

// RegisterUpdater adds or replaces a named Updater capability.
func (s *Service) RegisterUpdater(u Updater) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updaters[u.ID()] = u
}

// UnregisterUpdater removes a previously registered Updater capability,
// e.g. when the owning plugin unloads (§4.12 capability deregistration).
func (s *Service) UnregisterUpdater(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.updaters, id)
}

// Create implements §4.11's Create: sanitize/uniquify the name,
// materialize the directory, resolve a loader version preference if any,
// persist the record, register the watcher, and optionally install.
// Any failure rolls back the instance record (directory + registry).
func (s *Service) Create(ctx context.Context, in domain.NewInstance) (string, error) {
	if strings.TrimSpace(in.Name) == "" {
		return "", domainerr.New(domainerr.KindEmptyName, "name")
	}

	id := SanitizeName(s.Paths, in.Name, func(candidate string) bool {
		exists, _ := s.Instances.Exists(candidate)
		return exists
	})

	dir := s.Paths.InstanceDir(id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", domainerr.Wrap(domainerr.KindWriteFailed, dir, err)
	}

	var loaderVersion *string
	if in.ModLoader != "" && in.ModLoader != domain.LoaderVanilla {
		pref := "latest"
		if in.LoaderVersionPref != nil && *in.LoaderVersionPref != "" {
			pref = *in.LoaderVersionPref
		}
		lv, err := s.Resolver.Resolve(ctx, in.ModLoader, in.GameVersion, pref)
		if err != nil {
			s.rollbackCreate(id)
			return "", err
		}
		loaderVersion = &lv.ID
	}

	now := time.Now()
	inst := domain.Instance{
		ID:            id,
		Name:          in.Name,
		IconPath:      in.IconPath,
		InstallStage:  domain.StageNotInstalled,
		GameVersion:   in.GameVersion,
		ModLoader:     in.ModLoader,
		LoaderVersion: loaderVersion,
		CreatedAt:     now,
		ModifiedAt:    now,
		Pack:          in.Pack,
	}
	if err := s.Instances.Upsert(inst); err != nil {
		s.rollbackCreate(id)
		return "", err
	}

	if s.Watcher != nil {
		if err := s.Watcher.Watch(id); err != nil {
			s.Log.Warn().Err(err).Str("instance", id).Msg("failed to register file watcher")
		}
	}
	s.Bus.Publish(events.Event{Kind: events.KindInstanceCreated, Payload: events.InstancePayload{InstanceID: id}})

	if !in.SkipInstall {
		if err := s.Install(ctx, id, false); err != nil {
			s.rollbackCreate(id)
			s.Bus.Publish(events.Event{Kind: events.KindWarning, Payload: events.WarningPayload{
				Message: "install failed for new instance " + id, Cause: err,
			}})
			return "", err
		}
	}
	return id, nil
}

func (s *Service) rollbackCreate(id string) {
	_ = os.RemoveAll(s.Paths.InstanceDir(id))
	_ = s.Instances.Remove(id)
}

func (s *Service) List() ([]domain.Instance, error) { return s.Instances.List() }

func (s *Service) Get(id string) (domain.Instance, error) {
	inst, err := s.Instances.Get(id)
	if err != nil {
		return domain.Instance{}, err
	}
	return *inst, nil
}

// Edit applies patch's tri-state fields and bumps modified, per §4.11.
func (s *Service) Edit(id string, patch domain.InstancePatch) (domain.Instance, error) {
	return s.Instances.Mutate(id, func(inst *domain.Instance) error {
		if patch.Name != nil {
			if strings.TrimSpace(*patch.Name) == "" {
				return domainerr.New(domainerr.KindEmptyName, "name")
			}
			inst.Name = *patch.Name
		}
		domain.Apply(&inst.IconPath, patch.IconPath)
		domain.Apply(&inst.LoaderVersion, patch.LoaderVersion)
		domain.Apply(&inst.JavaPathOverride, patch.JavaPathOverride)
		domain.Apply(&inst.JavaVersionOverride, patch.JavaVersionOverride)
		domain.Apply(&inst.ExtraLaunchArgs, patch.ExtraLaunchArgs)
		domain.Apply(&inst.Env, patch.Env)
		domain.Apply(&inst.MemoryMaxMiB, patch.MemoryMaxMiB)
		domain.Apply(&inst.Resolution, patch.Resolution)
		if patch.Fullscreen != nil {
			inst.Fullscreen = *patch.Fullscreen
		}
		if patch.Hooks != nil {
			inst.Hooks = *patch.Hooks
		}
		inst.ModifiedAt = time.Now()
		return nil
	})
}

// Remove implements §4.11's Remove: unwatch, delete the directory tree,
// and drop the registry record.
func (s *Service) Remove(id string) error {
	if _, err := s.Instances.Get(id); err != nil {
		return err
	}
	if s.Watcher != nil {
		s.Watcher.Unwatch(id)
	}
	dir := s.Paths.InstanceDir(id)
	if err := os.RemoveAll(dir); err != nil {
		return domainerr.Wrap(domainerr.KindWriteFailed, dir, err)
	}
	if err := s.Instances.Remove(id); err != nil {
		return err
	}
	s.Bus.Publish(events.Event{Kind: events.KindInstanceRemoved, Payload: events.InstancePayload{InstanceID: id}})
	return nil
}

// Install implements §4.11's Install: advance to Installing, resolve
// metadata, run the download pipeline and any Forge processors, then
// advance to Installed — reverting to NotInstalled on failure unless the
// instance had already reached Installed before this call.
func (s *Service) Install(ctx context.Context, id string, force bool) error {
	inst, err := s.Instances.Get(id)
	if err != nil {
		return err
	}

	if _, err := s.Instances.Mutate(id, func(i *domain.Instance) error {
		i.InstallStage = domain.StageInstalling
		i.ModifiedAt = time.Now()
		return nil
	}); err != nil {
		return err
	}

	barID := s.Tracker.Init("instance_install", 1.0, "Installing "+inst.Name)
	defer s.Tracker.Finish(barID)

	installErr := s.doInstall(ctx, *inst, force, barID)

	wasInstalled := inst.InstallStage == domain.StageInstalled
	if installErr != nil {
		if !wasInstalled {
			_, _ = s.Instances.Mutate(id, func(i *domain.Instance) error {
				i.InstallStage = domain.StageNotInstalled
				return nil
			})
		}
		return installErr
	}

	_, err = s.Instances.Mutate(id, func(i *domain.Instance) error {
		i.InstallStage = domain.StageInstalled
		i.ModifiedAt = time.Now()
		return nil
	})
	return err
}

func (s *Service) doInstall(ctx context.Context, inst domain.Instance, force bool, barID string) error {
	info, err := s.resolveVersionInfo(ctx, inst, force)
	if err != nil {
		return err
	}

	env := launchargs.CurrentEnvironment("", launchargs.Features{})
	hasProcessors := len(info.Processors) > 0

	if err := s.Download.Install(ctx, info, env, force, hasProcessors, s.Tracker, barID); err != nil {
		return err
	}

	if hasProcessors {
		javaInst, err := s.resolveJava(ctx, inst, info)
		if err != nil {
			return err
		}
		rc := processor.Context{
			JavaPath:         javaInst.Path,
			Side:             "client",
			ClientJar:        s.Paths.VersionJar(info.ID),
			MinecraftVersion: inst.GameVersion,
			InstanceDir:      s.Paths.InstanceDir(inst.ID),
			LibraryDir:       s.Paths.LibrariesDir(),
			Data:             info.Data,
		}
		if err := s.Processor.Run(ctx, info, rc, s.Tracker, barID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) resolveVersionInfo(ctx context.Context, inst domain.Instance, force bool) (domain.VersionInfo, error) {
	loaderVersion := ""
	if inst.LoaderVersion != nil {
		loaderVersion = *inst.LoaderVersion
	}
	return s.Metadata.GetMergedVersionInfo(ctx, inst.GameVersion, inst.ModLoader, loaderVersion, force)
}

// resolveJava picks instance's java override, the best already-known
// installation for the merged VersionInfo's required major version, or
// auto-installs one via the JRE provider, per spec.md §4.10 step 5.
func (s *Service) resolveJava(ctx context.Context, inst domain.Instance, info domain.VersionInfo) (domain.JavaInstallation, error) {
	if inst.JavaPathOverride != nil && *inst.JavaPathOverride != "" {
		return java.Probe(ctx, *inst.JavaPathOverride)
	}

	required := info.JavaVersion.MajorVersion
	if inst.JavaVersionOverride != nil {
		required = *inst.JavaVersionOverride
	}
	if required == 0 {
		required = defaultJavaMajor
	}

	known, err := s.JavaStore.List()
	if err != nil {
		return domain.JavaInstallation{}, err
	}
	if best, ok := java.GetBestJavaInstallation(known, required, ""); ok {
		return best, nil
	}

	installed, err := s.Java.Install(ctx, required, "")
	if err != nil {
		return domain.JavaInstallation{}, domainerr.WithField(domainerr.Wrap(domainerr.KindJavaVersionNotFound, strconv.Itoa(required), err), "major_version", required)
	}
	if err := s.JavaStore.Add(installed); err != nil {
		return domain.JavaInstallation{}, err
	}
	return installed, nil
}

// Update implements §4.11's Update: if the instance has a pack_info,
// resolve its matching Updater capability and invoke it.
func (s *Service) Update(ctx context.Context, id string) error {
	inst, err := s.Instances.Get(id)
	if err != nil {
		return err
	}
	if inst.Pack == nil {
		return nil
	}

	s.mu.RLock()
	updater, ok := s.updaters[inst.Pack.PackType]
	s.mu.RUnlock()
	if !ok {
		return domainerr.New(domainerr.KindContentProviderNotFound, inst.Pack.PackType)
	}
	return updater.Update(ctx, *inst)
}

// --- content passthrough (§4.11's "Content management") ---

func (s *Service) ListContent(id string) (map[string]domain.InstanceFile, error) {
	return s.Content.List(id)
}

func (s *Service) EnableContent(id string, paths []string) error {
	return s.Content.SetEnabled(id, paths, true)
}

func (s *Service) DisableContent(id string, paths []string) error {
	return s.Content.SetEnabled(id, paths, false)
}

func (s *Service) ImportContent(ctx context.Context, id string, ct domain.ContentType, sourcePaths []string) error {
	return s.Content.Import(ctx, id, ct, sourcePaths)
}

func (s *Service) RemoveContent(id string, paths []string) error {
	return s.Content.Remove(id, paths)
}

func (s *Service) InstallContentFromProvider(ctx context.Context, id, providerID string, params domain.InstallParams) error {
	return s.Content.InstallFromProvider(ctx, id, providerID, params)
}

// --- launch (§4.10 driven from the instance service) ---

// Launch implements spec.md §4.10's LaunchInstance.
func (s *Service) Launch(ctx context.Context, id string, creds domain.Credentials) (string, error) {
	inst, err := s.Instances.Get(id)
	if err != nil {
		return "", err
	}

	if inst.InstallStage == domain.StageInstalling || inst.InstallStage == domain.StagePackInstalling {
		return "", domainerr.New(domainerr.KindInstanceStillInstalling, id)
	}
	if uuid, running := s.Process.IsRunning(id); running {
		return "", domainerr.WithField(domainerr.New(domainerr.KindInstanceAlreadyRunning, id), "uuid", uuid)
	}
	if inst.InstallStage != domain.StageInstalled {
		if err := s.Install(ctx, id, false); err != nil {
			return "", err
		}
		inst, err = s.Instances.Get(id)
		if err != nil {
			return "", err
		}
	}

	info, err := s.resolveVersionInfo(ctx, *inst, false)
	if err != nil {
		return "", err
	}

	javaInst, err := s.resolveJava(ctx, *inst, info)
	if err != nil {
		return "", err
	}

	env := launchargs.CurrentEnvironment(javaInst.Arch, launchargs.Features{
		HasCustomResolution: inst.Resolution != nil,
	})

	instanceDir := s.Paths.InstanceDir(inst.ID)
	nativesDir := launchargs.AbsNativesDir(s.Paths, info.ID)
	if err := os.MkdirAll(nativesDir, 0o755); err != nil {
		return "", domainerr.Wrap(domainerr.KindWriteFailed, nativesDir, err)
	}
	classpath := launchargs.Classpath(s.Paths, info.ID, info, env)

	username, uuid, accessToken, userType := "Player", "00000000000000000000000000000000", "", "msa"
	if creds.Username != "" {
		username = creds.Username
	}
	if creds.UUID != "" {
		uuid = strings.ReplaceAll(creds.UUID, "-", "")
	}
	accessToken = creds.AccessToken

	sub := launchargs.NewSubstitutions(s.Paths, instanceDir, info.ID, info.AssetIndex.ID, username, uuid, accessToken, userType, classpath, nativesDir)
	if inst.Resolution != nil {
		sub["resolution_width"] = strconv.Itoa(inst.Resolution.Width)
		sub["resolution_height"] = strconv.Itoa(inst.Resolution.Height)
	}

	memMiB := defaultMemoryMiB
	if inst.MemoryMaxMiB != nil && *inst.MemoryMaxMiB > 0 {
		memMiB = *inst.MemoryMaxMiB
	}

	jvmArgs := launchargs.BuildJVMArgs(info, env, sub, memMiB, inst.ExtraLaunchArgs)
	gameArgs := launchargs.BuildGameArgs(info, env, sub)
	mainClass := launchargs.MainClass(info)

	args := make([]string, 0, len(jvmArgs)+1+len(gameArgs))
	args = append(args, jvmArgs...)
	args = append(args, mainClass)
	args = append(args, gameArgs...)

	spec := process.Spec{
		InstanceID: inst.ID,
		JavaPath:   javaInst.Path,
		Args:       args,
		WorkDir:    instanceDir,
		Env:        inst.Env,
		PreLaunch:  inst.Hooks.PreLaunch,
		Wrapper:    inst.Hooks.Wrapper,
		PostExit:   inst.Hooks.PostExit,
	}

	procID, err := s.Process.Launch(ctx, spec,
		func(instanceID string, elapsed time.Duration) {
			_, _ = s.Instances.Mutate(instanceID, func(i *domain.Instance) error {
				i.PlaytimeSeconds += int64(elapsed.Seconds())
				return nil
			})
		},
		func(instanceID, procUUID string, success bool) {
			if !success {
				s.Bus.Publish(events.Event{Kind: events.KindWarning, Payload: events.WarningPayload{
					Message: "game process exited non-zero for instance " + instanceID,
				}})
			}
		},
	)
	if err != nil {
		return "", err
	}

	now := time.Now()
	_, _ = s.Instances.Mutate(inst.ID, func(i *domain.Instance) error {
		i.LastPlayed = &now
		return nil
	})

	return procID, nil
}
