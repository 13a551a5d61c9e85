package main

import (
	"github.com/rs/zerolog"

	"github.com/MangriMen/aether-core/internal/content"
	"github.com/MangriMen/aether-core/internal/download"
	"github.com/MangriMen/aether-core/internal/events"
	"github.com/MangriMen/aether-core/internal/instance"
	"github.com/MangriMen/aether-core/internal/java"
	"github.com/MangriMen/aether-core/internal/location"
	"github.com/MangriMen/aether-core/internal/metadata"
	"github.com/MangriMen/aether-core/internal/plugin"
	"github.com/MangriMen/aether-core/internal/process"
	"github.com/MangriMen/aether-core/internal/processor"
	"github.com/MangriMen/aether-core/internal/request"
	"github.com/MangriMen/aether-core/internal/storage"
	"github.com/MangriMen/aether-core/pkg/logging"
)

// Core is the single process-wide handle cmd/aetherctl dispatches every
// operation table entry against, wiring every component SPEC_FULL.md §4
// names the way a real embedding application (a desktop launcher's Tauri
// shell, in the original) would at startup.
type Core struct {
	Paths       location.Paths
	Bus         *events.Bus
	Log         zerolog.Logger
	Credentials *storage.CredentialsStore
	Settings    *storage.SettingsStore
	Instances   *instance.Service
	Content     *content.Engine
	Plugins     *plugin.Host
	JavaMgr     *java.Manager
}

func NewCore(configDir, settingsDir string) (*Core, error) {
	paths := location.Paths{ConfigDir: configDir, SettingsDir: settingsDir}

	logger, err := logging.New(logging.Config{Dir: paths.ConfigDir, Console: true})
	if err != nil {
		return nil, err
	}

	settingsStore := storage.NewSettingsStore(paths.SettingsFile())
	settings, err := settingsStore.Get()
	if err != nil {
		return nil, err
	}

	reqClient := request.New(request.Config{
		FetchConcurrency: settings.FetchSemaphoreSize,
		APIConcurrency:   settings.APISemaphoreSize,
	}, *logger)

	bus := events.NewBus()
	tracker := events.NewProgressTracker(bus)

	instancesStore := storage.NewInstancesStore(paths.InstancesFile())
	javaStore := storage.NewJavaStore(paths.JavaFile())
	pluginSettings := storage.NewPluginSettingsStore(paths.PluginSettingsFile())
	credentialsStore := storage.NewCredentialsStore(paths.CredentialsFile())

	metaCache := metadata.NewCache(reqClient, paths)
	resolver := metadata.NewLoaderVersionResolver(metaCache)
	downloadOrch := download.NewOrchestrator(reqClient, paths)
	procRunner := processor.NewRunner(paths, *logger)
	procMgr := process.NewManager(bus, *logger)
	javaMgr := java.NewManager(reqClient, paths.CacheJavaDir())

	contentEngine := content.NewEngine(paths, bus)
	contentEngine.RegisterProvider(content.NewModrinthProvider(reqClient))

	watcher, err := content.NewWatcher(paths, bus, *logger)
	if err != nil {
		return nil, err
	}

	instanceSvc := instance.NewService(instance.Deps{
		Paths:     paths,
		Bus:       bus,
		Tracker:   tracker,
		Instances: instancesStore,
		JavaStore: javaStore,
		Metadata:  metaCache,
		Resolver:  resolver,
		Download:  downloadOrch,
		Processor: procRunner,
		Process:   procMgr,
		Java:      javaMgr,
		Content:   contentEngine,
		Watcher:   watcher,
		Log:       *logger,
	})

	caps := plugin.NewCoreCapabilities(paths, instanceSvc, javaMgr)
	pluginHost := plugin.NewHost(paths, bus, pluginSettings, caps, contentEngine, instanceSvc, *logger)

	return &Core{
		Paths: paths, Bus: bus, Log: *logger,
		Credentials: credentialsStore, Settings: settingsStore,
		Instances: instanceSvc, Content: contentEngine, Plugins: pluginHost,
		JavaMgr: javaMgr,
	}, nil
}
