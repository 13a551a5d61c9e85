package storage

import "github.com/MangriMen/aether-core/internal/domain"

// Settings is the launcher-wide default tunables object, distinct from
// the per-instance data InstancesStore owns. Its own config-file loader
// is an external collaborator (spec.md §1 Non-goals); this store only
// persists the object the embedding app hands it.
type Settings struct {
	DefaultJavaPath    *string `json:"default_java_path,omitempty"`
	DefaultMemoryMiB   *int    `json:"default_memory_mib,omitempty"`
	DefaultResolution  *domain.Resolution `json:"default_resolution,omitempty"`
	FetchSemaphoreSize int     `json:"fetch_semaphore_size"`
	APISemaphoreSize   int     `json:"api_semaphore_size"`
}

func DefaultSettings() Settings {
	return Settings{FetchSemaphoreSize: 10, APISemaphoreSize: 4}
}

type SettingsStore struct {
	file *FileStore[Settings]
}

func NewSettingsStore(path string) *SettingsStore {
	return &SettingsStore{file: NewFileStore[Settings](path, FormatJSON)}
}

func (s *SettingsStore) Get() (Settings, error) {
	v, err := s.file.ReadAll()
	if err != nil {
		return Settings{}, err
	}
	if v.FetchSemaphoreSize == 0 && v.APISemaphoreSize == 0 {
		v = DefaultSettings()
		if werr := s.file.WriteAll(v); werr != nil {
			return Settings{}, werr
		}
	}
	return v, nil
}

func (s *SettingsStore) Set(v Settings) error { return s.file.WriteAll(v) }

// JavaStore persists the list of discovered/installed Java runtimes at
// settings_dir/java.json.
type JavaStore struct {
	file *FileStore[[]domain.JavaInstallation]
}

func NewJavaStore(path string) *JavaStore {
	return &JavaStore{file: NewFileStore[[]domain.JavaInstallation](path, FormatJSON)}
}

func (s *JavaStore) List() ([]domain.JavaInstallation, error) { return s.file.ReadAll() }

func (s *JavaStore) Add(install domain.JavaInstallation) error {
	_, err := s.file.Update(func(all []domain.JavaInstallation) (Action[[]domain.JavaInstallation], error) {
		for i := range all {
			if all[i].Path == install.Path {
				all[i] = install
				return Save(all), nil
			}
		}
		return Save(append(all, install)), nil
	})
	return err
}

// PluginSettingsStore persists per-plugin enabled flags at
// settings_dir/plugin_settings.json.
type PluginSettingsStore struct {
	file *FileStore[map[string]bool]
}

func NewPluginSettingsStore(path string) *PluginSettingsStore {
	return &PluginSettingsStore{file: NewFileStore[map[string]bool](path, FormatJSON)}
}

func (s *PluginSettingsStore) Enabled(pluginID string) (bool, error) {
	all, err := s.file.ReadAll()
	if err != nil {
		return false, err
	}
	return all[pluginID], nil
}

func (s *PluginSettingsStore) SetEnabled(pluginID string, enabled bool) error {
	_, err := s.file.Update(func(all map[string]bool) (Action[map[string]bool], error) {
		if all == nil {
			all = make(map[string]bool, 1)
		}
		all[pluginID] = enabled
		return Save(all), nil
	})
	return err
}
