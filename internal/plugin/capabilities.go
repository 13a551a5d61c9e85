package plugin

import (
	"context"

	"github.com/MangriMen/aether-core/internal/domain"
	"github.com/MangriMen/aether-core/internal/instance"
	"github.com/MangriMen/aether-core/internal/java"
	"github.com/MangriMen/aether-core/internal/location"
)

// CoreCapabilities is the production Capabilities implementation: the
// thin adapter spec.md §4.12 calls for between a plugin's host-function
// calls and the real instance/java services, so a plugin sees exactly
// four calls (instance dir lookup, instance plugin dir lookup, instance
// creation, Java resolution). Every loaded plugin can reach all four,
// whatever its manifest's api.features lists.
type CoreCapabilities struct {
	Paths     location.Paths
	Instances *instance.Service
	Java      *java.Manager
}

func NewCoreCapabilities(paths location.Paths, instances *instance.Service, javaMgr *java.Manager) *CoreCapabilities {
	return &CoreCapabilities{Paths: paths, Instances: instances, Java: javaMgr}
}

func (c *CoreCapabilities) InstanceDir(instanceID string) (string, error) {
	if _, err := c.Instances.Get(instanceID); err != nil {
		return "", err
	}
	return c.Paths.InstanceDir(instanceID), nil
}

func (c *CoreCapabilities) InstancePluginDir(instanceID, pluginID string) (string, error) {
	if _, err := c.Instances.Get(instanceID); err != nil {
		return "", err
	}
	return c.Paths.InstancePluginDir(instanceID, pluginID), nil
}

func (c *CoreCapabilities) CreateInstance(name, gameVersion, modLoader string) (string, error) {
	return c.Instances.Create(context.Background(), domain.NewInstance{
		Name:        name,
		GameVersion: gameVersion,
		ModLoader:   domain.ModLoader(modLoader),
	})
}

func (c *CoreCapabilities) GetOrDownloadJava(majorVersion int) (string, error) {
	known, err := c.Instances.JavaStore.List()
	if err != nil {
		return "", err
	}
	if found, ok := java.GetBestJavaInstallation(known, majorVersion, ""); ok {
		return found.Path, nil
	}
	installed, err := c.Java.Install(context.Background(), majorVersion, "")
	if err != nil {
		return "", err
	}
	if err := c.Instances.JavaStore.Add(installed); err != nil {
		return "", err
	}
	return installed.Path, nil
}
