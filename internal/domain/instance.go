// Package domain holds the data model shared across every component:
// instances, pack index entries, credentials, Java installs, and the
// version metadata shapes they're built from.
package domain

import "time"

// InstallStage tracks how far an Instance has progressed toward being
// launchable. It only moves NotInstalled -> Installing -> Installed (or
// -> PackInstalling while a pack's own installer is running) unless
// explicitly reset by a failed install.
type InstallStage string

const (
	StageNotInstalled   InstallStage = "not_installed"
	StageInstalling     InstallStage = "installing"
	StagePackInstalling InstallStage = "pack_installing"
	StageInstalled      InstallStage = "installed"
)

// ModLoader is the mod-loader framework an instance targets.
type ModLoader string

const (
	LoaderVanilla  ModLoader = "vanilla"
	LoaderForge    ModLoader = "forge"
	LoaderFabric   ModLoader = "fabric"
	LoaderQuilt    ModLoader = "quilt"
	LoaderNeoForge ModLoader = "neoforge"
)

// Resolution is the game window's requested size.
type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Hooks are shell-parsed command strings run around the game process.
type Hooks struct {
	PreLaunch *string `json:"pre_launch,omitempty"`
	Wrapper   *string `json:"wrapper,omitempty"`
	PostExit  *string `json:"post_exit,omitempty"`
}

// PackInfo records the modpack this instance was created from, if any.
type PackInfo struct {
	PackType   string `json:"pack_type"`
	Version    string `json:"version"`
	Updatable  bool   `json:"updatable"`
}

// Instance is the top-level entity: a self-contained, on-disk Minecraft
// installation with a stable id.
type Instance struct {
	ID                   string            `json:"id"`
	Name                 string            `json:"name"`
	IconPath             *string           `json:"icon_path,omitempty"`
	InstallStage         InstallStage      `json:"install_stage"`
	GameVersion          string            `json:"game_version"`
	ModLoader            ModLoader         `json:"mod_loader"`
	LoaderVersion        *string           `json:"loader_version,omitempty"`
	JavaPathOverride     *string           `json:"java_path_override,omitempty"`
	JavaVersionOverride  *int              `json:"java_version_override,omitempty"`
	ExtraLaunchArgs      []string          `json:"extra_launch_args,omitempty"`
	Env                  map[string]string `json:"env,omitempty"`
	MemoryMaxMiB         *int              `json:"memory_max_mib,omitempty"`
	Resolution           *Resolution       `json:"resolution,omitempty"`
	Fullscreen           bool              `json:"fullscreen,omitempty"`
	CreatedAt            time.Time         `json:"created_at"`
	ModifiedAt           time.Time         `json:"modified_at"`
	LastPlayed           *time.Time        `json:"last_played,omitempty"`
	PlaytimeSeconds      int64             `json:"playtime_seconds"`
	Hooks                Hooks             `json:"hooks"`
	Pack                 *PackInfo         `json:"pack,omitempty"`
}

// NewInstance is the input DTO for instance.Service.Create.
type NewInstance struct {
	Name            string
	GameVersion     string
	ModLoader       ModLoader
	LoaderVersionPref *string
	IconPath        *string
	SkipInstall     bool
	Pack            *PackInfo
}

// Opt encodes the "unchanged / clear / set" tri-state used by Edit patches:
// a nil Opt means "leave alone", a non-nil Opt with Value == nil means
// "clear", and a non-nil Opt with a non-nil Value means "set".
type Opt[T any] struct {
	Value *T
}

func Set[T any](v T) *Opt[T]   { return &Opt[T]{Value: &v} }
func Clear[T any]() *Opt[T]    { return &Opt[T]{Value: nil} }

// Apply writes the patch's effect onto dst, leaving it untouched if patch
// is nil ("unchanged").
func Apply[T any](dst **T, patch *Opt[T]) {
	if patch == nil {
		return
	}
	*dst = patch.Value
}

// InstancePatch is the input DTO for instance.Service.Edit. Every nullable
// Instance field gets an *Opt so callers can distinguish "don't touch"
// from "set to empty/nil".
type InstancePatch struct {
	Name                *string
	IconPath            *Opt[string]
	LoaderVersion       *Opt[string]
	JavaPathOverride    *Opt[string]
	JavaVersionOverride *Opt[int]
	ExtraLaunchArgs     *Opt[[]string]
	Env                 *Opt[map[string]string]
	MemoryMaxMiB        *Opt[int]
	Resolution          *Opt[Resolution]
	Fullscreen          *bool
	Hooks               *Hooks
}
