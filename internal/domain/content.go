package domain

// ContentType is the closed enum of per-instance content folders.
type ContentType string

const (
	ContentMod          ContentType = "mods"
	ContentResourcePack ContentType = "resourcepacks"
	ContentDataPack     ContentType = "datapacks"
	ContentShaderPack   ContentType = "shaderpacks"
)

var AllContentTypes = []ContentType{ContentMod, ContentResourcePack, ContentDataPack, ContentShaderPack}

// UpdateDescriptor maps a provider id to its provider-specific value,
// e.g. {"modrinth": {"project_id": "sodium", "version": "mc1.20.4-abc"}}.
type UpdateDescriptor map[string]map[string]string

// PackFileEntry is one row of the pack index (content.toml).
type PackFileEntry struct {
	File       string `toml:"file"`
	Hash       string `toml:"hash"`
	Alias      string `toml:"alias,omitempty"`
	HashFormat string `toml:"hash-format,omitempty"`
	Metafile   bool   `toml:"metafile,omitempty"`
	Preserve   bool   `toml:"preserve,omitempty"`
}

// PackIndex is the per-instance manifest at .metadata/pack/content.toml.
type PackIndex struct {
	HashFormat string          `toml:"hash-format"`
	Files      []PackFileEntry `toml:"files"`
}

// Sidecar is the per-file TOML sidecar at .metadata/pack/<path>.toml.
type Sidecar struct {
	FileName       string             `toml:"file-name"`
	Name           *string            `toml:"name,omitempty"`
	Hash           string             `toml:"hash"`
	DownloadURL    *string            `toml:"download,omitempty"`
	Side           *string            `toml:"side,omitempty"`
	UpdateProvider *string            `toml:"update-provider,omitempty"`
	Update         UpdateDescriptor   `toml:"update,omitempty"`
}

// InstanceFile is a materialized content item discovered on disk.
type InstanceFile struct {
	Path        string           `json:"path"`
	FileName    string           `json:"file_name"`
	Size        int64            `json:"size"`
	SHA1        string           `json:"sha1"`
	ContentType ContentType      `json:"content_type"`
	Disabled    bool             `json:"disabled"`
	DisplayName *string          `json:"display_name,omitempty"`
	Update      UpdateDescriptor `json:"update,omitempty"`
}

// ContentSearchParams is the input to a ContentProvider.Search call.
type ContentSearchParams struct {
	ContentType ContentType
	Query       string
	GameVersion string
	ModLoader   ModLoader
	Offset      int
	Limit       int
}

// ContentItem is a uniform search hit across providers.
type ContentItem struct {
	ProviderID  string
	ProjectID   string
	Title       string
	Description string
	IconURL     string
	Downloads   int64
}

// SearchResult is the paginated response to a content search.
type SearchResult struct {
	Items      []ContentItem
	TotalCount int
	Offset     int
	Limit      int
}

// InstallParams is the provider-specific payload for install_from_provider.
type InstallParams struct {
	ContentType ContentType
	ProjectID   string
	VersionID   string
	GameVersion string
	ModLoader   ModLoader
}
