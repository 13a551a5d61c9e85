package domain

import "encoding/json"

// VersionManifest is the top-level Mojang version list.
type VersionManifest struct {
	Latest struct {
		Release  string `json:"release"`
		Snapshot string `json:"snapshot"`
	} `json:"latest"`
	Versions []VersionManifestEntry `json:"versions"`
}

type VersionManifestEntry struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	URL         string `json:"url"`
	ReleaseTime string `json:"releaseTime"`
}

// LoaderVersionManifest is a mod-loader's own version listing (Fabric,
// Quilt, NeoForge all publish a flavor of this shape).
type LoaderVersionManifest struct {
	Versions []LoaderVersion `json:"versions"`
}

type LoaderVersion struct {
	ID     string `json:"id"`
	Stable bool   `json:"stable"`
}

// Rule gates a library or argument by OS/arch/feature predicates. See
// launchargs/rules.go for evaluation.
type Rule struct {
	Action   string        `json:"action"` // "allow" | "disallow"
	OS       *OSPredicate  `json:"os,omitempty"`
	Features map[string]bool `json:"features,omitempty"`
}

type OSPredicate struct {
	Name    string `json:"name,omitempty"`
	Arch    string `json:"arch,omitempty"`
	Version string `json:"version,omitempty"` // regex
}

// Argument is either a bare string or a rule-guarded {rules, value}
// object, per the modern arguments.{jvm,game} array shape.
type Argument struct {
	Plain string
	Rules []Rule
	// Values holds one-or-many substitution templates; the JSON "value"
	// field may be a single string or an array of strings.
	Values []string
}

func (a *Argument) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		a.Plain = s
		return nil
	}
	var obj struct {
		Rules []Rule          `json:"rules"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	a.Rules = obj.Rules
	var one string
	if err := json.Unmarshal(obj.Value, &one); err == nil {
		a.Values = []string{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(obj.Value, &many); err != nil {
		return err
	}
	a.Values = many
	return nil
}

// LibraryArtifact is one downloadable file (main artifact or classifier).
type LibraryArtifact struct {
	Path string `json:"path"`
	URL  string `json:"url"`
	SHA1 string `json:"sha1"`
	Size int64  `json:"size"`
}

type LibraryDownloads struct {
	Artifact    LibraryArtifact            `json:"artifact"`
	Classifiers map[string]LibraryArtifact `json:"classifiers,omitempty"`
}

type Library struct {
	Name      string           `json:"name"`
	URL       string           `json:"url,omitempty"`
	Downloads LibraryDownloads `json:"downloads"`
	Rules     []Rule           `json:"rules,omitempty"`
	Natives   map[string]string `json:"natives,omitempty"`
}

// AssetIndexRef points at the assets index JSON for a version.
type AssetIndexRef struct {
	ID        string `json:"id"`
	SHA1      string `json:"sha1"`
	Size      int64  `json:"size"`
	TotalSize int64  `json:"totalSize"`
	URL       string `json:"url"`
}

// AssetIndex maps asset names to content-addressed objects.
type AssetIndex struct {
	MapToResources bool `json:"map_to_resources,omitempty"`
	Virtual        bool `json:"virtual,omitempty"`
	Objects        map[string]AssetObject `json:"objects"`
}

type AssetObject struct {
	Hash string `json:"hash"`
	Size int64  `json:"size"`
}

// Processor is one Forge post-install processor step.
type Processor struct {
	Sides     []string          `json:"sides,omitempty"`
	Jar       string            `json:"jar"`
	Classpath []string          `json:"classpath,omitempty"`
	Args      []string          `json:"args,omitempty"`
	Outputs   map[string]string `json:"outputs,omitempty"`
}

// VersionInfo is the merged vanilla + loader launch descriptor.
type VersionInfo struct {
	ID                 string `json:"id"`
	Type               string `json:"type"`
	MainClass          string `json:"mainClass"`
	InheritsFrom       string `json:"inheritsFrom,omitempty"`
	MinecraftArguments string `json:"minecraftArguments,omitempty"`
	Arguments          struct {
		Game []Argument `json:"game,omitempty"`
		JVM  []Argument `json:"jvm,omitempty"`
	} `json:"arguments"`
	AssetIndex AssetIndexRef `json:"assetIndex"`
	Assets     string        `json:"assets"`
	Downloads  struct {
		Client struct {
			URL  string `json:"url"`
			SHA1 string `json:"sha1"`
			Size int64  `json:"size"`
		} `json:"client"`
	} `json:"downloads"`
	Libraries  []Library        `json:"libraries"`
	Processors []Processor      `json:"processors,omitempty"`
	Data       map[string]DataEntry `json:"data,omitempty"`
	JavaVersion struct {
		Component    string `json:"component,omitempty"`
		MajorVersion int    `json:"majorVersion,omitempty"`
	} `json:"javaVersion,omitempty"`
}

// DataEntry is a Forge processor {client, server} token substitution pair.
type DataEntry struct {
	Client string `json:"client"`
	Server string `json:"server"`
}
