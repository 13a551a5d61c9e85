package launchargs

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/MangriMen/aether-core/internal/domain"
	"github.com/MangriMen/aether-core/internal/location"
)

// Substitutions carries every ${placeholder} value the teacher's
// parseMinecraftArguments filled in by hand (auth_player_name,
// version_name, ...), generalized to a plain map so both the modern
// array form and the legacy minecraftArguments string share one
// substitution pass.
type Substitutions map[string]string

// NewSubstitutions builds the standard placeholder set for one launch.
func NewSubstitutions(paths location.Paths, instanceDir, version, assetsIndexName, username, uuid, accessToken, userType, classpath, nativesDir string) Substitutions {
	return Substitutions{
		"auth_player_name":   username,
		"version_name":       version,
		"game_directory":     instanceDir,
		"assets_root":        paths.AssetsDir(),
		"game_assets":        paths.AssetsDir(),
		"assets_index_name":  assetsIndexName,
		"auth_uuid":          uuid,
		"auth_access_token":  accessToken,
		"auth_session":       accessToken,
		"user_properties":    "{}",
		"user_type":          userType,
		"version_type":       "release",
		"natives_directory":  nativesDir,
		"launcher_name":      "aether",
		"launcher_version":   "1.0",
		"classpath":          classpath,
		"classpath_separator": string(os.PathListSeparator),
		"library_directory":  paths.LibrariesDir(),
	}
}

func substitute(template string, sub Substitutions) string {
	for k, v := range sub {
		template = strings.ReplaceAll(template, "${"+k+"}", v)
	}
	return template
}

// BuildGameArgs generalizes the teacher's parseMinecraftArguments to also
// accept the modern `arguments.game` array form, falling back to the
// legacy `minecraftArguments` template string and stdlib strings.Fields
// splitting when the modern form is absent.
func BuildGameArgs(info domain.VersionInfo, env Environment, sub Substitutions) []string {
	if len(info.Arguments.Game) > 0 {
		return buildFromArgumentList(info.Arguments.Game, env, sub)
	}
	if info.MinecraftArguments != "" {
		return strings.Fields(substitute(info.MinecraftArguments, sub))
	}
	return nil
}

// BuildJVMArgs generalizes the teacher's fixed `-Xmx/-Xms/-cp` slice into
// the modern `arguments.jvm` array form, falling back to the teacher's
// hardcoded baseline when the descriptor carries none (pre-1.13 versions).
func BuildJVMArgs(info domain.VersionInfo, env Environment, sub Substitutions, maxMemMiB int, extra []string) []string {
	var args []string
	if len(info.Arguments.JVM) > 0 {
		args = buildFromArgumentList(info.Arguments.JVM, env, sub)
	} else {
		args = []string{
			"-Djava.library.path=" + sub["natives_directory"],
			"-cp", sub["classpath"],
		}
	}

	mem := []string{"-Xmx" + itoaMiB(maxMemMiB) + "M"}
	args = append(mem, args...)
	args = append(args, extra...)
	return args
}

func buildFromArgumentList(list []domain.Argument, env Environment, sub Substitutions) []string {
	var out []string
	for _, a := range list {
		if a.Plain != "" {
			out = append(out, substitute(a.Plain, sub))
			continue
		}
		if !Include(a.Rules, env) {
			continue
		}
		for _, v := range a.Values {
			out = append(out, substitute(v, sub))
		}
	}
	return out
}

func itoaMiB(n int) string {
	if n <= 0 {
		n = 2048
	}
	buf := [20]byte{}
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// Classpath builds the Java classpath string from a merged VersionInfo's
// libraries plus the version jar, generalizing the teacher's
// buildClasspath (src/launcher/launcher.go) from filesystem-probe-based
// alternative-path guessing to the location package's authoritative
// maven-path resolution, gated by the rules engine instead of a bare
// os-name check.
func Classpath(paths location.Paths, version string, info domain.VersionInfo, env Environment) string {
	var parts []string
	for _, lib := range info.Libraries {
		if !ShouldIncludeLibrary(lib, env) {
			continue
		}
		if _, isNative := nativeClassifierFor(lib, env); isNative {
			continue
		}
		if lib.Downloads.Artifact.Path == "" {
			continue
		}
		parts = append(parts, paths.LibraryPath(lib.Downloads.Artifact.Path))
	}
	parts = append(parts, paths.VersionJar(version))
	return strings.Join(parts, string(os.PathListSeparator))
}

// nativeClassifierFor reports whether lib carries a native classifier for
// the current environment, and if so its map key.
func nativeClassifierFor(lib domain.Library, env Environment) (string, bool) {
	if lib.Natives == nil {
		return "", false
	}
	key, ok := lib.Natives[string(env.OS)]
	if !ok {
		return "", false
	}
	_, ok = lib.Downloads.Classifiers[key]
	return key, ok
}

// NativeLibraryPaths returns the on-disk paths of every classifier jar
// that must be extracted into the version's natives directory.
func NativeLibraryPaths(paths location.Paths, info domain.VersionInfo, env Environment) []string {
	var out []string
	for _, lib := range info.Libraries {
		if !ShouldIncludeLibrary(lib, env) {
			continue
		}
		key, ok := nativeClassifierFor(lib, env)
		if !ok {
			continue
		}
		art := lib.Downloads.Classifiers[key]
		if art.Path == "" {
			continue
		}
		out = append(out, paths.LibraryPath(art.Path))
	}
	return out
}

// MainClass returns info's main class, defaulting the way the teacher's
// PrepareCMD does when a legacy descriptor omits it.
func MainClass(info domain.VersionInfo) string {
	if info.MainClass != "" {
		return info.MainClass
	}
	return "net.minecraft.client.main.Main"
}

// AbsNativesDir resolves the version's natives directory to an absolute
// path, matching the teacher's filepath.Abs(nativesDir) call before it is
// handed to -Djava.library.path.
func AbsNativesDir(paths location.Paths, version string) string {
	abs, err := filepath.Abs(paths.NativesDir(version))
	if err != nil {
		return paths.NativesDir(version)
	}
	return abs
}
