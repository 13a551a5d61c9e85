package download

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/MangriMen/aether-core/internal/domain"
	"github.com/MangriMen/aether-core/internal/domainerr"
	"github.com/MangriMen/aether-core/internal/launchargs"
	"github.com/MangriMen/aether-core/internal/location"
)

// nativeSuffixes are the platform shared-library extensions the teacher's
// extractJar (src/launcher/launcher.go) flattens out of a classifier jar.
var nativeSuffixes = []string{".dll", ".so", ".dylib", ".jnilib"}

// ExtractNatives extracts every applicable native-classifier jar for
// version into natives/<version>, generalizing the teacher's
// extractNativesFromLibraries from a libDir filename scan into a
// rules-engine-driven list of exact library paths (launchargs.
// NativeLibraryPaths), falling back to the teacher's filename-sniffing
// walk over the whole libraries directory (any jar whose name contains
// "natives") when no native file has been extracted into destDir.
func ExtractNatives(paths location.Paths, version string, info domain.VersionInfo, env launchargs.Environment) error {
	destDir := paths.NativesDir(version)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return domainerr.Wrap(domainerr.KindWriteFailed, destDir, err)
	}

	for _, jarPath := range launchargs.NativeLibraryPaths(paths, info, env) {
		if err := extractJar(jarPath, destDir); err != nil {
			// A library may legitimately carry no native for this
			// platform; extraction failures here are non-fatal.
			continue
		}
	}

	return extractByFilenameFallback(paths.LibrariesDir(), destDir, env)
}

// extractJar walks one jar's entries, flattening every recognized native
// library file into destDir. Grounded on the teacher's extractJar,
// generalized to skip files that already exist rather than emit events.
func extractJar(jarPath, destDir string) error {
	r, err := zip.OpenReader(jarPath)
	if err != nil {
		return domainerr.Wrap(domainerr.KindExtractionFailed, jarPath, err)
	}
	defer r.Close()

	for _, f := range r.File {
		if f.FileInfo().IsDir() || strings.HasPrefix(f.Name, "META-INF/") {
			continue
		}
		if !isNativeFile(f.Name) {
			continue
		}

		destPath := filepath.Join(destDir, filepath.Base(f.Name))
		if _, err := os.Stat(destPath); err == nil {
			continue
		}

		if err := extractEntry(f, destPath); err != nil {
			continue
		}
	}
	return nil
}

func extractEntry(f *zip.File, destPath string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, rc)
	return err
}

func isNativeFile(name string) bool {
	lower := strings.ToLower(name)
	for _, suf := range nativeSuffixes {
		if strings.HasSuffix(lower, suf) {
			return true
		}
	}
	return false
}

// extractByFilenameFallback preserves the teacher's recursive
// "natives"-in-filename jar walk, invoked only as a fallback once the
// rules-engine-driven pass above has run, to catch classifier jars an
// older manifest never declared explicitly.
func extractByFilenameFallback(libDir, destDir string, env launchargs.Environment) error {
	entries, err := os.ReadDir(destDir)
	if err == nil && len(entries) > 0 {
		for _, e := range entries {
			if isNativeFile(e.Name()) {
				return nil // already populated by the rules-driven pass
			}
		}
	}

	pattern := "natives-" + string(env.OS)
	return filepath.Walk(libDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() || !strings.HasSuffix(info.Name(), ".jar") {
			return nil
		}
		lower := strings.ToLower(info.Name())
		if strings.Contains(lower, pattern) || strings.Contains(lower, "natives") {
			_ = extractJar(path, destDir)
		}
		return nil
	})
}
