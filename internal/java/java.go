// Package java implements Java runtime discovery and auto-install,
// consumed by launchargs, process, and instance. No teacher file touches
// this — the teacher's PrepareCMD takes a bare javaPath string from the
// caller — so behavior is supplemented from
// original_source/aether-core/src/features/java/utils/check.rs's
// `construct_java_from_jre`/`get_java_version_and_arch_from_jre` and
// dilllxd-theboys-launcher's JavaManager.GetBestJavaInstallation /
// DownloadJava shape (other_examples/), adapted to this launcher's
// JavaInstallation record instead of a bespoke struct.
package java

import (
	"bufio"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/MangriMen/aether-core/internal/domain"
	"github.com/MangriMen/aether-core/internal/domainerr"
	"github.com/MangriMen/aether-core/internal/request"
)

const (
	javaBinUnix    = "java"
	javaBinWindows = "java.exe"
)

func binName() string {
	if runtime.GOOS == "windows" {
		return javaBinWindows
	}
	return javaBinUnix
}

// Probe runs `java -XshowSettings:properties -version` against the
// binary at path (a directory containing bin/java, or the bin/java path
// itself) and returns the discovered installation. Mirrors check.rs's
// construct_java_from_jre/get_java_version_and_arch_from_jre pair.
func Probe(ctx context.Context, path string) (domain.JavaInstallation, error) {
	binPath := path
	if filepath.Base(path) != binName() {
		binPath = filepath.Join(path, "bin", binName())
	}
	if _, err := os.Stat(binPath); err != nil {
		return domain.JavaInstallation{}, domainerr.Wrap(domainerr.KindJavaNotFound, path, err)
	}

	cmd := exec.CommandContext(ctx, binPath, "-XshowSettings:properties", "-version")
	cmd.Env = stripJavaOptions(os.Environ())
	out, _ := cmd.CombinedOutput()

	version, arch := parseProperties(string(out))
	if version == "" {
		return domain.JavaInstallation{}, domainerr.New(domainerr.KindJavaNotFound, binPath)
	}
	major, err := majorVersion(version)
	if err != nil {
		return domain.JavaInstallation{}, domainerr.Wrap(domainerr.KindJavaNotFound, version, err)
	}

	return domain.JavaInstallation{
		MajorVersion:  major,
		Path:          binPath,
		VersionString: version,
		Arch:          arch,
	}, nil
}

func stripJavaOptions(env []string) []string {
	out := make([]string, 0, len(env))
	for _, kv := range env {
		if strings.HasPrefix(kv, "_JAVA_OPTIONS=") {
			continue
		}
		out = append(out, kv)
	}
	return out
}

func parseProperties(output string) (version, arch string) {
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "java.version":
			version = strings.TrimSpace(value)
		case "os.arch":
			arch = strings.TrimSpace(value)
		}
	}
	return version, arch
}

// majorVersion extracts the major version from a java.version string:
// "1.8.0_361" -> 8, "17.0.1" -> 17, "20" -> 20.
func majorVersion(version string) (int, error) {
	parts := strings.Split(version, ".")
	first, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, domainerr.Wrap(domainerr.KindJavaNotFound, version, err)
	}
	if first > 1 {
		return first, nil
	}
	if len(parts) < 2 {
		return 0, domainerr.New(domainerr.KindJavaNotFound, version)
	}
	minor, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, domainerr.Wrap(domainerr.KindJavaNotFound, version, err)
	}
	return minor, nil
}

// Manager resolves and caches Java installations, generalizing
// dilllxd-theboys-launcher's JavaManager to this launcher's domain types.
type Manager struct {
	client   *request.Client
	cacheDir string
}

func NewManager(client *request.Client, cacheDir string) *Manager {
	return &Manager{client: client, cacheDir: cacheDir}
}

// GetBestJavaInstallation picks the known installation whose
// MajorVersion matches requiredMajor, preferring an exact arch match
// over a mismatched one.
func GetBestJavaInstallation(known []domain.JavaInstallation, requiredMajor int, preferredArch string) (domain.JavaInstallation, bool) {
	var fallback *domain.JavaInstallation
	for i := range known {
		inst := known[i]
		if inst.MajorVersion != requiredMajor {
			continue
		}
		if inst.Arch == preferredArch {
			return inst, true
		}
		if fallback == nil {
			fallback = &inst
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return domain.JavaInstallation{}, false
}

// CacheDir returns the manager's java cache root, where auto-downloaded
// JREs are unpacked by major version (cache/java/<major>/...).
func (m *Manager) CacheDir(majorVersion int) string {
	return filepath.Join(m.cacheDir, strconv.Itoa(majorVersion))
}
