package download

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/MangriMen/aether-core/internal/domain"
	"github.com/MangriMen/aether-core/internal/launchargs"
	"github.com/MangriMen/aether-core/internal/location"
	"github.com/MangriMen/aether-core/internal/request"
)

func newTestClient() *request.Client {
	return request.New(request.Config{FetchConcurrency: 4, APIConcurrency: 2}, zerolog.Nop())
}

func TestClientServiceSkipsExistingJar(t *testing.T) {
	dir := t.TempDir()
	paths := location.Paths{ConfigDir: dir}
	version := "1.20.1"
	if err := os.MkdirAll(paths.VersionDir(version), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(paths.VersionJar(version), []byte("existing"), 0o644); err != nil {
		t.Fatal(err)
	}

	svc := NewClientService(newTestClient(), paths)
	info := domain.VersionInfo{ID: version}
	if err := svc.Ensure(context.Background(), info, false, nil, "", 1); err != nil {
		t.Fatal(err)
	}
}

func TestClientServiceDownloadsAndVerifiesSHA1(t *testing.T) {
	body := []byte("jar-bytes")
	sum := sha1.Sum(body)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
	defer srv.Close()

	dir := t.TempDir()
	paths := location.Paths{ConfigDir: dir}
	info := domain.VersionInfo{ID: "1.20.1"}
	info.Downloads.Client.URL = srv.URL
	info.Downloads.Client.SHA1 = hex.EncodeToString(sum[:])

	svc := NewClientService(newTestClient(), paths)
	if err := svc.Ensure(context.Background(), info, false, nil, "", 1); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(paths.VersionJar(info.ID))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, body) {
		t.Fatalf("got %q", data)
	}
}

func TestAssetsServiceFetchIndexCachesOnDisk(t *testing.T) {
	objData := []byte("asset-content")
	sum := sha1.Sum(objData)
	hash := hex.EncodeToString(sum[:])

	mux := http.NewServeMux()
	index := domain.AssetIndex{Objects: map[string]domain.AssetObject{"icons/icon.png": {Hash: hash, Size: int64(len(objData))}}}
	indexBody, _ := json.Marshal(index)
	mux.HandleFunc("/index.json", func(w http.ResponseWriter, r *http.Request) { w.Write(indexBody) })

	srv := httptest.NewServer(mux)
	defer srv.Close()

	dir := t.TempDir()
	paths := location.Paths{ConfigDir: dir}
	info := domain.VersionInfo{ID: "1.20.1"}
	info.AssetIndex.ID = "6"
	info.AssetIndex.URL = srv.URL + "/index.json"

	svc := NewAssetsService(newTestClient(), paths)
	_, err := svc.fetchIndex(context.Background(), info, false)
	if err != nil {
		t.Fatal(err)
	}

	indexPath := paths.AssetIndexFile("6")
	if _, err := os.Stat(indexPath); err != nil {
		t.Fatalf("expected index cached on disk: %v", err)
	}
}

func TestLibrariesServiceSkipsExcludedByRules(t *testing.T) {
	dir := t.TempDir()
	paths := location.Paths{ConfigDir: dir}
	info := domain.VersionInfo{
		Libraries: []domain.Library{
			{
				Name:      "com.example:osxonly:1.0",
				Rules:     []domain.Rule{{Action: "allow", OS: &domain.OSPredicate{Name: "osx"}}},
				Downloads: domain.LibraryDownloads{Artifact: domain.LibraryArtifact{Path: "com/example/osxonly/1.0/osxonly-1.0.jar", URL: "http://unused.invalid/"}},
			},
		},
	}

	svc := NewLibrariesService(newTestClient(), paths)
	err := svc.Ensure(context.Background(), info, launchargs.Environment{OS: launchargs.OSLinux}, nil, "", 1)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(paths.LibraryPath("com/example/osxonly/1.0/osxonly-1.0.jar")); err == nil {
		t.Fatal("expected osx-only library to be skipped on linux")
	}
}

func TestExtractNativesFlattensClassifierJar(t *testing.T) {
	dir := t.TempDir()
	paths := location.Paths{ConfigDir: dir}
	version := "1.20.1"

	jarPath := filepath.Join(dir, "lwjgl-natives-linux.jar")
	writeFakeNativeJar(t, jarPath, "liblwjgl.so")

	info := domain.VersionInfo{
		Libraries: []domain.Library{
			{
				Name:    "org.lwjgl:lwjgl:natives-linux",
				Natives: map[string]string{"linux": "natives-linux"},
				Downloads: domain.LibraryDownloads{
					Classifiers: map[string]domain.LibraryArtifact{"natives-linux": {Path: "irrelevant-because-we-stub-paths.jar"}},
				},
			},
		},
	}

	// location.Paths resolves LibraryPath against ConfigDir; point the
	// classifier at our fake jar by writing it at the resolved location.
	resolved := paths.LibraryPath("irrelevant-because-we-stub-paths.jar")
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := copyFile(jarPath, resolved); err != nil {
		t.Fatal(err)
	}

	if err := ExtractNatives(paths, version, info, launchargs.Environment{OS: launchargs.OSLinux}); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(filepath.Join(paths.NativesDir(version), "liblwjgl.so")); err != nil {
		t.Fatalf("expected native extracted: %v", err)
	}
}

func writeFakeNativeJar(t *testing.T, path, nativeName string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	zw := zip.NewWriter(f)
	w, err := zw.Create(nativeName)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("binary-native-content")); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}
