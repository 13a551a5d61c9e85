package content

import (
	"path/filepath"
	"testing"

	"github.com/MangriMen/aether-core/internal/location"
)

func TestExtractInstanceIDFindsComponentAfterInstancesRoot(t *testing.T) {
	paths := location.Paths{ConfigDir: t.TempDir()}
	w := &Watcher{paths: paths}

	path := filepath.Join(paths.InstancesRoot(), "abc123", "mods", "sodium.jar")
	if got := w.extractInstanceID(path); got != "abc123" {
		t.Fatalf("got %q", got)
	}
}

func TestExtractInstanceIDRejectsPathOutsideRoot(t *testing.T) {
	paths := location.Paths{ConfigDir: t.TempDir()}
	w := &Watcher{paths: paths}

	if got := w.extractInstanceID("/tmp/somewhere/else"); got != "" {
		t.Fatalf("got %q, want empty", got)
	}
}

func TestIsCrashReport(t *testing.T) {
	if !isCrashReport(filepath.Join("instances", "abc", "crash-reports", "crash-1.txt")) {
		t.Fatal("expected a .txt file under crash-reports/ to be detected")
	}
	if isCrashReport(filepath.Join("instances", "abc", "mods", "sodium.jar")) {
		t.Fatal("expected a mod jar to not be detected as a crash report")
	}
	if isCrashReport(filepath.Join("instances", "abc", "crash-reports", "notes.md")) {
		t.Fatal("expected a non-.txt file under crash-reports/ to not be detected")
	}
}
