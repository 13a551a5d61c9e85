package metadata

import (
	"testing"

	"github.com/MangriMen/aether-core/internal/domain"
)

func sampleVersions() []domain.LoaderVersion {
	return []domain.LoaderVersion{
		{ID: "0.16.0", Stable: false},
		{ID: "0.15.9", Stable: true},
		{ID: "0.15.8", Stable: true},
	}
}

func TestPickLoaderVersionLatestIsFirstEntry(t *testing.T) {
	v, err := pickLoaderVersion(sampleVersions(), "latest")
	if err != nil {
		t.Fatal(err)
	}
	if v.ID != "0.16.0" {
		t.Fatalf("got %s", v.ID)
	}
}

func TestPickLoaderVersionStableIsFirstStableEntry(t *testing.T) {
	v, err := pickLoaderVersion(sampleVersions(), "stable")
	if err != nil {
		t.Fatal(err)
	}
	if v.ID != "0.15.9" {
		t.Fatalf("got %s", v.ID)
	}
}

func TestPickLoaderVersionExplicitMustMatchExactly(t *testing.T) {
	v, err := pickLoaderVersion(sampleVersions(), "0.15.8")
	if err != nil {
		t.Fatal(err)
	}
	if v.ID != "0.15.8" {
		t.Fatalf("got %s", v.ID)
	}

	if _, err := pickLoaderVersion(sampleVersions(), "9.9.9"); err == nil {
		t.Fatal("expected error for unknown explicit version")
	}
}
