package storage

import (
	"path/filepath"
	"testing"

	"github.com/MangriMen/aether-core/internal/domain"
)

func TestCredentialsAtMostOneActive(t *testing.T) {
	dir := t.TempDir()
	store := NewCredentialsStore(filepath.Join(dir, "credentials.json"))

	if err := store.Upsert(domain.Credentials{UUID: "a", Active: true}); err != nil {
		t.Fatal(err)
	}
	if err := store.Upsert(domain.Credentials{UUID: "b"}); err != nil {
		t.Fatal(err)
	}
	if err := store.SetActive("b"); err != nil {
		t.Fatal(err)
	}

	all, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	activeCount := 0
	for _, c := range all {
		if c.Active {
			activeCount++
		}
	}
	if activeCount != 1 {
		t.Fatalf("expected exactly one active credential, got %d", activeCount)
	}
}

func TestRemoveActiveLeavesZeroActive(t *testing.T) {
	dir := t.TempDir()
	store := NewCredentialsStore(filepath.Join(dir, "credentials.json"))

	if err := store.Upsert(domain.Credentials{UUID: "a", Active: true}); err != nil {
		t.Fatal(err)
	}
	if err := store.Upsert(domain.Credentials{UUID: "b"}); err != nil {
		t.Fatal(err)
	}
	if err := store.Remove("a"); err != nil {
		t.Fatal(err)
	}

	active, err := store.Active()
	if err != nil {
		t.Fatal(err)
	}
	if active != nil {
		t.Fatalf("expected no active credential after removing the active one, got %+v", active)
	}
}
