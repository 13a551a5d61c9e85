package storage

import (
	"path/filepath"
	"testing"
)

type sample struct {
	Count int `json:"count"`
}

func TestFileStoreCreatesMissingFile(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore[sample](filepath.Join(dir, "s.json"), FormatJSON)

	v, err := store.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if v.Count != 0 {
		t.Fatalf("expected zero value, got %+v", v)
	}
}

func TestFileStoreUpdateNoChangesSkipsWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s.json")
	store := NewFileStore[sample](path, FormatJSON)

	if _, err := store.Update(func(s sample) (Action[sample], error) {
		s.Count = 5
		return Save(s), nil
	}); err != nil {
		t.Fatal(err)
	}

	before, _ := store.ReadAll()
	if _, err := store.Update(func(s sample) (Action[sample], error) {
		return NoChanges(s), nil
	}); err != nil {
		t.Fatal(err)
	}
	after, _ := store.ReadAll()
	if before.Count != after.Count {
		t.Fatalf("NoChanges should not alter persisted value: %+v vs %+v", before, after)
	}
}

func TestFileStoreRoundTripsTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s.toml")
	store := NewFileStore[sample](path, FormatTOML)

	if err := store.WriteAll(sample{Count: 42}); err != nil {
		t.Fatal(err)
	}
	v, err := store.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if v.Count != 42 {
		t.Fatalf("got %+v", v)
	}
}
