package storage

import (
	"os"

	"github.com/MangriMen/aether-core/internal/domain"
	"github.com/MangriMen/aether-core/internal/domainerr"
	"github.com/MangriMen/aether-core/internal/location"
)

// PackStore is the content engine's co-owned per-instance pack index plus
// its per-file sidecars (§3 "Pack index"). Only the content engine writes
// to it; per §3 Ownership this type is that single writer's handle.
type PackStore struct {
	paths      location.Paths
	instanceID string
	index      *FileStore[domain.PackIndex]
}

func NewPackStore(paths location.Paths, instanceID string) *PackStore {
	return &PackStore{
		paths:      paths,
		instanceID: instanceID,
		index:      NewFileStore[domain.PackIndex](paths.InstancePackIndex(instanceID), FormatTOML),
	}
}

func (s *PackStore) Index() (domain.PackIndex, error) {
	idx, err := s.index.ReadAll()
	if err != nil {
		return domain.PackIndex{}, err
	}
	if idx.HashFormat == "" {
		idx.HashFormat = "sha1"
	}
	return idx, nil
}

// AddEntry appends (or replaces, by File) a pack index row and writes its
// sidecar.
func (s *PackStore) AddEntry(entry domain.PackFileEntry, sidecar domain.Sidecar) error {
	if err := s.writeSidecar(entry.File, sidecar); err != nil {
		return err
	}
	_, err := s.index.Update(func(idx domain.PackIndex) (Action[domain.PackIndex], error) {
		if idx.HashFormat == "" {
			idx.HashFormat = "sha1"
		}
		for i := range idx.Files {
			if idx.Files[i].File == entry.File {
				idx.Files[i] = entry
				return Save(idx), nil
			}
		}
		idx.Files = append(idx.Files, entry)
		return Save(idx), nil
	})
	return err
}

// RemoveEntry deletes a row from the index and its sidecar file.
func (s *PackStore) RemoveEntry(relPath string) error {
	_, err := s.index.Update(func(idx domain.PackIndex) (Action[domain.PackIndex], error) {
		out := make([]domain.PackFileEntry, 0, len(idx.Files))
		for _, f := range idx.Files {
			if f.File != relPath {
				out = append(out, f)
			}
		}
		idx.Files = out
		return Save(idx), nil
	})
	if err != nil {
		return err
	}
	sidecarPath := s.paths.InstancePackSidecar(s.instanceID, relPath)
	if rerr := os.Remove(sidecarPath); rerr != nil && !os.IsNotExist(rerr) {
		return domainerr.Wrap(domainerr.KindWriteFailed, sidecarPath, rerr)
	}
	return nil
}

func (s *PackStore) writeSidecar(relPath string, sidecar domain.Sidecar) error {
	path := s.paths.InstancePackSidecar(s.instanceID, relPath)
	store := NewFileStore[domain.Sidecar](path, FormatTOML)
	return store.WriteAll(sidecar)
}

// Sidecar reads the sidecar for relPath, if present.
func (s *PackStore) Sidecar(relPath string) (*domain.Sidecar, bool, error) {
	path := s.paths.InstancePackSidecar(s.instanceID, relPath)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, false, nil
	}
	store := NewFileStore[domain.Sidecar](path, FormatTOML)
	sc, err := store.ReadAll()
	if err != nil {
		return nil, false, err
	}
	return &sc, true, nil
}

// WriteMinimalSidecar is used when list() finds a content file with no
// sidecar: it writes a minimal one from the caller-supplied file name and
// sha1 rather than failing, per
// §3's InstanceFile invariant.
func (s *PackStore) WriteMinimalSidecar(relPath, fileName, sha1 string) error {
	return s.writeSidecar(relPath, domain.Sidecar{FileName: fileName, Hash: sha1})
}

func (s *PackStore) EnsureDirs() error {
	return os.MkdirAll(s.paths.InstancePackDir(s.instanceID), 0o755)
}
