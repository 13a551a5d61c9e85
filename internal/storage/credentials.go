package storage

import (
	"github.com/MangriMen/aether-core/internal/domain"
	"github.com/MangriMen/aether-core/internal/domainerr"
)

// CredentialsStore persists the credentials list at settings_dir/credentials.json.
type CredentialsStore struct {
	file *FileStore[[]domain.Credentials]
}

func NewCredentialsStore(path string) *CredentialsStore {
	return &CredentialsStore{file: NewFileStore[[]domain.Credentials](path, FormatJSON)}
}

func (s *CredentialsStore) List() ([]domain.Credentials, error) { return s.file.ReadAll() }

func (s *CredentialsStore) Get(uuid string) (*domain.Credentials, error) {
	all, err := s.file.ReadAll()
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].UUID == uuid {
			return &all[i], nil
		}
	}
	return nil, domainerr.New(domainerr.KindNoValueFor, "credentials "+uuid)
}

func (s *CredentialsStore) Active() (*domain.Credentials, error) {
	all, err := s.file.ReadAll()
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].Active {
			return &all[i], nil
		}
	}
	return nil, nil
}

// Upsert adds or replaces a credentials record by uuid.
func (s *CredentialsStore) Upsert(cred domain.Credentials) error {
	_, err := s.file.Update(func(all []domain.Credentials) (Action[[]domain.Credentials], error) {
		for i := range all {
			if all[i].UUID == cred.UUID {
				all[i] = cred
				return Save(all), nil
			}
		}
		return Save(append(all, cred)), nil
	})
	return err
}

// SetActive marks exactly one record active, deactivating the rest.
func (s *CredentialsStore) SetActive(uuid string) error {
	_, err := s.file.Update(func(all []domain.Credentials) (Action[[]domain.Credentials], error) {
		found := false
		for i := range all {
			all[i].Active = all[i].UUID == uuid
			if all[i].UUID == uuid {
				found = true
			}
		}
		if !found {
			return NoChanges(all), domainerr.New(domainerr.KindNoValueFor, "credentials "+uuid)
		}
		return Save(all), nil
	})
	return err
}

// DeactivateAll clears the active flag on every record.
func (s *CredentialsStore) DeactivateAll() error {
	_, err := s.file.Update(func(all []domain.Credentials) (Action[[]domain.Credentials], error) {
		for i := range all {
			all[i].Active = false
		}
		return Save(all), nil
	})
	return err
}

// Remove deletes the record for uuid. Per the Open Question decision in
// DESIGN.md, removing the active record leaves zero active records: the
// caller must explicitly SetActive a replacement. We do not promote "the
// first remaining record" as an older code path once did.
func (s *CredentialsStore) Remove(uuid string) error {
	_, err := s.file.Update(func(all []domain.Credentials) (Action[[]domain.Credentials], error) {
		out := make([]domain.Credentials, 0, len(all))
		for _, c := range all {
			if c.UUID != uuid {
				out = append(out, c)
			}
		}
		return Save(out), nil
	})
	return err
}
