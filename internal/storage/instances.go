package storage

import (
	"github.com/MangriMen/aether-core/internal/domain"
	"github.com/MangriMen/aether-core/internal/domainerr"
)

// InstancesStore persists the registered instance list at
// settings_dir/instances.json. The registry, not the instance directory
// itself, owns Instance metadata (§3 Ownership).
type InstancesStore struct {
	file *FileStore[map[string]domain.Instance]
}

func NewInstancesStore(path string) *InstancesStore {
	return &InstancesStore{file: NewFileStore[map[string]domain.Instance](path, FormatJSON)}
}

func (s *InstancesStore) List() ([]domain.Instance, error) {
	all, err := s.file.ReadAll()
	if err != nil {
		return nil, err
	}
	out := make([]domain.Instance, 0, len(all))
	for _, v := range all {
		out = append(out, v)
	}
	return out, nil
}

func (s *InstancesStore) Get(id string) (*domain.Instance, error) {
	all, err := s.file.ReadAll()
	if err != nil {
		return nil, err
	}
	if inst, ok := all[id]; ok {
		return &inst, nil
	}
	return nil, domainerr.New(domainerr.KindInstanceNotFound, id)
}

func (s *InstancesStore) Exists(id string) (bool, error) {
	all, err := s.file.ReadAll()
	if err != nil {
		return false, err
	}
	_, ok := all[id]
	return ok, nil
}

func (s *InstancesStore) Upsert(inst domain.Instance) error {
	_, err := s.file.Update(func(all map[string]domain.Instance) (Action[map[string]domain.Instance], error) {
		if all == nil {
			all = make(map[string]domain.Instance, 1)
		}
		all[inst.ID] = inst
		return Save(all), nil
	})
	return err
}

func (s *InstancesStore) Remove(id string) error {
	_, err := s.file.Update(func(all map[string]domain.Instance) (Action[map[string]domain.Instance], error) {
		if _, ok := all[id]; !ok {
			return NoChanges(all), nil
		}
		delete(all, id)
		return Save(all), nil
	})
	return err
}

// Mutate loads the instance, lets fn edit it in place, and persists the
// result. fn returning an error aborts without writing.
func (s *InstancesStore) Mutate(id string, fn func(*domain.Instance) error) (domain.Instance, error) {
	result, err := s.file.Update(func(all map[string]domain.Instance) (Action[map[string]domain.Instance], error) {
		inst, ok := all[id]
		if !ok {
			return NoChanges(all), domainerr.New(domainerr.KindInstanceNotFound, id)
		}
		if err := fn(&inst); err != nil {
			return NoChanges(all), err
		}
		all[id] = inst
		return Save(all), nil
	})
	if err != nil {
		return domain.Instance{}, err
	}
	return result[id], nil
}
