package history

import (
	"context"
	"sync"
)

// InMemoryRepository is the default history store. It lives for one process
// run only.
type InMemoryRepository struct {
	mu    sync.RWMutex
	files map[string][]string
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		files: make(map[string][]string),
	}
}

func (r *InMemoryRepository) Seen(_ context.Context, id string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.files[id]

	return ok, nil
}

func (r *InMemoryRepository) Record(_ context.Context, id string, files []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := make([]string, len(files))
	copy(cp, files)
	r.files[id] = cp

	return nil
}

func (r *InMemoryRepository) Files(_ context.Context, id string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	files, ok := r.files[id]
	if !ok {
		return nil, nil
	}

	cp := make([]string, len(files))
	copy(cp, files)

	return cp, nil
}
