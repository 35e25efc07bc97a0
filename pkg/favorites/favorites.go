// Package favorites keeps the per-client list of favorited car ids
package favorites

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// PageLimit is the number of favorites shown on the favorites page
const PageLimit = 9

// ErrInvalidKey is returned for an empty client key or car id
var ErrInvalidKey = errors.New("client and car id are required")

// Store persists favorites. Lists keep insertion order.
type Store interface {
	List(ctx context.Context, client string) ([]string, error)
	Toggle(ctx context.Context, client, carID string) (bool, error)
	Contains(ctx context.Context, client, carID string) (bool, error)
}

// Top returns the ids shown on the favorites page
func Top(ids []string) []string {
	if len(ids) > PageLimit {
		ids = ids[:PageLimit]
	}
	return append([]string(nil), ids...)
}

// Set converts a list to a lookup set for rendering
func Set(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func validate(client, carID string) (string, string, error) {
	client = strings.TrimSpace(client)
	carID = strings.TrimSpace(carID)
	if client == "" || carID == "" {
		return "", "", ErrInvalidKey
	}
	return client, carID, nil
}

// toggle adds id at the end or removes it
func toggle(ids []string, id string) ([]string, bool) {
	for i, existing := range ids {
		if existing == id {
			return append(ids[:i:i], ids[i+1:]...), false
		}
	}
	return append(ids, id), true
}

// MemoryStore is an in-process Store
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]string
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]string)}
}

func (s *MemoryStore) List(_ context.Context, client string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.data[strings.TrimSpace(client)]...), nil
}

func (s *MemoryStore) Toggle(_ context.Context, client, carID string) (bool, error) {
	client, carID, err := validate(client, carID)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ids, added := toggle(s.data[client], carID)
	if len(ids) == 0 {
		delete(s.data, client)
	} else {
		s.data[client] = ids
	}
	return added, nil
}

func (s *MemoryStore) Contains(_ context.Context, client, carID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.data[strings.TrimSpace(client)] {
		if id == strings.TrimSpace(carID) {
			return true, nil
		}
	}
	return false, nil
}
