package wizard

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	log "github.com/sirupsen/logrus"
)

const defaultCapacity = 1024

// ErrSessionNotFound is returned for unknown or evicted session ids
var ErrSessionNotFound = errors.New("diagnosis session not found")

// Store keeps live sessions in a bounded LRU; the least recently used
// session is dropped when capacity is reached.
type Store struct {
	sessions *lru.Cache[string, *Session]
}

// NewStore creates a store holding at most capacity sessions
func NewStore(capacity int) (*Store, error) {
	if capacity <= 0 {
		capacity = defaultCapacity
	}

	cache, err := lru.NewWithEvict[string, *Session](capacity, func(id string, _ *Session) {
		log.WithField("session", id).Debug("Diagnosis session evicted")
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session cache: %w", err)
	}

	return &Store{sessions: cache}, nil
}

// Create starts a new session with a random id
func (st *Store) Create() *Session {
	s := NewSession(uuid.New().String())
	st.sessions.Add(s.ID(), s)
	return s
}

// Get returns the session with id
func (st *Store) Get(id string) (*Session, error) {
	s, ok := st.sessions.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

// Delete drops a session; unknown ids are ignored
func (st *Store) Delete(id string) {
	st.sessions.Remove(id)
}

// Len returns the number of live sessions
func (st *Store) Len() int {
	return st.sessions.Len()
}
