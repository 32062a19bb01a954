package queue

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Store is the process-wide, thread-safe registry mapping queue name to
// queue config and runtime handles (spec §4.1). Reads are served
// concurrently; mutations (create/delete) are serialized by a single
// read/write lock, matching spec §5's "shared resources" description.
type Store struct {
	mu      sync.RWMutex
	queues  map[string]*Queue
	baseURL string
	log     *logrus.Entry
}

// Queue bundles a queue's config with its runtime handles (spec §3, Queue).
type Queue struct {
	Name   string
	Config Config

	coordinator *Coordinator
}

// NewStore creates an empty registry.
func NewStore(baseURL string, log *logrus.Entry) *Store {
	return &Store{
		queues:  make(map[string]*Queue),
		baseURL: baseURL,
		log:     log,
	}
}

// AddQueue creates the named queue with the given config, or validates an
// existing one. Returns true if newly created. Fails with QueueNameExists
// if the name is taken with a different config (spec §4.1).
func (s *Store) AddQueue(name string, cfg Config) (created bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.queues[name]; ok {
		if existing.Config.Equal(cfg) {
			return false, nil
		}
		return false, errQueueNameExists(name)
	}

	q := &Queue{Name: name, Config: cfg}
	q.coordinator = newCoordinator(name, cfg, s, s.log.WithField("queue", name))
	s.queues[name] = q
	return true, nil
}

// RemoveQueue tears down the named queue's runtime and removes it from the
// registry. Idempotent (spec §4.1).
func (s *Store) RemoveQueue(name string) {
	s.mu.Lock()
	q, ok := s.queues[name]
	if ok {
		delete(s.queues, name)
	}
	s.mu.Unlock()

	if ok {
		q.coordinator.teardown()
	}
}

// Exists reports whether a queue with this name is registered.
func (s *Store) Exists(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.queues[name]
	return ok
}

// QueueConfig returns the named queue's config, or NonExistentQueue.
func (s *Store) QueueConfig(name string) (Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.queues[name]
	if !ok {
		return Config{}, errNonExistentQueue(name)
	}
	return q.Config, nil
}

// Handle returns the named queue's Coordinator, or NonExistentQueue.
func (s *Store) Handle(name string) (*Coordinator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.queues[name]
	if !ok {
		return nil, errNonExistentQueue(name)
	}
	return q.coordinator, nil
}

// Names returns all registered queue names, optionally filtered by prefix.
func (s *Store) Names(prefix string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.queues))
	for name := range s.queues {
		if prefix == "" || hasPrefix(name, prefix) {
			out = append(out, name)
		}
	}
	return out
}

// BaseURL returns the configured base URL used to build queue URLs.
func (s *Store) BaseURL() string {
	return s.baseURL
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
