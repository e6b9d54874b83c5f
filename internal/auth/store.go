package auth

import (
	"log/slog"
	"sync"
)

// Store keeps per-user credentials in memory.
//
// A single Store instance is shared across all concurrent requests, so every
// access goes through the mutex. Credentials are stored and returned by
// value; callers never hold a reference into the map.
type Store struct {
	mu          sync.RWMutex
	credentials map[string]Credential
	logger      *slog.Logger
}

// NewStore creates a new in-memory credential store.
func NewStore() *Store {
	return &Store{
		credentials: make(map[string]Credential),
		logger:      slog.Default(),
	}
}

// SetLogger sets a custom logger for the store.
func (s *Store) SetLogger(logger *slog.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger = logger
}

// Get returns the credential for a user. The second return value reports
// whether a credential was stored.
func (s *Store) Get(userID string) (Credential, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cred, ok := s.credentials[userID]
	return cred, ok
}

// Set stores the credential for a user, replacing any previous one.
// Last writer wins per key.
func (s *Store) Set(userID string, cred Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.credentials[userID] = cred
	s.logger.Debug("stored credential", "user_id", userID, "expiry", cred.Expiry)
}

// Delete removes the credential for a user. Deleting a missing key is a no-op.
func (s *Store) Delete(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.credentials, userID)
	s.logger.Info("deleted credential", "user_id", userID)
}

// UserIDs returns the IDs of all users with a stored credential.
func (s *Store) UserIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.credentials))
	for id := range s.credentials {
		ids = append(ids, id)
	}
	return ids
}
