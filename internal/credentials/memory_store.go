package credentials

import "sync"

var _ TokenStore = (*MemoryStore)(nil)

// MemoryStore keeps tokens in process memory only.
type MemoryStore struct {
	mu      sync.RWMutex
	access  string
	refresh string
}

// NewMemoryStore creates an empty in-memory token store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Save(access, refresh string) error {
	if err := validatePair(access, refresh); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.access = access
	m.refresh = refresh
	return nil
}

func (m *MemoryStore) UpdateAccess(refresh, access string) error {
	if err := validatePair(access, refresh); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.refresh == "" || m.refresh != refresh {
		return ErrTokenChanged
	}

	m.access = access
	return nil
}

func (m *MemoryStore) ReadAccess() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.access == "" {
		return "", ErrTokenNotFound
	}
	return m.access, nil
}

func (m *MemoryStore) ReadRefresh() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.refresh == "" {
		return "", ErrTokenNotFound
	}
	return m.refresh, nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.access = ""
	m.refresh = ""
	return nil
}
