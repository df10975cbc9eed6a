package history

import (
	"context"
	"sync"
	"time"
)

type recordKey struct {
	sessionID int64
	kind      Kind
	method    string
	url       string
	bodyHash  string
}

// MemoryStore keeps history in process memory. It is the default when no
// database directory is configured, and is lost on exit.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[recordKey]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows: make(map[recordKey]time.Time),
	}
}

func (m *MemoryStore) ContainsURI(_ context.Context, sessionID int64, kind Kind, method, url, bodyHash string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.rows[recordKey{sessionID, kind, method, url, bodyHash}]
	return ok, nil
}

func (m *MemoryStore) Record(_ context.Context, r Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := recordKey{r.SessionID, r.Kind, r.Method, r.URL, r.BodyHash}
	if _, exists := m.rows[key]; !exists {
		m.rows[key] = r.RecordedAt
	}
	return nil
}

// Len returns the number of stored rows.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rows)
}
