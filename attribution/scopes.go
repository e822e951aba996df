package attribution

import (
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Scopes hands out the durable storage of a visitor and the storage of one browser session.
type Scopes interface {
	Visitor(visitorID string) Storage
	Session(sessionScope string) Storage
}

// RedisScopes maps scopes onto key prefixes in one Redis database.
type RedisScopes struct {
	Client     redis.Cmdable
	VisitorTTL time.Duration
	SessionTTL time.Duration
}

func (r RedisScopes) Visitor(visitorID string) Storage {
	return VisitorStorage(r.Client, visitorID, r.VisitorTTL)
}

func (r RedisScopes) Session(sessionScope string) Storage {
	return SessionStorage(r.Client, sessionScope, r.SessionTTL)
}

// MemoryScopes keeps every scope in process memory. Nothing expires, so it only suits tests
// and local development.
type MemoryScopes struct {
	mu       sync.Mutex
	visitors map[string]*MemoryStorage
	sessions map[string]*MemoryStorage
}

func NewMemoryScopes() *MemoryScopes {
	return &MemoryScopes{
		visitors: make(map[string]*MemoryStorage),
		sessions: make(map[string]*MemoryStorage),
	}
}

func (m *MemoryScopes) Visitor(visitorID string) Storage {
	return m.scope(m.visitors, visitorID)
}

func (m *MemoryScopes) Session(sessionScope string) Storage {
	return m.scope(m.sessions, sessionScope)
}

func (m *MemoryScopes) scope(scopes map[string]*MemoryStorage, id string) *MemoryStorage {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := scopes[id]
	if !ok {
		st = NewMemoryStorage()
		scopes[id] = st
	}
	return st
}
