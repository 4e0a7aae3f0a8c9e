package store

import (
	"sync"
	"time"

	"github.com/akolanti/GoRAG/internal/domain/commonModels"
	"github.com/akolanti/GoRAG/internal/metrics"
	"github.com/akolanti/GoRAG/pkg/logger_i"
)

// Session holds the bounded conversation window for one session id.
type Session struct {
	mu           sync.Mutex
	messages     []commonModels.Message
	maxExchanges int
	lastAccess   time.Time
}

// AppendExchange records one question and its answer, keeping only the most
// recent maxExchanges exchanges.
func (s *Session) AppendExchange(question, answer string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = append(s.messages,
		commonModels.Message{Role: commonModels.RoleUser, Content: question},
		commonModels.Message{Role: commonModels.RoleAssistant, Content: answer},
	)
	if limit := 2 * s.maxExchanges; len(s.messages) > limit {
		s.messages = append([]commonModels.Message(nil), s.messages[len(s.messages)-limit:]...)
	}
}

func (s *Session) Messages() []commonModels.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]commonModels.Message{}, s.messages...)
}

// SessionCache keeps conversation sessions in memory only. Idle sessions are
// evicted lazily whenever the cache is consulted.
type SessionCache struct {
	lock         sync.Mutex
	sessions     map[string]*Session
	ttl          time.Duration
	maxExchanges int
	now          func() time.Time
	logger       *logger_i.Logger
}

func NewSessionCache(ttl time.Duration, maxExchanges int) *SessionCache {
	return &SessionCache{
		sessions:     make(map[string]*Session),
		ttl:          ttl,
		maxExchanges: maxExchanges,
		now:          time.Now,
		logger:       logger_i.NewLogger("SessionCache"),
	}
}

// WithClock swaps the time source, used by tests.
func (c *SessionCache) WithClock(now func() time.Time) *SessionCache {
	c.now = now
	return c
}

func (c *SessionCache) GetOrCreate(id string) *Session {
	c.lock.Lock()
	defer c.lock.Unlock()

	now := c.now()
	c.sweep(now)

	session, ok := c.sessions[id]
	if !ok {
		session = &Session{maxExchanges: c.maxExchanges}
		c.sessions[id] = session
		c.logger.Debug("session created", "sessionId", id)
	}
	session.lastAccess = now
	metrics.SetActiveSessions(len(c.sessions))
	return session
}

// History returns a copy of the session messages without refreshing its idle timer.
func (c *SessionCache) History(id string) []commonModels.Message {
	c.lock.Lock()
	c.sweep(c.now())
	session, ok := c.sessions[id]
	c.lock.Unlock()

	if !ok {
		return []commonModels.Message{}
	}
	return session.Messages()
}

func (c *SessionCache) Clear(id string) bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	_, ok := c.sessions[id]
	delete(c.sessions, id)
	metrics.SetActiveSessions(len(c.sessions))
	return ok
}

func (c *SessionCache) Len() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return len(c.sessions)
}

// sweep must be called with the lock held.
func (c *SessionCache) sweep(now time.Time) {
	evicted := 0
	for id, session := range c.sessions {
		if now.Sub(session.lastAccess) > c.ttl {
			delete(c.sessions, id)
			evicted++
		}
	}
	if evicted > 0 {
		c.logger.Debug("expired sessions evicted", "count", evicted)
		metrics.RecordSessionEvictions(evicted)
		metrics.SetActiveSessions(len(c.sessions))
	}
}
