package session

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Rrens/rag-assistant/internal/domain"
	"github.com/Rrens/rag-assistant/internal/metrics"
)

// Defaults for a Memory built with zero values
const (
	DefaultMaxExchanges = 10
	DefaultMaxSessions  = 100
	DefaultTimeout      = 24 * time.Hour
)

type entry struct {
	exchanges []domain.Exchange
	lastWrite time.Time
	lastSeen  time.Time
}

// Memory keeps a bounded conversation history per session. Sessions expire
// after a period without access and the oldest are evicted once the session
// cap is exceeded.
type Memory struct {
	mu           sync.Mutex
	sessions     map[string]*entry
	maxExchanges int
	maxSessions  int
	timeout      time.Duration
	now          func() time.Time
	onEvict      func(sessionID string)
}

// Option configures a Memory
type Option func(*Memory)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(m *Memory) { m.now = now }
}

// WithEvictionHandler registers fn to run, outside the lock, for each session
// removed by expiry or capacity. It is not called for Clear.
func WithEvictionHandler(fn func(sessionID string)) Option {
	return func(m *Memory) { m.onEvict = fn }
}

// NewMemory creates a Memory. Non-positive limits fall back to the defaults.
func NewMemory(maxExchanges, maxSessions int, timeout time.Duration, opts ...Option) *Memory {
	if maxExchanges <= 0 {
		maxExchanges = DefaultMaxExchanges
	}
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	m := &Memory{
		sessions:     make(map[string]*entry),
		maxExchanges: maxExchanges,
		maxSessions:  maxSessions,
		timeout:      timeout,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Append records an exchange, creating the session if needed. Only the most
// recent maxExchanges are kept.
func (m *Memory) Append(sessionID, human, ai string) {
	m.mu.Lock()
	now := m.now()
	e := m.getOrCreate(sessionID, now)
	e.exchanges = append(e.exchanges, domain.Exchange{Human: human, AI: ai, CreatedAt: now})
	if over := len(e.exchanges) - m.maxExchanges; over > 0 {
		e.exchanges = append([]domain.Exchange(nil), e.exchanges[over:]...)
	}
	e.lastWrite = now
	evicted := m.evictLocked(sessionID, now)
	m.mu.Unlock()

	m.notify(evicted)
}

// Touch creates the session if it does not exist and refreshes its access time
func (m *Memory) Touch(sessionID string) {
	m.mu.Lock()
	now := m.now()
	m.getOrCreate(sessionID, now)
	evicted := m.evictLocked(sessionID, now)
	m.mu.Unlock()

	m.notify(evicted)
}

// History returns a copy of the session's exchanges, oldest first
func (m *Memory) History(sessionID string) []domain.Exchange {
	m.mu.Lock()
	now := m.now()
	var out []domain.Exchange
	if e, ok := m.sessions[sessionID]; ok {
		e.lastSeen = now
		out = append(out, e.exchanges...)
	}
	evicted := m.evictLocked(sessionID, now)
	m.mu.Unlock()

	m.notify(evicted)
	return out
}

// Clear forgets the session's history
func (m *Memory) Clear(sessionID string) {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()

	log.Info().Str("session_id", sessionID).Msg("Session cleared")
}

// Stats describes the session without creating it. LastActivity is the time
// of the last write, so repeated reads report the same value.
func (m *Memory) Stats(sessionID string) domain.SessionStats {
	m.mu.Lock()
	now := m.now()
	stats := domain.SessionStats{SessionID: sessionID}
	if e, ok := m.sessions[sessionID]; ok {
		e.lastSeen = now
		stats = statsOf(sessionID, e)
	}
	evicted := m.evictLocked(sessionID, now)
	m.mu.Unlock()

	m.notify(evicted)
	return stats
}

// Snapshot returns stats for every live session, most recently written first
func (m *Memory) Snapshot() []domain.SessionStats {
	m.mu.Lock()
	out := make([]domain.SessionStats, 0, len(m.sessions))
	for id, e := range m.sessions {
		out = append(out, statsOf(id, e))
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].LastActivity, out[j].LastActivity
		if a.Equal(*b) {
			return out[i].SessionID < out[j].SessionID
		}
		return a.After(*b)
	})
	return out
}

// Len returns the number of live sessions
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep removes expired sessions one at a time, taking the lock per session
// so request handlers are never blocked for the whole pass
func (m *Memory) Sweep() int {
	m.mu.Lock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	removed := 0
	for _, id := range ids {
		m.mu.Lock()
		e, ok := m.sessions[id]
		expired := ok && m.now().Sub(e.lastSeen) > m.timeout
		if expired {
			delete(m.sessions, id)
		}
		m.mu.Unlock()

		if expired {
			removed++
			m.notify([]string{id})
		}
	}
	return removed
}

func (m *Memory) getOrCreate(sessionID string, now time.Time) *entry {
	e, ok := m.sessions[sessionID]
	if !ok {
		e = &entry{lastWrite: now}
		m.sessions[sessionID] = e
	}
	e.lastSeen = now
	return e
}

// evictLocked drops expired sessions and, past the cap, the least recently
// accessed ones. keep is never evicted. Must be called with mu held.
func (m *Memory) evictLocked(keep string, now time.Time) []string {
	var evicted []string
	for id, e := range m.sessions {
		if id != keep && now.Sub(e.lastSeen) > m.timeout {
			delete(m.sessions, id)
			evicted = append(evicted, id)
		}
	}

	for len(m.sessions) > m.maxSessions {
		oldest := ""
		var oldestSeen time.Time
		for id, e := range m.sessions {
			if id == keep {
				continue
			}
			if oldest == "" || e.lastSeen.Before(oldestSeen) {
				oldest, oldestSeen = id, e.lastSeen
			}
		}
		if oldest == "" {
			break
		}
		delete(m.sessions, oldest)
		evicted = append(evicted, oldest)
	}

	return evicted
}

func (m *Memory) notify(evicted []string) {
	for _, id := range evicted {
		metrics.SessionsEvicted.Inc()
		log.Info().Str("session_id", id).Msg("Session evicted")
		if m.onEvict != nil {
			m.onEvict(id)
		}
	}
}

func statsOf(id string, e *entry) domain.SessionStats {
	lastWrite := e.lastWrite
	stats := domain.SessionStats{
		Exists:       true,
		SessionID:    id,
		MessageCount: len(e.exchanges),
		LastActivity: &lastWrite,
	}
	if len(e.exchanges) > 0 {
		first := e.exchanges[0].CreatedAt
		stats.FirstActivity = &first
	}
	return stats
}
