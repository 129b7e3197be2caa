package session

import (
	"container/list"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultTTL         = 2 * time.Hour
	DefaultMaxSessions = 4096
)

// Store keeps sessions in memory, evicting idle ones after ttl and the least
// recently used ones beyond maxSessions. Nothing survives a restart.
type Store struct {
	mu sync.Mutex

	ttl         time.Duration
	maxSessions int
	now         func() time.Time

	lru *list.List                  // front=MRU
	m   map[uuid.UUID]*list.Element // id -> element(Value=*Session)
}

// NewStore creates a store; non-positive arguments disable that limit.
func NewStore(ttl time.Duration, maxSessions int) *Store {
	return &Store{
		ttl:         ttl,
		maxSessions: maxSessions,
		now:         time.Now,
		lru:         list.New(),
		m:           map[uuid.UUID]*list.Element{},
	}
}

// Create starts a new session.
func (st *Store) Create() *Session {
	now := st.now()
	st.mu.Lock()
	defer st.mu.Unlock()

	st.evictExpiredLocked(now)

	s := newSession(now)
	st.m[s.ID] = st.lru.PushFront(s)
	st.evictOverLimitLocked()
	return s
}

// Get returns a live session and marks it as recently used.
func (st *Store) Get(id uuid.UUID) (*Session, bool) {
	now := st.now()
	st.mu.Lock()
	defer st.mu.Unlock()

	st.evictExpiredLocked(now)

	e := st.m[id]
	if e == nil {
		return nil, false
	}
	s := e.Value.(*Session)
	s.lastActive = now
	st.lru.MoveToFront(e)
	return s, true
}

// Delete ends a session.
func (st *Store) Delete(id uuid.UUID) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if e := st.m[id]; e != nil {
		st.deleteElemLocked(e)
	}
}

func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.lru.Len()
}

func (st *Store) evictExpiredLocked(now time.Time) {
	if st.ttl <= 0 {
		return
	}
	for e := st.lru.Back(); e != nil; {
		prev := e.Prev()
		if now.Sub(e.Value.(*Session).lastActive) <= st.ttl {
			break
		}
		st.deleteElemLocked(e)
		e = prev
	}
}

func (st *Store) evictOverLimitLocked() {
	if st.maxSessions <= 0 {
		return
	}
	for st.lru.Len() > st.maxSessions {
		st.deleteElemLocked(st.lru.Back())
	}
}

func (st *Store) deleteElemLocked(e *list.Element) {
	delete(st.m, e.Value.(*Session).ID)
	st.lru.Remove(e)
}
