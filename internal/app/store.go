package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jaminalder/time-travel-tic-tac-toe/internal/domain"
)

// Store keeps game sessions between requests. Load returns ErrNotFound for
// unknown or expired ids and always hands out a fresh controller.
type Store interface {
	Load(ctx context.Context, id string) (*GameState, error)
	Save(ctx context.Context, gs *GameState) error
}

// record is the stored form of a GameState.
type record struct {
	ID       string          `json:"id"`
	Snapshot domain.Snapshot `json:"snapshot"`
	Created  time.Time       `json:"created"`
	Updated  time.Time       `json:"updated"`
}

func toRecord(gs *GameState) record {
	return record{ID: gs.ID, Snapshot: gs.Game.Snapshot(), Created: gs.Created, Updated: gs.Updated}
}

func (r record) state() (*GameState, error) {
	g, err := domain.Restore(r.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("restore game %s: %w", r.ID, err)
	}
	return &GameState{ID: r.ID, Game: g, Created: r.Created, Updated: r.Updated}, nil
}

// MemoryStore keeps sessions in process memory. Sessions idle for longer
// than ttl are evicted, either when loaded or by the sweep that Save runs
// at most every ttl/2. A zero ttl keeps them forever.
type MemoryStore struct {
	mu        sync.Mutex
	games     map[string]record
	ttl       time.Duration
	now       func() time.Time
	lastSweep time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{games: make(map[string]record), ttl: ttl, now: time.Now}
}

// Load returns the session with the given id, or ErrNotFound when it is
// missing or has expired.
func (m *MemoryStore) Load(_ context.Context, id string) (*GameState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.games[id]
	if !ok {
		return nil, ErrNotFound
	}
	if m.expired(rec, m.now()) {
		delete(m.games, id)
		return nil, ErrNotFound
	}
	return rec.state()
}

// Save stores a snapshot of gs and evicts expired sessions when a sweep is due.
func (m *MemoryStore) Save(_ context.Context, gs *GameState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.games[gs.ID] = toRecord(gs)
	if now := m.now(); m.ttl > 0 && now.Sub(m.lastSweep) >= m.ttl/2 {
		m.sweepLocked(now)
	}
	return nil
}

func (m *MemoryStore) expired(rec record, now time.Time) bool {
	return m.ttl > 0 && now.Sub(rec.Updated) > m.ttl
}

func (m *MemoryStore) sweepLocked(now time.Time) {
	for id, rec := range m.games {
		if m.expired(rec, now) {
			delete(m.games, id)
		}
	}
	m.lastSweep = now
}

// Len returns the number of stored sessions, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.games)
}
