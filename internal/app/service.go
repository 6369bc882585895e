package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jaminalder/time-travel-tic-tac-toe/internal/domain"
)

// Errors exposed by the service layer.
var (
	ErrNotFound = errors.New("game not found")
)

// GameState is one game session.
type GameState struct {
	ID      string
	Game    *domain.Controller
	Created time.Time
	Updated time.Time
}

type subscriber struct {
	ch        chan []byte
	closeOnce sync.Once
}

func (s *subscriber) close() { s.closeOnce.Do(func() { close(s.ch) }) }

// Service manages game sessions and their subscribers.
type Service struct {
	mu     sync.Mutex
	store  Store
	subs   map[string]map[*subscriber]struct{}
	render func(GameState) []byte
	log    *zap.Logger
	now    func() time.Time
}

// NewService creates a service with a renderer that broadcasts nothing useful.
func NewService(store Store, log *zap.Logger) *Service {
	return NewServiceWithRenderer(store, log, nil)
}

// NewServiceWithRenderer allows injecting a renderer for broadcast payloads.
func NewServiceWithRenderer(store Store, log *zap.Logger, renderer func(GameState) []byte) *Service {
	if renderer == nil {
		renderer = func(gs GameState) []byte { return nil }
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:  store,
		subs:   make(map[string]map[*subscriber]struct{}),
		render: renderer,
		log:    log.Named("service"),
		now:    time.Now,
	}
}

// SetRenderer replaces the broadcast renderer function.
func (s *Service) SetRenderer(renderer func(GameState) []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if renderer == nil {
		s.render = func(gs GameState) []byte { return nil }
		return
	}
	s.render = renderer
}

// CreateGame creates and stores a new session.
func (s *Service) CreateGame(ctx context.Context) (*GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	gs := &GameState{ID: uuid.NewString(), Game: domain.New(), Created: now, Updated: now}
	if err := s.store.Save(ctx, gs); err != nil {
		s.log.Error("create game", zap.Error(err))
		return nil, fmt.Errorf("create game: %w", err)
	}
	s.log.Info("game created", zap.String("game_id", gs.ID))
	return gs, nil
}

// Get returns the session with the given id.
func (s *Service) Get(ctx context.Context, id string) (*GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Load(ctx, id)
}

// Play plays the next mark at cell. The bool reports whether the move was
// applied; occupied cells and finished boards are ignored without error.
func (s *Service) Play(ctx context.Context, id string, cell int) (*GameState, bool, error) {
	var played bool
	gs, err := s.update(ctx, id, func(g *domain.Controller) (bool, error) {
		var err error
		played, err = g.PlayAt(cell)
		return played, err
	})
	if err != nil {
		return gs, false, err
	}
	log := s.log.With(zap.String("game_id", id), zap.Int("cell", cell))
	if played {
		log.Debug("move played", zap.Int("step", gs.Game.Step()), zap.Stringer("state", gs.Game.State()))
	} else {
		log.Debug("move ignored", zap.Stringer("state", gs.Game.State()))
	}
	return gs, played, nil
}

// Jump displays an earlier (or later) history entry.
func (s *Service) Jump(ctx context.Context, id string, step int) (*GameState, error) {
	gs, err := s.update(ctx, id, func(g *domain.Controller) (bool, error) {
		if err := g.JumpTo(step); err != nil {
			return false, err
		}
		return true, nil
	})
	if err == nil {
		s.log.Debug("jumped", zap.String("game_id", id), zap.Int("step", step))
	}
	return gs, err
}

// ToggleOrder flips the move list order.
func (s *Service) ToggleOrder(ctx context.Context, id string) (*GameState, error) {
	return s.update(ctx, id, func(g *domain.Controller) (bool, error) {
		g.ToggleOrder()
		return true, nil
	})
}

// update loads a session, applies fn, and saves and broadcasts if fn
// reports a change. On a domain error the unchanged state is returned with it.
func (s *Service) update(ctx context.Context, id string, fn func(*domain.Controller) (bool, error)) (*GameState, error) {
	s.mu.Lock()
	gs, err := s.store.Load(ctx, id)
	if err != nil {
		s.mu.Unlock()
		if !errors.Is(err, ErrNotFound) {
			s.log.Error("load game", zap.String("game_id", id), zap.Error(err))
		}
		return nil, err
	}
	changed, err := fn(gs.Game)
	if err != nil {
		s.mu.Unlock()
		return gs, err
	}
	if !changed {
		s.mu.Unlock()
		return gs, nil
	}
	gs.Updated = s.now()
	if err := s.store.Save(ctx, gs); err != nil {
		s.mu.Unlock()
		s.log.Error("save game", zap.String("game_id", id), zap.Error(err))
		return nil, fmt.Errorf("save game %s: %w", id, err)
	}

	// Snapshot subscribers and payload
	subs := s.copySubsLocked(id)
	payload := s.render(*gs)
	s.mu.Unlock()

	s.broadcast(id, subs, payload)
	return gs, nil
}

func (s *Service) broadcast(id string, subs map[*subscriber]struct{}, payload []byte) {
	var toDrop []*subscriber
	// Fan-out; drop slow subscribers by closing and marking for deletion
	for sub := range subs {
		select {
		case sub.ch <- payload:
		default:
			sub.close()
			toDrop = append(toDrop, sub)
		}
	}
	if len(toDrop) == 0 {
		return
	}
	s.mu.Lock()
	for _, sub := range toDrop {
		if set, ok := s.subs[id]; ok {
			delete(set, sub)
		}
	}
	s.mu.Unlock()
	s.log.Debug("dropped slow subscribers", zap.String("game_id", id), zap.Int("count", len(toDrop)))
}

// Subscribe registers a subscriber for a game. Returns a channel and an unsubscribe func.
func (s *Service) Subscribe(ctx context.Context, id string) (<-chan []byte, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.subs[id]
	if set == nil {
		set = make(map[*subscriber]struct{})
		s.subs[id] = set
	}
	sub := &subscriber{ch: make(chan []byte, 1)}
	set[sub] = struct{}{}

	unsubOnce := &sync.Once{}
	unsub := func() {
		unsubOnce.Do(func() {
			s.mu.Lock()
			if set, ok := s.subs[id]; ok {
				delete(set, sub)
				if len(set) == 0 {
					delete(s.subs, id)
				}
			}
			s.mu.Unlock()
			sub.close()
		})
	}
	go func() {
		<-ctx.Done()
		unsub()
	}()
	return sub.ch, unsub
}

func (s *Service) copySubsLocked(id string) map[*subscriber]struct{} {
	out := make(map[*subscriber]struct{})
	if set, ok := s.subs[id]; ok {
		for k := range set {
			out[k] = struct{}{}
		}
	}
	return out
}
