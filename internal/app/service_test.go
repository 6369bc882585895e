package app

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/jaminalder/time-travel-tic-tac-toe/internal/domain"
)

// minimal renderer for tests: encode step and history length as bytes
func testRenderer(gs GameState) []byte {
	return []byte(fmt.Sprintf("step=%d len=%d", gs.Game.Step(), gs.Game.Len()))
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewServiceWithRenderer(NewMemoryStore(0), zaptest.NewLogger(t), testRenderer)
}

func TestCreateAndGet(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)

	gs, err := s.CreateGame(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, gs.ID)
	assert.Equal(t, 1, gs.Game.Len())
	assert.Equal(t, "Next player: X", gs.Game.Status())
	assert.False(t, gs.Created.IsZero())
	assert.False(t, gs.Updated.IsZero())

	got, err := s.Get(ctx, gs.ID)
	require.NoError(t, err)
	assert.Equal(t, gs.ID, got.ID)
}

func TestGetUnknown(t *testing.T) {
	s := newTestService(t)
	_, err := s.Get(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestPlayPersistsMove(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)
	gs, err := s.CreateGame(ctx)
	require.NoError(t, err)

	st, played, err := s.Play(ctx, gs.ID, 4)
	require.NoError(t, err)
	assert.True(t, played)
	assert.Equal(t, domain.X, st.Game.CurrentBoard()[4])

	latest, err := s.Get(ctx, gs.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, latest.Game.Len())
	assert.Equal(t, "Next player: O", latest.Game.Status())
	assert.False(t, latest.Updated.Before(gs.Updated))
}

func TestPlayOccupiedIsIgnored(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)
	gs, _ := s.CreateGame(ctx)

	_, _, err := s.Play(ctx, gs.ID, 0)
	require.NoError(t, err)
	st, played, err := s.Play(ctx, gs.ID, 0)
	require.NoError(t, err)
	assert.False(t, played)
	assert.Equal(t, 2, st.Game.Len())
}

func TestPlayErrors(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)
	gs, _ := s.CreateGame(ctx)

	st, played, err := s.Play(ctx, gs.ID, 9)
	assert.False(t, played)
	assert.True(t, errors.Is(err, domain.ErrOutOfRange))
	require.NotNil(t, st)
	assert.Equal(t, 1, st.Game.Len())

	_, _, err = s.Play(ctx, "missing", 0)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestJumpAndToggle(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)
	gs, _ := s.CreateGame(ctx)
	for _, c := range []int{0, 4, 1} {
		_, _, err := s.Play(ctx, gs.ID, c)
		require.NoError(t, err)
	}

	st, err := s.Jump(ctx, gs.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Game.Step())

	_, err = s.Jump(ctx, gs.ID, 4)
	assert.True(t, errors.Is(err, domain.ErrOutOfRange))

	st, err = s.ToggleOrder(ctx, gs.ID)
	require.NoError(t, err)
	assert.False(t, st.Game.Ascending())

	latest, err := s.Get(ctx, gs.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, latest.Game.Step())
	assert.False(t, latest.Game.Ascending())
	assert.Equal(t, 4, latest.Game.Len())
}

func TestSubscribeAndBroadcast(t *testing.T) {
	s := newTestService(t)
	gs, _ := s.CreateGame(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*2)
	defer cancel()
	ch, unsub := s.Subscribe(ctx, gs.ID)
	defer unsub()

	_, _, err := s.Play(ctx, gs.ID, 0)
	require.NoError(t, err)

	select {
	case b, ok := <-ch:
		require.True(t, ok, "channel closed unexpectedly")
		assert.Equal(t, "step=1 len=2", string(b))
	case <-ctx.Done():
		t.Fatalf("timed out waiting for broadcast")
	}
}

func TestIgnoredMoveDoesNotBroadcast(t *testing.T) {
	s := newTestService(t)
	gs, _ := s.CreateGame(context.Background())
	_, _, err := s.Play(context.Background(), gs.ID, 0)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, unsub := s.Subscribe(ctx, gs.ID)
	defer unsub()

	_, played, err := s.Play(ctx, gs.ID, 0)
	require.NoError(t, err)
	require.False(t, played)

	select {
	case b := <-ch:
		t.Fatalf("unexpected broadcast %q", string(b))
	default:
	}
}

func TestDropSlowSubscriber(t *testing.T) {
	s := newTestService(t)
	gs, _ := s.CreateGame(context.Background())

	// Slow subscriber: never read
	ctxSlow, cancelSlow := context.WithCancel(context.Background())
	defer cancelSlow()
	slowCh, _ := s.Subscribe(ctxSlow, gs.ID)

	// Fast subscriber: will read
	ctxFast, cancelFast := context.WithTimeout(context.Background(), time.Second*2)
	defer cancelFast()
	fastCh, unsubFast := s.Subscribe(ctxFast, gs.ID)
	defer unsubFast()

	_, _, err := s.Play(ctxFast, gs.ID, 0)
	require.NoError(t, err)
	select {
	case <-fastCh:
	case <-ctxFast.Done():
		t.Fatalf("fast subscriber did not receive first update in time")
	}

	_, _, err = s.Play(ctxFast, gs.ID, 4)
	require.NoError(t, err)
	select {
	case <-fastCh:
	case <-ctxFast.Done():
		t.Fatalf("fast subscriber did not receive second update in time")
	}

	// the slow channel holds the first payload, then is closed
	<-slowCh
	_, ok := <-slowCh
	assert.False(t, ok, "slow subscriber should have been dropped")
}

func TestUnsubscribeOnContextCancel(t *testing.T) {
	s := newTestService(t)
	gs, _ := s.CreateGame(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	ch, _ := s.Subscribe(ctx, gs.ID)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatalf("channel not closed after cancel")
	}
}
