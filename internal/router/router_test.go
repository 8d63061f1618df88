package router

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"

	"github.com/cardhall/core/internal/authz"
	"github.com/cardhall/core/internal/cherr"
	"github.com/cardhall/core/internal/ratelimit"
	"github.com/cardhall/core/internal/tablestate"
	"github.com/cardhall/core/pkg/cards"
)

func hourWindow() time.Duration { return time.Hour }
func waitTimeout() time.Duration { return time.Second }
func waitTick() time.Duration    { return 10 * time.Millisecond }

type fakeSub struct {
	id     string
	mu     sync.Mutex
	events []tablestate.Event
}

func (f *fakeSub) ID() string { return f.id }
func (f *fakeSub) Deliver(e tablestate.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
}
func (f *fakeSub) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func newTestRouter() *Router {
	return New(testLogger(), authz.AllowAll{}, ratelimit.AllowAll{}, nil, "")
}

func testChannel(t *testing.T, id string) *tablestate.Channel {
	t.Helper()
	rng, err := cards.NewSeededRNG([]byte("router-test-seed"))
	require.NoError(t, err)
	return tablestate.NewChannel(id, tablestate.ModeBlackjack, rng)
}

func TestDispatch_RejectsUnknownChannel(t *testing.T) {
	r := newTestRouter()
	err := r.Dispatch(context.Background(), "sub1", "missing", "bet", func(*tablestate.Channel) error { return nil })
	require.Error(t, err)
}

func TestDispatch_InvokesFnUnderChannelLock(t *testing.T) {
	r := newTestRouter()
	c := testChannel(t, "ch1")
	r.Register(c)

	called := false
	err := r.Dispatch(context.Background(), "sub1", "ch1", "bet", func(cc *tablestate.Channel) error {
		called = true
		require.Equal(t, "ch1", cc.ID)
		return nil
	})
	require.NoError(t, err)
	require.True(t, called)
}

func TestDispatch_RejectsUnauthorized(t *testing.T) {
	r := New(testLogger(), denyAll{}, ratelimit.AllowAll{}, nil, "")
	c := testChannel(t, "ch1")
	r.Register(c)

	err := r.Dispatch(context.Background(), "sub1", "ch1", "bet", func(*tablestate.Channel) error { return nil })
	require.ErrorIs(t, err, cherr.ErrUnauthorized)
}

func TestDispatch_RejectsRateLimited(t *testing.T) {
	limiter := ratelimit.NewFixedWindow(1, hourWindow())
	r := New(testLogger(), authz.AllowAll{}, limiter, nil, "")
	c := testChannel(t, "ch1")
	r.Register(c)

	require.NoError(t, r.Dispatch(context.Background(), "sub1", "ch1", "bet", func(*tablestate.Channel) error { return nil }))
	err := r.Dispatch(context.Background(), "sub1", "ch1", "bet", func(*tablestate.Channel) error { return nil })
	require.Error(t, err)
}

func TestSubscribeAndEmit_DeliversToJoinedSubscribers(t *testing.T) {
	r := newTestRouter()
	sub := &fakeSub{id: "s1"}
	r.Subscribe("ch1", sub)

	r.Emit(tablestate.Event{Channel: "ch1", Kind: tablestate.EventSettled})
	require.Eventually(t, func() bool { return sub.count() == 1 }, waitTimeout(), waitTick())
}

func TestUnsubscribe_StopsFurtherDelivery(t *testing.T) {
	r := newTestRouter()
	sub := &fakeSub{id: "s1"}
	r.Subscribe("ch1", sub)
	r.Unsubscribe("ch1", "s1")

	r.Emit(tablestate.Event{Channel: "ch1", Kind: tablestate.EventSettled})
	require.Never(t, func() bool { return sub.count() > 0 }, waitTimeout(), waitTick())
}

type denyAll struct{}

func (denyAll) Allow(context.Context, string, string) bool { return false }
