// Package router implements the Channel Router & Emitter (spec §4.8): the
// channel→state map, per-channel command serialization, authz/rate-limit
// gating, and non-blocking Redis-backed event fan-out to subscribers.
// Grounded on Pelentan-swarm-blackjack/gateway's Redis-subscribe-and-
// republish-to-a-local-bus pattern, generalized from a single SSE bus to a
// per-channel subscriber set keyed by channel id.
package router

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"

	"github.com/cardhall/core/internal/authz"
	"github.com/cardhall/core/internal/cherr"
	"github.com/cardhall/core/internal/ratelimit"
	"github.com/cardhall/core/internal/tablestate"
)

// entry is one live channel and its exclusive-access lock.
type entry struct {
	mu      sync.Mutex
	channel *tablestate.Channel
}

// Subscriber receives events for the channels it has joined. Delivery is
// non-blocking: Emit hands each event to each subscriber on its own
// goroutine, so a slow subscriber never stalls the channel; no event is
// dropped, and delivery order across events is not guaranteed (spec §4.8, §5).
type Subscriber interface {
	ID() string
	Deliver(tablestate.Event)
}

// Router owns every live channel and its subscriber set (spec §4.8).
type Router struct {
	log *log.Logger

	mu       sync.RWMutex
	channels map[string]*entry
	subs     map[string]map[string]Subscriber // channel id -> subscriber id -> Subscriber

	authz     authz.Authorizer
	limiter   ratelimit.Limiter
	redis     *redis.Client
	redisChan string
}

// New builds a Router. redisClient and redisChannel may be left nil/empty
// to run fan-out purely in-process (used by tests).
func New(logger *log.Logger, az authz.Authorizer, rl ratelimit.Limiter, redisClient *redis.Client, redisChannel string) *Router {
	return &Router{
		log:       logger,
		channels:  map[string]*entry{},
		subs:      map[string]map[string]Subscriber{},
		authz:     az,
		limiter:   rl,
		redis:     redisClient,
		redisChan: redisChannel,
	}
}

// Register adds a channel under router management.
func (r *Router) Register(c *tablestate.Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels[c.ID] = &entry{channel: c}
}

// Unregister removes a channel, e.g. once a tournament table is done.
func (r *Router) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.channels, id)
	delete(r.subs, id)
}

// Subscribe joins sub to channel's event stream.
func (r *Router) Subscribe(channelID string, sub Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.subs[channelID]
	if !ok {
		set = map[string]Subscriber{}
		r.subs[channelID] = set
	}
	set[sub.ID()] = sub
}

// Unsubscribe removes sub from channel's event stream. A disconnect never
// affects the round itself (spec §4.8 failure semantics) — only delivery.
func (r *Router) Unsubscribe(channelID, subscriberID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if set, ok := r.subs[channelID]; ok {
		delete(set, subscriberID)
	}
}

// Dispatch authorizes, rate-limits, then serializes fn's access to the
// named channel, invoking fn while holding the channel's exclusive lock
// (spec §4.8: "every mutation method is serialized per channel").
func (r *Router) Dispatch(ctx context.Context, subscriberID, channelID, commandKind string, fn func(*tablestate.Channel) error) error {
	if r.authz != nil && !r.authz.Allow(ctx, subscriberID, channelID) {
		return cherr.ErrUnauthorized
	}
	if r.limiter != nil && !r.limiter.Allow(subscriberID, commandKind) {
		return cherr.New(cherr.InvalidAction, "rate limited")
	}

	r.mu.RLock()
	e, ok := r.channels[channelID]
	r.mu.RUnlock()
	if !ok {
		return cherr.New(cherr.InvalidPayload, "unknown channel")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.channel)
}

// Emit implements tablestate.Emitter: it fans out locally to subscribers of
// the event's channel, and — if a Redis client is configured — republishes
// so other process instances' subscribers see it too (spec §4.8).
func (r *Router) Emit(evt tablestate.Event) {
	r.mu.RLock()
	set := r.subs[evt.Channel]
	subs := make([]Subscriber, 0, len(set))
	for _, s := range set {
		subs = append(subs, s)
	}
	r.mu.RUnlock()

	for _, s := range subs {
		s := s
		go func() {
			defer func() {
				if rec := recover(); rec != nil {
					r.log.Warn("subscriber delivery panicked", "subscriber", s.ID(), "recover", rec)
				}
			}()
			s.Deliver(evt)
		}()
	}

	if r.redis != nil {
		go r.publishRedis(evt)
	}
}

func (r *Router) publishRedis(evt tablestate.Event) {
	payload, err := json.Marshal(wireEvent{Channel: evt.Channel, Kind: string(evt.Kind), Payload: evt.Payload})
	if err != nil {
		r.log.Warn("event marshal failed", "err", err)
		return
	}
	if err := r.redis.Publish(context.Background(), r.redisChan, payload).Err(); err != nil {
		r.log.Warn("redis publish failed", "err", err)
	}
}

type wireEvent struct {
	Channel string `json:"channel"`
	Kind    string `json:"kind"`
	Payload any    `json:"payload"`
}
