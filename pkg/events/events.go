// Package events publishes catalog and user mutations as JSON messages.
package events

import (
	"context"
	"sync"
	"time"
)

const (
	TopicUsers    = "user_events"
	TopicShops    = "shop_events"
	TopicProducts = "product_events"
	TopicTags     = "tag_events"
)

var Topics = []string{TopicUsers, TopicShops, TopicProducts, TopicTags}

type Event struct {
	Type     string    `json:"type"`
	EntityID uint      `json:"entity_id"`
	ActorID  uint      `json:"actor_id,omitempty"`
	At       time.Time `json:"at"`
	Data     any       `json:"data,omitempty"`
}

type Publisher interface {
	Publish(ctx context.Context, topic, key string, ev Event) error
	Close() error
}

type Nop struct{}

func (Nop) Publish(context.Context, string, string, Event) error { return nil }
func (Nop) Close() error                                         { return nil }

type Recorded struct {
	Topic string
	Key   string
	Event Event
}

// Recorder keeps published events in memory; tests use it to assert on side effects.
type Recorder struct {
	mu     sync.Mutex
	events []Recorded
	Err    error
}

func (r *Recorder) Publish(_ context.Context, topic, key string, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.events = append(r.events, Recorded{Topic: topic, Key: key, Event: ev})
	return nil
}

func (r *Recorder) Close() error { return nil }

func (r *Recorder) Events() []Recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Recorded(nil), r.events...)
}

func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Event.Type
	}
	return out
}
