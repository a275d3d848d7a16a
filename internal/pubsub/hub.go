// Package pubsub implements the channel and pattern registries behind
// SUBSCRIBE/PSUBSCRIBE/PUBLISH (spec.md §4.F): a hub tracks which
// subscribers want which channels and patterns, and delivers published
// messages to each subscriber's bounded, non-blocking queue — a slow
// subscriber drops messages rather than stalling the publisher, the way the
// teacher's synchronous per-client fan-out in handler_pubsub.go never had to
// reason about but spec.md §4.F makes explicit.
package pubsub

import "sync"

// QueueSize is the per-subscriber mailbox capacity. A publish that finds a
// subscriber's mailbox full drops the message for that subscriber rather
// than blocking (spec.md §4.F "slow subscriber" semantics).
const QueueSize = 1024

// Message is one delivered pub/sub event, shaped to become a "pmessage"
// RESP push (Pattern != "") or a plain "message" push otherwise — shard
// deliveries (Shard) use the "message" event name too, per
// original_source/tests/pubsub.rs.
type Message struct {
	Pattern string
	Channel string
	Payload []byte
	Shard   bool
}

// Subscriber is a registered mailbox. ID must be stable and unique for the
// lifetime of one connection (the connection's client ID works well).
type Subscriber struct {
	ID    string
	Inbox chan Message
}

// NewSubscriber allocates a subscriber with a fresh bounded mailbox.
func NewSubscriber(id string) *Subscriber {
	return &Subscriber{ID: id, Inbox: make(chan Message, QueueSize)}
}

// Hub owns the channel and pattern registries. All methods are safe for
// concurrent use.
type Hub struct {
	mu            sync.RWMutex
	channels      map[string]map[string]*Subscriber // channel -> subscriber ID -> subscriber
	patterns      map[string]map[string]*Subscriber // pattern -> subscriber ID -> subscriber
	shardChannels map[string]map[string]*Subscriber // SSUBSCRIBE's own namespace, spec.md §4.F
}

// New creates an empty Hub.
func New() *Hub {
	return &Hub{
		channels:      make(map[string]map[string]*Subscriber),
		patterns:      make(map[string]map[string]*Subscriber),
		shardChannels: make(map[string]map[string]*Subscriber),
	}
}
