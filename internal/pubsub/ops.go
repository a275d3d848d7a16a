package pubsub

import "github.com/tmfc/redust/internal/store"

// Subscribe registers sub to channel. It returns nothing; the SUBSCRIBE
// reply's subscription count is computed by the caller.
func (h *Hub) Subscribe(sub *Subscriber, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.channels[channel]
	if !ok {
		subs = make(map[string]*Subscriber)
		h.channels[channel] = subs
	}
	subs[sub.ID] = sub
}

// Unsubscribe removes sub from channel.
func (h *Hub) Unsubscribe(sub *Subscriber, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.channels[channel]; ok {
		delete(subs, sub.ID)
		if len(subs) == 0 {
			delete(h.channels, channel)
		}
	}
}

// PSubscribe registers sub to pattern.
func (h *Hub) PSubscribe(sub *Subscriber, pattern string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.patterns[pattern]
	if !ok {
		subs = make(map[string]*Subscriber)
		h.patterns[pattern] = subs
	}
	subs[sub.ID] = sub
}

// PUnsubscribe removes sub from pattern.
func (h *Hub) PUnsubscribe(sub *Subscriber, pattern string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.patterns[pattern]; ok {
		delete(subs, sub.ID)
		if len(subs) == 0 {
			delete(h.patterns, pattern)
		}
	}
}

// SSubscribe registers sub to a shard channel (SSUBSCRIBE's own namespace;
// with no cluster, behaves identically to Subscribe but keeps its events
// and introspection distinct per spec.md §4.F/§6).
func (h *Hub) SSubscribe(sub *Subscriber, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.shardChannels[channel]
	if !ok {
		subs = make(map[string]*Subscriber)
		h.shardChannels[channel] = subs
	}
	subs[sub.ID] = sub
}

// SUnsubscribe removes sub from a shard channel.
func (h *Hub) SUnsubscribe(sub *Subscriber, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.shardChannels[channel]; ok {
		delete(subs, sub.ID)
		if len(subs) == 0 {
			delete(h.shardChannels, channel)
		}
	}
}

// SPublish delivers payload to a shard channel's subscribers only. The
// returned count is the number of matched subscribers, not the number
// actually enqueued: a slow subscriber whose mailbox is full still counts
// as delivered (spec.md §4.H) even though its message is dropped.
func (h *Hub) SPublish(channel string, payload []byte) int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var delivered int64
	if subs, ok := h.shardChannels[channel]; ok {
		for _, sub := range subs {
			deliver(sub.Inbox, Message{Channel: channel, Payload: payload, Shard: true})
			delivered++
		}
	}
	return delivered
}

// ShardChannels lists shard channels with at least one subscriber.
func (h *Hub) ShardChannels(pattern string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []string
	for ch := range h.shardChannels {
		if pattern == "" || globMatch(pattern, ch) {
			out = append(out, ch)
		}
	}
	return out
}

// ShardNumSub reports the subscriber count for each requested shard channel.
func (h *Hub) ShardNumSub(channels []string) []int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]int, len(channels))
	for i, ch := range channels {
		out[i] = len(h.shardChannels[ch])
	}
	return out
}

// UnsubscribeAll removes sub from every channel, pattern, and shard channel
// it holds, called when a connection closes.
func (h *Hub) UnsubscribeAll(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch, subs := range h.channels {
		delete(subs, sub.ID)
		if len(subs) == 0 {
			delete(h.channels, ch)
		}
	}
	for pat, subs := range h.patterns {
		delete(subs, sub.ID)
		if len(subs) == 0 {
			delete(h.patterns, pat)
		}
	}
	for ch, subs := range h.shardChannels {
		delete(subs, sub.ID)
		if len(subs) == 0 {
			delete(h.shardChannels, ch)
		}
	}
}

// Publish delivers payload to every exact-channel and pattern subscriber,
// returning the number of matched subscribers. A subscriber whose mailbox
// is full still counts toward the return value (spec.md §4.H: the slow-
// subscriber drop decision happens after counting, not before) — only the
// non-blocking enqueue itself is skipped rather than blocking the publisher.
func (h *Hub) Publish(channel string, payload []byte) int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var delivered int64
	if subs, ok := h.channels[channel]; ok {
		for _, sub := range subs {
			deliver(sub.Inbox, Message{Channel: channel, Payload: payload})
			delivered++
		}
	}
	for pattern, subs := range h.patterns {
		if !globMatch(pattern, channel) {
			continue
		}
		for _, sub := range subs {
			deliver(sub.Inbox, Message{Pattern: pattern, Channel: channel, Payload: payload})
			delivered++
		}
	}
	return delivered
}

func deliver(inbox chan Message, msg Message) bool {
	select {
	case inbox <- msg:
		return true
	default:
		return false
	}
}

// Channels lists distinct channel names with at least one subscriber,
// optionally filtered by glob pattern (PUBSUB CHANNELS [pattern]).
func (h *Hub) Channels(pattern string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []string
	for ch := range h.channels {
		if pattern == "" || globMatch(pattern, ch) {
			out = append(out, ch)
		}
	}
	return out
}

// NumSub reports the subscriber count for each requested channel, in order
// (PUBSUB NUMSUB).
func (h *Hub) NumSub(channels []string) []int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]int, len(channels))
	for i, ch := range channels {
		out[i] = len(h.channels[ch])
	}
	return out
}

// NumPat reports the number of distinct patterns with at least one
// subscriber (PUBSUB NUMPAT).
func (h *Hub) NumPat() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.patterns)
}

// globMatch reuses the keyspace glob grammar (spec.md §4.C/§4.F share one
// grammar) via the exported wrapper in internal/store.
func globMatch(pattern, s string) bool {
	return store.GlobMatch(pattern, s)
}
