package pubsub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribeAndPublish(t *testing.T) {
	h := New()
	sub := NewSubscriber("client-1")
	h.Subscribe(sub, "news")

	delivered := h.Publish("news", []byte("hello"))
	assert.EqualValues(t, 1, delivered)

	msg := <-sub.Inbox
	assert.Equal(t, "news", msg.Channel)
	assert.Equal(t, "hello", string(msg.Payload))
	assert.Empty(t, msg.Pattern)
}

func TestPatternSubscribe(t *testing.T) {
	h := New()
	sub := NewSubscriber("client-1")
	h.PSubscribe(sub, "news.*")

	delivered := h.Publish("news.sports", []byte("goal"))
	assert.EqualValues(t, 1, delivered)

	msg := <-sub.Inbox
	assert.Equal(t, "news.*", msg.Pattern)
	assert.Equal(t, "news.sports", msg.Channel)
}

func TestSlowSubscriberDropsWithoutBlocking(t *testing.T) {
	h := New()
	sub := NewSubscriber("slow")
	h.Subscribe(sub, "firehose")

	for i := 0; i < QueueSize; i++ {
		h.Publish("firehose", []byte("x"))
	}
	// Mailbox is now full; one more publish must not block. The matched
	// subscriber still counts toward the returned total (spec.md §4.H: the
	// drop decision happens after counting), even though its message is
	// discarded rather than enqueued.
	delivered := h.Publish("firehose", []byte("final"))
	assert.EqualValues(t, 1, delivered)
	assert.Len(t, sub.Inbox, QueueSize)

	// Subscriber remains registered despite the drop.
	assert.Equal(t, []string{"firehose"}, h.Channels(""))
}

func TestUnsubscribeAllRemovesFromEveryRegistry(t *testing.T) {
	h := New()
	sub := NewSubscriber("c1")
	h.Subscribe(sub, "a")
	h.PSubscribe(sub, "b.*")
	h.SSubscribe(sub, "shard-a")

	h.UnsubscribeAll(sub)

	assert.Empty(t, h.Channels(""))
	assert.Equal(t, 0, h.NumPat())
	assert.Empty(t, h.ShardChannels(""))
}

func TestNumSubAndChannels(t *testing.T) {
	h := New()
	a := NewSubscriber("a")
	b := NewSubscriber("b")
	h.Subscribe(a, "room1")
	h.Subscribe(b, "room1")
	h.Subscribe(a, "room2")

	require.ElementsMatch(t, []string{"room1", "room2"}, h.Channels(""))
	counts := h.NumSub([]string{"room1", "room2", "missing"})
	assert.Equal(t, []int{2, 1, 0}, counts)
}
