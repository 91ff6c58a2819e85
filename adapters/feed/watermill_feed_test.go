package feed

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wrenlabs/popsign/ports"
)

func newGoChannelFeed(t *testing.T) (*gochannel.GoChannel, ports.ReplyFeed) {
	t.Helper()
	pubsub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubsub.Close() })
	return pubsub, NewWatermillFeed(pubsub)
}

func publish(t *testing.T, pubsub *gochannel.GoChannel, topic string, payload string) {
	t.Helper()
	require.NoError(t, pubsub.Publish(topic, message.NewMessage(watermill.NewUUID(), []byte(payload))))
}

func collect(entries <-chan ports.FeedEntry, n int, timeout time.Duration) []ports.FeedEntry {
	var out []ports.FeedEntry
	deadline := time.After(timeout)
	for len(out) < n {
		select {
		case e, ok := <-entries:
			if !ok {
				return out
			}
			out = append(out, e)
		case <-deadline:
			return out
		}
	}
	return out
}

func TestFeedDeliversKeyedEntries(t *testing.T) {
	pubsub, feed := newGoChannelFeed(t)

	entries, cancel, err := feed.Subscribe(context.Background(), []string{"reply:a", "reply:b"})
	require.NoError(t, err)
	defer cancel()

	publish(t, pubsub, "reply:a", `{"type":"auth"}`)
	publish(t, pubsub, "reply:b", `{"type":"tx"}`)

	got := collect(entries, 2, time.Second)
	require.Len(t, got, 2)

	byKey := map[string]string{}
	for _, e := range got {
		byKey[e.Key] = string(e.Value)
	}
	assert.Equal(t, `{"type":"auth"}`, byKey["reply:a"])
	assert.Equal(t, `{"type":"tx"}`, byKey["reply:b"])
}

func TestFeedCancelStopsDelivery(t *testing.T) {
	pubsub, feed := newGoChannelFeed(t)

	entries, cancel, err := feed.Subscribe(context.Background(), []string{"reply:a"})
	require.NoError(t, err)

	cancel()

	// The merged stream closes once every per-key subscription winds down.
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-entries:
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)

	// Publishing after cancellation must not block.
	publish(t, pubsub, "reply:a", "late")
}

func TestFeedParentContextCancellation(t *testing.T) {
	_, feed := newGoChannelFeed(t)

	ctx, cancelCtx := context.WithCancel(context.Background())
	entries, cancel, err := feed.Subscribe(ctx, []string{"reply:a"})
	require.NoError(t, err)
	defer cancel()

	cancelCtx()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-entries:
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}
