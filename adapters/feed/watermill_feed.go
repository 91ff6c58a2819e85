package feed

import (
	"context"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/wrenlabs/popsign/ports"
)

// WatermillFeed implements the ReplyFeed interface over any Watermill
// subscriber. Each fallback key is a topic: a signer backend that missed the
// window message channel writes the reply there instead. The in-process
// gochannel subscriber serves single-process hosts; redisstream serves
// signers delivering out-of-band.
type WatermillFeed struct {
	subscriber message.Subscriber
}

// NewWatermillFeed creates a reply feed over the given subscriber.
func NewWatermillFeed(subscriber message.Subscriber) ports.ReplyFeed {
	return &WatermillFeed{subscriber: subscriber}
}

// Subscribe starts one subscription per key and merges them into a single
// entry stream. The returned cancel tears all of them down.
func (f *WatermillFeed) Subscribe(ctx context.Context, keys []string) (<-chan ports.FeedEntry, func(), error) {
	ctx, cancel := context.WithCancel(ctx)

	out := make(chan ports.FeedEntry)
	var wg sync.WaitGroup

	for _, key := range keys {
		msgs, err := f.subscriber.Subscribe(ctx, key)
		if err != nil {
			cancel()
			return nil, nil, err
		}

		wg.Add(1)
		go func(key string, msgs <-chan *message.Message) {
			defer wg.Done()
			for msg := range msgs {
				select {
				case out <- ports.FeedEntry{Key: key, Value: msg.Payload}:
				case <-ctx.Done():
					msg.Ack()
					return
				}
				msg.Ack()
			}
		}(key, msgs)
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	return out, func() { cancel() }, nil
}
