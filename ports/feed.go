package ports

import "context"

// FeedEntry is one write observed on the fallback delivery channel.
type FeedEntry struct {
	Key   string
	Value []byte
}

// ReplyFeed is the storage-event fallback delivery path: a subscription over
// the small fixed set of reply keys the signer application may write to when
// direct window messaging is unavailable or missed.
type ReplyFeed interface {
	// Subscribe starts delivering entries for the given keys. The returned
	// cancel function tears the subscription down; it must be safe to call
	// more than once.
	Subscribe(ctx context.Context, keys []string) (<-chan FeedEntry, func(), error)
}
