package popsign

import (
	"github.com/wrenlabs/popsign/logger"
	"github.com/wrenlabs/popsign/metrics"
	"github.com/wrenlabs/popsign/ports"
)

type Option func(*options)

func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(o *options) {
		o.rec = r
	}
}

func WithStore(s ports.Store) Option {
	return func(o *options) {
		o.store = s
	}
}

func WithSessionCodec(c ports.SessionCodec) Option {
	return func(o *options) {
		o.codec = c
	}
}

func WithWindowHost(h ports.WindowHost) Option {
	return func(o *options) {
		o.host = h
	}
}

func WithReplyFeed(f ports.ReplyFeed) Option {
	return func(o *options) {
		o.feed = f
	}
}

func WithIdentityRegistry(r ports.IdentityRegistry) Option {
	return func(o *options) {
		o.registry = r
	}
}

func WithEventPublisher(p ports.EventPublisher) Option {
	return func(o *options) {
		o.publisher = p
	}
}
