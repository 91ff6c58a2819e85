// Package popsign lets an application delegate key-holding operations
// (sign-in authentication, message signing, transaction submission) to a
// separately operated signer application reached through a single reusable
// popup window, and get back a cryptographically verified result without a
// backend of its own.
package popsign

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/wrenlabs/popsign/adapters/feed"
	"github.com/wrenlabs/popsign/adapters/store"
	"github.com/wrenlabs/popsign/adapters/tokenizer"
	"github.com/wrenlabs/popsign/adapters/window"
	"github.com/wrenlabs/popsign/core"
	"github.com/wrenlabs/popsign/logger"
	"github.com/wrenlabs/popsign/metrics"
	"github.com/wrenlabs/popsign/ports"
	"github.com/wrenlabs/popsign/service"
)

// DefaultStoragePrefix scopes store keys when no prefix is configured.
const DefaultStoragePrefix = "popsign:"

// Config is the recognized configuration surface.
type Config struct {
	// AppName is the requesting application's display name.
	AppName string
	// ChainID is the single chain this instance targets.
	ChainID uint64
	// SignerURL is the signer application's base URL.
	SignerURL string
	// Origin is the requesting origin transmitted with every request.
	Origin string
	// Debug enables debug logging.
	Debug bool
	// SessionTTL is the session time-to-live. Defaults to 24 hours.
	SessionTTL time.Duration
	// ExchangeTimeout bounds each popup exchange. Defaults to 2 minutes.
	ExchangeTimeout time.Duration
	// StoragePrefix namespaces the session store.
	StoragePrefix string
	// MessageTemplate overrides the built-in sign-in message.
	MessageTemplate service.MessageTemplate
}

// Client is the public entry point.
type Client struct {
	provider *service.Provider
	popups   *service.PopupResource
}

// New creates a client. Collaborators not supplied through options get
// in-process defaults: a memory store, a random-secret session codec, the
// system-browser window host and an in-process fallback feed.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.AppName == "" {
		return nil, fmt.Errorf("popsign: AppName is required")
	}
	if cfg.ChainID == 0 {
		return nil, fmt.Errorf("popsign: ChainID is required")
	}
	if cfg.SignerURL == "" {
		return nil, fmt.Errorf("popsign: SignerURL is required")
	}
	if cfg.StoragePrefix == "" {
		cfg.StoragePrefix = DefaultStoragePrefix
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	log := o.log
	if log == nil {
		if cfg.Debug {
			log = logger.NewZapLogger(true)
		} else {
			log = logger.NoopLogger{}
		}
	}
	rec := o.rec
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}

	sessionStore := o.store
	if sessionStore == nil {
		sessionStore = store.NewMemoryStore(cfg.StoragePrefix)
	}
	codec := o.codec
	if codec == nil {
		secret, err := tokenizer.NewRandomSecret()
		if err != nil {
			return nil, err
		}
		codec = tokenizer.NewJWTCodec(secret)
	}

	host := o.host
	if host == nil {
		host = window.NewHost(window.Options{Log: log})
	}
	replyFeed := o.feed
	if replyFeed == nil {
		pubsub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
		replyFeed = feed.NewWatermillFeed(pubsub)
	}

	popups := service.NewPopupResource(host)
	client := service.NewProtocolClient(cfg.SignerURL, popups, replyFeed, log)
	sessions := service.NewSessions(sessionStore, codec, cfg.SessionTTL)

	provider := service.NewProvider(
		service.ProviderConfig{
			AppName:         cfg.AppName,
			ChainID:         cfg.ChainID,
			Origin:          cfg.Origin,
			ExchangeTimeout: cfg.ExchangeTimeout,
			Template:        cfg.MessageTemplate,
		},
		sessions,
		client,
		o.registry,
		o.publisher,
		log,
		rec,
	)

	return &Client{provider: provider, popups: popups}, nil
}

// Request dispatches a provider call by RPC method name.
func (c *Client) Request(ctx context.Context, method string, params ...any) (any, error) {
	return c.provider.Request(ctx, method, params)
}

// Connect runs the request-accounts flow and returns the account list.
func (c *Client) Connect(ctx context.Context) ([]string, error) {
	result, err := c.Request(ctx, core.RPCRequestAccounts)
	if err != nil {
		return nil, err
	}
	accounts, _ := result.([]string)
	return accounts, nil
}

// Accounts returns the current account list without opening a popup.
func (c *Client) Accounts(ctx context.Context) []string {
	result, err := c.Request(ctx, core.RPCAccounts)
	if err != nil {
		return []string{}
	}
	accounts, _ := result.([]string)
	return accounts
}

// PersonalSign signs a message with the session account.
func (c *Client) PersonalSign(ctx context.Context, message string) (string, error) {
	accounts := c.Accounts(ctx)
	if len(accounts) == 0 {
		return "", toErr(core.ErrUnauthorized)
	}
	result, err := c.Request(ctx, core.RPCPersonalSign, message, accounts[0])
	if err != nil {
		return "", err
	}
	sig, _ := result.(string)
	return sig, nil
}

// SendTransaction submits a transaction object and returns its hash.
func (c *Client) SendTransaction(ctx context.Context, tx any) (string, error) {
	result, err := c.Request(ctx, core.RPCSendTransaction, tx)
	if err != nil {
		return "", err
	}
	hash, _ := result.(string)
	return hash, nil
}

// Disconnect clears the session and notifies listeners.
func (c *Client) Disconnect(ctx context.Context) error {
	return c.provider.Disconnect(ctx)
}

// On registers a lifecycle listener.
func (c *Client) On(event string, fn service.Listener) service.Subscription {
	return c.provider.On(event, fn)
}

// Once registers a listener removed after its first delivery.
func (c *Client) Once(event string, fn service.Listener) service.Subscription {
	return c.provider.Once(event, fn)
}

// RemoveListener unregisters a listener.
func (c *Client) RemoveListener(sub service.Subscription) {
	c.provider.RemoveListener(sub)
}

// Close tears down the popup resource. Safe to call more than once.
func (c *Client) Close() {
	c.popups.Close()
}

func toErr(err error) *core.ProviderError {
	return core.NewProviderError(core.CodeUnauthorized, err.Error())
}

type options struct {
	log       logger.Logger
	rec       metrics.Recorder
	store     ports.Store
	codec     ports.SessionCodec
	host      ports.WindowHost
	feed      ports.ReplyFeed
	registry  ports.IdentityRegistry
	publisher ports.EventPublisher
}
