package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/wrenlabs/popsign/core"
	"github.com/wrenlabs/popsign/logger"
	"github.com/wrenlabs/popsign/ports"
)

// Popup chrome used for every exchange.
const (
	popupName   = "popsign-signer"
	popupWidth  = 450
	popupHeight = 700
)

// FallbackKeys is the fixed set of keys the signer application may write a
// reply under when direct window messaging is unavailable or missed.
var FallbackKeys = []string{"popsign:reply", "popsign:response", "wallet:reply"}

// ExchangeState tracks one exchange through its lifecycle.
type ExchangeState int32

const (
	StateIdle ExchangeState = iota
	StatePopupBlocked
	StatePopupAcquired
	StateAwaitingReply
	StateFulfilled
	StateRejected
	StateTimedOut
)

func (s ExchangeState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePopupBlocked:
		return "popup_blocked"
	case StatePopupAcquired:
		return "popup_acquired"
	case StateAwaitingReply:
		return "awaiting_reply"
	case StateFulfilled:
		return "fulfilled"
	case StateRejected:
		return "rejected"
	case StateTimedOut:
		return "timed_out"
	}
	return "unknown"
}

// ProtocolClient runs one request/reply round trip through the popup: it
// encodes the request into the popup's navigation target, listens on the
// window message channel and the fallback feed, enforces the deadline, and
// settles exactly once.
type ProtocolClient struct {
	signerURL string
	popups    *PopupResource
	feed      ports.ReplyFeed
	log       logger.Logger

	busy  atomic.Bool
	state atomic.Int32
}

// NewProtocolClient creates a protocol client for the given signer base URL.
func NewProtocolClient(signerURL string, popups *PopupResource, feed ports.ReplyFeed, log logger.Logger) *ProtocolClient {
	return &ProtocolClient{
		signerURL: signerURL,
		popups:    popups,
		feed:      feed,
		log:       log,
	}
}

// State returns the state of the most recent exchange.
func (c *ProtocolClient) State() ExchangeState {
	return ExchangeState(c.state.Load())
}

func (c *ProtocolClient) setState(s ExchangeState) {
	c.state.Store(int32(s))
}

// buildTarget derives the deterministic navigation target for a request and
// the origin replies must come from.
func (c *ProtocolClient) buildTarget(req *core.Request) (target, origin string, err error) {
	u, err := url.Parse(c.signerURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid signer url: %w", err)
	}

	q := u.Query()
	q.Set("method", req.Method.TransportTag())
	q.Set("app", req.AppName)
	q.Set("chainId", strconv.FormatUint(req.ChainID, 10))
	q.Set("origin", req.Origin)
	q.Set("nonce", req.Nonce)
	q.Set("redirect", "postmessage")
	if req.Payload != nil {
		body, err := json.Marshal(req.Payload)
		if err != nil {
			return "", "", fmt.Errorf("failed to encode payload: %w", err)
		}
		q.Set("payload", base64.RawURLEncoding.EncodeToString(body))
	}
	u.RawQuery = q.Encode()

	return u.String(), u.Scheme + "://" + u.Host, nil
}

type settledReply struct {
	reply *core.Reply
	err   error
}

// Exchange runs a single exchange. Only one exchange may be in flight at a
// time; a second call while one is pending fails fast rather than letting two
// requests race over the shared popup.
func (c *ProtocolClient) Exchange(ctx context.Context, req *core.Request) (*core.Reply, error) {
	if !c.busy.CompareAndSwap(false, true) {
		return nil, core.ErrExchangeInFlight
	}
	defer c.busy.Store(false)

	req.Normalize()
	c.setState(StateIdle)

	target, origin, err := c.buildTarget(req)
	if err != nil {
		return nil, err
	}

	win, err := c.popups.Acquire(ctx, popupName, popupWidth, popupHeight)
	if err != nil {
		c.setState(StatePopupBlocked)
		c.log.Warn("popup acquisition failed", map[string]any{"method": req.Method.String(), "error": err.Error()})
		return nil, err
	}
	c.setState(StatePopupAcquired)

	if err := win.Navigate(target); err != nil {
		if err := c.popups.Navigate(win, target); err != nil {
			c.popups.Release()
			return nil, fmt.Errorf("failed to navigate popup: %w", err)
		}
	}

	entries, cancelFeed, err := c.feed.Subscribe(ctx, FallbackKeys)
	if err != nil {
		c.popups.Release()
		return nil, fmt.Errorf("failed to subscribe fallback feed: %w", err)
	}

	// One-shot settlement gate: the window channel, the fallback feed and
	// the deadline timer race; whichever sets the flag first wins.
	var settled atomic.Bool
	result := make(chan settledReply, 1)
	settle := func(r *core.Reply, err error) {
		if settled.CompareAndSwap(false, true) {
			result <- settledReply{reply: r, err: err}
		}
	}

	quit := make(chan struct{})
	timer := time.NewTimer(req.Timeout)

	go c.consumeWindow(win, origin, req.Method, quit, settle)
	go c.consumeFeed(entries, req.Method, quit, settle)

	c.setState(StateAwaitingReply)
	c.log.Debug("awaiting reply", map[string]any{"method": req.Method.String(), "nonce": req.Nonce})

	var out settledReply
	select {
	case out = <-result:
	case <-timer.C:
		settle(nil, core.ErrTimeout)
		out = <-result
	case <-ctx.Done():
		settle(nil, ctx.Err())
		out = <-result
	}

	// Settlement always tears down both listeners, clears the timer, and
	// releases the popup, regardless of which path fired.
	close(quit)
	cancelFeed()
	timer.Stop()
	c.popups.Release()

	switch {
	case out.err == nil:
		c.setState(StateFulfilled)
	case errors.Is(out.err, core.ErrTimeout):
		c.setState(StateTimedOut)
	default:
		c.setState(StateRejected)
	}

	return out.reply, out.err
}

// consumeWindow reads the cross-window message channel, accepting only events
// from the signer origin posted by the exact window this exchange navigated.
func (c *ProtocolClient) consumeWindow(win ports.Window, origin string, m core.Method, quit <-chan struct{}, settle func(*core.Reply, error)) {
	msgs := win.Messages()
	for {
		select {
		case <-quit:
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			if msg.Origin != origin || msg.Source != win {
				continue
			}
			c.dispatch(msg.Data, m, settle)
		}
	}
}

// consumeFeed reads the fallback feed. Entries under unknown keys or with
// unparseable values are skipped so the window channel stays free to succeed.
func (c *ProtocolClient) consumeFeed(entries <-chan ports.FeedEntry, m core.Method, quit <-chan struct{}, settle func(*core.Reply, error)) {
	known := make(map[string]struct{}, len(FallbackKeys))
	for _, k := range FallbackKeys {
		known[k] = struct{}{}
	}
	for {
		select {
		case <-quit:
			return
		case e, ok := <-entries:
			if !ok {
				return
			}
			if _, ok := known[e.Key]; !ok {
				continue
			}
			c.dispatch(e.Value, m, settle)
		}
	}
}

// dispatch settles on a payload whose type tag matches the expected reply
// shape for the request's method family. Everything else is ignored.
func (c *ProtocolClient) dispatch(raw []byte, m core.Method, settle func(*core.Reply, error)) {
	reply, err := core.DecodeReply(raw)
	if err != nil {
		return
	}
	if !reply.Matches(m) {
		return
	}
	if reply.Type == core.ReplyError {
		settle(nil, classifyPeerError(reply.Error))
		return
	}
	settle(reply, nil)
}
