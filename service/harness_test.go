package service

import (
	"context"
	"crypto/ecdsa"
	"encoding/base64"
	"encoding/json"
	"net/url"
	"sync"
	"testing"
	"time"

	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/wrenlabs/popsign/core"
	"github.com/wrenlabs/popsign/internal/eth"
	"github.com/wrenlabs/popsign/logger"
	"github.com/wrenlabs/popsign/ports"
)

const (
	testSignerURL    = "https://signer.test/popup"
	testSignerOrigin = "https://signer.test"
)

type fakeWindow struct {
	mu        sync.Mutex
	closed    bool
	navigated []string
	navErr    error
	msgs      chan ports.WindowMessage
}

func newFakeWindow() *fakeWindow {
	return &fakeWindow{msgs: make(chan ports.WindowMessage, 8)}
}

func (w *fakeWindow) Navigate(u string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.navErr != nil {
		return w.navErr
	}
	w.navigated = append(w.navigated, u)
	return nil
}

func (w *fakeWindow) Messages() <-chan ports.WindowMessage { return w.msgs }

func (w *fakeWindow) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

func (w *fakeWindow) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	close(w.msgs)
}

func (w *fakeWindow) lastNavigated() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.navigated) == 0 {
		return ""
	}
	return w.navigated[len(w.navigated)-1]
}

// post delivers a window message, pretending it came from src at origin.
func (w *fakeWindow) post(origin string, src ports.Window, data []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.msgs <- ports.WindowMessage{Origin: origin, Source: src, Data: data}
}

type fakeHost struct {
	mu          sync.Mutex
	blocked     bool
	opened      int
	features    ports.Features
	win         *fakeWindow
	overlay     bool
	outer       ports.Rect
	outerOK     bool
	hostNavErrs bool
	hostNavs    []string
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		outer:   ports.Rect{Left: 0, Top: 0, Width: 1920, Height: 1080},
		outerOK: true,
	}
}

func (h *fakeHost) Open(ctx context.Context, name string, features ports.Features) (ports.Window, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.blocked {
		return nil, nil
	}
	h.opened++
	h.features = features
	h.win = newFakeWindow()
	return h.win, nil
}

func (h *fakeHost) Navigate(w ports.Window, u string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.hostNavErrs {
		return context.DeadlineExceeded
	}
	h.hostNavs = append(h.hostNavs, u)
	return nil
}

func (h *fakeHost) OuterBounds() (ports.Rect, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.outer, h.outerOK
}

func (h *fakeHost) CurrentBounds() ports.Rect {
	return ports.Rect{Width: 1280, Height: 800}
}

func (h *fakeHost) ShowOverlay() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.overlay = true
}

func (h *fakeHost) HideOverlay() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.overlay = false
}

func (h *fakeHost) window() *fakeWindow {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.win
}

func (h *fakeHost) overlayVisible() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.overlay
}

// fakeFeed is a hand-driven ReplyFeed.
type fakeFeed struct {
	mu      sync.Mutex
	entries chan ports.FeedEntry
	cancels int
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{entries: make(chan ports.FeedEntry, 8)}
}

func (f *fakeFeed) Subscribe(ctx context.Context, keys []string) (<-chan ports.FeedEntry, func(), error) {
	return f.entries, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.cancels++
	}, nil
}

func (f *fakeFeed) write(key string, value []byte) {
	f.entries <- ports.FeedEntry{Key: key, Value: value}
}

func (f *fakeFeed) cancelCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancels
}

func newTestClient(t *testing.T) (*ProtocolClient, *fakeHost, *fakeFeed) {
	t.Helper()
	host := newFakeHost()
	feed := newFakeFeed()
	popups := NewPopupResource(host)
	client := NewProtocolClient(testSignerURL, popups, feed, logger.NoopLogger{})
	return client, host, feed
}

// waitForNavigation blocks until the host has an open window that has been
// pointed at a target, and returns the window and the parsed target.
func waitForNavigation(t *testing.T, host *fakeHost) (*fakeWindow, *url.URL) {
	t.Helper()
	var win *fakeWindow
	require.Eventually(t, func() bool {
		win = host.window()
		return win != nil && win.lastNavigated() != ""
	}, time.Second, time.Millisecond)

	target, err := url.Parse(win.lastNavigated())
	require.NoError(t, err)
	return win, target
}

// testKey is a throwaway signer identity.
type testKey struct {
	key     *ecdsa.PrivateKey
	address string
}

func newTestKey(t *testing.T) testKey {
	t.Helper()
	key, err := gethcrypto.GenerateKey()
	require.NoError(t, err)
	return testKey{
		key:     key,
		address: gethcrypto.PubkeyToAddress(key.PublicKey).Hex(),
	}
}

func (k testKey) sign(t *testing.T, message string) string {
	t.Helper()
	sig, err := eth.SignPersonalMessage(message, k.key)
	require.NoError(t, err)
	return sig
}

// authReply builds an authentication reply for a navigated target, signing
// the message carried in the target's payload parameter.
func authReply(t *testing.T, k testKey, target *url.URL, chainID uint64) []byte {
	t.Helper()
	message := payloadMessage(t, target)
	raw, err := json.Marshal(core.Reply{
		Type:      core.ReplyAuth,
		OK:        true,
		Address:   k.address,
		Signature: k.sign(t, message),
		Message:   message,
		Nonce:     target.Query().Get("nonce"),
		ChainID:   chainID,
	})
	require.NoError(t, err)
	return raw
}

func payloadMessage(t *testing.T, target *url.URL) string {
	t.Helper()
	encoded := target.Query().Get("payload")
	require.NotEmpty(t, encoded)
	decoded, err := base64.RawURLEncoding.DecodeString(encoded)
	require.NoError(t, err)
	var payload map[string]string
	require.NoError(t, json.Unmarshal(decoded, &payload))
	return payload["message"]
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}
