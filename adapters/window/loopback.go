// Package window provides the default WindowHost: the signer application is
// opened in the system browser and its reply comes back as a cross-origin
// POST to a loopback listener, which stands in for the window message
// channel. Hosts embedding a real webview supply their own WindowHost
// instead.
package window

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wrenlabs/popsign/logger"
	"github.com/wrenlabs/popsign/ports"
)

const maxReplyBytes = 64 << 10

// Options configure the loopback host.
type Options struct {
	// Addr is the loopback listen address. Defaults to 127.0.0.1:0.
	Addr string
	// Screen is the reported top-level geometry. Zero means unknown, in
	// which case callers fall back to CurrentBounds.
	Screen ports.Rect
	// Opener launches the browser. Defaults to the platform opener.
	Opener func(url string) error
	Log    logger.Logger
}

// Host is the loopback WindowHost.
type Host struct {
	opts Options

	mu      sync.Mutex
	overlay bool
}

// NewHost creates a loopback window host.
func NewHost(opts Options) *Host {
	if opts.Addr == "" {
		opts.Addr = "127.0.0.1:0"
	}
	if opts.Opener == nil {
		opts.Opener = openBrowser
	}
	if opts.Log == nil {
		opts.Log = logger.NoopLogger{}
	}
	return &Host{opts: opts}
}

// Open starts a reply listener for a new window. A bind failure means the
// environment refuses window creation, reported as blocked (nil, nil).
func (h *Host) Open(ctx context.Context, name string, features ports.Features) (ports.Window, error) {
	ln, err := net.Listen("tcp", h.opts.Addr)
	if err != nil {
		h.opts.Log.Warn("loopback listener refused", map[string]any{"error": err.Error()})
		return nil, nil
	}

	w := &loopbackWindow{
		host:     h,
		name:     name,
		features: features,
		msgs:     make(chan ports.WindowMessage, 4),
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.POST("/reply", w.handleReply)
	router.OPTIONS("/reply", func(c *gin.Context) {
		allowCORS(c)
		c.Status(http.StatusNoContent)
	})

	w.server = &http.Server{Handler: router}
	w.addr = ln.Addr().String()
	go func() {
		_ = w.server.Serve(ln)
	}()

	return w, nil
}

// Navigate is the explicit fallback: reopen the target through the platform
// opener directly.
func (h *Host) Navigate(win ports.Window, target string) error {
	w, ok := win.(*loopbackWindow)
	if !ok || w.Closed() {
		return fmt.Errorf("window is not open")
	}
	return openBrowser(w.withReplyTo(target))
}

// OuterBounds reports the configured screen geometry.
func (h *Host) OuterBounds() (ports.Rect, bool) {
	if h.opts.Screen.Width == 0 || h.opts.Screen.Height == 0 {
		return ports.Rect{}, false
	}
	return h.opts.Screen, true
}

// CurrentBounds reports a conventional default viewport.
func (h *Host) CurrentBounds() ports.Rect {
	return ports.Rect{Width: 1280, Height: 800}
}

// ShowOverlay marks the overlay present. Rendering is up to the embedding
// UI binding; the host only tracks the single-instance contract.
func (h *Host) ShowOverlay() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.overlay = true
}

// HideOverlay removes the overlay if present.
func (h *Host) HideOverlay() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.overlay = false
}

// OverlayVisible reports whether the overlay is attached.
func (h *Host) OverlayVisible() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.overlay
}

type loopbackWindow struct {
	host     *Host
	name     string
	features ports.Features
	addr     string
	server   *http.Server

	mu     sync.Mutex
	closed bool
	msgs   chan ports.WindowMessage
}

// ReplyURL is where the signer page posts its reply for this window.
func (w *loopbackWindow) ReplyURL() string {
	return "http://" + w.addr + "/reply"
}

// Navigate opens the target in the system browser with the loopback reply
// address appended, so the signer page knows where to post its reply.
func (w *loopbackWindow) Navigate(target string) error {
	if w.Closed() {
		return fmt.Errorf("window is closed")
	}
	return w.host.opts.Opener(w.withReplyTo(target))
}

// withReplyTo appends the reply_to parameter. An unparseable target is
// passed through untouched.
func (w *loopbackWindow) withReplyTo(target string) string {
	u, err := url.Parse(target)
	if err != nil {
		return target
	}
	q := u.Query()
	q.Set("reply_to", w.ReplyURL())
	u.RawQuery = q.Encode()
	return u.String()
}

func (w *loopbackWindow) Messages() <-chan ports.WindowMessage {
	return w.msgs
}

func (w *loopbackWindow) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

func (w *loopbackWindow) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = w.server.Shutdown(ctx)
	close(w.msgs)
}

func (w *loopbackWindow) handleReply(c *gin.Context) {
	allowCORS(c)

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxReplyBytes))
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	msg := ports.WindowMessage{
		Origin: c.GetHeader("Origin"),
		Source: w,
		Data:   body,
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		c.Status(http.StatusGone)
		return
	}
	select {
	case w.msgs <- msg:
		c.String(http.StatusOK, "You can close this window.")
	default:
		c.Status(http.StatusTooManyRequests)
	}
}

func allowCORS(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Methods", "POST, OPTIONS")
	c.Header("Access-Control-Allow-Headers", "Content-Type")
}

func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}
