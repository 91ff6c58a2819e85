package service

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/wrenlabs/popsign/core"
	"github.com/wrenlabs/popsign/ports"
)

// PopupResource owns the single shared popup window and its overlay. At most
// one live window exists per resource; a new request reuses the existing
// window when it is still open.
type PopupResource struct {
	host ports.WindowHost

	mu  sync.Mutex
	win ports.Window

	releasing atomic.Bool
	teardown  sync.Once
}

// NewPopupResource creates a popup resource over the given host.
func NewPopupResource(host ports.WindowHost) *PopupResource {
	return &PopupResource{host: host}
}

// centered computes the popup geometry centered in the outer bounds.
func centered(outer ports.Rect, width, height int) ports.Rect {
	return ports.Rect{
		Left:   outer.Left + (outer.Width-width)/2,
		Top:    outer.Top + (outer.Height-height)/2,
		Width:  width,
		Height: height,
	}
}

// Acquire returns the live popup window, opening a new one if needed. It
// returns core.ErrPopupBlocked when window creation is refused; that failure
// is terminal for the caller, not retried here.
func (r *PopupResource) Acquire(ctx context.Context, name string, width, height int) (ports.Window, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.win != nil && !r.win.Closed() {
		return r.win, nil
	}

	outer, ok := r.host.OuterBounds()
	if !ok {
		outer = r.host.CurrentBounds()
	}

	win, err := r.host.Open(ctx, name, ports.Features{
		Rect:      centered(outer, width, height),
		Toolbar:   false,
		Menubar:   false,
		Scrollbar: true,
		Resizable: true,
	})
	if err != nil {
		return nil, err
	}
	if win == nil {
		return nil, core.ErrPopupBlocked
	}

	r.win = win
	r.host.ShowOverlay()
	return win, nil
}

// Navigate is the explicit-navigation fallback for windows whose direct
// location assignment failed.
func (r *PopupResource) Navigate(win ports.Window, url string) error {
	return r.host.Navigate(win, url)
}

// Window returns the current window, or nil when none is open.
func (r *PopupResource) Window() ports.Window {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.win
}

// Release closes the popup and removes the overlay. It is idempotent and
// reentrancy-guarded: a call that arrives while a release is in progress
// returns without running the teardown a second time.
func (r *PopupResource) Release() {
	if !r.releasing.CompareAndSwap(false, true) {
		return
	}
	defer r.releasing.Store(false)

	r.mu.Lock()
	win := r.win
	r.win = nil
	r.mu.Unlock()

	if win != nil && !win.Closed() {
		win.Close()
	}
	r.host.HideOverlay()
}

// Close is the page-teardown hook: it performs the same cleanup as Release
// exactly once, regardless of other call sites.
func (r *PopupResource) Close() {
	r.teardown.Do(r.Release)
}
