package ports

import "context"

// Rect is a window geometry in screen coordinates.
type Rect struct {
	Left   int
	Top    int
	Width  int
	Height int
}

// Features are the chrome flags and geometry a popup is opened with.
type Features struct {
	Rect      Rect
	Toolbar   bool
	Menubar   bool
	Scrollbar bool
	Resizable bool
}

// WindowMessage is one event on a window's message channel. Origin is the
// origin of the document that posted it and Source the window it came from;
// both are checked against the exchange's own popup before the payload is
// trusted.
type WindowMessage struct {
	Origin string
	Source Window
	Data   []byte
}

// Window is one live popup window.
type Window interface {
	// Navigate points the window at a target by direct location assignment.
	Navigate(url string) error
	// Messages delivers cross-window messages posted back by the document
	// loaded in this window. The channel closes when the window closes.
	Messages() <-chan WindowMessage
	// Closed reports whether the window has been closed.
	Closed() bool
	// Close closes the window. Closing an already closed window is a no-op.
	Close()
}

// WindowHost provides the browser window primitives a popup resource runs on.
// It is an owned collaborator passed by reference, never a hidden global.
type WindowHost interface {
	// Open creates a new blank popup. A nil window with a nil error means
	// window creation was blocked (for example, no user gesture).
	Open(ctx context.Context, name string, features Features) (Window, error)
	// Navigate is the explicit-navigation fallback used when direct
	// assignment on the window fails.
	Navigate(w Window, url string) error
	// OuterBounds returns the top-level window's outer geometry. ok is false
	// when the top frame is inaccessible; callers then fall back to
	// CurrentBounds.
	OuterBounds() (Rect, bool)
	// CurrentBounds returns the current window's geometry.
	CurrentBounds() Rect
	// ShowOverlay lazily installs the full-viewport dimming overlay in the
	// host document. Installing an already present overlay is a no-op.
	ShowOverlay()
	// HideOverlay removes the overlay from its parent if attached.
	HideOverlay()
}
