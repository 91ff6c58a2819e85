package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wrenlabs/popsign/core"
	"github.com/wrenlabs/popsign/ports"
)

func TestPopupAcquireOpensCenteredWindow(t *testing.T) {
	host := newFakeHost()
	host.outer = ports.Rect{Left: 100, Top: 50, Width: 1000, Height: 900}
	popups := NewPopupResource(host)

	win, err := popups.Acquire(context.Background(), "signer", 400, 600)
	require.NoError(t, err)
	require.NotNil(t, win)
	assert.Equal(t, 1, host.opened)
	assert.True(t, host.overlayVisible())
	assert.Equal(t, ports.Rect{Left: 400, Top: 200, Width: 400, Height: 600}, host.features.Rect)
	assert.False(t, host.features.Toolbar)
	assert.True(t, host.features.Resizable)
}

func TestPopupAcquireReusesOpenWindow(t *testing.T) {
	host := newFakeHost()
	popups := NewPopupResource(host)

	first, err := popups.Acquire(context.Background(), "signer", 400, 600)
	require.NoError(t, err)

	second, err := popups.Acquire(context.Background(), "signer", 400, 600)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, host.opened)
}

func TestPopupAcquireReopensAfterClose(t *testing.T) {
	host := newFakeHost()
	popups := NewPopupResource(host)

	first, err := popups.Acquire(context.Background(), "signer", 400, 600)
	require.NoError(t, err)
	first.Close()

	second, err := popups.Acquire(context.Background(), "signer", 400, 600)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, 2, host.opened)
}

func TestPopupAcquireBlocked(t *testing.T) {
	host := newFakeHost()
	host.blocked = true
	popups := NewPopupResource(host)

	win, err := popups.Acquire(context.Background(), "signer", 400, 600)
	require.ErrorIs(t, err, core.ErrPopupBlocked)
	assert.Nil(t, win)
	assert.False(t, host.overlayVisible())
}

func TestPopupReleaseClosesWindowAndOverlay(t *testing.T) {
	host := newFakeHost()
	popups := NewPopupResource(host)

	win, err := popups.Acquire(context.Background(), "signer", 400, 600)
	require.NoError(t, err)

	popups.Release()
	assert.True(t, win.Closed())
	assert.False(t, host.overlayVisible())
	assert.Nil(t, popups.Window())
}

func TestPopupReleaseIdempotent(t *testing.T) {
	host := newFakeHost()
	popups := NewPopupResource(host)

	_, err := popups.Acquire(context.Background(), "signer", 400, 600)
	require.NoError(t, err)

	popups.Release()
	popups.Release()
	assert.False(t, host.overlayVisible())
}

func TestPopupCloseRunsTeardownOnce(t *testing.T) {
	host := newFakeHost()
	popups := NewPopupResource(host)

	win, err := popups.Acquire(context.Background(), "signer", 400, 600)
	require.NoError(t, err)

	popups.Close()
	assert.True(t, win.Closed())

	// A second acquired window survives later Close calls.
	win2, err := popups.Acquire(context.Background(), "signer", 400, 600)
	require.NoError(t, err)
	popups.Close()
	assert.False(t, win2.Closed())
}

func TestPopupFallsBackToCurrentBounds(t *testing.T) {
	host := newFakeHost()
	host.outerOK = true
	popups := NewPopupResource(host)
	_, err := popups.Acquire(context.Background(), "signer", 400, 600)
	require.NoError(t, err)

	host2 := newFakeHost()
	host2.outerOK = false
	popups2 := NewPopupResource(host2)
	_, err = popups2.Acquire(context.Background(), "signer", 400, 600)
	require.NoError(t, err)
}

func TestCenteredGeometry(t *testing.T) {
	got := centered(ports.Rect{Left: 100, Top: 50, Width: 1000, Height: 900}, 400, 600)
	assert.Equal(t, ports.Rect{Left: 400, Top: 200, Width: 400, Height: 600}, got)

	// A popup larger than its container still yields deterministic bounds.
	got = centered(ports.Rect{Width: 300, Height: 300}, 400, 600)
	assert.Equal(t, 400, got.Width)
	assert.Equal(t, 600, got.Height)
}
