package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wrenlabs/popsign/core"
	"github.com/wrenlabs/popsign/logger"
)

func TestListenerRegistryDeliversToAll(t *testing.T) {
	reg := newListenerRegistry(logger.NoopLogger{})

	var a, b []any
	reg.add(EventConnect, func(p any) { a = append(a, p) }, false)
	reg.add(EventConnect, func(p any) { b = append(b, p) }, false)
	reg.add(EventDisconnect, func(any) { t.Fatal("wrong event delivered") }, false)

	reg.emit(EventConnect, "payload")
	assert.Equal(t, []any{"payload"}, a)
	assert.Equal(t, []any{"payload"}, b)
}

func TestListenerRegistryRemove(t *testing.T) {
	reg := newListenerRegistry(logger.NoopLogger{})

	calls := 0
	kept := 0
	sub := reg.add(EventConnect, func(any) { calls++ }, false)
	reg.add(EventConnect, func(any) { kept++ }, false)

	reg.remove(sub)
	reg.emit(EventConnect, nil)

	assert.Zero(t, calls, "removed listener must not fire")
	assert.Equal(t, 1, kept, "removal must not affect other listeners")
}

func TestListenerRegistryOnce(t *testing.T) {
	reg := newListenerRegistry(logger.NoopLogger{})

	calls := 0
	reg.add(EventConnect, func(any) { calls++ }, true)

	reg.emit(EventConnect, nil)
	reg.emit(EventConnect, nil)
	assert.Equal(t, 1, calls)
}

func TestListenerRegistryPanicIsolated(t *testing.T) {
	reg := newListenerRegistry(logger.NoopLogger{})

	delivered := 0
	reg.add(EventConnect, func(any) { panic("boom") }, false)
	reg.add(EventConnect, func(any) { delivered++ }, false)

	assert.NotPanics(t, func() { reg.emit(EventConnect, nil) })
	assert.Equal(t, 1, delivered, "a panicking listener must not block the rest")
}

func TestClassifyPeerError(t *testing.T) {
	assert.ErrorIs(t, classifyPeerError("User REJECTED this"), core.ErrUserRejected)
	assert.ErrorIs(t, classifyPeerError("permission denied"), core.ErrUserRejected)
	assert.ErrorIs(t, classifyPeerError("request was cancelled"), core.ErrUserRejected)
	assert.ErrorIs(t, classifyPeerError("popup blocked by settings"), core.ErrUserRejected)
	assert.ErrorIs(t, classifyPeerError("user closed the dialog"), core.ErrUserRejected)
	assert.ErrorIs(t, classifyPeerError("weird internal failure"), core.ErrMalformedReply)
	assert.ErrorIs(t, classifyPeerError(""), core.ErrMalformedReply)
}

func TestToProviderErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{core.ErrUserRejected, core.CodeUserRejected},
		{core.ErrPopupBlocked, core.CodeUserRejected},
		{core.ErrUnauthorized, core.CodeUnauthorized},
		{core.ErrSignatureMismatch, core.CodeUnauthorized},
		{core.ErrNonceMismatch, core.CodeUnauthorized},
		{core.ErrChainMismatch, core.CodeChainMismatch},
		{core.ErrUnsupportedChain, core.CodeUnrecognizedChain},
		{core.ErrUnsupportedMethod, core.CodeUnsupportedMethod},
		{core.ErrExchangeInFlight, core.CodeRequestPending},
		{errors.New("anything else"), core.CodeInternal},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			assert.Equal(t, tc.code, toProviderError(tc.err).Code)
		})
	}
}

func TestToProviderErrorWrapped(t *testing.T) {
	wrapped := classifyPeerError("user closed the window")
	assert.Equal(t, core.CodeUserRejected, toProviderError(wrapped).Code)
}

func TestToProviderErrorPassesThrough(t *testing.T) {
	pe := core.NewProviderError(core.CodeInvalidParams, "bad input")
	assert.Same(t, pe, toProviderError(pe))
}
