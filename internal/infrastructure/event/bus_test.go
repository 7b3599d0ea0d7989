package event

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInMemoryEventBus_PublishToTypedHandler(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	posted := newRecordingHandler("PaymentPosted")
	other := newRecordingHandler("PaymentCreated")
	bus.Subscribe(posted)
	bus.Subscribe(other)

	event := newTestEvent("PaymentPosted")
	require.NoError(t, bus.Publish(context.Background(), event))

	require.Len(t, posted.Handled(), 1)
	assert.Same(t, event, posted.Handled()[0])
	assert.Empty(t, other.Handled())
}

func TestInMemoryEventBus_ExplicitTypesOverrideHandlerTypes(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	h := newRecordingHandler("PaymentCreated")
	bus.Subscribe(h, "PaymentReconciled")

	require.NoError(t, bus.Publish(context.Background(),
		newTestEvent("PaymentCreated"),
		newTestEvent("PaymentReconciled"),
	))

	require.Len(t, h.Handled(), 1)
	assert.Equal(t, "PaymentReconciled", h.Handled()[0].EventType())
}

func TestInMemoryEventBus_WildcardHandlerSeesEverything(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	all := newRecordingHandler()
	bus.Subscribe(all)

	require.NoError(t, bus.Publish(context.Background(),
		newTestEvent("PaymentCreated"),
		newTestEvent("PaymentPosted"),
	))

	assert.Len(t, all.Handled(), 2)
}

func TestInMemoryEventBus_HandlerFailuresAreLoggedNotReturned(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	bus := NewInMemoryEventBus(zap.New(core))

	failing := newRecordingHandler("PaymentPosted")
	failing.err = errors.New("downstream unavailable")
	panicking := newRecordingHandler("PaymentPosted")
	panicking.panicWith = "boom"
	healthy := newRecordingHandler("PaymentPosted")
	bus.Subscribe(failing)
	bus.Subscribe(panicking)
	bus.Subscribe(healthy)

	err := bus.Publish(context.Background(), newTestEvent("PaymentPosted"))

	require.NoError(t, err)
	assert.Len(t, healthy.Handled(), 1)
	assert.Equal(t, 2, logs.FilterMessage("handler failed to process event").Len())
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	h := newRecordingHandler("PaymentPosted")
	bus.Subscribe(h)
	bus.Unsubscribe(h)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("PaymentPosted")))
	assert.Empty(t, h.Handled())
}

func TestInMemoryEventBus_StartStop(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	ctx := context.Background()

	require.NoError(t, bus.Start(ctx))
	assert.True(t, bus.Running())
	require.NoError(t, bus.Stop(ctx))
	assert.False(t, bus.Running())
}

func TestHandlerRegistry_OrderAndUnregister(t *testing.T) {
	r := NewHandlerRegistry()
	typed := newRecordingHandler()
	both := newRecordingHandler()
	wildcard := newRecordingHandler()

	r.Register(typed, "PaymentPosted")
	r.Register(both, "PaymentPosted", "PaymentCreated")
	r.Register(wildcard)

	handlers := r.GetHandlers("PaymentPosted")
	require.Len(t, handlers, 3)
	assert.Same(t, typed, handlers[0])
	assert.Same(t, both, handlers[1])
	assert.Same(t, wildcard, handlers[2])

	r.Unregister(both)
	r.Unregister(wildcard)
	assert.Len(t, r.GetHandlers("PaymentPosted"), 1)
	assert.Empty(t, r.GetHandlers("PaymentCreated"))
}
