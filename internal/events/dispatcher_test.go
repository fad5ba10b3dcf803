package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intranet-hub/portal-service/internal/domain"
)

func TestDispatcherDeliversToSubscribedType(t *testing.T) {
	d := NewInMemoryDispatcher()

	var received []Event
	d.Subscribe(domain.EventStatusChanged, func(_ context.Context, e Event) error {
		received = append(received, e)
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: domain.EventStatusChanged, TicketID: "t-1"})
	require.NoError(t, err)
	require.Len(t, received, 1)
	assert.Equal(t, "t-1", received[0].TicketID)

	// unrelated types do not reach the handler
	require.NoError(t, d.Publish(context.Background(), Event{Type: domain.EventCommentAdded, TicketID: "t-2"}))
	assert.Len(t, received, 1)
}

func TestDispatcherHandlerErrorDoesNotAbortOthers(t *testing.T) {
	d := NewInMemoryDispatcher()

	var secondCalled bool
	d.Subscribe(domain.EventTicketCreated, func(context.Context, Event) error {
		return errors.New("boom")
	})
	d.Subscribe(domain.EventTicketCreated, func(context.Context, Event) error {
		secondCalled = true
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: domain.EventTicketCreated})
	assert.NoError(t, err)
	assert.True(t, secondCalled)
}

func TestDispatcherNoSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher()
	assert.NoError(t, d.Publish(context.Background(), Event{Type: domain.EventResolved}))
}
