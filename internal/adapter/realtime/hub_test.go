package realtime

import (
	"context"
	"testing"

	"linkpay/internal/core/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_DeliversOnlyToRecipient(t *testing.T) {
	hub := NewHub(4, nil, zerolog.Nop())
	user := hub.Register(domain.UserActor("UR000001"))
	other := hub.Register(domain.UserActor("UR000002"))
	merchant := hub.Register(domain.MerchantActor("UR000001"))

	hub.Publish(context.Background(), domain.NewEvent(domain.EventBalanceUpdated, domain.UserActor("UR000001"), nil))

	require.Len(t, user.Events(), 1)
	assert.Equal(t, domain.EventBalanceUpdated, (<-user.Events()).Type)
	assert.Len(t, other.Events(), 0)
	assert.Len(t, merchant.Events(), 0, "party type is part of the address")
}

func TestHub_FansOutToEveryConnection(t *testing.T) {
	hub := NewHub(4, nil, zerolog.Nop())
	actor := domain.MerchantActor("MR000001")
	a, b := hub.Register(actor), hub.Register(actor)
	assert.Equal(t, 2, hub.Connected(actor))

	hub.Publish(context.Background(), domain.NewEvent(domain.EventRequestReceived, actor, nil))

	assert.Len(t, a.Events(), 1)
	assert.Len(t, b.Events(), 1)
}

func TestHub_DropsSlowClient(t *testing.T) {
	hub := NewHub(1, nil, zerolog.Nop())
	actor := domain.UserActor("UR000001")
	slow := hub.Register(actor)
	ev := domain.NewEvent(domain.EventPaymentRequested, actor, nil)

	hub.Publish(context.Background(), ev)
	hub.Publish(context.Background(), ev)

	select {
	case <-slow.Done():
	default:
		t.Fatal("slow client should have been dropped")
	}
	assert.Equal(t, 0, hub.Connected(actor))
}

func TestHub_PublishWithoutClients(t *testing.T) {
	hub := NewHub(1, nil, zerolog.Nop())
	assert.NotPanics(t, func() {
		hub.Publish(context.Background(), domain.NewEvent(domain.EventReminderCreated, domain.UserActor("UR000009"), nil))
	})
}

func TestHub_UnregisterTwice(t *testing.T) {
	hub := NewHub(1, nil, zerolog.Nop())
	c := hub.Register(domain.UserActor("UR000001"))
	hub.Unregister(c)
	assert.NotPanics(t, func() { hub.Unregister(c) })
	assert.Equal(t, 0, hub.Connected(c.Actor()))
}
