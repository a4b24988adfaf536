package feed

import (
	"testing"

	"PhoneStore/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_DeliversToOwnerOnly(t *testing.T) {
	h := NewHub()
	mine, cancelMine := h.Subscribe("u1")
	defer cancelMine()
	other, cancelOther := h.Subscribe("u2")
	defer cancelOther()

	h.OrderCreated(&models.Order{OrderID: "o1", UserID: "u1"})

	select {
	case o := <-mine:
		assert.Equal(t, "o1", o.OrderID)
	default:
		t.Fatal("expected order for u1")
	}
	select {
	case o := <-other:
		t.Fatalf("unexpected order %s for u2", o.OrderID)
	default:
	}
}

func TestHub_CancelClosesAndUnregisters(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe("u1")
	require.Equal(t, 1, h.Subscribers("u1"))

	cancel()
	cancel()

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, h.Subscribers("u1"))

	h.OrderCreated(&models.Order{UserID: "u1"})
}

func TestHub_SlowListenerDoesNotBlock(t *testing.T) {
	h := NewHub()
	_, cancel := h.Subscribe("u1")
	defer cancel()

	for i := 0; i < bufferSize*3; i++ {
		h.OrderCreated(&models.Order{UserID: "u1"})
	}
}
