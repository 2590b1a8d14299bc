package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandlerRegistry(t *testing.T) {
	r := NewHandlerRegistry()
	created := newTestHandler()
	all := newTestHandler()

	r.Register(created, "OrderCreated", "OrderApproved")
	r.Register(created, "OrderCreated")
	r.Register(all)

	assert.Equal(t, 2, r.Len())
	hs := r.Handlers("OrderCreated")
	assert.Len(t, hs, 2)
	assert.Same(t, created, hs[0])
	assert.Same(t, all, hs[1])

	assert.Len(t, r.Handlers("OrderDelivered"), 1)

	r.Unregister(created)
	assert.Equal(t, 1, r.Len())
	assert.Len(t, r.Handlers("OrderApproved"), 1)

	r.Unregister(all)
	assert.Empty(t, r.Handlers("OrderCreated"))
	assert.Zero(t, r.Len())
}

func TestHandlerRegistry_WildcardAlsoRegisteredForType(t *testing.T) {
	r := NewHandlerRegistry()
	h := newTestHandler()
	r.Register(h, "OrderCreated")
	r.Register(h)

	assert.Len(t, r.Handlers("OrderCreated"), 1)
}
