package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubscriptionCloseFromCallback(t *testing.T) {
	canceled := false
	sub := &mongoSubscription{cancel: func() { canceled = true }}

	// A consumer tearing down from inside its own callback, as the sync-lost
	// path does, must not deadlock against Close.
	sub.deliver(func() {
		assert.NoError(t, sub.Close())
	})
	assert.True(t, canceled)

	delivered := false
	sub.deliver(func() { delivered = true })
	assert.False(t, delivered, "no delivery after Close")
}
