package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestPublishRunsEveryHandlerDespiteFailures(t *testing.T) {
	d := NewInMemoryDispatcher(zap.NewNop())

	var calls []string
	d.Subscribe(EventRoleUpgradeApproved, func(context.Context, Event) error {
		calls = append(calls, "first")
		return errors.New("smtp down")
	})
	d.Subscribe(EventRoleUpgradeApproved, func(context.Context, Event) error {
		calls = append(calls, "second")
		panic("boom")
	})
	d.Subscribe(EventRoleUpgradeApproved, func(_ context.Context, e Event) error {
		calls = append(calls, "third")
		assert.NotEmpty(t, e.ID)
		assert.False(t, e.Timestamp.IsZero())
		return nil
	})
	d.Subscribe(EventRoleUpgradeRejected, func(context.Context, Event) error {
		calls = append(calls, "other")
		return nil
	})

	d.Publish(context.Background(), Event{Type: EventRoleUpgradeApproved})

	assert.Equal(t, []string{"first", "second", "third"}, calls)
}
