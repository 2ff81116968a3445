package event_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuanvumaihuynh/pantry-sync/internal/event"
	"github.com/tuanvumaihuynh/pantry-sync/internal/storage/mq"
)

type fakeConsumer struct {
	handlers map[string]mq.HandlerFunc
	ran      bool
}

func (c *fakeConsumer) RegisterHandler(topic string, handler mq.HandlerFunc) error {
	c.handlers[topic] = handler
	return nil
}

func (c *fakeConsumer) Run(context.Context) (mq.CleanupFunc, error) {
	c.ran = true
	return func() {}, nil
}

func TestService(t *testing.T) {
	var buf bytes.Buffer
	consumer := &fakeConsumer{handlers: map[string]mq.HandlerFunc{}}
	svc := event.New(slog.New(slog.NewJSONHandler(&buf, nil)), consumer)

	cleanup, err := svc.Run(context.Background())
	require.NoError(t, err)
	defer cleanup()

	assert.True(t, consumer.ran)
	assert.Len(t, consumer.handlers, 3)

	t.Run("Should log imported events", func(t *testing.T) {
		buf.Reset()
		payload, err := json.Marshal(event.InventoryImportedEvent{
			OwnerID:         "alice",
			ShoppingItemID:  "s-1",
			InventoryItemID: "i-1",
			Action:          "merge",
			Quantity:        3,
		})
		require.NoError(t, err)

		h := consumer.handlers[event.TopicInventoryImported]
		require.NoError(t, h(context.Background(), event.TopicInventoryImported, payload))

		var line map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		assert.Equal(t, "merge", line["action"])
		assert.Equal(t, "event", line["service"])
	})

	t.Run("Should reject malformed payloads", func(t *testing.T) {
		h := consumer.handlers[event.TopicShoppingSuggested]
		assert.Error(t, h(context.Background(), event.TopicShoppingSuggested, []byte("{")))
	})
}
