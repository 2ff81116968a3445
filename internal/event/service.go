// Package event consumes the pantry domain events published by the outbox
// relay and writes an audit log line for each of them.
package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/tuanvumaihuynh/pantry-sync/internal/storage/mq"
)

// Service is the event service.
type Service struct {
	logger     *slog.Logger
	mqConsumer mq.Consumer
}

// New creates a new event service.
func New(
	logger *slog.Logger,
	mqConsumer mq.Consumer,
) *Service {
	return &Service{
		logger:     logger.With(slog.String("service", "event")),
		mqConsumer: mqConsumer,
	}
}

type CleanupFunc func()

// Register binds the domain event handlers to the consumer.
func (s *Service) Register() error {
	handlers := map[string]mq.HandlerFunc{
		TopicInventoryCreated:  handle(s.handleInventoryCreated),
		TopicInventoryImported: handle(s.handleInventoryImported),
		TopicShoppingSuggested: handle(s.handleShoppingSuggested),
	}

	for topic, h := range handlers {
		if err := s.mqConsumer.RegisterHandler(topic, h); err != nil {
			return fmt.Errorf("register %s handler: %w", topic, err)
		}
	}
	return nil
}

func (s *Service) Run(ctx context.Context) (CleanupFunc, error) {
	if err := s.Register(); err != nil {
		return nil, err
	}

	mqCleanup, err := s.mqConsumer.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("run mq consumer: %w", err)
	}

	cleanup := func() {
		mqCleanup()
	}

	return cleanup, nil
}

// handle decodes the payload into T before calling fn.
func handle[T any](fn func(ctx context.Context, ev T) error) mq.HandlerFunc {
	return func(ctx context.Context, topic string, payload []byte) error {
		var ev T
		if err := json.Unmarshal(payload, &ev); err != nil {
			return fmt.Errorf("unmarshal %s event: %w", topic, err)
		}
		return fn(ctx, ev)
	}
}

func (s *Service) handleInventoryCreated(ctx context.Context, ev InventoryCreatedEvent) error {
	s.logger.InfoContext(ctx, "inventory item created",
		slog.String("owner_id", ev.OwnerID),
		slog.String("inventory_item_id", ev.InventoryItemID),
		slog.String("name", ev.Name),
		slog.Int("quantity", ev.Quantity),
		slog.Bool("enriched", ev.Enriched),
	)
	return nil
}

func (s *Service) handleInventoryImported(ctx context.Context, ev InventoryImportedEvent) error {
	s.logger.InfoContext(ctx, "shopping item imported into inventory",
		slog.String("owner_id", ev.OwnerID),
		slog.String("shopping_item_id", ev.ShoppingItemID),
		slog.String("inventory_item_id", ev.InventoryItemID),
		slog.String("action", ev.Action),
		slog.Int("quantity", ev.Quantity),
	)
	return nil
}

func (s *Service) handleShoppingSuggested(ctx context.Context, ev ShoppingSuggestedEvent) error {
	s.logger.InfoContext(ctx, "low stock suggestions created",
		slog.String("owner_id", ev.OwnerID),
		slog.Int("count", len(ev.ShoppingItemIDs)),
	)
	return nil
}
