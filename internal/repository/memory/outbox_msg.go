package memory

import (
	"context"
	"encoding/json"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/tuanvumaihuynh/pantry-sync/internal/repository"
	"github.com/tuanvumaihuynh/pantry-sync/internal/storage/db"
)

var _ repository.OutboxMsgRepository = (*outboxMsgRepository)(nil)

type outboxMsg struct {
	ID           uuid.UUID
	Topic        string
	Headers      map[string]string
	Payload      json.RawMessage
	PartitionKey *string
	CreatedAt    time.Time
	ProcessedAt  *time.Time
	Error        *string
}

type outboxMsgRepository struct {
	db *DB
}

func NewOutboxMsgRepository(db *DB) repository.OutboxMsgRepository {
	return &outboxMsgRepository{db: db}
}

func (r outboxMsgRepository) WithDB(d db.DB) repository.OutboxMsgRepository {
	if m, ok := asDB(d); ok {
		return &outboxMsgRepository{db: m}
	}
	return &r
}

func (r outboxMsgRepository) CreateOutboxMsg(_ context.Context, params repository.CreateOutboxMsgParams) error {
	id, err := uuid.NewV7()
	if err != nil {
		return err
	}

	return r.db.run(func(s *state) error {
		s.outbox = append(s.outbox, outboxMsg{
			ID:           id,
			Topic:        params.Topic,
			Headers:      maps.Clone(params.Headers),
			Payload:      append(json.RawMessage(nil), params.Payload...),
			PartitionKey: params.PartitionKey,
			CreatedAt:    time.Now(),
		})
		return nil
	})
}

func (r outboxMsgRepository) ListUnprocessedOutboxMsgs(_ context.Context, params repository.ListUnprocessedOutboxMsgsParams) ([]repository.ListUnprocessedOutboxMsgsResult, error) {
	results := make([]repository.ListUnprocessedOutboxMsgsResult, 0)
	err := r.db.run(func(s *state) error {
		for _, msg := range s.outbox {
			if int32(len(results)) >= params.BatchSize {
				break
			}
			if msg.ProcessedAt != nil {
				continue
			}
			results = append(results, repository.ListUnprocessedOutboxMsgsResult{
				ID:           msg.ID,
				Topic:        msg.Topic,
				Headers:      maps.Clone(msg.Headers),
				Payload:      msg.Payload,
				PartitionKey: msg.PartitionKey,
			})
		}
		return nil
	})
	return results, err
}

func (r outboxMsgRepository) BulkUpdateOutboxMsgs(_ context.Context, params repository.BulkUpdateOutboxMsgsParams) error {
	now := time.Now()
	return r.db.run(func(s *state) error {
		for _, item := range params.Items {
			for i := range s.outbox {
				if s.outbox[i].ID != item.ID {
					continue
				}
				processedAt := now
				s.outbox[i].ProcessedAt = &processedAt
				s.outbox[i].Error = item.Error
			}
		}

		s.outbox = slices.DeleteFunc(s.outbox, func(msg outboxMsg) bool {
			return msg.ProcessedAt != nil && msg.Error == nil
		})
		return nil
	})
}

// Topics returns the topic of every pending or failed outbox message in
// insertion order.
func (d *DB) Topics() []string {
	var topics []string
	_ = d.run(func(s *state) error {
		for _, msg := range s.outbox {
			topics = append(topics, msg.Topic)
		}
		return nil
	})
	return topics
}
