// Package service coordinates the pantry domain logic with the item store and
// the barcode resolution service.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tuanvumaihuynh/pantry-sync/internal/apperr"
	"github.com/tuanvumaihuynh/pantry-sync/internal/model"
	"github.com/tuanvumaihuynh/pantry-sync/internal/repository"
	"github.com/tuanvumaihuynh/pantry-sync/internal/storage/db"
	"github.com/tuanvumaihuynh/pantry-sync/pkg/outbox"
	"github.com/tuanvumaihuynh/pantry-sync/pkg/zerror"
)

// Option customizes a service.
type Option func(*options)

type options struct {
	now   func() time.Time
	newID func() (uuid.UUID, error)
}

func defaultOptions() options {
	return options{
		now:   time.Now,
		newID: uuid.NewV7,
	}
}

// WithClock replaces the wall clock used for timestamps and expiry dates.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithIDGenerator replaces the generator of new item ids.
func WithIDGenerator(newID func() (uuid.UUID, error)) Option {
	return func(o *options) { o.newID = newID }
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// store bounds every interaction with the item store by timeout.
type store struct {
	db      db.DB
	timeout time.Duration
}

func (s store) call(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.timeout <= 0 {
		return fn(ctx)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return fn(ctx)
}

func (s store) tx(ctx context.Context, fn func(ctx context.Context, tx db.DB) error) error {
	return s.call(ctx, func(ctx context.Context) error {
		return s.db.WithTx(ctx, func(tx db.DB) error {
			return fn(ctx, tx)
		})
	})
}

// storeErr translates a repository error. Missing rows become notFound and
// every other failure, timeouts included, becomes StoreUnavailable.
func storeErr(err error, notFound zerror.ZError) error {
	var zErr zerror.ZError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &zErr):
		return err
	case errors.Is(err, repository.ErrNotFound):
		return notFound.WrapParent(err)
	default:
		return apperr.StoreUnavailableErr.WrapParent(err)
	}
}

func validateQuantity(q int) error {
	if q < model.MinQuantity || q > model.MaxQuantity {
		return apperr.NewValidationErr(fmt.Sprintf("quantity must be between %d and %d", model.MinQuantity, model.MaxQuantity))
	}
	return nil
}

func writeOutboxMsg(
	ctx context.Context,
	repo repository.OutboxMsgRepository,
	topic string,
	partitionKey string,
	ev any,
) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := repo.CreateOutboxMsg(ctx, repository.CreateOutboxMsgParams{
		Topic:        topic,
		Headers:      outbox.BuildHeaders(ctx),
		Payload:      payload,
		PartitionKey: &partitionKey,
	}); err != nil {
		return fmt.Errorf("outbox msg repository create outbox msg: %w", err)
	}

	return nil
}

func today(now func() time.Time) model.Date {
	return model.DateOf(now().UTC())
}
