package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/thecolognehub/colognehub-backend/pkg/db/models"
	"github.com/thecolognehub/colognehub-backend/pkg/logger"
)

const expiryBatchSize = 100

type pendingOrderReader interface {
	ListPendingCreatedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
}

type orderExpirer interface {
	Expire(ctx context.Context, orderID uuid.UUID) error
}

// OrderExpiryJobParams configure the pending-order expiry job.
type OrderExpiryJobParams struct {
	Logger        *logger.Logger
	PendingReader pendingOrderReader
	Orders        orderExpirer
	TTL           time.Duration
}

type orderExpiryJob struct {
	logg          *logger.Logger
	pendingReader pendingOrderReader
	orders        orderExpirer
	ttl           time.Duration
	now           func() time.Time
}

// NewOrderExpiryJob builds the cron job that cancels orders whose payment
// never completed within the configured TTL.
func NewOrderExpiryJob(params OrderExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.PendingReader == nil {
		return nil, fmt.Errorf("pending orders reader required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if params.TTL <= 0 {
		return nil, fmt.Errorf("pending order ttl must be positive")
	}
	return &orderExpiryJob{
		logg:          params.Logger,
		pendingReader: params.PendingReader,
		orders:        params.Orders,
		ttl:           params.TTL,
		now:           time.Now,
	}, nil
}

func (j *orderExpiryJob) Name() string { return "order-expiry" }

func (j *orderExpiryJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	rows, err := j.pendingReader.ListPendingCreatedBefore(ctx, cutoff, expiryBatchSize)
	if err != nil {
		return fmt.Errorf("query stale pending orders: %w", err)
	}

	var errs []error
	expired := 0
	for _, order := range rows {
		if err := j.orders.Expire(ctx, order.ID); err != nil {
			errs = append(errs, fmt.Errorf("expire order %s: %w", order.ID, err))
			continue
		}
		expired++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"candidates": len(rows),
		"expired":    expired,
	})
	j.logg.Info(logCtx, "order expiry loop complete")
	return multierr.Combine(errs...)
}
