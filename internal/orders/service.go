package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/thecolognehub/colognehub-backend/internal/products"
	"github.com/thecolognehub/colognehub-backend/pkg/db"
	"github.com/thecolognehub/colognehub-backend/pkg/enums"
	pkgerrors "github.com/thecolognehub/colognehub-backend/pkg/errors"
	"github.com/thecolognehub/colognehub-backend/pkg/outbox"
	"github.com/thecolognehub/colognehub-backend/pkg/pagination"
)

// adminTransitions lists the forward status moves an admin may apply.
var adminTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusConfirmed:  {enums.OrderStatusProcessing, enums.OrderStatusCancelled},
	enums.OrderStatusProcessing: {enums.OrderStatusShipped, enums.OrderStatusCancelled},
	enums.OrderStatusShipped:    {enums.OrderStatusDelivered},
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// AdminStatusInput carries an admin status transition request.
type AdminStatusInput struct {
	Status         enums.OrderStatus `json:"status"`
	TrackingNumber *string           `json:"tracking_number,omitempty"`
}

// Service exposes order lifecycle operations past the payment boundary.
type Service struct {
	db       *db.Client
	repo     *Repository
	products *products.Repository
	outbox   outboxEmitter
}

// ServiceParams bundles the dependencies for the orders service.
type ServiceParams struct {
	DB           *db.Client
	Repo         *Repository
	ProductsRepo *products.Repository
	Outbox       outboxEmitter
}

// NewService builds the orders service.
func NewService(params ServiceParams) (*Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("database client required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.ProductsRepo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &Service{
		db:       params.DB,
		repo:     params.Repo,
		products: params.ProductsRepo,
		outbox:   params.Outbox,
	}, nil
}

// List returns the caller's order history, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID, status *enums.OrderStatus, page pagination.Params) (*ListResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	return s.list(ctx, ListFilter{UserID: &userID, Status: status, Pagination: page})
}

// AdminList returns orders across all users with optional filters.
func (s *Service) AdminList(ctx context.Context, status *enums.OrderStatus, search string, page pagination.Params) (*ListResult, error) {
	return s.list(ctx, ListFilter{Status: status, Search: search, Pagination: page})
}

func (s *Service) list(ctx context.Context, filter ListFilter) (*ListResult, error) {
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	dtos := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *FromModel(&rows[i]))
	}
	return &ListResult{
		Orders:     dtos,
		Total:      total,
		Page:       pagination.NormalizePage(filter.Pagination.Page),
		TotalPages: pagination.TotalPages(total, filter.Pagination.Limit),
	}, nil
}

// Get returns one of the caller's orders.
func (s *Service) Get(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	order, err := s.repo.FindByIDForUser(ctx, orderID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return FromModel(order), nil
}

// AdminGet returns any order by id.
func (s *Service) AdminGet(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return FromModel(order), nil
}

// Cancel cancels one of the caller's orders. Pending and confirmed orders can
// be cancelled; stock returns to the shelf only when the order had already
// claimed it, and a paid order is flagged for refund.
func (s *Service) Cancel(ctx context.Context, userID, orderID uuid.UUID, reason string) (*OrderDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
		}
		if order.UserID != userID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return s.cancelLocked(ctx, tx, order.ID, enums.EventOrderCancelled, reason)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, userID, orderID)
}

// Expire cancels a stale pending order on behalf of the cleanup job.
func (s *Service) Expire(ctx context.Context, orderID uuid.UUID) error {
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
		}
		if order.Status != enums.OrderStatusPending {
			return nil
		}
		return s.cancelLocked(ctx, tx, order.ID, enums.EventOrderExpired, "payment window elapsed")
	})
}

// cancelLocked applies the cancellation under the row lock taken by the
// caller. The order must have been re-read inside the same transaction.
func (s *Service) cancelLocked(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, event enums.OutboxEventType, reason string) error {
	repo := s.repo.WithTx(tx)
	order, err := repo.FindByID(ctx, orderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "re-read order")
	}

	switch order.Status {
	case enums.OrderStatusPending, enums.OrderStatusConfirmed:
	case enums.OrderStatusCancelled:
		return nil
	default:
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order can no longer be cancelled")
	}

	// Stock was only claimed at confirmation; a pending order never
	// decremented anything.
	if order.Status == enums.OrderStatusConfirmed {
		productsRepo := s.products.WithTx(tx)
		for _, item := range order.Items {
			if err := productsRepo.RestoreStock(ctx, item.ProductID, item.Qty); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore stock")
			}
		}
	}

	now := time.Now().UTC()
	updates := map[string]any{
		"status":       enums.OrderStatusCancelled,
		"cancelled_at": now,
	}
	if order.PaymentStatus == enums.PaymentStatusPaid {
		updates["payment_status"] = enums.PaymentStatusRefunded
	}
	if reason != "" {
		updates["notes"] = reason
	}
	changed, err := repo.UpdateStatusGuarded(ctx, order.ID, order.Status, updates)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
	}
	if !changed {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order changed concurrently")
	}

	data := map[string]any{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"user_id":      order.UserID,
		"prior_status": order.Status,
	}
	if reason != "" {
		data["reason"] = reason
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     event,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Data:          data,
		Version:       1,
	})
}

// AdminUpdateStatus applies an admin transition (fulfillment moves plus
// cancellation) and stamps the matching timestamps.
func (s *Service) AdminUpdateStatus(ctx context.Context, orderID uuid.UUID, input AdminStatusInput) (*OrderDTO, error) {
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
		}

		if input.Status == enums.OrderStatusCancelled {
			return s.cancelLocked(ctx, tx, order.ID, enums.EventOrderCancelled, "cancelled by admin")
		}

		if !transitionAllowed(order.Status, input.Status) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "invalid status transition").WithDetails(map[string]any{
				"from": order.Status,
				"to":   input.Status,
			})
		}

		updates := map[string]any{"status": input.Status}
		now := time.Now().UTC()
		switch input.Status {
		case enums.OrderStatusShipped:
			if input.TrackingNumber != nil {
				updates["tracking_number"] = *input.TrackingNumber
			}
		case enums.OrderStatusDelivered:
			updates["delivered_at"] = now
		}

		changed, err := repo.UpdateStatusGuarded(ctx, order.ID, order.Status, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if !changed {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order changed concurrently")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: map[string]any{
				"order_id":     order.ID,
				"order_number": order.OrderNumber,
				"from":         order.Status,
				"to":           input.Status,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.AdminGet(ctx, orderID)
}

// StatusCounts returns counts per status for the admin dashboard.
func (s *Service) StatusCounts(ctx context.Context) (map[enums.OrderStatus]int64, error) {
	counts, err := s.repo.StatusCounts(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count orders")
	}
	return counts, nil
}

func transitionAllowed(from, to enums.OrderStatus) bool {
	for _, candidate := range adminTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}
