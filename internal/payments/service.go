package payments

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/thecolognehub/colognehub-backend/internal/cart"
	"github.com/thecolognehub/colognehub-backend/internal/orders"
	"github.com/thecolognehub/colognehub-backend/internal/products"
	"github.com/thecolognehub/colognehub-backend/pkg/config"
	"github.com/thecolognehub/colognehub-backend/pkg/db"
	"github.com/thecolognehub/colognehub-backend/pkg/db/models"
	"github.com/thecolognehub/colognehub-backend/pkg/enums"
	pkgerrors "github.com/thecolognehub/colognehub-backend/pkg/errors"
	"github.com/thecolognehub/colognehub-backend/pkg/logger"
	"github.com/thecolognehub/colognehub-backend/pkg/metrics"
	"github.com/thecolognehub/colognehub-backend/pkg/outbox"
	"github.com/thecolognehub/colognehub-backend/pkg/pricing"
)

const estimatedDeliveryDays = 7

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

const (
	triggerClient  = "client"
	triggerWebhook = "webhook"

	outcomeSettled = "settled"
	outcomeNoop    = "noop"
	outcomeFailed  = "failed"
)

// Service owns the order/payment settlement flow. Both confirmation triggers
// (client call and gateway webhook) converge on the same settle transaction.
type Service struct {
	db       *db.Client
	orders   *orders.Repository
	products *products.Repository
	cart     *cart.Repository
	gateway  Gateway
	outbox   outboxEmitter
	checkout config.CheckoutConfig
	logg     *logger.Logger
	metrics  *metrics.PaymentMetrics
}

// ServiceParams bundles the dependencies for the payments service.
type ServiceParams struct {
	DB           *db.Client
	OrdersRepo   *orders.Repository
	ProductsRepo *products.Repository
	CartRepo     *cart.Repository
	Gateway      Gateway
	Outbox       outboxEmitter
	Checkout     config.CheckoutConfig
	Logger       *logger.Logger
	Metrics      *metrics.PaymentMetrics
}

// NewService builds the payments service.
func NewService(params ServiceParams) (*Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("database client required")
	}
	if params.OrdersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.ProductsRepo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if params.CartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{
		db:       params.DB,
		orders:   params.OrdersRepo,
		products: params.ProductsRepo,
		cart:     params.CartRepo,
		gateway:  params.Gateway,
		outbox:   params.Outbox,
		checkout: params.Checkout,
		logg:     params.Logger,
		metrics:  params.Metrics,
	}, nil
}

// CreateIntent validates the submitted cart snapshot, opens a gateway intent,
// and persists the pending order with items, prices, and address frozen.
func (s *Service) CreateIntent(ctx context.Context, userID uuid.UUID, input CreateIntentInput) (*CreateIntentResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}
	if err := input.ShippingAddress.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shipping address")
	}

	lines, items, err := s.validateItems(ctx, input.Items)
	if err != nil {
		return nil, err
	}

	quote, err := pricing.Compute(lines, input.PromoDiscountCents, s.checkout)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "price breakdown")
	}
	// The client's figures must match the server-side derivation to the cent.
	if quote.SubtotalCents != input.SubtotalCents ||
		quote.PromoDiscountCents != input.PromoDiscountCents ||
		quote.ShippingCents != input.ShippingCents ||
		quote.TaxCents != input.TaxCents ||
		quote.TotalCents != input.TotalCents {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "pricing mismatch").WithDetails(map[string]any{
			"expected_subtotal_cents": quote.SubtotalCents,
			"expected_shipping_cents": quote.ShippingCents,
			"expected_tax_cents":      quote.TaxCents,
			"expected_total_cents":    quote.TotalCents,
		})
	}

	orderID := uuid.New()
	orderNumber, err := newOrderNumber()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate order number")
	}

	intent, err := s.gateway.CreateIntent(ctx, int64(quote.TotalCents), map[string]string{
		"user_id":      userID.String(),
		"order_id":     orderID.String(),
		"order_number": orderNumber,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment intent")
	}

	now := time.Now().UTC()
	estimated := now.AddDate(0, 0, estimatedDeliveryDays)
	order := &models.Order{
		ID:                 orderID,
		OrderNumber:        orderNumber,
		UserID:             userID,
		Status:             enums.OrderStatusPending,
		PaymentStatus:      enums.PaymentStatusPending,
		PaymentMethod:      enums.PaymentMethodCard,
		PaymentIntentID:    &intent.ID,
		SubtotalCents:      quote.SubtotalCents,
		PromoDiscountCents: quote.PromoDiscountCents,
		PromoCode:          input.PromoCode,
		ShippingCents:      quote.ShippingCents,
		TaxCents:           quote.TaxCents,
		TotalCents:         quote.TotalCents,
		ShippingAddress:    input.ShippingAddress,
		Notes:              input.Notes,
		EstimatedDelivery:  &estimated,
		Items:              items,
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.orders.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist order")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: userID, Role: string(enums.UserRoleCustomer)},
			Data: map[string]any{
				"order_id":     order.ID,
				"order_number": order.OrderNumber,
				"user_id":      userID,
				"total_cents":  order.TotalCents,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncIntentCreated()
	logCtx := s.logg.WithOrderID(s.logg.WithUserID(ctx, userID.String()), order.ID.String())
	s.logg.Info(logCtx, "payment intent created")

	return &CreateIntentResult{
		OrderID:      order.ID,
		OrderNumber:  order.OrderNumber,
		ClientSecret: intent.ClientSecret,
	}, nil
}

// ConfirmFromClient settles the order on behalf of the buyer once the gateway
// reports the intent as succeeded. A second call for an already confirmed
// order returns the same success response without touching stock.
func (s *Service) ConfirmFromClient(ctx context.Context, userID uuid.UUID, input ConfirmInput) (*ConfirmResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if strings.TrimSpace(input.PaymentIntentID) == "" || input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent id and order id are required")
	}

	order, err := s.orders.FindByIDForUser(ctx, input.OrderID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.PaymentIntentID == nil || *order.PaymentIntentID != input.PaymentIntentID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent does not match order")
	}

	intent, err := s.gateway.RetrieveIntent(ctx, input.PaymentIntentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "retrieve payment intent")
	}
	if !intent.Succeeded() {
		return nil, pkgerrors.New(pkgerrors.CodePaymentIncomplete, "payment not completed").WithDetails(map[string]any{
			"intent_status": intent.Status,
		})
	}

	// Fast path: the webhook (or an earlier call) already settled it.
	if order.Status == enums.OrderStatusConfirmed {
		s.metrics.ObserveSettlement(triggerClient, outcomeNoop)
		return &ConfirmResult{Success: true, Order: orders.FromModel(order)}, nil
	}

	if err := s.settle(ctx, order.ID, triggerClient); err != nil {
		return nil, err
	}

	settled, err := s.orders.FindByIDForUser(ctx, input.OrderID, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
	}
	return &ConfirmResult{Success: true, Order: orders.FromModel(settled)}, nil
}

// HandleGatewayEvent applies a verified webhook event. Unknown event types
// are ignored; a missing order is logged and dropped so the gateway does not
// retry forever against an order this system never created.
func (s *Service) HandleGatewayEvent(ctx context.Context, event GatewayEvent) error {
	switch event.Type {
	case EventIntentSucceeded:
		return s.handleIntentSucceeded(ctx, event)
	case EventIntentFailed:
		return s.handleIntentFailed(ctx, event)
	default:
		return nil
	}
}

// GetOrder is the owner-scoped read used by the order-detail endpoint.
func (s *Service) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*orders.OrderDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	order, err := s.orders.FindByIDForUser(ctx, orderID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return orders.FromModel(order), nil
}

func (s *Service) handleIntentSucceeded(ctx context.Context, event GatewayEvent) error {
	order, err := s.orders.FindByPaymentIntentID(ctx, event.PaymentIntentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logCtx := s.logg.WithField(ctx, "payment_intent_id", event.PaymentIntentID)
			s.logg.Warn(logCtx, "webhook for unknown payment intent ignored")
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order by intent")
	}
	if order.Status != enums.OrderStatusPending {
		s.metrics.ObserveSettlement(triggerWebhook, outcomeNoop)
		return nil
	}
	return s.settle(ctx, order.ID, triggerWebhook)
}

func (s *Service) handleIntentFailed(ctx context.Context, event GatewayEvent) error {
	order, err := s.orders.FindByPaymentIntentID(ctx, event.PaymentIntentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order by intent")
	}
	if order.Status == enums.OrderStatusCancelled {
		return nil
	}

	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		locked, err := repo.FindByIDForUpdate(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
		}
		// Only a pending order cancels on payment failure; anything else was
		// already resolved by another trigger.
		if locked.Status != enums.OrderStatusPending {
			return nil
		}
		now := time.Now().UTC()
		changed, err := repo.UpdateStatusGuarded(ctx, locked.ID, enums.OrderStatusPending, map[string]any{
			"status":         enums.OrderStatusCancelled,
			"payment_status": enums.PaymentStatusFailed,
			"cancelled_at":   now,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel failed order")
		}
		if !changed {
			return nil
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentFailed,
			AggregateType: enums.AggregateOrder,
			AggregateID:   locked.ID,
			Data: map[string]any{
				"order_id":          locked.ID,
				"order_number":      locked.OrderNumber,
				"payment_intent_id": event.PaymentIntentID,
			},
			Version: 1,
		})
	})
}

// settle is the shared critical section. Both triggers run the same
// transaction: re-read the order under a row lock, decrement stock
// conditionally, flip the status with a guarded update, clear the cart, and
// queue the confirmation event. Everything commits together or not at all.
func (s *Service) settle(ctx context.Context, orderID uuid.UUID, trigger string) error {
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		ordersRepo := s.orders.WithTx(tx)
		productsRepo := s.products.WithTx(tx)
		cartRepo := s.cart.WithTx(tx)

		order, err := ordersRepo.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
		}

		// A concurrent trigger won the race; its commit is the settlement.
		if order.Status != enums.OrderStatusPending {
			s.metrics.ObserveSettlement(trigger, outcomeNoop)
			return nil
		}

		for _, item := range order.Items {
			ok, err := productsRepo.DecrementStock(ctx, item.ProductID, item.Qty)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement stock")
			}
			if !ok {
				available := 0
				if product, perr := productsRepo.FindByID(ctx, item.ProductID); perr == nil {
					available = product.StockQty
				}
				return pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient stock").WithDetails(map[string]any{
					"product_id":    item.ProductID,
					"requested_qty": item.Qty,
					"available_qty": available,
				})
			}
		}

		now := time.Now().UTC()
		changed, err := ordersRepo.UpdateStatusGuarded(ctx, order.ID, enums.OrderStatusPending, map[string]any{
			"status":         enums.OrderStatusConfirmed,
			"payment_status": enums.PaymentStatusPaid,
			"confirmed_at":   now,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm order")
		}
		if !changed {
			// Second guard under the lock; rolls back the decrements above.
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order changed concurrently")
		}

		if err := cartRepo.Clear(ctx, order.UserID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderConfirmed,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: map[string]any{
				"order_id":     order.ID,
				"order_number": order.OrderNumber,
				"user_id":      order.UserID,
				"total_cents":  order.TotalCents,
				"trigger":      trigger,
			},
			Version: 1,
		})
	})
	if err != nil {
		s.metrics.ObserveSettlement(trigger, outcomeFailed)
		return err
	}

	s.metrics.ObserveSettlement(trigger, outcomeSettled)
	logCtx := s.logg.WithOrderID(ctx, orderID.String())
	s.logg.Info(logCtx, "order settled")
	return nil
}

// validateItems checks each submitted line against the live catalog and
// returns pricing lines plus frozen order items. Advisory only; the
// settlement transaction re-checks stock with the conditional decrement.
func (s *Service) validateItems(ctx context.Context, input []IntentItem) ([]pricing.Line, []models.OrderLineItem, error) {
	ids := make([]uuid.UUID, 0, len(input))
	for _, item := range input {
		if item.Quantity <= 0 {
			return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be positive")
		}
		ids = append(ids, item.ProductID)
	}
	rows, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	byID := make(map[uuid.UUID]models.Product, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}

	lines := make([]pricing.Line, 0, len(input))
	items := make([]models.OrderLineItem, 0, len(input))
	for _, item := range input {
		product, ok := byID[item.ProductID]
		if !ok {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").WithDetails(map[string]any{
				"product_id": item.ProductID,
			})
		}
		if !product.IsActive {
			return nil, nil, pkgerrors.New(pkgerrors.CodeStateConflict, "product is not available").WithDetails(map[string]any{
				"product_id": product.ID,
			})
		}
		if product.StockQty < item.Quantity {
			return nil, nil, pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient stock").WithDetails(map[string]any{
				"product_id":    product.ID,
				"requested_qty": item.Quantity,
				"available_qty": product.StockQty,
			})
		}
		if product.PriceCents != item.UnitPriceCents {
			return nil, nil, pkgerrors.New(pkgerrors.CodeConflict, "price mismatch").WithDetails(map[string]any{
				"product_id":          product.ID,
				"submitted_cents":     item.UnitPriceCents,
				"catalog_price_cents": product.PriceCents,
			})
		}
		lines = append(lines, pricing.Line{UnitPriceCents: product.PriceCents, Qty: item.Quantity})
		items = append(items, models.OrderLineItem{
			ID:             uuid.New(),
			ProductID:      product.ID,
			ProductName:    product.Name,
			UnitPriceCents: product.PriceCents,
			Qty:            item.Quantity,
			TotalCents:     product.PriceCents * item.Quantity,
		})
	}
	return lines, items, nil
}

func newOrderNumber() (string, error) {
	suffix := make([]byte, 4)
	if _, err := rand.Read(suffix); err != nil {
		return "", err
	}
	return fmt.Sprintf("ORD-%d-%s", time.Now().UnixMilli(), strings.ToUpper(hex.EncodeToString(suffix))), nil
}
