package payments

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
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
	"github.com/thecolognehub/colognehub-backend/pkg/outbox"
	"github.com/thecolognehub/colognehub-backend/pkg/types"
)

var settlementDDL = []string{
	`CREATE TABLE products (
  id TEXT PRIMARY KEY,
  sku TEXT NOT NULL,
  name TEXT NOT NULL,
  brand TEXT,
  description TEXT,
  category TEXT NOT NULL,
  tags TEXT,
  size_ml INTEGER,
  price_cents INTEGER NOT NULL,
  compare_at_price_cents INTEGER,
  stock_qty INTEGER NOT NULL DEFAULT 0,
  image_url TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  is_featured INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE orders (
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL,
  user_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  payment_status TEXT NOT NULL DEFAULT 'pending',
  payment_method TEXT NOT NULL DEFAULT 'card',
  payment_intent_id TEXT,
  subtotal_cents INTEGER NOT NULL,
  promo_discount_cents INTEGER NOT NULL DEFAULT 0,
  promo_code TEXT,
  shipping_cents INTEGER NOT NULL DEFAULT 0,
  tax_cents INTEGER NOT NULL DEFAULT 0,
  total_cents INTEGER NOT NULL,
  shipping_address TEXT,
  notes TEXT,
  tracking_number TEXT,
  confirmed_at DATETIME,
  estimated_delivery DATETIME,
  delivered_at DATETIME,
  cancelled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE order_line_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  product_name TEXT NOT NULL,
  unit_price_cents INTEGER NOT NULL,
  qty INTEGER NOT NULL,
  total_cents INTEGER NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE cart_records (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  cleared_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE cart_items (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`,
}

type settlementEnv struct {
	conn    *gorm.DB
	svc     *Service
	gateway *stubGateway
	cart    *cart.Repository
}

func newSettlementEnv(t *testing.T) *settlementEnv {
	t.Helper()

	dsn := "file:payments_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	for _, stmt := range settlementDDL {
		require.NoError(t, conn.Exec(stmt).Error)
	}

	logg := logger.New(logger.Options{ServiceName: "payments-test", Output: io.Discard})
	gateway := &stubGateway{}
	cartRepo := cart.NewRepository(conn)

	svc, err := NewService(ServiceParams{
		DB:           db.NewWithConn(conn),
		OrdersRepo:   orders.NewRepository(conn),
		ProductsRepo: products.NewRepository(conn),
		CartRepo:     cartRepo,
		Gateway:      gateway,
		Outbox:       outbox.NewService(outbox.NewRepository(conn), logg),
		Checkout: config.CheckoutConfig{
			FreeShippingCents:  50000,
			FlatShippingCents:  999,
			TaxRateBasisPoints: 800,
		},
		Logger: logg,
	})
	require.NoError(t, err)

	return &settlementEnv{conn: conn, svc: svc, gateway: gateway, cart: cartRepo}
}

type stubGateway struct {
	intentStatus string
	createErr    error
	retrieveErr  error
	created      []int64
}

func (g *stubGateway) CreateIntent(ctx context.Context, amountCents int64, metadata map[string]string) (*Intent, error) {
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.created = append(g.created, amountCents)
	return &Intent{
		ID:           "pi_" + uuid.NewString(),
		ClientSecret: "cs_test",
		Status:       "requires_payment_method",
		AmountCents:  amountCents,
	}, nil
}

func (g *stubGateway) RetrieveIntent(ctx context.Context, id string) (*Intent, error) {
	if g.retrieveErr != nil {
		return nil, g.retrieveErr
	}
	status := g.intentStatus
	if status == "" {
		status = "succeeded"
	}
	return &Intent{ID: id, Status: status}, nil
}

func (e *settlementEnv) seedProduct(t *testing.T, priceCents, stockQty int) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:         uuid.New(),
		SKU:        "SKU-" + uuid.NewString()[:8],
		Name:       "Oud Royale 100ml",
		Category:   "woody",
		PriceCents: priceCents,
		StockQty:   stockQty,
		IsActive:   true,
	}
	require.NoError(t, e.conn.Create(product).Error)
	return product
}

func (e *settlementEnv) seedPendingOrder(t *testing.T, userID uuid.UUID, intentID string, items ...models.OrderLineItem) *models.Order {
	t.Helper()
	total := 0
	for i := range items {
		items[i].ID = uuid.New()
		items[i].TotalCents = items[i].UnitPriceCents * items[i].Qty
		total += items[i].TotalCents
	}
	order := &models.Order{
		ID:              uuid.New(),
		OrderNumber:     "ORD-TEST-" + uuid.NewString()[:8],
		UserID:          userID,
		Status:          enums.OrderStatusPending,
		PaymentStatus:   enums.PaymentStatusPending,
		PaymentMethod:   enums.PaymentMethodCard,
		PaymentIntentID: &intentID,
		SubtotalCents:   total,
		TotalCents:      total,
		ShippingAddress: testAddress(),
		Items:           items,
	}
	require.NoError(t, e.conn.Create(order).Error)
	return order
}

func (e *settlementEnv) seedCartItem(t *testing.T, userID, productID uuid.UUID, qty int) {
	t.Helper()
	ctx := context.Background()
	record, err := e.cart.GetOrCreate(ctx, userID)
	require.NoError(t, err)
	require.NoError(t, e.cart.UpsertItem(ctx, record.ID, productID, qty))
}

func (e *settlementEnv) productStock(t *testing.T, id uuid.UUID) int {
	t.Helper()
	var product models.Product
	require.NoError(t, e.conn.First(&product, "id = ?", id).Error)
	return product.StockQty
}

func (e *settlementEnv) reloadOrder(t *testing.T, id uuid.UUID) *models.Order {
	t.Helper()
	var order models.Order
	require.NoError(t, e.conn.Preload("Items").First(&order, "id = ?", id).Error)
	return &order
}

func (e *settlementEnv) outboxCount(t *testing.T, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var count int64
	require.NoError(t, e.conn.Model(&models.OutboxEvent{}).
		Where("event_type = ?", eventType).
		Count(&count).Error)
	return count
}

func testAddress() types.ShippingAddress {
	return types.ShippingAddress{
		FullName:   "Nadia Osman",
		Line1:      "12 Gereonstrasse",
		City:       "Cologne",
		State:      "NW",
		PostalCode: "50670",
		Country:    "DE",
	}
}

func TestCreateIntentPersistsPendingOrder(t *testing.T) {
	env := newSettlementEnv(t)
	ctx := context.Background()
	userID := uuid.New()
	product := env.seedProduct(t, 12000, 5)

	result, err := env.svc.CreateIntent(ctx, userID, CreateIntentInput{
		Items: []IntentItem{
			{ProductID: product.ID, Quantity: 2, UnitPriceCents: 12000},
		},
		ShippingAddress: testAddress(),
		SubtotalCents:   24000,
		ShippingCents:   999,
		TaxCents:        1920,
		TotalCents:      26919,
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.NotEmpty(t, result.ClientSecret)
	assert.Contains(t, result.OrderNumber, "ORD-")

	require.Len(t, env.gateway.created, 1)
	assert.Equal(t, int64(26919), env.gateway.created[0])

	order := env.reloadOrder(t, result.OrderID)
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.Equal(t, enums.PaymentStatusPending, order.PaymentStatus)
	assert.Equal(t, 26919, order.TotalCents)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 2, order.Items[0].Qty)
	require.NotNil(t, order.EstimatedDelivery)

	// Checkout never touches stock; only settlement does.
	assert.Equal(t, 5, env.productStock(t, product.ID))
	assert.Equal(t, int64(1), env.outboxCount(t, enums.EventOrderCreated))
}

func TestCreateIntentRejectsPriceTamper(t *testing.T) {
	env := newSettlementEnv(t)
	product := env.seedProduct(t, 12000, 5)

	_, err := env.svc.CreateIntent(context.Background(), uuid.New(), CreateIntentInput{
		Items: []IntentItem{
			{ProductID: product.ID, Quantity: 1, UnitPriceCents: 100},
		},
		ShippingAddress: testAddress(),
		SubtotalCents:   100,
		ShippingCents:   999,
		TaxCents:        8,
		TotalCents:      1107,
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())

	var count int64
	require.NoError(t, env.conn.Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateIntentRejectsTotalsMismatch(t *testing.T) {
	env := newSettlementEnv(t)
	product := env.seedProduct(t, 12000, 5)

	_, err := env.svc.CreateIntent(context.Background(), uuid.New(), CreateIntentInput{
		Items: []IntentItem{
			{ProductID: product.ID, Quantity: 2, UnitPriceCents: 12000},
		},
		ShippingAddress: testAddress(),
		SubtotalCents:   24000,
		ShippingCents:   999,
		TaxCents:        1920,
		TotalCents:      20000,
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())
	assert.Empty(t, env.gateway.created)
}

func TestCreateIntentRejectsInsufficientStock(t *testing.T) {
	env := newSettlementEnv(t)
	product := env.seedProduct(t, 12000, 1)

	_, err := env.svc.CreateIntent(context.Background(), uuid.New(), CreateIntentInput{
		Items: []IntentItem{
			{ProductID: product.ID, Quantity: 3, UnitPriceCents: 12000},
		},
		ShippingAddress: testAddress(),
		SubtotalCents:   36000,
		ShippingCents:   999,
		TaxCents:        2880,
		TotalCents:      39879,
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestConfirmFromClientSettlesExactlyOnce(t *testing.T) {
	env := newSettlementEnv(t)
	ctx := context.Background()
	userID := uuid.New()
	product := env.seedProduct(t, 12000, 5)
	order := env.seedPendingOrder(t, userID, "pi_client", models.OrderLineItem{
		ProductID:      product.ID,
		ProductName:    product.Name,
		UnitPriceCents: product.PriceCents,
		Qty:            2,
	})
	env.seedCartItem(t, userID, product.ID, 2)

	result, err := env.svc.ConfirmFromClient(ctx, userID, ConfirmInput{
		PaymentIntentID: "pi_client",
		OrderID:         order.ID,
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, enums.OrderStatusConfirmed, result.Order.Status)

	settled := env.reloadOrder(t, order.ID)
	assert.Equal(t, enums.OrderStatusConfirmed, settled.Status)
	assert.Equal(t, enums.PaymentStatusPaid, settled.PaymentStatus)
	require.NotNil(t, settled.ConfirmedAt)
	assert.Equal(t, 3, env.productStock(t, product.ID))

	record, err := env.cart.FindByUser(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Empty(t, record.Items)
	assert.NotNil(t, record.ClearedAt)

	assert.Equal(t, int64(1), env.outboxCount(t, enums.EventOrderConfirmed))

	// A retry of the same confirmation is a noop, not a second decrement.
	again, err := env.svc.ConfirmFromClient(ctx, userID, ConfirmInput{
		PaymentIntentID: "pi_client",
		OrderID:         order.ID,
	})
	require.NoError(t, err)
	assert.True(t, again.Success)
	assert.Equal(t, 3, env.productStock(t, product.ID))
	assert.Equal(t, int64(1), env.outboxCount(t, enums.EventOrderConfirmed))
}

func TestWebhookThenClientConfirmDecrementsOnce(t *testing.T) {
	env := newSettlementEnv(t)
	ctx := context.Background()
	userID := uuid.New()
	product := env.seedProduct(t, 9000, 4)
	order := env.seedPendingOrder(t, userID, "pi_race", models.OrderLineItem{
		ProductID:      product.ID,
		ProductName:    product.Name,
		UnitPriceCents: product.PriceCents,
		Qty:            1,
	})

	require.NoError(t, env.svc.HandleGatewayEvent(ctx, GatewayEvent{
		ID:              "evt_1",
		Type:            EventIntentSucceeded,
		PaymentIntentID: "pi_race",
	}))
	assert.Equal(t, 3, env.productStock(t, product.ID))

	result, err := env.svc.ConfirmFromClient(ctx, userID, ConfirmInput{
		PaymentIntentID: "pi_race",
		OrderID:         order.ID,
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, enums.OrderStatusConfirmed, result.Order.Status)

	assert.Equal(t, 3, env.productStock(t, product.ID))
	assert.Equal(t, int64(1), env.outboxCount(t, enums.EventOrderConfirmed))
}

func TestHandleGatewayEventReplaySettlesOnce(t *testing.T) {
	env := newSettlementEnv(t)
	ctx := context.Background()
	product := env.seedProduct(t, 9000, 4)
	env.seedPendingOrder(t, uuid.New(), "pi_replay", models.OrderLineItem{
		ProductID:      product.ID,
		ProductName:    product.Name,
		UnitPriceCents: product.PriceCents,
		Qty:            2,
	})

	event := GatewayEvent{ID: "evt_dup", Type: EventIntentSucceeded, PaymentIntentID: "pi_replay"}
	require.NoError(t, env.svc.HandleGatewayEvent(ctx, event))
	require.NoError(t, env.svc.HandleGatewayEvent(ctx, event))

	assert.Equal(t, 2, env.productStock(t, product.ID))
	assert.Equal(t, int64(1), env.outboxCount(t, enums.EventOrderConfirmed))
}

func TestSettleOversellRollsBackEverything(t *testing.T) {
	env := newSettlementEnv(t)
	ctx := context.Background()
	userID := uuid.New()
	plenty := env.seedProduct(t, 9000, 5)
	scarce := env.seedProduct(t, 15000, 1)
	order := env.seedPendingOrder(t, userID, "pi_oversell",
		models.OrderLineItem{
			ProductID:      plenty.ID,
			ProductName:    plenty.Name,
			UnitPriceCents: plenty.PriceCents,
			Qty:            1,
		},
		models.OrderLineItem{
			ProductID:      scarce.ID,
			ProductName:    scarce.Name,
			UnitPriceCents: scarce.PriceCents,
			Qty:            3,
		},
	)

	err := env.svc.HandleGatewayEvent(ctx, GatewayEvent{
		ID:              "evt_oversell",
		Type:            EventIntentSucceeded,
		PaymentIntentID: "pi_oversell",
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())

	// The first decrement must roll back with the rest of the transaction.
	assert.Equal(t, 5, env.productStock(t, plenty.ID))
	assert.Equal(t, 1, env.productStock(t, scarce.ID))
	assert.Equal(t, enums.OrderStatusPending, env.reloadOrder(t, order.ID).Status)
	assert.Zero(t, env.outboxCount(t, enums.EventOrderConfirmed))
}

func TestConfirmFromClientRequiresSucceededIntent(t *testing.T) {
	env := newSettlementEnv(t)
	env.gateway.intentStatus = "requires_payment_method"
	userID := uuid.New()
	product := env.seedProduct(t, 12000, 5)
	order := env.seedPendingOrder(t, userID, "pi_unpaid", models.OrderLineItem{
		ProductID:      product.ID,
		ProductName:    product.Name,
		UnitPriceCents: product.PriceCents,
		Qty:            1,
	})

	_, err := env.svc.ConfirmFromClient(context.Background(), userID, ConfirmInput{
		PaymentIntentID: "pi_unpaid",
		OrderID:         order.ID,
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodePaymentIncomplete, typed.Code())

	assert.Equal(t, enums.OrderStatusPending, env.reloadOrder(t, order.ID).Status)
	assert.Equal(t, 5, env.productStock(t, product.ID))
}

func TestConfirmFromClientRejectsMismatchedIntent(t *testing.T) {
	env := newSettlementEnv(t)
	userID := uuid.New()
	product := env.seedProduct(t, 12000, 5)
	order := env.seedPendingOrder(t, userID, "pi_real", models.OrderLineItem{
		ProductID:      product.ID,
		ProductName:    product.Name,
		UnitPriceCents: product.PriceCents,
		Qty:            1,
	})

	_, err := env.svc.ConfirmFromClient(context.Background(), userID, ConfirmInput{
		PaymentIntentID: "pi_other",
		OrderID:         order.ID,
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestConfirmFromClientUnknownOrder(t *testing.T) {
	env := newSettlementEnv(t)

	_, err := env.svc.ConfirmFromClient(context.Background(), uuid.New(), ConfirmInput{
		PaymentIntentID: "pi_missing",
		OrderID:         uuid.New(),
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestHandleIntentFailedCancelsOnlyPendingOrders(t *testing.T) {
	env := newSettlementEnv(t)
	ctx := context.Background()
	product := env.seedProduct(t, 12000, 5)
	order := env.seedPendingOrder(t, uuid.New(), "pi_fail", models.OrderLineItem{
		ProductID:      product.ID,
		ProductName:    product.Name,
		UnitPriceCents: product.PriceCents,
		Qty:            1,
	})

	failed := GatewayEvent{ID: "evt_fail", Type: EventIntentFailed, PaymentIntentID: "pi_fail"}
	require.NoError(t, env.svc.HandleGatewayEvent(ctx, failed))

	cancelled := env.reloadOrder(t, order.ID)
	assert.Equal(t, enums.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, enums.PaymentStatusFailed, cancelled.PaymentStatus)
	require.NotNil(t, cancelled.CancelledAt)
	assert.Equal(t, int64(1), env.outboxCount(t, enums.EventPaymentFailed))

	// Redelivery after the cancel is a noop.
	require.NoError(t, env.svc.HandleGatewayEvent(ctx, failed))
	assert.Equal(t, int64(1), env.outboxCount(t, enums.EventPaymentFailed))
}

func TestHandleIntentFailedLeavesSettledOrderAlone(t *testing.T) {
	env := newSettlementEnv(t)
	ctx := context.Background()
	product := env.seedProduct(t, 12000, 5)
	order := env.seedPendingOrder(t, uuid.New(), "pi_late_fail", models.OrderLineItem{
		ProductID:      product.ID,
		ProductName:    product.Name,
		UnitPriceCents: product.PriceCents,
		Qty:            1,
	})

	require.NoError(t, env.svc.HandleGatewayEvent(ctx, GatewayEvent{
		ID:              "evt_ok",
		Type:            EventIntentSucceeded,
		PaymentIntentID: "pi_late_fail",
	}))
	require.NoError(t, env.svc.HandleGatewayEvent(ctx, GatewayEvent{
		ID:              "evt_late",
		Type:            EventIntentFailed,
		PaymentIntentID: "pi_late_fail",
	}))

	settled := env.reloadOrder(t, order.ID)
	assert.Equal(t, enums.OrderStatusConfirmed, settled.Status)
	assert.Equal(t, enums.PaymentStatusPaid, settled.PaymentStatus)
	assert.Zero(t, env.outboxCount(t, enums.EventPaymentFailed))
}

func TestHandleGatewayEventIgnoresUnknownInput(t *testing.T) {
	env := newSettlementEnv(t)
	ctx := context.Background()

	// Unknown event type.
	require.NoError(t, env.svc.HandleGatewayEvent(ctx, GatewayEvent{
		ID:   "evt_noise",
		Type: "charge.refunded",
	}))
	// Known type, but the intent belongs to no order here.
	require.NoError(t, env.svc.HandleGatewayEvent(ctx, GatewayEvent{
		ID:              "evt_orphan",
		Type:            EventIntentSucceeded,
		PaymentIntentID: "pi_orphan",
	}))
}

func TestSettleNoopOnNonPendingOrderUnderLock(t *testing.T) {
	env := newSettlementEnv(t)
	ctx := context.Background()
	userID := uuid.New()
	product := env.seedProduct(t, 12000, 5)
	order := env.seedPendingOrder(t, userID, "pi_raced", models.OrderLineItem{
		ProductID:      product.ID,
		ProductName:    product.Name,
		UnitPriceCents: product.PriceCents,
		Qty:            2,
	})
	env.seedCartItem(t, userID, product.ID, 2)

	// A concurrent trigger already committed its settlement; the row this
	// transaction locks is no longer pending.
	require.NoError(t, env.conn.Model(&models.Order{}).
		Where("id = ?", order.ID).
		Updates(map[string]any{
			"status":         enums.OrderStatusConfirmed,
			"payment_status": enums.PaymentStatusPaid,
		}).Error)

	require.NoError(t, env.svc.settle(ctx, order.ID, triggerWebhook))

	// Nothing moved: no second decrement, no second event, cart untouched.
	assert.Equal(t, 5, env.productStock(t, product.ID))
	assert.Zero(t, env.outboxCount(t, enums.EventOrderConfirmed))
	record, err := env.cart.FindByUser(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Len(t, record.Items, 1)

	// Same no-op when the loser arrives after a cancellation.
	require.NoError(t, env.conn.Model(&models.Order{}).
		Where("id = ?", order.ID).
		Update("status", enums.OrderStatusCancelled).Error)
	require.NoError(t, env.svc.settle(ctx, order.ID, triggerClient))
	assert.Equal(t, 5, env.productStock(t, product.ID))
}

func TestSettleUnknownOrder(t *testing.T) {
	env := newSettlementEnv(t)

	err := env.svc.settle(context.Background(), uuid.New(), triggerWebhook)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}
