package payments

import (
	"github.com/google/uuid"

	"github.com/thecolognehub/colognehub-backend/internal/orders"
	"github.com/thecolognehub/colognehub-backend/pkg/types"
)

// IntentItem is one cart line as the client submitted it. Unit price is
// echoed back so the server can detect tampering against the catalog.
type IntentItem struct {
	ProductID      uuid.UUID `json:"product_id" validate:"required"`
	Quantity       int       `json:"quantity" validate:"required,min=1"`
	UnitPriceCents int       `json:"unit_price_cents" validate:"required,min=0"`
}

// CreateIntentInput is the checkout payload.
type CreateIntentInput struct {
	Items              []IntentItem          `json:"items" validate:"required,min=1,dive"`
	ShippingAddress    types.ShippingAddress `json:"shipping_address" validate:"required"`
	SubtotalCents      int                   `json:"subtotal_cents" validate:"min=0"`
	PromoDiscountCents int                   `json:"promo_discount_cents" validate:"min=0"`
	ShippingCents      int                   `json:"shipping_cents" validate:"min=0"`
	TaxCents           int                   `json:"tax_cents" validate:"min=0"`
	TotalCents         int                   `json:"total_cents" validate:"min=0"`
	PromoCode          *string               `json:"promo_code,omitempty"`
	Notes              *string               `json:"notes,omitempty"`
}

// CreateIntentResult returns the gateway handle the client needs to pay.
type CreateIntentResult struct {
	OrderID      uuid.UUID `json:"order_id"`
	OrderNumber  string    `json:"order_number"`
	ClientSecret string    `json:"client_secret"`
}

// ConfirmInput is the client confirmation payload.
type ConfirmInput struct {
	PaymentIntentID string    `json:"payment_intent_id" validate:"required"`
	OrderID         uuid.UUID `json:"order_id" validate:"required"`
}

// ConfirmResult reports the settled order. Success is true even when the
// settlement had already happened; retries must look identical.
type ConfirmResult struct {
	Success bool             `json:"success"`
	Order   *orders.OrderDTO `json:"order"`
}

// GatewayEvent is the provider-neutral webhook event handed over by the
// controller after signature verification.
type GatewayEvent struct {
	ID              string
	Type            string
	PaymentIntentID string
}

// Gateway event types the settlement service reacts to.
const (
	EventIntentSucceeded = "payment_intent.succeeded"
	EventIntentFailed    = "payment_intent.payment_failed"
)
