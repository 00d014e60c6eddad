package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/thecolognehub/colognehub-backend/pkg/enums"
	"github.com/thecolognehub/colognehub-backend/pkg/types"
)

// Order represents a buyer order with its pricing breakdown frozen at
// checkout. PaymentIntentID links the order to the gateway intent so the
// webhook path can find it without a client-supplied order id.
type Order struct {
	ID                 uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber        string                `gorm:"column:order_number;not null;uniqueIndex"`
	UserID             uuid.UUID             `gorm:"column:user_id;type:uuid;not null;index"`
	Status             enums.OrderStatus     `gorm:"column:status;type:text;not null;default:'pending'"`
	PaymentStatus      enums.PaymentStatus   `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	PaymentMethod      enums.PaymentMethod   `gorm:"column:payment_method;type:text;not null;default:'card'"`
	PaymentIntentID    *string               `gorm:"column:payment_intent_id;index"`
	SubtotalCents      int                   `gorm:"column:subtotal_cents;not null"`
	PromoDiscountCents int                   `gorm:"column:promo_discount_cents;not null;default:0"`
	PromoCode          *string               `gorm:"column:promo_code"`
	ShippingCents      int                   `gorm:"column:shipping_cents;not null;default:0"`
	TaxCents           int                   `gorm:"column:tax_cents;not null;default:0"`
	TotalCents         int                   `gorm:"column:total_cents;not null"`
	ShippingAddress    types.ShippingAddress `gorm:"column:shipping_address;type:jsonb"`
	Notes              *string               `gorm:"column:notes"`
	TrackingNumber     *string               `gorm:"column:tracking_number"`
	ConfirmedAt        *time.Time            `gorm:"column:confirmed_at"`
	EstimatedDelivery  *time.Time            `gorm:"column:estimated_delivery"`
	DeliveredAt        *time.Time            `gorm:"column:delivered_at"`
	CancelledAt        *time.Time            `gorm:"column:cancelled_at"`
	Items              []OrderLineItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
