package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/thecolognehub/colognehub-backend/pkg/db/models"
	"github.com/thecolognehub/colognehub-backend/pkg/enums"
	"github.com/thecolognehub/colognehub-backend/pkg/types"
)

// LineItemDTO is the transport shape for a frozen order line.
type LineItemDTO struct {
	ProductID      uuid.UUID `json:"product_id"`
	ProductName    string    `json:"product_name"`
	UnitPriceCents int       `json:"unit_price_cents"`
	Quantity       int       `json:"quantity"`
	TotalCents     int       `json:"total_cents"`
}

// OrderDTO is the transport shape returned by order endpoints.
type OrderDTO struct {
	ID                 uuid.UUID             `json:"id"`
	OrderNumber        string                `json:"order_number"`
	UserID             uuid.UUID             `json:"user_id"`
	Status             enums.OrderStatus     `json:"status"`
	PaymentStatus      enums.PaymentStatus   `json:"payment_status"`
	PaymentMethod      enums.PaymentMethod   `json:"payment_method"`
	SubtotalCents      int                   `json:"subtotal_cents"`
	PromoDiscountCents int                   `json:"promo_discount_cents"`
	PromoCode          *string               `json:"promo_code,omitempty"`
	ShippingCents      int                   `json:"shipping_cents"`
	TaxCents           int                   `json:"tax_cents"`
	TotalCents         int                   `json:"total_cents"`
	ShippingAddress    types.ShippingAddress `json:"shipping_address"`
	Notes              *string               `json:"notes,omitempty"`
	TrackingNumber     *string               `json:"tracking_number,omitempty"`
	ConfirmedAt        *time.Time            `json:"confirmed_at,omitempty"`
	EstimatedDelivery  *time.Time            `json:"estimated_delivery,omitempty"`
	DeliveredAt        *time.Time            `json:"delivered_at,omitempty"`
	CancelledAt        *time.Time            `json:"cancelled_at,omitempty"`
	Items              []LineItemDTO         `json:"items"`
	CreatedAt          time.Time             `json:"created_at"`
}

// ListResult bundles a page of orders with pagination metadata.
type ListResult struct {
	Orders     []OrderDTO `json:"orders"`
	Total      int64      `json:"total"`
	Page       int        `json:"page"`
	TotalPages int        `json:"total_pages"`
}

// FromModel maps a persistence row into the transport shape.
func FromModel(order *models.Order) *OrderDTO {
	if order == nil {
		return nil
	}
	items := make([]LineItemDTO, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, LineItemDTO{
			ProductID:      item.ProductID,
			ProductName:    item.ProductName,
			UnitPriceCents: item.UnitPriceCents,
			Quantity:       item.Qty,
			TotalCents:     item.TotalCents,
		})
	}
	return &OrderDTO{
		ID:                 order.ID,
		OrderNumber:        order.OrderNumber,
		UserID:             order.UserID,
		Status:             order.Status,
		PaymentStatus:      order.PaymentStatus,
		PaymentMethod:      order.PaymentMethod,
		SubtotalCents:      order.SubtotalCents,
		PromoDiscountCents: order.PromoDiscountCents,
		PromoCode:          order.PromoCode,
		ShippingCents:      order.ShippingCents,
		TaxCents:           order.TaxCents,
		TotalCents:         order.TotalCents,
		ShippingAddress:    order.ShippingAddress,
		Notes:              order.Notes,
		TrackingNumber:     order.TrackingNumber,
		ConfirmedAt:        order.ConfirmedAt,
		EstimatedDelivery:  order.EstimatedDelivery,
		DeliveredAt:        order.DeliveredAt,
		CancelledAt:        order.CancelledAt,
		Items:              items,
		CreatedAt:          order.CreatedAt,
	}
}
