package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/thecolognehub/colognehub-backend/internal/products"
	"github.com/thecolognehub/colognehub-backend/pkg/db/models"
	pkgerrors "github.com/thecolognehub/colognehub-backend/pkg/errors"
)

// Line is the cart read model returned to controllers, with the live
// product snapshot joined in.
type Line struct {
	ProductID      uuid.UUID `json:"product_id"`
	ProductName    string    `json:"product_name"`
	UnitPriceCents int       `json:"unit_price_cents"`
	Quantity       int       `json:"quantity"`
	LineTotalCents int       `json:"line_total_cents"`
	StockQty       int       `json:"stock_qty"`
	ImageURL       *string   `json:"image_url,omitempty"`
}

// View is the assembled cart payload.
type View struct {
	CartID        uuid.UUID `json:"cart_id"`
	Lines         []Line    `json:"lines"`
	SubtotalCents int       `json:"subtotal_cents"`
}

// Service exposes cart operations to controllers.
type Service struct {
	repo     *Repository
	products *products.Repository
}

// NewService builds the cart service.
func NewService(repo *Repository, productsRepo *products.Repository) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if productsRepo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	return &Service{repo: repo, products: productsRepo}, nil
}

// Get assembles the user's cart view.
func (s *Service) Get(ctx context.Context, userID uuid.UUID) (*View, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	record, err := s.repo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return s.assemble(ctx, record)
}

// SetItem sets the quantity of a product in the cart. Quantity zero removes
// the row.
func (s *Service) SetItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*View, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}

	record, err := s.repo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	if quantity == 0 {
		if err := s.repo.RemoveItem(ctx, record.ID, productID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart item")
		}
		return s.Get(ctx, userID)
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "product is not available")
	}
	if product.StockQty < quantity {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient stock").WithDetails(map[string]any{
			"product_id":    product.ID,
			"requested_qty": quantity,
			"available_qty": product.StockQty,
		})
	}

	if err := s.repo.UpsertItem(ctx, record.ID, productID, quantity); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart item")
	}
	return s.Get(ctx, userID)
}

// RemoveItem deletes a product from the cart.
func (s *Service) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*View, error) {
	return s.SetItem(ctx, userID, productID, 0)
}

// Clear empties the cart.
func (s *Service) Clear(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if err := s.repo.Clear(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

func (s *Service) assemble(ctx context.Context, record *models.CartRecord) (*View, error) {
	view := &View{CartID: record.ID, Lines: []Line{}}
	if len(record.Items) == 0 {
		return view, nil
	}

	ids := make([]uuid.UUID, 0, len(record.Items))
	for _, item := range record.Items {
		ids = append(ids, item.ProductID)
	}
	rows, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart products")
	}
	byID := make(map[uuid.UUID]models.Product, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}

	for _, item := range record.Items {
		product, ok := byID[item.ProductID]
		if !ok {
			// Product was deleted since the item was added; hide the row.
			continue
		}
		line := Line{
			ProductID:      product.ID,
			ProductName:    product.Name,
			UnitPriceCents: product.PriceCents,
			Quantity:       item.Quantity,
			LineTotalCents: product.PriceCents * item.Quantity,
			StockQty:       product.StockQty,
			ImageURL:       product.ImageURL,
		}
		view.Lines = append(view.Lines, line)
		view.SubtotalCents += line.LineTotalCents
	}
	return view, nil
}
