package wishlist

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/thecolognehub/colognehub-backend/internal/products"
	"github.com/thecolognehub/colognehub-backend/pkg/db/models"
	pkgerrors "github.com/thecolognehub/colognehub-backend/pkg/errors"
)

// Entry joins a wishlist row with its live product snapshot.
type Entry struct {
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	PriceCents  int       `json:"price_cents"`
	InStock     bool      `json:"in_stock"`
	ImageURL    *string   `json:"image_url,omitempty"`
}

// Service exposes wishlist operations to controllers.
type Service struct {
	repo     *Repository
	products *products.Repository
}

// NewService builds the wishlist service.
func NewService(repo *Repository, productsRepo *products.Repository) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wishlist repository required")
	}
	if productsRepo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	return &Service{repo: repo, products: productsRepo}, nil
}

// Add saves a product to the user's wishlist.
func (s *Service) Add(ctx context.Context, userID, productID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if productID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if _, err := s.products.FindByID(ctx, productID); err != nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if err := s.repo.Add(ctx, userID, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add wishlist item")
	}
	return nil
}

// Remove drops a product from the user's wishlist.
func (s *Service) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if productID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if err := s.repo.Remove(ctx, userID, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove wishlist item")
	}
	return nil
}

// List returns the user's wishlist entries with product snapshots.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]Entry, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wishlist")
	}
	if len(rows) == 0 {
		return []Entry{}, nil
	}

	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ProductID)
	}
	productRows, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wishlist products")
	}
	byID := make(map[uuid.UUID]models.Product, len(productRows))
	for _, row := range productRows {
		byID[row.ID] = row
	}

	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		product, ok := byID[row.ProductID]
		if !ok {
			continue
		}
		entries = append(entries, Entry{
			ProductID:   product.ID,
			ProductName: product.Name,
			PriceCents:  product.PriceCents,
			InStock:     product.StockQty > 0,
			ImageURL:    product.ImageURL,
		})
	}
	return entries, nil
}
